// Package unit implements the engine's unit-algebra layer: named units
// grouped into open-registered categories, exact-rational conversion to a
// per-category standard unit, and the CompositeUnit type that tracks a
// signed power per category (e.g. m^1 * s^-1 for a speed value).
//
// Units register themselves by category and symbol at package init, so the
// serialized form can recover a Unit through Lookup without a closed enum.
package unit

import (
	"math/big"
	"sort"

	"rpnengine/calcerr"
	"rpnengine/number"
	"rpnengine/storage"
)

// Category identifies a family of mutually convertible units.
type Category uint8

const (
	Time Category = iota
	Distance
	Angle
	Mass
	Temperature
	Volume
	Area
	Speed
	Pressure
	Energy
	Power
	Digital
	numCategories
)

// Unit is one named unit within a Category, with exact conversion to and
// from that category's standard unit (e.g. seconds for Time, meters for
// Distance). Temperature's units are affine rather than multiplicative
// (Celsius = Kelvin - 273.15), so conversion is expressed as a pair of
// functions rather than a bare multiplier; Multiplier reports the rational
// factor for the common multiplicative case and is nil for an affine unit.
type Unit struct {
	category     Category
	symbol       string
	multiplier   *big.Rat
	toStandard   func(number.Number) number.Number
	fromStandard func(number.Number) number.Number
}

// Category reports which family this unit belongs to.
func (u Unit) Category() Category { return u.category }

// Symbol is the short display form, e.g. "km" or "°C".
func (u Unit) Symbol() string { return u.symbol }

// Multiplier reports the exact rational conversion factor to the category's
// standard unit, or nil for an affine (non-multiplicative) unit.
func (u Unit) Multiplier() *big.Rat { return u.multiplier }

// Equal reports whether two units are the same named unit.
func (u Unit) Equal(o Unit) bool { return u.category == o.category && u.symbol == o.symbol }

var registry = map[Category]map[string]Unit{}

func register(u Unit) Unit {
	m, ok := registry[u.category]
	if !ok {
		m = map[string]Unit{}
		registry[u.category] = m
	}
	m[u.symbol] = u
	return u
}

// Lookup finds a previously registered unit by category and symbol, for
// reconstructing a Unit from its serialized form.
func Lookup(category Category, symbol string) (Unit, bool) {
	m, ok := registry[category]
	if !ok {
		return Unit{}, false
	}
	u, ok := m[symbol]
	return u, ok
}

func ratUnit(category Category, symbol string, num, den int64) Unit {
	m := big.NewRat(num, den)
	return register(Unit{
		category:   category,
		symbol:     symbol,
		multiplier: m,
		toStandard: func(v number.Number) number.Number {
			return v.Mul(number.FromRational(m.Num(), m.Denom()))
		},
		fromStandard: func(v number.Number) number.Number {
			return v.Div(number.FromRational(m.Num(), m.Denom()))
		},
	})
}

func affineUnit(category Category, symbol string, toStd, fromStd func(number.Number) number.Number) Unit {
	return register(Unit{category: category, symbol: symbol, toStandard: toStd, fromStandard: fromStd})
}

// ToUnit converts value, expressed in u, into the target unit.
func (u Unit) ToUnit(value number.Number, target Unit) number.Number {
	if u.Equal(target) {
		return value
	}
	return target.fromStandard(u.toStandard(value))
}

// ToUnitInv converts value under an inverted unit (e.g. the seconds in "per
// second") from u to target.
func (u Unit) ToUnitInv(value number.Number, target Unit) number.Number {
	return target.ToUnit(value, u)
}

// ToUnitWithPower applies ToUnit/ToUnitInv repeated |power| times,
// converting one power of the unit at a time rather than scaling the
// multiplier by an exponent. This stays exact for every power, including
// the affine Temperature case where there is no multiplier to exponentiate
// in the first place.
func (u Unit) ToUnitWithPower(value number.Number, target Unit, power int32) number.Number {
	if u.Equal(target) {
		return value
	}
	result := value
	switch {
	case power < 0:
		for i := int32(0); i > power; i-- {
			result = u.ToUnitInv(result, target)
		}
	case power > 0:
		for i := int32(0); i < power; i++ {
			result = u.ToUnit(result, target)
		}
	}
	return result
}

type unitPower struct {
	unit  Unit
	power int32
}

// CompositeUnit tracks a signed integer power of at most one unit per
// category, e.g. {Distance: (meters, 1), Time: (seconds, -1)} for a speed.
type CompositeUnit struct {
	units map[Category]unitPower
}

// New returns the empty (unitless) composite unit.
func New() CompositeUnit { return CompositeUnit{units: map[Category]unitPower{}} }

// SingleUnit builds a composite unit with u raised to the first power.
func SingleUnit(u Unit) CompositeUnit {
	c := New()
	c.units[u.category] = unitPower{unit: u, power: 1}
	return c
}

// SingleUnitInv builds a composite unit with u raised to the power -1.
func SingleUnitInv(u Unit) CompositeUnit {
	c := New()
	c.units[u.category] = unitPower{unit: u, power: -1}
	return c
}

// RatioUnit builds a composite unit numer/denom, e.g. RatioUnit(Meters,
// Seconds) for a speed expressed as meters per second.
func RatioUnit(numer, denom Unit) CompositeUnit {
	c := New()
	c.units[numer.category] = unitPower{unit: numer, power: 1}
	if denom.category == numer.category {
		existing := c.units[numer.category]
		existing.power--
		if existing.power == 0 {
			delete(c.units, numer.category)
		} else {
			c.units[numer.category] = existing
		}
	} else {
		c.units[denom.category] = unitPower{unit: denom, power: -1}
	}
	return c
}

// Unitless reports whether the composite carries no units at all.
func (c CompositeUnit) Unitless() bool { return len(c.units) == 0 }

// Clone deep-copies the category map so mutating methods can be called
// without aliasing the receiver's state.
func (c CompositeUnit) Clone() CompositeUnit {
	out := New()
	for k, v := range c.units {
		out.units[k] = v
	}
	return out
}

func convertValueOfUnit(value number.Number, from, to Unit, power int32) (number.Number, bool) {
	if from.category != to.category {
		return number.Number{}, false
	}
	return from.ToUnitWithPower(value, to, power), true
}

// AddUnit folds u into the composite at power +1, converting value from
// whatever unit (if any) already occupied u's category.
func (c *CompositeUnit) AddUnit(value number.Number, u Unit) number.Number {
	if existing, ok := c.units[u.category]; ok {
		converted, _ := convertValueOfUnit(value, existing.unit, u, existing.power)
		newPower := existing.power + 1
		if newPower == 0 {
			delete(c.units, u.category)
		} else {
			c.units[u.category] = unitPower{unit: u, power: newPower}
		}
		return converted
	}
	c.units[u.category] = unitPower{unit: u, power: 1}
	return value
}

// AddUnitInv folds u into the composite at power -1.
func (c *CompositeUnit) AddUnitInv(value number.Number, u Unit) number.Number {
	if existing, ok := c.units[u.category]; ok {
		converted, _ := convertValueOfUnit(value, existing.unit, u, existing.power)
		newPower := existing.power - 1
		if newPower == 0 {
			delete(c.units, u.category)
		} else {
			c.units[u.category] = unitPower{unit: u, power: newPower}
		}
		return converted
	}
	c.units[u.category] = unitPower{unit: u, power: -1}
	return value
}

// Inverse returns a composite unit with every category's power negated.
func (c CompositeUnit) Inverse() CompositeUnit {
	out := New()
	for k, v := range c.units {
		out.units[k] = unitPower{unit: v.unit, power: -v.power}
	}
	return out
}

// ConvertSingleUnit converts value's component in target's category to
// target, leaving the power unchanged. Reports false if the composite has
// no unit in that category.
func (c *CompositeUnit) ConvertSingleUnit(value number.Number, target Unit) (number.Number, bool) {
	existing, ok := c.units[target.category]
	if !ok {
		return number.Number{}, false
	}
	converted, ok := convertValueOfUnit(value, existing.unit, target, existing.power)
	if !ok {
		return number.Number{}, false
	}
	c.units[target.category] = unitPower{unit: target, power: existing.power}
	return converted, true
}

// CoerceToOther converts value from this composite unit into target,
// reporting false if the two aren't dimensionally compatible (same set of
// categories, each at the same power).
func (c CompositeUnit) CoerceToOther(value number.Number, target CompositeUnit) (number.Number, bool) {
	for cat, up := range c.units {
		t, ok := target.units[cat]
		if !ok || t.power != up.power {
			return number.Number{}, false
		}
	}
	for cat, t := range target.units {
		up, ok := c.units[cat]
		if !ok || t.power != up.power {
			return number.Number{}, false
		}
	}
	result := value
	working := c.Clone()
	for _, t := range sortedUnitPowers(target.units) {
		converted, ok := working.ConvertSingleUnit(result, t.unit)
		if !ok {
			return number.Number{}, false
		}
		result = converted
	}
	return result, true
}

// Combine multiplies this composite unit by target's, converting value's
// units to match and summing powers per category (dropping any category
// whose power cancels to zero).
func (c *CompositeUnit) Combine(value number.Number, target CompositeUnit) number.Number {
	result := value
	for _, t := range sortedUnitPowers(target.units) {
		cat := t.unit.category
		if existing, ok := c.units[cat]; ok {
			converted, _ := convertValueOfUnit(result, existing.unit, t.unit, existing.power)
			newPower := existing.power + t.power
			if newPower == 0 {
				delete(c.units, cat)
			} else {
				c.units[cat] = unitPower{unit: t.unit, power: newPower}
			}
			result = converted
		} else {
			c.units[cat] = t
		}
	}
	return result
}

// Serialize writes the composite unit as a count-prefixed list of
// (category, symbol, power) triples in deterministic category order.
func (c CompositeUnit) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	entries := sortedUnitPowers(c.units)
	out.WriteU32(uint32(len(entries)))
	for _, e := range entries {
		out.WriteU8(uint8(e.unit.category))
		out.WriteBytes([]byte(e.unit.symbol))
		out.WriteI32(e.power)
	}
	return nil
}

// Decode reconstructs a CompositeUnit from its serialized body.
func Decode(in *storage.Reader, refs storage.RefVisitor) (CompositeUnit, error) {
	count, err := in.ReadU32()
	if err != nil {
		return CompositeUnit{}, err
	}
	c := New()
	for i := uint32(0); i < count; i++ {
		catByte, err := in.ReadU8()
		if err != nil {
			return CompositeUnit{}, err
		}
		symBytes, err := in.ReadBytes()
		if err != nil {
			return CompositeUnit{}, err
		}
		power, err := in.ReadI32()
		if err != nil {
			return CompositeUnit{}, err
		}
		u, ok := Lookup(Category(catByte), string(symBytes))
		if !ok {
			return CompositeUnit{}, calcerr.New(calcerr.CorruptData)
		}
		c.units[u.category] = unitPower{unit: u, power: power}
	}
	return c, nil
}

// sortedUnitPowers returns the map's entries in a deterministic (category)
// order, since Go map iteration order is randomized and these conversions
// must be reproducible.
func sortedUnitPowers(m map[Category]unitPower) []unitPower {
	out := make([]unitPower, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unit.category < out[j].unit.category })
	return out
}
