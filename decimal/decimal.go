// Package decimal is a thin, safe wrapper over an external IEEE-754-2008
// 128-bit binary-integer-decimal (BID-128) primitive library. The engine
// never reimplements BID-128 arithmetic itself; this package only adapts
// an external library's operation set to the engine's own Decimal type and
// error conventions.
//
// The concrete external library is github.com/cockroachdb/apd/v3, an
// arbitrary-precision decimal implementation of the General Decimal
// Arithmetic specification, the same lineage IEEE-754-2008's decimal
// formats were standardized from. It is configured to a fixed 34-digit
// context (decimal128's significand width) to stand in for a true BID-128
// coprocessor.
package decimal

import (
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// ctx128 is the fixed context approximating IEEE-754-2008 decimal128:
// 34 significant digits, exponent range per the standard's storage width.
var ctx128 = &apd.Context{
	Precision:   34,
	MaxExponent: 6144,
	MinExponent: -6143,
	Rounding:    apd.RoundHalfEven,
}

// Decimal is an opaque 128-bit decimal value. The zero value is the
// decimal 0, the same value Zero() returns.
type Decimal struct {
	d apd.Decimal
}

func wrap(d *apd.Decimal) Decimal {
	return Decimal{d: *d}
}

func (d Decimal) apd() *apd.Decimal {
	v := d.d
	return &v
}

// Zero returns the decimal value 0.
func Zero() Decimal {
	return Decimal{}
}

// FromInt64 converts a machine integer exactly.
func FromInt64(v int64) Decimal {
	return wrap(apd.New(v, 0))
}

// FromBigInt converts an arbitrary-precision integer exactly (apd's
// coefficient is itself arbitrary precision, so constructing straight from
// the decimal string is exact), then rounds to the 34-digit context if it
// carries more significant digits than that.
func FromBigInt(v *big.Int) Decimal {
	raw, _, err := apd.NewFromString(v.String())
	if err != nil {
		return Decimal{}
	}
	var out apd.Decimal
	_, _ = ctx128.Round(&out, raw)
	return wrap(&out)
}

// Parse reads the canonical "[+-]digits E exponent" textual form (or any
// form apd accepts, a superset of it).
func Parse(s string) (Decimal, error) {
	d, _, err := ctx128.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return wrap(d), nil
}

// String renders the value in apd's scientific 'E' notation (Text('E')).
// Package calc's formatter works from Parts rather than parsing this text.
func (d Decimal) String() string {
	return d.d.Text('E')
}

func binary(op func(d, x, y *apd.Decimal) (apd.Condition, error), a, b Decimal) Decimal {
	var out apd.Decimal
	_, _ = op(&out, a.apd(), b.apd())
	return wrap(&out)
}

func unary(op func(d, x *apd.Decimal) (apd.Condition, error), a Decimal) Decimal {
	var out apd.Decimal
	_, _ = op(&out, a.apd())
	return wrap(&out)
}

func (d Decimal) Add(o Decimal) Decimal { return binary(ctx128.Add, d, o) }
func (d Decimal) Sub(o Decimal) Decimal { return binary(ctx128.Sub, d, o) }
func (d Decimal) Mul(o Decimal) Decimal { return binary(ctx128.Mul, d, o) }

// Div divides d by o. Division by exact zero yields ±Infinity or NaN rather
// than an error or panic, matching the external primitive's IEEE behaviour.
func (d Decimal) Div(o Decimal) Decimal { return binary(ctx128.Quo, d, o) }

// Fma computes d*x + y, composed from the external library's multiply and
// add (apd exposes no native fused op): the product is rounded to the
// context before the addition, so the result is rounded twice.
func (d Decimal) Fma(x, y Decimal) Decimal {
	return d.Mul(x).Add(y)
}

func (d Decimal) Pow(p Decimal) Decimal { return binary(ctx128.Pow, d, p) }

// Sqrt is implemented as Pow(d, 0.5), per the engine's design: it keeps the
// runtime free of a dedicated square-root primitive.
func (d Decimal) Sqrt() Decimal {
	return d.Pow(FromRatio(1, 2))
}

// Cbrt computes the real cube root, including for negative operands (unlike
// Pow(d, 1/3), which the underlying library rejects for negative bases).
func (d Decimal) Cbrt() Decimal {
	if d.IsZero() {
		return d
	}
	neg := d.Sign() < 0
	mag := d
	if neg {
		mag = d.Negate()
	}
	r := mag.Pow(FromRatio(1, 3))
	if neg {
		r = r.Negate()
	}
	return r
}

func (d Decimal) Exp() Decimal  { return unary(ctx128.Exp, d) }
func (d Decimal) Exp2() Decimal { return FromInt64(2).Pow(d) }
func (d Decimal) Exp10() Decimal {
	return FromInt64(10).Pow(d)
}

// Expm1 computes e^d - 1. Composed from Exp; for |d| near zero this loses
// the precision a native expm1 primitive would retain.
func (d Decimal) Expm1() Decimal {
	return d.Exp().Sub(FromInt64(1))
}

func (d Decimal) Ln() Decimal    { return unary(ctx128.Ln, d) }
func (d Decimal) Log10() Decimal { return unary(ctx128.Log10, d) }

// Log2 computes ln(d)/ln(2), composed because the external library exposes
// only natural and base-10 logarithms natively.
func (d Decimal) Log2() Decimal {
	return d.Ln().Div(two.Ln())
}

// Log1p computes ln(1+d), composed from Ln for the same reason as Log2.
func (d Decimal) Log1p() Decimal {
	return d.Add(FromInt64(1)).Ln()
}

var two = FromInt64(2)

func (d Decimal) Abs() Decimal { return unary(ctx128.Abs, d) }
func (d Decimal) Neg() Decimal { return unary(ctx128.Neg, d) }

// Negate is an alias of Neg kept for call sites that read more naturally
// with a verb distinct from the unary minus convention.
func (d Decimal) Negate() Decimal { return d.Neg() }

func (d Decimal) Modf() (intPart, fracPart Decimal) {
	var ip apd.Decimal
	_, _ = ctx128.RoundToIntegralValue(&ip, d.apd())
	// Truncate toward zero rather than round for the integer part.
	if d.Sign() < 0 && ip.Cmp(d.apd()) < 0 {
		_, _ = ctx128.Add(&ip, &ip, apd.New(1, 0))
	} else if d.Sign() > 0 && ip.Cmp(d.apd()) > 0 {
		_, _ = ctx128.Sub(&ip, &ip, apd.New(1, 0))
	}
	intD := wrap(&ip)
	frac := d.Sub(intD)
	return intD, frac
}

func (d Decimal) Cmp(o Decimal) int {
	return d.d.Cmp(&o.d)
}

func (d Decimal) Sign() int {
	return d.d.Sign()
}

func (d Decimal) IsZero() bool { return d.d.IsZero() }

func (d Decimal) IsNaN() bool {
	return d.d.Form == apd.NaN || d.d.Form == apd.NaNSignaling
}

func (d Decimal) IsInf() bool {
	return d.d.Form == apd.Infinite
}

// Parts exposes the raw sign, unsigned coefficient digits, and exponent of
// a finite value, for a formatter (package calc's Format) that needs to
// apply its own digit grouping/rounding/scientific-notation rules rather
// than accept apd's own Text('E') rendering. Invalid for NaN/Infinite
// values; callers must check IsNaN/IsInf first.
func (d Decimal) Parts() (negative bool, digits string, exponent int32) {
	coeff := d.d.Coeff
	if coeff.Sign() == 0 {
		return d.d.Negative, "0", d.d.Exponent
	}
	return d.d.Negative, coeff.String(), d.d.Exponent
}

// Classify returns a human label for the value's shape: one of "NaN",
// "+Inf", "-Inf", "+0", "-0", "subnormal", "normal".
func (d Decimal) Classify() string {
	switch {
	case d.IsNaN():
		return "NaN"
	case d.IsInf():
		if d.d.Negative {
			return "-Inf"
		}
		return "+Inf"
	case d.IsZero():
		if d.d.Negative {
			return "-0"
		}
		return "+0"
	case d.d.Exponent < ctx128.MinExponent+int32(ctx128.Precision)-1:
		return "subnormal"
	default:
		return "normal"
	}
}

// Equal compares by bit-identity of the BID-128 representation: same
// coefficient, exponent, sign and form. This differs from numeric equality
// (Cmp) for values like 1E1 vs 10E0.
func (d Decimal) Equal(o Decimal) bool {
	return d.d.Negative == o.d.Negative &&
		d.d.Exponent == o.d.Exponent &&
		d.d.Form == o.d.Form &&
		d.d.Coeff.Cmp(&o.d.Coeff) == 0
}

// FromRatio builds an exact decimal for small rationals used internally
// (e.g. the 1/2 and 1/3 exponents used by Sqrt/Cbrt).
func FromRatio(num, den int64) Decimal {
	return FromInt64(num).Div(FromInt64(den))
}

// ---- Transcendentals without a native decimal primitive ----
//
// The external library (apd) implements the General Decimal Arithmetic
// basic operation set (add/sub/mul/quo/sqrt/pow/ln/log10/exp) but has no
// circular/hyperbolic/special-function primitives. This wrapper round-trips
// through float64 for that family of functions: precision degrades from 34
// significant digits to float64's ~17 for these specific operations only.
// This is a deliberate, documented limitation (see DESIGN.md), not a
// silent one.

func (d Decimal) toFloat64() float64 {
	f, _ := d.d.Float64()
	return f
}

func fromFloat64(f float64) Decimal {
	if math.IsNaN(f) {
		return wrap(&apd.Decimal{Form: apd.NaN})
	}
	if math.IsInf(f, 0) {
		return wrap(&apd.Decimal{Form: apd.Infinite, Negative: f < 0})
	}
	d, err := Parse(strconv.FormatFloat(f, 'e', 33, 64))
	if err != nil {
		return Decimal{}
	}
	return d
}

func viaFloat(f func(float64) float64, d Decimal) Decimal {
	if d.IsNaN() || d.IsInf() {
		return d
	}
	return fromFloat64(f(d.toFloat64()))
}

func (d Decimal) Sin() Decimal   { return viaFloat(math.Sin, d) }
func (d Decimal) Cos() Decimal   { return viaFloat(math.Cos, d) }
func (d Decimal) Tan() Decimal   { return viaFloat(math.Tan, d) }
func (d Decimal) Asin() Decimal  { return viaFloat(math.Asin, d) }
func (d Decimal) Acos() Decimal  { return viaFloat(math.Acos, d) }
func (d Decimal) Atan() Decimal  { return viaFloat(math.Atan, d) }
func (d Decimal) Sinh() Decimal  { return viaFloat(math.Sinh, d) }
func (d Decimal) Cosh() Decimal  { return viaFloat(math.Cosh, d) }
func (d Decimal) Tanh() Decimal  { return viaFloat(math.Tanh, d) }
func (d Decimal) Asinh() Decimal { return viaFloat(math.Asinh, d) }
func (d Decimal) Acosh() Decimal { return viaFloat(math.Acosh, d) }
func (d Decimal) Atanh() Decimal { return viaFloat(math.Atanh, d) }
func (d Decimal) Erf() Decimal   { return viaFloat(math.Erf, d) }
func (d Decimal) Erfc() Decimal  { return viaFloat(math.Erfc, d) }

func (d Decimal) Tgamma() Decimal { return viaFloat(math.Gamma, d) }

func (d Decimal) Lgamma() Decimal {
	return viaFloat(func(f float64) float64 {
		v, _ := math.Lgamma(f)
		return v
	}, d)
}

// Atan2 is exposed as a free function since it takes two operands and
// conventionally isn't a method of the y operand alone.
func Atan2(y, x Decimal) Decimal {
	if y.IsNaN() || x.IsNaN() {
		return wrap(&apd.Decimal{Form: apd.NaN})
	}
	return fromFloat64(math.Atan2(y.toFloat64(), x.toFloat64()))
}

// Pi returns the constant at float64 precision (about 16 significant
// digits), not the context's 34. Like the rest of this section it is
// sourced via float64 (math.Pi), not a native decimal
// series: apd carries no circular constant any more than it carries trig
// primitives.
func Pi() Decimal { return fromFloat64(math.Pi) }
