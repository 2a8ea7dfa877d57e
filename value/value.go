// Package value implements the engine's dynamically-typed stack cell,
// Value: the tagged union of every kind of data the calculator can hold,
// and the cross-variant arithmetic (a bare number added to a date is days
// or seconds depending on the date variant, a number-with-unit combines its
// unit algebra before the underlying number is touched, and so on).
// Date/Time/DateTime variants wrap the standard library's time.Time.
package value

import (
	"time"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/cplx"
	"rpnengine/matrix"
	"rpnengine/number"
	"rpnengine/storage"
	"rpnengine/unit"
)

// Kind identifies which variant a Value currently holds.
type Kind uint8

const (
	KindNumber Kind = iota
	KindNumberWithUnit
	KindComplex
	KindDate
	KindTime
	KindDateTime
	KindVector
	KindMatrix
)

// Value is the tagged union backing every stack entry, memory location, and
// vector/matrix element in the engine.
type Value struct {
	kind Kind
	num  number.Number
	unit unit.CompositeUnit
	cplx cplx.Complex
	t    time.Time
	vec  matrix.Vector[Value]
	mat  matrix.Matrix[Value]
}

// Vector and Matrix are this package's instantiations of the generic
// element-sequence types in package matrix; they exist purely to give
// package calc/undo a name to spell without repeating the type parameter.
type Vector = matrix.Vector[Value]
type Matrix = matrix.Matrix[Value]

// NumberValue wraps a bare Number.
func NumberValue(n number.Number) Value { return Value{kind: KindNumber, num: n} }

// NumberWithUnitValue wraps a Number carrying a composite unit.
func NumberWithUnitValue(n number.Number, u unit.CompositeUnit) Value {
	if u.Unitless() {
		return NumberValue(n)
	}
	return Value{kind: KindNumberWithUnit, num: n, unit: u}
}

// ComplexValue wraps a complex pair.
func ComplexValue(c cplx.Complex) Value { return Value{kind: KindComplex, cplx: c} }

// DateValue wraps a calendar date (the time-of-day component is ignored).
func DateValue(t time.Time) Value { return Value{kind: KindDate, t: t} }

// TimeValue wraps a time of day (the calendar-date component is ignored).
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t} }

// DateTimeValue wraps a full date and time.
func DateTimeValue(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// VectorValue wraps a Vector.
func VectorValue(v Vector) Value { return Value{kind: KindVector, vec: v} }

// MatrixValue wraps a Matrix.
func MatrixValue(m Matrix) Value { return Value{kind: KindMatrix, mat: m} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsVectorOrMatrix reports whether v is a Vector or Matrix, used to reject
// nesting one as an element of another.
func (v Value) IsVectorOrMatrix() bool { return v.kind == KindVector || v.kind == KindMatrix }

// AsVector extracts the underlying Vector, erroring for every other variant.
func (v Value) AsVector() (Vector, error) {
	if v.kind != KindVector {
		return Vector{}, calcerr.New(calcerr.DataTypeMismatch)
	}
	return v.vec, nil
}

// AsMatrix extracts the underlying Matrix, erroring for every other variant.
func (v Value) AsMatrix() (Matrix, error) {
	if v.kind != KindMatrix {
		return Matrix{}, calcerr.New(calcerr.DataTypeMismatch)
	}
	return v.mat, nil
}

// AsComplex extracts the underlying cplx.Complex, erroring for every other
// variant.
func (v Value) AsComplex() (cplx.Complex, error) {
	if v.kind != KindComplex {
		return cplx.Complex{}, calcerr.New(calcerr.DataTypeMismatch)
	}
	return v.cplx, nil
}

// RealNumber extracts the underlying Number from Number/NumberWithUnit,
// erroring for every other variant.
func (v Value) RealNumber() (number.Number, error) {
	switch v.kind {
	case KindNumber, KindNumberWithUnit:
		return v.num, nil
	default:
		return number.Number{}, calcerr.New(calcerr.NotARealNumber)
	}
}

// ComplexNumber promotes v to a Complex, treating a real Number/
// NumberWithUnit as having a zero imaginary part.
func (v Value) ComplexNumber() (cplx.Complex, error) {
	switch v.kind {
	case KindNumber, KindNumberWithUnit:
		return cplx.FromReal(v.num), nil
	case KindComplex:
		return v.cplx, nil
	default:
		return cplx.Complex{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

// ToInt truncates the underlying real number to an integer.
func (v Value) ToInt() (number.Number, error) {
	n, err := v.RealNumber()
	if err != nil {
		return number.Number{}, err
	}
	i, err := n.Int()
	if err != nil {
		return number.Number{}, err
	}
	return number.FromBigInt(i), nil
}

// Unit returns the composite unit attached to a NumberWithUnit value (the
// empty composite for every other variant).
func (v Value) Unit() unit.CompositeUnit {
	if v.kind == KindNumberWithUnit {
		return v.unit
	}
	return unit.New()
}

// Time returns the wrapped time.Time for Date/Time/DateTime variants.
func (v Value) Time() (time.Time, error) {
	switch v.kind {
	case KindDate, KindTime, KindDateTime:
		return v.t, nil
	default:
		return time.Time{}, calcerr.New(calcerr.InvalidDate)
	}
}

// String renders a short diagnostic form; full display-context-aware
// formatting lives in package calc's Format type.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.num.String()
	case KindNumberWithUnit:
		return v.num.String()
	case KindComplex:
		return v.cplx.String()
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05")
	case KindVector:
		return "vector[" + itoa(v.vec.Len()) + "]"
	case KindMatrix:
		return "matrix[" + itoa(v.mat.Rows()) + "x" + itoa(v.mat.Cols()) + "]"
	default:
		return "?"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

// CheckComplex collapses a Complex result back to a plain Number when its
// imaginary part is exactly zero, and rejects one that overflowed to an
// infinite or NaN component. Every complex-producing operation runs its
// result through here before it reaches the stack.
func CheckComplex(c cplx.Complex) (Value, error) {
	if c.IsOutOfRange() {
		return Value{}, calcerr.New(calcerr.ValueOutOfRange)
	}
	if c.IsReal() {
		return NumberValue(c.Real), nil
	}
	return ComplexValue(c), nil
}

// AddUnit folds u into v's composite unit at power +1.
func (v Value) AddUnit(u unit.Unit) (Value, error) {
	switch v.kind {
	case KindNumber:
		return NumberWithUnitValue(v.num, unit.SingleUnit(u)), nil
	case KindNumberWithUnit:
		cu := v.unit.Clone()
		n := cu.AddUnit(v.num, u)
		return NumberWithUnitValue(n, cu), nil
	default:
		return Value{}, calcerr.New(calcerr.NotARealNumber)
	}
}

// AddUnitInv folds u into v's composite unit at power -1.
func (v Value) AddUnitInv(u unit.Unit) (Value, error) {
	switch v.kind {
	case KindNumber:
		return NumberWithUnitValue(v.num, unit.SingleUnitInv(u)), nil
	case KindNumberWithUnit:
		cu := v.unit.Clone()
		n := cu.AddUnitInv(v.num, u)
		return NumberWithUnitValue(n, cu), nil
	default:
		return Value{}, calcerr.New(calcerr.NotARealNumber)
	}
}

// ConvertSingleUnit converts v's component in target's category to target.
func (v Value) ConvertSingleUnit(target unit.Unit) (Value, error) {
	switch v.kind {
	case KindNumberWithUnit:
		cu := v.unit.Clone()
		n, ok := cu.ConvertSingleUnit(v.num, target)
		if !ok {
			return Value{}, calcerr.New(calcerr.IncompatibleUnits)
		}
		return NumberWithUnitValue(n, cu), nil
	case KindNumber:
		return Value{}, calcerr.New(calcerr.IncompatibleUnits)
	default:
		return Value{}, calcerr.New(calcerr.NotARealNumber)
	}
}

// DeepCopyValues pulls a Vector/Matrix value's elements out of the
// reclaimable arena class; a no-op for every scalar variant.
func (v *Value) DeepCopyValues(a *arena.Arena) error {
	switch v.kind {
	case KindVector:
		return v.vec.DeepCopyValues(a)
	case KindMatrix:
		return v.mat.DeepCopyValues(a)
	default:
		return nil
	}
}

// Release implements arena.Releasable: Vector/Matrix variants hold element
// handles that must be dropped when the containing handle is freed.
func (v Value) Release(a *arena.Arena) {
	switch v.kind {
	case KindVector:
		v.vec.Release(a)
	case KindMatrix:
		v.mat.Release(a)
	}
}

var elementOps = matrix.ArithOps[Value]{
	Add:  Add,
	Mul:  scalarMul,
	Sqrt: func(v Value) (Value, error) { return v.Sqrt() },
	Zero: func() Value { return NumberValue(number.Zero()) },
}

// ElementOps exposes the scalar arithmetic bundle matrix.Vector and
// matrix.Matrix reductions need, for callers outside this package that
// can't see the unexported elementOps var directly.
func ElementOps() matrix.ArithOps[Value] { return elementOps }

// ---- Serialization (arena/storage.Object) ----

func (v Value) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	out.WriteU8(uint8(v.kind))
	switch v.kind {
	case KindNumber:
		return v.num.Serialize(out, refs)
	case KindNumberWithUnit:
		if err := v.num.Serialize(out, refs); err != nil {
			return err
		}
		return v.unit.Serialize(out, refs)
	case KindComplex:
		return v.cplx.Serialize(out, refs)
	case KindDate, KindTime, KindDateTime:
		out.WriteI32(int32(v.t.Year()))
		out.WriteU8(uint8(v.t.Month()))
		out.WriteU8(uint8(v.t.Day()))
		out.WriteU8(uint8(v.t.Hour()))
		out.WriteU8(uint8(v.t.Minute()))
		out.WriteU8(uint8(v.t.Second()))
		out.WriteU32(uint32(v.t.Nanosecond()))
		return nil
	case KindVector:
		return v.vec.Serialize(out, refs)
	case KindMatrix:
		return v.mat.Serialize(out, refs)
	default:
		return calcerr.New(calcerr.CorruptData)
	}
}

// Decode reconstructs a Value from its serialized body. It is also the
// arena.Decoder passed down into Vector/Matrix element decoding, closing
// the recursive loop between Value and its own aggregate variants.
func Decode(in *storage.Reader, refs storage.RefVisitor) (Value, error) {
	kindByte, err := in.ReadU8()
	if err != nil {
		return Value{}, err
	}
	switch Kind(kindByte) {
	case KindNumber:
		n, err := number.Decode(in, refs)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case KindNumberWithUnit:
		n, err := number.Decode(in, refs)
		if err != nil {
			return Value{}, err
		}
		u, err := unit.Decode(in, refs)
		if err != nil {
			return Value{}, err
		}
		return NumberWithUnitValue(n, u), nil
	case KindComplex:
		c, err := cplx.Decode(in, refs)
		if err != nil {
			return Value{}, err
		}
		return ComplexValue(c), nil
	case KindDate, KindTime, KindDateTime:
		year, err := in.ReadI32()
		if err != nil {
			return Value{}, err
		}
		month, err := in.ReadU8()
		if err != nil {
			return Value{}, err
		}
		day, err := in.ReadU8()
		if err != nil {
			return Value{}, err
		}
		hour, err := in.ReadU8()
		if err != nil {
			return Value{}, err
		}
		minute, err := in.ReadU8()
		if err != nil {
			return Value{}, err
		}
		sec, err := in.ReadU8()
		if err != nil {
			return Value{}, err
		}
		nanos, err := in.ReadU32()
		if err != nil {
			return Value{}, err
		}
		t := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(sec), int(nanos), time.UTC)
		switch Kind(kindByte) {
		case KindDate:
			return DateValue(t), nil
		case KindTime:
			return TimeValue(t), nil
		default:
			return DateTimeValue(t), nil
		}
	case KindVector:
		vec, err := matrix.DecodeVector[Value](Decode)(in, refs)
		if err != nil {
			return Value{}, err
		}
		return VectorValue(vec), nil
	case KindMatrix:
		mat, err := matrix.DecodeMatrix[Value](Decode)(in, refs)
		if err != nil {
			return Value{}, err
		}
		return MatrixValue(mat), nil
	default:
		return Value{}, calcerr.New(calcerr.CorruptData)
	}
}
