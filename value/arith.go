package value

import (
	"math/big"
	"time"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/cplx"
	"rpnengine/matrix"
	"rpnengine/number"
	"rpnengine/unit"
)

func bigFromInt64(v int64) *big.Int { return big.NewInt(v) }

// AngleMode selects which unit a bare (unit-less) Number's trig argument or
// result is expressed in: the engine's global DEG/RAD/GRAD setting.
type AngleMode = unit.Unit

func angleToRadians(n number.Number, mode AngleMode) number.Number {
	if mode.Equal(unit.Radians) {
		return n
	}
	return mode.ToUnit(n, unit.Radians)
}

func angleFromRadians(n number.Number, mode AngleMode) number.Number {
	if mode.Equal(unit.Radians) {
		return n
	}
	return unit.Radians.ToUnit(n, mode)
}

// scalarMul multiplies two scalar (non-vector/non-matrix) Values; the
// vector/matrix product cases live in Mul, which needs an *arena.Arena to
// walk their elements. Used as the element Mul supplied to
// matrix.ArithOps[Value], where every element is already guaranteed scalar.
func scalarMul(left, right Value) (Value, error) {
	switch left.kind {
	case KindNumber:
		switch right.kind {
		case KindNumber:
			return NumberValue(left.num.Mul(right.num)), nil
		case KindNumberWithUnit:
			return NumberWithUnitValue(left.num.Mul(right.num), right.unit), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Mul(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindNumberWithUnit:
		switch right.kind {
		case KindNumber:
			return NumberWithUnitValue(left.num.Mul(right.num), left.unit), nil
		case KindNumberWithUnit:
			cu := left.unit.Clone()
			combined := cu.Combine(left.num, right.unit)
			return NumberWithUnitValue(combined.Mul(right.num), cu), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Mul(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindComplex:
		switch right.kind {
		case KindNumber, KindNumberWithUnit:
			return CheckComplex(left.cplx.Mul(cplx.FromReal(right.num)))
		case KindComplex:
			return CheckComplex(left.cplx.Mul(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

// Add implements value+value for every scalar combination, plus a bare
// Number added to a Date/Time/DateTime (days or seconds, per variant).
// Vector/Matrix operands are not part of the Add surface: element-wise
// accumulation goes through Vector's own Sum, not operator-add on the
// container.
func Add(left, right Value) (Value, error) {
	switch left.kind {
	case KindNumber:
		switch right.kind {
		case KindNumber:
			return NumberValue(left.num.Add(right.num)), nil
		case KindNumberWithUnit:
			return NumberWithUnitValue(left.num.Add(right.num), right.unit), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Add(right.cplx))
		case KindDateTime:
			return addSecondsToTime(right, left.num, KindDateTime)
		case KindDate:
			return addDaysToTime(right, left.num)
		case KindTime:
			return addSecondsToTime(right, left.num, KindTime)
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindNumberWithUnit:
		switch right.kind {
		case KindNumber:
			return NumberWithUnitValue(left.num.Add(right.num), left.unit), nil
		case KindNumberWithUnit:
			coerced, ok := left.unit.CoerceToOther(left.num, right.unit)
			if !ok {
				return Value{}, calcerr.New(calcerr.IncompatibleUnits)
			}
			return NumberWithUnitValue(coerced.Add(right.num), right.unit), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Add(right.cplx))
		case KindDateTime, KindDate, KindTime:
			secs, err := coerceToTimeUnit(left, right.kind)
			if err != nil {
				return Value{}, err
			}
			if right.kind == KindDate {
				return addDaysToTime(right, secs)
			}
			return addSecondsToTime(right, secs, right.kind)
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindComplex:
		switch right.kind {
		case KindNumber, KindNumberWithUnit:
			return CheckComplex(left.cplx.Add(cplx.FromReal(right.num)))
		case KindComplex:
			return CheckComplex(left.cplx.Add(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindDateTime:
		return addTimeAndNumber(left, right, KindDateTime)
	case KindDate:
		if right.kind == KindTime {
			return combineDateTime(left, right), nil
		}
		return addTimeAndNumber(left, right, KindDate)
	case KindTime:
		if right.kind == KindDate {
			return combineDateTime(right, left), nil
		}
		return addTimeAndNumber(left, right, KindTime)
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

func addTimeAndNumber(t, num Value, kind Kind) (Value, error) {
	switch num.kind {
	case KindNumber:
		if kind == KindDate {
			return addDaysToTime(t, num.num)
		}
		return addSecondsToTime(t, num.num, kind)
	case KindNumberWithUnit:
		secs, err := coerceToTimeUnit(num, kind)
		if err != nil {
			return Value{}, err
		}
		if kind == KindDate {
			return addDaysToTime(t, secs)
		}
		return addSecondsToTime(t, secs, kind)
	case KindComplex:
		return Value{}, calcerr.New(calcerr.NotARealNumber)
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

func coerceToTimeUnit(v Value, kind Kind) (number.Number, error) {
	target := unit.SingleUnit(unit.Seconds)
	if kind == KindDate {
		target = unit.SingleUnit(unit.Days)
	}
	coerced, ok := v.unit.CoerceToOther(v.num, target)
	if !ok {
		return number.Number{}, calcerr.New(calcerr.IncompatibleUnits)
	}
	return coerced, nil
}

func combineDateTime(date, t Value) Value {
	d := date.t
	tm := t.t
	return DateTimeValue(time.Date(d.Year(), d.Month(), d.Day(), tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond(), d.Location()))
}

func addSecondsToTime(t Value, secs number.Number, kind Kind) (Value, error) {
	nanos := secs.Mul(number.FromInt64(1_000_000_000))
	n, err := nanos.Int()
	if err != nil {
		return Value{}, err
	}
	if !n.IsInt64() {
		return Value{}, calcerr.New(calcerr.ValueOutOfRange)
	}
	out := t.t.Add(time.Duration(n.Int64()) * time.Nanosecond)
	if kind == KindDateTime {
		return DateTimeValue(out), nil
	}
	return TimeValue(out), nil
}

func addDaysToTime(t Value, days number.Number) (Value, error) {
	n, err := days.Int()
	if err != nil {
		return Value{}, err
	}
	if !n.IsInt64() {
		return Value{}, calcerr.New(calcerr.ValueOutOfRange)
	}
	out := t.t.AddDate(0, 0, int(n.Int64()))
	return DateValue(out), nil
}

// Sub mirrors Add's scalar combinations, plus Date-Date/Time-Time/
// DateTime-DateTime yielding the elapsed Number of days or seconds between
// them (the one branch where a container produces a bare Number rather than
// another container).
func Sub(left, right Value) (Value, error) {
	switch {
	case left.kind == KindDate && right.kind == KindDate:
		days := int64(left.t.Sub(right.t).Hours() / 24)
		return NumberValue(number.FromInt64(days)), nil
	case left.kind == KindDateTime && right.kind == KindDateTime,
		left.kind == KindTime && right.kind == KindTime:
		nanos := left.t.Sub(right.t).Nanoseconds()
		return NumberValue(number.FromRational(bigFromInt64(nanos), bigFromInt64(1_000_000_000))), nil
	}
	negated, err := negateScalar(right)
	if err != nil {
		return Value{}, err
	}
	return Add(left, negated)
}

func negateScalar(v Value) (Value, error) {
	switch v.kind {
	case KindNumber:
		return NumberValue(v.num.Neg()), nil
	case KindNumberWithUnit:
		return NumberWithUnitValue(v.num.Neg(), v.unit), nil
	case KindComplex:
		return ComplexValue(v.cplx.Neg()), nil
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

// Mul implements value*value including the vector/matrix broadcast and
// product cases, which need an arena to walk each element.
func Mul(a *arena.Arena, left, right Value) (Value, error) {
	switch left.kind {
	case KindNumber, KindNumberWithUnit, KindComplex:
		switch right.kind {
		case KindVector:
			return mulScalarVector(a, left, right)
		case KindMatrix:
			return mulScalarMatrix(a, left, right)
		default:
			return scalarMul(left, right)
		}
	case KindVector:
		switch right.kind {
		case KindNumber, KindNumberWithUnit:
			return mulScalarVector(a, right, left)
		case KindVector:
			if left.vec.Len() != 1 || right.vec.Len() != 1 {
				return Value{}, calcerr.New(calcerr.DimensionMismatch)
			}
			le, err := left.vec.Get(a, 0)
			if err != nil {
				return Value{}, err
			}
			re, err := right.vec.Get(a, 0)
			if err != nil {
				return Value{}, err
			}
			prod, err := scalarMul(le, re)
			if err != nil {
				return Value{}, err
			}
			out := matrix.NewVector[Value](Decode)
			if err := out.Push(a, prod); err != nil {
				return Value{}, err
			}
			return VectorValue(out), nil
		case KindMatrix:
			if left.vec.Len() != right.mat.Rows() {
				return Value{}, calcerr.New(calcerr.DimensionMismatch)
			}
			transposed := right.mat.Transpose(a)
			out, err := transposed.MulVector(a, left.vec, elementOps)
			transposed.Release(a)
			if err != nil {
				return Value{}, err
			}
			return VectorValue(out), nil
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindMatrix:
		switch right.kind {
		case KindNumber, KindNumberWithUnit:
			return mulScalarMatrix(a, right, left)
		case KindMatrix:
			out, err := left.mat.Mul(a, right.mat, elementOps)
			if err != nil {
				return Value{}, err
			}
			return MatrixValue(out), nil
		case KindVector:
			if left.mat.Cols() != 1 {
				return Value{}, calcerr.New(calcerr.DimensionMismatch)
			}
			rows, cols := left.mat.Rows(), right.vec.Len()
			out, err := matrix.NewMatrix[Value](a, rows, cols, Decode, NumberValue(number.Zero()))
			if err != nil {
				return Value{}, err
			}
			for row := 0; row < rows; row++ {
				lv, err := left.mat.Get(a, row, 0)
				if err != nil {
					return Value{}, err
				}
				for col := 0; col < cols; col++ {
					rv, err := right.vec.Get(a, col)
					if err != nil {
						return Value{}, err
					}
					prod, err := scalarMul(lv, rv)
					if err != nil {
						return Value{}, err
					}
					if err := out.Set(a, row, col, prod, Value.IsVectorOrMatrix); err != nil {
						return Value{}, err
					}
				}
			}
			return MatrixValue(out), nil
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

func mulScalarVector(a *arena.Arena, scalar, v Value) (Value, error) {
	out := matrix.NewVector[Value](Decode)
	for i := 0; i < v.vec.Len(); i++ {
		e, err := v.vec.Get(a, i)
		if err != nil {
			return Value{}, err
		}
		prod, err := scalarMul(scalar, e)
		if err != nil {
			return Value{}, err
		}
		if err := out.Push(a, prod); err != nil {
			return Value{}, err
		}
	}
	return VectorValue(out), nil
}

func mulScalarMatrix(a *arena.Arena, scalar, m Value) (Value, error) {
	out, err := matrix.NewMatrix[Value](a, m.mat.Rows(), m.mat.Cols(), Decode, NumberValue(number.Zero()))
	if err != nil {
		return Value{}, err
	}
	for row := 0; row < m.mat.Rows(); row++ {
		for col := 0; col < m.mat.Cols(); col++ {
			e, err := m.mat.Get(a, row, col)
			if err != nil {
				return Value{}, err
			}
			prod, err := scalarMul(scalar, e)
			if err != nil {
				return Value{}, err
			}
			if err := out.Set(a, row, col, prod, Value.IsVectorOrMatrix); err != nil {
				return Value{}, err
			}
		}
	}
	return MatrixValue(out), nil
}

// Div implements value/value for scalar pairs and vector-or-matrix divided
// by a scalar; dividing by a vector or matrix is not supported.
func Div(a *arena.Arena, left, right Value) (Value, error) {
	switch left.kind {
	case KindNumber:
		switch right.kind {
		case KindNumber:
			return NumberValue(left.num.Div(right.num)), nil
		case KindNumberWithUnit:
			return NumberWithUnitValue(left.num.Div(right.num), right.unit.Inverse()), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Div(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindNumberWithUnit:
		switch right.kind {
		case KindNumber:
			return NumberWithUnitValue(left.num.Div(right.num), left.unit), nil
		case KindNumberWithUnit:
			cu := left.unit.Clone()
			combined := cu.Combine(left.num, right.unit.Inverse())
			return NumberWithUnitValue(combined.Div(right.num), cu), nil
		case KindComplex:
			return CheckComplex(cplx.FromReal(left.num).Div(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindComplex:
		switch right.kind {
		case KindNumber, KindNumberWithUnit:
			return CheckComplex(left.cplx.Div(cplx.FromReal(right.num)))
		case KindComplex:
			return CheckComplex(left.cplx.Div(right.cplx))
		default:
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
	case KindVector:
		if right.kind != KindNumber && right.kind != KindNumberWithUnit {
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
		out := matrix.NewVector[Value](Decode)
		for i := 0; i < left.vec.Len(); i++ {
			e, err := left.vec.Get(a, i)
			if err != nil {
				return Value{}, err
			}
			quot, err := Div(a, e, right)
			if err != nil {
				return Value{}, err
			}
			if err := out.Push(a, quot); err != nil {
				return Value{}, err
			}
		}
		return VectorValue(out), nil
	case KindMatrix:
		if right.kind != KindNumber && right.kind != KindNumberWithUnit {
			return Value{}, calcerr.New(calcerr.DataTypeMismatch)
		}
		out, err := matrix.NewMatrix[Value](a, left.mat.Rows(), left.mat.Cols(), Decode, NumberValue(number.Zero()))
		if err != nil {
			return Value{}, err
		}
		for row := 0; row < left.mat.Rows(); row++ {
			for col := 0; col < left.mat.Cols(); col++ {
				e, err := left.mat.Get(a, row, col)
				if err != nil {
					return Value{}, err
				}
				quot, err := Div(a, e, right)
				if err != nil {
					return Value{}, err
				}
				if err := out.Set(a, row, col, quot, Value.IsVectorOrMatrix); err != nil {
					return Value{}, err
				}
			}
		}
		return MatrixValue(out), nil
	default:
		return Value{}, calcerr.New(calcerr.DataTypeMismatch)
	}
}

// Neg computes -v, elementwise for Vector/Matrix.
func Neg(a *arena.Arena, v Value) (Value, error) {
	switch v.kind {
	case KindVector:
		out := matrix.NewVector[Value](Decode)
		for i := 0; i < v.vec.Len(); i++ {
			e, err := v.vec.Get(a, i)
			if err != nil {
				return Value{}, err
			}
			ne, err := negateScalar(e)
			if err != nil {
				return Value{}, err
			}
			if err := out.Push(a, ne); err != nil {
				return Value{}, err
			}
		}
		return VectorValue(out), nil
	case KindMatrix:
		out, err := matrix.NewMatrix[Value](a, v.mat.Rows(), v.mat.Cols(), Decode, NumberValue(number.Zero()))
		if err != nil {
			return Value{}, err
		}
		for row := 0; row < v.mat.Rows(); row++ {
			for col := 0; col < v.mat.Cols(); col++ {
				e, err := v.mat.Get(a, row, col)
				if err != nil {
					return Value{}, err
				}
				ne, err := negateScalar(e)
				if err != nil {
					return Value{}, err
				}
				if err := out.Set(a, row, col, ne, Value.IsVectorOrMatrix); err != nil {
					return Value{}, err
				}
			}
		}
		return MatrixValue(out), nil
	default:
		return negateScalar(v)
	}
}

// Pow computes v^power, routing through complex arithmetic whenever either
// operand is already complex.
func (v Value) Pow(power Value) (Value, error) {
	if v.kind == KindComplex {
		p, err := power.ComplexNumber()
		if err != nil {
			return Value{}, err
		}
		return CheckComplex(v.cplx.Pow(p))
	}
	if power.kind == KindComplex {
		c, err := v.ComplexNumber()
		if err != nil {
			return Value{}, err
		}
		return CheckComplex(c.Pow(power.cplx))
	}
	left, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	right, err := power.RealNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(left.Pow(right)), nil
}

// Sqrt computes the square root, promoting to Complex for a negative real
// operand.
func (v Value) Sqrt() (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Sqrt())
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	if n.IsNegative() {
		return CheckComplex(cplx.FromReal(n).Sqrt())
	}
	return NumberValue(n.Sqrt()), nil
}

func (v Value) Ln() (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Ln())
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	if n.IsNegative() {
		return CheckComplex(cplx.FromReal(n).Ln())
	}
	return NumberValue(n.Ln()), nil
}

func (v Value) Log() (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Log())
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	if n.IsNegative() {
		c, err := v.ComplexNumber()
		if err != nil {
			return Value{}, err
		}
		return CheckComplex(c.Log())
	}
	return NumberValue(n.Log10()), nil
}

func (v Value) Exp() (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Exp())
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(n.Exp()), nil
}

func (v Value) Exp10() (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Exp10())
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(n.Exp10()), nil
}

func (v Value) trigArg(mode AngleMode) (number.Number, error) {
	if v.kind == KindNumberWithUnit {
		if converted, ok := v.unit.ConvertSingleUnit(v.num, unit.Radians); ok {
			return converted, nil
		}
	}
	n, err := v.RealNumber()
	if err != nil {
		return number.Number{}, err
	}
	return angleToRadians(n, mode), nil
}

// Sin/Cos/Tan take the global angle mode so a bare Number is interpreted in
// degrees/radians/gradians as configured, while a NumberWithUnit value in
// the Angle category is converted directly regardless of the global mode.
func (v Value) Sin(mode AngleMode) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Sin())
	}
	arg, err := v.trigArg(mode)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(arg.Sin()), nil
}

func (v Value) Cos(mode AngleMode) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Cos())
	}
	arg, err := v.trigArg(mode)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(arg.Cos()), nil
}

func (v Value) Tan(mode AngleMode) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(v.cplx.Tan())
	}
	arg, err := v.trigArg(mode)
	if err != nil {
		return Value{}, err
	}
	return NumberValue(arg.Tan()), nil
}

// realUnary applies a real-only function to the underlying Number; erf,
// gamma and the base-2 pair have no complex fallback.
func (v Value) realUnary(fn func(number.Number) number.Number) (Value, error) {
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(fn(n)), nil
}

func (v Value) Erf() (Value, error)     { return v.realUnary(number.Number.Erf) }
func (v Value) Erfc() (Value, error)    { return v.realUnary(number.Number.Erfc) }
func (v Value) Gamma() (Value, error)   { return v.realUnary(number.Number.Tgamma) }
func (v Value) LnGamma() (Value, error) { return v.realUnary(number.Number.Lgamma) }
func (v Value) Log2() (Value, error)    { return v.realUnary(number.Number.Log2) }
func (v Value) Exp2() (Value, error)    { return v.realUnary(number.Number.Exp2) }

func (v Value) inverseTrig(mode AngleMode, real func(number.Number) number.Number, cplxFn func(cplx.Complex) cplx.Complex) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(cplxFn(v.cplx))
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	result := real(n)
	if result.IsNaN() {
		c, err := v.ComplexNumber()
		if err != nil {
			return Value{}, err
		}
		return CheckComplex(cplxFn(c))
	}
	return NumberValue(angleFromRadians(result, mode)), nil
}

func (v Value) Asin(mode AngleMode) (Value, error) {
	return v.inverseTrig(mode, number.Number.Asin, cplx.Complex.Asin)
}
func (v Value) Acos(mode AngleMode) (Value, error) {
	return v.inverseTrig(mode, number.Number.Acos, cplx.Complex.Acos)
}
func (v Value) Atan(mode AngleMode) (Value, error) {
	return v.inverseTrig(mode, number.Number.Atan, cplx.Complex.Atan)
}

func (v Value) hyperbolic(forward func(number.Number) number.Number, cplxFn func(cplx.Complex) cplx.Complex) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(cplxFn(v.cplx))
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	return NumberValue(forward(n)), nil
}

func (v Value) Sinh() (Value, error) { return v.hyperbolic(number.Number.Sinh, cplx.Complex.Sinh) }
func (v Value) Cosh() (Value, error) { return v.hyperbolic(number.Number.Cosh, cplx.Complex.Cosh) }
func (v Value) Tanh() (Value, error) { return v.hyperbolic(number.Number.Tanh, cplx.Complex.Tanh) }

func (v Value) inverseHyperbolic(forward func(number.Number) number.Number, cplxFn func(cplx.Complex) cplx.Complex) (Value, error) {
	if v.kind == KindComplex {
		return CheckComplex(cplxFn(v.cplx))
	}
	n, err := v.RealNumber()
	if err != nil {
		return Value{}, err
	}
	result := forward(n)
	if result.IsNaN() {
		c, err := v.ComplexNumber()
		if err != nil {
			return Value{}, err
		}
		return CheckComplex(cplxFn(c))
	}
	return NumberValue(result), nil
}

func (v Value) Asinh() (Value, error) {
	return v.inverseHyperbolic(number.Number.Asinh, cplx.Complex.Asinh)
}
func (v Value) Acosh() (Value, error) {
	return v.inverseHyperbolic(number.Number.Acosh, cplx.Complex.Acosh)
}
func (v Value) Atanh() (Value, error) {
	return v.inverseHyperbolic(number.Number.Atanh, cplx.Complex.Atanh)
}
