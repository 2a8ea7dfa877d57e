// Package cplx implements the engine's complex-number type: a (real,
// imaginary) pair of number.Number values with stable-form arithmetic and
// transcendentals built from the identities over the real operations.
package cplx

import (
	"rpnengine/number"
	"rpnengine/storage"
)

// MaxIntegerBits/MaxDenominatorBits bound each component's exact-integer
// representation before it's demoted to Decimal, tighter than number's own
// defaults because a complex pair doubles the representable state.
const (
	MaxIntegerBits    = 1024
	MaxDenominatorBits = 128
)

// Complex is an (real, imaginary) pair of Numbers.
type Complex struct {
	Real      number.Number
	Imaginary number.Number
}

func checkBounds(n number.Number) number.Number {
	return number.CheckIntBoundsWithBitCount(n, MaxIntegerBits, MaxDenominatorBits)
}

// FromReal builds a complex value with a zero imaginary part.
func FromReal(real number.Number) Complex {
	return Complex{Real: checkBounds(real), Imaginary: number.Zero()}
}

// FromParts builds a complex value from explicit real and imaginary parts.
func FromParts(real, imaginary number.Number) Complex {
	return Complex{Real: checkBounds(real), Imaginary: checkBounds(imaginary)}
}

// I is the imaginary unit.
func I() Complex { return Complex{Real: number.Zero(), Imaginary: number.FromInt64(1)} }

// NegI is the negative imaginary unit.
func NegI() Complex { return Complex{Real: number.Zero(), Imaginary: number.FromInt64(-1)} }

// IsReal reports whether the imaginary part is exactly zero.
func (c Complex) IsReal() bool { return c.Imaginary.IsZero() }

// IsOutOfRange reports whether either component overflowed to an infinite or
// NaN Decimal.
func (c Complex) IsOutOfRange() bool {
	return c.Real.IsInfinite() || c.Real.IsNaN() || c.Imaginary.IsInfinite() || c.Imaginary.IsNaN()
}

// Magnitude computes sqrt(real^2 + imaginary^2).
func (c Complex) Magnitude() number.Number {
	return c.Real.Mul(c.Real).Add(c.Imaginary.Mul(c.Imaginary)).Sqrt()
}

// PolarAngle computes the angle in radians, normalized to [0, 2*pi).
func (c Complex) PolarAngle() number.Number {
	if c.Real.IsZero() && c.Imaginary.IsZero() {
		return number.Zero()
	}
	angle := number.Atan2(c.Imaginary, c.Real)
	if angle.IsNegative() {
		twoPi := number.Pi().Mul(number.FromInt64(2))
		angle = angle.Add(twoPi)
	}
	return angle
}

// Sqrt computes the principal square root via the numerically stable
// half-angle form (rather than polar round-tripping through angle and back,
// which loses precision near the branch cut).
func (c Complex) Sqrt() Complex {
	magnitude := c.Magnitude()
	two := number.FromInt64(2)
	realSquared := c.Real.Add(magnitude).Div(two)
	imaginarySquared := magnitude.Sub(c.Real).Div(two)
	if realSquared.IsNegative() {
		realSquared = number.Zero()
	}
	if imaginarySquared.IsNegative() {
		imaginarySquared = number.Zero()
	}
	imaginary := imaginarySquared.Sqrt()
	if c.Imaginary.IsNegative() {
		imaginary = imaginary.Neg()
	}
	return Complex{Real: checkBounds(realSquared.Sqrt()), Imaginary: checkBounds(imaginary)}
}

func (c Complex) Exp() Complex {
	realExp := c.Real.Exp()
	return Complex{Real: realExp.Mul(c.Imaginary.Cos()), Imaginary: realExp.Mul(c.Imaginary.Sin())}
}

func (c Complex) Ln() Complex {
	return Complex{Real: c.Magnitude().Ln(), Imaginary: c.PolarAngle()}
}

func (c Complex) Exp10() Complex { return FromReal(number.FromInt64(10)).Pow(c) }

func (c Complex) Log() Complex {
	return c.Ln().Div(FromReal(number.FromInt64(10).Ln()))
}

func (c Complex) Pow(power Complex) Complex { return power.Mul(c.Ln()).Exp() }

func (c Complex) Sin() Complex {
	return Complex{
		Real:      c.Real.Sin().Mul(c.Imaginary.Cosh()),
		Imaginary: c.Real.Cos().Mul(c.Imaginary.Sinh()),
	}
}

func (c Complex) Cos() Complex {
	return Complex{
		Real:      c.Real.Cos().Mul(c.Imaginary.Cosh()),
		Imaginary: c.Real.Sin().Neg().Mul(c.Imaginary.Sinh()),
	}
}

func (c Complex) Tan() Complex { return c.Sin().Div(c.Cos()) }

func (c Complex) Asin() Complex {
	one := FromReal(number.FromInt64(1))
	inner := one.Sub(c.Mul(c)).Sqrt().Add(I().Mul(c)).Ln()
	return FromParts(number.Zero(), number.FromInt64(-1)).Mul(inner)
}

func (c Complex) Acos() Complex {
	one := FromReal(number.FromInt64(1))
	inner := I().Mul(one.Sub(c.Mul(c)).Sqrt()).Add(c).Ln()
	return NegI().Mul(inner)
}

func (c Complex) Atan() Complex {
	inner := I().Sub(c).Div(I().Add(c)).Ln()
	coeff := FromParts(number.Zero(), number.FromInt64(-1).Div(number.FromInt64(2)))
	return coeff.Mul(inner)
}

func (c Complex) Sinh() Complex {
	two := FromReal(number.FromInt64(2))
	negTwo := FromReal(number.FromInt64(-2))
	one := FromReal(number.FromInt64(1))
	return one.Sub(negTwo.Mul(c).Exp()).Div(two.Mul(c.Neg().Exp()))
}

func (c Complex) Cosh() Complex {
	two := FromReal(number.FromInt64(2))
	negTwo := FromReal(number.FromInt64(-2))
	one := FromReal(number.FromInt64(1))
	return one.Add(negTwo.Mul(c).Exp()).Div(two.Mul(c.Neg().Exp()))
}

func (c Complex) Tanh() Complex {
	two := FromReal(number.FromInt64(2))
	one := FromReal(number.FromInt64(1))
	e2x := two.Mul(c).Exp()
	return e2x.Sub(one).Div(e2x.Add(one))
}

func (c Complex) Asinh() Complex {
	one := FromReal(number.FromInt64(1))
	return c.Add(c.Mul(c).Add(one).Sqrt()).Ln()
}

func (c Complex) Acosh() Complex {
	one := FromReal(number.FromInt64(1))
	return c.Add(c.Mul(c).Sub(one).Sqrt()).Ln()
}

func (c Complex) Atanh() Complex {
	one := FromReal(number.FromInt64(1))
	two := FromReal(number.FromInt64(2))
	return one.Add(c).Div(one.Sub(c)).Ln().Div(two)
}

func (c Complex) Add(o Complex) Complex {
	return Complex{Real: checkBounds(c.Real.Add(o.Real)), Imaginary: checkBounds(c.Imaginary.Add(o.Imaginary))}
}

func (c Complex) Sub(o Complex) Complex {
	return Complex{Real: checkBounds(c.Real.Sub(o.Real)), Imaginary: checkBounds(c.Imaginary.Sub(o.Imaginary))}
}

func (c Complex) Mul(o Complex) Complex {
	return Complex{
		Real:      checkBounds(c.Real.Mul(o.Real).Sub(c.Imaginary.Mul(o.Imaginary))),
		Imaginary: checkBounds(c.Real.Mul(o.Imaginary).Add(c.Imaginary.Mul(o.Real))),
	}
}

func (c Complex) Div(o Complex) Complex {
	divisor := o.Real.Mul(o.Real).Add(o.Imaginary.Mul(o.Imaginary))
	return Complex{
		Real:      checkBounds(c.Real.Mul(o.Real).Add(c.Imaginary.Mul(o.Imaginary)).Div(divisor)),
		Imaginary: checkBounds(c.Imaginary.Mul(o.Real).Sub(c.Real.Mul(o.Imaginary)).Div(divisor)),
	}
}

func (c Complex) Neg() Complex {
	return FromReal(number.Zero()).Sub(c)
}

func (c Complex) String() string {
	if c.Imaginary.IsNegative() {
		return c.Real.String() + " - " + c.Imaginary.Neg().String() + "i"
	}
	return c.Real.String() + " + " + c.Imaginary.String() + "i"
}

// ---- Serialization (arena/storage.Object) ----

func (c Complex) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	if err := c.Real.Serialize(out, refs); err != nil {
		return err
	}
	return c.Imaginary.Serialize(out, refs)
}

// Decode reconstructs a Complex from its serialized body.
func Decode(in *storage.Reader, refs storage.RefVisitor) (Complex, error) {
	real, err := number.Decode(in, refs)
	if err != nil {
		return Complex{}, err
	}
	imaginary, err := number.Decode(in, refs)
	if err != nil {
		return Complex{}, err
	}
	return Complex{Real: real, Imaginary: imaginary}, nil
}
