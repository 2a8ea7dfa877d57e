// Package number implements the engine's tagged numeric tower: exact
// arbitrary-precision integers and rationals that transparently fall back
// to the decimal type once they grow past a fixed bit budget. Arithmetic
// dispatches on the pair of kinds; any Decimal operand lowers both sides
// to Decimal, everything else stays exact.
package number

import (
	"math/big"
	"strconv"

	"rpnengine/calcerr"
	"rpnengine/decimal"
	"rpnengine/storage"
)

// MaxIntegerBits is the largest integer magnitude kept exact before it is
// demoted to Decimal.
const MaxIntegerBits = 8192

// MaxIntegerExponent bounds to_int's decimal-to-integer conversion, matching
// MaxIntegerBits in magnitude (log10(2^8192) ~= 2466).
const MaxIntegerExponent = 2466

// MaxDenominatorBits is the largest rational denominator kept exact.
const MaxDenominatorBits = 128

// MaxNumeratorBits is the largest rational numerator kept exact.
const MaxNumeratorBits = MaxIntegerBits + MaxDenominatorBits

type kind uint8

const (
	kindInteger kind = iota
	kindRational
	kindDecimal
)

// Number is the tagged union of Integer, Rational and Decimal. The zero
// value is not valid; use Zero or one of the From* constructors.
type Number struct {
	k     kind
	i     *big.Int // Integer value, or Rational numerator (any sign)
	denom *big.Int // Rational denominator (always > 0); nil otherwise
	d     decimal.Decimal
}

// Zero returns the exact integer 0.
func Zero() Number { return FromInt64(0) }

// FromInt64 builds an exact Integer.
func FromInt64(v int64) Number {
	return Number{k: kindInteger, i: big.NewInt(v)}
}

// FromBigInt builds an exact Integer, bounds-checked.
func FromBigInt(v *big.Int) Number {
	return checkIntBounds(Number{k: kindInteger, i: new(big.Int).Set(v)})
}

// FromRational builds a Rational from an integer numerator (any sign) and a
// positive denominator, reduced to lowest terms and bounds-checked. denom
// must be non-zero; a zero denominator is a programmer error, not a user one
// (callers route user-facing division through Div, which handles /0).
func FromRational(num, denom *big.Int) Number {
	n := new(big.Int).Set(num)
	d := new(big.Int).Set(denom)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	return simplify(Number{k: kindRational, i: n, denom: d})
}

// FromDecimal wraps a Decimal value as a Number.
func FromDecimal(d decimal.Decimal) Number {
	return Number{k: kindDecimal, d: d}
}

func (n Number) isInteger() bool  { return n.k == kindInteger }
func (n Number) IsRational() bool { return n.k == kindRational }
func (n Number) IsDecimal() bool  { return n.k == kindDecimal }

// AsInt returns the exact underlying integer for an Integer-kind Number
// without any rounding or truncation, and false for every other kind. Used
// by package calc's formatter, which needs to tell an exact integer from a
// value merely convertible to one.
func (n Number) AsInt() (*big.Int, bool) {
	if n.k != kindInteger {
		return nil, false
	}
	return new(big.Int).Set(n.i), true
}

// IsZero reports whether the value is exactly zero.
func (n Number) IsZero() bool {
	switch n.k {
	case kindInteger, kindRational:
		return n.i.Sign() == 0
	default:
		return n.d.IsZero()
	}
}

// IsNegative reports whether the value is strictly less than zero.
func (n Number) IsNegative() bool {
	switch n.k {
	case kindInteger, kindRational:
		return n.i.Sign() < 0
	default:
		return n.d.Sign() < 0
	}
}

// IsInfinite reports whether the value is a Decimal holding ±Infinity.
func (n Number) IsInfinite() bool { return n.k == kindDecimal && n.d.IsInf() }

// IsNaN reports whether the value is a Decimal holding NaN.
func (n Number) IsNaN() bool { return n.k == kindDecimal && n.d.IsNaN() }

// bigIntToDecimal converts an exact integer to Decimal through its decimal
// text; the underlying decimal coefficient is itself arbitrary precision,
// so the construction is exact up to the context's rounding.
func bigIntToDecimal(v *big.Int) decimal.Decimal {
	d, err := decimal.Parse(v.String())
	if err != nil {
		return decimal.Zero()
	}
	return d
}

// Decimal lowers the value to the engine's Decimal type: exact for Integer,
// a single rounded division for Rational, identity for Decimal.
func (n Number) Decimal() decimal.Decimal {
	switch n.k {
	case kindInteger:
		return bigIntToDecimal(n.i)
	case kindRational:
		return bigIntToDecimal(n.i).Div(bigIntToDecimal(n.denom))
	default:
		return n.d
	}
}

// Int truncates the value toward zero and returns it as a big.Int (trunc,
// not floor, for the Decimal case).
func (n Number) Int() (*big.Int, error) {
	switch n.k {
	case kindInteger:
		return new(big.Int).Set(n.i), nil
	case kindRational:
		q := new(big.Int)
		q.Quo(n.i, n.denom) // big.Int.Quo truncates toward zero
		return q, nil
	default:
		if n.d.IsNaN() || n.d.IsInf() {
			return nil, calcerr.New(calcerr.InvalidInteger)
		}
		intPart, _ := n.d.Modf()
		negative, digits, exponent := intPart.Parts()
		text := digits + "E" + strconv.Itoa(int(exponent))
		if negative {
			text = "-" + text
		}
		return decimalTextToInt(text)
	}
}

// decimalTextToInt parses the "[sign][digits]E[exponent]" form that Int
// builds from Decimal.Parts (an unsigned coefficient with no decimal point,
// times ten to the exponent) into an exact integer.
func decimalTextToInt(text string) (*big.Int, error) {
	sign := false
	body := text
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		sign = body[0] == '-'
		body = body[1:]
	}
	eIdx := -1
	for i := 0; i < len(body); i++ {
		if body[i] == 'E' || body[i] == 'e' {
			eIdx = i
			break
		}
	}
	if eIdx < 0 {
		return nil, calcerr.New(calcerr.InvalidInteger)
	}
	digits := body[:eIdx]
	expText := body[eIdx+1:]
	exp := new(big.Int)
	if _, ok := exp.SetString(expText, 10); !ok {
		return nil, calcerr.New(calcerr.InvalidInteger)
	}
	integerPartDigits := int64(len(digits)) + exp.Int64()
	if integerPartDigits <= 0 {
		return big.NewInt(0), nil
	}
	if integerPartDigits > MaxIntegerExponent {
		return nil, calcerr.New(calcerr.ValueOutOfRange)
	}
	result := new(big.Int)
	ten := big.NewInt(10)
	for _, ch := range digits {
		result.Mul(result, ten)
		result.Add(result, big.NewInt(int64(ch-'0')))
	}
	if integerPartDigits > int64(len(digits)) {
		pad := new(big.Int).Exp(ten, big.NewInt(integerPartDigits-int64(len(digits))), nil)
		result.Mul(result, pad)
	}
	if sign {
		result.Neg(result)
	}
	return result, nil
}

func checkIntBounds(v Number) Number {
	return checkIntBoundsWithBitCount(v, MaxIntegerBits, MaxDenominatorBits)
}

// CheckIntBoundsWithBitCount is the exported form of checkIntBoundsWithBitCount,
// used by package cplx to apply a bit budget tighter than the default.
func CheckIntBoundsWithBitCount(v Number, intBits, denomBits uint) Number {
	return checkIntBoundsWithBitCount(v, intBits, denomBits)
}

// Pi returns the circular constant as a Decimal-kind Number.
func Pi() Number { return FromDecimal(decimal.Pi()) }

// Atan2 computes the four-quadrant arctangent of y/x.
func Atan2(y, x Number) Number { return FromDecimal(decimal.Atan2(y.Decimal(), x.Decimal())) }

// checkIntBoundsWithBitCount demotes an Integer/Rational to Decimal once it
// exceeds the given bit budgets; intBits/denomBits let callers (package
// cplx) enforce a tighter cap than the default.
func checkIntBoundsWithBitCount(v Number, intBits, denomBits uint) Number {
	switch v.k {
	case kindInteger:
		if uint(v.i.BitLen()) > intBits {
			return FromDecimal(v.Decimal())
		}
		return v
	case kindRational:
		if uint(v.i.BitLen()) > intBits+denomBits || uint(v.denom.BitLen()) > denomBits {
			return FromDecimal(v.Decimal())
		}
		return v
	default:
		return v
	}
}

func simplify(v Number) Number {
	if v.k != kindRational {
		return v
	}
	numAbs := new(big.Int).Abs(v.i)
	gcd := new(big.Int).GCD(nil, nil, numAbs, v.denom)
	if gcd.Sign() == 0 {
		gcd.SetInt64(1)
	}
	num := new(big.Int).Quo(v.i, gcd)
	denom := new(big.Int).Quo(v.denom, gcd)
	if denom.Cmp(big.NewInt(1)) == 0 {
		return checkIntBounds(Number{k: kindInteger, i: num})
	}
	return checkIntBounds(Number{k: kindRational, i: num, denom: denom})
}

// Add dispatches on the operand kinds: Integer+Integer stays exact,
// Integer/Rational combinations stay exact as a Rational, anything
// touching a Decimal lowers both sides to Decimal.
func (n Number) Add(rhs Number) Number { return dispatch(n, rhs, addInt, addRat, addDec) }
func (n Number) Sub(rhs Number) Number { return dispatch(n, rhs, subInt, subRat, subDec) }
func (n Number) Mul(rhs Number) Number { return dispatch(n, rhs, mulInt, mulRat, mulDec) }

// Div implements num_div: Integer/Integer division that doesn't divide
// evenly becomes an exact Rational rather than losing precision, except
// division by exact zero, which lowers to Decimal to get the correct
// signed-infinity/NaN result.
func (n Number) Div(rhs Number) Number {
	if n.isInteger() && rhs.isInteger() {
		if rhs.i.Sign() == 0 {
			return FromDecimal(n.Decimal().Div(rhs.Decimal()))
		}
		return FromRational(n.i, rhs.i)
	}
	return dispatch(n, rhs, nil, divRat, divDec)
}

type binOp func(a, b Number) Number

func dispatch(a, b Number, intOp, ratOp, decOp binOp) Number {
	if a.k == kindDecimal || b.k == kindDecimal {
		return decOp(a, b)
	}
	if a.k == kindInteger && b.k == kindInteger {
		if intOp == nil {
			return ratOp(a, b)
		}
		return intOp(a, b)
	}
	return ratOp(a, b)
}

func addDec(a, b Number) Number { return FromDecimal(a.Decimal().Add(b.Decimal())) }
func subDec(a, b Number) Number { return FromDecimal(a.Decimal().Sub(b.Decimal())) }
func mulDec(a, b Number) Number { return FromDecimal(a.Decimal().Mul(b.Decimal())) }
func divDec(a, b Number) Number { return FromDecimal(a.Decimal().Div(b.Decimal())) }

func addInt(a, b Number) Number { return FromBigInt(new(big.Int).Add(a.i, b.i)) }
func subInt(a, b Number) Number { return FromBigInt(new(big.Int).Sub(a.i, b.i)) }
func mulInt(a, b Number) Number { return FromBigInt(new(big.Int).Mul(a.i, b.i)) }

func (n Number) asRatParts() (num, denom *big.Int) {
	if n.k == kindRational {
		return n.i, n.denom
	}
	return n.i, big.NewInt(1)
}

func addRat(a, b Number) Number {
	an, ad := a.asRatParts()
	bn, bd := b.asRatParts()
	num := new(big.Int).Add(new(big.Int).Mul(an, bd), new(big.Int).Mul(bn, ad))
	denom := new(big.Int).Mul(ad, bd)
	return FromRational(num, denom)
}

func subRat(a, b Number) Number {
	an, ad := a.asRatParts()
	bn, bd := b.asRatParts()
	num := new(big.Int).Sub(new(big.Int).Mul(an, bd), new(big.Int).Mul(bn, ad))
	denom := new(big.Int).Mul(ad, bd)
	return FromRational(num, denom)
}

func mulRat(a, b Number) Number {
	an, ad := a.asRatParts()
	bn, bd := b.asRatParts()
	return FromRational(new(big.Int).Mul(an, bn), new(big.Int).Mul(ad, bd))
}

func divRat(a, b Number) Number {
	an, ad := a.asRatParts()
	bn, bd := b.asRatParts()
	if bn.Sign() == 0 {
		return FromDecimal(a.Decimal().Div(b.Decimal()))
	}
	num := new(big.Int).Mul(an, bd)
	denom := new(big.Int).Mul(ad, bn)
	return FromRational(num, denom)
}

// Sqrt keeps a perfect-square non-negative Integer exact; anything else
// (negative Integer, Rational, Decimal) lowers to Decimal. Negative
// operands are handled by the caller when a complex result is wanted; here
// a negative square root is simply computed in Decimal and yields NaN.
func (n Number) Sqrt() Number {
	if n.isInteger() && n.i.Sign() >= 0 {
		root := new(big.Int).Sqrt(n.i)
		check := new(big.Int).Mul(root, root)
		if check.Cmp(n.i) == 0 {
			return FromBigInt(root)
		}
	}
	return FromDecimal(n.Decimal().Sqrt())
}

// Pow keeps Integer^non-negative-Integer exact (subject to the same bit
// budget as any other integer result); everything else lowers to Decimal.
func (n Number) Pow(power Number) Number {
	if n.isInteger() && power.isInteger() {
		if power.i.Sign() < 0 {
			return FromDecimal(n.Decimal().Pow(power.Decimal()))
		}
		if power.i.IsInt64() {
			exp := power.i.Int64()
			leftBits := int64(n.i.BitLen())
			if leftBits > 0 && (leftBits-1)*exp > MaxIntegerBits {
				return FromDecimal(n.Decimal().Pow(power.Decimal()))
			}
			return checkIntBounds(Number{k: kindInteger, i: new(big.Int).Exp(n.i, power.i, nil)})
		}
		return FromDecimal(n.Decimal().Pow(power.Decimal()))
	}
	return FromDecimal(n.Decimal().Pow(power.Decimal()))
}

func (n Number) Sin() Number   { return FromDecimal(n.Decimal().Sin()) }
func (n Number) Cos() Number   { return FromDecimal(n.Decimal().Cos()) }
func (n Number) Tan() Number   { return FromDecimal(n.Decimal().Tan()) }
func (n Number) Asin() Number  { return FromDecimal(n.Decimal().Asin()) }
func (n Number) Acos() Number  { return FromDecimal(n.Decimal().Acos()) }
func (n Number) Atan() Number  { return FromDecimal(n.Decimal().Atan()) }
func (n Number) Sinh() Number  { return FromDecimal(n.Decimal().Sinh()) }
func (n Number) Cosh() Number  { return FromDecimal(n.Decimal().Cosh()) }
func (n Number) Tanh() Number  { return FromDecimal(n.Decimal().Tanh()) }
func (n Number) Asinh() Number { return FromDecimal(n.Decimal().Asinh()) }
func (n Number) Acosh() Number { return FromDecimal(n.Decimal().Acosh()) }
func (n Number) Atanh() Number { return FromDecimal(n.Decimal().Atanh()) }
func (n Number) Ln() Number    { return FromDecimal(n.Decimal().Ln()) }
func (n Number) Log10() Number { return FromDecimal(n.Decimal().Log10()) }
func (n Number) Log2() Number  { return FromDecimal(n.Decimal().Log2()) }
func (n Number) Exp() Number   { return FromDecimal(n.Decimal().Exp()) }
func (n Number) Exp10() Number { return FromDecimal(n.Decimal().Exp10()) }
func (n Number) Exp2() Number  { return FromDecimal(n.Decimal().Exp2()) }
func (n Number) Erf() Number   { return FromDecimal(n.Decimal().Erf()) }
func (n Number) Erfc() Number  { return FromDecimal(n.Decimal().Erfc()) }
func (n Number) Tgamma() Number { return FromDecimal(n.Decimal().Tgamma()) }
func (n Number) Lgamma() Number { return FromDecimal(n.Decimal().Lgamma()) }
func (n Number) Neg() Number {
	switch n.k {
	case kindInteger:
		return FromBigInt(new(big.Int).Neg(n.i))
	case kindRational:
		return Number{k: kindRational, i: new(big.Int).Neg(n.i), denom: n.denom}
	default:
		return FromDecimal(n.Decimal().Neg())
	}
}

func (n Number) String() string {
	switch n.k {
	case kindInteger:
		return n.i.String()
	case kindRational:
		return n.i.String() + "/" + n.denom.String()
	default:
		return n.d.String()
	}
}

// ---- Serialization (arena/storage.Object) ----

const (
	tagInteger  uint8 = 0
	tagRational uint8 = 1
	tagDecimal  uint8 = 2
)

func (n Number) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	switch n.k {
	case kindInteger:
		out.WriteU8(tagInteger)
		out.WriteBytes([]byte(n.i.String()))
	case kindRational:
		out.WriteU8(tagRational)
		out.WriteBytes([]byte(n.i.String()))
		out.WriteBytes([]byte(n.denom.String()))
	default:
		out.WriteU8(tagDecimal)
		out.WriteBytes([]byte(n.d.String()))
	}
	return nil
}

// Decode reconstructs a Number from its serialized body; it is the Decoder
// passed to arena.Get/arena.Drop/arena.Store wherever a Number is the
// concrete stored type (e.g. inside value.Value and matrix element arrays).
func Decode(in *storage.Reader, refs storage.RefVisitor) (Number, error) {
	tag, err := in.ReadU8()
	if err != nil {
		return Number{}, err
	}
	switch tag {
	case tagInteger:
		b, err := in.ReadBytes()
		if err != nil {
			return Number{}, err
		}
		v := new(big.Int)
		if _, ok := v.SetString(string(b), 10); !ok {
			return Number{}, calcerr.New(calcerr.CorruptData)
		}
		return Number{k: kindInteger, i: v}, nil
	case tagRational:
		nb, err := in.ReadBytes()
		if err != nil {
			return Number{}, err
		}
		db, err := in.ReadBytes()
		if err != nil {
			return Number{}, err
		}
		num := new(big.Int)
		denom := new(big.Int)
		if _, ok := num.SetString(string(nb), 10); !ok {
			return Number{}, calcerr.New(calcerr.CorruptData)
		}
		if _, ok := denom.SetString(string(db), 10); !ok {
			return Number{}, calcerr.New(calcerr.CorruptData)
		}
		return Number{k: kindRational, i: num, denom: denom}, nil
	case tagDecimal:
		b, err := in.ReadBytes()
		if err != nil {
			return Number{}, err
		}
		d, err := decimal.Parse(string(b))
		if err != nil {
			return Number{}, calcerr.New(calcerr.CorruptData)
		}
		return Number{k: kindDecimal, d: d}, nil
	default:
		return Number{}, calcerr.New(calcerr.CorruptData)
	}
}
