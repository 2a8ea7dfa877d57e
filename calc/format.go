// Package calc implements the engine's user-facing layer: Stack (the
// undo-aware value stack), Context (stack plus memory, angle mode, and the
// full command surface), and Format (number-to-string rendering).
package calc

import (
	"math/big"

	"rpnengine/decimal"
	"rpnengine/number"
)

// MaxShortDisplayBits bounds how large an exact integer can be before the
// formatter falls back to rendering it as a decimal float.
const MaxShortDisplayBits = 128

// FormatMode selects how a real number's magnitude is rendered.
type FormatMode uint8

const (
	FormatNormal FormatMode = iota
	FormatRational
	FormatScientific
	FormatEngineering
)

// DecimalPointMode selects the glyph used for the decimal point (and, by
// swap, the thousands separator).
type DecimalPointMode uint8

const (
	DecimalPointPeriod DecimalPointMode = iota
	DecimalPointComma
)

// IntegerModeKind distinguishes the three integer display/arithmetic modes.
type IntegerModeKind uint8

const (
	IntegerModeFloat IntegerModeKind = iota
	IntegerModeBigInteger
	IntegerModeSized
)

// IntegerMode selects whether stack values are coerced to an integer on
// input, and if so at what bit width and signedness.
type IntegerMode struct {
	Kind   IntegerModeKind
	Size   uint
	Signed bool
}

func FloatMode() IntegerMode        { return IntegerMode{Kind: IntegerModeFloat} }
func BigIntegerMode() IntegerMode    { return IntegerMode{Kind: IntegerModeBigInteger} }
func SizedMode(size uint, signed bool) IntegerMode {
	return IntegerMode{Kind: IntegerModeSized, Size: size, Signed: signed}
}

// AlternateFormatMode controls where a secondary hex/decimal readout is
// shown alongside the primary one.
type AlternateFormatMode uint8

const (
	AlternateSmart AlternateFormatMode = iota
	AlternateBottom
	AlternateLeft
)

func (m AlternateFormatMode) LeftEnabled() bool   { return m != AlternateBottom }
func (m AlternateFormatMode) BottomEnabled() bool { return m != AlternateLeft }

// Format holds every display-affecting setting: radix, precision, grouping,
// and the active IntegerMode. The zero value is not ready for use; call
// NewFormat.
type Format struct {
	Mode          FormatMode
	IntegerMode   IntegerMode
	DecimalPoint  DecimalPointMode
	Thousands     bool
	Precision     int
	TrailingZeros bool
	IntegerRadix  uint8
	ShowAltHex    bool
	ShowAltFloat  bool
	AltMode       AlternateFormatMode
	LimitSize     bool
	Time24Hour    bool
	StackXYZ      bool
}

// NewFormat returns the engine's default display settings.
func NewFormat() Format {
	return Format{
		Mode:         FormatRational,
		IntegerMode:  FloatMode(),
		DecimalPoint: DecimalPointPeriod,
		Thousands:    true,
		Precision:    12,
		IntegerRadix: 10,
		ShowAltHex:   true,
		ShowAltFloat: true,
		AltMode:      AlternateSmart,
		LimitSize:    true,
	}
}

// ExponentFormat returns the settings used to render an exponent's digits
// (always base 10, no grouping, short precision), used recursively by
// formatDecimalPostRound.
func (f Format) ExponentFormat() Format {
	return Format{
		Mode:          FormatNormal,
		IntegerMode:   BigIntegerMode(),
		DecimalPoint:  f.DecimalPoint,
		Precision:     4,
		TrailingZeros: true,
		IntegerRadix:  10,
		AltMode:       AlternateSmart,
		LimitSize:     true,
	}
}

// HexFormat returns a copy of f coerced to radix 16 (switching Float mode
// up to BigInteger, since float values have no hex rendering).
func (f Format) HexFormat() Format {
	out := f
	if out.IntegerMode.Kind == IntegerModeFloat {
		out.IntegerMode = BigIntegerMode()
	}
	out.IntegerRadix = 16
	return out
}

// DecimalFormat returns a copy of f coerced to radix 10.
func (f Format) DecimalFormat() Format {
	out := f
	out.IntegerRadix = 10
	return out
}

// WithMaxPrecision returns a copy of f with Precision capped at max.
func (f Format) WithMaxPrecision(max int) Format {
	out := f
	if max < out.Precision {
		out.Precision = max
	}
	return out
}

// FormatKind identifies which rendering path produced a FormatResult.
type FormatKind uint8

const (
	FormatKindInteger FormatKind = iota
	FormatKindFloat
	FormatKindComplex
	FormatKindObject
)

// FormatResult is the rendered text plus which path produced it; callers
// that care about alignment or coloring by kind can branch on Kind,
// everyone else just wants Text.
type FormatResult struct {
	Kind FormatKind
	Text string
}

func (r FormatResult) String() string { return r.Text }

// FormatNumber renders n per the active settings: an exact Integer-kind
// Number is rendered with FormatBigInt unless it has grown past
// MaxShortDisplayBits (or the radix is decimal in Scientific/Engineering
// mode), in which case it falls back to the decimal float path like every
// Rational/Decimal-kind Number does.
func (f Format) FormatNumber(n number.Number) FormatResult {
	if i, ok := n.AsInt(); ok {
		switch f.Mode {
		case FormatNormal, FormatRational:
			if f.LimitSize && i.BitLen() > MaxShortDisplayBits {
				return FormatResult{Kind: FormatKindFloat, Text: f.formatDecimal(n.Decimal())}
			}
			return FormatResult{Kind: FormatKindInteger, Text: f.FormatBigInt(i)}
		case FormatScientific, FormatEngineering:
			if f.IntegerRadix == 10 || (f.LimitSize && i.BitLen() > MaxShortDisplayBits) {
				return FormatResult{Kind: FormatKindFloat, Text: f.formatDecimal(n.Decimal())}
			}
			return FormatResult{Kind: FormatKindInteger, Text: f.FormatBigInt(i)}
		}
	}
	return FormatResult{Kind: FormatKindFloat, Text: f.formatDecimal(n.Decimal())}
}

// FormatBigInt renders an exact integer in the active radix (2-36), with
// thousands-style grouping (comma/period every 3 digits in decimal, an
// apostrophe every 4 in hex) and the engine's 0x/0 radix prefixes.
func (f Format) FormatBigInt(n *big.Int) string {
	val := new(big.Int).Abs(n)
	radix := big.NewInt(int64(f.IntegerRadix))
	zero := big.NewInt(0)

	var result []byte
	digits := 0
	nonDecimal := false
	for val.Cmp(zero) != 0 {
		if digits%3 == 0 && digits > 0 && f.IntegerRadix == 10 && f.Thousands {
			result = append(result, f.groupingGlyph())
		} else if digits%4 == 0 && digits > 0 && f.IntegerRadix == 16 && f.Thousands {
			result = append(result, '\'')
		}

		q, r := new(big.Int), new(big.Int)
		q.DivMod(val, radix, r)
		d := r.Int64()
		if d >= 10 {
			result = append(result, byte('A'+d-10))
			nonDecimal = true
		} else {
			result = append(result, byte('0'+d))
		}
		val = q
		digits++
	}

	if len(result) == 0 {
		result = append(result, '0')
	}
	if f.IntegerRadix == 16 && (len(result) > 1 || nonDecimal) {
		result = append(result, 'x', '0')
	}
	if f.IntegerRadix == 8 && len(result) > 1 {
		result = append(result, '0')
	}
	if n.Sign() < 0 {
		result = append(result, '-')
	}
	reverse(result)
	return string(result)
}

func (f Format) groupingGlyph() byte {
	if f.DecimalPoint == DecimalPointPeriod {
		return ','
	}
	return '.'
}

func (f Format) decimalGlyph() string {
	if f.DecimalPoint == DecimalPointComma {
		return ","
	}
	return "."
}

func reverse(b []byte) {
	for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
		b[l], b[r] = b[r], b[l]
	}
}

// formatDecimal renders a real value, choosing Normal vs. Scientific
// display per the active precision and the magnitude of the integer part,
// rounding at the configured precision when the value carries more digits.
func (f Format) formatDecimal(num decimal.Decimal) string {
	if num.IsNaN() {
		return "NaN"
	}
	if num.IsInf() {
		if num.Sign() < 0 {
			return "-∞"
		}
		return "∞"
	}

	negative, digits, exponent := num.Parts()
	integerPartDigits := int64(len(digits)) + int64(exponent)

	mode := f.Mode
	if mode != FormatScientific && mode != FormatEngineering {
		if integerPartDigits > int64(f.Precision) ||
			integerPartDigits < -4 ||
			integerPartDigits < -(int64(f.Precision)/2) {
			mode = FormatScientific
		} else {
			mode = FormatNormal
		}
	}

	if int64(len(digits)) <= int64(f.Precision) {
		return f.formatDecimalPostRound(num, mode)
	}

	roundExponent := (int64(exponent) + int64(len(digits))) - int64(f.Precision)
	if roundExponent > 0 && mode == FormatNormal {
		mode = FormatScientific
	}
	if mode == FormatNormal && integerPartDigits < 0 {
		roundExponent -= integerPartDigits
	}

	factor := decimal.FromInt64(roundExponent).Exp10()
	half := decimal.FromRatio(1, 2)
	adjusted := num.Abs().Div(factor).Add(half)
	intPart, _ := adjusted.Modf()
	rounded := intPart.Mul(factor)
	if negative {
		rounded = rounded.Negate()
	}
	return f.formatDecimalPostRound(rounded, mode)
}

func (f Format) formatDecimalPostRound(num decimal.Decimal, mode FormatMode) string {
	if num.IsNaN() {
		return "NaN"
	}
	if num.IsInf() {
		if num.Sign() < 0 {
			return "-∞"
		}
		return "∞"
	}

	negative, digitStr, exponentField := num.Parts()
	exponent := int64(exponentField)

	var displayExponent int64
	switch mode {
	case FormatScientific:
		newExponent := 1 - int64(len(digitStr))
		displayExponent = exponent - newExponent
		exponent = newExponent
	case FormatEngineering:
		newExponent := 1 - int64(len(digitStr))
		display := exponent - newExponent
		offset := display % 3
		if display < 0 && offset != 0 {
			offset += 3
		}
		newExponent += offset
		display -= offset
		exponent = newExponent
		displayExponent = display
	default:
		displayExponent = 0
	}

	integerPartDigits := int64(len(digitStr)) + exponent

	var fractionDigits string
	switch {
	case integerPartDigits < 0:
		fractionDigits = digitStr
	case integerPartDigits > int64(len(digitStr)):
		fractionDigits = ""
	default:
		fractionDigits = digitStr[integerPartDigits:]
	}

	trailingZeros := 0
	for i := len(fractionDigits) - 1; i >= 0; i-- {
		if fractionDigits[i] != '0' {
			break
		}
		trailingZeros++
	}
	fractionDigits = fractionDigits[:len(fractionDigits)-trailingZeros]

	var integerStr string
	if integerPartDigits > 0 {
		digitBytes := []byte(digitStr)
		var b []byte
		digits := 0
		for i := int64(0); i < integerPartDigits; i++ {
			if digits > 0 && digits%3 == 0 && f.Thousands {
				b = append(b, f.groupingGlyph())
			}
			idx := (integerPartDigits - 1) - i
			if idx < int64(len(digitBytes)) {
				b = append(b, digitBytes[idx])
			} else {
				b = append(b, '0')
			}
			digits++
		}
		reverse(b)
		integerStr = string(b)
	} else {
		integerStr = "0"
	}

	var fractionStr string
	if integerPartDigits < 0 && len(fractionDigits) > 0 {
		pad := make([]byte, -integerPartDigits)
		for i := range pad {
			pad[i] = '0'
		}
		fractionStr = string(pad) + fractionDigits
	} else {
		fractionStr = fractionDigits
	}

	if integerStr == "0" && len(fractionStr) == 0 {
		displayExponent = 0
	}

	signStr := ""
	if negative {
		signStr = "-"
	}

	var exponentStr string
	switch {
	case displayExponent != 0:
		exponentStr = "ᴇ" + f.ExponentFormat().FormatBigInt(big.NewInt(displayExponent))
	case mode == FormatScientific || mode == FormatEngineering:
		exponentStr = "ᴇ0"
	}

	if len(fractionDigits) > 0 {
		return signStr + integerStr + f.decimalGlyph() + fractionStr + exponentStr
	}
	return signStr + integerStr + exponentStr
}
