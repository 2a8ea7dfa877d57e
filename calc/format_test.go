package calc_test

import (
	"math/big"
	"testing"

	"rpnengine/calc"
	"rpnengine/decimal"
	"rpnengine/number"
)

func mustDecimalNumber(t *testing.T, s string) number.Number {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q): %v", s, err)
	}
	return number.FromDecimal(d)
}

func TestFormatBigIntDecimalGrouping(t *testing.T) {
	f := calc.NewFormat()
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234567, "-1,234,567"},
	}
	for _, test := range tests {
		if got := f.FormatBigInt(big.NewInt(test.in)); got != test.want {
			t.Errorf("FormatBigInt(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestFormatBigIntCommaDecimalPointSwapsGroupingGlyph(t *testing.T) {
	f := calc.NewFormat()
	f.DecimalPoint = calc.DecimalPointComma
	if got := f.FormatBigInt(big.NewInt(1234567)); got != "1.234.567" {
		t.Errorf("FormatBigInt(1234567) = %q, want %q", got, "1.234.567")
	}
}

func TestFormatBigIntHex(t *testing.T) {
	f := calc.NewFormat().HexFormat()
	tests := []struct {
		in   int64
		want string
	}{
		{0x12345, "0x1'2345"},
		{0xAB, "0xAB"},
		{5, "5"}, // single decimal digit needs no prefix
		{-0xFF, "-0xFF"},
	}
	for _, test := range tests {
		if got := f.FormatBigInt(big.NewInt(test.in)); got != test.want {
			t.Errorf("FormatBigInt(%#x) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestFormatBigIntOctalPrefix(t *testing.T) {
	f := calc.NewFormat()
	f.IntegerRadix = 8
	if got := f.FormatBigInt(big.NewInt(8)); got != "010" {
		t.Errorf("FormatBigInt(8) in octal = %q, want %q", got, "010")
	}
	if got := f.FormatBigInt(big.NewInt(7)); got != "7" {
		t.Errorf("FormatBigInt(7) in octal = %q, want %q", got, "7")
	}
}

func TestFormatNumberIntegerVsFloatPaths(t *testing.T) {
	f := calc.NewFormat()

	exact := f.FormatNumber(number.FromInt64(42))
	if exact.Kind != calc.FormatKindInteger || exact.Text != "42" {
		t.Errorf("FormatNumber(42) = %+v", exact)
	}

	// An integer past MaxShortDisplayBits falls back to the float path.
	wide := number.FromBigInt(new(big.Int).Lsh(big.NewInt(1), 200))
	if got := f.FormatNumber(wide); got.Kind != calc.FormatKindFloat {
		t.Errorf("FormatNumber(2^200) kind = %d, want Float", got.Kind)
	}

	dec := f.FormatNumber(mustDecimalNumber(t, "1.5"))
	if dec.Kind != calc.FormatKindFloat || dec.Text != "1.5" {
		t.Errorf("FormatNumber(1.5) = %+v", dec)
	}
}

func TestFormatDecimalModes(t *testing.T) {
	tests := []struct {
		name string
		prep func(calc.Format) calc.Format
		in   string
		want string
	}{
		{"normal", nil, "1.5", "1.5"},
		{"normal negative", nil, "-12.25", "-12.25"},
		{"normal strips trailing zeros", nil, "2.50", "2.5"},
		{"small magnitude switches to scientific", nil, "1.5E-9", "1.5ᴇ-9"},
		{
			"scientific",
			func(f calc.Format) calc.Format { f.Mode = calc.FormatScientific; return f },
			"12345",
			"1.2345ᴇ4",
		},
		{
			"scientific exponent zero",
			func(f calc.Format) calc.Format { f.Mode = calc.FormatScientific; return f },
			"5",
			"5ᴇ0",
		},
		{
			"engineering multiple of three",
			func(f calc.Format) calc.Format { f.Mode = calc.FormatEngineering; return f },
			"12345",
			"12.345ᴇ3",
		},
		{
			"rounding at precision",
			func(f calc.Format) calc.Format { return f.WithMaxPrecision(4) },
			"1.23456",
			"1.235",
		},
	}
	for _, test := range tests {
		f := calc.NewFormat()
		if test.prep != nil {
			f = test.prep(f)
		}
		got := f.FormatNumber(mustDecimalNumber(t, test.in))
		if got.Text != test.want {
			t.Errorf("%s: FormatNumber(%s) = %q, want %q", test.name, test.in, got.Text, test.want)
		}
	}
}

func TestFormatNonFinite(t *testing.T) {
	f := calc.NewFormat()
	if got := f.FormatNumber(mustDecimalNumber(t, "NaN")); got.Text != "NaN" {
		t.Errorf("NaN renders as %q", got.Text)
	}
	inf := number.FromInt64(1).Div(number.Zero())
	if got := f.FormatNumber(inf); got.Text != "∞" {
		t.Errorf("+Inf renders as %q", got.Text)
	}
	ninf := number.FromInt64(-1).Div(number.Zero())
	if got := f.FormatNumber(ninf); got.Text != "-∞" {
		t.Errorf("-Inf renders as %q", got.Text)
	}
}

func TestRationalNumbersRenderThroughFloatPath(t *testing.T) {
	f := calc.NewFormat()
	third := number.FromInt64(1).Div(number.FromInt64(3))
	got := f.FormatNumber(third)
	if got.Kind != calc.FormatKindFloat {
		t.Fatalf("FormatNumber(1/3) kind = %d, want Float", got.Kind)
	}
	if len(got.Text) < 3 || got.Text[:3] != "0.3" {
		t.Errorf("FormatNumber(1/3) = %q, want a 0.333... rendering", got.Text)
	}
}
