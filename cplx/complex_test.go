package cplx

import (
	"math/big"
	"testing"

	"rpnengine/number"
	"rpnengine/storage"
)

type nopVisitor struct{}

func (nopVisitor) WriteRef(o storage.Offset) (storage.Offset, error) { return o, nil }
func (nopVisitor) ReadRef(o storage.Offset) (storage.Offset, error)  { return o, nil }
func (nopVisitor) Commit()                                           {}
func (nopVisitor) Rollback()                                         {}

func fromInts(real, imag int64) Complex {
	return FromParts(number.FromInt64(real), number.FromInt64(imag))
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		got  Complex
		want string
	}{
		{"add", fromInts(1, 2).Add(fromInts(3, 4)), "4 + 6i"},
		{"sub", fromInts(1, 2).Sub(fromInts(3, 4)), "-2 - 2i"},
		{"mul", fromInts(1, 2).Mul(fromInts(3, 4)), "-5 + 10i"},
		{"div", fromInts(-5, 10).Div(fromInts(3, 4)), "1 + 2i"},
		{"neg", fromInts(1, -2).Neg(), "-1 + 2i"},
		{"i*i", I().Mul(I()), "-1 + 0i"},
	}
	for _, test := range tests {
		if test.got.String() != test.want {
			t.Errorf("%s = %s, want %s", test.name, test.got, test.want)
		}
	}
}

func TestDivStaysExact(t *testing.T) {
	// (1+i)/2 has exact rational components; nothing here should lower to
	// Decimal.
	got := fromInts(1, 1).Div(fromInts(2, 0))
	if got.Real.String() != "1/2" || got.Imaginary.String() != "1/2" {
		t.Errorf("(1+i)/2 = %s, want 1/2 + 1/2i", got)
	}
	if got.Real.IsDecimal() || got.Imaginary.IsDecimal() {
		t.Error("exact complex division lowered to Decimal")
	}
}

func TestSqrtStableForm(t *testing.T) {
	tests := []struct {
		name string
		in   Complex
		want string
	}{
		{"negative real", FromReal(number.FromInt64(-4)), "0 + 2i"},
		{"pure imaginary squared", fromInts(0, 2).Mul(fromInts(0, 2)), "-4 + 0i"},
		{"3+4i", fromInts(-7, 24), "3 + 4i"},
		{"lower half plane", fromInts(0, -2), "1 - 1i"},
	}
	for _, test := range tests {
		if test.name == "pure imaginary squared" {
			if test.in.String() != test.want {
				t.Errorf("(2i)^2 = %s, want %s", test.in, test.want)
			}
			continue
		}
		got := test.in.Sqrt()
		if got.String() != test.want {
			t.Errorf("sqrt(%s) [%s] = %s, want %s", test.in, test.name, got, test.want)
		}
	}
}

func TestIsRealAndRange(t *testing.T) {
	if !fromInts(5, 0).IsReal() {
		t.Error("5+0i not reported real")
	}
	if fromInts(5, 1).IsReal() {
		t.Error("5+1i reported real")
	}
	inf := number.FromInt64(1).Div(number.Zero())
	if !FromParts(inf, number.Zero()).IsOutOfRange() {
		t.Error("infinite real part not reported out of range")
	}
	if fromInts(1, 2).IsOutOfRange() {
		t.Error("finite value reported out of range")
	}
}

func TestComponentBitCapTighterThanNumber(t *testing.T) {
	wide := number.FromBigInt(new(big.Int).Lsh(big.NewInt(1), 2048))
	if wide.IsDecimal() {
		t.Fatal("2^2048 should be exact as a bare Number")
	}
	c := FromReal(wide)
	if !c.Real.IsDecimal() {
		t.Error("2^2048 exceeds the complex component cap but stayed exact")
	}
}

func TestMagnitudeAndPolarAngle(t *testing.T) {
	if got := fromInts(3, 4).Magnitude(); got.String() != "5" {
		t.Errorf("|3+4i| = %s, want 5", got)
	}
	if got := FromReal(number.Zero()).PolarAngle(); !got.IsZero() {
		t.Errorf("arg(0) = %s, want 0", got)
	}
	// arg(-1) = pi; arg(1-i) normalizes into [0, 2pi).
	angle := fromInts(-1, 0).PolarAngle()
	if angle.IsNegative() {
		t.Errorf("arg(-1) = %s, want a non-negative angle", angle)
	}
	lower := fromInts(1, -1).PolarAngle()
	if lower.IsNegative() {
		t.Errorf("arg(1-i) = %s, want the normalized positive angle", lower)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	want := FromParts(
		number.FromRational(big.NewInt(-3), big.NewInt(7)),
		number.FromInt64(12),
	)
	w := storage.NewWriter()
	if err := want.Serialize(w, nopVisitor{}); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Decode(storage.NewReader(w.Bytes()), nopVisitor{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.String() != want.String() {
		t.Errorf("round trip: got %s, want %s", got, want)
	}
}
