package calc_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"rpnengine/arena"
	"rpnengine/calc"
	"rpnengine/calcerr"
	"rpnengine/decimal"
	"rpnengine/matrix"
	"rpnengine/number"
	"rpnengine/undo"
	"rpnengine/unit"
	"rpnengine/value"
)

func newTestContext(t *testing.T) (*arena.Arena, *calc.Context) {
	t.Helper()
	a := arena.New()
	return a, calc.NewContextWithUndo(a, undo.NewBuffer(a))
}

func pushInts(t *testing.T, c *calc.Context, vals ...int64) {
	t.Helper()
	for _, v := range vals {
		if err := c.Push(num(v)); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
}

func topString(t *testing.T, c *calc.Context) string {
	t.Helper()
	top, err := c.Top()
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	return top.String()
}

func pushVector(t *testing.T, a *arena.Arena, c *calc.Context, vals ...int64) {
	t.Helper()
	vec := matrix.NewVector[value.Value](value.Decode)
	for _, v := range vals {
		if err := vec.Push(a, num(v)); err != nil {
			t.Fatalf("vector Push(%d): %v", v, err)
		}
	}
	vecVal := value.VectorValue(vec)
	if err := c.Push(vecVal); err != nil {
		t.Fatalf("Push(vector): %v", err)
	}
	vecVal.Release(a)
}

// The default format starts in Rational mode, so exact results of the
// division chain below stay rational all the way through.
func TestRationalArithmeticChain(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 1, 3)
	if err := c.Div(); err != nil {
		t.Fatalf("Div: %v", err)
	}
	pushInts(t, c, 2)
	if err := c.Mul(); err != nil {
		t.Fatalf("Mul: %v", err)
	}
	if got := topString(t, c); got != "2/3" {
		t.Errorf("1/3 * 2 = %s, want 2/3", got)
	}
}

func TestRationalAddition(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 1, 2)
	if err := c.Div(); err != nil {
		t.Fatalf("Div: %v", err)
	}
	pushInts(t, c, 1, 3)
	if err := c.Div(); err != nil {
		t.Fatalf("Div: %v", err)
	}
	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := topString(t, c); got != "5/6" {
		t.Errorf("1/2 + 1/3 = %s, want 5/6", got)
	}
	if c.StackLen() != 1 {
		t.Errorf("StackLen = %d, want 1", c.StackLen())
	}
}

func TestSinPiIsRoundingNoiseZero(t *testing.T) {
	_, c := newTestContext(t)
	c.SetAngleMode(unit.Radians)
	if err := c.Push(value.NumberValue(number.Pi())); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := c.Sin(); err != nil {
		t.Fatalf("Sin: %v", err)
	}
	top, err := c.Top()
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	n, err := top.RealNumber()
	if err != nil {
		t.Fatalf("RealNumber: %v", err)
	}
	if !n.IsDecimal() {
		t.Fatalf("sin(pi) = %s, want a Decimal", n)
	}
	tol, _ := decimal.Parse("1E-9")
	if n.Decimal().Abs().Cmp(tol) >= 0 {
		t.Errorf("|sin(pi)| = %s, want rounding noise below 1E-9", n)
	}
}

func TestSizedIntegerModeSignExtends(t *testing.T) {
	_, c := newTestContext(t)
	c.SetIntegerMode(calc.SizedMode(8, true))
	pushInts(t, c, 200)
	if got := topString(t, c); got != "-56" {
		t.Errorf("200 in signed 8-bit mode = %s, want -56", got)
	}
}

func TestVectorDotProduct(t *testing.T) {
	a, c := newTestContext(t)
	pushVector(t, a, c, 1, 2, 3)
	pushVector(t, a, c, 4, 5, 6)
	if err := c.DotProduct(); err != nil {
		t.Fatalf("DotProduct: %v", err)
	}
	if got := topString(t, c); got != "32" {
		t.Errorf("{1,2,3}.{4,5,6} = %s, want 32", got)
	}
	top, _ := c.Top()
	n, err := top.RealNumber()
	if err != nil || n.IsDecimal() {
		t.Errorf("dot product of integers lowered to Decimal: %s", top)
	}
}

func TestMemoryStoreRecall(t *testing.T) {
	_, c := newTestContext(t)
	loc := calc.VariableLocation('a')

	pushInts(t, c, 5)
	stored, err := c.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if err := c.Write(loc, stored); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pushInts(t, c, 7)
	recalled, err := c.Read(loc)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if err := c.Push(recalled); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := topString(t, c); got != "12" {
		t.Errorf("5 sto a; 7; rcl a; + = %s, want 12", got)
	}

	if _, err := c.Read(calc.VariableLocation('z')); !calcerr.Is(err, calcerr.ValueNotDefined) {
		t.Errorf("Read of undefined variable: err = %v, want ValueNotDefined", err)
	}
}

func TestUndoRestoresPreSequenceState(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 5, 3)
	if err := c.Swap(0, 1); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if err := c.Sub(); err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if got := topString(t, c); got != "-2" {
		t.Fatalf("3 - 5 = %s, want -2", got)
	}
	for i := 0; i < 4; i++ {
		if err := c.Undo(); err != nil {
			t.Fatalf("Undo %d: %v", i, err)
		}
	}
	if c.StackLen() != 0 {
		t.Errorf("StackLen after full unwind = %d, want 0", c.StackLen())
	}
}

func TestBitwiseOps(t *testing.T) {
	tests := []struct {
		name string
		op   func(*calc.Context) error
		want string
	}{
		{"and", (*calc.Context).And, "8"},
		{"or", (*calc.Context).Or, "14"},
		{"xor", (*calc.Context).Xor, "6"},
	}
	for _, test := range tests {
		_, c := newTestContext(t)
		pushInts(t, c, 12, 10)
		if err := test.op(c); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if got := topString(t, c); got != test.want {
			t.Errorf("12 %s 10 = %s, want %s", test.name, got, test.want)
		}
	}
}

func TestShiftAndRotate(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 1, 4)
	if err := c.Shl(); err != nil {
		t.Fatalf("Shl: %v", err)
	}
	if got := topString(t, c); got != "16" {
		t.Errorf("1 << 4 = %s, want 16", got)
	}

	_, c = newTestContext(t)
	pushInts(t, c, 129, 1)
	if err := c.RotateLeft(); !calcerr.Is(err, calcerr.RequiresSizedIntegerMode) {
		t.Fatalf("RotateLeft without sized mode: err = %v, want RequiresSizedIntegerMode", err)
	}
	c.SetIntegerMode(calc.SizedMode(8, false))
	if err := c.RotateLeft(); err != nil {
		t.Fatalf("RotateLeft: %v", err)
	}
	// 1000_0001 rotated left one place is 0000_0011.
	if got := topString(t, c); got != "3" {
		t.Errorf("rol(129, 1) in 8-bit mode = %s, want 3", got)
	}
}

func TestIntegerRadixStateMachine(t *testing.T) {
	_, c := newTestContext(t)
	if got := c.Format().IntegerMode.Kind; got != calc.IntegerModeFloat {
		t.Fatalf("initial IntegerMode = %d, want Float", got)
	}
	c.SetIntegerRadix(16)
	if got := c.Format().IntegerMode.Kind; got != calc.IntegerModeBigInteger {
		t.Errorf("IntegerMode after radix 16 = %d, want BigInteger (the default integer format)", got)
	}
	if err := c.SetFloatMode(); !calcerr.Is(err, calcerr.FloatRequiresDecimalMode) {
		t.Errorf("SetFloatMode at radix 16: err = %v, want FloatRequiresDecimalMode", err)
	}
	c.SetIntegerRadix(10)
	if got := c.Format().IntegerMode.Kind; got != calc.IntegerModeFloat {
		t.Errorf("IntegerMode after returning to radix 10 = %d, want the saved Float mode", got)
	}
}

func TestDateConstruction(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 2024, 3, 15)
	if err := c.Date(); err != nil {
		t.Fatalf("Date: %v", err)
	}
	top, err := c.Top()
	if err != nil || top.Kind() != value.KindDate {
		t.Fatalf("Top = %s (kind %d), %v", top, top.Kind(), err)
	}
	tm, _ := top.Time()
	if tm.Year() != 2024 || tm.Month() != time.March || tm.Day() != 15 {
		t.Errorf("constructed date = %v", tm)
	}
	if c.StackLen() != 1 {
		t.Errorf("StackLen = %d, want 1", c.StackLen())
	}

	_, c = newTestContext(t)
	pushInts(t, c, 2024, 13, 1)
	if err := c.Date(); !calcerr.Is(err, calcerr.InvalidDate) {
		t.Errorf("month 13: err = %v, want InvalidDate", err)
	}
}

func TestNowUsesInjectedClock(t *testing.T) {
	_, c := newTestContext(t)
	fixed := time.Date(2026, time.August, 1, 10, 30, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return fixed })
	if err := c.Now(); err != nil {
		t.Fatalf("Now: %v", err)
	}
	top, err := c.Top()
	if err != nil || top.Kind() != value.KindDateTime {
		t.Fatalf("Top = %s, %v", top, err)
	}
	tm, _ := top.Time()
	if !tm.Equal(fixed) {
		t.Errorf("Now pushed %v, want %v", tm, fixed)
	}
}

func TestUnitCommands(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 2)
	if err := c.AddUnit(unit.Kilometers); err != nil {
		t.Fatalf("AddUnit: %v", err)
	}
	if err := c.ConvertToUnit(unit.Meters); err != nil {
		t.Fatalf("ConvertToUnit: %v", err)
	}
	if got := topString(t, c); got != "2000" {
		t.Errorf("2 km in m = %s, want 2000", got)
	}
	if err := c.ClearUnits(); err != nil {
		t.Fatalf("ClearUnits: %v", err)
	}
	top, _ := c.Top()
	if top.Kind() != value.KindNumber {
		t.Errorf("kind after ClearUnits = %d, want plain Number", top.Kind())
	}
}

func TestToMatrixAndTranspose(t *testing.T) {
	a, c := newTestContext(t)
	pushInts(t, c, 1, 2, 3, 4)
	pushInts(t, c, 2, 2)
	if err := c.ToMatrix(); err != nil {
		t.Fatalf("ToMatrix: %v", err)
	}
	top, err := c.Top()
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	m, err := top.AsMatrix()
	if err != nil {
		t.Fatalf("AsMatrix: %v", err)
	}
	want := [][]string{{"1", "2"}, {"3", "4"}}
	got := make([][]string, m.Rows())
	for row := range got {
		got[row] = make([]string, m.Cols())
		for col := range got[row] {
			e, err := m.Get(a, row, col)
			if err != nil {
				t.Fatalf("Get(%d, %d): %v", row, col, err)
			}
			got[row][col] = e.String()
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matrix contents (-want +got):\n%s", diff)
	}
	top.Release(a)

	if err := c.Transpose(); err != nil {
		t.Fatalf("Transpose: %v", err)
	}
	top, _ = c.Top()
	m, _ = top.AsMatrix()
	e, err := m.Get(a, 0, 1)
	if err != nil || e.String() != "3" {
		t.Errorf("transposed (0,1) = %s, want 3", e)
	}
	top.Release(a)
}

func TestMeanOfVector(t *testing.T) {
	a, c := newTestContext(t)
	pushVector(t, a, c, 1, 2, 3)
	if err := c.Mean(); err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if got := topString(t, c); got != "2" {
		t.Errorf("mean{1,2,3} = %s, want 2", got)
	}
}

func TestComplexCombineAndSplit(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 3, 4)
	if err := c.Complex(); err != nil {
		t.Fatalf("Complex: %v", err)
	}
	top, err := c.Top()
	if err != nil || top.Kind() != value.KindComplex {
		t.Fatalf("Top = %s, %v", top, err)
	}
	if got := top.String(); got != "3 + 4i" {
		t.Errorf("combined = %s, want 3 + 4i", got)
	}

	if err := c.Complex(); err != nil {
		t.Fatalf("Complex (split): %v", err)
	}
	if c.StackLen() != 2 {
		t.Fatalf("StackLen after split = %d, want 2", c.StackLen())
	}
	if got := topString(t, c); got != "4" {
		t.Errorf("imaginary part = %s, want 4", got)
	}
	second, _ := c.Entry(1)
	if second.String() != "3" {
		t.Errorf("real part = %s, want 3", second)
	}
}

func TestPercent(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 80, 25)
	if err := c.Percent(); err != nil {
		t.Fatalf("Percent: %v", err)
	}
	if got := topString(t, c); got != "20" {
		t.Errorf("25%% of 80 = %s, want 20", got)
	}
}

func TestArenaBalancedAfterVectorCommands(t *testing.T) {
	a, c := newTestContext(t)
	baseline := a.UsedBytes()
	pushVector(t, a, c, 1, 2, 3)
	pushVector(t, a, c, 4, 5, 6)
	if err := c.DotProduct(); err != nil {
		t.Fatalf("DotProduct: %v", err)
	}
	if _, err := c.Pop(); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	c.ClearUndoBuffer()
	c.ClearLastX()
	if got := a.UsedBytes(); got != baseline {
		t.Errorf("UsedBytes = %d after commands complete and history cleared, want the baseline %d", got, baseline)
	}
}

func TestLastX(t *testing.T) {
	_, c := newTestContext(t)
	if err := c.LastX(); !calcerr.Is(err, calcerr.ValueNotDefined) {
		t.Errorf("LastX before any command: err = %v, want ValueNotDefined", err)
	}
	pushInts(t, c, 5, 3)
	if err := c.Add(); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.LastX(); err != nil {
		t.Fatalf("LastX: %v", err)
	}
	if got := topString(t, c); got != "3" {
		t.Errorf("last x = %s, want the consumed operand 3", got)
	}
}

func TestPercentChange(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 80, 100)
	if err := c.PercentChange(); err != nil {
		t.Fatalf("PercentChange: %v", err)
	}
	if got := topString(t, c); got != "25" {
		t.Errorf("change from 80 to 100 = %s%%, want 25", got)
	}
	second, _ := c.Entry(1)
	if second.String() != "80" {
		t.Errorf("base = %s, want 80 kept in place", second)
	}
}

func TestGammaOfSmallInteger(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 5)
	if err := c.Gamma(); err != nil {
		t.Fatalf("Gamma: %v", err)
	}
	top, _ := c.Top()
	n, err := top.RealNumber()
	if err != nil {
		t.Fatalf("RealNumber: %v", err)
	}
	want, _ := decimal.Parse("24")
	tol, _ := decimal.Parse("1E-9")
	if n.Decimal().Sub(want).Abs().Cmp(tol) >= 0 {
		t.Errorf("gamma(5) = %s, want 24", n)
	}
}

func TestLog2OfPowerOfTwo(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 8)
	if err := c.Log2(); err != nil {
		t.Fatalf("Log2: %v", err)
	}
	top, _ := c.Top()
	n, _ := top.RealNumber()
	want, _ := decimal.Parse("3")
	tol, _ := decimal.Parse("1E-20")
	if n.Decimal().Sub(want).Abs().Cmp(tol) >= 0 {
		t.Errorf("log2(8) = %s, want 3", n)
	}
}

func TestExchange(t *testing.T) {
	_, c := newTestContext(t)
	loc := calc.IntegerLocation(3)
	if err := c.Write(loc, num(10)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pushInts(t, c, 99)
	if err := c.Exchange(loc); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got := topString(t, c); got != "10" {
		t.Errorf("top after exchange = %s, want 10", got)
	}
	stored, err := c.Read(loc)
	if err != nil || stored.String() != "99" {
		t.Errorf("stored after exchange = %s, %v, want 99", stored, err)
	}
}

func TestClearVariables(t *testing.T) {
	_, c := newTestContext(t)
	if err := c.Write(calc.VariableLocation('a'), num(1)); err != nil {
		t.Fatalf("Write variable: %v", err)
	}
	if err := c.Write(calc.IntegerLocation(0), num(2)); err != nil {
		t.Fatalf("Write register: %v", err)
	}
	c.ClearVariables()
	if _, err := c.Read(calc.VariableLocation('a')); !calcerr.Is(err, calcerr.ValueNotDefined) {
		t.Errorf("variable survived ClearVariables: err = %v", err)
	}
	if v, err := c.Read(calc.IntegerLocation(0)); err != nil || v.String() != "2" {
		t.Errorf("numbered register lost: %s, %v", v, err)
	}
}

func TestToJulianDay(t *testing.T) {
	_, c := newTestContext(t)
	pushInts(t, c, 2000, 1, 1)
	if err := c.Date(); err != nil {
		t.Fatalf("Date: %v", err)
	}
	if err := c.ToJulianDay(); err != nil {
		t.Fatalf("ToJulianDay: %v", err)
	}
	if got := topString(t, c); got != "2451545" {
		t.Errorf("JDN(2000-01-01) = %s, want 2451545", got)
	}

	pushInts(t, c, 7)
	if err := c.ToJulianDay(); !calcerr.Is(err, calcerr.DataTypeMismatch) {
		t.Errorf("ToJulianDay of a number: err = %v, want DataTypeMismatch", err)
	}
}
