package matrix_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/matrix"
	"rpnengine/number"
	"rpnengine/value"
)

func num(v int64) value.Value { return value.NumberValue(number.FromInt64(v)) }

func newVec(t *testing.T, a *arena.Arena, vals ...int64) matrix.Vector[value.Value] {
	t.Helper()
	vec := matrix.NewVector[value.Value](value.Decode)
	for _, v := range vals {
		if err := vec.Push(a, num(v)); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
	return vec
}

func vecStrings(t *testing.T, a *arena.Arena, v matrix.Vector[value.Value]) []string {
	t.Helper()
	out := make([]string, v.Len())
	for i := range out {
		e, err := v.Get(a, i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		out[i] = e.String()
	}
	return out
}

func matStrings(t *testing.T, a *arena.Arena, m matrix.Matrix[value.Value]) [][]string {
	t.Helper()
	out := make([][]string, m.Rows())
	for row := range out {
		out[row] = make([]string, m.Cols())
		for col := range out[row] {
			e, err := m.Get(a, row, col)
			if err != nil {
				t.Fatalf("Get(%d, %d): %v", row, col, err)
			}
			out[row][col] = e.String()
		}
	}
	return out
}

func newMat(t *testing.T, a *arena.Arena, rows, cols int, vals ...int64) matrix.Matrix[value.Value] {
	t.Helper()
	m, err := matrix.NewMatrix(a, rows, cols, value.Decode, num(0))
	if err != nil {
		t.Fatalf("NewMatrix(%d, %d): %v", rows, cols, err)
	}
	for i, v := range vals {
		if err := m.Set(a, i/cols, i%cols, num(v), value.Value.IsVectorOrMatrix); err != nil {
			t.Fatalf("Set cell %d: %v", i, err)
		}
	}
	return m
}

func TestVectorInsertAndSet(t *testing.T) {
	a := arena.New()
	vec := newVec(t, a, 1, 3)
	if err := vec.Insert(a, 1, num(2)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := vec.Set(a, 2, num(9)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "2", "9"}, vecStrings(t, a, vec)); diff != "" {
		t.Errorf("vector contents (-want +got):\n%s", diff)
	}
	if _, err := vec.Get(a, 3); !calcerr.Is(err, calcerr.IndexOutOfRange) {
		t.Errorf("Get past the end: err = %v, want IndexOutOfRange", err)
	}
}

func TestVectorPop(t *testing.T) {
	a := arena.New()
	vec := newVec(t, a, 1, 2)
	got, err := vec.Pop(a)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got.String() != "2" || vec.Len() != 1 {
		t.Errorf("Pop = %s (len %d), want 2 (len 1)", got, vec.Len())
	}
	empty := newVec(t, a)
	if _, err := empty.Pop(a); !calcerr.Is(err, calcerr.NotEnoughValues) {
		t.Errorf("Pop of empty vector: err = %v, want NotEnoughValues", err)
	}
}

func TestVectorDot(t *testing.T) {
	a := arena.New()
	x := newVec(t, a, 1, 2, 3)
	y := newVec(t, a, 4, 5, 6)
	got, err := x.Dot(a, y, value.ElementOps())
	if err != nil {
		t.Fatalf("Dot: %v", err)
	}
	if got.String() != "32" {
		t.Errorf("{1,2,3}.{4,5,6} = %s, want 32", got)
	}
	n, err := got.RealNumber()
	if err != nil || n.IsDecimal() {
		t.Errorf("integer dot product lowered to Decimal: %s", got)
	}

	short := newVec(t, a, 1, 2)
	if _, err := x.Dot(a, short, value.ElementOps()); !calcerr.Is(err, calcerr.DimensionMismatch) {
		t.Errorf("length-mismatched dot: err = %v, want DimensionMismatch", err)
	}
}

func TestVectorMagnitudeAndSum(t *testing.T) {
	a := arena.New()
	vec := newVec(t, a, 3, 4)
	mag, err := vec.Magnitude(a, value.ElementOps())
	if err != nil {
		t.Fatalf("Magnitude: %v", err)
	}
	if mag.String() != "5" {
		t.Errorf("|{3,4}| = %s, want 5", mag)
	}
	sum, err := vec.Sum(a, value.ElementOps())
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if sum.String() != "7" {
		t.Errorf("sum{3,4} = %s, want 7", sum)
	}
}

func TestVectorCross(t *testing.T) {
	a := arena.New()
	x := newVec(t, a, 1, 0, 0)
	y := newVec(t, a, 0, 1, 0)
	got, err := x.Cross(a, y, value.ElementOps(), value.Sub)
	if err != nil {
		t.Fatalf("Cross: %v", err)
	}
	if diff := cmp.Diff([]string{"0", "0", "1"}, vecStrings(t, a, got)); diff != "" {
		t.Errorf("e1 x e2 (-want +got):\n%s", diff)
	}
	bad := newVec(t, a, 1, 2)
	if _, err := x.Cross(a, bad, value.ElementOps(), value.Sub); !calcerr.Is(err, calcerr.DimensionMismatch) {
		t.Errorf("cross with a 2-vector: err = %v, want DimensionMismatch", err)
	}
}

func TestVectorRejectsNestedAggregates(t *testing.T) {
	a := arena.New()
	vec := newVec(t, a, 1)
	inner := newVec(t, a, 2)
	if err := vec.Push(a, value.VectorValue(inner)); !calcerr.Is(err, calcerr.DataTypeMismatch) {
		t.Errorf("pushing a vector into a vector: err = %v, want DataTypeMismatch", err)
	}
}

func TestVectorCapacity(t *testing.T) {
	a := arena.New()
	vec := matrix.NewVector[value.Value](value.Decode)
	for i := 0; i < matrix.VectorMaxCapacity; i++ {
		if err := vec.Push(a, num(0)); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if err := vec.Push(a, num(0)); !calcerr.Is(err, calcerr.VectorTooLarge) {
		t.Errorf("push past capacity: err = %v, want VectorTooLarge", err)
	}
}

func TestMatrixMul(t *testing.T) {
	a := arena.New()
	x := newMat(t, a, 2, 2, 1, 2, 3, 4)
	y := newMat(t, a, 2, 2, 5, 6, 7, 8)
	got, err := x.Mul(a, y, value.ElementOps())
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}
	want := [][]string{{"19", "22"}, {"43", "50"}}
	if diff := cmp.Diff(want, matStrings(t, a, got)); diff != "" {
		t.Errorf("matrix product (-want +got):\n%s", diff)
	}

	bad := newMat(t, a, 3, 3)
	if _, err := x.Mul(a, bad, value.ElementOps()); !calcerr.Is(err, calcerr.DimensionMismatch) {
		t.Errorf("2x2 * 3x3: err = %v, want DimensionMismatch", err)
	}
}

func TestMatrixMulVector(t *testing.T) {
	a := arena.New()
	m := newMat(t, a, 2, 3, 1, 2, 3, 4, 5, 6)
	v := newVec(t, a, 7, 8, 9)
	got, err := m.MulVector(a, v, value.ElementOps())
	if err != nil {
		t.Fatalf("MulVector: %v", err)
	}
	if diff := cmp.Diff([]string{"50", "122"}, vecStrings(t, a, got)); diff != "" {
		t.Errorf("m*v (-want +got):\n%s", diff)
	}
}

func TestMatrixTranspose(t *testing.T) {
	a := arena.New()
	m := newMat(t, a, 2, 3, 1, 2, 3, 4, 5, 6)
	got := m.Transpose(a)
	want := [][]string{{"1", "4"}, {"2", "5"}, {"3", "6"}}
	if diff := cmp.Diff(want, matStrings(t, a, got)); diff != "" {
		t.Errorf("transpose (-want +got):\n%s", diff)
	}
}

func TestMatrixToVector(t *testing.T) {
	a := arena.New()
	row := newMat(t, a, 1, 3, 1, 2, 3)
	vec, ok := row.ToVector(a)
	if !ok {
		t.Fatal("1x3 matrix did not collapse to a vector")
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, vecStrings(t, a, vec)); diff != "" {
		t.Errorf("collapsed vector (-want +got):\n%s", diff)
	}
	square := newMat(t, a, 2, 2)
	if _, ok := square.ToVector(a); ok {
		t.Error("2x2 matrix collapsed to a vector")
	}
}

func TestMatrixCapacity(t *testing.T) {
	a := arena.New()
	if _, err := matrix.NewMatrix(a, 33, 32, value.Decode, num(0)); !calcerr.Is(err, calcerr.MatrixTooLarge) {
		t.Errorf("33x32 matrix: err = %v, want MatrixTooLarge", err)
	}
	if _, err := matrix.NewMatrix(a, 32, 32, value.Decode, num(0)); err != nil {
		t.Errorf("32x32 matrix: %v", err)
	}
}

func TestMatrixSetRejectsNestedAggregates(t *testing.T) {
	a := arena.New()
	m := newMat(t, a, 1, 1)
	inner := newVec(t, a, 1)
	err := m.Set(a, 0, 0, value.VectorValue(inner), value.Value.IsVectorOrMatrix)
	if !calcerr.Is(err, calcerr.DataTypeMismatch) {
		t.Errorf("setting a vector cell: err = %v, want DataTypeMismatch", err)
	}
}
