package calc_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rpnengine/arena"
	"rpnengine/calc"
	"rpnengine/calcerr"
	"rpnengine/number"
	"rpnengine/undo"
	"rpnengine/value"
)

func num(v int64) value.Value { return value.NumberValue(number.FromInt64(v)) }

func newUndoStack(t *testing.T) (*arena.Arena, *calc.Stack) {
	t.Helper()
	a := arena.New()
	return a, calc.NewStackWithUndo(a, undo.NewBuffer(a))
}

func stackStrings(t *testing.T, s *calc.Stack) []string {
	t.Helper()
	out := make([]string, s.Len())
	for i := 0; i < s.Len(); i++ {
		v, err := s.Entry(i)
		if err != nil {
			t.Fatalf("Entry(%d): %v", i, err)
		}
		out[s.Len()-1-i] = v.String() // render bottom-to-top
	}
	return out
}

func pushAll(t *testing.T, s *calc.Stack, vals ...int64) {
	t.Helper()
	for _, v := range vals {
		if err := s.Push(num(v)); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
}

func TestPushPopEntry(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)

	top, err := s.Top()
	if err != nil || top.String() != "3" {
		t.Fatalf("Top = %s, %v", top, err)
	}
	second, err := s.Entry(1)
	if err != nil || second.String() != "2" {
		t.Fatalf("Entry(1) = %s, %v", second, err)
	}
	popped, err := s.Pop()
	if err != nil || popped.String() != "3" {
		t.Fatalf("Pop = %s, %v", popped, err)
	}
	if diff := cmp.Diff([]string{"1", "2"}, stackStrings(t, s)); diff != "" {
		t.Errorf("stack after pop (-want +got):\n%s", diff)
	}
	if _, err := s.Entry(5); !calcerr.Is(err, calcerr.NotEnoughValues) {
		t.Errorf("Entry(5): err = %v, want NotEnoughValues", err)
	}
}

func TestEventNotifications(t *testing.T) {
	_, s := newUndoStack(t)
	var events []calc.StackEventKind
	s.AddEventNotify(func(e calc.StackEvent) { events = append(events, e.Kind) })

	pushAll(t, s, 1, 2)
	if _, err := s.Pop(); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if err := s.SetTop(num(9)); err != nil {
		t.Fatalf("SetTop: %v", err)
	}
	s.Clear()

	want := []calc.StackEventKind{
		calc.EventValuePushed,
		calc.EventValuePushed,
		calc.EventValuePopped,
		calc.EventValueChanged,
		calc.EventInvalidate,
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("event sequence (-want +got):\n%s", diff)
	}
}

func TestReplaceEntriesEvents(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)
	var events []calc.StackEventKind
	s.AddEventNotify(func(e calc.StackEvent) { events = append(events, e.Kind) })

	if err := s.ReplaceEntries(2, num(5)); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	// One change at the bottom of the replaced range, then count-1 pops.
	want := []calc.StackEventKind{calc.EventValueChanged, calc.EventValuePopped}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("event sequence (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "5"}, stackStrings(t, s)); diff != "" {
		t.Errorf("stack (-want +got):\n%s", diff)
	}
}

func TestValueForIntegerMode(t *testing.T) {
	tests := []struct {
		name string
		mode calc.IntegerMode
		in   int64
		want string
	}{
		{"float passthrough", calc.FloatMode(), 200, "200"},
		{"big integer", calc.BigIntegerMode(), -7, "-7"},
		{"8-bit signed wraps", calc.SizedMode(8, true), 200, "-56"},
		{"8-bit signed small", calc.SizedMode(8, true), 100, "100"},
		{"8-bit unsigned masks", calc.SizedMode(8, false), 300, "44"},
		{"16-bit signed all ones", calc.SizedMode(16, true), 65535, "-1"},
		{"16-bit unsigned", calc.SizedMode(16, false), 65535, "65535"},
		{"12-bit non-power-friendly width still masks", calc.SizedMode(12, false), 5000, "904"},
		{"negative through 8-bit unsigned", calc.SizedMode(8, false), -1, "255"},
	}
	for _, test := range tests {
		got := calc.ValueForIntegerMode(test.mode, num(test.in))
		if got.String() != test.want {
			t.Errorf("%s: ValueForIntegerMode(%d) = %s, want %s", test.name, test.in, got, test.want)
		}
	}
}

func TestSwapAndRotate(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)

	if err := s.Swap(0, 2); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if diff := cmp.Diff([]string{"3", "2", "1"}, stackStrings(t, s)); diff != "" {
		t.Errorf("after swap (-want +got):\n%s", diff)
	}
	s.RotateDown()
	if diff := cmp.Diff([]string{"1", "3", "2"}, stackStrings(t, s)); diff != "" {
		t.Errorf("after rotate down (-want +got):\n%s", diff)
	}
}

func TestEnterDuplicatesTop(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 7)
	if err := s.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if diff := cmp.Diff([]string{"7", "7"}, stackStrings(t, s)); diff != "" {
		t.Errorf("after enter (-want +got):\n%s", diff)
	}
	// Enter arms InputValue to overwrite rather than push.
	if err := s.InputValue(num(9)); err != nil {
		t.Fatalf("InputValue: %v", err)
	}
	if diff := cmp.Diff([]string{"7", "9"}, stackStrings(t, s)); diff != "" {
		t.Errorf("after input (-want +got):\n%s", diff)
	}
}

func TestUndoSetEntry(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)
	want := stackStrings(t, s)
	if err := s.SetEntry(1, num(42)); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "42", "3"}, stackStrings(t, s)); diff != "" {
		t.Fatalf("after set (-want +got):\n%s", diff)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if diff := cmp.Diff(want, stackStrings(t, s)); diff != "" {
		t.Errorf("restored stack (-want +got):\n%s", diff)
	}
}

// TestUndoUnwindsFullHistory is the undo-redo round-trip property: a
// sequence of recorded operations undone one at a time walks back through
// exactly the forward states, ending at the initial stack.
func TestUndoUnwindsFullHistory(t *testing.T) {
	_, s := newUndoStack(t)

	pushAll(t, s, 5)
	after5 := stackStrings(t, s)
	pushAll(t, s, 3)
	after3 := stackStrings(t, s)
	if err := s.Swap(0, 1); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	afterSwap := stackStrings(t, s)
	if err := s.ReplaceEntries(2, num(-2)); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	if diff := cmp.Diff([]string{"-2"}, stackStrings(t, s)); diff != "" {
		t.Fatalf("after replace (-want +got):\n%s", diff)
	}

	steps := []struct {
		name string
		want []string
	}{
		{"undo replace", afterSwap},
		{"undo swap", after3},
		{"undo push 3", after5},
		{"undo push 5", []string{}},
	}
	for _, step := range steps {
		if err := s.Undo(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		got := stackStrings(t, s)
		if len(step.want) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(step.want, got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", step.name, diff)
		}
	}
	if err := s.Undo(); !calcerr.Is(err, calcerr.UndoBufferEmpty) {
		t.Errorf("Undo past history: err = %v, want UndoBufferEmpty", err)
	}
}

func TestUndoClearRestoresEverything(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)
	want := stackStrings(t, s)
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len after clear = %d", s.Len())
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if diff := cmp.Diff(want, stackStrings(t, s)); diff != "" {
		t.Errorf("restored stack (-want +got):\n%s", diff)
	}
}

func TestUndoRotateDown(t *testing.T) {
	_, s := newUndoStack(t)
	pushAll(t, s, 1, 2, 3)
	want := stackStrings(t, s)
	s.RotateDown()
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if diff := cmp.Diff(want, stackStrings(t, s)); diff != "" {
		t.Errorf("restored stack (-want +got):\n%s", diff)
	}
}

func TestUndoLeavesNoReclaimableResidue(t *testing.T) {
	a, s := newUndoStack(t)
	pushAll(t, s, 5, 3)
	if err := s.ReplaceEntries(2, num(8)); err != nil {
		t.Fatalf("ReplaceEntries: %v", err)
	}
	if a.ReclaimableBytes() == 0 {
		t.Fatal("no reclaimable bytes recorded for the replace")
	}
	for s.Len() > 0 || a.ReclaimableBytes() > 0 {
		if err := s.Undo(); err != nil {
			break
		}
	}
	if a.ReclaimableBytes() != 0 {
		t.Errorf("ReclaimableBytes = %d after full unwind, want 0", a.ReclaimableBytes())
	}
}
