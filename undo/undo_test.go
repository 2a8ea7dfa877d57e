package undo_test

import (
	"testing"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/number"
	"rpnengine/undo"
	"rpnengine/value"
)

func num(v int64) value.Value { return value.NumberValue(number.FromInt64(v)) }

// capture stores v as a live value and migrates it into the reclaimable
// class, the same two steps package calc performs for every value that
// leaves the stack into an undo record.
func capture(t *testing.T, a *arena.Arena, v value.Value) arena.Ref[value.Value] {
	t.Helper()
	ref, err := arena.Store(a, v, false)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	captured, err := arena.MigrateToReclaimable(a, ref, value.Decode)
	if err != nil {
		t.Fatalf("MigrateToReclaimable: %v", err)
	}
	return captured
}

func TestPopIsLIFO(t *testing.T) {
	a := arena.New()
	b := undo.NewBuffer(a)

	if err := b.Push(undo.Push()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := b.Push(undo.Swap(0, 2)); err != nil {
		t.Fatalf("Push: %v", err)
	}

	action, err := b.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if action.Kind() != undo.KindSwap {
		t.Fatalf("first Pop kind = %d, want Swap", action.Kind())
	}
	if x, y := action.SwapIndices(); x != 0 || y != 2 {
		t.Errorf("SwapIndices = (%d, %d), want (0, 2)", x, y)
	}
	action, err = b.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if action.Kind() != undo.KindPush {
		t.Errorf("second Pop kind = %d, want Push", action.Kind())
	}
	if _, err := b.Pop(); !calcerr.Is(err, calcerr.UndoBufferEmpty) {
		t.Errorf("Pop of empty buffer: err = %v, want UndoBufferEmpty", err)
	}
}

func TestPushPrunesPastMaxEntries(t *testing.T) {
	a := arena.New()
	b := undo.NewBuffer(a)
	for i := 0; i < undo.MaxEntries+17; i++ {
		if err := b.Push(undo.Push()); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if b.Len() != undo.MaxEntries {
		t.Errorf("Len = %d, want %d", b.Len(), undo.MaxEntries)
	}
}

func TestActionsLiveInReclaimableClass(t *testing.T) {
	a := arena.New()
	b := undo.NewBuffer(a)
	if err := b.Push(undo.RotateDown()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if a.ReclaimableBytes() == 0 {
		t.Error("ReclaimableBytes = 0 with a recorded action")
	}
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", b.Len())
	}
	if a.ReclaimableBytes() != 0 {
		t.Errorf("ReclaimableBytes after Clear = %d, want 0", a.ReclaimableBytes())
	}
}

func TestPopMigratesCapturedValuesToNormal(t *testing.T) {
	a := arena.New()
	b := undo.NewBuffer(a)

	captured := capture(t, a, num(99))
	if err := b.Push(undo.Pop(captured)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if a.ReclaimableBytes() == 0 {
		t.Fatal("captured value not charged to the reclaimable class")
	}

	action, err := b.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if action.Kind() != undo.KindPop {
		t.Fatalf("Kind = %d, want Pop", action.Kind())
	}
	if a.ReclaimableBytes() != 0 {
		t.Errorf("ReclaimableBytes after Pop = %d, want 0 (value back in the normal class)", a.ReclaimableBytes())
	}
	got, err := arena.Get(a, action.Value(), value.Decode)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.String() != "99" {
		t.Errorf("restored value = %s, want 99", got)
	}
}

func TestSerializeRoundTripThroughArena(t *testing.T) {
	a := arena.New()

	tests := []struct {
		name string
		in   undo.Action
	}{
		{"push", undo.Push()},
		{"rotate down", undo.RotateDown()},
		{"swap", undo.Swap(3, 7)},
		{"pop", undo.Pop(capture(t, a, num(5)))},
		{"set stack entry", undo.SetStackEntry(2, capture(t, a, num(6)))},
		{"replace top with multiple", undo.ReplaceTopWithMultiple(4, capture(t, a, num(7)))},
		{"replace", undo.Replace([]arena.Ref[value.Value]{capture(t, a, num(8)), capture(t, a, num(9))})},
		{"clear", undo.Clear([]arena.Ref[value.Value]{capture(t, a, num(10))})},
	}
	for _, test := range tests {
		ref, err := arena.Store(a, test.in, true)
		if err != nil {
			t.Fatalf("%s: Store: %v", test.name, err)
		}
		got, err := arena.Get(a, ref, undo.Decode)
		if err != nil {
			t.Fatalf("%s: Get: %v", test.name, err)
		}
		if got.Kind() != test.in.Kind() {
			t.Errorf("%s: Kind = %d, want %d", test.name, got.Kind(), test.in.Kind())
		}
		switch test.in.Kind() {
		case undo.KindSwap:
			gx, gy := got.SwapIndices()
			wx, wy := test.in.SwapIndices()
			if gx != wx || gy != wy {
				t.Errorf("%s: SwapIndices = (%d, %d), want (%d, %d)", test.name, gx, gy, wx, wy)
			}
		case undo.KindSetStackEntry:
			if got.Index() != test.in.Index() {
				t.Errorf("%s: Index = %d, want %d", test.name, got.Index(), test.in.Index())
			}
		case undo.KindReplaceTopWithMultiple:
			if got.Count() != test.in.Count() {
				t.Errorf("%s: Count = %d, want %d", test.name, got.Count(), test.in.Count())
			}
		case undo.KindReplace, undo.KindClear:
			if len(got.Values()) != len(test.in.Values()) {
				t.Errorf("%s: %d captured values, want %d", test.name, len(got.Values()), len(test.in.Values()))
			}
		}
	}
}

func TestBufferIsArenaPruner(t *testing.T) {
	a := arena.New()
	b := undo.NewBuffer(a)

	for i := 0; i < 20; i++ {
		if err := b.Push(undo.Pop(capture(t, a, num(int64(i))))); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if a.ReclaimableBytes() == 0 {
		t.Fatal("no reclaimable bytes after recording 20 captures")
	}

	// Exhaust the arena with live allocations. Each failed first-fit scan
	// reclaims the oldest undo entry and retries, so by the time Store
	// finally reports OutOfMemory the log must be fully drained.
	var live []arena.Ref[value.Value]
	var lastErr error
	for {
		ref, err := arena.Store(a, num(1), false)
		if err != nil {
			lastErr = err
			break
		}
		live = append(live, ref)
	}
	if !calcerr.Is(lastErr, calcerr.OutOfMemory) {
		t.Errorf("exhaustion error = %v, want OutOfMemory", lastErr)
	}
	if b.Len() != 0 {
		t.Errorf("Len = %d after exhaustion, want 0 (everything pruned)", b.Len())
	}
	if a.ReclaimableBytes() != 0 {
		t.Errorf("ReclaimableBytes = %d after exhaustion, want 0", a.ReclaimableBytes())
	}
	for _, r := range live {
		_ = arena.Drop(a, r, value.Decode)
	}
}
