package calc

import (
	"math/big"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/number"
	"rpnengine/undo"
	"rpnengine/value"
)

// MaxStackEntries bounds the live value stack.
const MaxStackEntries = 1024

// StackEventKind identifies what changed on the stack, for UI cache
// invalidation.
type StackEventKind uint8

const (
	EventValuePushed StackEventKind = iota
	EventValuePopped
	EventValueChanged
	EventTopReplacedWithEntries
	EventRotateUp
	EventInvalidate
)

// StackEvent is delivered to every callback registered via
// Stack.AddEventNotify.
type StackEvent struct {
	Kind  StackEventKind
	Index int // valid for EventValueChanged
	Count int // valid for EventTopReplacedWithEntries
}

// Stack is the engine's undo-aware value stack: every mutator has a public
// form that records an UndoAction (when undo is enabled) and a private
// "internal" form used both by the public mutators and by Undo's replay,
// which must reproduce the same structural change without re-recording it.
type Stack struct {
	a            *arena.Arena
	undoBuf      *undo.Buffer
	entries      []arena.Ref[value.Value]
	pushNewEntry bool
	empty        bool
	notifications []func(StackEvent)
}

// NewStack creates an empty stack with undo recording disabled.
func NewStack(a *arena.Arena) *Stack {
	return &Stack{a: a, empty: true}
}

// NewStackWithUndo creates an empty stack that records every mutation into
// undoBuf.
func NewStackWithUndo(a *arena.Arena, undoBuf *undo.Buffer) *Stack {
	return &Stack{a: a, empty: true, undoBuf: undoBuf}
}

// AddEventNotify registers fn to be called on every stack mutation.
func (s *Stack) AddEventNotify(fn func(StackEvent)) {
	s.notifications = append(s.notifications, fn)
}

func (s *Stack) notify(e StackEvent) {
	for _, fn := range s.notifications {
		fn(e)
	}
}

// Len reports the number of live entries.
func (s *Stack) Len() int { return len(s.entries) }

// ValueForIntegerMode coerces v per mode: Float leaves v untouched,
// BigInteger truncates to an exact integer when possible, Sized
// additionally masks to the configured bit width and reinterprets the sign
// bit when signed.
func ValueForIntegerMode(mode IntegerMode, v value.Value) value.Value {
	switch mode.Kind {
	case IntegerModeFloat:
		return v
	case IntegerModeBigInteger:
		n, err := v.ToInt()
		if err != nil {
			return v
		}
		return value.NumberValue(n)
	case IntegerModeSized:
		n, err := v.ToInt()
		if err != nil {
			return v
		}
		i, ok := n.AsInt()
		if !ok {
			return v
		}
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), mode.Size), big.NewInt(1))
		masked := new(big.Int).And(i, mask)
		if mode.Signed {
			signBit := new(big.Int).Lsh(big.NewInt(1), mode.Size-1)
			if new(big.Int).And(masked, signBit).Sign() != 0 {
				masked = new(big.Int).Neg(new(big.Int).Add(new(big.Int).Xor(masked, mask), big.NewInt(1)))
			}
		}
		return value.NumberValue(number.FromBigInt(masked))
	default:
		return v
	}
}

func (s *Stack) pushInternal(v value.Value) error {
	if len(s.entries) >= MaxStackEntries {
		return calcerr.New(calcerr.StackOverflow)
	}
	ref, err := arena.Store(s.a, v, false)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, ref)
	s.notify(StackEvent{Kind: EventValuePushed})
	s.pushNewEntry = true
	s.empty = false
	return nil
}

// Push appends v as a new top-of-stack entry.
func (s *Stack) Push(v value.Value) error {
	if err := s.pushInternal(v); err != nil {
		return err
	}
	s.pushUndo(undo.Push())
	return nil
}

func (s *Stack) entryRef(idx int) (arena.Ref[value.Value], error) {
	if idx >= len(s.entries) {
		return arena.Ref[value.Value]{}, calcerr.New(calcerr.NotEnoughValues)
	}
	return s.entries[len(s.entries)-1-idx], nil
}

// Entry decodes the value idx positions down from the top (0 is the top).
// The result is an owning clone: a Vector/Matrix result holds its own count
// on each element, released via Value.Release once the caller is done.
func (s *Stack) Entry(idx int) (value.Value, error) {
	ref, err := s.entryRef(idx)
	if err != nil {
		return value.Value{}, err
	}
	return arena.Get(s.a, ref, value.Decode)
}

// Top decodes the top-of-stack value.
func (s *Stack) Top() (value.Value, error) { return s.Entry(0) }

func (s *Stack) topRef() (arena.Ref[value.Value], error) { return s.entryRef(0) }

func (s *Stack) setEntryInternal(idx int, v value.Value) (arena.Ref[value.Value], error) {
	if idx >= len(s.entries) {
		return arena.Ref[value.Value]{}, calcerr.New(calcerr.NotEnoughValues)
	}
	ref, err := arena.Store(s.a, v, false)
	if err != nil {
		return arena.Ref[value.Value]{}, err
	}
	pos := len(s.entries) - 1 - idx
	old := s.entries[pos]
	s.entries[pos] = ref
	s.notify(StackEvent{Kind: EventValueChanged, Index: idx})
	s.empty = false
	return old, nil
}

// SetEntry overwrites the value idx positions down from the top.
func (s *Stack) SetEntry(idx int, v value.Value) error {
	old, err := s.setEntryInternal(idx, v)
	if err != nil {
		return err
	}
	if s.undoBuf != nil {
		if captured, cerr := s.captureOne(old); cerr == nil {
			s.pushUndo(undo.SetStackEntry(idx, captured))
			return nil
		}
	}
	return arena.Drop(s.a, old, value.Decode)
}

// SetTop overwrites the top-of-stack value.
func (s *Stack) SetTop(v value.Value) error {
	old, err := s.setEntryInternal(0, v)
	if err != nil {
		return err
	}
	s.pushNewEntry = true
	s.disposeMany([]arena.Ref[value.Value]{old}, undo.Replace)
	return nil
}

// replaceEntriesInternal collapses the top count entries down to a single
// value v, returning the replaced refs in [bottom-of-range ... former-top]
// order, so an undo.Replace built from them restores the stack exactly as
// it was.
func (s *Stack) replaceEntriesInternal(count int, v value.Value) ([]arena.Ref[value.Value], error) {
	if count > len(s.entries) {
		return nil, calcerr.New(calcerr.NotEnoughValues)
	}
	old := make([]arena.Ref[value.Value], count)
	bottomIdx := len(s.entries) - count
	old[0] = s.entries[bottomIdx]
	ref, err := arena.Store(s.a, v, false)
	if err != nil {
		return nil, err
	}
	s.entries[bottomIdx] = ref
	s.notify(StackEvent{Kind: EventValueChanged, Index: count - 1})
	for i := 1; i < count; i++ {
		old[count-i] = s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]
		s.notify(StackEvent{Kind: EventValuePopped})
	}
	s.pushNewEntry = true
	return old, nil
}

// ReplaceEntries collapses the top count entries down to v.
func (s *Stack) ReplaceEntries(count int, v value.Value) error {
	old, err := s.replaceEntriesInternal(count, v)
	if err != nil {
		return err
	}
	s.disposeMany(old, undo.Replace)
	return nil
}

// ReplaceTopWithMultiple replaces the top entry with the given refs (already
// arena-resident, e.g. a vector's own element handles), in order.
func (s *Stack) ReplaceTopWithMultiple(items []arena.Ref[value.Value]) error {
	oldTop, err := s.topRef()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if _, err := s.popInternal(); err != nil {
			return err
		}
	} else {
		if len(s.entries)+len(items)-1 >= MaxStackEntries {
			return calcerr.New(calcerr.StackOverflow)
		}
		pos := len(s.entries) - 1
		s.entries[pos] = items[0]
		s.entries = append(s.entries, items[1:]...)
		s.notify(StackEvent{Kind: EventTopReplacedWithEntries, Count: len(items)})
		s.pushNewEntry = true
		s.empty = false
	}
	count := len(items)
	s.disposeOne(oldTop, func(r arena.Ref[value.Value]) undo.Action {
		return undo.ReplaceTopWithMultiple(count, r)
	})
	return nil
}

func (s *Stack) popInternal() (arena.Ref[value.Value], error) {
	if len(s.entries) == 0 {
		return arena.Ref[value.Value]{}, calcerr.New(calcerr.NotEnoughValues)
	}
	ref := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	s.notify(StackEvent{Kind: EventValuePopped})
	return ref, nil
}

// Pop removes and decodes the top-of-stack value.
func (s *Stack) Pop() (value.Value, error) {
	ref, err := s.popInternal()
	if err != nil {
		return value.Value{}, err
	}
	v, err := arena.Get(s.a, ref, value.Decode)
	if err != nil {
		return value.Value{}, err
	}
	s.disposeOne(ref, undo.Pop)
	return v, nil
}

func (s *Stack) swapInternal(aIdx, bIdx int) error {
	a, err := s.entryRef(aIdx)
	if err != nil {
		return err
	}
	b, err := s.entryRef(bIdx)
	if err != nil {
		return err
	}
	posA := len(s.entries) - 1 - aIdx
	posB := len(s.entries) - 1 - bIdx
	s.entries[posA] = b
	s.entries[posB] = a
	s.notify(StackEvent{Kind: EventValueChanged, Index: aIdx})
	s.notify(StackEvent{Kind: EventValueChanged, Index: bIdx})
	s.pushNewEntry = true
	return nil
}

// Swap exchanges the values at two stack positions.
func (s *Stack) Swap(aIdx, bIdx int) error {
	if err := s.swapInternal(aIdx, bIdx); err != nil {
		return err
	}
	s.pushUndo(undo.Swap(aIdx, bIdx))
	return nil
}

// RotateDown moves the top entry to the bottom of the stack.
func (s *Stack) RotateDown() {
	if len(s.entries) > 1 {
		s.pushUndo(undo.RotateDown())
		top := s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]
		s.entries = append([]arena.Ref[value.Value]{top}, s.entries...)
		s.notify(StackEvent{Kind: EventValuePopped})
	}
}

func (s *Stack) rotateUpInternal() {
	if len(s.entries) > 1 {
		bottom := s.entries[0]
		s.entries = append(s.entries[1:], bottom)
		s.notify(StackEvent{Kind: EventRotateUp})
		s.pushNewEntry = true
	}
}

// Clear removes every entry.
func (s *Stack) Clear() {
	old := append([]arena.Ref[value.Value]{}, s.entries...)
	s.disposeMany(old, undo.Clear)
	s.entries = nil
	s.notify(StackEvent{Kind: EventInvalidate})
	s.pushNewEntry = false
	s.empty = true
}

// Enter duplicates the top entry as a new push.
func (s *Stack) Enter() error {
	top, err := s.Top()
	if err != nil {
		return err
	}
	err = s.Push(top)
	top.Release(s.a)
	if err != nil {
		return err
	}
	s.pushNewEntry = false
	return nil
}

// InputValue pushes v as a new entry if the last operation completed one
// (push_new_entry), otherwise overwrites the in-progress top entry, the
// digit-entry/operator distinction a real keypad driver relies on.
func (s *Stack) InputValue(v value.Value) error {
	if s.pushNewEntry {
		return s.Push(v)
	}
	return s.SetTop(v)
}

// ClearUndoBuffer discards every recorded undo entry.
func (s *Stack) ClearUndoBuffer() {
	if s.undoBuf != nil {
		s.undoBuf.Clear()
	}
}

// InvalidateCaches notifies listeners without changing any data, used after
// a display-format change that affects every cached rendering.
func (s *Stack) InvalidateCaches() { s.notify(StackEvent{Kind: EventInvalidate}) }

// Undo replays the most recently recorded undo action. It bypasses every
// public mutator, so replaying does not itself record a new undo entry;
// there is no redo stack.
func (s *Stack) Undo() error {
	if s.undoBuf == nil {
		return calcerr.New(calcerr.UndoBufferEmpty)
	}
	action, err := s.undoBuf.Pop()
	if err != nil {
		return err
	}
	switch action.Kind() {
	case undo.KindPush:
		ref, err := s.popInternal()
		if err != nil {
			return err
		}
		return arena.Drop(s.a, ref, value.Decode)

	case undo.KindPop:
		ref := action.Value()
		v, err := arena.Get(s.a, ref, value.Decode)
		if err != nil {
			return err
		}
		if err := arena.Drop(s.a, ref, value.Decode); err != nil {
			return err
		}
		err = s.pushInternal(v)
		v.Release(s.a)
		return err

	case undo.KindReplace:
		values := action.Values()
		if len(values) == 0 {
			ref, err := s.popInternal()
			if err != nil {
				return err
			}
			return arena.Drop(s.a, ref, value.Decode)
		}
		v0, err := arena.Get(s.a, values[0], value.Decode)
		if err != nil {
			return err
		}
		if err := arena.Drop(s.a, values[0], value.Decode); err != nil {
			return err
		}
		old, err := s.setEntryInternal(0, v0)
		v0.Release(s.a)
		if err != nil {
			return err
		}
		if err := arena.Drop(s.a, old, value.Decode); err != nil {
			return err
		}
		for _, ref := range values[1:] {
			v, err := arena.Get(s.a, ref, value.Decode)
			if err != nil {
				return err
			}
			if err := arena.Drop(s.a, ref, value.Decode); err != nil {
				return err
			}
			err = s.pushInternal(v)
			v.Release(s.a)
			if err != nil {
				return err
			}
		}
		return nil

	case undo.KindSwap:
		a, b := action.SwapIndices()
		return s.swapInternal(a, b)

	case undo.KindClear:
		values := action.Values()
		restored := make([]arena.Ref[value.Value], 0, len(values)+len(s.entries))
		for _, ref := range values {
			v, err := arena.Get(s.a, ref, value.Decode)
			if err != nil {
				return err
			}
			if err := arena.Drop(s.a, ref, value.Decode); err != nil {
				return err
			}
			fresh, err := arena.Store(s.a, v, false)
			v.Release(s.a)
			if err != nil {
				return err
			}
			restored = append(restored, fresh)
		}
		if !s.empty {
			restored = append(restored, s.entries...)
		}
		s.entries = restored
		s.notify(StackEvent{Kind: EventInvalidate})
		s.pushNewEntry = true
		s.empty = false
		return nil

	case undo.KindRotateDown:
		s.rotateUpInternal()
		return nil

	case undo.KindSetStackEntry:
		ref := action.Value()
		v, err := arena.Get(s.a, ref, value.Decode)
		if err != nil {
			return err
		}
		if err := arena.Drop(s.a, ref, value.Decode); err != nil {
			return err
		}
		old, err := s.setEntryInternal(action.Index(), v)
		v.Release(s.a)
		if err != nil {
			return err
		}
		return arena.Drop(s.a, old, value.Decode)

	case undo.KindReplaceTopWithMultiple:
		ref := action.Value()
		v, err := arena.Get(s.a, ref, value.Decode)
		if err != nil {
			return err
		}
		if err := arena.Drop(s.a, ref, value.Decode); err != nil {
			return err
		}
		old, err := s.replaceEntriesInternal(action.Count(), v)
		v.Release(s.a)
		if err != nil {
			return err
		}
		for _, r := range old {
			_ = arena.Drop(s.a, r, value.Decode)
		}
		return nil

	default:
		return calcerr.New(calcerr.CorruptData)
	}
}

// ---- undo-capture helpers ----
//
// A value leaving the live stack (popped, overwritten, cleared) must be
// duplicated into the reclaimable arena class before it can be referenced
// from an UndoAction (see package undo's doc comment). These helpers do
// that (or, with undo disabled, simply drop the value) so every public
// mutator above reduces to "mutate, then dispose of what left the stack".

func (s *Stack) pushUndo(action undo.Action) {
	if s.undoBuf == nil {
		return
	}
	_ = s.undoBuf.Push(action)
}

func (s *Stack) captureOne(ref arena.Ref[value.Value]) (arena.Ref[value.Value], error) {
	return arena.MigrateToReclaimable(s.a, ref, value.Decode)
}

func (s *Stack) captureMany(refs []arena.Ref[value.Value]) ([]arena.Ref[value.Value], error) {
	out := make([]arena.Ref[value.Value], len(refs))
	for i, r := range refs {
		fresh, err := arena.MigrateToReclaimable(s.a, r, value.Decode)
		if err != nil {
			return nil, err
		}
		out[i] = fresh
	}
	return out, nil
}

func (s *Stack) disposeOne(old arena.Ref[value.Value], build func(arena.Ref[value.Value]) undo.Action) {
	if s.undoBuf != nil {
		if captured, err := s.captureOne(old); err == nil {
			s.pushUndo(build(captured))
			return
		}
	}
	_ = arena.Drop(s.a, old, value.Decode)
}

func (s *Stack) disposeMany(old []arena.Ref[value.Value], build func([]arena.Ref[value.Value]) undo.Action) {
	if s.undoBuf != nil {
		if captured, err := s.captureMany(old); err == nil {
			s.pushUndo(build(captured))
			return
		}
	}
	for _, r := range old {
		_ = arena.Drop(s.a, r, value.Decode)
	}
}
