// Package undo implements the engine's undo log: Action, the eight-shape
// record of what a single stack mutation undid, and Buffer, the bounded
// FIFO of those records that also serves as the arena's Pruner (registered
// via arena.SetPruner so a later allocation can reclaim the oldest undo
// entry instead of failing outright).
//
// Callers build an Action's captured refs by migrating each value into the
// reclaimable arena class (arena.MigrateToReclaimable) at the moment it
// leaves the live stack; pruning accounting stays honest because the whole
// captured payload, not just the thin action record, is charged to the
// reclaimable counter. Pop migrates the other way before handing values
// back, since they are about to become live again.
package undo

import (
	"sync"

	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/storage"
	"rpnengine/value"
)

// MaxEntries bounds the undo log's depth.
const MaxEntries = 100

// Kind identifies which of the eight action shapes an Action holds.
type Kind uint8

const (
	KindPush Kind = iota
	KindPop
	KindReplace
	KindSwap
	KindClear
	KindRotateDown
	KindSetStackEntry
	KindReplaceTopWithMultiple
)

// Action is one undo log entry. Exactly the fields relevant to its Kind are
// populated; the rest are zero.
type Action struct {
	kind   Kind
	value  arena.Ref[value.Value]
	values []arena.Ref[value.Value]
	a, b   int
	idx    int
	count  int
}

// Push records that a value was pushed onto the stack (undoing it pops).
func Push() Action { return Action{kind: KindPush} }

// Pop records that value was popped off the stack (undoing it pushes value
// back). value must already be a reclaimable-class ref (see package doc).
func Pop(v arena.Ref[value.Value]) Action { return Action{kind: KindPop, value: v} }

// Replace records that the stack's top len(values) entries were replaced
// (undoing it restores values in their original order).
func Replace(values []arena.Ref[value.Value]) Action {
	return Action{kind: KindReplace, values: values}
}

// Swap records that stack positions a and b were exchanged.
func Swap(a, b int) Action { return Action{kind: KindSwap, a: a, b: b} }

// Clear records that the entire stack was cleared (undoing it restores
// every value that had been on it).
func Clear(values []arena.Ref[value.Value]) Action {
	return Action{kind: KindClear, values: values}
}

// RotateDown records a whole-stack rotate-down (undoing it rotates up).
func RotateDown() Action { return Action{kind: KindRotateDown} }

// SetStackEntry records that the value previously at idx was overwritten.
func SetStackEntry(idx int, v arena.Ref[value.Value]) Action {
	return Action{kind: KindSetStackEntry, idx: idx, value: v}
}

// ReplaceTopWithMultiple records that the top count entries were collapsed
// into a single value (undoing it expands value back to count entries).
func ReplaceTopWithMultiple(count int, v arena.Ref[value.Value]) Action {
	return Action{kind: KindReplaceTopWithMultiple, count: count, value: v}
}

// Kind reports which shape this action holds.
func (ac Action) Kind() Kind { return ac.kind }

// Value returns the captured value ref for Pop/SetStackEntry/
// ReplaceTopWithMultiple actions.
func (ac Action) Value() arena.Ref[value.Value] { return ac.value }

// Values returns the captured value refs for Replace/Clear actions.
func (ac Action) Values() []arena.Ref[value.Value] { return ac.values }

// SwapIndices returns the two stack positions a Swap action exchanged.
func (ac Action) SwapIndices() (int, int) { return ac.a, ac.b }

// Index returns the stack position a SetStackEntry action overwrote.
func (ac Action) Index() int { return ac.idx }

// Count returns the entry count a ReplaceTopWithMultiple action collapsed.
func (ac Action) Count() int { return ac.count }

// Release drops every value handle the action captured, called via
// arena.Drop's Releasable hook when the action's own storage is freed.
func (ac Action) Release(a *arena.Arena) {
	switch ac.kind {
	case KindPop, KindSetStackEntry, KindReplaceTopWithMultiple:
		_ = arena.Drop(a, ac.value, value.Decode)
	case KindReplace, KindClear:
		for _, r := range ac.values {
			_ = arena.Drop(a, r, value.Decode)
		}
	}
}

const (
	tagPush uint8 = iota
	tagPop
	tagReplace
	tagSwap
	tagClear
	tagRotateDown
	tagSetStackEntry
	tagReplaceTopWithMultiple
)

func (ac Action) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	switch ac.kind {
	case KindPush:
		out.WriteU8(tagPush)
	case KindPop:
		out.WriteU8(tagPop)
		if err := writeRef(out, refs, ac.value); err != nil {
			return err
		}
	case KindReplace:
		out.WriteU8(tagReplace)
		if err := writeRefs(out, refs, ac.values); err != nil {
			return err
		}
	case KindSwap:
		out.WriteU8(tagSwap)
		out.WriteU32(uint32(ac.a))
		out.WriteU32(uint32(ac.b))
	case KindClear:
		out.WriteU8(tagClear)
		if err := writeRefs(out, refs, ac.values); err != nil {
			return err
		}
	case KindRotateDown:
		out.WriteU8(tagRotateDown)
	case KindSetStackEntry:
		out.WriteU8(tagSetStackEntry)
		out.WriteU32(uint32(ac.idx))
		if err := writeRef(out, refs, ac.value); err != nil {
			return err
		}
	case KindReplaceTopWithMultiple:
		out.WriteU8(tagReplaceTopWithMultiple)
		out.WriteU32(uint32(ac.count))
		if err := writeRef(out, refs, ac.value); err != nil {
			return err
		}
	default:
		return calcerr.New(calcerr.CorruptData)
	}
	return nil
}

func writeRef(out *storage.Writer, refs storage.RefVisitor, r arena.Ref[value.Value]) error {
	off, err := refs.WriteRef(r.Offset())
	if err != nil {
		return err
	}
	out.WriteOffset(off)
	return nil
}

func writeRefs(out *storage.Writer, refs storage.RefVisitor, rs []arena.Ref[value.Value]) error {
	out.WriteU32(uint32(len(rs)))
	for _, r := range rs {
		if err := writeRef(out, refs, r); err != nil {
			return err
		}
	}
	return nil
}

func readRef(in *storage.Reader, refs storage.RefVisitor) (arena.Ref[value.Value], error) {
	off, err := in.ReadOffset()
	if err != nil {
		return arena.Ref[value.Value]{}, err
	}
	off2, err := refs.ReadRef(off)
	if err != nil {
		return arena.Ref[value.Value]{}, err
	}
	return arena.RefFromOffset[value.Value](off2), nil
}

func readRefs(in *storage.Reader, refs storage.RefVisitor) ([]arena.Ref[value.Value], error) {
	n, err := in.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]arena.Ref[value.Value], n)
	for i := range out {
		r, err := readRef(in, refs)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Decode reconstructs an Action from its serialized body; it is the
// arena.Decoder passed to arena.Store/Get/Drop wherever an Action is the
// concrete stored type.
func Decode(in *storage.Reader, refs storage.RefVisitor) (Action, error) {
	tag, err := in.ReadU8()
	if err != nil {
		return Action{}, err
	}
	switch tag {
	case tagPush:
		return Push(), nil
	case tagPop:
		r, err := readRef(in, refs)
		if err != nil {
			return Action{}, err
		}
		return Pop(r), nil
	case tagReplace:
		rs, err := readRefs(in, refs)
		if err != nil {
			return Action{}, err
		}
		return Replace(rs), nil
	case tagSwap:
		a, err := in.ReadU32()
		if err != nil {
			return Action{}, err
		}
		b, err := in.ReadU32()
		if err != nil {
			return Action{}, err
		}
		return Swap(int(a), int(b)), nil
	case tagClear:
		rs, err := readRefs(in, refs)
		if err != nil {
			return Action{}, err
		}
		return Clear(rs), nil
	case tagRotateDown:
		return RotateDown(), nil
	case tagSetStackEntry:
		idx, err := in.ReadU32()
		if err != nil {
			return Action{}, err
		}
		r, err := readRef(in, refs)
		if err != nil {
			return Action{}, err
		}
		return SetStackEntry(int(idx), r), nil
	case tagReplaceTopWithMultiple:
		count, err := in.ReadU32()
		if err != nil {
			return Action{}, err
		}
		r, err := readRef(in, refs)
		if err != nil {
			return Action{}, err
		}
		return ReplaceTopWithMultiple(int(count), r), nil
	default:
		return Action{}, calcerr.New(calcerr.CorruptData)
	}
}

// Buffer is the bounded undo log for a single Arena. It registers itself as
// that arena's Pruner, so an allocation that would otherwise fail first
// reclaims the oldest undo entry.
type Buffer struct {
	mu      sync.Mutex
	a       *arena.Arena
	entries []arena.Ref[Action]
}

// NewBuffer creates an empty undo log over a and installs it as a's Pruner.
func NewBuffer(a *arena.Arena) *Buffer {
	b := &Buffer{a: a}
	a.SetPruner(b.prune)
	return b
}

// Push appends action to the log, storing it in the reclaimable arena
// class. Entries are dropped from the front once the log exceeds
// MaxEntries. Any captured value refs inside action must already be
// reclaimable-class (see package doc); Push itself performs no migration,
// but it does take ownership of them: the stored record holds its own
// count on each captured ref, and the caller's count is released here, so
// a captured value's lifetime ends with the record's (pruned, popped, or
// cleared) rather than leaking the caller's handle.
func (b *Buffer) Push(action Action) error {
	ref, err := arena.Store(b.a, action, true)
	action.Release(b.a)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.entries = append(b.entries, ref)
	for len(b.entries) > MaxEntries {
		b.dropOldestLocked()
	}
	b.mu.Unlock()
	return nil
}

// Pop removes and returns the most recently pushed action, migrating any
// value it captured back to the normal arena class, since those values are about
// to become live again on the caller's stack.
func (b *Buffer) Pop() (Action, error) {
	b.mu.Lock()
	if len(b.entries) == 0 {
		b.mu.Unlock()
		return Action{}, calcerr.New(calcerr.UndoBufferEmpty)
	}
	ref := b.entries[len(b.entries)-1]
	b.entries = b.entries[:len(b.entries)-1]
	b.mu.Unlock()

	action, err := arena.Get(b.a, ref, Decode)
	if err != nil {
		return Action{}, err
	}
	restored, err := restoreToNormal(b.a, action)
	if err != nil {
		return Action{}, err
	}
	if err := arena.Drop(b.a, ref, Decode); err != nil {
		return Action{}, err
	}
	return restored, nil
}

func restoreToNormal(a *arena.Arena, ac Action) (Action, error) {
	switch ac.kind {
	case KindPop:
		fresh, err := arena.MigrateToNormal(a, ac.value, value.Decode)
		if err != nil {
			return Action{}, err
		}
		return Pop(fresh), nil
	case KindReplace, KindClear:
		fresh := make([]arena.Ref[value.Value], len(ac.values))
		for i, r := range ac.values {
			f, err := arena.MigrateToNormal(a, r, value.Decode)
			if err != nil {
				return Action{}, err
			}
			fresh[i] = f
		}
		if ac.kind == KindReplace {
			return Replace(fresh), nil
		}
		return Clear(fresh), nil
	case KindSetStackEntry:
		fresh, err := arena.MigrateToNormal(a, ac.value, value.Decode)
		if err != nil {
			return Action{}, err
		}
		return SetStackEntry(ac.idx, fresh), nil
	case KindReplaceTopWithMultiple:
		fresh, err := arena.MigrateToNormal(a, ac.value, value.Decode)
		if err != nil {
			return Action{}, err
		}
		return ReplaceTopWithMultiple(ac.count, fresh), nil
	default:
		return ac, nil
	}
}

// prune removes the oldest entry, reporting whether anything was removed.
// It is installed as the arena's Pruner, so it is also called whenever an
// unrelated allocation would otherwise fail.
func (b *Buffer) prune() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropOldestLocked()
}

func (b *Buffer) dropOldestLocked() bool {
	if len(b.entries) == 0 {
		return false
	}
	ref := b.entries[0]
	b.entries = b.entries[1:]
	_ = arena.Drop(b.a, ref, Decode)
	return true
}

// Clear discards every entry in the log.
func (b *Buffer) Clear() {
	b.mu.Lock()
	entries := b.entries
	b.entries = nil
	b.mu.Unlock()
	for _, ref := range entries {
		_ = arena.Drop(b.a, ref, Decode)
	}
}

// Len reports the number of entries currently in the log.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
