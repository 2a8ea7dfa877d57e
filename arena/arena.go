// Package arena implements the fixed-size byte-arena store backing every
// heap-resident value in the engine: numbers, complex pairs, vectors and
// matrices' backing arrays, and undo records. The serialization contract
// lives in package storage, which this package builds on.
//
// Every operation that must reconstruct a stored object (Drop, reclaim
// migration) takes an explicit Decoder callback from its caller rather
// than discovering it on its own; the caller is always the package that
// owns the concrete type (number, value, matrix, undo), so this never
// forces a dependency cycle back into arena.
package arena

import (
	"sort"
	"sync"

	"rpnengine/calcerr"
	"rpnengine/storage"
)

// StorageSize is the total size, in bytes, of the single arena backing
// every heap-resident value.
const StorageSize = 65536

const headerSize = 5 // size:u16 + refs:u16 + reclaimable:bool

// Object is any type storable in the arena.
type Object = storage.Object

// Decoder reconstructs a T from its serialized body, running refs through
// the supplied visitor. Every package that stores a concrete type in the
// arena supplies its own Decoder when it needs the arena to reconstruct
// that type (on Drop, or during reclaim migration).
type Decoder[T any] func(r *storage.Reader, refs RefVisitor) (T, error)

// RefVisitor is re-exported from storage so callers of this package don't
// need to import storage directly for the common case.
type RefVisitor = storage.RefVisitor

// Ref is a handle to a single object of serialized type T living in the
// arena. The zero value is the null handle (no object).
type Ref[T any] struct {
	off storage.Offset
}

// Valid reports whether r refers to a real allocation.
func (r Ref[T]) Valid() bool { return r.off != 0 }

// Offset exposes the raw arena offset, e.g. for serializing a Ref as a
// reference inside another stored object's body.
func (r Ref[T]) Offset() storage.Offset { return r.off }

// RefFromOffset reconstructs a Ref from a raw offset, as read back out of a
// containing object's serialized body.
func RefFromOffset[T any](off storage.Offset) Ref[T] { return Ref[T]{off: off} }

type header struct {
	size        uint16
	refs        uint16
	reclaimable bool
}

func readHeader(buf []byte, off storage.Offset) header {
	b := buf[off:]
	return header{
		size:        uint16(b[0]) | uint16(b[1])<<8,
		refs:        uint16(b[2]) | uint16(b[3])<<8,
		reclaimable: b[4] != 0,
	}
}

func writeHeader(buf []byte, off storage.Offset, h header) {
	b := buf[off:]
	b[0] = byte(h.size)
	b[1] = byte(h.size >> 8)
	b[2] = byte(h.refs)
	b[3] = byte(h.refs >> 8)
	if h.reclaimable {
		b[4] = 1
	} else {
		b[4] = 0
	}
}

type freeBlock struct {
	off  storage.Offset
	size uint16
}

// Pruner is called by Alloc when first-fit fails; it should free the oldest
// reclaimable-class allocation it owns and report whether it freed
// anything. undo.NewBuffer installs its buffer's prune method as the Pruner
// through SetPruner, breaking what would otherwise be an arena<->undo
// import cycle.
type Pruner func() bool

// Arena is the single fixed-size byte region. The zero value is not ready
// for use; call New.
type Arena struct {
	mu          sync.Mutex
	buf         []byte
	free        []freeBlock
	used        int
	reclaimable int
	pruner      Pruner
}

// New creates an empty arena of StorageSize bytes. Offset 0 is reserved as
// the null handle, so the usable region is [1, StorageSize).
func New() *Arena {
	a := &Arena{buf: make([]byte, StorageSize)}
	a.free = []freeBlock{{off: 1, size: StorageSize - 1}}
	return a
}

// SetPruner installs the callback used to reclaim undo-log space when
// allocation would otherwise fail.
func (a *Arena) SetPruner(p Pruner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruner = p
}

// UsedBytes is the allocator-reported count of bytes currently in use
// (normal + reclaimable).
func (a *Arena) UsedBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// ReclaimableBytes is the subset of UsedBytes charged to the reclaimable
// class (the undo log).
func (a *Arena) ReclaimableBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reclaimable
}

// FreeBytes is the allocator-reported count of bytes not currently in use.
func (a *Arena) FreeBytes() int {
	return StorageSize - a.UsedBytes()
}

// AvailableBytes is FreeBytes plus ReclaimableBytes: everything an
// allocation could ultimately use once pruning runs.
func (a *Arena) AvailableBytes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return (StorageSize - a.used) + a.reclaimable
}

// alloc performs one first-fit scan. Caller holds a.mu.
func (a *Arena) alloc(size uint16, reclaimable bool) (storage.Offset, bool) {
	total := int(size) + headerSize
	for i, b := range a.free {
		if int(b.size) < total {
			continue
		}
		off := b.off
		remaining := int(b.size) - total
		if remaining > 0 {
			a.free[i] = freeBlock{off: off + storage.Offset(total), size: uint16(remaining)}
		} else {
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
		writeHeader(a.buf, off, header{size: size, refs: 1, reclaimable: reclaimable})
		a.used += total
		if reclaimable {
			a.reclaimable += total
		}
		return off + headerSize, true
	}
	return 0, false
}

// Alloc reserves size bytes of body space, retrying through the installed
// Pruner on first-fit failure until either an allocation succeeds or
// nothing is left to prune.
func (a *Arena) Alloc(size uint16, reclaimable bool) (storage.Offset, error) {
	a.mu.Lock()
	off, ok := a.alloc(size, reclaimable)
	pruner := a.pruner
	a.mu.Unlock()
	for !ok {
		if pruner == nil || !pruner() {
			return 0, calcerr.New(calcerr.OutOfMemory)
		}
		a.mu.Lock()
		off, ok = a.alloc(size, reclaimable)
		a.mu.Unlock()
	}
	return off, nil
}

// freeBody releases the block at bodyOff (header precedes it by headerSize).
// Caller holds a.mu.
func (a *Arena) freeBody(bodyOff storage.Offset) {
	off := bodyOff - headerSize
	h := readHeader(a.buf, off)
	total := int(h.size) + headerSize
	a.used -= total
	if h.reclaimable {
		a.reclaimable -= total
	}
	a.insertFree(off, uint16(total))
}

func (a *Arena) insertFree(off storage.Offset, size uint16) {
	blocks := append(a.free, freeBlock{off: off, size: size})
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].off < blocks[j].off })
	merged := blocks[:0]
	for _, b := range blocks {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if last.off+storage.Offset(last.size) == b.off {
				last.size += b.size
				continue
			}
		}
		merged = append(merged, b)
	}
	a.free = merged
}

// Clone bumps the refcount of the object at bodyOff and returns it, for use
// when a new handle is created that shares the existing allocation.
func (a *Arena) Clone(bodyOff storage.Offset) storage.Offset {
	if bodyOff == 0 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	off := bodyOff - headerSize
	h := readHeader(a.buf, off)
	h.refs++
	writeHeader(a.buf, off, h)
	return bodyOff
}

// body returns the serialized bytes for the object at bodyOff.
func (a *Arena) body(bodyOff storage.Offset) []byte {
	off := bodyOff - headerSize
	h := readHeader(a.buf, off)
	return a.buf[bodyOff : int(bodyOff)+int(h.size)]
}

// Store writes v's serialized form into a fresh allocation and returns a
// handle to it. The normal RefVisitor is used: every reference v holds has
// its refcount bumped, with rollback registered in case the write fails
// partway through.
func Store[T Object](a *Arena, v T, reclaimable bool) (Ref[T], error) {
	sizer := storage.NewSizer()
	if err := v.Serialize(sizer, sizingVisitor{}); err != nil {
		return Ref[T]{}, err
	}
	size := sizer.Size()
	if size > 1<<16-1 {
		return Ref[T]{}, calcerr.New(calcerr.OutOfMemory)
	}
	bodyOff, err := a.Alloc(uint16(size), reclaimable)
	if err != nil {
		return Ref[T]{}, err
	}
	w := storage.NewWriter()
	nrv := newNormalVisitor(a)
	if err := v.Serialize(w, nrv); err != nil {
		nrv.Rollback()
		a.mu.Lock()
		a.freeBody(bodyOff)
		a.mu.Unlock()
		return Ref[T]{}, err
	}
	a.mu.Lock()
	copy(a.buf[bodyOff:int(bodyOff)+size], w.Bytes())
	a.mu.Unlock()
	nrv.Commit()
	return Ref[T]{off: bodyOff}, nil
}

// Get reconstructs the object referred to by ref using decode, running its
// references through the normal visitor (bumping refcounts of anything it
// in turn references, matching the semantics of reading out a clone).
func Get[T Object](a *Arena, ref Ref[T], decode Decoder[T]) (T, error) {
	var zero T
	if !ref.Valid() {
		return zero, calcerr.New(calcerr.CorruptData)
	}
	a.mu.Lock()
	body := append([]byte(nil), a.body(ref.off)...)
	a.mu.Unlock()
	r := storage.NewReader(body)
	return decode(r, newNormalVisitor(a))
}

// Drop releases one reference to ref. When the refcount reaches zero the
// object is reconstructed with the drop visitor (releasing everything it
// in turn referenced) and its storage is freed.
func Drop[T Object](a *Arena, ref Ref[T], decode Decoder[T]) error {
	if !ref.Valid() {
		return nil
	}
	a.mu.Lock()
	off := ref.off - headerSize
	h := readHeader(a.buf, off)
	h.refs--
	writeHeader(a.buf, off, h)
	last := h.refs == 0
	var body []byte
	if last {
		body = append([]byte(nil), a.body(ref.off)...)
	}
	a.mu.Unlock()
	if !last {
		return nil
	}
	if decode != nil {
		r := storage.NewReader(body)
		v, err := decode(r, dropVisitor{})
		if err != nil {
			return err
		}
		if releasable, ok := any(v).(Releasable); ok {
			releasable.Release(a)
		}
	}
	a.mu.Lock()
	a.freeBody(ref.off)
	a.mu.Unlock()
	return nil
}

// MigrateToNormal deep-copies the object ref refers to into the normal
// class, returning a fresh handle and releasing the caller's original ref.
// Used when an undo action is replayed ("popped"): its captured values are
// pulled out of the reclaimable class so later pruning can't invalidate a
// value that is now live on the stack again.
func MigrateToNormal[T Object](a *Arena, ref Ref[T], decode Decoder[T]) (Ref[T], error) {
	return migrate(a, ref, decode, false)
}

// MigrateToReclaimable deep-copies the object ref refers to into the
// reclaimable class, returning a fresh handle and releasing the caller's
// original ref. Used when an undo action is created: the old values it
// captures are duplicated into the reclaimable class so the undo log's
// true footprint (including captured payloads, not just the thin action
// record) is accounted for in reclaimable_bytes and can be pruned without
// touching the live value it was copied from.
func MigrateToReclaimable[T Object](a *Arena, ref Ref[T], decode Decoder[T]) (Ref[T], error) {
	return migrate(a, ref, decode, true)
}

func migrate[T Object](a *Arena, ref Ref[T], decode Decoder[T], reclaimable bool) (Ref[T], error) {
	v, err := Get(a, ref, decode)
	if err != nil {
		return Ref[T]{}, err
	}
	fresh, err := Store(a, v, reclaimable)
	// The decoded temporary owns a count on everything it references (Get
	// hands out a live clone); the stored copy took its own counts, so the
	// temporary's are released here whether or not the store succeeded.
	if releasable, ok := any(v).(Releasable); ok {
		releasable.Release(a)
	}
	if err != nil {
		return Ref[T]{}, err
	}
	if err := Drop(a, ref, decode); err != nil {
		return Ref[T]{}, err
	}
	return fresh, nil
}
