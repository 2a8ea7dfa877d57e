// Package storage defines the uniform contract every heap-resident type
// implements so the arena (package arena) can encode and decode it without
// knowing its concrete shape: the Object/Decoder pair, the RefVisitor
// interception point for references, and the little-endian Writer/Reader
// primitives.
package storage

import (
	"encoding/binary"

	"rpnengine/calcerr"
)

// Offset is a 16-bit byte offset into the arena; the only way any type in
// this engine refers to heap-resident data.
type Offset uint16

// Object is implemented by every type that can live in the arena: numbers,
// complex pairs, vectors, matrices, undo records. Serialize/Deserialize run
// against a RefVisitor so that every reference the object holds passes
// through one central interception point (see RefVisitor).
type Object interface {
	Serialize(out *Writer, refs RefVisitor) error
}

// A Decoder reconstructs one Object of a known concrete type from a byte
// stream. Each storable type registers one via its package (e.g.
// number.Decode, matrix.DecodeVector).
type Decoder[T Object] func(in *Reader, refs RefVisitor) (T, error)

// RefVisitor is passed through every Serialize/Decode call and is the
// single place that sees every handle a stored object holds. Exactly one of
// three concrete visitors is used for a given pass:
//
//   - Sizing: touches no refcounts; used for the size-only pass that
//     measures an object before the real write.
//   - Normal: bumps the target's refcount on write, registers a rollback
//     closure in case the surrounding serialization later fails.
//   - Drop: touches no refcounts; used when an object's held references are
//     meant to be released as a side effect of the containing handle being
//     dropped.
type RefVisitor interface {
	// WriteRef is called for each outgoing reference while serializing.
	WriteRef(target Offset) (Offset, error)
	// ReadRef is called for each reference recovered while deserializing.
	ReadRef(target Offset) (Offset, error)
	// Commit clears any pending rollback closures once the surrounding
	// write has fully succeeded.
	Commit()
	// Rollback invokes and clears any pending rollback closures; called
	// when the surrounding write failed partway through.
	Rollback()
}

// Writer accumulates a serialized body. When SizeOnly is true it is used
// for the sizing pass that runs before every real write, and it appends
// zero bytes in place of the data so that Size reports the real length.
type Writer struct {
	SizeOnly bool
	buf      []byte
}

// NewSizer returns a Writer in size-only mode: each write appends that many
// zero bytes instead of the data, so Size reports what the real write needs.
func NewSizer() *Writer { return &Writer{SizeOnly: true} }

// NewWriter returns a Writer that appends to buf, growing it with append.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns what has been written so far. Invalid in size-only mode.
func (w *Writer) Bytes() []byte { return w.buf }

// Size returns the number of bytes written (or that would be written).
func (w *Writer) Size() int {
	if w.SizeOnly {
		return len(w.buf)
	}
	return len(w.buf)
}

func (w *Writer) Write(p []byte) error {
	if w.SizeOnly {
		w.buf = append(w.buf, make([]byte, len(p))...)
		return nil
	}
	w.buf = append(w.buf, p...)
	return nil
}

func (w *Writer) WriteU8(v uint8) { _ = w.Write([]byte{v}) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_ = w.Write(b[:])
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_ = w.Write(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_ = w.Write(b[:])
}

func (w *Writer) WriteBytes(p []byte) {
	w.WriteU32(uint32(len(p)))
	_ = w.Write(p)
}

func (w *Writer) WriteOffset(o Offset) { w.WriteU16(uint16(o)) }

// Reader walks a previously serialized body.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) read(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, calcerr.New(calcerr.CorruptData)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	return b != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.read(int(n))
}

func (r *Reader) ReadOffset() (Offset, error) {
	v, err := r.ReadU16()
	return Offset(v), err
}

// Remaining reports whether unread bytes remain.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
