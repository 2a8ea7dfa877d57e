// Package matrix implements the engine's arena-resident sequence types:
// Vector, a 1-D run of individually-stored element handles, and Matrix, a
// row-major 2-D grid built on the same backing array shape. Both are
// generic over the stored element type so this package never needs to
// import package value (whose Value variants embed a Vector and a Matrix
// of themselves); value instantiates Vector[value.Value] and
// Matrix[value.Value] instead, the same Decoder-injection technique arena
// itself uses to avoid the arena<->undo cycle.
//
// Each element is stored and refcounted individually; the owning type
// holds []arena.Ref[T] directly rather than a further-indirected handle to
// the array.
package matrix

import (
	"rpnengine/arena"
	"rpnengine/storage"
)

// Object is any type storable as a vector/matrix element.
type Object = storage.Object

// ArithOps supplies the element arithmetic matrix can't express generically:
// the value package's Value type carries unit- and angle-mode-aware
// addition, multiplication and square root that this package has no way to
// reproduce for an arbitrary T.
type ArithOps[T Object] struct {
	Add  func(a, b T) (T, error)
	Mul  func(a, b T) (T, error)
	Sqrt func(a T) (T, error)
	Zero func() T
}

func serializeRefs[T Object](out *storage.Writer, refs storage.RefVisitor, elements []arena.Ref[T]) error {
	out.WriteU32(uint32(len(elements)))
	for _, r := range elements {
		off, err := refs.WriteRef(r.Offset())
		if err != nil {
			return err
		}
		out.WriteOffset(off)
	}
	return nil
}

func deserializeRefs[T Object](in *storage.Reader, refs storage.RefVisitor) ([]arena.Ref[T], error) {
	n, err := in.ReadU32()
	if err != nil {
		return nil, err
	}
	out := make([]arena.Ref[T], n)
	for i := range out {
		off, err := in.ReadOffset()
		if err != nil {
			return nil, err
		}
		off2, err := refs.ReadRef(off)
		if err != nil {
			return nil, err
		}
		out[i] = arena.RefFromOffset[T](off2)
	}
	return out, nil
}

func releaseRefs[T Object](a *arena.Arena, decode arena.Decoder[T], elements []arena.Ref[T]) {
	for _, r := range elements {
		_ = arena.Drop(a, r, decode)
	}
}
