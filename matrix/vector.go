package matrix

import (
	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/storage"
)

// VectorMaxCapacity bounds how many elements a Vector may hold.
const VectorMaxCapacity = 1000

// Vector is a 1-D run of element handles. Each element is stored in the
// arena independently of the vector's own serialized form, so copying a
// vector (or sharing a Clone'd Vector value between two stack entries) only
// bumps each element's refcount rather than deep-copying it.
type Vector[T Object] struct {
	elements []arena.Ref[T]
	decode   arena.Decoder[T]
}

// NewVector returns an empty vector that decodes and releases elements
// using decode.
func NewVector[T Object](decode arena.Decoder[T]) Vector[T] {
	return Vector[T]{decode: decode}
}

// aggregate is implemented by element types that can themselves be a vector
// or matrix; inserting such a value as an element is rejected, since the
// engine has no tensor type and the no-nesting rule is what rules out
// reference cycles in the arena.
type aggregate interface {
	IsVectorOrMatrix() bool
}

func rejectAggregate[T Object](v T) error {
	if agg, ok := any(v).(aggregate); ok && agg.IsVectorOrMatrix() {
		return calcerr.New(calcerr.DataTypeMismatch)
	}
	return nil
}

// Len reports the number of elements.
func (v Vector[T]) Len() int { return len(v.elements) }

// Get reconstructs the element at idx.
func (v Vector[T]) Get(a *arena.Arena, idx int) (T, error) {
	var zero T
	if idx < 0 || idx >= len(v.elements) {
		return zero, calcerr.New(calcerr.IndexOutOfRange)
	}
	return arena.Get(a, v.elements[idx], v.decode)
}

// GetRef returns the raw handle at idx without decoding it.
func (v Vector[T]) GetRef(idx int) (arena.Ref[T], error) {
	if idx < 0 || idx >= len(v.elements) {
		return arena.Ref[T]{}, calcerr.New(calcerr.IndexOutOfRange)
	}
	return v.elements[idx], nil
}

// Set replaces the element at idx, storing value fresh and dropping
// whatever handle previously occupied the slot.
func (v *Vector[T]) Set(a *arena.Arena, idx int, value T) error {
	if idx < 0 || idx >= len(v.elements) {
		return calcerr.New(calcerr.IndexOutOfRange)
	}
	if err := rejectAggregate(value); err != nil {
		return err
	}
	fresh, err := arena.Store(a, value, false)
	if err != nil {
		return err
	}
	old := v.elements[idx]
	v.elements[idx] = fresh
	return arena.Drop(a, old, v.decode)
}

// Insert shifts elements at and after idx down by one and stores value in
// the gap, growing the vector by one. idx == Len() is a valid append
// position.
func (v *Vector[T]) Insert(a *arena.Arena, idx int, value T) error {
	if idx < 0 || idx > len(v.elements) {
		return calcerr.New(calcerr.IndexOutOfRange)
	}
	if len(v.elements) >= VectorMaxCapacity {
		return calcerr.New(calcerr.VectorTooLarge)
	}
	if err := rejectAggregate(value); err != nil {
		return err
	}
	fresh, err := arena.Store(a, value, false)
	if err != nil {
		return err
	}
	v.elements = append(v.elements, arena.Ref[T]{})
	copy(v.elements[idx+1:], v.elements[idx:])
	v.elements[idx] = fresh
	return nil
}

// Push appends value to the end of the vector.
func (v *Vector[T]) Push(a *arena.Arena, value T) error {
	return v.Insert(a, len(v.elements), value)
}

// Pop removes and returns the last element.
func (v *Vector[T]) Pop(a *arena.Arena) (T, error) {
	var zero T
	n := len(v.elements)
	if n == 0 {
		return zero, calcerr.New(calcerr.NotEnoughValues)
	}
	ref := v.elements[n-1]
	v.elements = v.elements[:n-1]
	value, err := arena.Get(a, ref, v.decode)
	if err != nil {
		return zero, err
	}
	if err := arena.Drop(a, ref, v.decode); err != nil {
		return zero, err
	}
	return value, nil
}

// ExtendWith appends other's elements to v, bumping each element's refcount
// rather than decoding and re-storing it.
func (v *Vector[T]) ExtendWith(a *arena.Arena, other Vector[T]) error {
	if len(v.elements)+len(other.elements) > VectorMaxCapacity {
		return calcerr.New(calcerr.VectorTooLarge)
	}
	for _, r := range other.elements {
		a.Clone(r.Offset())
		v.elements = append(v.elements, r)
	}
	return nil
}

// DeepCopyValues pulls every element out of the reclaimable arena class and
// into the normal class, used when a vector that was captured into an undo
// record is replayed back onto the live stack.
func (v *Vector[T]) DeepCopyValues(a *arena.Arena) error {
	for i, r := range v.elements {
		fresh, err := arena.MigrateToNormal(a, r, v.decode)
		if err != nil {
			return err
		}
		v.elements[i] = fresh
	}
	return nil
}

// Sum folds every element with ops.Add, starting from ops.Zero().
func (v Vector[T]) Sum(a *arena.Arena, ops ArithOps[T]) (T, error) {
	acc := ops.Zero()
	for i := range v.elements {
		e, err := v.Get(a, i)
		if err != nil {
			return acc, err
		}
		acc, err = ops.Add(acc, e)
		if err != nil {
			return acc, err
		}
	}
	return acc, nil
}

// Mean divides Sum by Len, requiring a caller-supplied divide since ArithOps
// has no Div (division by a plain element count isn't expressible generically
// without also requiring a FromInt constructor).
func (v Vector[T]) Mean(a *arena.Arena, ops ArithOps[T], div func(sum T, n int) (T, error)) (T, error) {
	if len(v.elements) == 0 {
		var zero T
		return zero, calcerr.New(calcerr.NotEnoughValues)
	}
	sum, err := v.Sum(a, ops)
	if err != nil {
		return sum, err
	}
	return div(sum, len(v.elements))
}

// Magnitude computes sqrt(dot(v, v)).
func (v Vector[T]) Magnitude(a *arena.Arena, ops ArithOps[T]) (T, error) {
	d, err := v.Dot(a, v, ops)
	if err != nil {
		return d, err
	}
	return ops.Sqrt(d)
}

// Normalize divides every element by the vector's magnitude, via a
// caller-supplied element/element division (ArithOps has no Div for the
// same reason Mean doesn't).
func (v Vector[T]) Normalize(a *arena.Arena, ops ArithOps[T], div func(a, b T) (T, error)) (Vector[T], error) {
	mag, err := v.Magnitude(a, ops)
	if err != nil {
		return Vector[T]{}, err
	}
	out := NewVector[T](v.decode)
	for i := range v.elements {
		e, err := v.Get(a, i)
		if err != nil {
			return Vector[T]{}, err
		}
		scaled, err := div(e, mag)
		if err != nil {
			return Vector[T]{}, err
		}
		if err := out.Push(a, scaled); err != nil {
			return Vector[T]{}, err
		}
	}
	return out, nil
}

// Dot computes the sum of elementwise products. Both vectors must be
// non-empty and of equal length.
func (v Vector[T]) Dot(a *arena.Arena, other Vector[T], ops ArithOps[T]) (T, error) {
	var zero T
	if len(v.elements) == 0 || len(other.elements) == 0 {
		return zero, calcerr.New(calcerr.NotEnoughValues)
	}
	if len(v.elements) != len(other.elements) {
		return zero, calcerr.New(calcerr.DimensionMismatch)
	}
	acc := ops.Zero()
	for i := range v.elements {
		x, err := v.Get(a, i)
		if err != nil {
			return zero, err
		}
		y, err := other.Get(a, i)
		if err != nil {
			return zero, err
		}
		prod, err := ops.Mul(x, y)
		if err != nil {
			return zero, err
		}
		acc, err = ops.Add(acc, prod)
		if err != nil {
			return zero, err
		}
	}
	return acc, nil
}

// Cross computes the 3-D cross product. Both vectors must have exactly 3
// elements.
func (v Vector[T]) Cross(a *arena.Arena, other Vector[T], ops ArithOps[T], sub func(a, b T) (T, error)) (Vector[T], error) {
	if len(v.elements) != 3 || len(other.elements) != 3 {
		return Vector[T]{}, calcerr.New(calcerr.DimensionMismatch)
	}
	x1, err := v.Get(a, 0)
	if err != nil {
		return Vector[T]{}, err
	}
	y1, err := v.Get(a, 1)
	if err != nil {
		return Vector[T]{}, err
	}
	z1, err := v.Get(a, 2)
	if err != nil {
		return Vector[T]{}, err
	}
	x2, err := other.Get(a, 0)
	if err != nil {
		return Vector[T]{}, err
	}
	y2, err := other.Get(a, 1)
	if err != nil {
		return Vector[T]{}, err
	}
	z2, err := other.Get(a, 2)
	if err != nil {
		return Vector[T]{}, err
	}
	cx, err := subMul(ops, sub, y1, z2, z1, y2)
	if err != nil {
		return Vector[T]{}, err
	}
	cy, err := subMul(ops, sub, z1, x2, x1, z2)
	if err != nil {
		return Vector[T]{}, err
	}
	cz, err := subMul(ops, sub, x1, y2, y1, x2)
	if err != nil {
		return Vector[T]{}, err
	}
	out := NewVector[T](v.decode)
	for _, e := range []T{cx, cy, cz} {
		if err := out.Push(a, e); err != nil {
			return Vector[T]{}, err
		}
	}
	return out, nil
}

func subMul[T Object](ops ArithOps[T], sub func(a, b T) (T, error), p, q, r, s T) (T, error) {
	pq, err := ops.Mul(p, q)
	if err != nil {
		return pq, err
	}
	rs, err := ops.Mul(r, s)
	if err != nil {
		return rs, err
	}
	return sub(pq, rs)
}

// Release drops every element handle, called via arena.Drop's Releasable
// hook when the value containing this vector is freed.
func (v Vector[T]) Release(a *arena.Arena) {
	releaseRefs(a, v.decode, v.elements)
}

// Serialize writes the element count followed by each element's handle.
func (v Vector[T]) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	return serializeRefs(out, refs, v.elements)
}

// DecodeVector returns a Decoder for Vector[T], closing over the element
// Decoder so the vector's own Release can later drop each element.
func DecodeVector[T Object](decode arena.Decoder[T]) arena.Decoder[Vector[T]] {
	return func(in *storage.Reader, refs storage.RefVisitor) (Vector[T], error) {
		elements, err := deserializeRefs[T](in, refs)
		if err != nil {
			return Vector[T]{}, err
		}
		return Vector[T]{elements: elements, decode: decode}, nil
	}
}
