package matrix

import (
	"rpnengine/arena"
	"rpnengine/calcerr"
	"rpnengine/storage"
)

// MaxCapacity bounds rows*cols.
const MaxCapacity = 1024

// Matrix is a row-major grid of element handles, the 2-D counterpart of
// Vector. ToVector below converts a one-row (or one-column) matrix to a
// Vector; package value does not call it, so a 1xN product from value.Mul
// stays a Matrix.
type Matrix[T Object] struct {
	rows, cols int
	elements   []arena.Ref[T]
	decode     arena.Decoder[T]
}

// NewMatrix returns a rows x cols matrix with every cell set to zero().
func NewMatrix[T Object](a *arena.Arena, rows, cols int, decode arena.Decoder[T], zero T) (Matrix[T], error) {
	size := rows * cols
	if rows < 0 || cols < 0 || size > MaxCapacity {
		return Matrix[T]{}, calcerr.New(calcerr.MatrixTooLarge)
	}
	elements := make([]arena.Ref[T], size)
	for i := range elements {
		ref, err := arena.Store(a, zero, false)
		if err != nil {
			for _, r := range elements[:i] {
				_ = arena.Drop(a, r, decode)
			}
			return Matrix[T]{}, err
		}
		elements[i] = ref
	}
	return Matrix[T]{rows: rows, cols: cols, elements: elements, decode: decode}, nil
}

// Rows and Cols report the matrix's shape.
func (m Matrix[T]) Rows() int { return m.rows }
func (m Matrix[T]) Cols() int { return m.cols }

func (m Matrix[T]) index(row, col int) (int, error) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return 0, calcerr.New(calcerr.IndexOutOfRange)
	}
	return row*m.cols + col, nil
}

// Get reconstructs the cell at (row, col).
func (m Matrix[T]) Get(a *arena.Arena, row, col int) (T, error) {
	var zero T
	idx, err := m.index(row, col)
	if err != nil {
		return zero, err
	}
	return arena.Get(a, m.elements[idx], m.decode)
}

// GetRef returns the raw handle at (row, col) without decoding it.
func (m Matrix[T]) GetRef(row, col int) (arena.Ref[T], error) {
	idx, err := m.index(row, col)
	if err != nil {
		return arena.Ref[T]{}, err
	}
	return m.elements[idx], nil
}

// Set stores value fresh into (row, col), dropping the handle that
// previously occupied the cell. isVectorOrMatrix lets the caller reject
// nesting a vector/matrix value as a cell; the engine has no tensor type.
func (m *Matrix[T]) Set(a *arena.Arena, row, col int, value T, isVectorOrMatrix func(T) bool) error {
	idx, err := m.index(row, col)
	if err != nil {
		return err
	}
	if isVectorOrMatrix != nil && isVectorOrMatrix(value) {
		return calcerr.New(calcerr.DataTypeMismatch)
	}
	fresh, err := arena.Store(a, value, false)
	if err != nil {
		return err
	}
	old := m.elements[idx]
	m.elements[idx] = fresh
	return arena.Drop(a, old, m.decode)
}

// DeepCopyValues pulls every cell out of the reclaimable arena class and
// into the normal class.
func (m *Matrix[T]) DeepCopyValues(a *arena.Arena) error {
	for i, r := range m.elements {
		fresh, err := arena.MigrateToNormal(a, r, m.decode)
		if err != nil {
			return err
		}
		m.elements[i] = fresh
	}
	return nil
}

// ToVector canonicalizes a 1xN (or Nx1) matrix into a Vector, bumping each
// element's refcount rather than re-storing it. Reports false if the matrix
// has neither a single row nor a single column.
func (m Matrix[T]) ToVector(a *arena.Arena) (Vector[T], bool) {
	if m.rows != 1 && m.cols != 1 {
		return Vector[T]{}, false
	}
	out := NewVector[T](m.decode)
	for _, r := range m.elements {
		a.Clone(r.Offset())
		out.elements = append(out.elements, r)
	}
	return out, true
}

// Transpose returns a cols x rows matrix with (i, j) swapped to (j, i),
// bumping each cell's refcount rather than re-storing its value.
func (m Matrix[T]) Transpose(a *arena.Arena) Matrix[T] {
	out := Matrix[T]{rows: m.cols, cols: m.rows, decode: m.decode, elements: make([]arena.Ref[T], len(m.elements))}
	for row := 0; row < m.rows; row++ {
		for col := 0; col < m.cols; col++ {
			src := m.elements[row*m.cols+col]
			a.Clone(src.Offset())
			out.elements[col*out.cols+row] = src
		}
	}
	return out
}

// MulVector computes m * v, a rows-length vector, where v must have exactly
// m.cols elements.
func (m Matrix[T]) MulVector(a *arena.Arena, v Vector[T], ops ArithOps[T]) (Vector[T], error) {
	if v.Len() != m.cols {
		return Vector[T]{}, calcerr.New(calcerr.DimensionMismatch)
	}
	out := NewVector[T](m.decode)
	for row := 0; row < m.rows; row++ {
		acc := ops.Zero()
		for col := 0; col < m.cols; col++ {
			cell, err := m.Get(a, row, col)
			if err != nil {
				return Vector[T]{}, err
			}
			ve, err := v.Get(a, col)
			if err != nil {
				return Vector[T]{}, err
			}
			prod, err := ops.Mul(cell, ve)
			if err != nil {
				return Vector[T]{}, err
			}
			acc, err = ops.Add(acc, prod)
			if err != nil {
				return Vector[T]{}, err
			}
		}
		if err := out.Push(a, acc); err != nil {
			return Vector[T]{}, err
		}
	}
	return out, nil
}

// Mul computes the matrix product m * other, requiring m.cols == other.rows.
func (m Matrix[T]) Mul(a *arena.Arena, other Matrix[T], ops ArithOps[T]) (Matrix[T], error) {
	if m.cols != other.rows {
		return Matrix[T]{}, calcerr.New(calcerr.DimensionMismatch)
	}
	size := m.rows * other.cols
	if size > MaxCapacity {
		return Matrix[T]{}, calcerr.New(calcerr.MatrixTooLarge)
	}
	out := Matrix[T]{rows: m.rows, cols: other.cols, decode: m.decode, elements: make([]arena.Ref[T], size)}
	for row := 0; row < m.rows; row++ {
		for col := 0; col < other.cols; col++ {
			acc := ops.Zero()
			for k := 0; k < m.cols; k++ {
				x, err := m.Get(a, row, k)
				if err != nil {
					return Matrix[T]{}, err
				}
				y, err := other.Get(a, k, col)
				if err != nil {
					return Matrix[T]{}, err
				}
				prod, err := ops.Mul(x, y)
				if err != nil {
					return Matrix[T]{}, err
				}
				acc, err = ops.Add(acc, prod)
				if err != nil {
					return Matrix[T]{}, err
				}
			}
			fresh, err := arena.Store(a, acc, false)
			if err != nil {
				return Matrix[T]{}, err
			}
			out.elements[row*out.cols+col] = fresh
		}
	}
	return out, nil
}

// Release drops every cell handle.
func (m Matrix[T]) Release(a *arena.Arena) {
	releaseRefs(a, m.decode, m.elements)
}

// Serialize writes rows, cols, then the cell count and each cell's handle.
func (m Matrix[T]) Serialize(out *storage.Writer, refs storage.RefVisitor) error {
	out.WriteU32(uint32(m.rows))
	out.WriteU32(uint32(m.cols))
	return serializeRefs(out, refs, m.elements)
}

// DecodeMatrix returns a Decoder for Matrix[T].
func DecodeMatrix[T Object](decode arena.Decoder[T]) arena.Decoder[Matrix[T]] {
	return func(in *storage.Reader, refs storage.RefVisitor) (Matrix[T], error) {
		rows, err := in.ReadU32()
		if err != nil {
			return Matrix[T]{}, err
		}
		cols, err := in.ReadU32()
		if err != nil {
			return Matrix[T]{}, err
		}
		elements, err := deserializeRefs[T](in, refs)
		if err != nil {
			return Matrix[T]{}, err
		}
		if int(rows)*int(cols) != len(elements) {
			return Matrix[T]{}, calcerr.New(calcerr.CorruptData)
		}
		return Matrix[T]{rows: int(rows), cols: int(cols), elements: elements, decode: decode}, nil
	}
}
