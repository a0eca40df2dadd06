// Package grid provides the dense N-dimensional sample buffer shared by every
// voxutil operation, together with the index iteration and geometry helpers
// the algorithms are built on.
package grid

import (
	"errors"
	"fmt"
)

// MaxDimension is the largest dimensionality a grid may have. It matches the
// number of spatial/temporal axes a NIfTI-1 header can describe.
const MaxDimension = 7

// Common errors
var (
	ErrGeometryMismatch = errors.New("grids are in different spaces (size/origin/spacing mismatch)")
	ErrInvalidSize      = errors.New("invalid grid size")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrValueCount       = errors.New("old and new value lists differ in length")
)

// Sample is the set of scalar types a grid can hold.
type Sample interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// Grid is a dense array of samples over a D-dimensional integer index space.
// Samples are stored with index 0 varying fastest, the same layout NIfTI and
// DICOM pixel data use.
type Grid[T Sample] struct {
	// size holds the number of samples along each axis
	size []int

	// origin is the physical position of index (0, ..., 0)
	origin []float64

	// spacing is the physical distance between neighbouring samples per axis
	spacing []float64

	// strides[d] is the linear distance between neighbours along axis d
	strides []int

	data []T
}

// New allocates a zero-filled grid. A nil origin defaults to all zeros and a
// nil spacing to all ones.
func New[T Sample](size []int, origin, spacing []float64) (*Grid[T], error) {
	n, err := validateSize(size)
	if err != nil {
		return nil, err
	}
	return build(size, origin, spacing, make([]T, n))
}

// FromData wraps an existing buffer. The grid takes ownership of data.
func FromData[T Sample](size []int, origin, spacing []float64, data []T) (*Grid[T], error) {
	n, err := validateSize(size)
	if err != nil {
		return nil, err
	}
	if len(data) != n {
		return nil, fmt.Errorf("%w: %d samples for size %v", ErrInvalidSize, len(data), size)
	}
	return build(size, origin, spacing, data)
}

// Like allocates a zero-filled grid with the geometry of g.
func Like[T Sample](g *Grid[T]) *Grid[T] {
	out, _ := build(g.size, g.origin, g.spacing, make([]T, len(g.data)))
	return out
}

func validateSize(size []int) (int, error) {
	if len(size) == 0 || len(size) > MaxDimension {
		return 0, fmt.Errorf("%w: dimension %d", ErrInvalidSize, len(size))
	}
	n := 1
	for d, s := range size {
		if s <= 0 {
			return 0, fmt.Errorf("%w: axis %d has size %d", ErrInvalidSize, d, s)
		}
		n *= s
	}
	return n, nil
}

func build[T Sample](size []int, origin, spacing []float64, data []T) (*Grid[T], error) {
	dim := len(size)
	g := &Grid[T]{
		size:    append([]int(nil), size...),
		origin:  make([]float64, dim),
		spacing: make([]float64, dim),
		strides: make([]int, dim),
		data:    data,
	}
	if origin != nil {
		if len(origin) != dim {
			return nil, fmt.Errorf("%w: origin has %d components for dimension %d", ErrInvalidSize, len(origin), dim)
		}
		copy(g.origin, origin)
	}
	for d := range g.spacing {
		g.spacing[d] = 1
	}
	if spacing != nil {
		if len(spacing) != dim {
			return nil, fmt.Errorf("%w: spacing has %d components for dimension %d", ErrInvalidSize, len(spacing), dim)
		}
		copy(g.spacing, spacing)
	}
	stride := 1
	for d := 0; d < dim; d++ {
		g.strides[d] = stride
		stride *= size[d]
	}
	return g, nil
}

// Dimension returns the number of axes.
func (g *Grid[T]) Dimension() int { return len(g.size) }

// Size returns a copy of the per-axis sample counts.
func (g *Grid[T]) Size() []int { return append([]int(nil), g.size...) }

// Origin returns a copy of the physical origin.
func (g *Grid[T]) Origin() []float64 { return append([]float64(nil), g.origin...) }

// Spacing returns a copy of the physical spacing.
func (g *Grid[T]) Spacing() []float64 { return append([]float64(nil), g.spacing...) }

// Len returns the total number of samples.
func (g *Grid[T]) Len() int { return len(g.data) }

// Data exposes the underlying buffer.
func (g *Grid[T]) Data() []T { return g.data }

// Offset linearises idx. It does not bounds-check; use Contains first when
// the index comes from outside the grid.
func (g *Grid[T]) Offset(idx []int) int {
	off := 0
	for d, i := range idx {
		off += i * g.strides[d]
	}
	return off
}

// Contains reports whether idx lies inside the grid.
func (g *Grid[T]) Contains(idx []int) bool {
	if len(idx) != len(g.size) {
		return false
	}
	for d, i := range idx {
		if i < 0 || i >= g.size[d] {
			return false
		}
	}
	return true
}

// At returns the sample at idx.
func (g *Grid[T]) At(idx []int) T { return g.data[g.Offset(idx)] }

// Set stores v at idx.
func (g *Grid[T]) Set(idx []int, v T) { g.data[g.Offset(idx)] = v }

// Get is the bounds-checked variant of At.
func (g *Grid[T]) Get(idx []int) (T, error) {
	if !g.Contains(idx) {
		var zero T
		return zero, fmt.Errorf("%w: %v not in %v", ErrIndexOutOfRange, idx, g.size)
	}
	return g.At(idx), nil
}

// Clone returns an independent copy of g.
func (g *Grid[T]) Clone() *Grid[T] {
	out := Like(g)
	copy(out.data, g.data)
	return out
}

// Convert copies g into a grid of another sample type using Go's numeric
// conversion rules.
func Convert[T, U Sample](g *Grid[T]) *Grid[U] {
	data := make([]U, len(g.data))
	for i, v := range g.data {
		data[i] = U(v)
	}
	out, _ := build(g.size, g.origin, g.spacing, data)
	return out
}
