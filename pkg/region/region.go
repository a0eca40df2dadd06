// Package region extracts the sub-volume of a reference grid enclosed by the
// non-zero samples of a mask.
//
// The bounding box of the mask is computed on raw index coordinates and then
// expanded around its center, either per axis (tight box) or by the longest
// axis extent on every axis (isotropic box). The expanded box is clamped to
// the grid one side at a time and is never re-centered, so boxes touching an
// image edge come out asymmetric.
package region

import (
	"errors"
	"fmt"
	"math"

	"voxutil/pkg/grid"
)

// Common errors
var (
	ErrEmptyMask            = errors.New("mask has no non-zero samples")
	ErrUnsupportedDimension = errors.New("only 2D and 3D grids are supported")
)

// BoundingBox is the axis-aligned box enclosing a point set.
type BoundingBox struct {
	Min    []float64
	Max    []float64
	Center []float64
}

// Region is the clamped box around a mask. Low and High are the rounded,
// clamped bounds; the copied samples are the closed box [Low, High] limited
// to the last valid index, so the mask's own extreme samples are included.
//
// The closed box departs from the half-open [Low, High) copy of the ITK tool.
// With the half-open form a single-sample mask copies nothing and a mask
// covering the whole grid drops its last row, column and plane.
type Region struct {
	Low  []int
	High []int

	// Stop is the exclusive iteration bound, min(High+1, size) per axis
	Stop []int

	// Box is the tight bounding box the region was expanded from
	Box BoundingBox

	// Radii holds the extent used on each axis before halving
	Radii []float64
}

// Extent returns High-Low per axis, the box size before the copy bound is
// applied.
func (r Region) Extent() []int {
	out := make([]int, len(r.Low))
	for d := range out {
		out[d] = r.High[d] - r.Low[d]
	}
	return out
}

// Count returns the number of samples the region copies.
func (r Region) Count() int {
	n := 1
	for d := range r.Low {
		if r.Stop[d] <= r.Low[d] {
			return 0
		}
		n *= r.Stop[d] - r.Low[d]
	}
	return n
}

// ComputeBoundingBox returns the box enclosing points. It fails with
// ErrEmptyMask when there are no points.
func ComputeBoundingBox(points [][]int) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, ErrEmptyMask
	}
	dim := len(points[0])
	box := BoundingBox{
		Min:    make([]float64, dim),
		Max:    make([]float64, dim),
		Center: make([]float64, dim),
	}
	for d := 0; d < dim; d++ {
		box.Min[d] = float64(points[0][d])
		box.Max[d] = float64(points[0][d])
	}
	for _, p := range points[1:] {
		for d := 0; d < dim; d++ {
			v := float64(p[d])
			box.Min[d] = math.Min(box.Min[d], v)
			box.Max[d] = math.Max(box.Max[d], v)
		}
	}
	for d := 0; d < dim; d++ {
		box.Center[d] = (box.Min[d] + box.Max[d]) / 2
	}
	return box, nil
}

// Expand grows box around its center and clamps the result to size.
func Expand(box BoundingBox, size []int, isotropic bool) Region {
	dim := len(box.Min)
	distances := make([]float64, dim)
	longest := 0
	for d := 0; d < dim; d++ {
		distances[d] = math.Abs(box.Max[d] - box.Min[d])
		if distances[longest] < distances[d] {
			longest = d
		}
	}

	r := Region{
		Low:   make([]int, dim),
		High:  make([]int, dim),
		Stop:  make([]int, dim),
		Box:   box,
		Radii: make([]float64, dim),
	}
	for d := 0; d < dim; d++ {
		radius := distances[d]
		if isotropic {
			radius = distances[longest]
		}
		r.Radii[d] = radius

		// math.Round rounds half away from zero
		low := int(math.Round(box.Center[d] - radius/2))
		high := int(math.Round(box.Center[d] + radius/2))
		if low < 0 {
			low = 0
		}
		if high > size[d] {
			high = size[d]
		}
		r.Low[d] = low
		r.High[d] = high
		r.Stop[d] = min(high+1, size[d])
	}
	return r
}

// Bounds computes the region of mask that Extract would copy.
func Bounds[T grid.Sample](mask *grid.Grid[T], isotropic bool) (Region, error) {
	if dim := mask.Dimension(); dim != 2 && dim != 3 {
		return Region{}, fmt.Errorf("%w: got %dD", ErrUnsupportedDimension, dim)
	}
	box, err := ComputeBoundingBox(grid.NonZeroIndices(mask))
	if err != nil {
		return Region{}, err
	}
	return Expand(box, mask.Size(), isotropic), nil
}

// Extract copies the samples of reference that fall inside the bounding
// region of mask into a new zero-filled grid of the reference's full size.
// Neither input is modified.
func Extract[T grid.Sample](reference, mask *grid.Grid[T], isotropic bool) (*grid.Grid[T], error) {
	out, _, err := ExtractRegion(reference, mask, isotropic)
	return out, err
}

// ExtractRegion is Extract also returning the region that was copied.
func ExtractRegion[T grid.Sample](reference, mask *grid.Grid[T], isotropic bool) (*grid.Grid[T], Region, error) {
	if err := grid.CheckCompatible(reference, mask); err != nil {
		return nil, Region{}, err
	}
	r, err := Bounds(mask, isotropic)
	if err != nil {
		return nil, Region{}, err
	}

	out := grid.Like(reference)
	src, dst := reference.Data(), out.Data()
	grid.ForEach(r.Low, r.Stop, func(idx []int) {
		off := reference.Offset(idx)
		dst[off] = src[off]
	})
	return out, r, nil
}
