package grid

import (
	"fmt"
	"math"
)

// coordinateTolerance is the relative tolerance used when comparing origin
// and spacing of two grids.
const coordinateTolerance = 1e-6

// Geometry is the part of a grid that decides whether two grids live in the
// same physical and index space.
type Geometry interface {
	Size() []int
	Origin() []float64
	Spacing() []float64
}

// IsCompatible reports whether a and b share size, origin and spacing.
func IsCompatible(a, b Geometry) bool {
	return CheckCompatible(a, b) == nil
}

// CheckCompatible is IsCompatible returning an error that names the first
// mismatching property. The error wraps ErrGeometryMismatch.
func CheckCompatible(a, b Geometry) error {
	sa, sb := a.Size(), b.Size()
	if len(sa) != len(sb) {
		return fmt.Errorf("%w: dimension %d vs %d", ErrGeometryMismatch, len(sa), len(sb))
	}
	for d := range sa {
		if sa[d] != sb[d] {
			return fmt.Errorf("%w: size %v vs %v", ErrGeometryMismatch, sa, sb)
		}
	}
	if !closeAll(a.Origin(), b.Origin()) {
		return fmt.Errorf("%w: origin %v vs %v", ErrGeometryMismatch, a.Origin(), b.Origin())
	}
	if !closeAll(a.Spacing(), b.Spacing()) {
		return fmt.Errorf("%w: spacing %v vs %v", ErrGeometryMismatch, a.Spacing(), b.Spacing())
	}
	return nil
}

func closeAll(a, b []float64) bool {
	for i := range a {
		scale := math.Max(1, math.Max(math.Abs(a[i]), math.Abs(b[i])))
		if math.Abs(a[i]-b[i]) > coordinateTolerance*scale {
			return false
		}
	}
	return true
}
