// Package difference compares two grids sample by sample with a tolerance
// threshold and a neighbourhood search radius, and reduces the result into
// aggregate statistics and a pass/fail verdict.
package difference

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"voxutil/pkg/grid"
)

// DefaultPixelTolerance is the number of differing samples tolerated before
// a comparison is reported as failed.
const DefaultPixelTolerance = 70

// ErrInvalidTolerance is returned for a negative threshold or radius.
var ErrInvalidTolerance = errors.New("invalid tolerance configuration")

// ToleranceConfig controls when two samples count as different.
type ToleranceConfig struct {
	// Threshold is the largest absolute difference still considered equal
	Threshold float64

	// Radius is the Chebyshev distance searched in the test grid for a
	// matching sample
	Radius int

	// PixelTolerance is the number of differing samples allowed before the
	// verdict fails
	PixelTolerance int
}

// DefaultTolerance returns an exact comparison with the default pixel
// tolerance.
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{PixelTolerance: DefaultPixelTolerance}
}

// Validate checks the configuration.
func (c ToleranceConfig) Validate() error {
	if c.Threshold < 0 || math.IsNaN(c.Threshold) {
		return fmt.Errorf("%w: threshold %v", ErrInvalidTolerance, c.Threshold)
	}
	if c.Radius < 0 {
		return fmt.Errorf("%w: radius %d", ErrInvalidTolerance, c.Radius)
	}
	return nil
}

// Stats is the reduction of one comparison.
type Stats struct {
	TotalSamples     int
	DifferingSamples int

	// MinDiff and MaxDiff range over the differing samples only; both are
	// zero when nothing differs
	MinDiff float64
	MaxDiff float64

	// MeanDiff is TotalDiff averaged over all samples
	MeanDiff  float64
	TotalDiff float64
}

// Percentage returns the share of differing samples in percent, truncated
// to an integer as comparison reports have always shown it.
func (s Stats) Percentage() int {
	if s.TotalSamples == 0 {
		return 0
	}
	return s.DifferingSamples * 100 / s.TotalSamples
}

// Result is the outcome of Compare.
type Result struct {
	Stats Stats

	// Failed is set when the differing sample count exceeds the pixel
	// tolerance
	Failed bool

	// Map holds the per-sample difference, zero for matching samples. It is
	// only filled by CompareWithMap.
	Map *grid.Grid[float64]
}

// Compare compares test against valid. The two grids must share geometry.
func Compare[T grid.Sample](valid, test *grid.Grid[T], cfg ToleranceConfig) (Result, error) {
	return compare(valid, test, cfg, false)
}

// CompareWithMap is Compare also returning the difference map.
func CompareWithMap[T grid.Sample](valid, test *grid.Grid[T], cfg ToleranceConfig) (Result, error) {
	return compare(valid, test, cfg, true)
}

func compare[T grid.Sample](valid, test *grid.Grid[T], cfg ToleranceConfig, withMap bool) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if err := grid.CheckCompatible(valid, test); err != nil {
		return Result{}, err
	}

	var diffMap *grid.Grid[float64]
	if withMap {
		diffMap, _ = grid.New[float64](valid.Size(), valid.Origin(), valid.Spacing())
	}

	dim := valid.Dimension()
	size := valid.Size()
	low := make([]int, dim)
	high := make([]int, dim)
	clamped := make([]int, dim)
	testData := test.Data()

	var differing []float64
	valid.ForEachIndex(func(idx []int, v T) {
		reference := float64(v)
		for d := 0; d < dim; d++ {
			low[d] = idx[d] - cfg.Radius
			high[d] = idx[d] + cfg.Radius + 1
		}

		// Closest value in the neighbourhood, stopping at the first
		// acceptable match
		best := math.Inf(1)
		grid.ForEach(low, high, func(n []int) {
			if best <= cfg.Threshold {
				return
			}
			copy(clamped, n)
			test.Clamp(clamped)
			if d := math.Abs(reference - float64(testData[test.Offset(clamped)])); d < best {
				best = d
			}
		})

		if best > cfg.Threshold {
			differing = append(differing, best)
			if diffMap != nil {
				diffMap.Set(idx, best)
			}
		}
	})

	stats := Stats{
		TotalSamples:     product(size),
		DifferingSamples: len(differing),
	}
	if len(differing) > 0 {
		stats.MinDiff = floats.Min(differing)
		stats.MaxDiff = floats.Max(differing)
		stats.TotalDiff = floats.Sum(differing)
	}
	stats.MeanDiff = stats.TotalDiff / float64(stats.TotalSamples)

	return Result{
		Stats:  stats,
		Failed: Verdict(stats, cfg.PixelTolerance),
		Map:    diffMap,
	}, nil
}

// Verdict reports whether stats fail the given pixel tolerance: there must
// be some difference at all and more differing samples than tolerated.
func Verdict(stats Stats, pixelTolerance int) bool {
	return stats.TotalDiff > 0 && stats.DifferingSamples > pixelTolerance
}

func product(size []int) int {
	n := 1
	for _, s := range size {
		n *= s
	}
	return n
}
