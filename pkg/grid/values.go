package grid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NonZeroIndices returns the index of every non-zero sample of g in storage
// order.
func NonZeroIndices[T Sample](g *Grid[T]) [][]int {
	var out [][]int
	g.ForEachIndex(func(idx []int, v T) {
		if v != 0 {
			out = append(out, append([]int(nil), idx...))
		}
	})
	return out
}

// UniqueValues returns the distinct sample values of g, ascending when sorted
// is true and in order of first appearance otherwise.
func UniqueValues[T Sample](g *Grid[T], sorted bool) []T {
	seen := make(map[T]struct{})
	var out []T
	for _, v := range g.data {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if sorted {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out
}

// Threshold builds a binary mask of g: 1 where lower <= v <= upper, else 0.
func Threshold[T Sample](g *Grid[T], lower, upper float64) *Grid[T] {
	out := Like(g)
	for i, v := range g.data {
		f := float64(v)
		if f >= lower && f <= upper {
			out.data[i] = 1
		}
	}
	return out
}

// ChangeValues returns a copy of g where every sample equal to oldValues[i]
// is replaced by newValues[i]. Replacements are looked up on the input
// values, so chains like 1->2, 2->3 do not cascade.
func ChangeValues[T Sample](g *Grid[T], oldValues, newValues []T) (*Grid[T], error) {
	if len(oldValues) != len(newValues) {
		return nil, fmt.Errorf("%w: %d old, %d new", ErrValueCount, len(oldValues), len(newValues))
	}
	mapping := make(map[T]T, len(oldValues))
	for i, v := range oldValues {
		mapping[v] = newValues[i]
	}
	out := Like(g)
	for i, v := range g.data {
		if nv, ok := mapping[v]; ok {
			out.data[i] = nv
		} else {
			out.data[i] = v
		}
	}
	return out, nil
}

// ParseValueList parses an 'x' separated list of numbers such as "3x4x10".
func ParseValueList(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty value list")
	}
	parts := strings.Split(s, "x")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Summary holds intensity statistics of a grid.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Summarize computes intensity statistics over every sample of g.
func Summarize[T Sample](g *Grid[T]) Summary {
	values := make([]float64, len(g.data))
	for i, v := range g.data {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	return Summary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
	}
}
