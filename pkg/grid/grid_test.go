package grid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew verifies construction defaults and size validation
func TestNew(t *testing.T) {
	g, err := New[float32]([]int{4, 3, 2}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Dimension())
	assert.Equal(t, 24, g.Len())
	assert.Equal(t, []float64{0, 0, 0}, g.Origin())
	assert.Equal(t, []float64{1, 1, 1}, g.Spacing())

	for _, size := range [][]int{nil, {0, 3}, {2, -1}, {1, 1, 1, 1, 1, 1, 1, 1}} {
		_, err := New[uint8](size, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidSize, "size %v", size)
	}

	_, err = New[uint8]([]int{2, 2}, []float64{0}, nil)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = FromData([]int{2, 2}, nil, nil, []int16{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

// TestOffsetLayout checks that axis 0 varies fastest
func TestOffsetLayout(t *testing.T) {
	g, err := New[int32]([]int{4, 3, 2}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, g.Offset([]int{0, 0, 0}))
	assert.Equal(t, 1, g.Offset([]int{1, 0, 0}))
	assert.Equal(t, 4, g.Offset([]int{0, 1, 0}))
	assert.Equal(t, 12, g.Offset([]int{0, 0, 1}))
	assert.Equal(t, 23, g.Offset([]int{3, 2, 1}))

	g.Set([]int{3, 2, 1}, 7)
	assert.Equal(t, int32(7), g.Data()[23])

	_, err = g.Get([]int{4, 0, 0})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	v, err := g.Get([]int{3, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}

func TestForEach(t *testing.T) {
	t.Run("OrderAndCount", func(t *testing.T) {
		var got [][]int
		ForEach([]int{1, 2}, []int{3, 4}, func(idx []int) {
			got = append(got, append([]int(nil), idx...))
		})
		want := [][]int{{1, 2}, {2, 2}, {1, 3}, {2, 3}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ForEach order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("EmptyBox", func(t *testing.T) {
		calls := 0
		ForEach([]int{2, 2}, []int{2, 5}, func([]int) { calls++ })
		assert.Zero(t, calls)
	})

	t.Run("FourDimensions", func(t *testing.T) {
		calls := 0
		ForEach([]int{0, 0, 0, 0}, []int{2, 3, 4, 5}, func([]int) { calls++ })
		assert.Equal(t, 120, calls)
	})

	t.Run("MatchesStorageOrder", func(t *testing.T) {
		g, err := New[uint16]([]int{3, 2, 2}, nil, nil)
		require.NoError(t, err)
		i := 0
		g.ForEachIndex(func(idx []int, _ uint16) {
			assert.Equal(t, i, g.Offset(idx))
			i++
		})
		assert.Equal(t, g.Len(), i)
	})
}

func TestClamp(t *testing.T) {
	g, err := New[uint8]([]int{5, 5}, nil, nil)
	require.NoError(t, err)

	idx := []int{-2, 7}
	g.Clamp(idx)
	assert.Equal(t, []int{0, 4}, idx)
}

func TestCheckCompatible(t *testing.T) {
	base, _ := New[float32]([]int{4, 4}, []float64{1, 2}, []float64{0.5, 0.5})

	tests := []struct {
		name    string
		size    []int
		origin  []float64
		spacing []float64
		ok      bool
	}{
		{"Identical", []int{4, 4}, []float64{1, 2}, []float64{0.5, 0.5}, true},
		{"WithinTolerance", []int{4, 4}, []float64{1 + 1e-9, 2}, []float64{0.5, 0.5}, true},
		{"Size", []int{4, 5}, []float64{1, 2}, []float64{0.5, 0.5}, false},
		{"Dimension", []int{4, 4, 1}, nil, nil, false},
		{"Origin", []int{4, 4}, []float64{1, 3}, []float64{0.5, 0.5}, false},
		{"Spacing", []int{4, 4}, []float64{1, 2}, []float64{0.5, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := New[float32](tt.size, tt.origin, tt.spacing)
			require.NoError(t, err)

			err = CheckCompatible(base, other)
			assert.Equal(t, tt.ok, IsCompatible(base, other))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrGeometryMismatch))
			}
		})
	}
}

func TestNonZeroIndices(t *testing.T) {
	g, _ := New[float64]([]int{3, 3}, nil, nil)
	g.Set([]int{2, 0}, 1)
	g.Set([]int{1, 2}, -4)

	want := [][]int{{2, 0}, {1, 2}}
	if diff := cmp.Diff(want, NonZeroIndices(g)); diff != "" {
		t.Errorf("NonZeroIndices mismatch (-want +got):\n%s", diff)
	}

	empty, _ := New[float64]([]int{3, 3}, nil, nil)
	assert.Empty(t, NonZeroIndices(empty))
}

func TestUniqueValues(t *testing.T) {
	g, err := FromData([]int{6}, nil, nil, []int16{5, 1, 5, -3, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, []int16{-3, 0, 1, 5}, UniqueValues(g, true))
	assert.Equal(t, []int16{5, 1, -3, 0}, UniqueValues(g, false))
}

func TestThreshold(t *testing.T) {
	g, err := FromData([]int{5}, nil, nil, []float32{0, 0.5, 1, 2, 3})
	require.NoError(t, err)

	mask := Threshold(g, 1, 2)
	assert.Equal(t, []float32{0, 0, 1, 1, 0}, mask.Data())
	assert.Equal(t, []float32{0, 0.5, 1, 2, 3}, g.Data(), "input must not change")
}

func TestChangeValues(t *testing.T) {
	g, err := FromData([]int{2, 2}, nil, nil, []uint8{1, 2, 3, 2})
	require.NoError(t, err)

	out, err := ChangeValues(g, []uint8{1, 2}, []uint8{2, 9})
	require.NoError(t, err)
	assert.Equal(t, []uint8{2, 9, 3, 9}, out.Data())

	_, err = ChangeValues(g, []uint8{1}, []uint8{2, 3})
	assert.ErrorIs(t, err, ErrValueCount)
}

func TestParseValueList(t *testing.T) {
	got, err := ParseValueList("3x4.5x-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4.5, -1}, got)

	_, err = ParseValueList("")
	assert.Error(t, err)
	_, err = ParseValueList("3xa")
	assert.Error(t, err)
}

func TestConvertAndSummarize(t *testing.T) {
	g, err := FromData([]int{4}, []float64{2}, []float64{0.25}, []float64{1.9, -1, 3, 0})
	require.NoError(t, err)

	ints := Convert[float64, int16](g)
	assert.Equal(t, []int16{1, -1, 3, 0}, ints.Data())
	assert.Equal(t, g.Spacing(), ints.Spacing())
	assert.Equal(t, g.Origin(), ints.Origin())

	s := Summarize(ints)
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, 0.75, s.Mean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)

	single, _ := FromData([]int{1}, nil, nil, []uint8{4})
	assert.Equal(t, Summary{Min: 4, Max: 4, Mean: 4}, Summarize(single))
}
