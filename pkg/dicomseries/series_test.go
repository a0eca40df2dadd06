package dicomseries

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxutil/internal/models"
)

// writeFakeDICOM writes a file with a valid preamble and DICM marker only
func writeFakeDICOM(t *testing.T, path string) {
	t.Helper()
	buf := make([]byte, preambleSize+16)
	copy(buf[preambleSize:], "DICM")
	require.NoError(t, os.WriteFile(path, buf, 0644))
}

func testSlice(name string, instance int, z float64, value float64) *models.Slice {
	s := &models.Slice{
		Filename:       name,
		InstanceNumber: instance,
		Rows:           2,
		Cols:           3,
		Position:       [3]float64{-10, 20, z},
		HasPosition:    true,
		PixelSpacing:   [2]float64{0.5, 0.75},
		Thickness:      5,
		Pixels:         make([]float64, 6),
	}
	for i := range s.Pixels {
		s.Pixels[i] = value
	}
	return s
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 12, extractNumber("IM_0012.dcm"))
	assert.Equal(t, 7, extractNumber("/data/series/slice7"))
	assert.Equal(t, 0, extractNumber("nodigits.dcm"))
}

func TestSortSlices(t *testing.T) {
	t.Run("ByInstanceNumber", func(t *testing.T) {
		slices := []*models.Slice{
			testSlice("b", 3, 0, 0),
			testSlice("a", 1, 0, 0),
			testSlice("c", 2, 0, 0),
		}
		sortSlices(slices)
		assert.Equal(t, "a", slices[0].Filename)
		assert.Equal(t, "c", slices[1].Filename)
		assert.Equal(t, "b", slices[2].Filename)
	})

	t.Run("FallsBackToFilename", func(t *testing.T) {
		slices := []*models.Slice{
			testSlice("IM10.dcm", 5, 0, 0),
			testSlice("IM2.dcm", 0, 0, 0),
			testSlice("IM1.dcm", 9, 0, 0),
		}
		sortSlices(slices)
		assert.Equal(t, "IM1.dcm", slices[0].Filename)
		assert.Equal(t, "IM2.dcm", slices[1].Filename)
		assert.Equal(t, "IM10.dcm", slices[2].Filename)
	})
}

func TestStack(t *testing.T) {
	slices := []*models.Slice{
		testSlice("1", 1, 4, 1),
		testSlice("2", 2, 6.5, 2),
		testSlice("3", 3, 9, 3),
	}

	g, err := stack(slices)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 3}, g.Size())
	assert.Equal(t, []float64{-10, 20, 4}, g.Origin())
	assert.Equal(t, []float64{0.75, 0.5, 2.5}, g.Spacing())
	assert.Equal(t, 1.0, g.At([]int{2, 1, 0}))
	assert.Equal(t, 3.0, g.At([]int{0, 0, 2}))

	t.Run("Inconsistent", func(t *testing.T) {
		odd := testSlice("4", 4, 11, 0)
		odd.Rows = 3
		odd.Pixels = make([]float64, 9)
		_, err := stack(append(slices, odd))
		assert.ErrorIs(t, err, ErrInconsistentSeries)
	})
}

func TestSliceGapFallbacks(t *testing.T) {
	a, b := testSlice("a", 1, 3, 0), testSlice("b", 2, 3, 0)
	assert.Equal(t, 5.0, sliceGap([]*models.Slice{a, b}), "coincident positions use thickness")

	a.HasPosition = false
	a.Thickness = 0
	assert.Equal(t, 1.0, sliceGap([]*models.Slice{a, b}))
}

func TestSliceToGrid(t *testing.T) {
	s := testSlice("single", 1, 0, 7)
	g, err := sliceToGrid(s)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, g.Size())
	assert.Equal(t, []float64{-10, 20}, g.Origin())
	assert.Equal(t, []float64{0.75, 0.5}, g.Spacing())
}

func TestImageToFloat(t *testing.T) {
	img16 := image.NewGray16(image.Rect(0, 0, 2, 2))
	img16.SetGray16(1, 0, color.Gray16{Y: 4095})
	img16.SetGray16(0, 1, color.Gray16{Y: 12})
	assert.Equal(t, []float64{0, 4095, 12, 0}, imageToFloat(img16))

	img8 := image.NewGray(image.Rect(5, 5, 7, 6))
	img8.SetGray(6, 5, color.Gray{Y: 200})
	assert.Equal(t, []float64{0, 200}, imageToFloat(img8))
}

func TestIsDICOM(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "IM1.dcm")
	writeFakeDICOM(t, fake)
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("hello"), 0644))

	assert.True(t, IsDICOM(fake))
	assert.False(t, IsDICOM(other))
	assert.True(t, IsDICOM(dir))
	assert.False(t, IsDICOM(filepath.Join(dir, "missing")))

	files, err := listDICOMFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{fake}, files)
}

func TestLoadErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := LoadSeries(empty)
	assert.ErrorIs(t, err, ErrNoSlices)

	_, err = ReadMetadata(empty)
	assert.ErrorIs(t, err, ErrNoSlices)

	_, err = LoadSeries(filepath.Join(empty, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
