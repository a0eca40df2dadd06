package volumeio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/henghuang/nifti"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxutil/pkg/grid"
)

func TestHeaderLayout(t *testing.T) {
	assert.Equal(t, headerSize, binary.Size(nifti.Nifti1Header{}))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	t.Run("Uint8Plain2D", func(t *testing.T) {
		g, err := grid.FromData([]int{3, 2}, []float64{-4, 2.5}, []float64{0.5, 2}, []uint8{0, 1, 2, 250, 4, 5})
		require.NoError(t, err)

		path := filepath.Join(dir, "plain.nii")
		require.NoError(t, Write(path, g))

		got, h, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, DTUint8, h.Datatype)
		assert.Equal(t, "unsigned char", h.DatatypeName())
		assert.Equal(t, []int{3, 2}, got.Size())
		assert.Equal(t, []float64{-4, 2.5}, got.Origin())
		assert.Equal(t, []float64{0.5, 2}, got.Spacing())
		assert.Equal(t, []float64{0, 1, 2, 250, 4, 5}, got.Data())
		assert.True(t, grid.IsCompatible(g, got))
	})

	t.Run("Float32Gzip3D", func(t *testing.T) {
		g, err := grid.New[float32]([]int{4, 3, 2}, []float64{1, 2, 3}, []float64{1.25, 1.25, 3})
		require.NoError(t, err)
		for i := range g.Data() {
			g.Data()[i] = float32(i) - 10.5
		}

		path := filepath.Join(dir, "volume.nii.gz")
		require.NoError(t, Write(path, g))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2], "gzip magic")

		got, h, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, DTFloat32, h.Datatype)
		assert.Equal(t, int16(32), h.Bitpix)
		assert.Equal(t, 3, h.Dimension())
		assert.Equal(t, []float64{1, 2, 3}, got.Origin())
		for i, v := range g.Data() {
			assert.Equal(t, float64(v), got.Data()[i])
		}
	})

	t.Run("Int16FourD", func(t *testing.T) {
		g, err := grid.New[int16]([]int{2, 2, 2, 3}, []float64{0, 0, 0, 5}, []float64{1, 1, 1, 2})
		require.NoError(t, err)
		g.Set([]int{1, 1, 1, 2}, -300)

		path := filepath.Join(dir, "series.nii")
		require.NoError(t, Write(path, g))

		got, _, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2, 2, 3}, got.Size())
		assert.Equal(t, []float64{1, 1, 1, 2}, got.Spacing())
		assert.Equal(t, 5.0, got.Origin()[3])
		assert.Equal(t, -300.0, got.At([]int{1, 1, 1, 2}))
	})

	t.Run("Int64KeepsPrecision", func(t *testing.T) {
		g, err := grid.FromData([]int{2}, nil, nil, []int64{1 << 40, -(1 << 40) + 1})
		require.NoError(t, err)

		path := filepath.Join(dir, "wide.nii")
		require.NoError(t, Write(path, g))

		got, h, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, "long", h.DatatypeName())
		assert.Equal(t, []float64{1 << 40, -(1 << 40) + 1}, got.Data())
	})
}

func TestReadAppliesScaling(t *testing.T) {
	g, err := grid.FromData([]int{2, 2}, nil, nil, []int16{1, 2, 3, 4})
	require.NoError(t, err)

	raw := buildHeader(g, DTInt16)
	raw.SclSlope = 2
	raw.SclInter = -1

	path := filepath.Join(t.TempDir(), "scaled.nii")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, raw))
	_, err = f.Write(make([]byte, voxOffset-headerSize))
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, g.Data()))
	require.NoError(t, f.Close())

	got, _, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 7}, got.Data())
}

func TestReadHeader(t *testing.T) {
	g, err := grid.New[float64]([]int{5, 6, 7}, nil, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "h.nii.gz")
	require.NoError(t, Write(path, g))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7}, h.Size)
	assert.Equal(t, 210, h.Len())
	assert.Equal(t, "double", h.DatatypeName())
	assert.Equal(t, "voxutil", h.Description)
}

// TestToHeaderRejectsCorruptDims covers headers whose axes would make the
// sample count negative or unbounded
func TestToHeaderRejectsCorruptDims(t *testing.T) {
	g, err := grid.New[uint8]([]int{4, 4, 4}, nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(h *nifti.Nifti1Header)
		want   error
	}{
		{"NegativeAxis", func(h *nifti.Nifti1Header) { h.Dim[1] = -2 }, ErrNotNIfTI},
		{"ZeroAxis", func(h *nifti.Nifti1Header) { h.Dim[3] = 0 }, ErrNotNIfTI},
		{"TooManySamples", func(h *nifti.Nifti1Header) { h.Dim[1], h.Dim[2], h.Dim[3] = 32767, 32767, 32767 }, ErrNotNIfTI},
		{"ZeroDimension", func(h *nifti.Nifti1Header) { h.Dim[0] = 0 }, ErrNotNIfTI},
		{"FiveDimensions", func(h *nifti.Nifti1Header) { h.Dim[0] = 5 }, ErrUnsupportedDimension},
		{"BadMagic", func(h *nifti.Nifti1Header) { copy(h.Magic[:], "ni1\x00") }, ErrNotNIfTI},
		{"BadSize", func(h *nifti.Nifti1Header) { h.SizeofHdr = 540 }, ErrNotNIfTI},
		{"ShortOffset", func(h *nifti.Nifti1Header) { h.VoxOffset = 100 }, ErrNotNIfTI},
		{"UnknownDatatype", func(h *nifti.Nifti1Header) { h.Datatype = 32 }, ErrUnsupportedDatatype},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := buildHeader(g, DTUint8)
			tt.mutate(&raw)
			_, err := toHeader(raw)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadRejectsNegativeDim(t *testing.T) {
	g, err := grid.New[float32]([]int{4, 4}, nil, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "negative.nii")
	require.NoError(t, Write(path, g))

	// dim[1] lives at bytes 42-43
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint16(data[42:44], uint16(0xfffe))
	require.NoError(t, os.WriteFile(path, data, 0644))

	require.NotPanics(t, func() {
		_, _, err = Read(path)
	})
	assert.ErrorIs(t, err, ErrNotNIfTI)
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Read(filepath.Join(dir, "missing.nii"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.nii")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not an image"), 0644))
	_, _, err = Read(junk)
	assert.ErrorIs(t, err, ErrNotNIfTI)

	empty := filepath.Join(dir, "empty.nii")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ReadHeader(empty)
	assert.ErrorIs(t, err, ErrNotNIfTI)

	truncated := filepath.Join(dir, "truncated.nii")
	g, _ := grid.New[float32]([]int{8, 8}, nil, nil)
	require.NoError(t, Write(truncated, g))
	data, err := os.ReadFile(truncated)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-10], 0644))
	_, _, err = Read(truncated)
	assert.Error(t, err)
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()

	g, err := grid.New[uint8]([]int{2, 2, 2, 2, 2}, nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, Write(filepath.Join(dir, "five.nii"), g), ErrUnsupportedDimension)

	wide, err := grid.New[uint8]([]int{40000, 1}, nil, nil)
	require.NoError(t, err)
	assert.Error(t, Write(filepath.Join(dir, "wide.nii"), wide))
}

func TestDatatypeFor(t *testing.T) {
	code, err := DatatypeFor[int8]()
	require.NoError(t, err)
	assert.Equal(t, DTInt8, code)

	code, err = DatatypeFor[uint64]()
	require.NoError(t, err)
	assert.Equal(t, DTUint64, code)

	type level uint8
	_, err = DatatypeFor[level]()
	assert.ErrorIs(t, err, ErrUnsupportedDatatype)
}
