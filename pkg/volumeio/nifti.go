// Package volumeio reads and writes grids as single-file NIfTI-1 images,
// plain (.nii) or gzip compressed (.nii.gz).
//
// Headers are decoded into the nifti package's Nifti1Header. Samples are
// always read into float64 grids, the working type of every voxutil
// operation; Write picks the on-disk datatype from the grid's sample type so
// casting is a matter of converting before writing.
package volumeio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/henghuang/nifti"
	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"voxutil/pkg/grid"
)

// Common errors
var (
	ErrNotNIfTI             = errors.New("not a NIfTI-1 file")
	ErrUnsupportedDatatype  = errors.New("unsupported NIfTI datatype")
	ErrUnsupportedDimension = errors.New("only 1D to 4D images are supported")
)

const (
	headerSize = 348
	voxOffset  = 352

	// MaxDimension is the largest image dimension Read accepts.
	MaxDimension = 4

	// maxSamples caps the sample count a header may declare.
	maxSamples = 1 << 31
)

// NIfTI-1 datatype codes
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

var datatypeNames = map[int16]string{
	DTUint8:   "unsigned char",
	DTInt16:   "short",
	DTInt32:   "int",
	DTFloat32: "float",
	DTFloat64: "double",
	DTInt8:    "char",
	DTUint16:  "unsigned short",
	DTUint32:  "unsigned int",
	DTInt64:   "long",
	DTUint64:  "unsigned long",
}

// Header is the decoded subset of a NIfTI-1 header voxutil cares about.
type Header struct {
	Datatype    int16
	Bitpix      int16
	Size        []int
	Origin      []float64
	Spacing     []float64
	SclSlope    float64
	SclInter    float64
	Description string

	// dataOffset is the byte offset of the first sample
	dataOffset int64
}

// Dimension returns the number of axes.
func (h Header) Dimension() int { return len(h.Size) }

// Len returns the number of samples the header declares.
func (h Header) Len() int {
	n := 1
	for _, s := range h.Size {
		n *= s
	}
	return n
}

// DatatypeName returns the C type name of the on-disk datatype.
func (h Header) DatatypeName() string {
	if name, ok := datatypeNames[h.Datatype]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", h.Datatype)
}

// DatatypeFor returns the NIfTI datatype code for a sample type.
func DatatypeFor[T grid.Sample]() (int16, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return DTUint8, nil
	case int8:
		return DTInt8, nil
	case uint16:
		return DTUint16, nil
	case int16:
		return DTInt16, nil
	case uint32:
		return DTUint32, nil
	case int32:
		return DTInt32, nil
	case uint64:
		return DTUint64, nil
	case int64:
		return DTInt64, nil
	case float32:
		return DTFloat32, nil
	case float64:
		return DTFloat64, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupportedDatatype, zero)
}

// openMaybeGzip returns a reader over the decompressed content of path.
func openMaybeGzip(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotNIfTI, path)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, f.Close, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	return zr, func() error {
		zr.Close()
		return f.Close()
	}, nil
}

// toHeader validates raw and converts it to a Header. Every declared axis
// must be positive and the declared sample count must stay below maxSamples,
// so a corrupt header never reaches an allocation.
func toHeader(raw nifti.Nifti1Header) (Header, error) {
	if raw.SizeofHdr != headerSize {
		return Header{}, fmt.Errorf("%w: header size %d", ErrNotNIfTI, raw.SizeofHdr)
	}
	if string(raw.Magic[:3]) != "n+1" {
		return Header{}, fmt.Errorf("%w: magic %q (only single-file images are supported)", ErrNotNIfTI, raw.Magic[:3])
	}

	dim := int(raw.Dim[0])
	if dim < 1 || dim > grid.MaxDimension {
		return Header{}, fmt.Errorf("%w: dimension %d", ErrNotNIfTI, dim)
	}
	if dim > MaxDimension {
		return Header{}, fmt.Errorf("%w: got %dD", ErrUnsupportedDimension, dim)
	}
	n := 1
	for d := 1; d <= dim; d++ {
		s := int(raw.Dim[d])
		if s <= 0 {
			return Header{}, fmt.Errorf("%w: axis %d has size %d", ErrNotNIfTI, d-1, s)
		}
		n *= s
		if n > maxSamples {
			return Header{}, fmt.Errorf("%w: more than %d samples", ErrNotNIfTI, maxSamples)
		}
	}

	datatype := int16(raw.Datatype)
	if _, ok := datatypeNames[datatype]; !ok {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedDatatype, raw.Datatype)
	}
	offset := int64(raw.VoxOffset)
	if offset < headerSize {
		return Header{}, fmt.Errorf("%w: voxel offset %d", ErrNotNIfTI, offset)
	}

	h := Header{
		Datatype:    datatype,
		Bitpix:      int16(raw.Bitpix),
		Size:        make([]int, dim),
		Origin:      make([]float64, dim),
		Spacing:     make([]float64, dim),
		SclSlope:    float64(raw.SclSlope),
		SclInter:    float64(raw.SclInter),
		Description: strings.TrimRight(string(raw.Descrip[:]), "\x00 "),
		dataOffset:  offset,
	}
	for d := 0; d < dim; d++ {
		h.Size[d] = int(raw.Dim[d+1])
		h.Spacing[d] = math.Abs(float64(raw.Pixdim[d+1]))
	}

	// Spatial origin and spacing come from the affine when one is stored
	affine := affineOf(raw)
	if affine != nil {
		corner := mat.NewVecDense(4, nil)
		corner.MulVec(affine, mat.NewVecDense(4, []float64{0, 0, 0, 1}))
		for d := 0; d < min(dim, 3); d++ {
			h.Origin[d] = corner.AtVec(d)
			if h.Spacing[d] == 0 {
				h.Spacing[d] = floats.Norm(mat.Col(nil, d, affine)[:3], 2)
			}
		}
	}
	if dim > 3 {
		h.Origin[3] = float64(raw.Toffset)
	}
	for d := range h.Spacing {
		if h.Spacing[d] == 0 {
			h.Spacing[d] = 1
		}
	}
	return h, nil
}

// affineOf returns the voxel-to-world matrix of the header, preferring the
// sform, or nil when neither sform nor qform is set.
func affineOf(raw nifti.Nifti1Header) *mat.Dense {
	switch {
	case raw.SformCode > 0:
		data := make([]float64, 0, 16)
		for _, row := range [][4]float32{raw.SrowX, raw.SrowY, raw.SrowZ} {
			for _, v := range row {
				data = append(data, float64(v))
			}
		}
		data = append(data, 0, 0, 0, 1)
		return mat.NewDense(4, 4, data)
	case raw.QformCode > 0:
		a := mat.NewDense(4, 4, nil)
		for d := 0; d < 3; d++ {
			a.Set(d, d, float64(raw.Pixdim[d+1]))
		}
		a.Set(0, 3, float64(raw.QoffsetX))
		a.Set(1, 3, float64(raw.QoffsetY))
		a.Set(2, 3, float64(raw.QoffsetZ))
		a.Set(3, 3, 1)
		return a
	}
	return nil
}

// ReadHeader decodes only the header of the image at path.
func ReadHeader(path string) (Header, error) {
	if _, err := os.Stat(path); err != nil {
		return Header{}, err
	}
	raw, err := safelyLoadHeader(path)
	if err != nil {
		return Header{}, err
	}
	h, err := toHeader(raw)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Read loads the image at path as a float64 grid. Intensity scaling from
// scl_slope/scl_inter is applied.
func Read(path string) (*grid.Grid[float64], Header, error) {
	h, err := ReadHeader(path)
	if err != nil {
		return nil, Header{}, err
	}

	r, closer, err := openMaybeGzip(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer closer()

	// Skip the header and extensions up to the data offset
	if _, err := io.CopyN(io.Discard, r, h.dataOffset); err != nil {
		return nil, Header{}, fmt.Errorf("%s: failed to reach voxel data: %w", path, err)
	}

	data, err := readSamples(r, h.Datatype, h.Len())
	if err != nil {
		return nil, Header{}, fmt.Errorf("%s: failed to read voxel data: %w", path, err)
	}

	if h.SclSlope != 0 && (h.SclSlope != 1 || h.SclInter != 0) {
		for i := range data {
			data[i] = data[i]*h.SclSlope + h.SclInter
		}
	}

	g, err := grid.FromData(h.Size, h.Origin, h.Spacing, data)
	if err != nil {
		return nil, Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, h, nil
}

func readSamples(r io.Reader, datatype int16, n int) ([]float64, error) {
	switch datatype {
	case DTUint8:
		return readAs[uint8](r, n)
	case DTInt8:
		return readAs[int8](r, n)
	case DTUint16:
		return readAs[uint16](r, n)
	case DTInt16:
		return readAs[int16](r, n)
	case DTUint32:
		return readAs[uint32](r, n)
	case DTInt32:
		return readAs[int32](r, n)
	case DTUint64:
		return readAs[uint64](r, n)
	case DTInt64:
		return readAs[int64](r, n)
	case DTFloat32:
		return readAs[float32](r, n)
	case DTFloat64:
		return readAs[float64](r, n)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedDatatype, datatype)
}

func readAs[T grid.Sample](r io.Reader, n int) ([]float64, error) {
	raw := make([]T, n)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}

// Write stores g at path, gzip compressed when path ends in ".gz". The
// datatype is taken from the sample type.
func Write[T grid.Sample](path string, g *grid.Grid[T]) error {
	datatype, err := DatatypeFor[T]()
	if err != nil {
		return err
	}
	if dim := g.Dimension(); dim > MaxDimension {
		return fmt.Errorf("%w: got %dD", ErrUnsupportedDimension, dim)
	}
	for d, s := range g.Size() {
		if s > math.MaxInt16 {
			return fmt.Errorf("axis %d has %d samples, more than a NIfTI-1 header can hold", d, s)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *gzip.Writer
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zw = gzip.NewWriter(bw)
		w = zw
	}

	if err := binary.Write(w, binary.LittleEndian, buildHeader(g, datatype)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	// Empty extension block
	if _, err := w.Write(make([]byte, voxOffset-headerSize)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, g.Data()); err != nil {
		return fmt.Errorf("failed to write voxel data: %w", err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func buildHeader[T grid.Sample](g *grid.Grid[T], datatype int16) nifti.Nifti1Header {
	var zero T
	var raw nifti.Nifti1Header
	raw.SizeofHdr = headerSize
	raw.Regular = 'r'
	raw.Datatype = datatype
	raw.Bitpix = int16(binary.Size(zero) * 8)
	raw.VoxOffset = voxOffset
	raw.SclSlope = 1
	raw.QformCode = 1
	raw.SformCode = 1
	raw.XyztUnits = 2 | 8 // mm, seconds
	copy(raw.Magic[:], "n+1\x00")
	copy(raw.Descrip[:], "voxutil")

	size, origin, spacing := g.Size(), g.Origin(), g.Spacing()
	raw.Dim[0] = int16(len(size))
	raw.Pixdim[0] = 1
	for d := range size {
		raw.Dim[d+1] = int16(size[d])
		raw.Pixdim[d+1] = float32(spacing[d])
	}
	for d := len(size) + 1; d < 8; d++ {
		raw.Dim[d] = 1
	}

	var o [3]float64
	var s = [3]float64{1, 1, 1}
	for d := 0; d < min(len(size), 3); d++ {
		o[d], s[d] = origin[d], spacing[d]
	}
	raw.QoffsetX, raw.QoffsetY, raw.QoffsetZ = float32(o[0]), float32(o[1]), float32(o[2])
	raw.SrowX = [4]float32{float32(s[0]), 0, 0, float32(o[0])}
	raw.SrowY = [4]float32{0, float32(s[1]), 0, float32(o[1])}
	raw.SrowZ = [4]float32{0, 0, float32(s[2]), float32(o[2])}
	if len(size) > 3 {
		raw.Toffset = float32(origin[3])
	}
	return raw
}
