// Package dicomseries turns DICOM files into grids and dumps their metadata.
//
// A single file becomes a 2D grid; a directory holding one series becomes a
// 3D grid whose slices are ordered by InstanceNumber. Physical geometry is
// taken from ImagePositionPatient, PixelSpacing and the gap between slice
// positions so the result can be compared against a NIfTI reference.
package dicomseries

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"voxutil/internal/models"
	"voxutil/pkg/grid"
)

// Common errors
var (
	ErrNoSlices           = errors.New("no DICOM slices found")
	ErrInconsistentSeries = errors.New("slices in series have different dimensions")
	ErrNoPixelData        = errors.New("DICOM file has no usable pixel data")
)

// Params holds the series loading parameters.
type Params struct {
	// NumCores specifies how many files are parsed concurrently
	NumCores int

	// Verbose enables progress logging
	Verbose bool
}

// Loader reads DICOM slices and stacks them into grids.
type Loader struct {
	params *Params
}

// NewLoader creates a loader; a nil params uses all available cores.
func NewLoader(params *Params) *Loader {
	if params == nil {
		params = &Params{}
	}
	if params.NumCores < 1 {
		params.NumCores = runtime.NumCPU()
	}
	return &Loader{params: params}
}

// LoadSeries reads path, a DICOM file or a directory with one series.
func LoadSeries(path string) (*grid.Grid[float64], error) {
	return NewLoader(nil).Load(path)
}

// Load reads path, a DICOM file or a directory with one series.
func (l *Loader) Load(path string) (*grid.Grid[float64], error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		s, err := readSlice(path)
		if err != nil {
			return nil, err
		}
		return sliceToGrid(s)
	}

	files, err := listDICOMFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, path)
	}
	slices, err := l.readSlices(files)
	if err != nil {
		return nil, err
	}
	sortSlices(slices)
	if l.params.Verbose {
		log.Printf("Loaded %d slices with dimensions %dx%d from %s", len(slices), slices[0].Cols, slices[0].Rows, path)
	}
	return stack(slices)
}

// readSlices parses files concurrently, at most NumCores at a time.
func (l *Loader) readSlices(files []string) ([]*models.Slice, error) {
	type parseResult struct {
		index int
		slice *models.Slice
		err   error
	}
	resultChan := make(chan parseResult)
	sem := make(chan struct{}, l.params.NumCores)

	for i, file := range files {
		go func(index int, file string) {
			sem <- struct{}{}
			s, err := readSlice(file)
			<-sem
			resultChan <- parseResult{index: index, slice: s, err: err}
		}(i, file)
	}

	slices := make([]*models.Slice, len(files))
	var firstErr error
	for range files {
		res := <-resultChan
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to load slice %s: %w", files[res.index], res.err)
		}
		slices[res.index] = res.slice
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return slices, nil
}

// listDICOMFiles returns the DICOM files directly inside dir, sorted by name.
func listDICOMFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if isDICOMFile(path) {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}

// sortSlices orders slices by InstanceNumber when every slice has one, and
// by the number embedded in the file name otherwise.
func sortSlices(slices []*models.Slice) {
	byInstance := true
	for _, s := range slices {
		if s.InstanceNumber == 0 {
			byInstance = false
			break
		}
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if byInstance {
			return slices[i].InstanceNumber < slices[j].InstanceNumber
		}
		return extractNumber(slices[i].Filename) < extractNumber(slices[j].Filename)
	})
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// readSlice parses one DICOM file into a slice.
func readSlice(path string) (*models.Slice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	s := &models.Slice{
		Filename:     filepath.Base(path),
		PixelSpacing: [2]float64{1, 1},
	}
	if v, ok := floatValues(ds, tag.InstanceNumber); ok && len(v) > 0 {
		s.InstanceNumber = int(v[0])
	}
	if v, ok := floatValues(ds, tag.SliceThickness); ok && len(v) > 0 {
		s.Thickness = v[0]
	}
	if v, ok := floatValues(ds, tag.ImagePositionPatient); ok && len(v) == 3 {
		copy(s.Position[:], v)
		s.HasPosition = true
	}
	if v, ok := floatValues(ds, tag.PixelSpacing); ok && len(v) == 2 && v[0] > 0 && v[1] > 0 {
		copy(s.PixelSpacing[:], v)
	}

	img, err := firstFrameImage(ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bounds := img.Bounds()
	s.Cols, s.Rows = bounds.Dx(), bounds.Dy()
	s.Pixels = imageToFloat(img)

	slope, intercept := 1.0, 0.0
	if v, ok := floatValues(ds, tag.RescaleSlope); ok && len(v) > 0 && v[0] != 0 {
		slope = v[0]
	}
	if v, ok := floatValues(ds, tag.RescaleIntercept); ok && len(v) > 0 {
		intercept = v[0]
	}
	if slope != 1 || intercept != 0 {
		for i := range s.Pixels {
			s.Pixels[i] = s.Pixels[i]*slope + intercept
		}
	}
	return s, nil
}

func firstFrameImage(ds dicom.Dataset) (image.Image, error) {
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, ErrNoPixelData
	}
	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok || len(info.Frames) == 0 {
		return nil, ErrNoPixelData
	}
	img, err := info.Frames[0].GetImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPixelData, err)
	}
	return img, nil
}

// floatValues returns the numeric values of t, parsing string-encoded
// numbers (IS/DS) as needed.
func floatValues(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, false
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	case []float64:
		return v, true
	}
	return nil, false
}

// imageToFloat converts a decoded frame to raw intensities, row-major
func imageToFloat(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch c := px.(type) {
			case color.Gray16:
				result[y*width+x] = float64(c.Y)
			case color.Gray:
				result[y*width+x] = float64(c.Y)
			default:
				result[y*width+x] = float64(color.Gray16Model.Convert(px).(color.Gray16).Y)
			}
		}
	}

	return result
}

func sliceToGrid(s *models.Slice) (*grid.Grid[float64], error) {
	origin := []float64{0, 0}
	if s.HasPosition {
		origin = []float64{s.Position[0], s.Position[1]}
	}
	// PixelSpacing is (row spacing, column spacing); axis 0 runs along a row
	spacing := []float64{s.PixelSpacing[1], s.PixelSpacing[0]}
	return grid.FromData([]int{s.Cols, s.Rows}, origin, spacing, s.Pixels)
}

// stack builds a 3D grid from ordered slices.
func stack(slices []*models.Slice) (*grid.Grid[float64], error) {
	first := slices[0]
	for _, s := range slices[1:] {
		if s.Rows != first.Rows || s.Cols != first.Cols {
			return nil, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d", ErrInconsistentSeries,
				first.Filename, first.Cols, first.Rows, s.Filename, s.Cols, s.Rows)
		}
	}

	plane := first.Rows * first.Cols
	data := make([]float64, plane*len(slices))
	for z, s := range slices {
		copy(data[z*plane:], s.Pixels)
	}

	origin := []float64{0, 0, 0}
	if first.HasPosition {
		origin = first.Position[:]
	}
	spacing := []float64{first.PixelSpacing[1], first.PixelSpacing[0], sliceGap(slices)}
	return grid.FromData([]int{first.Cols, first.Rows, len(slices)}, origin, spacing, data)
}

// sliceGap returns the distance between consecutive slices, falling back to
// the slice thickness and finally to 1.
func sliceGap(slices []*models.Slice) float64 {
	if len(slices) > 1 && slices[0].HasPosition && slices[1].HasPosition {
		var sum float64
		for d := 0; d < 3; d++ {
			delta := slices[1].Position[d] - slices[0].Position[d]
			sum += delta * delta
		}
		if gap := math.Sqrt(sum); gap > 0 {
			return gap
		}
	}
	if slices[0].Thickness > 0 {
		return slices[0].Thickness
	}
	return 1
}
