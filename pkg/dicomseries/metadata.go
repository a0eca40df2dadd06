package dicomseries

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"voxutil/internal/models"
)

const preambleSize = 128

// IsDICOM reports whether path is a DICOM file, or a directory containing at
// least one.
func IsDICOM(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return isDICOMFile(path)
	}
	files, err := listDICOMFiles(path)
	return err == nil && len(files) > 0
}

// isDICOMFile checks for the "DICM" marker after the 128 byte preamble.
func isDICOMFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, preambleSize+4)
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf[preambleSize:], []byte("DICM"))
}

// ReadMetadata returns every attribute of the DICOM file at path, sorted by
// tag. For a directory the first DICOM file in name order is used. Pixel
// data is skipped.
func ReadMetadata(path string) ([]models.MetadataEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		files, err := listDICOMFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoSlices, path)
		}
		path = files[0]
	}

	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("could not read DICOM file %s: %w", path, err)
	}

	entries := make([]models.MetadataEntry, 0, len(ds.Elements))
	for _, elem := range ds.Elements {
		description := "Unknown"
		if ti, err := tag.Find(elem.Tag); err == nil {
			description = ti.Name
		}
		entries = append(entries, models.MetadataEntry{
			Tag:         elem.Tag.String(),
			Description: description,
			Value:       formatValue(elem.Value),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })
	return entries, nil
}

// formatValue renders a value without the brackets the library adds around
// multi-valued attributes.
func formatValue(v dicom.Value) string {
	if v == nil {
		return ""
	}
	if strs, ok := v.GetValue().([]string); ok {
		return strings.Join(strs, "\\")
	}
	return strings.TrimSuffix(strings.TrimPrefix(v.String(), "["), "]")
}
