package models

// Slice represents a single DICOM image slice with the metadata needed to
// stack it into a volume
type Slice struct {
	// Pixels is the slice intensity data in row-major order (columns vary fastest)
	Pixels []float64

	// Rows and Cols are the slice dimensions in pixels
	Rows int
	Cols int

	// InstanceNumber is the position of this slice in the acquisition, 0 if absent
	InstanceNumber int

	// Filename is the original filename of the slice
	Filename string

	// Thickness is the physical thickness of the slice in mm, 0 if absent
	Thickness float64

	// Position is the ImagePositionPatient of the first transmitted pixel
	Position [3]float64

	// HasPosition is false when the slice carries no ImagePositionPatient
	HasPosition bool

	// PixelSpacing is the physical distance between rows and between columns in mm
	PixelSpacing [2]float64
}

// MetadataEntry is one printable DICOM attribute
type MetadataEntry struct {
	// Tag is the "(gggg,eeee)" group/element pair
	Tag string

	// Description is the dictionary name of the tag
	Description string

	// Value is the attribute value rendered as text
	Value string
}
