// Package commands implements the voxutil command line: geometry checks,
// header and metadata dumps, type casting, masking, value relabelling,
// bounding box extraction and image comparison for NIfTI and DICOM inputs.
package commands
