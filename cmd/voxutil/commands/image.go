package commands

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"voxutil/pkg/dicomseries"
	"voxutil/pkg/difference"
	"voxutil/pkg/grid"
	"voxutil/pkg/visualization"
	"voxutil/pkg/volumeio"
)

// loadedImage is a grid read from disk along with the datatype it was stored
// in, so derived images can be written back in the same type.
type loadedImage struct {
	grid     *grid.Grid[float64]
	datatype int16
}

// loadImage reads a NIfTI file, a DICOM file or a DICOM series directory.
// DICOM input is stored as float.
func loadImage(path string) (loadedImage, error) {
	if dicomseries.IsDICOM(path) {
		loader := dicomseries.NewLoader(&dicomseries.Params{Verbose: cfg.Output.Verbose})
		g, err := loader.Load(path)
		if err != nil {
			return loadedImage{}, fmt.Errorf("dicom load failed: %w", err)
		}
		return loadedImage{grid: g, datatype: volumeio.DTFloat32}, nil
	}

	g, h, err := volumeio.Read(path)
	if err != nil {
		return loadedImage{}, err
	}
	if cfg.Output.Verbose {
		log.Printf("Read %s: %v %s", path, h.Size, h.DatatypeName())
	}
	return loadedImage{grid: g, datatype: h.Datatype}, nil
}

// castTypes maps the type names accepted by cast onto NIfTI datatypes.
var castTypes = map[string]int16{
	"uchar":     volumeio.DTUint8,
	"char":      volumeio.DTInt8,
	"ushort":    volumeio.DTUint16,
	"short":     volumeio.DTInt16,
	"uint":      volumeio.DTUint32,
	"int":       volumeio.DTInt32,
	"ulong":     volumeio.DTUint64,
	"long":      volumeio.DTInt64,
	"ulonglong": volumeio.DTUint64,
	"longlong":  volumeio.DTInt64,
	"float":     volumeio.DTFloat32,
	"double":    volumeio.DTFloat64,
}

// writeAs stores g at path converted to the given NIfTI datatype.
func writeAs(path string, g *grid.Grid[float64], datatype int16) error {
	switch datatype {
	case volumeio.DTUint8:
		return volumeio.Write(path, grid.Convert[float64, uint8](g))
	case volumeio.DTInt8:
		return volumeio.Write(path, grid.Convert[float64, int8](g))
	case volumeio.DTUint16:
		return volumeio.Write(path, grid.Convert[float64, uint16](g))
	case volumeio.DTInt16:
		return volumeio.Write(path, grid.Convert[float64, int16](g))
	case volumeio.DTUint32:
		return volumeio.Write(path, grid.Convert[float64, uint32](g))
	case volumeio.DTInt32:
		return volumeio.Write(path, grid.Convert[float64, int32](g))
	case volumeio.DTUint64:
		return volumeio.Write(path, grid.Convert[float64, uint64](g))
	case volumeio.DTInt64:
		return volumeio.Write(path, grid.Convert[float64, int64](g))
	case volumeio.DTFloat32:
		return volumeio.Write(path, grid.Convert[float64, float32](g))
	case volumeio.DTFloat64:
		return volumeio.Write(path, g)
	}
	return fmt.Errorf("%w: %d", volumeio.ErrUnsupportedDatatype, datatype)
}

// addToleranceFlags registers the comparison flags. Unset flags fall back to
// the configuration file.
func addToleranceFlags(cmd *cobra.Command) {
	defaults := difference.DefaultTolerance()
	cmd.Flags().Float64("threshold", defaults.Threshold, "minimum difference for two samples to differ (default from config)")
	cmd.Flags().Int("radius", defaults.Radius, "distance searched for a matching sample (default from config)")
	cmd.Flags().Int("pixel-tolerance", defaults.PixelTolerance, "differing samples allowed before the comparison fails (default from config)")
}

func toleranceFromFlags(cmd *cobra.Command) (difference.ToleranceConfig, error) {
	tol := cfg.Tolerance()
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		v, err := flags.GetFloat64("threshold")
		if err != nil {
			return tol, err
		}
		tol.Threshold = v
	}
	if flags.Changed("radius") {
		v, err := flags.GetInt("radius")
		if err != nil {
			return tol, err
		}
		tol.Radius = v
	}
	if flags.Changed("pixel-tolerance") {
		v, err := flags.GetInt("pixel-tolerance")
		if err != nil {
			return tol, err
		}
		tol.PixelTolerance = v
	}
	return tol, tol.Validate()
}

// previewDirFromFlags returns --preview, or the configured directory.
func previewDirFromFlags(cmd *cobra.Command) string {
	if cmd.Flags().Changed("preview") {
		dir, _ := cmd.Flags().GetString("preview")
		return dir
	}
	return cfg.Output.PreviewDir
}

// savePreview writes the central slices of g to dir when dir is set.
// Grids other than 2D or 3D are skipped.
func savePreview(dir, prefix string, g *grid.Grid[float64]) error {
	if dir == "" {
		return nil
	}
	if d := g.Dimension(); d != 2 && d != 3 {
		log.Printf("Skipping preview of %dD grid", d)
		return nil
	}
	viewer, err := visualization.NewViewer(g)
	if err != nil {
		return err
	}
	written, err := viewer.SaveMidSlices(dir, prefix)
	if err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	if cfg.Output.Verbose {
		for _, path := range written {
			log.Printf("Wrote preview %s", path)
		}
	}
	return nil
}

// printReport writes the comparison statistics. totalLabel differs between
// the DICOM load test and the other comparisons.
func printReport(w io.Writer, totalLabel string, stats difference.Stats) {
	fmt.Fprintf(w, "%-28s: %d\n", totalLabel, stats.TotalSamples)
	fmt.Fprintf(w, "Number of Difference Voxels : %d\n", stats.DifferingSamples)
	fmt.Fprintf(w, "Percentage of Diff Voxels   : %d\n", stats.Percentage())
	fmt.Fprintf(w, "Minimum Intensity Difference: %g\n", stats.MinDiff)
	fmt.Fprintf(w, "Maximum Intensity Difference: %g\n", stats.MaxDiff)
	fmt.Fprintf(w, "Average Intensity Difference: %g\n", stats.MeanDiff)
	fmt.Fprintf(w, "Overall Intensity Difference: %g\n", stats.TotalDiff)
}

const (
	totalLabel      = "Total Voxels/Pixels in Image"
	dicomTotalLabel = "Total Voxels in Image"
)
