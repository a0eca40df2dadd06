package commands

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"voxutil/pkg/dicomseries"
	"voxutil/pkg/difference"
	"voxutil/pkg/grid"
	"voxutil/pkg/volumeio"
)

var (
	errNotDICOM         = errors.New("input is not a DICOM file or series")
	errComparisonFailed = errors.New("dicom load test failed")
)

func loadDICOM(path string) (*grid.Grid[float64], error) {
	if !dicomseries.IsDICOM(path) {
		return nil, fmt.Errorf("%w: %s", errNotDICOM, path)
	}
	loader := dicomseries.NewLoader(&dicomseries.Params{Verbose: cfg.Output.Verbose})
	g, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("dicom load failed: %w", err)
	}
	return g, nil
}

// dicom2nifti <dicom> <output>: convert, optionally checking a reference.
func dicom2NiftiCmd() *cobra.Command {
	var reference string
	cmd := &cobra.Command{
		Use:   "dicom2nifti <dicom> <output>",
		Short: "Convert a DICOM file or series to NIfTI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := toleranceFromFlags(cmd)
			if err != nil {
				return err
			}
			g, err := loadDICOM(args[0])
			if err != nil {
				return err
			}
			if err := writeAs(args[1], g, volumeio.DTFloat32); err != nil {
				return err
			}
			if cfg.Output.Verbose {
				log.Printf("Wrote %s", args[1])
			}
			if reference == "" {
				return nil
			}

			ref, err := loadImage(reference)
			if err != nil {
				return err
			}
			if err := grid.CheckCompatible(ref.grid, g); err != nil {
				return fmt.Errorf("input image and target image physical space mismatch: %w", err)
			}
			res, err := difference.Compare(ref.grid, g, tol)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), totalLabel, res.Stats)
			return nil
		},
	}
	addToleranceFlags(cmd)
	cmd.Flags().StringVar(&reference, "reference", "", "NIfTI image to compare the converted image against")
	return cmd
}

// dicomtest <dicom> <nifti>: check that a DICOM series loads as expected.
func dicomTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomtest <dicom> <nifti>",
		Short: "Check a DICOM load against a NIfTI reference",
		Long:  "Load a DICOM file or series and compare it against a NIfTI reference. Exits non-zero when more samples differ than the pixel tolerance allows.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := toleranceFromFlags(cmd)
			if err != nil {
				return err
			}
			test, err := loadDICOM(args[0])
			if err != nil {
				return err
			}
			valid, _, err := volumeio.Read(args[1])
			if err != nil {
				return err
			}

			res, err := difference.Compare(valid, test, tol)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), dicomTotalLabel, res.Stats)
			if res.Failed {
				return fmt.Errorf("%w: %d differing samples, tolerance %d",
					errComparisonFailed, res.Stats.DifferingSamples, tol.PixelTolerance)
			}
			return nil
		},
	}
	addToleranceFlags(cmd)
	return cmd
}
