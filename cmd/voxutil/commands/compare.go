package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxutil/pkg/difference"
	"voxutil/pkg/grid"
	"voxutil/pkg/volumeio"
)

// compare <input> <baseline>: report how far an image is from a baseline.
func compareCmd() *cobra.Command {
	var diffMapPath string
	cmd := &cobra.Command{
		Use:   "compare <input> <baseline>",
		Short: "Compare an image against a baseline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := toleranceFromFlags(cmd)
			if err != nil {
				return err
			}
			test, err := loadImage(args[0])
			if err != nil {
				return err
			}
			valid, err := loadImage(args[1])
			if err != nil {
				return err
			}
			if err := grid.CheckCompatible(valid.grid, test.grid); err != nil {
				return fmt.Errorf("%w (size/origin/spacing mismatch): %v", errDifferentSpaces, err)
			}

			previewDir := previewDirFromFlags(cmd)
			var res difference.Result
			if diffMapPath != "" || previewDir != "" {
				res, err = difference.CompareWithMap(valid.grid, test.grid, tol)
			} else {
				res, err = difference.Compare(valid.grid, test.grid, tol)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printReport(out, totalLabel, res.Stats)
			if res.Failed {
				fmt.Fprintf(out, "Differing samples exceed the tolerance of %d.\n", tol.PixelTolerance)
			}

			if diffMapPath != "" {
				if err := writeAs(diffMapPath, res.Map, volumeio.DTFloat32); err != nil {
					return err
				}
			}
			return savePreview(previewDir, "diff", res.Map)
		},
	}
	addToleranceFlags(cmd)
	cmd.Flags().StringVar(&diffMapPath, "diff-map", "", "write the per-sample difference to this NIfTI file")
	cmd.Flags().String("preview", "", "write JPEG previews of the difference map to this directory")
	return cmd
}
