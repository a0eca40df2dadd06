package commands

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"voxutil/pkg/region"
)

// bbox <input> <mask> <output>: keep only the box around the mask.
func bboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bbox <input> <mask> <output>",
		Short: "Extract the bounding box around a mask from an image",
		Long:  "Extract the bounding box around the non-zero samples of a mask. Samples inside the box are copied from the input, everything else is zero.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			isotropic := cfg.Region.Isotropic
			if cmd.Flags().Changed("isotropic") {
				isotropic, _ = cmd.Flags().GetBool("isotropic")
			}

			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			mask, err := loadImage(args[1])
			if err != nil {
				return err
			}

			out, r, err := region.ExtractRegion(img.grid, mask.grid, isotropic)
			if err != nil {
				return fmt.Errorf("cannot compute bounding box: %w", err)
			}
			if cfg.Output.Verbose {
				log.Printf("Bounding box min %v max %v, copied %d samples", r.Box.Min, r.Box.Max, r.Count())
			}
			if err := writeAs(args[2], out, img.datatype); err != nil {
				return err
			}
			if err := savePreview(previewDirFromFlags(cmd), "bbox", out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bounding box [%s] to [%s] extracted.\n", joinInts(r.Low), joinInts(r.High))
			return nil
		},
	}
	cmd.Flags().Bool("isotropic", true, "expand the box to the longest axis on every axis (default from config)")
	cmd.Flags().String("preview", "", "write JPEG previews of the result to this directory")
	return cmd
}
