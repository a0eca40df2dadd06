package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voxutil/pkg/dicomseries"
	"voxutil/pkg/grid"
	"voxutil/pkg/volumeio"
)

// info <image>: print DICOM tags or the NIfTI header as CSV.
func infoCmd() *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "info <image>",
		Short: "Print DICOM tags or NIfTI header information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := args[0]

			if dicomseries.IsDICOM(path) {
				fmt.Fprintln(out, "DICOM file detected, will print out all tags.")
				entries, err := dicomseries.ReadMetadata(path)
				if err != nil {
					return fmt.Errorf("could not read dicom image: %w", err)
				}
				fmt.Fprintln(out, "Tag,Description,Value")
				for _, e := range entries {
					fmt.Fprintf(out, "%s,%s,%s\n", e.Tag, e.Description, e.Value)
				}
				return nil
			}

			h, err := volumeio.ReadHeader(path)
			if err != nil {
				return err
			}
			total := 1
			for _, s := range h.Size {
				total *= s
			}
			fmt.Fprintln(out, "Property,Value")
			fmt.Fprintf(out, "Dimensions,%d\n", h.Dimension())
			fmt.Fprintf(out, "Size,%s\n", joinInts(h.Size))
			fmt.Fprintf(out, "Total,%d\n", total)
			fmt.Fprintf(out, "Origin,%s\n", joinFloats(h.Origin))
			fmt.Fprintf(out, "Spacing,%s\n", joinFloats(h.Spacing))
			fmt.Fprintf(out, "Component,%s\n", h.DatatypeName())
			fmt.Fprintln(out, "Pixel Type,scalar")

			if withStats {
				g, _, err := volumeio.Read(path)
				if err != nil {
					return err
				}
				s := grid.Summarize(g)
				fmt.Fprintf(out, "Minimum,%g\n", s.Min)
				fmt.Fprintf(out, "Maximum,%g\n", s.Max)
				fmt.Fprintf(out, "Mean,%g\n", s.Mean)
				fmt.Fprintf(out, "StdDev,%g\n", s.StdDev)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withStats, "stats", false, "also print intensity statistics")
	return cmd
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "x")
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return strings.Join(parts, "x")
}
