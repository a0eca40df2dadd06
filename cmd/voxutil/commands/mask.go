package commands

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voxutil/pkg/grid"
)

// mask <input> <output>: binary threshold into a 0/1 mask.
func maskCmd() *cobra.Command {
	var bounds string
	cmd := &cobra.Command{
		Use:   "mask <input> <output>",
		Short: "Create a binary mask from an intensity range",
		Long:  "Create a binary mask from an intensity range. Samples within [lower, upper] become 1, everything else 0.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lower, upper, err := parseRange(bounds)
			if err != nil {
				return err
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			if err := writeAs(args[1], grid.Threshold(img.grid, lower, upper), img.datatype); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Create Mask completed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&bounds, "range", "1", "threshold range as lower,upper; upper defaults to the largest value")
	return cmd
}

// parseRange parses "lower" or "lower,upper".
func parseRange(s string) (lower, upper float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("range %q must be lower,upper", s)
	}
	lower, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lower threshold: %w", err)
	}
	upper = math.MaxFloat64
	if len(parts) == 2 {
		upper, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid upper threshold: %w", err)
		}
	}
	if upper < lower {
		return 0, 0, fmt.Errorf("upper threshold %g is below lower threshold %g", upper, lower)
	}
	return lower, upper, nil
}
