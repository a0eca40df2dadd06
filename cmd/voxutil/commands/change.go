package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxutil/pkg/grid"
)

// change <input> <output>: relabel sample values.
func changeCmd() *cobra.Command {
	var values string
	cmd := &cobra.Command{
		Use:   "change <input> <output>",
		Short: "Change specific sample values",
		Long:  "Change specific sample values. --values takes oldValues,newValues where each side is an 'x' separated list, e.g. 3x4,5x6.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldValues, newValues, err := parseChange(values)
			if err != nil {
				return err
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			changed, err := grid.ChangeValues(img.grid, oldValues, newValues)
			if err != nil {
				return err
			}
			if err := writeAs(args[1], changed, img.datatype); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Change values completed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&values, "values", "3,4", "old and new values as old1xold2,new1xnew2")
	return cmd
}

func parseChange(s string) (oldValues, newValues []float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("change value needs 2 values in the format 'oldValue,newValue', got %q", s)
	}
	if oldValues, err = grid.ParseValueList(parts[0]); err != nil {
		return nil, nil, err
	}
	if newValues, err = grid.ParseValueList(parts[1]); err != nil {
		return nil, nil, err
	}
	if len(oldValues) != len(newValues) {
		return nil, nil, fmt.Errorf("%w: %d old, %d new", grid.ErrValueCount, len(oldValues), len(newValues))
	}
	return oldValues, newValues, nil
}
