package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"voxutil/pkg/grid"
)

// unique <input>: list the distinct sample values.
func uniqueCmd() *cobra.Command {
	var sorted bool
	cmd := &cobra.Command{
		Use:   "unique <input>",
		Short: "Print the unique values in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			values := grid.UniqueValues(img.grid, sorted)
			if len(values) == 0 {
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Unique values:")
			for _, v := range values {
				fmt.Fprintln(out, strconv.FormatFloat(v, 'g', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sorted, "sort", true, "sort values ascending; otherwise keep first-appearance order")
	return cmd
}
