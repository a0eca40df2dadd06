package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// cast <input> <output> <type>: rewrite an image with another sample type.
func castCmd() *cobra.Command {
	names := make([]string, 0, len(castTypes))
	for name := range castTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	return &cobra.Command{
		Use:   "cast <input> <output> <type>",
		Short: "Change the sample type of an image",
		Long:  "Change the sample type of an image. Supported types: " + strings.Join(names, ", "),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			datatype, ok := castTypes[args[2]]
			if !ok {
				return fmt.Errorf("undefined pixel type cast requested: %q", args[2])
			}
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}
			if err := writeAs(args[1], img.grid, datatype); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Casting completed.")
			return nil
		},
	}
}
