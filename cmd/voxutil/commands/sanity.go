package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"voxutil/pkg/grid"
)

var errDifferentSpaces = errors.New("images are in different spaces")

// sanity <image> <target>: check that two images share size, origin and spacing.
func sanityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanity <image> <target>",
		Short: "Check that two images share size, origin and spacing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadImage(args[0])
			if err != nil {
				return err
			}
			b, err := loadImage(args[1])
			if err != nil {
				return err
			}
			if err := grid.CheckCompatible(a.grid, b.grid); err != nil {
				return fmt.Errorf("%w: %v", errDifferentSpaces, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Images are in the same space.")
			return nil
		},
	}
}
