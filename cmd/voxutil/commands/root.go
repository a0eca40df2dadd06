package commands

import (
	"log"

	"github.com/spf13/cobra"

	"voxutil/pkg/config"
)

var (
	configPath string
	verbose    bool
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "voxutil",
		Short:        "Utilities for comparing and cropping medical image grids",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if verbose {
				cfg.Output.Verbose = true
			}
			if cfg.Output.Verbose && configPath != "" {
				log.Printf("Loaded configuration from %s", configPath)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress")

	root.AddCommand(
		sanityCmd(),
		infoCmd(),
		castCmd(),
		uniqueCmd(),
		maskCmd(),
		changeCmd(),
		bboxCmd(),
		compareCmd(),
		dicom2NiftiCmd(),
		dicomTestCmd(),
		configCmd(),
	)
	return root
}

func Execute() error {
	return newRootCmd().Execute()
}
