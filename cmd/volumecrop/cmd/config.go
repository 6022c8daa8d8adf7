package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"volumecrop/pkg/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to: %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.cfg.CropSpec()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", a.configPath)
			fmt.Fprintf(out, "Cores: %d\n", a.cfg.Processing.NumCores)
			fmt.Fprintf(out, "Mode: %s\n", spec.Mode)
			fmt.Fprintf(out, "Spacing scale: %g (isotropic: %t)\n", spec.SpacingScale, spec.IsotropicSpacing)
			fmt.Fprintf(out, "Interpolation: %s\n", spec.Interpolation)
			fmt.Fprintf(out, "Fill value: %g\n", spec.FillValue)
			return nil
		},
	})
	return cmd
}
