// Package cmd implements the volumecrop command line.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"volumecrop/pkg/config"
)

// DefaultConfigPath is read when --config is not given
const DefaultConfigPath = "volumecrop.yaml"

// app carries state shared by the subcommands of one invocation
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the command tree. Each call returns independent
// commands so tests can run them side by side.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "volumecrop",
		Short: "Crop 3D volumes to a physical region of interest",
		Long: `Crop a 3D scalar volume (CT, MRI) to a box given in physical coordinates.

Two modes are available:
- voxel:    copy the exact voxels covering the box, no interpolation
- resample: interpolate onto a new grid aligned with a possibly rotated box,
            at a scaled or isotropic spacing

Examples:
  volumecrop sample --output phantom.yaml
  volumecrop crop --input phantom.yaml --center 0,0,0 --size 30,30,30
  volumecrop crop --input phantom.yaml --fit --mode resample --spacing-scale 2
  volumecrop info phantom.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", DefaultConfigPath, "config file (missing file means defaults)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newCropCommand(a),
		newInfoCommand(a),
		newSampleCommand(a),
		newConfigCommand(a),
	)
	return root
}

// init loads configuration and sets up logging
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Output.Verbose = a.verbose
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.logger.Debug("configuration loaded", "path", a.configPath, "numCores", cfg.Processing.NumCores)
	return nil
}
