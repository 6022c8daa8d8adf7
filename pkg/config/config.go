// Package config provides configuration loading and management for volumecrop.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"volumecrop/internal/models"
	"volumecrop/pkg/interpolation"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// MaxSpacingScale is the largest spacing scale accepted from configuration
const MaxSpacingScale = 10.0

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use while resampling
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Crop parameters
	Crop struct {
		// Mode is "voxel" for an exact sub-array or "resample" for interpolation
		Mode string `yaml:"mode"`

		// SpacingScale multiplies the input spacing in resample mode
		SpacingScale float64 `yaml:"spacingScale"`

		// IsotropicSpacing uses the smallest scaled spacing on all axes
		IsotropicSpacing bool `yaml:"isotropicSpacing"`

		// Interpolation is one of nearest, linear, bspline
		Interpolation string `yaml:"interpolation"`

		// FillValue is written where the region leaves the input volume
		FillValue float64 `yaml:"fillValue"`
	} `yaml:"crop"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// PreviewDir receives preview slices of the cropped volume when set
		PreviewDir string `yaml:"previewDir"`

		// PreviewWidth is the width in pixels of preview images, 0 keeps the native size
		PreviewWidth int `yaml:"previewWidth"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Crop.Mode = models.VoxelAligned.String()
	cfg.Crop.SpacingScale = 1.0
	cfg.Crop.IsotropicSpacing = false
	cfg.Crop.Interpolation = interpolation.Linear.String()
	cfg.Crop.FillValue = 0

	cfg.Output.Verbose = false
	cfg.Output.PreviewDir = ""
	cfg.Output.PreviewWidth = 256

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks value ranges and selector names
func (c *Config) Validate() error {
	if c.Processing.NumCores < 0 {
		return fmt.Errorf("%w: processing.numCores must not be negative, got %d", ErrInvalidConfig, c.Processing.NumCores)
	}
	if _, err := models.ParseMode(c.Crop.Mode); err != nil {
		return fmt.Errorf("%w: crop.mode: %w", ErrInvalidConfig, err)
	}
	if s := c.Crop.SpacingScale; !(s > 0) || s > MaxSpacingScale {
		return fmt.Errorf("%w: crop.spacingScale must be in (0, %g], got %g", ErrInvalidConfig, MaxSpacingScale, s)
	}
	if _, err := interpolation.ParseKind(c.Crop.Interpolation); err != nil {
		return fmt.Errorf("%w: crop.interpolation: %w", ErrInvalidConfig, err)
	}
	if math.IsNaN(c.Crop.FillValue) || math.IsInf(c.Crop.FillValue, 0) {
		return fmt.Errorf("%w: crop.fillValue must be finite", ErrInvalidConfig)
	}
	if c.Output.PreviewWidth < 0 {
		return fmt.Errorf("%w: output.previewWidth must not be negative, got %d", ErrInvalidConfig, c.Output.PreviewWidth)
	}
	return nil
}

// CropSpec converts the crop section to the request options understood by
// the crop package
func (c *Config) CropSpec() (models.CropSpec, error) {
	if err := c.Validate(); err != nil {
		return models.CropSpec{}, err
	}
	mode, _ := models.ParseMode(c.Crop.Mode)
	kind, _ := interpolation.ParseKind(c.Crop.Interpolation)
	return models.CropSpec{
		Mode:             mode,
		SpacingScale:     c.Crop.SpacingScale,
		IsotropicSpacing: c.Crop.IsotropicSpacing,
		Interpolation:    kind,
		FillValue:        c.Crop.FillValue,
	}, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
