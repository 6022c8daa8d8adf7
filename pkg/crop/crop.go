// Package crop extracts a sub-volume from a 3D grid given a physical-space
// region of interest.
//
// Two algorithms are provided:
//  1. Voxel-aligned: the region's bounds are converted to an integer voxel
//     extent and the covered samples are copied verbatim.
//  2. Resampled: a new grid is laid out in the region's own (possibly rotated)
//     frame at a scaled spacing, and the input is interpolated onto it.
//
// Cropper.Crop picks one based on CropSpec.Mode. Calls share no mutable state,
// so one Cropper can serve concurrent requests over the same read-only input.
package crop

import (
	"fmt"
	"log/slog"
	"runtime"

	"volumecrop/internal/models"
)

// Params holds the execution settings of a Cropper
type Params struct {
	// NumCores bounds the number of goroutines used while resampling.
	// Zero or negative means runtime.NumCPU().
	NumCores int

	// Logger receives a summary line per crop. Nil means slog.Default().
	Logger *slog.Logger
}

// Cropper runs crop requests
type Cropper struct {
	numCores int
	logger   *slog.Logger
}

// NewCropper creates a cropper with the provided parameters. A nil params
// uses the defaults.
func NewCropper(params *Params) *Cropper {
	c := &Cropper{numCores: runtime.NumCPU(), logger: slog.Default()}
	if params == nil {
		return c
	}
	if params.NumCores > 0 {
		c.numCores = params.NumCores
	}
	if params.Logger != nil {
		c.logger = params.Logger
	}
	return c
}

// Crop extracts the region from grid. It dispatches to the voxel-aligned
// algorithm or the resample algorithm depending on spec.Mode. On failure the
// result is the zero value; no partial output is ever returned.
func (c *Cropper) Crop(grid *models.Grid, region *models.Region, spec models.CropSpec) (models.CropResult, error) {
	if err := validateInputs(grid, region); err != nil {
		return models.CropResult{}, err
	}

	switch spec.Mode {
	case models.VoxelAligned:
		return c.cropVoxelAligned(grid, region)
	case models.Resampled:
		return c.cropResampled(grid, region, spec)
	}
	return models.CropResult{}, fmt.Errorf("%w: %v", ErrUnsupportedMode, spec.Mode)
}

// Crop runs a crop with default parameters
func Crop(grid *models.Grid, region *models.Region, spec models.CropSpec) (models.CropResult, error) {
	return NewCropper(nil).Crop(grid, region, spec)
}

func validateInputs(grid *models.Grid, region *models.Region) error {
	if grid == nil || !grid.HasSamples() {
		return fmt.Errorf("%w: input volume has no image data", ErrMissingInput)
	}
	if err := grid.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	if region == nil {
		return fmt.Errorf("%w: region not specified", ErrMissingInput)
	}
	return region.Validate()
}
