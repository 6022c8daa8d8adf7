package models

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/pkg/interpolation"
)

// ErrUnknownMode is returned when a crop mode name cannot be parsed
var ErrUnknownMode = errors.New("unknown crop mode")

// Mode selects the crop algorithm
type Mode int

const (
	// VoxelAligned extracts an exact sub-array without resampling
	VoxelAligned Mode = iota
	// Resampled interpolates onto a new, possibly rotated or rescaled grid
	Resampled
)

func (m Mode) String() string {
	switch m {
	case VoxelAligned:
		return "voxel"
	case Resampled:
		return "resample"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "voxel"/"voxel-aligned" and "resample"/"resampled"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voxel", "voxel-aligned", "voxelaligned":
		return VoxelAligned, nil
	case "resample", "resampled":
		return Resampled, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// CropSpec is the crop request. The resample fields are only read in
// Resampled mode.
type CropSpec struct {
	Mode Mode

	// SpacingScale multiplies the input spacing. Must be positive.
	SpacingScale float64

	// IsotropicSpacing replaces all output spacing components with the smallest one
	IsotropicSpacing bool

	Interpolation interpolation.Kind

	// FillValue is written wherever the output samples outside the input volume
	FillValue float64
}

// DefaultCropSpec returns a voxel-aligned request with unit spacing scale
// and linear interpolation for when resampling is switched on.
func DefaultCropSpec() CropSpec {
	return CropSpec{
		Mode:          VoxelAligned,
		SpacingScale:  1.0,
		Interpolation: interpolation.Linear,
	}
}

// CropResult is the output of a crop
type CropResult struct {
	// Grid is the new volume, including its samples
	Grid Grid

	// Extent is the input voxel range that was copied (voxel-aligned mode only)
	Extent Extent

	// Spacing is the output voxel spacing in mm
	Spacing r3.Vec

	// Bounds is the physical box the crop was computed from
	Bounds r3.Box
}
