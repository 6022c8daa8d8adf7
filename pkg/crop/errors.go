package crop

import (
	"errors"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
	"volumecrop/pkg/interpolation"
)

// Crop failures. Every error returned by this package wraps one of these,
// so callers can branch with errors.Is.
var (
	// ErrMissingInput means the input grid has no samples, the region is
	// absent, or the grid description is inconsistent.
	ErrMissingInput = errors.New("missing input")

	// ErrOutOfBounds means the voxel-aligned extent does not intersect the input grid.
	ErrOutOfBounds = errors.New("region does not intersect the input volume")

	// ErrInvalidSpacing means a requested or computed spacing is not positive.
	ErrInvalidSpacing = errors.New("invalid spacing")

	ErrUnsupportedInterpolation = interpolation.ErrUnsupportedInterpolation
	ErrSingularTransform        = geometry.ErrSingularTransform
	ErrInvalidRegion            = models.ErrInvalidRegion
	ErrUnsupportedMode          = models.ErrUnknownMode
)
