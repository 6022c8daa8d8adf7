package crop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
)

// snapTolerance absorbs round-off when a bound lands on a voxel centre
const snapTolerance = 1e-6

// snap rounds v to the nearest integer when it is within snapTolerance of it
func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < snapTolerance {
		return r
	}
	return v
}

// VoxelExtent converts a physical axis-aligned box to the inclusive voxel
// extent of grid that covers it.
//
// The 8 corners of bounds are mapped to continuous indices; the minimum is
// rounded down and the maximum up, so the extent always covers the box even
// when the grid is rotated relative to the physical axes. The result is then
// clamped to [0, dim-1]. A box that misses the grid on any axis returns
// ErrOutOfBounds.
func VoxelExtent(grid models.Grid, bounds r3.Box) (models.Extent, error) {
	inv, err := geometry.Invert(grid.IndexToPhysical)
	if err != nil {
		return models.Extent{}, err
	}

	corners := geometry.Corners(bounds)
	for i, c := range corners {
		corners[i] = inv.Apply(c)
	}
	ijk := geometry.BoundsOf(corners[:]...)

	lo := [3]float64{ijk.Min.X, ijk.Min.Y, ijk.Min.Z}
	hi := [3]float64{ijk.Max.X, ijk.Max.Y, ijk.Max.Z}

	var ext models.Extent
	for axis := 0; axis < 3; axis++ {
		last := float64(grid.Dimensions[axis] - 1)
		minIdx := math.Floor(snap(lo[axis]))
		maxIdx := math.Ceil(snap(hi[axis]))
		if math.IsNaN(minIdx) || math.IsNaN(maxIdx) || maxIdx < 0 || minIdx > last {
			return models.Extent{}, fmt.Errorf("%w: axis %d index range [%g, %g] outside [0, %g]",
				ErrOutOfBounds, axis, minIdx, maxIdx, last)
		}
		ext.Min[axis] = int(math.Max(minIdx, 0))
		ext.Max[axis] = int(math.Min(maxIdx, last))
	}
	return ext, nil
}

// cropVoxelAligned copies the voxels covering the region's axis-aligned
// bounds. Output values are exact copies of input values.
func (c *Cropper) cropVoxelAligned(grid *models.Grid, region *models.Region) (models.CropResult, error) {
	bounds := region.AxisAlignedBounds()

	ext, err := VoxelExtent(*grid, bounds)
	if err != nil {
		return models.CropResult{}, err
	}

	out, err := grid.SubGrid(ext)
	if err != nil {
		return models.CropResult{}, fmt.Errorf("%w: %w", ErrOutOfBounds, err)
	}

	spacing := out.Spacing()
	origin := out.Origin()
	c.logger.Info("voxel-aligned crop applied",
		"extent", ext.String(),
		"dimensions", out.Dimensions,
		"spacing", []float64{spacing.X, spacing.Y, spacing.Z},
		"origin", []float64{origin.X, origin.Y, origin.Z})

	return models.CropResult{
		Grid:    out,
		Extent:  ext,
		Spacing: spacing,
		Bounds:  bounds,
	}, nil
}
