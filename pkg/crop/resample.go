package crop

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
	"volumecrop/pkg/interpolation"
)

const (
	// boundsTolerance lets samples that land on the outer voxel centres
	// through round-off still count as inside the input.
	boundsTolerance = 1e-6

	// maxOutputDimension caps each output axis; larger grids come from a
	// spacing scale far below any useful value.
	maxOutputDimension = 1 << 15
)

// OutputSpacing scales the input spacing. With isotropic set, all three
// components become the smallest scaled component.
func OutputSpacing(input r3.Vec, scale float64, isotropic bool) (r3.Vec, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return r3.Vec{}, fmt.Errorf("%w: spacing scale %g", ErrInvalidSpacing, scale)
	}
	out := r3.Scale(scale, input)
	if isotropic {
		m := math.Min(out.X, math.Min(out.Y, out.Z))
		out = r3.Vec{X: m, Y: m, Z: m}
	}
	for _, s := range []float64{out.X, out.Y, out.Z} {
		if !(s > 0) || math.IsInf(s, 0) {
			return r3.Vec{}, fmt.Errorf("%w: output spacing %v", ErrInvalidSpacing, out)
		}
	}
	return out, nil
}

// OutputDimensions returns ceil(size/spacing) per axis, at least 1. A grid
// of more than models.MaxVoxels voxels is rejected with ErrInvalidSpacing.
func OutputDimensions(size, spacing r3.Vec) ([3]int, error) {
	var dims [3]int
	sz := [3]float64{size.X, size.Y, size.Z}
	sp := [3]float64{spacing.X, spacing.Y, spacing.Z}
	for axis := range dims {
		if !(sp[axis] > 0) {
			return dims, fmt.Errorf("%w: spacing %g on axis %d", ErrInvalidSpacing, sp[axis], axis)
		}
		n := math.Ceil(snap(sz[axis] / sp[axis]))
		if n > maxOutputDimension {
			return dims, fmt.Errorf("%w: %g voxels on axis %d", ErrInvalidSpacing, n, axis)
		}
		dims[axis] = max(1, int(n))
	}
	if _, err := models.VoxelCount(dims); err != nil {
		return dims, fmt.Errorf("%w: output grid %v is too large", ErrInvalidSpacing, dims)
	}
	return dims, nil
}

// ResampleGeometry lays out the output grid of a resample crop without
// computing samples. The grid is aligned with the region's local axes and
// centred on the region centre. The outer voxel faces, not the voxel
// centres, span region.Size (rounded up to whole voxels):
//
//	indexToPhysical = T(origin) * R(orientation) * S(outputSpacing)
func ResampleGeometry(grid models.Grid, region models.Region, spec models.CropSpec) (models.Grid, error) {
	spacing, err := OutputSpacing(grid.Spacing(), spec.SpacingScale, spec.IsotropicSpacing)
	if err != nil {
		return models.Grid{}, err
	}
	dims, err := OutputDimensions(region.Size, spacing)
	if err != nil {
		return models.Grid{}, err
	}

	frame := region.Frame()
	half := r3.Vec{
		X: float64(dims[0]-1) * spacing.X / 2,
		Y: float64(dims[1]-1) * spacing.Y / 2,
		Z: float64(dims[2]-1) * spacing.Z / 2,
	}
	origin := r3.Sub(region.Center, frame.Apply(half))

	return models.Grid{
		Dimensions:      dims,
		IndexToPhysical: geometry.NewTransform(origin, spacing, frame),
	}, nil
}

// inside reports whether v lies in [0, n-1] and returns it clamped there
func inside(v float64, n int) (float64, bool) {
	last := float64(n - 1)
	if math.IsNaN(v) || v < -boundsTolerance || v > last+boundsTolerance {
		return 0, false
	}
	return math.Max(0, math.Min(v, last)), true
}

// cropResampled interpolates the input onto the region's own grid.
func (c *Cropper) cropResampled(grid *models.Grid, region *models.Region, spec models.CropSpec) (models.CropResult, error) {
	geom, err := ResampleGeometry(*grid, *region, spec)
	if err != nil {
		return models.CropResult{}, err
	}
	if !spec.Interpolation.Valid() {
		return models.CropResult{}, fmt.Errorf("%w: %v", ErrUnsupportedInterpolation, spec.Interpolation)
	}

	inv, err := geometry.Invert(grid.IndexToPhysical)
	if err != nil {
		return models.CropResult{}, err
	}
	// output index -> physical -> input index
	toInput := inv.Mul(geom.IndexToPhysical)

	interp, err := interpolation.New(spec.Interpolation, grid.Dimensions, grid.Samples)
	if err != nil {
		return models.CropResult{}, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}

	out := models.NewGrid(geom.Dimensions, geom.IndexToPhysical)
	nx, ny, nz := out.Dimensions[0], out.Dimensions[1], out.Dimensions[2]
	in := grid.Dimensions

	var g errgroup.Group
	g.SetLimit(c.numCores)
	for k := 0; k < nz; k++ {
		k := k
		g.Go(func() error {
			slab := out.Samples[k*nx*ny : (k+1)*nx*ny]
			for j := 0; j < ny; j++ {
				for i := 0; i < nx; i++ {
					p := toInput.Apply(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
					x, okX := inside(p.X, in[0])
					y, okY := inside(p.Y, in[1])
					z, okZ := inside(p.Z, in[2])
					if okX && okY && okZ {
						slab[i+nx*j] = interp.At(x, y, z)
					} else {
						slab[i+nx*j] = spec.FillValue
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.CropResult{}, err
	}

	spacing := out.Spacing()
	origin := out.Origin()
	c.logger.Info("resample crop applied",
		"dimensions", out.Dimensions,
		"spacing", []float64{spacing.X, spacing.Y, spacing.Z},
		"origin", []float64{origin.X, origin.Y, origin.Z},
		"interpolation", spec.Interpolation.String(),
		"isotropic", spec.IsotropicSpacing)

	return models.CropResult{
		Grid:    out,
		Spacing: spacing,
		Bounds:  region.OrientedBounds(),
	}, nil
}
