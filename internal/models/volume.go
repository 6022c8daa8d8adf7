package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"volumecrop/pkg/geometry"
)

var (
	// ErrInvalidGrid marks a grid with bad dimensions or sample count.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrInvalidExtent marks an extent that does not fit its grid.
	ErrInvalidExtent = errors.New("invalid extent")
)

// MaxVoxels caps the number of voxels in a single grid (8 GiB of samples)
const MaxVoxels = 1 << 30

// VoxelCount returns the product of dims, or ErrInvalidGrid when an axis is
// not positive or the product exceeds MaxVoxels.
func VoxelCount(dims [3]int) (int, error) {
	n := 1
	for axis, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("%w: dimension %d is %d", ErrInvalidGrid, axis, d)
		}
		if d > MaxVoxels/n {
			return 0, fmt.Errorf("%w: %v exceeds %d voxels", ErrInvalidGrid, dims, MaxVoxels)
		}
		n *= d
	}
	return n, nil
}

// Grid describes a 3D sampled scalar field placed in physical space
type Grid struct {
	// Dimensions holds the voxel count along each index axis
	Dimensions [3]int

	// IndexToPhysical maps continuous (i,j,k) to physical (x,y,z) in mm.
	// It carries origin, spacing and axis directions.
	IndexToPhysical geometry.Transform

	// Samples is the dense scalar array in index order, i varying fastest.
	// It may be nil when only the geometry is of interest.
	Samples []float64
}

// NewGrid allocates a zero-filled grid
func NewGrid(dims [3]int, indexToPhysical geometry.Transform) Grid {
	g := Grid{Dimensions: dims, IndexToPhysical: indexToPhysical}
	if n := g.NumVoxels(); n > 0 {
		g.Samples = make([]float64, n)
	}
	return g
}

// NumVoxels returns the product of the dimensions
func (g Grid) NumVoxels() int {
	return g.Dimensions[0] * g.Dimensions[1] * g.Dimensions[2]
}

// HasSamples reports whether the grid carries sample data
func (g Grid) HasSamples() bool {
	return len(g.Samples) > 0
}

// Index returns the offset of voxel (i,j,k) in Samples
func (g Grid) Index(i, j, k int) int {
	return i + g.Dimensions[0]*(j+g.Dimensions[1]*k)
}

// At returns the sample at voxel (i,j,k)
func (g Grid) At(i, j, k int) float64 {
	return g.Samples[g.Index(i, j, k)]
}

// Validate checks that the dimensions are positive and within MaxVoxels and,
// when samples are present, that their count matches the dimensions.
func (g Grid) Validate() error {
	if _, err := VoxelCount(g.Dimensions); err != nil {
		return err
	}
	if g.Samples != nil && len(g.Samples) != g.NumVoxels() {
		return fmt.Errorf("%w: %d samples for %v", ErrInvalidGrid, len(g.Samples), g.Dimensions)
	}
	return nil
}

// Spacing returns the voxel size along each index axis in mm
func (g Grid) Spacing() r3.Vec {
	return g.IndexToPhysical.Spacing()
}

// Origin returns the physical position of voxel (0,0,0)
func (g Grid) Origin() r3.Vec {
	return g.IndexToPhysical.Origin()
}

// PhysicalBounds returns the axis-aligned physical bounds of the grid,
// measured at the outer voxel faces (index -0.5 to dim-0.5).
func (g Grid) PhysicalBounds() r3.Box {
	box := r3.Box{
		Min: r3.Vec{X: -0.5, Y: -0.5, Z: -0.5},
		Max: r3.Vec{
			X: float64(g.Dimensions[0]) - 0.5,
			Y: float64(g.Dimensions[1]) - 0.5,
			Z: float64(g.Dimensions[2]) - 0.5,
		},
	}
	return geometry.TransformBounds(g.IndexToPhysical, box)
}

// SubGrid copies the voxels covered by ext into a new grid whose origin is
// moved to the extent's minimum voxel. Spacing and orientation are unchanged.
func (g Grid) SubGrid(ext Extent) (Grid, error) {
	for axis := 0; axis < 3; axis++ {
		if ext.Min[axis] < 0 || ext.Max[axis] >= g.Dimensions[axis] || ext.Min[axis] > ext.Max[axis] {
			return Grid{}, fmt.Errorf("%w: %v in %v", ErrInvalidExtent, ext, g.Dimensions)
		}
	}

	origin := geometry.IndexToPhysical(g.IndexToPhysical, r3.Vec{
		X: float64(ext.Min[0]),
		Y: float64(ext.Min[1]),
		Z: float64(ext.Min[2]),
	})
	out := Grid{
		Dimensions:      ext.Size(),
		IndexToPhysical: g.IndexToPhysical.WithOrigin(origin),
	}
	if !g.HasSamples() {
		return out, nil
	}

	out.Samples = make([]float64, out.NumVoxels())
	rowLen := out.Dimensions[0]
	dst := 0
	for k := ext.Min[2]; k <= ext.Max[2]; k++ {
		for j := ext.Min[1]; j <= ext.Max[1]; j++ {
			src := g.Index(ext.Min[0], j, k)
			copy(out.Samples[dst:dst+rowLen], g.Samples[src:src+rowLen])
			dst += rowLen
		}
	}
	return out, nil
}

// Info formats dimensions and spacing, e.g. "50x50x50 (1.00x1.00x1.00 mm)"
func (g Grid) Info() string {
	s := g.Spacing()
	return fmt.Sprintf("%dx%dx%d (%.2fx%.2fx%.2f mm)",
		g.Dimensions[0], g.Dimensions[1], g.Dimensions[2], s.X, s.Y, s.Z)
}

// Stats summarises the sample values of a grid
type Stats struct {
	Min, Max  float64
	Mean, Std float64
}

// Stats computes summary statistics over all samples.
// A grid without samples returns the zero Stats.
func (g Grid) Stats() Stats {
	if !g.HasSamples() {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(g.Samples, nil)
	return Stats{
		Min:  floats.Min(g.Samples),
		Max:  floats.Max(g.Samples),
		Mean: mean,
		Std:  std,
	}
}

// Extent is an inclusive voxel index range along each axis
type Extent struct {
	Min, Max [3]int
}

// Size returns the number of voxels along each axis
func (e Extent) Size() [3]int {
	return [3]int{
		e.Max[0] - e.Min[0] + 1,
		e.Max[1] - e.Min[1] + 1,
		e.Max[2] - e.Min[2] + 1,
	}
}

// NumVoxels returns the total voxel count of the extent
func (e Extent) NumVoxels() int {
	s := e.Size()
	return s[0] * s[1] * s[2]
}

func (e Extent) String() string {
	return fmt.Sprintf("[%d,%d]x[%d,%d]x[%d,%d]",
		e.Min[0], e.Max[0], e.Min[1], e.Max[1], e.Min[2], e.Max[2])
}
