package crop

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
	"volumecrop/pkg/interpolation"
)

// Metrics measures how faithfully a cropped grid reproduces the volume it
// was cut from.
type Metrics struct {
	// Compared is the number of candidate voxels that fall inside the reference
	Compared int

	// RMSE is the root mean square difference over compared voxels
	RMSE float64

	// MaxAbsDiff is the largest absolute difference
	MaxAbsDiff float64

	// Correlation is the Pearson correlation; NaN for constant data
	Correlation float64
}

// Compare samples reference (trilinearly) at the physical position of every
// candidate voxel and reports the differences. Candidate voxels outside the
// reference are skipped; if none remain ErrOutOfBounds is returned.
func Compare(reference, candidate models.Grid) (Metrics, error) {
	if !reference.HasSamples() || !candidate.HasSamples() {
		return Metrics{}, fmt.Errorf("%w: both grids need samples", ErrMissingInput)
	}
	interp, err := interpolation.New(interpolation.Linear, reference.Dimensions, reference.Samples)
	if err != nil {
		return Metrics{}, fmt.Errorf("%w: %w", ErrMissingInput, err)
	}
	inv, err := geometry.Invert(reference.IndexToPhysical)
	if err != nil {
		return Metrics{}, err
	}
	toRef := inv.Mul(candidate.IndexToPhysical)

	want := make([]float64, 0, len(candidate.Samples))
	got := make([]float64, 0, len(candidate.Samples))
	d := candidate.Dimensions
	for k := 0; k < d[2]; k++ {
		for j := 0; j < d[1]; j++ {
			for i := 0; i < d[0]; i++ {
				p := toRef.Apply(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
				x, okX := inside(p.X, reference.Dimensions[0])
				y, okY := inside(p.Y, reference.Dimensions[1])
				z, okZ := inside(p.Z, reference.Dimensions[2])
				if !okX || !okY || !okZ {
					continue
				}
				want = append(want, interp.At(x, y, z))
				got = append(got, candidate.At(i, j, k))
			}
		}
	}
	if len(want) == 0 {
		return Metrics{}, fmt.Errorf("%w: no candidate voxel lies inside the reference", ErrOutOfBounds)
	}

	n := float64(len(want))
	return Metrics{
		Compared:    len(want),
		RMSE:        floats.Distance(want, got, 2) / math.Sqrt(n),
		MaxAbsDiff:  floats.Distance(want, got, math.Inf(1)),
		Correlation: stat.Correlation(want, got, nil),
	}, nil
}
