package volumeio

import (
	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/internal/models"
	"volumecrop/pkg/geometry"
)

// Hounsfield values used by the phantom
const (
	AirHU    = -1000.0
	TissueHU = 40.0
	BoneHU   = 700.0
	DenseHU  = 1500.0
)

// ellipsoid is an axis-aligned ellipsoid in physical space
type ellipsoid struct {
	center, radii r3.Vec
}

func (e ellipsoid) contains(p r3.Vec) bool {
	d := r3.Sub(p, e.center)
	x, y, z := d.X/e.radii.X, d.Y/e.radii.Y, d.Z/e.radii.Z
	return x*x+y*y+z*z <= 1
}

// NewPhantom builds a synthetic CT-like head volume centred on the physical
// origin: soft tissue inside a bone shell, a dense inner-ear nodule on one
// side and an air cell next to it, surrounded by air.
func NewPhantom(dims [3]int, spacing r3.Vec) models.Grid {
	extent := r3.Vec{
		X: float64(dims[0]-1) * spacing.X,
		Y: float64(dims[1]-1) * spacing.Y,
		Z: float64(dims[2]-1) * spacing.Z,
	}
	origin := r3.Scale(-0.5, extent)
	g := models.NewGrid(dims, geometry.NewTransform(origin, spacing, geometry.IdentityRotation()))

	radii := r3.Scale(0.45, extent)
	head := ellipsoid{radii: radii}
	brain := ellipsoid{radii: r3.Scale(0.85, radii)}
	nodule := ellipsoid{
		center: r3.Vec{X: 0.55 * radii.X, Y: 0.1 * radii.Y},
		radii:  r3.Scale(0.12, radii),
	}
	airCell := ellipsoid{
		center: r3.Vec{X: 0.6 * radii.X, Y: -0.3 * radii.Y, Z: 0.1 * radii.Z},
		radii:  r3.Scale(0.1, radii),
	}

	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				p := g.IndexToPhysical.Apply(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
				v := AirHU
				switch {
				case nodule.contains(p):
					v = DenseHU
				case airCell.contains(p):
					v = AirHU
				case brain.contains(p):
					v = TissueHU
				case head.contains(p):
					v = BoneHU
				}
				g.Samples[g.Index(i, j, k)] = v
			}
		}
	}
	return g
}
