// Package geometry provides the affine index-to-physical model used by the
// cropping algorithms. A volume's 4x4 index-to-physical matrix encodes its
// origin, voxel spacing and axis directions in one value; everything that
// converts between voxel indices and millimetres goes through Transform.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSingularTransform is returned when a transform has no inverse.
var ErrSingularTransform = errors.New("singular transform")

// Transform is a 4x4 affine transform stored in row-major order.
// The bottom row is always (0, 0, 0, 1) for transforms built by this package.
type Transform [16]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a transform that moves points by v.
func Translation(v r3.Vec) Transform {
	t := Identity()
	t[3], t[7], t[11] = v.X, v.Y, v.Z
	return t
}

// Scaling returns a transform that scales each axis by the matching component of v.
func Scaling(v r3.Vec) Transform {
	t := Identity()
	t[0], t[5], t[10] = v.X, v.Y, v.Z
	return t
}

// FromRotation embeds a rotation into a transform with no translation.
func FromRotation(r Rotation) Transform {
	return Transform{
		r[0], r[1], r[2], 0,
		r[3], r[4], r[5], 0,
		r[6], r[7], r[8], 0,
		0, 0, 0, 1,
	}
}

// NewTransform builds an index-to-physical transform from a volume's origin,
// spacing and axis directions: T(origin) * R(direction) * S(spacing).
func NewTransform(origin, spacing r3.Vec, direction Rotation) Transform {
	return Translation(origin).Mul(FromRotation(direction)).Mul(Scaling(spacing))
}

// At returns the element at row i, column j.
func (t Transform) At(i, j int) float64 {
	return t[i*4+j]
}

// dense returns a copy of t as a gonum matrix.
func (t Transform) dense() *mat.Dense {
	return mat.NewDense(4, 4, t[:])
}

func fromMatrix(m mat.Matrix) Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			t[i*4+j] = m.At(i, j)
		}
	}
	return t
}

// Mul returns the composition t*u. Applying the result to a point applies u
// first and t second.
func (t Transform) Mul(u Transform) Transform {
	var m mat.Dense
	m.Mul(t.dense(), u.dense())
	return fromMatrix(&m)
}

// Apply maps a point through the transform.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: t[0]*p.X + t[1]*p.Y + t[2]*p.Z + t[3],
		Y: t[4]*p.X + t[5]*p.Y + t[6]*p.Z + t[7],
		Z: t[8]*p.X + t[9]*p.Y + t[10]*p.Z + t[11],
	}
}

// Invert returns the inverse of t.
func Invert(t Transform) (Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.dense()); err != nil {
		return Transform{}, fmt.Errorf("%w: %v", ErrSingularTransform, err)
	}
	return fromMatrix(&inv), nil
}

// IndexToPhysical maps a continuous index coordinate to physical space.
func IndexToPhysical(t Transform, index r3.Vec) r3.Vec {
	return t.Apply(index)
}

// PhysicalToIndex maps a physical point to continuous (non-integer) index
// coordinates by applying the inverse of t.
func PhysicalToIndex(t Transform, point r3.Vec) (r3.Vec, error) {
	inv, err := Invert(t)
	if err != nil {
		return r3.Vec{}, err
	}
	return inv.Apply(point), nil
}

// Column returns column j (0..3) of the upper three rows.
func (t Transform) Column(j int) r3.Vec {
	return r3.Vec{X: t[j], Y: t[4+j], Z: t[8+j]}
}

// Origin is the physical position of index (0,0,0).
func (t Transform) Origin() r3.Vec {
	return t.Column(3)
}

// WithOrigin returns t with its translation column replaced.
func (t Transform) WithOrigin(origin r3.Vec) Transform {
	t[3], t[7], t[11] = origin.X, origin.Y, origin.Z
	return t
}

// Spacing returns the voxel spacing along each index axis, which is the
// length of each column of the linear block.
func (t Transform) Spacing() r3.Vec {
	return r3.Vec{
		X: r3.Norm(t.Column(0)),
		Y: r3.Norm(t.Column(1)),
		Z: r3.Norm(t.Column(2)),
	}
}

// Direction returns the unit index axes in physical space. Zero-length
// columns are returned as zero vectors.
func (t Transform) Direction() Rotation {
	var cols [3]r3.Vec
	for j := range cols {
		c := t.Column(j)
		if n := r3.Norm(c); n > 0 {
			c = r3.Scale(1/n, c)
		}
		cols[j] = c
	}
	return rotationFromColumns(cols[0], cols[1], cols[2])
}

// ApproxEqual reports whether every element of t and u differs by at most tol.
func (t Transform) ApproxEqual(u Transform, tol float64) bool {
	for i := range t {
		if math.Abs(t[i]-u[i]) > tol {
			return false
		}
	}
	return true
}

// String formats the upper three rows, which is all an affine transform carries.
func (t Transform) String() string {
	return fmt.Sprintf("[%g %g %g %g; %g %g %g %g; %g %g %g %g]",
		t[0], t[1], t[2], t[3], t[4], t[5], t[6], t[7], t[8], t[9], t[10], t[11])
}
