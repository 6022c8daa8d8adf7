package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotOrthonormal is returned when a rotation is built from axes that are
// not a right-handed orthonormal basis.
var ErrNotOrthonormal = errors.New("rotation is not orthonormal")

// orthoTolerance bounds |R^T R - I| and |det R - 1| for accepted rotations.
const orthoTolerance = 1e-6

// Rotation is a 3x3 rotation matrix stored in row-major order. Its columns
// are the local x, y and z axes expressed in physical space.
type Rotation [9]float64

// IdentityRotation returns the rotation whose local axes are the physical axes.
func IdentityRotation() Rotation {
	return Rotation{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func rotationFromColumns(x, y, z r3.Vec) Rotation {
	return Rotation{
		x.X, y.X, z.X,
		x.Y, y.Y, z.Y,
		x.Z, y.Z, z.Z,
	}
}

// RotationFromColumns builds a rotation from its local axes. The axes must
// form a right-handed orthonormal basis.
func RotationFromColumns(x, y, z r3.Vec) (Rotation, error) {
	r := rotationFromColumns(x, y, z)
	if !r.IsOrthonormal(orthoTolerance) {
		return Rotation{}, ErrNotOrthonormal
	}
	return r, nil
}

// RotationFromQuaternion converts a quaternion to a rotation matrix.
// The quaternion is normalised first; the zero quaternion is rejected.
func RotationFromQuaternion(q quat.Number) (Rotation, error) {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return Rotation{}, ErrNotOrthonormal
	}
	rot := r3.Rotation(quat.Scale(1/n, q))
	return rotationFromColumns(
		rot.Rotate(r3.Vec{X: 1}),
		rot.Rotate(r3.Vec{Y: 1}),
		rot.Rotate(r3.Vec{Z: 1}),
	), nil
}

// RotationFromAxisAngle returns the rotation by angle radians about axis.
func RotationFromAxisAngle(axis r3.Vec, angle float64) (Rotation, error) {
	if r3.Norm(axis) == 0 {
		if angle == 0 {
			return IdentityRotation(), nil
		}
		return Rotation{}, ErrNotOrthonormal
	}
	rot := r3.NewRotation(angle, axis)
	return RotationFromQuaternion(quat.Number(rot))
}

// IsZero reports whether r is the zero value, which callers treat as unset.
func (r Rotation) IsZero() bool {
	return r == Rotation{}
}

// Column returns local axis j in physical space.
func (r Rotation) Column(j int) r3.Vec {
	return r3.Vec{X: r[j], Y: r[3+j], Z: r[6+j]}
}

// Apply rotates v.
func (r Rotation) Apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		Y: r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		Z: r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// Mat returns r as a gonum 3x3 matrix.
func (r Rotation) Mat() *r3.Mat {
	vals := make([]float64, 9)
	copy(vals, r[:])
	return r3.NewMat(vals)
}

// IsOrthonormal reports whether r is a proper rotation within tol.
func (r Rotation) IsOrthonormal(tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(r3.Dot(r.Column(i), r.Column(j))-want) > tol {
				return false
			}
		}
	}
	return math.Abs(r.Mat().Det()-1) <= tol
}
