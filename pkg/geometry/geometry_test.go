package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

func assertVecInDelta(t *testing.T, want, got r3.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

// TestIndexPhysicalRoundTrip verifies that physical->index inverts index->physical
func TestIndexPhysicalRoundTrip(t *testing.T) {
	rot, err := RotationFromAxisAngle(r3.Vec{X: 1, Y: 1, Z: 0.5}, 0.7)
	require.NoError(t, err)
	tr := NewTransform(r3.Vec{X: -120, Y: 35.5, Z: 10}, r3.Vec{X: 0.4, Y: 0.4, Z: 1.25}, rot)

	for _, idx := range []r3.Vec{{}, {X: 1}, {X: 10.5, Y: 3.25, Z: 7}, {X: -2, Y: 99, Z: 0.1}} {
		p := IndexToPhysical(tr, idx)
		back, err := PhysicalToIndex(tr, p)
		require.NoError(t, err)
		assertVecInDelta(t, idx, back, 1e-9)
	}
}

// TestNewTransformDecomposition checks origin, spacing and direction recovery
func TestNewTransformDecomposition(t *testing.T) {
	rot, err := RotationFromAxisAngle(r3.Vec{Z: 1}, math.Pi/2)
	require.NoError(t, err)
	tr := NewTransform(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 0.5, Y: 2, Z: 3}, rot)

	assertVecInDelta(t, r3.Vec{X: 1, Y: 2, Z: 3}, tr.Origin(), 1e-12)
	assertVecInDelta(t, r3.Vec{X: 0.5, Y: 2, Z: 3}, tr.Spacing(), 1e-12)

	// index axis i now points along physical +y
	assertVecInDelta(t, r3.Vec{X: 1, Y: 2.5, Z: 3}, tr.Apply(r3.Vec{X: 1}), 1e-12)
	dir := tr.Direction()
	assert.True(t, dir.IsOrthonormal(1e-9))
	assertVecInDelta(t, r3.Vec{Y: 1}, dir.Column(0), 1e-12)
}

// TestInvertSingular verifies that a degenerate spacing is reported as singular
func TestInvertSingular(t *testing.T) {
	tr := NewTransform(r3.Vec{}, r3.Vec{X: 1, Y: 0, Z: 1}, IdentityRotation())

	_, err := Invert(tr)
	assert.ErrorIs(t, err, ErrSingularTransform)

	_, err = PhysicalToIndex(tr, r3.Vec{X: 1})
	assert.ErrorIs(t, err, ErrSingularTransform)
}

// TestMulOrder checks that a.Mul(b) applies b first
func TestMulOrder(t *testing.T) {
	s := Scaling(r3.Vec{X: 2, Y: 2, Z: 2})
	tr := Translation(r3.Vec{X: 1})

	assertVecInDelta(t, r3.Vec{X: 3, Y: 2, Z: 2}, tr.Mul(s).Apply(r3.Vec{X: 1, Y: 1, Z: 1}), 1e-12)
	assertVecInDelta(t, r3.Vec{X: 4, Y: 2, Z: 2}, s.Mul(tr).Apply(r3.Vec{X: 1, Y: 1, Z: 1}), 1e-12)

	inv, err := Invert(tr.Mul(s))
	require.NoError(t, err)
	assert.True(t, inv.Mul(tr.Mul(s)).ApproxEqual(Identity(), 1e-12))
}

// TestWithOrigin verifies that only the translation column changes
func TestWithOrigin(t *testing.T) {
	tr := NewTransform(r3.Vec{X: 5}, r3.Vec{X: 2, Y: 2, Z: 2}, IdentityRotation())
	moved := tr.WithOrigin(r3.Vec{X: 10, Y: 11, Z: 12})

	assertVecInDelta(t, r3.Vec{X: 10, Y: 11, Z: 12}, moved.Origin(), 0)
	assertVecInDelta(t, tr.Spacing(), moved.Spacing(), 0)
	assertVecInDelta(t, r3.Vec{X: 5}, tr.Origin(), 0)
}

// TestRotationConstructors compares the quaternion and axis-angle paths
func TestRotationConstructors(t *testing.T) {
	half := math.Pi / 4
	q := quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}

	fromQuat, err := RotationFromQuaternion(quat.Scale(3, q))
	require.NoError(t, err)
	fromAxis, err := RotationFromAxisAngle(r3.Vec{Z: 2}, math.Pi/2)
	require.NoError(t, err)

	for i := range fromQuat {
		assert.InDelta(t, fromAxis[i], fromQuat[i], 1e-12)
	}
	assertVecInDelta(t, r3.Vec{Y: 1}, fromQuat.Apply(r3.Vec{X: 1}), 1e-12)

	_, err = RotationFromQuaternion(quat.Number{})
	assert.ErrorIs(t, err, ErrNotOrthonormal)

	id, err := RotationFromAxisAngle(r3.Vec{}, 0)
	require.NoError(t, err)
	assert.Equal(t, IdentityRotation(), id)
}

// TestRotationFromColumns rejects sheared and mirrored bases
func TestRotationFromColumns(t *testing.T) {
	_, err := RotationFromColumns(r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1})
	assert.NoError(t, err)

	_, err = RotationFromColumns(r3.Vec{X: 1}, r3.Vec{X: 0.5, Y: 1}, r3.Vec{Z: 1})
	assert.ErrorIs(t, err, ErrNotOrthonormal)

	_, err = RotationFromColumns(r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: -1})
	assert.ErrorIs(t, err, ErrNotOrthonormal)

	assert.True(t, Rotation{}.IsZero())
	assert.False(t, IdentityRotation().IsZero())
}

// TestCornersAndBounds checks corner ordering and transformed bounds
func TestCornersAndBounds(t *testing.T) {
	b := r3.NewBox(0, 0, 0, 1, 2, 3)
	c := Corners(b)

	assert.Equal(t, b.Min, c[0])
	assert.Equal(t, r3.Vec{X: 1}, c[1])
	assert.Equal(t, r3.Vec{Y: 2}, c[2])
	assert.Equal(t, r3.Vec{Z: 3}, c[4])
	assert.Equal(t, b.Max, c[7])
	assert.Equal(t, b, BoundsOf(c[:]...))

	rot, err := RotationFromAxisAngle(r3.Vec{Z: 1}, math.Pi/2)
	require.NoError(t, err)
	got := TransformBounds(FromRotation(rot), b)
	assertVecInDelta(t, r3.Vec{X: -2, Y: 0, Z: 0}, got.Min, 1e-12)
	assertVecInDelta(t, r3.Vec{X: 0, Y: 1, Z: 3}, got.Max, 1e-12)
}
