package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"volumecrop/pkg/geometry"
)

// ErrInvalidRegion marks a region with a non-finite centre, a non-positive
// size or a bad orientation.
var ErrInvalidRegion = errors.New("invalid region")

// resizeTolerance is the smallest size change Resized acts on, in mm
const resizeTolerance = 0.01

// Region is the box to crop, given in physical space
type Region struct {
	// Center is the physical centre of the box
	Center r3.Vec

	// Size is the full edge length along each local axis
	Size r3.Vec

	// Orientation holds the local axes in physical space.
	// The zero value means identity (axis-aligned).
	Orientation geometry.Rotation
}

// NewRegion returns an axis-aligned region
func NewRegion(center, size r3.Vec) Region {
	return Region{Center: center, Size: size, Orientation: geometry.IdentityRotation()}
}

// Frame returns the orientation, substituting identity for the zero value
func (r Region) Frame() geometry.Rotation {
	if r.Orientation.IsZero() {
		return geometry.IdentityRotation()
	}
	return r.Orientation
}

// Validate checks a finite centre, size positivity and orientation orthonormality
func (r Region) Validate() error {
	for _, c := range []float64{r.Center.X, r.Center.Y, r.Center.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: center %v", ErrInvalidRegion, r.Center)
		}
	}
	for _, s := range []float64{r.Size.X, r.Size.Y, r.Size.Z} {
		if !(s > 0) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: size %v", ErrInvalidRegion, r.Size)
		}
	}
	if !r.Frame().IsOrthonormal(1e-6) {
		return fmt.Errorf("%w: orientation is not a rotation", ErrInvalidRegion)
	}
	return nil
}

// AxisAlignedBounds returns center +/- size/2 along the physical axes.
// Orientation is ignored.
func (r Region) AxisAlignedBounds() r3.Box {
	half := r3.Scale(0.5, r.Size)
	return r3.Box{Min: r3.Sub(r.Center, half), Max: r3.Add(r.Center, half)}
}

// Transform maps the unit cube centred at the origin onto the region:
// scale by Size, rotate by Orientation, then translate to Center.
func (r Region) Transform() geometry.Transform {
	return geometry.Translation(r.Center).
		Mul(geometry.FromRotation(r.Frame())).
		Mul(geometry.Scaling(r.Size))
}

// OrientedCorners returns the 8 physical corners of the oriented box
func (r Region) OrientedCorners() [8]r3.Vec {
	unit := r3.Box{Min: r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}, Max: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}}
	corners := geometry.Corners(unit)
	t := r.Transform()
	for i, c := range corners {
		corners[i] = t.Apply(c)
	}
	return corners
}

// OrientedBounds returns the axis-aligned bounds of the oriented box
func (r Region) OrientedBounds() r3.Box {
	c := r.OrientedCorners()
	return geometry.BoundsOf(c[:]...)
}

// Resized returns the region with a new size and the same centre.
// Changes of 0.01 mm or less on every axis leave the region untouched.
func (r Region) Resized(size r3.Vec) Region {
	d := r3.Sub(size, r.Size)
	if math.Abs(d.X) <= resizeTolerance && math.Abs(d.Y) <= resizeTolerance && math.Abs(d.Z) <= resizeTolerance {
		return r
	}
	r.Size = size
	return r
}

// FitRegionToGrid returns an axis-aligned region covering the physical
// bounds of g.
func FitRegionToGrid(g Grid) Region {
	b := g.PhysicalBounds()
	return NewRegion(b.Center(), b.Size())
}

func (r Region) String() string {
	return fmt.Sprintf("center (%.2f, %.2f, %.2f) size (%.2f, %.2f, %.2f)",
		r.Center.X, r.Center.Y, r.Center.Z, r.Size.X, r.Size.Y, r.Size.Z)
}
