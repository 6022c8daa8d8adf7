package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Corners returns the 8 corners of b with x varying fastest, then y, then z.
func Corners(b r3.Box) [8]r3.Vec {
	var c [8]r3.Vec
	for n := range c {
		c[n] = r3.Vec{
			X: pick(n&1 != 0, b.Min.X, b.Max.X),
			Y: pick(n&2 != 0, b.Min.Y, b.Max.Y),
			Z: pick(n&4 != 0, b.Min.Z, b.Max.Z),
		}
	}
	return c
}

func pick(hi bool, lo, high float64) float64 {
	if hi {
		return high
	}
	return lo
}

// BoundsOf returns the axis-aligned box enclosing the given points.
func BoundsOf(points ...r3.Vec) r3.Box {
	if len(points) == 0 {
		return r3.Box{}
	}
	inf := math.Inf(1)
	b := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, p := range points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// TransformBounds maps the corners of b through t and returns their bounds.
func TransformBounds(t Transform, b r3.Box) r3.Box {
	corners := Corners(b)
	for i, c := range corners {
		corners[i] = t.Apply(c)
	}
	return BoundsOf(corners[:]...)
}
