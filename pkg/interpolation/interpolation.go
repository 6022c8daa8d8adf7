// Package interpolation samples a dense 3-D scalar field at continuous index
// coordinates. The resample crop uses it to read the input volume at points
// that fall between voxel centres.
package interpolation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedInterpolation is returned for an unknown kernel selector.
var ErrUnsupportedInterpolation = errors.New("unsupported interpolation")

// ErrFieldShape is returned when the sample count does not match the dimensions.
var ErrFieldShape = errors.New("sample count does not match dimensions")

// Kind selects the interpolation kernel.
type Kind int

const (
	// Nearest returns the closest sample.
	Nearest Kind = iota
	// Linear blends the 8 enclosing samples trilinearly.
	Linear
	// BSpline evaluates an interpolating cubic B-spline.
	BSpline
)

var kindNames = map[Kind]string{
	Nearest: "nearest",
	Linear:  "linear",
	BSpline: "bspline",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by String, case-insensitively.
// "cubic" and "b-spline" are accepted for BSpline.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "nearestneighbor":
		return Nearest, nil
	case "linear", "trilinear":
		return Linear, nil
	case "bspline", "b-spline", "cubic":
		return BSpline, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedInterpolation, s)
}

// Valid reports whether k names a supported kernel.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Interpolator samples a field at a continuous index. Callers are expected
// to keep coordinates inside [0, dim-1]; values outside are clamped.
type Interpolator interface {
	At(x, y, z float64) float64
}

// field is a dense scalar array in index order x + nx*(y + ny*z).
type field struct {
	nx, ny, nz int
	samples    []float64
}

func (f *field) at(i, j, k int) float64 {
	return f.samples[i+f.nx*(j+f.ny*k)]
}

// New returns an interpolator of the given kind over samples.
func New(kind Kind, dims [3]int, samples []float64) (Interpolator, error) {
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 || dims[0]*dims[1]*dims[2] != len(samples) {
		return nil, fmt.Errorf("%w: %v vs %d samples", ErrFieldShape, dims, len(samples))
	}
	f := &field{nx: dims[0], ny: dims[1], nz: dims[2], samples: samples}

	switch kind {
	case Nearest:
		return nearest{f}, nil
	case Linear:
		return linear{f}, nil
	case BSpline:
		return newBSpline(f), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedInterpolation, kind)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type nearest struct{ f *field }

func (n nearest) At(x, y, z float64) float64 {
	f := n.f
	return f.at(
		clampInt(int(math.Round(x)), 0, f.nx-1),
		clampInt(int(math.Round(y)), 0, f.ny-1),
		clampInt(int(math.Round(z)), 0, f.nz-1),
	)
}

type linear struct{ f *field }

// cell returns the lower node, the upper node and the fractional offset
// for coordinate v on an axis of n samples.
func cell(v float64, n int) (int, int, float64) {
	i0 := clampInt(int(math.Floor(v)), 0, n-1)
	if i0 == n-1 {
		return i0, i0, 0
	}
	t := v - float64(i0)
	if t < 0 {
		t = 0
	}
	return i0, i0 + 1, t
}

func (l linear) At(x, y, z float64) float64 {
	f := l.f
	x0, x1, tx := cell(x, f.nx)
	y0, y1, ty := cell(y, f.ny)
	z0, z1, tz := cell(z, f.nz)

	c00 := f.at(x0, y0, z0)*(1-tx) + f.at(x1, y0, z0)*tx
	c10 := f.at(x0, y1, z0)*(1-tx) + f.at(x1, y1, z0)*tx
	c01 := f.at(x0, y0, z1)*(1-tx) + f.at(x1, y0, z1)*tx
	c11 := f.at(x0, y1, z1)*(1-tx) + f.at(x1, y1, z1)*tx

	c0 := c00*(1-ty) + c10*ty
	c1 := c01*(1-ty) + c11*ty
	return c0*(1-tz) + c1*tz
}
