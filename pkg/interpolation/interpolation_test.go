package interpolation

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestField fills a field of the given size using fn(i, j, k)
func createTestField(nx, ny, nz int, fn func(i, j, k int) float64) ([3]int, []float64) {
	samples := make([]float64, nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				samples[i+nx*(j+ny*k)] = fn(i, j, k)
			}
		}
	}
	return [3]int{nx, ny, nz}, samples
}

func ramp(i, j, k int) float64 {
	return 2*float64(i) - 3*float64(j) + 0.5*float64(k) + 7
}

// TestParseKind verifies kernel names and aliases
func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Kind
	}{
		{"nearest", Nearest},
		{"Linear", Linear},
		{" bspline ", BSpline},
		{"cubic", BSpline},
	} {
		got, err := ParseKind(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}

	_, err := ParseKind("sinc")
	assert.ErrorIs(t, err, ErrUnsupportedInterpolation)
	assert.False(t, Kind(42).Valid())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func mustParse(t *testing.T, s string) Kind {
	t.Helper()
	k, err := ParseKind(s)
	require.NoError(t, err)
	return k
}

// TestNewRejectsBadInput covers shape mismatches and unknown kernels
func TestNewRejectsBadInput(t *testing.T) {
	dims, samples := createTestField(3, 3, 3, ramp)

	_, err := New(Linear, [3]int{3, 3, 2}, samples)
	assert.ErrorIs(t, err, ErrFieldShape)

	_, err = New(Kind(9), dims, samples)
	assert.ErrorIs(t, err, ErrUnsupportedInterpolation)
}

// TestKernelsReproduceSamplesAtNodes verifies every kernel is interpolating
func TestKernelsReproduceSamplesAtNodes(t *testing.T) {
	dims, samples := createTestField(6, 5, 4, func(i, j, k int) float64 {
		return math.Sin(float64(i)) + float64(j*j) - math.Cos(float64(k)*0.7)
	})

	for _, kind := range []Kind{Nearest, Linear, BSpline} {
		interp, err := New(kind, dims, samples)
		require.NoError(t, err)

		for k := 0; k < dims[2]; k++ {
			for j := 0; j < dims[1]; j++ {
				for i := 0; i < dims[0]; i++ {
					want := samples[i+dims[0]*(j+dims[1]*k)]
					got := interp.At(float64(i), float64(j), float64(k))
					assert.InDelta(t, want, got, 1e-9, "%v at (%d,%d,%d)", kind, i, j, k)
				}
			}
		}
	}
}

// TestNearestRounding checks rounding to the closest node
func TestNearestRounding(t *testing.T) {
	dims, samples := createTestField(4, 4, 4, ramp)
	interp, err := New(Nearest, dims, samples)
	require.NoError(t, err)

	assert.Equal(t, ramp(1, 2, 3), interp.At(1.4, 1.6, 2.5))
	assert.Equal(t, ramp(0, 0, 0), interp.At(0.49, 0.2, 0.1))
}

// TestLinearExactOnRamp verifies trilinear interpolation reproduces an affine field
func TestLinearExactOnRamp(t *testing.T) {
	dims, samples := createTestField(5, 5, 5, ramp)
	interp, err := New(Linear, dims, samples)
	require.NoError(t, err)

	properties := gopter.NewProperties(nil)
	properties.Property("linear kernel is exact for affine fields", prop.ForAll(
		func(x, y, z float64) bool {
			want := 2*x - 3*y + 0.5*z + 7
			return math.Abs(interp.At(x, y, z)-want) < 1e-9
		},
		gen.Float64Range(0, 4),
		gen.Float64Range(0, 4),
		gen.Float64Range(0, 4),
	))
	properties.TestingRun(t)
}

// TestBSplineConstantField verifies the spline preserves constants everywhere
func TestBSplineConstantField(t *testing.T) {
	dims, samples := createTestField(7, 3, 1, func(i, j, k int) float64 { return 42 })
	interp, err := New(BSpline, dims, samples)
	require.NoError(t, err)

	for _, p := range [][3]float64{{0, 0, 0}, {3.3, 1.7, 0}, {6, 2, 0}, {0.01, 0.99, 0}} {
		assert.InDelta(t, 42, interp.At(p[0], p[1], p[2]), 1e-9)
	}
}

// TestBSplineSmoothBetweenNodes checks the spline stays close to a smooth signal
func TestBSplineSmoothBetweenNodes(t *testing.T) {
	signal := func(x float64) float64 { return math.Sin(x / 3) }
	dims, samples := createTestField(20, 1, 1, func(i, j, k int) float64 { return signal(float64(i)) })

	spline, err := New(BSpline, dims, samples)
	require.NoError(t, err)
	lin, err := New(Linear, dims, samples)
	require.NoError(t, err)

	var splineErr, linErr float64
	for x := 4.25; x < 15; x += 0.5 {
		splineErr = math.Max(splineErr, math.Abs(spline.At(x, 0, 0)-signal(x)))
		linErr = math.Max(linErr, math.Abs(lin.At(x, 0, 0)-signal(x)))
	}
	assert.Less(t, splineErr, linErr)
	assert.Less(t, splineErr, 1e-3)
}

// TestMirror checks boundary folding of node indices
func TestMirror(t *testing.T) {
	assert.Equal(t, 1, mirror(-1, 5))
	assert.Equal(t, 0, mirror(0, 5))
	assert.Equal(t, 3, mirror(5, 5))
	assert.Equal(t, 2, mirror(6, 5))
	assert.Equal(t, 0, mirror(3, 1))
	assert.Equal(t, 1, mirror(-1, 2))
}
