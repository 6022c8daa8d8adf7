package interpolation

import "math"

// cubicPole is the single pole of the cubic B-spline prefilter.
var cubicPole = math.Sqrt(3) - 2

// bspline holds prefiltered coefficients so that the cubic spline passes
// through every sample. Boundaries are mirrored without repeating the edge.
type bspline struct {
	coef *field
}

func newBSpline(f *field) *bspline {
	coef := make([]float64, len(f.samples))
	copy(coef, f.samples)
	c := &field{nx: f.nx, ny: f.ny, nz: f.nz, samples: coef}

	line := make([]float64, max(f.nx, f.ny, f.nz))

	// x lines
	for k := 0; k < c.nz; k++ {
		for j := 0; j < c.ny; j++ {
			base := c.nx * (j + c.ny*k)
			prefilter(coef[base : base+c.nx])
		}
	}
	// y lines
	for k := 0; k < c.nz; k++ {
		for i := 0; i < c.nx; i++ {
			l := line[:c.ny]
			for j := range l {
				l[j] = coef[i+c.nx*(j+c.ny*k)]
			}
			prefilter(l)
			for j, v := range l {
				coef[i+c.nx*(j+c.ny*k)] = v
			}
		}
	}
	// z lines
	for j := 0; j < c.ny; j++ {
		for i := 0; i < c.nx; i++ {
			l := line[:c.nz]
			for k := range l {
				l[k] = coef[i+c.nx*(j+c.ny*k)]
			}
			prefilter(l)
			for k, v := range l {
				coef[i+c.nx*(j+c.ny*k)] = v
			}
		}
	}
	return &bspline{coef: c}
}

// prefilter converts samples to cubic B-spline coefficients in place using
// the causal/anti-causal recursion with mirror boundary conditions.
func prefilter(c []float64) {
	n := len(c)
	if n < 2 {
		return
	}
	z := cubicPole
	gain := (1 - z) * (1 - 1/z)
	for i := range c {
		c[i] *= gain
	}

	// causal initialisation, exact mirror sum
	zn := z
	iz := 1 / z
	z2n := math.Pow(z, float64(n-1))
	sum := c[0] + z2n*c[n-1]
	z2n *= z2n * iz
	for k := 1; k < n-1; k++ {
		sum += (zn + z2n) * c[k]
		zn *= z
		z2n *= iz
	}
	c[0] = sum / (1 - zn*zn)

	for k := 1; k < n; k++ {
		c[k] += z * c[k-1]
	}

	c[n-1] = (z / (z*z - 1)) * (z*c[n-2] + c[n-1])
	for k := n - 2; k >= 0; k-- {
		c[k] = z * (c[k+1] - c[k])
	}
}

// mirror folds an out-of-range node index back into [0, n-1].
func mirror(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2*n - 2
	if i < 0 {
		i = -i
	}
	i %= period
	if i >= n {
		i = period - i
	}
	return i
}

// cubicWeights returns the weights of nodes floor(v)-1 .. floor(v)+2.
func cubicWeights(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	u := 1 - t
	return [4]float64{
		u * u * u / 6,
		(3*t3 - 6*t2 + 4) / 6,
		(-3*t3 + 3*t2 + 3*t + 1) / 6,
		t3 / 6,
	}
}

func (b *bspline) At(x, y, z float64) float64 {
	c := b.coef
	x = math.Max(0, math.Min(x, float64(c.nx-1)))
	y = math.Max(0, math.Min(y, float64(c.ny-1)))
	z = math.Max(0, math.Min(z, float64(c.nz-1)))

	fx, fy, fz := math.Floor(x), math.Floor(y), math.Floor(z)
	wx, wy, wz := cubicWeights(x-fx), cubicWeights(y-fy), cubicWeights(z-fz)

	var xs, ys, zs [4]int
	for n := 0; n < 4; n++ {
		xs[n] = mirror(int(fx)-1+n, c.nx)
		ys[n] = mirror(int(fy)-1+n, c.ny)
		zs[n] = mirror(int(fz)-1+n, c.nz)
	}

	var v float64
	for kk := 0; kk < 4; kk++ {
		if wz[kk] == 0 {
			continue
		}
		var plane float64
		for jj := 0; jj < 4; jj++ {
			if wy[jj] == 0 {
				continue
			}
			var row float64
			for ii := 0; ii < 4; ii++ {
				row += wx[ii] * c.at(xs[ii], ys[jj], zs[kk])
			}
			plane += wy[jj] * row
		}
		v += wz[kk] * plane
	}
	return v
}
