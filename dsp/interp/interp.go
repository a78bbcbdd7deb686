package interp

import "math"

// Mode selects the fractional interpolation kernel.
type Mode int

const (
	// ModeHermite is 4-point cubic Hermite interpolation (default).
	ModeHermite Mode = iota
	// ModeLinear is 2-point linear interpolation.
	ModeLinear
)

// Linear2 interpolates between x0 and x1 at fraction t in [0, 1].
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// At evaluates samples at the fractional position pos, which is clamped to
// [0, len(samples)-1]. Kernel taps that fall outside the slice are linearly
// extrapolated from the two edge samples.
func At(samples []float64, pos float64, mode Mode) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}

	if n == 1 {
		return samples[0]
	}

	pos = math.Max(0, math.Min(pos, float64(n-1)))

	i := int(pos)
	t := pos - float64(i)

	at := func(k int) float64 {
		if k < 0 {
			return samples[0] + float64(k)*(samples[1]-samples[0])
		}
		if k >= n {
			return samples[n-1] + float64(k-n+1)*(samples[n-1]-samples[n-2])
		}
		return samples[k]
	}

	if mode == ModeLinear {
		return Linear2(t, at(i), at(i+1))
	}

	return Hermite4(t, at(i-1), at(i), at(i+1), at(i+2))
}
