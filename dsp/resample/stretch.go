package resample

import (
	"github.com/cwbudde/algo-autotune/dsp/interp"
)

// ToLength resamples src to exactly n samples, mapping the first and last
// source samples onto the first and last outputs. Compressing src raises its
// pitch and stretching it lowers the pitch by the same ratio.
//
// Interpolation defaults to cubic Hermite; pass [interp.ModeLinear] to
// trade quality for speed.
func ToLength(src []float64, n int, mode ...interp.Mode) ([]float64, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}

	if len(src) == 0 {
		return make([]float64, n), nil
	}

	m := interp.ModeHermite
	if len(mode) > 0 {
		m = mode[0]
	}

	out := make([]float64, n)
	if n == 1 || len(src) == 1 {
		for i := range out {
			out[i] = src[0]
		}
		return out, nil
	}

	step := float64(len(src)-1) / float64(n-1)
	for i := range out {
		out[i] = interp.At(src, float64(i)*step, m)
	}

	return out, nil
}
