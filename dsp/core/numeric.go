package core

import "math"

// Clamp limits v to [lo, hi]. Swapped bounds are reordered.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// IsFinite reports whether no sample is NaN or infinite.
func IsFinite(samples []float64) bool {
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PeakAbs returns max |x[i]|.
func PeakAbs(samples []float64) float64 {
	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// RMS is the root-mean-square level of samples; 0 when empty.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var energy float64
	for _, v := range samples {
		energy += v * v
	}
	return math.Sqrt(energy / float64(len(samples)))
}

// NextPowerOf2 rounds n up to a power of two; n <= 1 gives 1.
func NextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
