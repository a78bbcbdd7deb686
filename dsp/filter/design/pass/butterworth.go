package pass

import (
	"math"

	"github.com/cwbudde/algo-autotune/dsp/filter/biquad"
)

// validCutoff reports whether freq lies strictly between 0 and Nyquist.
func validCutoff(freq, sampleRate float64) bool {
	return sampleRate > 0 && freq > 0 && freq < sampleRate/2
}

// ButterworthLP designs an order-n Butterworth lowpass as second-order
// sections, lowest Q first. Odd orders end with a first-order section
// (B2 = A2 = 0). It returns nil for order <= 0 or a cutoff outside
// (0, Nyquist).
func ButterworthLP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 || !validCutoff(freq, sampleRate) {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, Lowpass2(freq, poleQ(order, i), sampleRate))
	}
	if order%2 == 1 {
		sections = append(sections, lowpass1(freq, sampleRate))
	}

	return sections
}

// Lowpass2 designs a second-order lowpass section with quality factor q by
// the bilinear transform. q <= 0 selects 1/sqrt(2). An invalid cutoff
// yields zero coefficients.
func Lowpass2(freq, q, sampleRate float64) biquad.Coefficients {
	if !validCutoff(freq, sampleRate) {
		return biquad.Coefficients{}
	}
	if q <= 0 {
		q = math.Sqrt2 / 2
	}

	sin, cos := math.Sincos(2 * math.Pi * freq / sampleRate)
	alpha := sin / (2 * q)
	inv := 1 / (1 + alpha)
	b := (1 - cos) * inv

	return biquad.Coefficients{
		B0: b / 2,
		B1: b,
		B2: b / 2,
		A1: -2 * cos * inv,
		A2: (1 - alpha) * inv,
	}
}

// poleQ is the quality factor of the i-th conjugate pole pair of an
// order-n Butterworth prototype.
func poleQ(order, i int) float64 {
	s := math.Sin(math.Pi * float64(2*i+1) / float64(2*order))
	if s == 0 {
		return math.Sqrt2 / 2
	}

	return 1 / (2 * s)
}

// lowpass1 is the first-order section of odd orders, prewarped so the
// -3 dB point lands on freq.
func lowpass1(freq, sampleRate float64) biquad.Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	inv := 1 / (1 + k)

	return biquad.Coefficients{B0: k * inv, B1: k * inv, A1: (k - 1) * inv}
}
