package autotune

import (
	"math"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/filter/biquad"
	"github.com/cwbudde/algo-autotune/dsp/filter/design/pass"
)

// Default anti-alias low-pass settings.
const (
	DefaultLowpassHz    = 8000.0
	DefaultLowpassOrder = 4
)

// NormalizePeak scales x in place so that its largest magnitude is 1 and
// returns the applied gain. Silent input is left untouched with gain 1.
func NormalizePeak(x []float64) float64 {
	peak := core.PeakAbs(x)
	if peak == 0 {
		return 1
	}

	gain := 1 / peak
	for i := range x {
		x[i] *= gain
	}

	return gain
}

// LowpassCutoff returns min(cutoffHz, 0.8 * Nyquist).
func LowpassCutoff(cutoffHz float64, sampleRate int) float64 {
	return min(cutoffHz, 0.8*float64(sampleRate)/2)
}

// Lowpass filters x forward and backward with a Butterworth low-pass of the
// given order, giving zero phase shift and exactly unity gain at DC. It returns x unchanged (and false)
// when no valid filter exists for the cutoff and rate.
func Lowpass(x []float64, cutoffHz float64, order, sampleRate int) ([]float64, bool) {
	sections := pass.ButterworthLP(cutoffHz, order, float64(sampleRate))
	if len(sections) == 0 {
		return x, false
	}

	chain := biquad.NewChain(sections)
	if g := chain.DCGain(); g > 0 && !math.IsInf(g, 0) {
		chain = biquad.NewChain(sections, biquad.WithGain(1/g))
	}

	return chain.FiltFilt(x), true
}
