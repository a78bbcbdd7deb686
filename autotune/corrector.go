package autotune

import (
	"math"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

// NegligibleShift is the smallest correction in semitones that is applied.
const NegligibleShift = 0.1

// FrameShift is the planned correction for one frame. SourceHz carries the
// detected pitch so that consecutive shifted frames can be read in phase.
type FrameShift struct {
	Semitones float64
	SourceHz  float64
}

// Active reports whether the frame needs shifting.
func (f FrameShift) Active() bool { return f.Semitones != 0 }

// Ratio returns the frequency ratio 2^(Semitones/12).
func (f FrameShift) Ratio() float64 { return core.SemitonesToRatio(f.Semitones) }

// Corrector maps pitch estimates onto a scale.
type Corrector struct {
	// MinConfidence skips estimates whose strength is below it. Zero
	// corrects every voiced frame.
	MinConfidence float64
}

// Plan returns the shift that moves est towards the nearest target in scale.
// strength in [0, 1] blends between no correction and a hard snap; values
// outside the range are clamped.
func (c Corrector) Plan(est PitchEstimate, scale Scale, strength float64) FrameShift {
	freq := est.Frequency
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return FrameShift{}
	}

	if est.Strength < c.MinConfidence {
		return FrameShift{}
	}

	target := scale.Nearest(freq)
	if target <= 0 {
		return FrameShift{}
	}

	if math.IsNaN(strength) {
		strength = 0
	}
	strength = core.Clamp(strength, 0, 1)

	effective := freq + (target-freq)*strength

	shift := core.RatioToSemitones(effective / freq)
	if math.Abs(shift) < NegligibleShift {
		return FrameShift{}
	}

	return FrameShift{Semitones: shift, SourceHz: freq}
}
