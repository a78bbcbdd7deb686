package autotune

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/peaks"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

// spectralOversample zero-pads frames to sharpen bin spacing before
// parabolic refinement.
const spectralOversample = 4

// SpectralDetector picks the strongest magnitude bin inside the frequency
// range. It reacts to the loudest partial rather than the fundamental, so it
// is best used as a fallback. Strength is the peak magnitude relative to the
// largest magnitude anywhere in the spectrum.
type SpectralDetector struct {
	cfg detectorConfig
}

// NewSpectralDetector returns an FFT peak-picking detector.
func NewSpectralDetector(opts ...DetectorOption) *SpectralDetector {
	return &SpectralDetector{cfg: applyDetectorOptions(opts)}
}

// Estimate implements [Detector].
func (d *SpectralDetector) Estimate(frame []float64, sampleRate int) (PitchEstimate, error) {
	if err := checkFrame(frame, sampleRate); err != nil {
		return PitchEstimate{}, err
	}

	win := d.cfg.windows.Get(window.TypeHann, len(frame))

	size := core.NextPowerOf2(len(frame)) * spectralOversample
	buf := make([]float64, size)
	copy(buf, frame)
	if err := window.Multiply(buf[:len(frame)], win); err != nil {
		return PitchEstimate{}, err
	}

	spec := fft.FFTReal(buf)

	mags := make([]float64, size/2+1)
	for k := range mags {
		mags[k] = cmplx.Abs(spec[k])
	}

	_, global := peaks.ArgMax(mags, 1, len(mags))
	if global <= math.Sqrt(silenceFloor) {
		return PitchEstimate{}, nil
	}

	sr := float64(sampleRate)
	binHz := sr / float64(size)
	lo := max(int(math.Ceil(d.cfg.minHz/binHz)), 1)
	hi := min(int(math.Floor(d.cfg.maxHz/binHz))+1, len(mags)-1)

	k, height := peaks.ArgMax(mags, lo, hi)
	if k < 0 || height <= 0 {
		return PitchEstimate{}, nil
	}

	offset, refined := peaks.Parabolic(mags, k)

	freq := (float64(k) + offset) * binHz
	if freq < d.cfg.minHz || freq > d.cfg.maxHz {
		return PitchEstimate{}, nil
	}

	return PitchEstimate{Frequency: freq, Strength: core.Clamp(refined/global, 0, 1)}, nil
}

// FallbackDetector consults Secondary only when Primary fails. An unvoiced
// result from Primary is final.
type FallbackDetector struct {
	Primary   Detector
	Secondary Detector
}

// Estimate implements [Detector].
func (d *FallbackDetector) Estimate(frame []float64, sampleRate int) (PitchEstimate, error) {
	if d.Primary == nil {
		if d.Secondary == nil {
			return PitchEstimate{}, errors.New("autotune: fallback detector has no detectors")
		}
		return d.Secondary.Estimate(frame, sampleRate)
	}

	est, err := d.Primary.Estimate(frame, sampleRate)
	if err == nil || d.Secondary == nil {
		return est, err
	}

	est, err2 := d.Secondary.Estimate(frame, sampleRate)
	if err2 != nil {
		return PitchEstimate{}, errors.Join(err, err2)
	}

	return est, nil
}
