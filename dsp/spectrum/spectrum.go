package spectrum

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/peaks"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

var (
	// ErrEmptyInput is returned for an empty sample block.
	ErrEmptyInput = errors.New("spectrum: empty input")
	// ErrInvalidRange is returned when the search band is empty or outside
	// [0, Nyquist].
	ErrInvalidRange = errors.New("spectrum: invalid frequency range")
)

// Peak is a spectral maximum.
type Peak struct {
	FreqHz    float64
	Magnitude float64
}

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Magnitude(out, re, im)

	return out
}

// MagnitudeSpectrum Hann-windows samples, zero-pads them to the next power
// of two and returns the magnitudes of bins 0..N/2 together with N.
func MagnitudeSpectrum(samples []float64) ([]float64, int, error) {
	if len(samples) == 0 {
		return nil, 0, ErrEmptyInput
	}

	n := core.NextPowerOf2(len(samples))

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, 0, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	w := window.Generate(window.TypeHann, len(samples))

	in := make([]complex128, n)
	for i, v := range samples {
		in[i] = complex(v*w[i], 0)
	}

	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		return nil, 0, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	return Magnitude(out[:n/2+1]), n, nil
}

// DominantFrequency returns the strongest spectral peak between minHz and
// maxHz, refined by parabolic interpolation on log magnitudes.
func DominantFrequency(samples []float64, sampleRate, minHz, maxHz float64) (Peak, error) {
	if sampleRate <= 0 || minHz < 0 || maxHz <= minHz || maxHz > sampleRate/2 {
		return Peak{}, ErrInvalidRange
	}

	mag, n, err := MagnitudeSpectrum(samples)
	if err != nil {
		return Peak{}, err
	}

	binHz := sampleRate / float64(n)
	lo := int(math.Ceil(minHz / binHz))
	hi := int(math.Floor(maxHz/binHz)) + 1

	k, v := peaks.ArgMax(mag, lo, hi)
	if k < 0 || v == 0 {
		return Peak{}, nil
	}

	logMag := make([]float64, 3)
	for j := range logMag {
		idx := k - 1 + j
		if idx < 0 || idx >= len(mag) {
			logMag[j] = math.Log(v)
			continue
		}
		logMag[j] = math.Log(math.Max(mag[idx], 1e-300))
	}

	off, _ := peaks.Parabolic(logMag, 1)

	return Peak{FreqHz: (float64(k) + off) * binHz, Magnitude: v}, nil
}
