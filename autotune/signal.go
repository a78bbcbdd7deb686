package autotune

import (
	"time"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

// Signal is a mono sample sequence at a fixed sample rate. Samples are
// nominally in [-1, 1].
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in time.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// Validate reports why s cannot be processed, or nil.
func (s Signal) Validate() error {
	if len(s.Samples) == 0 {
		return ErrEmptySignal
	}

	if s.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	if !core.IsFinite(s.Samples) {
		return ErrNonFiniteSignal
	}

	return nil
}

// DownmixInterleaved averages interleaved multichannel samples into mono.
// A trailing partial frame is dropped. channels <= 1 returns a copy.
func DownmixInterleaved(data []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	frames := len(data) / channels
	out := make([]float64, frames)
	inv := 1 / float64(channels)

	for i := range out {
		var sum float64
		for _, v := range data[i*channels : (i+1)*channels] {
			sum += v
		}
		out[i] = sum * inv
	}

	return out
}
