package spectrum

import (
	"fmt"
	"math"
)

// ToneAmplitude estimates the amplitude of a sinusoid at frequency in
// samples using the Goertzel recurrence. For a pure tone that completes an
// integer number of cycles in the block the result equals its peak
// amplitude.
func ToneAmplitude(samples []float64, frequency, sampleRate float64) (float64, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("goertzel: sample rate must be > 0: %v", sampleRate)
	}

	if frequency < 0 || frequency > sampleRate/2 || math.IsNaN(frequency) {
		return 0, fmt.Errorf("goertzel: frequency must be between 0 and sampleRate/2: %v", frequency)
	}

	if len(samples) == 0 {
		return 0, ErrEmptyInput
	}

	coeff := 2 * math.Cos(2*math.Pi*frequency/sampleRate)

	var s0, s1 float64
	for _, x := range samples {
		s := x + coeff*s0 - s1
		s1 = s0
		s0 = s
	}

	power := s0*s0 + s1*s1 - coeff*s0*s1
	if power <= 0 {
		return 0, nil
	}

	return 2 * math.Sqrt(power) / float64(len(samples)), nil
}
