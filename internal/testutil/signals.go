package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a sine wave starting at phase 0.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Silence returns length zero samples.
func Silence(length int) []float64 {
	return make([]float64, length)
}

// Note is one segment of a synthetic melody.
type Note struct {
	FreqHz  float64
	Seconds float64
}

// Melody renders notes back to back as phase-continuous sines with a short
// linear fade at each boundary, plus optional seeded noise.
func Melody(notes []Note, sampleRate, amplitude, noise float64) []float64 {
	var out []float64
	phase := 0.0
	fade := int(0.005 * sampleRate)

	for _, n := range notes {
		length := int(n.Seconds * sampleRate)
		step := 2 * math.Pi * n.FreqHz / sampleRate
		for i := range length {
			g := 1.0
			if i < fade {
				g = float64(i) / float64(fade)
			} else if length-i <= fade {
				g = float64(length-i) / float64(fade)
			}
			out = append(out, amplitude*g*math.Sin(phase))
			phase += step
		}
	}

	if noise > 0 {
		n := DeterministicNoise(42, noise, len(out))
		for i := range out {
			out[i] += n[i]
		}
	}

	return out
}
