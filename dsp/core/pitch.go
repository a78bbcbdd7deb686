package core

import "math"

// A4Hz is the concert pitch reference used by MIDI conversions.
const A4Hz = 440.0

// SemitonesToRatio converts an interval in semitones to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Exp2(semitones / 12)
}

// RatioToSemitones converts a frequency ratio to semitones.
// Non-positive ratios return 0.
func RatioToSemitones(ratio float64) float64 {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}

	return 12 * math.Log2(ratio)
}

// HzToMidi converts a frequency to a fractional MIDI note number (A4 = 69).
func HzToMidi(hz float64) float64 {
	if hz <= 0 {
		return math.NaN()
	}

	return 69 + 12*math.Log2(hz/A4Hz)
}

// MidiToHz converts a fractional MIDI note number to a frequency.
func MidiToHz(midi float64) float64 {
	return A4Hz * math.Exp2((midi-69)/12)
}

// CentsBetween returns the signed distance from ref to hz in cents.
func CentsBetween(hz, ref float64) float64 {
	if hz <= 0 || ref <= 0 {
		return 0
	}

	return 1200 * math.Log2(hz/ref)
}
