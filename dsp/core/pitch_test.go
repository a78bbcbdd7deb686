package core

import (
	"math"
	"testing"
)

func TestSemitoneRatioRoundTrip(t *testing.T) {
	for _, st := range []float64{-12, -1, -0.5, 0, 0.25, 7, 12} {
		got := RatioToSemitones(SemitonesToRatio(st))
		if math.Abs(got-st) > 1e-12 {
			t.Fatalf("round trip %v -> %v", st, got)
		}
	}
	if got := SemitonesToRatio(12); math.Abs(got-2) > 1e-12 {
		t.Fatalf("octave ratio = %v, want 2", got)
	}
	if got := RatioToSemitones(0); got != 0 {
		t.Fatalf("RatioToSemitones(0) = %v, want 0", got)
	}
}

func TestMidiConversions(t *testing.T) {
	if got := HzToMidi(440); math.Abs(got-69) > 1e-12 {
		t.Fatalf("HzToMidi(440) = %v, want 69", got)
	}
	if got := MidiToHz(60); math.Abs(got-261.6256) > 1e-3 {
		t.Fatalf("MidiToHz(60) = %v, want ~261.63", got)
	}
	if !math.IsNaN(HzToMidi(0)) {
		t.Fatal("HzToMidi(0) should be NaN")
	}
}

func TestCentsBetween(t *testing.T) {
	if got := CentsBetween(880, 440); math.Abs(got-1200) > 1e-9 {
		t.Fatalf("CentsBetween(880, 440) = %v, want 1200", got)
	}
	if got := CentsBetween(0, 440); got != 0 {
		t.Fatalf("CentsBetween(0, 440) = %v, want 0", got)
	}
}
