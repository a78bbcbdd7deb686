package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func TestMagnitude(t *testing.T) {
	got := Magnitude([]complex128{3 + 4i, -1, 0})
	testutil.RequireSliceNearlyEqual(t, got, []float64{5, 1, 0}, 1e-12)

	if Magnitude(nil) != nil {
		t.Fatal("Magnitude(nil) should be nil")
	}
}

func TestDominantFrequency(t *testing.T) {
	const sr = 44100.0

	tests := []struct {
		name string
		freq float64
	}{
		{name: "A4", freq: 440},
		{name: "A#4", freq: 466.16},
		{name: "low", freq: 82.41},
		{name: "high", freq: 1760},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := testutil.DeterministicSine(tt.freq, sr, 0.5, int(sr))

			p, err := DominantFrequency(x, sr, 50, 4000)
			if err != nil {
				t.Fatalf("DominantFrequency() error = %v", err)
			}

			if math.Abs(p.FreqHz-tt.freq) > 0.5 {
				t.Fatalf("FreqHz = %.3f, want %.3f", p.FreqHz, tt.freq)
			}
		})
	}
}

func TestDominantFrequencyErrors(t *testing.T) {
	if _, err := DominantFrequency(nil, 44100, 50, 1000); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}

	if _, err := DominantFrequency([]float64{1}, 44100, 1000, 50); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}

	p, err := DominantFrequency(make([]float64, 1024), 44100, 50, 1000)
	if err != nil || p.FreqHz != 0 {
		t.Fatalf("silence = %+v, %v; want zero peak", p, err)
	}
}

func TestToneAmplitude(t *testing.T) {
	const sr = 44100.0

	// 441 Hz completes exactly 441 cycles in one second.
	x := testutil.DeterministicSine(441, sr, 0.7, int(sr))

	on, err := ToneAmplitude(x, 441, sr)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(on-0.7) > 1e-6 {
		t.Fatalf("on-bin amplitude = %v, want 0.7", on)
	}

	off, err := ToneAmplitude(x, 466, sr)
	if err != nil {
		t.Fatal(err)
	}
	if off > 0.01 {
		t.Fatalf("off-bin amplitude = %v, want ~0", off)
	}

	if _, err := ToneAmplitude(x, 30000, sr); err == nil {
		t.Fatal("expected error above Nyquist")
	}
}
