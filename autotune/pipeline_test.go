package autotune

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/spectrum"
	"github.com/cwbudde/algo-autotune/internal/testutil"
)

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()

	p, err := NewPipeline(opts...)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	return p
}

func TestRunInScaleSineIsUnchanged(t *testing.T) {
	p := newTestPipeline(t)
	in := Signal{Samples: testutil.DeterministicSine(440, testRate, 1, testRate), SampleRate: testRate}

	out, report, err := p.Run(context.Background(), in, Params{Strength: 1, ScaleType: "major", RootNote: "A"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.ShiftedFrames != 0 {
		t.Fatalf("shifted %d frames of an in-scale tone", report.ShiftedFrames)
	}

	if dev := testutil.RelativeRMSError(out.Samples, in.Samples); dev > 0.05 {
		t.Fatalf("relative RMS deviation = %v, want < 0.05", dev)
	}
}

func TestRunCorrectsSharpTone(t *testing.T) {
	p := newTestPipeline(t)
	in := Signal{Samples: testutil.DeterministicSine(466.16, testRate, 0.5, testRate), SampleRate: testRate}

	out, report, err := p.Run(context.Background(), in, Params{Strength: 1, ScaleType: "major", RootNote: "A"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if math.Abs(report.MedianPitchHz-466.16) > 2 {
		t.Fatalf("median pitch = %v, want ~466.16", report.MedianPitchHz)
	}
	if math.Abs(report.MeanAbsShift-1) > 0.05 {
		t.Fatalf("mean shift = %v semitones, want ~1", report.MeanAbsShift)
	}
	if report.ShiftedFrames != report.Frames || report.Frames != p.FrameConfig().Count(testRate) {
		t.Fatalf("shifted %d of %d frames", report.ShiftedFrames, report.Frames)
	}

	if len(out.Samples) != len(in.Samples) || out.SampleRate != testRate {
		t.Fatalf("output %d samples @ %d Hz", len(out.Samples), out.SampleRate)
	}
	testutil.RequireFinite(t, out.Samples)

	if peak := core.PeakAbs(out.Samples); peak > 1+1e-9 {
		t.Fatalf("output peak = %v, want <= 1", peak)
	}

	dom, err := spectrum.DominantFrequency(out.Samples, testRate, 300, 600)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dom.FreqHz-440) > 3 {
		t.Fatalf("dominant output frequency = %v Hz, want ~440", dom.FreqHz)
	}
}

func TestRunMelody(t *testing.T) {
	p := newTestPipeline(t)

	// A#4 then D#4; in A major they snap to A4 and D4.
	samples := testutil.Melody([]testutil.Note{
		{FreqHz: 466.16, Seconds: 0.5},
		{FreqHz: 311.13, Seconds: 0.5},
	}, testRate, 0.6, 0)

	out, _, err := p.Run(context.Background(), Signal{Samples: samples, SampleRate: testRate},
		Params{Strength: 1, ScaleType: "major", RootNote: "A"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		from, to float64
		want     float64
	}{
		{0.1, 0.4, 440},
		{0.6, 0.9, 293.66},
	}

	for _, tt := range tests {
		seg := out.Samples[int(tt.from*testRate):int(tt.to*testRate)]

		dom, err := spectrum.DominantFrequency(seg, testRate, 200, 600)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(dom.FreqHz-tt.want) > 4 {
			t.Fatalf("[%v, %v]s dominant = %v Hz, want ~%v", tt.from, tt.to, dom.FreqHz, tt.want)
		}
	}
}

func TestRunSilence(t *testing.T) {
	p := newTestPipeline(t)

	out, report, err := p.Run(context.Background(), Signal{Samples: testutil.Silence(20000), SampleRate: testRate}, Params{Strength: 1})
	if err != nil {
		t.Fatal(err)
	}

	if report.VoicedFrames != 0 || report.ShiftedFrames != 0 || report.DegradedFrames != 0 {
		t.Fatalf("report = %+v, want all frames unvoiced", report)
	}

	if len(out.Samples) != 20000 {
		t.Fatalf("len = %d", len(out.Samples))
	}
	testutil.RequireFinite(t, out.Samples)
	testutil.RequireSilent(t, out.Samples, 0)
}

func TestRunShortSignal(t *testing.T) {
	p := newTestPipeline(t)
	in := testutil.DeterministicSine(300, testRate, 0.25, 1000)

	out, report, err := p.Run(context.Background(), Signal{Samples: in, SampleRate: testRate}, Params{Strength: 1})
	if err != nil {
		t.Fatal(err)
	}

	if report.Frames != 0 || len(out.Samples) != len(in) {
		t.Fatalf("frames = %d, len = %d", report.Frames, len(out.Samples))
	}

	if peak := core.PeakAbs(out.Samples); math.Abs(peak-1) > 0.05 {
		t.Fatalf("output peak = %v, want ~1 after normalization", peak)
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	p := newTestPipeline(t)
	in := testutil.DeterministicSine(466.16, testRate, 0.3, 8192)
	orig := slices.Clone(in)

	if _, _, err := p.Run(context.Background(), Signal{Samples: in, SampleRate: testRate}, Params{Strength: 1}); err != nil {
		t.Fatal(err)
	}

	testutil.RequireSliceNearlyEqual(t, in, orig, 0)
}

func TestRunInputErrors(t *testing.T) {
	p := newTestPipeline(t)

	tests := []struct {
		name string
		sig  Signal
		want error
	}{
		{"empty", Signal{SampleRate: testRate}, ErrEmptySignal},
		{"rate", Signal{Samples: []float64{0.1}, SampleRate: 0}, ErrInvalidSampleRate},
		{"nan", Signal{Samples: []float64{0.1, math.NaN()}, SampleRate: testRate}, ErrNonFiniteSignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Run(context.Background(), tt.sig, Params{})
			if !errors.Is(err, tt.want) || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunUnknownRootIsProcessingError(t *testing.T) {
	p := newTestPipeline(t)
	sig := Signal{Samples: testutil.DeterministicSine(440, testRate, 1, 4096), SampleRate: testRate}

	out, _, err := p.Run(context.Background(), sig, Params{Strength: 1, RootNote: "H"})

	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Stage != StageScale {
		t.Fatalf("err = %v, want ProcessingError in stage %q", err, StageScale)
	}
	if !errors.Is(err, ErrUnknownRoot) {
		t.Fatalf("err = %v, want wrapped ErrUnknownRoot", err)
	}
	if out.Samples != nil {
		t.Fatal("partial output returned with error")
	}
}

func TestRunCanceled(t *testing.T) {
	p := newTestPipeline(t)
	sig := Signal{Samples: testutil.DeterministicSine(440, testRate, 1, 4096), SampleRate: testRate}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, _, err := p.Run(ctx, sig, Params{Strength: 1})

	var perr *ProcessingError
	if !errors.As(err, &perr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ProcessingError wrapping context.Canceled", err)
	}
	if out.Samples != nil {
		t.Fatal("partial output returned with error")
	}
}

func TestStrengthPolicy(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		in   float64
		want float64
	}{
		{"nan uses default", nil, math.NaN(), DefaultStrength},
		{"above range", nil, 4, 1},
		{"below range", nil, 0, 0.1},
		{"in range", nil, 0.5, 0.5},
		{"custom range", []Option{WithStrengthRange(0, 1)}, 0, 0},
		{"custom default", []Option{WithDefaultStrength(0.3)}, math.NaN(), 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestPipeline(t, tt.opts...).Strength(tt.in); got != tt.want {
				t.Fatalf("Strength(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()
	params.RootNote = "A"

	sig := Signal{Samples: testutil.DeterministicSine(440, testRate, 0.5, 8192), SampleRate: testRate}

	_, report, err := newTestPipeline(t).Run(context.Background(), sig, params)
	if err != nil {
		t.Fatal(err)
	}
	if report.Strength != DefaultStrength || report.ScaleType != "major" || report.RootNote != "A" {
		t.Fatalf("report = %+v, want default strength in A major", report)
	}

	_, report, err = newTestPipeline(t, WithDefaultStrength(0.5)).Run(context.Background(), sig, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if report.Strength != 0.5 || report.RootNote != "C" {
		t.Fatalf("report = %+v, want the pipeline default 0.5 in C", report)
	}

	// The zero value is clamped to the minimum strength.
	_, report, err = newTestPipeline(t).Run(context.Background(), sig, Params{RootNote: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Strength != DefaultMinStrength {
		t.Fatalf("zero-value strength = %v, want %v", report.Strength, DefaultMinStrength)
	}
}

func TestRunZeroStrengthOnlyNormalizes(t *testing.T) {
	p := newTestPipeline(t, WithStrengthRange(0, 1), WithoutLowpass())
	in := testutil.DeterministicSine(466.16, testRate, 0.5, 16384)

	out, report, err := p.Run(context.Background(), Signal{Samples: in, SampleRate: testRate}, Params{Strength: 0})
	if err != nil {
		t.Fatal(err)
	}

	if report.ShiftedFrames != 0 {
		t.Fatalf("shifted %d frames at zero strength", report.ShiftedFrames)
	}

	want := slices.Clone(in)
	NormalizePeak(want)
	testutil.RequireSliceNearlyEqual(t, out.Samples, want, 1e-9)
}

func TestNewPipelineValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"frame", []Option{WithFrameConfig(FrameConfig{Length: 512, Hop: 1024})}},
		{"strength", []Option{WithStrengthRange(0.9, 0.1)}},
		{"lowpass", []Option{WithLowpass(0, 4)}},
		{"order", []Option{WithLowpass(4000, 0)}},
	}

	for _, tt := range tests {
		if _, err := NewPipeline(tt.opts...); err == nil {
			t.Fatalf("%s: NewPipeline() succeeded", tt.name)
		}
	}
}

type recordingRecorder struct {
	mu     sync.Mutex
	stages map[string]int
	frames map[string]int
}

func (r *recordingRecorder) RecordStage(_ context.Context, stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage]++
}

func (r *recordingRecorder) RecordFrames(_ context.Context, kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[kind] += n
}

func TestRunReportsToRecorder(t *testing.T) {
	rec := &recordingRecorder{stages: map[string]int{}, frames: map[string]int{}}
	p := newTestPipeline(t, WithRecorder(rec), WithWorkers(2))

	sig := Signal{Samples: testutil.DeterministicSine(466.16, testRate, 0.5, 22050), SampleRate: testRate}

	_, report, err := p.Run(context.Background(), sig, Params{Strength: 1, ScaleType: "minor", RootNote: "A"})
	if err != nil {
		t.Fatal(err)
	}

	for _, stage := range []string{StageScale, StageDetect, StagePlan, StageShift, StagePost} {
		if rec.stages[stage] != 1 {
			t.Fatalf("stage %q recorded %d times", stage, rec.stages[stage])
		}
		if _, ok := report.Stages[stage]; !ok {
			t.Fatalf("report misses stage %q", stage)
		}
	}

	if got := rec.frames[FramesVoiced] + rec.frames[FramesUnvoiced]; got != report.Frames {
		t.Fatalf("voiced+unvoiced = %d, want %d", got, report.Frames)
	}
	if rec.frames[FramesShifted] != report.ShiftedFrames {
		t.Fatalf("shifted = %d, want %d", rec.frames[FramesShifted], report.ShiftedFrames)
	}

	if report.ScaleType != "minor" || report.RootNote != "A" {
		t.Fatalf("report scale = %s %s", report.ScaleType, report.RootNote)
	}
}

func TestRunConcurrent(t *testing.T) {
	p := newTestPipeline(t)
	sig := Signal{Samples: testutil.DeterministicSine(345, testRate, 0.5, 16384), SampleRate: testRate}

	want, _, err := p.Run(context.Background(), sig, Params{Strength: 0.7, ScaleType: "pentatonic", RootNote: "D"})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			got, _, err := p.Run(context.Background(), sig, Params{Strength: 0.7, ScaleType: "pentatonic", RootNote: "D"})
			if err != nil {
				t.Error(err)
				return
			}
			if !slices.Equal(got.Samples, want.Samples) {
				t.Error("concurrent run produced different output")
			}
		}()
	}
	wg.Wait()
}

func TestAnalyze(t *testing.T) {
	p := newTestPipeline(t, WithDetector(NewSpectralDetector()))
	sig := Signal{Samples: testutil.DeterministicSine(392, testRate, 0.5, 8192), SampleRate: testRate}

	est, degraded, err := p.Analyze(context.Background(), sig)
	if err != nil {
		t.Fatal(err)
	}

	if degraded != 0 || len(est) != p.FrameConfig().Count(len(sig.Samples)) {
		t.Fatalf("%d estimates, %d degraded", len(est), degraded)
	}
	for i, e := range est {
		if math.Abs(e.Frequency-392) > 4 {
			t.Fatalf("frame %d: %v Hz", i, e.Frequency)
		}
	}

	if _, _, err := p.Analyze(context.Background(), Signal{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
