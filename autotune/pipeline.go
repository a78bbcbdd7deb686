package autotune

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

const tracerName = "github.com/cwbudde/algo-autotune/autotune"

// Default strength policy.
const (
	DefaultStrength    = 0.8
	DefaultMinStrength = 0.1
	DefaultMaxStrength = 1.0
)

// Params selects the correction applied by [Pipeline.Run].
//
// The zero value is not the default correction: a zero Strength is clamped
// up to the pipeline's minimum strength. Start from [DefaultParams] and
// override fields instead.
type Params struct {
	// Strength in [0, 1] blends between the detected and the target pitch.
	// It is clamped to the pipeline's strength range; NaN selects the
	// pipeline's default strength.
	Strength float64
	// ScaleType is "major", "minor" or "pentatonic"; anything else is major.
	ScaleType string
	// RootNote is a pitch class such as "A" or "F#". Empty means C.
	RootNote string
}

// DefaultParams returns C major with the pipeline's default strength.
func DefaultParams() Params {
	return Params{Strength: math.NaN(), ScaleType: "major", RootNote: "C"}
}

// Report summarises one run.
type Report struct {
	Frames         int                `json:"frames"`
	VoicedFrames   int                `json:"voiced_frames"`
	ShiftedFrames  int                `json:"shifted_frames"`
	DegradedFrames int                `json:"degraded_frames"`
	FallbackFrames int                `json:"fallback_frames"`
	MedianPitchHz  float64            `json:"median_pitch_hz"`
	MeanAbsShift   float64            `json:"mean_abs_shift_semitones"`
	Strength       float64            `json:"strength"`
	ScaleType      string             `json:"scale_type"`
	RootNote       string             `json:"root_note"`
	OutputGain     float64            `json:"output_gain"`
	Stages         map[string]float64 `json:"stage_seconds"`
}

// Option configures a [Pipeline].
type Option func(*config)

type config struct {
	detector      Detector
	table         *Table
	frame         FrameConfig
	minStrength   float64
	maxStrength   float64
	defStrength   float64
	minConfidence float64
	lowpass       bool
	cutoffHz      float64
	order         int
	workers       int
	recorder      Recorder
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{
		frame:       DefaultFrameConfig(),
		minStrength: DefaultMinStrength,
		maxStrength: DefaultMaxStrength,
		defStrength: DefaultStrength,
		lowpass:     true,
		cutoffHz:    DefaultLowpassHz,
		order:       DefaultLowpassOrder,
		workers:     runtime.GOMAXPROCS(0),
		recorder:    nopRecorder{},
		logger:      slog.New(slog.DiscardHandler),
	}
}

// WithDetector replaces the default autocorrelation detector.
func WithDetector(d Detector) Option {
	return func(c *config) { c.detector = d }
}

// WithScaleTable shares a scale table, and its cache, between pipelines.
func WithScaleTable(t *Table) Option {
	return func(c *config) { c.table = t }
}

// WithFrameConfig sets frame length and hop.
func WithFrameConfig(f FrameConfig) Option {
	return func(c *config) { c.frame = f }
}

// WithStrengthRange sets the range caller strengths are clamped to.
func WithStrengthRange(minStrength, maxStrength float64) Option {
	return func(c *config) { c.minStrength, c.maxStrength = minStrength, maxStrength }
}

// WithDefaultStrength sets the strength used for NaN input.
func WithDefaultStrength(s float64) Option {
	return func(c *config) { c.defStrength = s }
}

// WithMinConfidence ignores pitch estimates weaker than s.
func WithMinConfidence(s float64) Option {
	return func(c *config) { c.minConfidence = s }
}

// WithLowpass sets the output low-pass cutoff and Butterworth order. The
// cutoff is still limited to 0.8 * Nyquist.
func WithLowpass(cutoffHz float64, order int) Option {
	return func(c *config) {
		c.lowpass = true
		c.cutoffHz = cutoffHz
		c.order = order
	}
}

// WithoutLowpass disables output filtering.
func WithoutLowpass() Option {
	return func(c *config) { c.lowpass = false }
}

// WithWorkers bounds per-run parallelism. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		c.workers = n
	}
}

// WithRecorder reports stage durations and frame counts to r.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger used for per-run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Pipeline detects, corrects and resynthesizes pitch. It holds no per-run
// state and is safe for concurrent use.
type Pipeline struct {
	cfg       config
	corrector Corrector
	shifter   *Shifter
}

// NewPipeline validates opts and returns a pipeline.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.frame.Validate(); err != nil {
		return nil, err
	}

	if cfg.minStrength > cfg.maxStrength || math.IsNaN(cfg.minStrength) || math.IsNaN(cfg.maxStrength) {
		return nil, fmt.Errorf("autotune: invalid strength range [%v, %v]", cfg.minStrength, cfg.maxStrength)
	}

	if cfg.lowpass && (cfg.cutoffHz <= 0 || cfg.order <= 0) {
		return nil, fmt.Errorf("autotune: invalid low-pass %v Hz order %d", cfg.cutoffHz, cfg.order)
	}

	windows := window.NewCache()
	if cfg.detector == nil {
		cfg.detector = NewAutocorrDetector(WithWindowCache(windows))
	}

	if cfg.table == nil {
		cfg.table = NewTable()
	}

	return &Pipeline{
		cfg:       cfg,
		corrector: Corrector{MinConfidence: cfg.minConfidence},
		shifter:   NewShifter(cfg.frame, cfg.workers, windows),
	}, nil
}

// FrameConfig returns the analysis framing.
func (p *Pipeline) FrameConfig() FrameConfig { return p.cfg.frame }

// Strength resolves a caller strength against the pipeline's policy.
func (p *Pipeline) Strength(s float64) float64 {
	if math.IsNaN(s) {
		s = p.cfg.defStrength
	}

	return core.Clamp(s, p.cfg.minStrength, p.cfg.maxStrength)
}

// Analyze returns the per-frame pitch track of sig and the number of frames
// whose analysis failed.
func (p *Pipeline) Analyze(ctx context.Context, sig Signal) ([]PitchEstimate, int, error) {
	if err := sig.Validate(); err != nil {
		return nil, 0, err
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "autotune.Analyze")
	defer span.End()

	est, degraded := DetectFrames(p.cfg.detector, sig.Samples, sig.SampleRate, p.cfg.frame, p.cfg.workers)
	span.SetAttributes(attribute.Int("frames", len(est)), attribute.Int("frames.degraded", degraded))

	return est, degraded, nil
}

// Run pitch-corrects sig. The input is not modified. Input problems return
// an error wrapping [ErrInvalidInput]; failures after validation return a
// [*ProcessingError]. Per-frame analysis or rendering problems never fail a
// run and are counted in the report.
func (p *Pipeline) Run(ctx context.Context, sig Signal, params Params) (Signal, Report, error) {
	if err := sig.Validate(); err != nil {
		return Signal{}, Report{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "autotune.Run")
	defer span.End()

	strength := p.Strength(params.Strength)
	report := Report{Strength: strength, Stages: make(map[string]float64, 5)}

	var (
		scale Scale
		err   error
	)
	fail := func(stage string, err error) (Signal, Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage+" failed")
		return Signal{}, Report{}, &ProcessingError{Stage: stage, Err: err}
	}

	if cerr := p.stage(ctx, &report, StageScale, func() {
		scale, err = p.cfg.table.Resolve(params.ScaleType, params.RootNote)
	}); cerr != nil {
		return fail(StageScale, cerr)
	}
	if err != nil {
		return fail(StageScale, err)
	}
	report.ScaleType = scale.Type.String()
	report.RootNote = scale.RootName()

	var estimates []PitchEstimate
	if err := p.stage(ctx, &report, StageDetect, func() {
		estimates, report.DegradedFrames = DetectFrames(
			p.cfg.detector, sig.Samples, sig.SampleRate, p.cfg.frame, p.cfg.workers)
	}); err != nil {
		return fail(StageDetect, err)
	}
	report.Frames = len(estimates)

	plan := make([]FrameShift, len(estimates))
	if err := p.stage(ctx, &report, StagePlan, func() {
		for i, est := range estimates {
			plan[i] = p.corrector.Plan(est, scale, strength)
		}
	}); err != nil {
		return fail(StagePlan, err)
	}

	var (
		out   []float64
		stats ShiftStats
	)
	if err := p.stage(ctx, &report, StageShift, func() {
		out, stats = p.shifter.Shift(sig.Samples, plan, sig.SampleRate)
	}); err != nil {
		return fail(StageShift, err)
	}
	report.ShiftedFrames = stats.Shifted
	report.FallbackFrames = stats.Fallback

	if err := p.stage(ctx, &report, StagePost, func() {
		report.OutputGain = NormalizePeak(out)
		if !p.cfg.lowpass {
			return
		}

		cutoff := LowpassCutoff(p.cfg.cutoffHz, sig.SampleRate)

		var ok bool
		if out, ok = Lowpass(out, cutoff, p.cfg.order, sig.SampleRate); !ok {
			p.cfg.logger.DebugContext(ctx, "low-pass skipped",
				"cutoff_hz", cutoff, "sample_rate", sig.SampleRate)
		}
	}); err != nil {
		return fail(StagePost, err)
	}

	summarize(&report, estimates, plan)
	p.record(ctx, report)

	span.SetAttributes(
		attribute.String("scale", report.ScaleType),
		attribute.String("root", report.RootNote),
		attribute.Float64("strength", strength),
		attribute.Int("frames", report.Frames),
		attribute.Int("frames.shifted", report.ShiftedFrames),
	)

	p.cfg.logger.DebugContext(ctx, "autotune run complete",
		"frames", report.Frames,
		"voiced", report.VoicedFrames,
		"shifted", report.ShiftedFrames,
		"degraded", report.DegradedFrames,
		"median_hz", report.MedianPitchHz,
	)

	return Signal{Samples: out, SampleRate: sig.SampleRate}, report, nil
}

// stage runs fn unless ctx is already done. Stages themselves are not
// interruptible.
func (p *Pipeline) stage(ctx context.Context, report *Report, name string, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "autotune."+name)
	start := time.Now()

	fn()

	d := time.Since(start)
	span.End()

	report.Stages[name] = d.Seconds()
	p.cfg.recorder.RecordStage(ctx, name, d)
	return nil
}

func (p *Pipeline) record(ctx context.Context, r Report) {
	rec := p.cfg.recorder
	rec.RecordFrames(ctx, FramesVoiced, r.VoicedFrames)
	rec.RecordFrames(ctx, FramesUnvoiced, r.Frames-r.VoicedFrames)
	rec.RecordFrames(ctx, FramesShifted, r.ShiftedFrames)
	rec.RecordFrames(ctx, FramesDegraded, r.DegradedFrames)
}

func summarize(r *Report, estimates []PitchEstimate, plan []FrameShift) {
	voiced := make([]float64, 0, len(estimates))
	for _, e := range estimates {
		if e.Voiced() {
			voiced = append(voiced, e.Frequency)
		}
	}
	r.VoicedFrames = len(voiced)

	if len(voiced) > 0 {
		slices.Sort(voiced)
		mid := len(voiced) / 2
		if len(voiced)%2 == 1 {
			r.MedianPitchHz = voiced[mid]
		} else {
			r.MedianPitchHz = 0.5 * (voiced[mid-1] + voiced[mid])
		}
	}

	var sum float64
	var n int
	for _, fs := range plan {
		if fs.Active() {
			sum += math.Abs(fs.Semitones)
			n++
		}
	}
	if n > 0 {
		r.MeanAbsShift = sum / float64(n)
	}
}
