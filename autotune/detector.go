package autotune

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-autotune/dsp/conv"
	"github.com/cwbudde/algo-autotune/dsp/core"
	"github.com/cwbudde/algo-autotune/dsp/peaks"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

// Default detection parameters.
const (
	DefaultMinHz         = 80.0
	DefaultMaxHz         = 800.0
	DefaultPeakThreshold = 0.1
)

// Frames with zero-lag energy at or below silenceFloor are unvoiced.
const silenceFloor = 1e-10

// PitchEstimate is the detected fundamental of one frame. A zero Frequency
// marks an unvoiced frame.
type PitchEstimate struct {
	Frequency float64 `json:"frequency_hz"`
	Strength  float64 `json:"strength"`
}

// Voiced reports whether a pitch was found.
func (e PitchEstimate) Voiced() bool { return e.Frequency > 0 }

// Detector estimates the fundamental frequency of a single frame.
// Implementations must be safe for concurrent use.
type Detector interface {
	Estimate(frame []float64, sampleRate int) (PitchEstimate, error)
}

// FrameConfig sets the analysis frame length and hop in samples.
type FrameConfig struct {
	Length int
	Hop    int
}

// DefaultFrameConfig returns 2048-sample frames with a 512-sample hop.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{Length: 2048, Hop: 512}
}

// Validate reports an unusable configuration.
func (c FrameConfig) Validate() error {
	switch {
	case c.Length < 4:
		return fmt.Errorf("%w: frame length %d < 4", ErrInvalidFrameConfig, c.Length)
	case c.Hop <= 0:
		return fmt.Errorf("%w: hop %d <= 0", ErrInvalidFrameConfig, c.Hop)
	case c.Hop > c.Length:
		return fmt.Errorf("%w: hop %d exceeds frame length %d", ErrInvalidFrameConfig, c.Hop, c.Length)
	}

	return nil
}

// Count returns floor((n-Length)/Hop), the number of analysed frames in a
// signal of n samples, or 0 when the signal is shorter than one frame.
func (c FrameConfig) Count(n int) int {
	if c.Hop <= 0 || n < c.Length {
		return 0
	}

	return (n - c.Length) / c.Hop
}

// Start returns the first sample of frame i.
func (c FrameConfig) Start(i int) int { return i * c.Hop }

// DetectFrames runs d over every frame of samples and returns one estimate
// per frame plus the number of frames whose analysis failed. Failed frames
// are reported as unvoiced. Up to workers frames are analysed concurrently;
// workers <= 0 analyses sequentially.
func DetectFrames(d Detector, samples []float64, sampleRate int, cfg FrameConfig, workers int) ([]PitchEstimate, int) {
	n := cfg.Count(len(samples))
	out := make([]PitchEstimate, n)
	if n == 0 {
		return out, 0
	}

	failed := make([]bool, n)
	analyse := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			start := cfg.Start(i)

			est, err := d.Estimate(samples[start:start+cfg.Length], sampleRate)
			if err != nil {
				failed[i] = true
				continue
			}
			out[i] = est
		}
	}

	workers = max(workers, 1)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			analyse(lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	var degraded int
	for _, f := range failed {
		if f {
			degraded++
		}
	}

	return out, degraded
}

// DetectorOption configures the built-in detectors.
type DetectorOption func(*detectorConfig)

type detectorConfig struct {
	minHz     float64
	maxHz     float64
	threshold float64
	windows   *window.Cache
}

func defaultDetectorConfig() detectorConfig {
	return detectorConfig{
		minHz:     DefaultMinHz,
		maxHz:     DefaultMaxHz,
		threshold: DefaultPeakThreshold,
	}
}

func applyDetectorOptions(opts []DetectorOption) detectorConfig {
	cfg := defaultDetectorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.windows == nil {
		cfg.windows = window.NewCache()
	}

	return cfg
}

// WithFrequencyRange limits detection to [minHz, maxHz]. Invalid ranges are
// ignored.
func WithFrequencyRange(minHz, maxHz float64) DetectorOption {
	return func(c *detectorConfig) {
		if minHz > 0 && maxHz > minHz {
			c.minHz, c.maxHz = minHz, maxHz
		}
	}
}

// WithPeakThreshold sets the minimum peak height as a fraction of the
// frame's zero-lag energy.
func WithPeakThreshold(frac float64) DetectorOption {
	return func(c *detectorConfig) {
		c.threshold = core.Clamp(frac, 0, 1)
	}
}

// WithWindowCache shares a window cache between detectors.
func WithWindowCache(wc *window.Cache) DetectorOption {
	return func(c *detectorConfig) { c.windows = wc }
}

// AutocorrDetector takes the first strong autocorrelation peak as the
// period. A period outside the configured frequency range makes the frame
// unvoiced.
//
// The autocorrelation of the Hann-windowed frame is divided by the window's
// own autocorrelation before peak picking, which removes the envelope that
// otherwise biases peaks towards shorter lags.
type AutocorrDetector struct {
	cfg detectorConfig

	mu       sync.Mutex
	envelope map[int][]float64
}

// NewAutocorrDetector returns an autocorrelation detector.
func NewAutocorrDetector(opts ...DetectorOption) *AutocorrDetector {
	return &AutocorrDetector{
		cfg:      applyDetectorOptions(opts),
		envelope: make(map[int][]float64),
	}
}

// Range returns the detectable frequency range.
func (d *AutocorrDetector) Range() (minHz, maxHz float64) {
	return d.cfg.minHz, d.cfg.maxHz
}

// Estimate implements [Detector].
func (d *AutocorrDetector) Estimate(frame []float64, sampleRate int) (PitchEstimate, error) {
	if err := checkFrame(frame, sampleRate); err != nil {
		return PitchEstimate{}, err
	}

	win := d.cfg.windows.Get(window.TypeHann, len(frame))

	buf := make([]float64, len(frame))
	copy(buf, frame)
	if err := window.Multiply(buf, win); err != nil {
		return PitchEstimate{}, err
	}

	acf, err := conv.AutoCorrelate(buf)
	if err != nil {
		return PitchEstimate{}, err
	}

	zero := acf[0]
	if zero <= silenceFloor {
		return PitchEstimate{}, nil
	}

	sr := float64(sampleRate)
	maxLag := sr / d.cfg.minHz

	// Lags past maxLag are never accepted; the extra samples let the
	// last candidate qualify as a local maximum.
	limit := min(int(math.Ceil(maxLag))+2, len(acf))
	acf = acf[:limit]

	env, err := d.windowEnvelope(win)
	if err != nil {
		return PitchEstimate{}, err
	}
	for i := range acf {
		if env[i] > 1e-3 {
			acf[i] /= env[i]
		} else {
			acf[i] = 0
		}
	}

	// Only the first peak is a candidate. A tone above maxHz peaks before
	// minLag and must not fall through to its sub-octave.
	cand := peaks.Find(acf, peaks.WithMinHeight(d.cfg.threshold*zero), peaks.WithLimit(1))
	if len(cand) == 0 {
		return PitchEstimate{}, nil
	}

	offset, height := peaks.Parabolic(acf, cand[0])

	lag := float64(cand[0]) + offset
	if lag <= 0 || lag > maxLag {
		return PitchEstimate{}, nil
	}

	freq := sr / lag
	if freq < d.cfg.minHz || freq > d.cfg.maxHz {
		return PitchEstimate{}, nil
	}

	return PitchEstimate{Frequency: freq, Strength: core.Clamp(height/zero, 0, 1)}, nil
}

// windowEnvelope returns the window's autocorrelation normalised to 1 at
// lag zero, memoized per length.
func (d *AutocorrDetector) windowEnvelope(win []float64) ([]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if env, ok := d.envelope[len(win)]; ok {
		return env, nil
	}

	env, err := conv.AutoCorrelate(win)
	if err != nil {
		return nil, err
	}
	if !conv.Normalize(env) {
		return nil, fmt.Errorf("autotune: degenerate analysis window of length %d", len(win))
	}

	d.envelope[len(win)] = env

	return env, nil
}

func checkFrame(frame []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	if len(frame) < 4 {
		return fmt.Errorf("%w: %d samples", ErrFrameTooShort, len(frame))
	}

	if !core.IsFinite(frame) {
		return ErrNonFiniteFrame
	}

	return nil
}

// Detector names accepted by [NewDetector].
const (
	DetectorAutocorr = "autocorr"
	DetectorSpectral = "spectral"
	DetectorFallback = "fallback"
)

// NewDetector builds a detector by name. The fallback detector tries
// autocorrelation first and the spectral detector on failure.
func NewDetector(name string, opts ...DetectorOption) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DetectorAutocorr:
		return NewAutocorrDetector(opts...), nil
	case DetectorSpectral:
		return NewSpectralDetector(opts...), nil
	case DetectorFallback:
		return &FallbackDetector{
			Primary:   NewAutocorrDetector(opts...),
			Secondary: NewSpectralDetector(opts...),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDetector, name)
	}
}
