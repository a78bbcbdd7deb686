package resample

import "errors"

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
	// ErrInvalidLength indicates a non-positive target length.
	ErrInvalidLength = errors.New("resample: invalid target length")
)

// Filter describes the anti-aliasing low-pass of a [Converter].
type Filter struct {
	// TapsPerPhase is the length of each polyphase branch.
	TapsPerPhase int
	// Cutoff scales the band edge below min(in, out)/2.
	Cutoff float64
	// Beta is the Kaiser window shape parameter.
	Beta float64
}

// DefaultFilter gives about 80 dB of stopband attenuation, enough for
// 24-bit results of speech and singing material.
var DefaultFilter = Filter{TapsPerPhase: 32, Cutoff: 0.92, Beta: 7.5}

type config struct {
	filter Filter
	maxUp  int
}

// Option configures a [Converter].
type Option func(*config)

// WithFilter replaces [DefaultFilter].
func WithFilter(f Filter) Option {
	return func(cfg *config) { cfg.filter = f }
}

// WithMaxUp caps the interpolation factor. Rate pairs whose reduced ratio
// exceeds it are approximated by a continued fraction.
func WithMaxUp(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxUp = n
		}
	}
}

// Converter performs one-shot rational sample-rate conversion with a
// polyphase Kaiser-windowed sinc FIR. The filter's group delay is removed so
// output sample j lines up with input time j*down/up.
type Converter struct {
	up, down int
	phases   [][]float64
	delay    int
}

// NewConverter designs a converter from inRate to outRate.
func NewConverter(inRate, outRate int, opts ...Option) (*Converter, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, ErrInvalidRate
	}

	cfg := config{filter: DefaultFilter, maxUp: 1024}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := gcd(inRate, outRate)
	up, down := outRate/g, inRate/g

	if up > cfg.maxUp {
		up, down = approximateRatio(float64(outRate)/float64(inRate), cfg.maxUp)
	}

	return newRational(up, down, cfg)
}

func newRational(up, down int, cfg config) (*Converter, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	taps, err := designLowpass(up, down, cfg.filter)
	if err != nil {
		return nil, err
	}

	return &Converter{
		up:     up,
		down:   down,
		phases: splitPhases(taps, up),
		delay:  (len(taps) - 1) / 2,
	}, nil
}

// Ratio returns the reduced up/down conversion factors.
func (c *Converter) Ratio() (up, down int) {
	return c.up, c.down
}

// OutputLen returns the number of samples Convert produces for n inputs.
func (c *Converter) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}

	return (n*c.up + c.down - 1) / c.down
}

// Convert resamples input. Identity ratios return a copy.
func (c *Converter) Convert(input []float64) []float64 {
	if c.up == c.down {
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	out := make([]float64, c.OutputLen(len(input)))

	for j := range out {
		t := j*c.down + c.delay
		p := t % c.up
		base := t / c.up

		var y float64
		for q, h := range c.phases[p] {
			idx := base - q
			if idx < 0 {
				break
			}
			if idx < len(input) {
				y += h * input[idx]
			}
		}

		out[j] = y
	}

	return out
}

// ConvertRate is a one-shot helper around [NewConverter].
func ConvertRate(input []float64, inRate, outRate int, opts ...Option) ([]float64, error) {
	if inRate == outRate && inRate > 0 {
		out := make([]float64, len(input))
		copy(out, input)
		return out, nil
	}

	c, err := NewConverter(inRate, outRate, opts...)
	if err != nil {
		return nil, err
	}

	return c.Convert(input), nil
}
