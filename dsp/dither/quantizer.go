package dither

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// ErrInvalidBitDepth is returned for depths outside [2, 32].
var ErrInvalidBitDepth = errors.New("dither: bit depth must be in [2, 32]")

// Shaping selects the noise-shaping filter.
type Shaping int

const (
	// ShapingNone leaves the quantization error white.
	ShapingNone Shaping = iota
	// ShapingErrorFeedback is first-order error feedback with a zero at DC.
	ShapingErrorFeedback
	// ShapingFWeighted is a 9th-order filter following the F-weighting
	// curve, tuned for 44.1 kHz.
	ShapingFWeighted
)

func (s Shaping) String() string {
	switch s {
	case ShapingNone:
		return "none"
	case ShapingErrorFeedback:
		return "error-feedback"
	case ShapingFWeighted:
		return "f-weighted"
	default:
		return fmt.Sprintf("Shaping(%d)", int(s))
	}
}

func (s Shaping) coefficients() []float64 {
	switch s {
	case ShapingErrorFeedback:
		return []float64{1}
	case ShapingFWeighted:
		return []float64{
			2.412, -3.370, 3.937, -4.174, 3.353,
			-2.205, 1.281, -0.569, 0.0847,
		}
	default:
		return nil
	}
}

// maxFeedback bounds the recorded error so that clipped runs cannot drive
// the shaping filter unstable.
const maxFeedback = 2.0

// Option configures a [Quantizer].
type Option func(*Quantizer)

// WithShaping selects the noise-shaping filter. The default is
// [ShapingFWeighted].
func WithShaping(s Shaping) Option {
	return func(q *Quantizer) { q.coeffs = s.coefficients() }
}

// WithAmplitude scales the TPDF dither in LSB. Zero disables dither.
func WithAmplitude(lsb float64) Option {
	return func(q *Quantizer) { q.amp = math.Max(lsb, 0) }
}

// WithSeed makes the dither sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(q *Quantizer) { q.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// Quantizer converts samples in [-1, 1] to signed integers. Full scale maps
// to 2^(bits-1); results are clipped to the integer range. A Quantizer keeps
// error history and must not be shared between goroutines.
type Quantizer struct {
	full   float64
	lo, hi float64
	amp    float64
	coeffs []float64
	hist   []float64
	pos    int
	rng    *rand.Rand
}

// NewQuantizer returns a quantizer for bitDepth with 1 LSB TPDF dither and
// F-weighted shaping unless opts say otherwise.
func NewQuantizer(bitDepth int, opts ...Option) (*Quantizer, error) {
	if bitDepth < 2 || bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBitDepth, bitDepth)
	}

	full := math.Exp2(float64(bitDepth - 1))
	q := &Quantizer{
		full:   full,
		lo:     -full,
		hi:     full - 1,
		amp:    1,
		coeffs: ShapingFWeighted.coefficients(),
	}
	for _, opt := range opts {
		opt(q)
	}

	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if len(q.coeffs) > 0 {
		q.hist = make([]float64, len(q.coeffs))
	}

	return q, nil
}

// Process quantizes one sample.
func (q *Quantizer) Process(x float64) int {
	shaped := x * q.full

	order := len(q.coeffs)
	for i, c := range q.coeffs {
		shaped -= c * q.hist[(q.pos-i+order)%order]
	}

	noise := 0.0
	if q.amp > 0 {
		noise = q.amp * (q.rng.Float64() - q.rng.Float64())
	}

	r := math.Max(q.lo, math.Min(q.hi, math.Round(shaped+noise)))

	if order > 0 {
		q.pos = (q.pos + 1) % order
		q.hist[q.pos] = math.Max(-maxFeedback, math.Min(maxFeedback, r-shaped))
	}

	return int(r)
}

// Quantize processes a block and returns the integer samples.
func (q *Quantizer) Quantize(samples []float64) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		out[i] = q.Process(v)
	}
	return out
}

// Reset clears the error history.
func (q *Quantizer) Reset() {
	clear(q.hist)
	q.pos = 0
}
