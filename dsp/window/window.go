package window

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// ErrLengthMismatch is returned by [Multiply] when the buffer and the
// window differ in length.
var ErrLengthMismatch = errors.New("window: buffer and window lengths differ")

// Type selects a window shape.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Generalised cosine terms a0, a1, ... of each shape:
// w(x) = a0 + a1*cos(2*pi*x) + a2*cos(4*pi*x).
var cosineTerms = map[Type][]float64{
	TypeHann:     {0.5, -0.5},
	TypeHamming:  {0.54, -0.46},
	TypeBlackman: {0.42, -0.5, 0.08},
}

func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithPeriodic drops the repeated end point so that the window spans exactly
// one period of its cosine terms.
func WithPeriodic() Option {
	return func(cfg *config) { cfg.periodic = true }
}

// Generate returns a window of n coefficients. n <= 0 yields nil, n == 1
// yields [1]. Unknown types are rectangular.
func Generate(t Type, n int, opts ...Option) []float64 {
	if n <= 0 {
		return nil
	}

	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}

	span := float64(n - 1)
	if newConfig(opts).periodic {
		span = float64(n)
	}

	terms, ok := cosineTerms[t]
	for i := range w {
		if !ok {
			w[i] = 1
			continue
		}
		x := 2 * math.Pi * float64(i) / span
		for k, a := range terms {
			w[i] += a * math.Cos(float64(k)*x)
		}
	}

	return w
}

// Multiply scales buf in place by win.
func Multiply(buf, win []float64) error {
	if len(buf) != len(win) {
		return ErrLengthMismatch
	}
	if len(buf) > 0 {
		vecmath.MulBlockInPlace(buf, win)
	}
	return nil
}
