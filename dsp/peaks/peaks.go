package peaks

import "math"

// Option configures [Find].
type Option func(*config)

type config struct {
	minHeight float64
	hasHeight bool
	limit     int
}

// WithMinHeight keeps only peaks whose value is >= h.
func WithMinHeight(h float64) Option {
	return func(cfg *config) {
		cfg.minHeight = h
		cfg.hasHeight = true
	}
}

// WithLimit stops after the first n peaks (in index order). n <= 0 means no
// limit.
func WithLimit(n int) Option {
	return func(cfg *config) { cfg.limit = n }
}

// Find returns the indices of local maxima of x in ascending order.
//
// A peak is a sample strictly greater than its left neighbour and strictly
// greater than the first differing sample to its right. Flat plateaus report
// their midpoint (rounded down). The first and last samples are never peaks.
func Find(x []float64, opts ...Option) []int {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	var out []int

	n := len(x)
	i := 1
	for i < n-1 {
		if !(x[i-1] < x[i]) || math.IsNaN(x[i]) {
			i++
			continue
		}

		ahead := i + 1
		for ahead < n-1 && x[ahead] == x[i] {
			ahead++
		}

		if x[ahead] < x[i] {
			mid := (i + ahead - 1) / 2
			if !cfg.hasHeight || x[mid] >= cfg.minHeight {
				out = append(out, mid)
				if cfg.limit > 0 && len(out) >= cfg.limit {
					return out
				}
			}
			i = ahead
			continue
		}

		i++
	}

	return out
}

// Parabolic fits a parabola through x[i-1], x[i], x[i+1] and returns the
// vertex offset in [-0.5, 0.5] relative to i together with the interpolated
// height. Edge indices and degenerate curvature return (0, x[i]).
func Parabolic(x []float64, i int) (offset, height float64) {
	if i <= 0 || i >= len(x)-1 {
		if i >= 0 && i < len(x) {
			return 0, x[i]
		}
		return 0, 0
	}

	ym1, y0, yp1 := x[i-1], x[i], x[i+1]

	den := ym1 - 2*y0 + yp1
	if den == 0 {
		return 0, y0
	}

	offset = 0.5 * (ym1 - yp1) / den
	if offset > 0.5 || offset < -0.5 {
		return 0, y0
	}

	height = y0 - 0.25*(ym1-yp1)*offset

	return offset, height
}

// ArgMax returns the index and value of the largest element in x[lo:hi].
// It returns -1 for an empty range.
func ArgMax(x []float64, lo, hi int) (int, float64) {
	lo = max(lo, 0)
	hi = min(hi, len(x))

	best := -1
	bestVal := math.Inf(-1)
	for i := lo; i < hi; i++ {
		if x[i] > bestVal {
			best, bestVal = i, x[i]
		}
	}

	if best < 0 {
		return -1, 0
	}

	return best, bestVal
}
