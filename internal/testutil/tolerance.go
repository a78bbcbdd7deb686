package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t unless got and want have the same length
// and every pair differs by at most tol.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, len(want) = %d", len(got), len(want))
	}
	for i, g := range got {
		if d := math.Abs(g - want[i]); d > tol {
			t.Fatalf("[%d] got %v, want %v (|diff| %g > %g)", i, g, want[i], d, tol)
		}
	}
}

// RequireFinite fails t at the first NaN or infinity in x.
func RequireFinite(t *testing.T, x []float64) {
	t.Helper()

	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("[%d] = %v, want a finite sample", i, v)
		}
	}
}

// RequireSilent fails t if any |x[i]| exceeds tol.
func RequireSilent(t *testing.T, x []float64, tol float64) {
	t.Helper()

	for i, v := range x {
		if math.Abs(v) > tol {
			t.Fatalf("[%d] = %v, want silence within %g", i, v, tol)
		}
	}
}

// RelativeRMSError returns rms(got-want)/rms(want), 0 when both are silent
// and +Inf when only want is. Mismatched lengths compare the common prefix.
func RelativeRMSError(got, want []float64) float64 {
	n := min(len(got), len(want))

	var diff, ref float64
	for i := range n {
		d := got[i] - want[i]
		diff += d * d
		ref += want[i] * want[i]
	}

	switch {
	case ref > 0:
		return math.Sqrt(diff / ref)
	case diff == 0:
		return 0
	default:
		return math.Inf(1)
	}
}
