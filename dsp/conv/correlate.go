package conv

import (
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-autotune/dsp/core"
)

// planCache hands out FFT plans per size. Plans carry scratch state, so
// each goroutine checks one out for the duration of a transform.
var planCache = struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}{pools: make(map[int]*sync.Pool)}

func acquirePlan(size int) (*algofft.Plan[complex128], error) {
	planCache.mu.Lock()
	pool, ok := planCache.pools[size]
	if !ok {
		pool = &sync.Pool{}
		planCache.pools[size] = pool
	}
	planCache.mu.Unlock()

	if p, ok := pool.Get().(*algofft.Plan[complex128]); ok {
		return p, nil
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	return plan, nil
}

func releasePlan(size int, plan *algofft.Plan[complex128]) {
	planCache.mu.Lock()
	pool := planCache.pools[size]
	planCache.mu.Unlock()

	pool.Put(plan)
}

// AutoCorrelate returns the non-negative-lag half of the full linear
// auto-correlation of a: out[k] = sum_n a[n]*a[n+k] for k in [0, len(a)).
//
// It is computed as IFFT(|FFT(a)|^2) on a zero-padded power-of-two grid
// large enough to avoid circular wrap-around.
func AutoCorrelate(a []float64) ([]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, ErrEmptyInput
	}

	fftSize := core.NextPowerOf2(2*n - 1)

	plan, err := acquirePlan(fftSize)
	if err != nil {
		return nil, err
	}
	defer releasePlan(fftSize, plan)

	padded := make([]complex128, fftSize)
	for i, v := range a {
		padded[i] = complex(v, 0)
	}

	freq := make([]complex128, fftSize)
	if err := plan.Forward(freq, padded); err != nil {
		return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	for i, c := range freq {
		re, im := real(c), imag(c)
		freq[i] = complex(re*re+im*im, 0)
	}

	if err := plan.Inverse(padded, freq); err != nil {
		return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = real(padded[i])
	}

	return out, nil
}

// AutoCorrelateDirect computes the same result as [AutoCorrelate] in
// O(N^2) time. It serves as a reference for short inputs.
func AutoCorrelateDirect(a []float64) ([]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, ErrEmptyInput
	}

	out := make([]float64, n)
	for k := range out {
		var sum float64
		for i := 0; i+k < n; i++ {
			sum += a[i] * a[i+k]
		}
		out[k] = sum
	}

	return out, nil
}

// Normalize divides acf by its zero-lag value in place. An all-zero
// auto-correlation is left untouched and reported as false.
func Normalize(acf []float64) bool {
	if len(acf) == 0 || acf[0] <= 0 {
		return false
	}

	inv := 1 / acf[0]
	for i := range acf {
		acf[i] *= inv
	}

	return true
}
