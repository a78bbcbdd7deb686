package autotune

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-autotune/dsp/interp"
	"github.com/cwbudde/algo-autotune/dsp/resample"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

// Samples whose accumulated window weight is at or below weightFloor are
// taken from the input.
const weightFloor = 1e-8

// ShiftStats counts how each frame was rendered.
type ShiftStats struct {
	Shifted     int
	Passthrough int
	Fallback    int
}

type frameKind uint8

const (
	framePassthrough frameKind = iota
	frameShifted
	frameFallback
)

// Shifter resynthesizes a signal with per-frame pitch shifts by weighted
// overlap-add.
type Shifter struct {
	frame   FrameConfig
	workers int
	windows *window.Cache
}

// NewShifter returns a shifter for the given framing. workers bounds the
// number of frames rendered concurrently; values <= 1 render sequentially.
func NewShifter(frame FrameConfig, workers int, windows *window.Cache) *Shifter {
	if windows == nil {
		windows = window.NewCache()
	}

	return &Shifter{frame: frame, workers: max(workers, 1), windows: windows}
}

// Shift applies plan[i] to frame i of samples and returns a new buffer of
// len(samples) samples. Frames not covered by plan, and samples outside
// every frame, are copied from the input.
func (s *Shifter) Shift(samples []float64, plan []FrameShift, sampleRate int) ([]float64, ShiftStats) {
	n := len(samples)
	out := make([]float64, n)
	weight := make([]float64, n)

	frames := min(len(plan), s.frame.Count(n))
	reads := s.readPositions(plan[:frames], sampleRate)
	kinds := make([]frameKind, frames)

	// Frames of one stride group are at least a frame length apart, so
	// they write disjoint spans and may render concurrently.
	groups := (s.frame.Length + s.frame.Hop - 1) / s.frame.Hop
	for g := range groups {
		var eg errgroup.Group
		eg.SetLimit(s.workers)

		for i := g; i < frames; i += groups {
			eg.Go(func() error {
				kinds[i] = s.renderFrame(samples, out, weight, i, plan[i], reads[i])
				return nil
			})
		}

		_ = eg.Wait()
	}

	for i := range out {
		if weight[i] > weightFloor {
			out[i] /= weight[i]
		} else {
			out[i] = samples[i]
		}
	}

	var stats ShiftStats
	for _, k := range kinds {
		switch k {
		case frameShifted:
			stats.Shifted++
		case frameFallback:
			stats.Fallback++
		default:
			stats.Passthrough++
		}
	}

	return out, stats
}

// readPositions places the read start of each shifted frame. A frame that
// follows a shifted frame continues where the previous one would have read
// after one hop at its ratio, moved by whole source periods to stay close to
// its nominal position. Overlapping frames then carry matching phase.
func (s *Shifter) readPositions(plan []FrameShift, sampleRate int) []float64 {
	pos := make([]float64, len(plan))
	hop := float64(s.frame.Hop)

	for i, fs := range plan {
		nominal := float64(s.frame.Start(i))
		pos[i] = nominal

		if i == 0 || !fs.Active() || !plan[i-1].Active() || fs.SourceHz <= 0 {
			continue
		}

		next := pos[i-1] + hop*plan[i-1].Ratio()
		period := float64(sampleRate) / fs.SourceHz
		k := math.Round((nominal - next) / period)
		pos[i] = max(next+k*period, 0)
	}

	return pos
}

func (s *Shifter) renderFrame(x, out, weight []float64, i int, fs FrameShift, read float64) frameKind {
	start := s.frame.Start(i)
	length := s.frame.Length

	if fs.Active() {
		if frame, ok := s.shiftFrame(x, read, fs.Ratio()); ok {
			win := s.windows.Get(window.TypeHann, length)
			for j, v := range frame {
				out[start+j] += v
				weight[start+j] += win[j] * win[j]
			}
			return frameShifted
		}
	}

	for j := range length {
		out[start+j] += x[start+j]
		weight[start+j]++
	}

	if fs.Active() {
		return frameFallback
	}

	return framePassthrough
}

// shiftFrame reads round(length*ratio) samples from read, windows them,
// resamples to round(len/ratio) samples and fits the result to one frame.
func (s *Shifter) shiftFrame(x []float64, read, ratio float64) ([]float64, bool) {
	length := s.frame.Length

	span := int(math.Round(float64(length) * ratio))
	if avail := float64(len(x)-1) - read; avail < float64(span-1) {
		span = int(avail) + 1
	}
	if span < 2 {
		return nil, false
	}

	buf := make([]float64, span)
	for j := range buf {
		buf[j] = interp.At(x, read+float64(j), interp.ModeHermite)
	}
	if err := window.Multiply(buf, s.windows.Get(window.TypeHann, span)); err != nil {
		return nil, false
	}

	resampled, err := resample.ToLength(buf, int(math.Round(float64(span)/ratio)))
	if err != nil {
		return nil, false
	}

	frame := make([]float64, length)
	copy(frame, resampled)
	if err := window.Multiply(frame, s.windows.Get(window.TypeHann, length)); err != nil {
		return nil, false
	}

	return frame, true
}
