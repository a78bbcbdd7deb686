package audiofile

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/dsp/dither"
)

// DefaultBitDepth is the PCM depth of encoded results.
const DefaultBitDepth = 24

// EncodeOption configures WAV encoding.
type EncodeOption func(*encodeConfig)

type encodeConfig struct {
	dither bool
	seed   *uint64
}

// WithDither quantizes with TPDF dither and F-weighted noise shaping
// instead of plain rounding.
func WithDither() EncodeOption {
	return func(c *encodeConfig) { c.dither = true }
}

// WithDitherSeed enables dither with a reproducible noise sequence.
func WithDitherSeed(seed uint64) EncodeOption {
	return func(c *encodeConfig) {
		c.dither = true
		c.seed = &seed
	}
}

// EncodeWAV writes sig as mono PCM WAV. Samples are clipped to [-1, 1].
func EncodeWAV(w io.WriteSeeker, sig autotune.Signal, bitDepth int, opts ...EncodeOption) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidBitDepth, bitDepth)
	}

	if sig.SampleRate <= 0 {
		return autotune.ErrInvalidSampleRate
	}

	var cfg encodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := quantize(sig.Samples, bitDepth, cfg)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(w, sig.SampleRate, bitDepth, 1, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		SourceBitDepth: bitDepth,
		Data:           data,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: write wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: finalize wav: %w", err)
	}

	return nil
}

// SaveWAV encodes sig to a new file at path.
func SaveWAV(path string, sig autotune.Signal, bitDepth int, opts ...EncodeOption) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiofile: create %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("audiofile: close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return EncodeWAV(f, sig, bitDepth, opts...)
}

func quantize(samples []float64, bitDepth int, cfg encodeConfig) ([]int, error) {
	if !cfg.dither {
		return Quantize(samples, bitDepth), nil
	}

	var opts []dither.Option
	if cfg.seed != nil {
		opts = append(opts, dither.WithSeed(*cfg.seed))
	}

	q, err := dither.NewQuantizer(bitDepth, opts...)
	if err != nil {
		return nil, fmt.Errorf("audiofile: %w", err)
	}
	return q.Quantize(samples), nil
}

// Quantize converts samples to signed integers of the given depth with
// clipping and rounding.
func Quantize(samples []float64, bitDepth int) []int {
	full := float64(int64(1) << (bitDepth - 1))
	hi := full - 1

	out := make([]int, len(samples))
	for i, v := range samples {
		q := math.Round(v * full)
		out[i] = int(math.Max(-full, math.Min(hi, q)))
	}

	return out
}
