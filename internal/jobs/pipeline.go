package jobs

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/audiofile"
	"github.com/cwbudde/algo-autotune/internal/config"
)

// lowpassOrder is the Butterworth order of the output filter.
const lowpassOrder = 4

// NewPipeline builds an [autotune.Pipeline] from the processing section of
// the configuration. rec and logger may be nil.
func NewPipeline(p config.ProcessingConfig, rec autotune.Recorder, logger *slog.Logger) (*autotune.Pipeline, error) {
	det, err := autotune.NewDetector(p.Detector, autotune.WithFrequencyRange(p.MinFreq, p.MaxFreq))
	if err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}

	pipe, err := autotune.NewPipeline(
		autotune.WithDetector(det),
		autotune.WithFrameConfig(autotune.FrameConfig{Length: p.FrameLength, Hop: p.HopLength}),
		autotune.WithStrengthRange(p.MinStrength, p.MaxStrength),
		autotune.WithDefaultStrength(p.DefaultStrength),
		autotune.WithMinConfidence(p.MinConfidence),
		autotune.WithLowpass(p.LowpassHz, lowpassOrder),
		autotune.WithWorkers(p.Workers),
		autotune.WithRecorder(rec),
		autotune.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("jobs: building pipeline: %w", err)
	}
	return pipe, nil
}

// Defaults fills empty scale and root fields of params from p.
func Defaults(p config.ProcessingConfig, params autotune.Params) autotune.Params {
	if params.ScaleType == "" {
		params.ScaleType = p.DefaultScale
	}
	if params.RootNote == "" {
		params.RootNote = p.DefaultRoot
	}
	return params
}

// EncodeOptions returns the WAV encoder options selected by p.
func EncodeOptions(p config.ProcessingConfig) []audiofile.EncodeOption {
	if p.Dither {
		return []audiofile.EncodeOption{audiofile.WithDither()}
	}
	return nil
}
