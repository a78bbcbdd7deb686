package autotune

import (
	"context"
	"time"
)

// Pipeline stage names reported to a [Recorder] and in [Report.Stages].
const (
	StageScale  = "scale"
	StageDetect = "detect"
	StagePlan   = "plan"
	StageShift  = "shift"
	StagePost   = "postprocess"
)

// Frame kinds reported to a [Recorder].
const (
	FramesVoiced   = "voiced"
	FramesUnvoiced = "unvoiced"
	FramesShifted  = "shifted"
	FramesDegraded = "degraded"
)

// Recorder receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordStage(ctx context.Context, stage string, d time.Duration)
	RecordFrames(ctx context.Context, kind string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordStage(context.Context, string, time.Duration) {}

func (nopRecorder) RecordFrames(context.Context, string, int) {}
