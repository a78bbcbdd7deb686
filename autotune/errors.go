package autotune

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the umbrella for input problems detected before any
// processing starts. Test with errors.Is.
var ErrInvalidInput = errors.New("autotune: invalid input")

var (
	// ErrEmptySignal is returned for a signal without samples.
	ErrEmptySignal = fmt.Errorf("%w: empty signal", ErrInvalidInput)
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = fmt.Errorf("%w: sample rate must be > 0", ErrInvalidInput)
	// ErrNonFiniteSignal is returned when a signal contains NaN or Inf.
	ErrNonFiniteSignal = fmt.Errorf("%w: signal contains NaN or Inf", ErrInvalidInput)
)

var (
	// ErrUnknownRoot is returned when a root note name cannot be parsed.
	ErrUnknownRoot = errors.New("autotune: unknown root note")
	// ErrInvalidFrameConfig is returned for unusable frame/hop lengths.
	ErrInvalidFrameConfig = errors.New("autotune: invalid frame config")
	// ErrUnknownDetector is returned by [NewDetector] for an unknown name.
	ErrUnknownDetector = errors.New("autotune: unknown detector")
)

// Per-frame analysis failures. They never abort a run; the frame is treated
// as unvoiced and counted as degraded.
var (
	ErrFrameTooShort  = errors.New("autotune: frame too short")
	ErrNonFiniteFrame = errors.New("autotune: frame contains NaN or Inf")
)

// ProcessingError reports a failure that aborts a whole run. No partial
// output accompanies it.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("autotune: %s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
