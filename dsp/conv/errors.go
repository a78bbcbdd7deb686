package conv

import "errors"

// ErrEmptyInput is returned when a correlation input is empty.
var ErrEmptyInput = errors.New("conv: empty input")
