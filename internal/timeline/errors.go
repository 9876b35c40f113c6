package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFrame    = errors.New("frame index must be non-negative")
	ErrInvalidInterval = errors.New("grid interval must be positive")
)

// TickError reports a keyframe that fired but was not delivered.
type TickError struct {
	Device   string
	Keyframe Keyframe
	Err      error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick dispatch %s@%d to %s: %v", e.Keyframe.Motion, e.Keyframe.Frame, e.Device, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}
