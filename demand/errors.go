package demand

import (
	"errors"
	"fmt"
)

// ErrViolation is matched by every *ViolationError.
var ErrViolation = errors.New("demand violation")

// ViolationError reports a producer emitting beyond granted demand, or a malformed request.
type ViolationError struct {
	Activity  string
	Requested int64
	Message   string
}

func (e *ViolationError) Error() string {
	if e.Activity != "" {
		return fmt.Sprintf("demand violation in %s: %s", e.Activity, e.Message)
	}
	if e.Requested < 0 {
		return fmt.Sprintf("demand violation: %s (requested %d)", e.Message, e.Requested)
	}
	return "demand violation: " + e.Message
}

func (e *ViolationError) Is(target error) bool {
	return target == ErrViolation
}
