package observe

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamClosed is returned to producers writing to a subscription that has ended.
	ErrStreamClosed = errors.New("stream is closed")
	// ErrUnknownFailure stands in for a nil error passed to Failure.
	ErrUnknownFailure = errors.New("unknown failure")
)

// TransformError is the failure produced when a fallible stage, such as a throwing map or a decode, fails.
type TransformError struct {
	Activity string
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: transform failed: %v", e.Activity, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking producer or stage.
type PanicError struct {
	Activity string
	Value    any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Activity, e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
