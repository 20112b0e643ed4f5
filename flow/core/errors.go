package core

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation is returned when a producer is asked for an
	// element after it has signaled end-of-stream or has been destroyed.
	ErrContractViolation = errors.New("produce after end of stream")

	// ErrConsumerClosed reports that the external destination of a sink
	// stopped accepting data. Sinks recover from it by closing upstream.
	ErrConsumerClosed = errors.New("consumer closed")

	// ErrProtocolViolation reports a stage that broke the 1:1 demand
	// protocol: a second outstanding request, or an element after
	// end-of-stream. It indicates a defect, not a runtime condition.
	ErrProtocolViolation = errors.New("stage protocol violation")
)

// TransformError is a failure raised by a user function inside a stage.
// It is terminal: the stage that produced it has already closed its upstream.
type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: transform failed: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// NewTransformError wraps err as a failure of the named stage. Errors that
// are already TransformErrors are returned unchanged so the innermost stage
// keeps the attribution.
func NewTransformError(stage string, err error) error {
	var te *TransformError
	if errors.As(err, &te) {
		return err
	}
	return &TransformError{Stage: stage, Err: err}
}

// Protect calls fn and converts a panic into a TransformError carrying an
// ErrPanic.
func Protect[T any](stage string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewTransformError(stage, NewPanicError(r))
		}
	}()
	out, err = fn()
	if err != nil {
		err = NewTransformError(stage, err)
	}
	return out, err
}
