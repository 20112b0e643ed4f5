package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrPanic wraps a recovered panic value as an error.
// It is produced when a user-provided transform or combiner panics while a
// stage is processing an element. Stack holds the panicking goroutine's frames
// with fibflow's own frames removed.
type ErrPanic struct {
	Value any
	Stack string
}

func (e ErrPanic) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// NewPanicError creates an ErrPanic from a recovered value.
// It must be called from the deferred function that recovered.
func NewPanicError(recovered any) ErrPanic {
	return ErrPanic{
		Value: recovered,
		Stack: cleanStack(captureStack(4)), // skip: runtime.Callers, captureStack, NewPanicError, defer func
	}
}

func captureStack(skip int) string {
	const maxFrames = 32
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// cleanStack drops frames that belong to the flow packages so the trace
// starts at the user's function.
func cleanStack(stack string) string {
	const internal = "github.com/lguimbarda/fibflow/flow/"

	var kept []string
	skipFile := false
	for _, line := range strings.Split(stack, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			skipFile = strings.Contains(line, internal)
			if skipFile {
				continue
			}
		} else if skipFile {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Result is the answer to one unit of demand. It is in exactly one of three
// states:
//   - Value: an element (IsValue)
//   - Error: a terminal failure of the pipeline (IsError)
//   - Sentinel: a control signal, normally end-of-stream (IsSentinel)
//
// Unlike a buffered stream, a pull pipeline never continues past an error:
// the stage that produced it has already released its upstream.
type Result[OUT any] struct {
	value      OUT
	err        error
	isSentinel bool
}

// NewResult creates a Result with explicit control over all fields.
// Prefer Ok, Err, Sentinel, or EndOfStream.
func NewResult[OUT any](value OUT, err error, isSentinel bool) Result[OUT] {
	return Result[OUT]{value: value, err: err, isSentinel: isSentinel}
}

// Ok creates a Result carrying an element.
func Ok[OUT any](value OUT) Result[OUT] {
	return Result[OUT]{value: value}
}

// Err creates a failed Result.
func Err[OUT any](err error) Result[OUT] {
	var zero OUT
	return Result[OUT]{value: zero, err: err}
}

// Sentinel creates a control Result with an optional descriptive error.
func Sentinel[OUT any](err error) Result[OUT] {
	var zero OUT
	return Result[OUT]{value: zero, err: err, isSentinel: true}
}

// ErrEndOfStream is the sentinel error indicating normal stream termination.
var ErrEndOfStream = errors.New("end of stream")

// EndOfStream creates the sentinel that marks normal termination.
func EndOfStream[OUT any]() Result[OUT] {
	return Sentinel[OUT](ErrEndOfStream)
}

// IsValue reports whether r carries an element.
func (r Result[OUT]) IsValue() bool {
	return r.err == nil && !r.isSentinel
}

// IsSentinel reports whether r is a control signal.
func (r Result[OUT]) IsSentinel() bool {
	return r.isSentinel
}

// IsEndOfStream reports whether r is the end-of-stream sentinel.
func (r Result[OUT]) IsEndOfStream() bool {
	return r.isSentinel && errors.Is(r.err, ErrEndOfStream)
}

// IsError reports whether r is a failure.
func (r Result[OUT]) IsError() bool {
	return r.err != nil && !r.isSentinel
}

// Value returns the element. Zero unless IsValue.
func (r Result[OUT]) Value() OUT {
	return r.value
}

// Error returns the failure, or nil for values and sentinels.
func (r Result[OUT]) Error() error {
	if r.isSentinel {
		return nil
	}
	return r.err
}

// Sentinel returns the sentinel's context error, or nil if r is not a sentinel.
func (r Result[OUT]) Sentinel() error {
	if !r.isSentinel {
		return nil
	}
	return r.err
}

// Unwrap returns the value and error together.
func (r Result[OUT]) Unwrap() (OUT, error) {
	return r.value, r.err
}

// Recast converts a non-value Result to another element type, keeping its
// error and sentinel state. It is used by stages that forward control
// results unchanged.
func Recast[OUT, IN any](r Result[IN]) Result[OUT] {
	var zero OUT
	return Result[OUT]{value: zero, err: r.err, isSentinel: r.isSentinel}
}
