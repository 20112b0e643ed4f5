// Package sink provides the terminal stages of a pipeline: a forwarding sink
// that writes every element to an external destination, and an accumulating
// sink that folds a bounded prefix into a single value.
package sink

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/lguimbarda/fibflow/flow/core"
)

// IsClosure reports whether err means the reader of a destination went
// away, as opposed to the destination failing.
func IsClosure(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, core.ErrConsumerClosed)
}

// Destination is an io.Writer that notices when its reader goes away.
// The first write failing with a closure error marks it closed and runs the
// registered observers, once. Later writes fail with ErrConsumerClosed
// without touching the underlying writer.
type Destination struct {
	w io.Writer

	mu        sync.Mutex
	closed    bool
	cause     error
	observers []func(cause error)
}

// Watch wraps w.
func Watch(w io.Writer) *Destination {
	return &Destination{w: w}
}

// OnClose registers fn to run when the destination is found closed. If it
// already is, fn runs immediately.
func (d *Destination) OnClose(fn func(cause error)) {
	d.mu.Lock()
	if d.closed {
		cause := d.cause
		d.mu.Unlock()
		fn(cause)
		return
	}
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

func (d *Destination) Write(p []byte) (int, error) {
	if d.Closed() {
		return 0, fmt.Errorf("%w: %v", core.ErrConsumerClosed, d.Cause())
	}
	n, err := d.w.Write(p)
	if err != nil && IsClosure(err) {
		d.markClosed(err)
	}
	return n, err
}

// Close marks the destination closed as if its reader had gone away.
func (d *Destination) Close() error {
	d.markClosed(core.ErrConsumerClosed)
	return nil
}

// Closed reports whether the destination has been found closed.
func (d *Destination) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Cause returns the error that closed the destination, or nil.
func (d *Destination) Cause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cause
}

func (d *Destination) markClosed(cause error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed, d.cause = true, cause
	observers := d.observers
	d.observers = nil
	d.mu.Unlock()

	for _, fn := range observers {
		fn(cause)
	}
}
