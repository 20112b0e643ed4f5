package core

import (
	"context"
	"fmt"
)

// Step computes the next element of a producer. It returns false when the
// sequence is finished.
type Step[OUT any] func() (OUT, bool, error)

// Emitter is a demand-driven producer built from a Step function. It is the
// head of a pipeline: it computes an element only when one has been
// requested, and never more than one per request.
type Emitter[OUT any] struct {
	name     string
	step     Step[OUT]
	release  func()
	demand   Demand
	signal   Signal
	produced uint64
}

// Emit creates a producer from step. release, if non-nil, is called exactly
// once when the producer is destroyed, whichever way that happens.
func Emit[OUT any](name string, step Step[OUT], release func()) *Emitter[OUT] {
	return &Emitter[OUT]{name: name, step: step, release: release}
}

// Pull requests one element and produces it.
func (e *Emitter[OUT]) Pull(ctx context.Context) Result[OUT] {
	if err := ctx.Err(); err != nil {
		return Err[OUT](err)
	}
	if !e.signal.Active() {
		return e.violation()
	}
	if err := e.demand.Request(); err != nil {
		return Err[OUT](err)
	}
	return e.ProduceNext()
}

// ProduceNext serves the outstanding demand token. Without a token it does
// nothing and fails with ErrProtocolViolation. After end-of-stream or
// destruction it fails with ErrContractViolation, every time.
func (e *Emitter[OUT]) ProduceNext() Result[OUT] {
	if !e.signal.Active() {
		e.demand.Cancel()
		return e.violation()
	}
	if !e.demand.Acquire() {
		return Err[OUT](fmt.Errorf("%w: %s produced without demand", ErrProtocolViolation, e.name))
	}

	value, ok, err := e.run()
	if err != nil {
		e.destroy()
		return Err[OUT](err)
	}
	if !ok {
		e.signal.Exhaust()
		e.destroy()
		return EndOfStream[OUT]()
	}
	e.produced++
	return Ok(value)
}

func (e *Emitter[OUT]) run() (value OUT, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewTransformError(e.name, NewPanicError(r))
		}
	}()
	value, ok, err = e.step()
	if err != nil {
		err = NewTransformError(e.name, err)
	}
	return value, ok, err
}

// Close destroys the producer. Closing a destroyed producer is a no-op.
func (e *Emitter[OUT]) Close() error {
	e.signal.CloseConsumer()
	e.demand.Cancel()
	e.destroy()
	return nil
}

func (e *Emitter[OUT]) destroy() {
	if e.signal.Destroy() && e.release != nil {
		e.release()
	}
}

func (e *Emitter[OUT]) violation() Result[OUT] {
	return Err[OUT](fmt.Errorf("%w: %s is %s", ErrContractViolation, e.name, e.signal.State()))
}

// Signal exposes the producer's termination state.
func (e *Emitter[OUT]) Signal() *Signal { return &e.signal }

// Demand exposes the producer's demand counter.
func (e *Emitter[OUT]) Demand() *Demand { return &e.demand }

// Produced returns the number of elements emitted so far.
func (e *Emitter[OUT]) Produced() uint64 { return e.produced }
