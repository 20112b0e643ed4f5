package core

import (
	"context"
	"fmt"
)

// Link is the upstream half of a pass-through stage. It owns the stage's
// termination Signal and translates between the stage's own lifecycle and
// its upstream's:
//
//   - Close (downstream stopped asking) closes upstream.
//   - End (the stage is done, e.g. Take reached its count) closes upstream
//     and reports end-of-stream downstream from then on.
//   - Fail (a transform or upstream failure) closes upstream and makes the
//     failure sticky.
//
// Stages embed a Link and call Next instead of pulling upstream directly.
type Link[IN any] struct {
	up     Stream[IN]
	signal Signal
	err    error
}

// NewLink returns a Link over up.
func NewLink[IN any](up Stream[IN]) Link[IN] {
	return Link[IN]{up: up}
}

// Signal exposes the stage's termination state.
func (l *Link[IN]) Signal() *Signal { return &l.signal }

// Open reports whether the stage may still pull upstream.
func (l *Link[IN]) Open() bool { return l.signal.Active() }

// Next pulls one element from upstream. Upstream end-of-stream ends the
// stage and upstream failures fail it, so callers only need to forward
// non-value Results.
func (l *Link[IN]) Next(ctx context.Context) Result[IN] {
	if !l.Open() {
		return Recast[IN](l.Halted())
	}
	if err := ctx.Err(); err != nil {
		l.Fail(err)
		return Err[IN](err)
	}
	res := l.up.Pull(ctx)
	switch {
	case res.IsError():
		l.Fail(res.Error())
	case res.IsEndOfStream():
		l.End()
	}
	return res
}

// UpstreamExhausted reports whether upstream has already ended normally,
// so its next pull answers end-of-stream without work. Upstreams that do
// not expose a Signal always report false.
func (l *Link[IN]) UpstreamExhausted() bool {
	up, ok := l.up.(interface{ Signal() *Signal })
	return ok && up.Signal().Cause() == ProducerExhausted
}

// Close is the downstream termination instruction. It is idempotent.
func (l *Link[IN]) Close() error {
	l.signal.CloseConsumer()
	if l.signal.Destroy() {
		return l.up.Close()
	}
	return nil
}

// End completes the stage normally and closes upstream, which is a no-op if
// upstream is already exhausted.
func (l *Link[IN]) End() {
	l.signal.Exhaust()
	if l.signal.Destroy() {
		_ = l.up.Close()
	}
}

// Fail tears the stage down with err. Later pulls keep returning err.
func (l *Link[IN]) Fail(err error) {
	if l.err == nil {
		l.err = err
	}
	if l.signal.Destroy() {
		_ = l.up.Close()
	}
}

// Halted returns the Result a stage answers once it is no longer open:
// its failure, end-of-stream after a normal end, or ErrContractViolation
// when pulled after it was closed.
func (l *Link[IN]) Halted() Result[IN] {
	switch {
	case l.err != nil:
		return Err[IN](l.err)
	case l.signal.Cause() == ProducerExhausted:
		return EndOfStream[IN]()
	default:
		return Err[IN](fmt.Errorf("%w: stage is %s", ErrContractViolation, l.signal.Cause()))
	}
}
