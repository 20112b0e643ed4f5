package sink

import (
	"context"
	"sync"

	"github.com/lguimbarda/fibflow/flow/aggregate"
	"github.com/lguimbarda/fibflow/flow/core"
	"github.com/lguimbarda/fibflow/flow/filter"
)

// Future is the eventual result of a pipeline running on its own goroutine.
// It resolves exactly once, with a value or an error.
type Future[R any] struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	value     R
	err       error
	callbacks []func(R, error)
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// Done is closed once the future has resolved.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Await waits for the result. If ctx ends first Await returns ctx's error;
// the pipeline itself keeps running.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Then registers fn to run with the result. fn runs once, on the pipeline's
// goroutine, or immediately if the future has already resolved.
func (f *Future[R]) Then(fn func(R, error)) {
	f.mu.Lock()
	if f.resolved {
		value, err := f.value, f.err
		f.mu.Unlock()
		fn(value, err)
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

func (f *Future[R]) resolve(value R, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved, f.value, f.err = true, value, err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	close(f.done)
	for _, fn := range callbacks {
		fn(value, err)
	}
}

// Accumulate folds the first n elements of in into a single value, starting
// from seed, and resolves the returned Future with it. A negative n folds
// the whole stream, which never resolves on an unbounded source.
//
// The pipeline runs on a new goroutine and is cancelled only through ctx.
// A combiner failure or an upstream failure resolves the Future with that
// error.
func Accumulate[T, R any](ctx context.Context, in core.Stream[T], n int, seed R, combine aggregate.Combiner[T, R]) *Future[R] {
	if n >= 0 {
		in = filter.Take[T](n).Apply(in)
	}
	folded := aggregate.Fold(seed, combine).Apply(in)

	future := newFuture[R]()
	go func() {
		value, err := core.First(ctx, folded)
		future.resolve(value, err)
	}()
	return future
}
