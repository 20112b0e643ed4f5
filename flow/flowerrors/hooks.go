package flowerrors

import (
	"context"
	"sync/atomic"

	"github.com/lguimbarda/fibflow/flow/core"
)

// ErrorCounter counts failures by Kind. It is safe to read concurrently.
type ErrorCounter struct {
	counts [KindOther + 1]atomic.Int64
}

// Count returns the number of failures of kind k.
func (c *ErrorCounter) Count(k Kind) int64 {
	if k < 0 || k > KindOther {
		return 0
	}
	return c.counts[k].Load()
}

// Total returns the number of failures of any kind.
func (c *ErrorCounter) Total() int64 {
	var total int64
	for i := range c.counts {
		total += c.counts[i].Load()
	}
	return total
}

// WithErrorCounter attaches a hook for type T counting the failures that
// stop terminals, by Kind.
func WithErrorCounter[T any](ctx context.Context) (context.Context, *ErrorCounter) {
	counter := &ErrorCounter{}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(err error) {
			counter.counts[Classify(err)].Add(1)
		},
	})
	return ctx, counter
}

// OnErrorDo attaches a hook for type T calling handler with the failure
// that stops a terminal.
func OnErrorDo[T any](ctx context.Context, handler func(error)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnError: handler,
	})
}
