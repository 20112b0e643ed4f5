package observe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Hooks are typed: an observer registered for *big.Int only sees pipelines
// whose terminal drains *big.Int elements.
//
//	ctx := observe.WithValueHook(ctx, func(v *big.Int) { fmt.Println(v) })
//	err := flow.Run(ctx, pipeline)

// WithValueHook attaches a callback for every element a terminal receives.
func WithValueHook[T any](ctx context.Context, callback func(T)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnValue: callback,
	})
}

// WithErrorHook attaches a callback for the failure that stops a terminal.
func WithErrorHook[T any](ctx context.Context, callback func(error)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnError: callback,
	})
}

// WithStartHook attaches a callback run when a terminal starts pulling.
func WithStartHook[T any](ctx context.Context, callback func()) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: callback,
	})
}

// WithCompleteHook attaches a callback run when a terminal returns.
func WithCompleteHook[T any](ctx context.Context, callback func()) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnComplete: callback,
	})
}

// WithSentinelHook attaches a callback for sentinels, end-of-stream included.
func WithSentinelHook[T any](ctx context.Context, callback func(error)) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnSentinel: callback,
	})
}

// Counter counts values and errors. It is safe to read concurrently.
type Counter struct {
	values atomic.Int64
	errors atomic.Int64
}

// Values returns the count of values processed.
func (c *Counter) Values() int64 { return c.values.Load() }

// Errors returns the count of errors encountered.
func (c *Counter) Errors() int64 { return c.errors.Load() }

// Total returns the total count of values and errors.
func (c *Counter) Total() int64 { return c.values.Load() + c.errors.Load() }

// WithCounter attaches counting hooks for type T and returns the counter.
func WithCounter[T any](ctx context.Context) (context.Context, *Counter) {
	counter := &Counter{}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnValue: func(T) { counter.values.Add(1) },
		OnError: func(error) { counter.errors.Add(1) },
	})
	return ctx, counter
}

// ErrorCollector collects the errors reported to its hook.
type ErrorCollector struct {
	mu     sync.Mutex
	errors []error
}

// Errors returns a copy of all collected errors.
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]error, len(c.errors))
	copy(result, c.errors)
	return result
}

// Count returns the number of collected errors.
func (c *ErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// WithErrorCollector attaches an error collecting hook for type T.
func WithErrorCollector[T any](ctx context.Context) (context.Context, *ErrorCollector) {
	collector := &ErrorCollector{}
	ctx = core.WithHooks(ctx, core.Hooks[T]{
		OnError: func(err error) {
			collector.mu.Lock()
			collector.errors = append(collector.errors, err)
			collector.mu.Unlock()
		},
	})
	return ctx, collector
}

// Logger is a printf-style logging function.
type Logger func(format string, args ...any)

// Zerolog adapts a zerolog logger to Logger, writing at debug level.
func Zerolog(l *zerolog.Logger) Logger {
	return func(format string, args ...any) {
		l.Debug().Msgf(format, args...)
	}
}

// WithLogging attaches hooks for type T that log every event of a terminal.
func WithLogging[T any](ctx context.Context, logger Logger) context.Context {
	return core.WithHooks(ctx, core.Hooks[T]{
		OnStart: func() {
			logger("stream started")
		},
		OnValue: func(v T) {
			logger("value: %v", v)
		},
		OnError: func(err error) {
			logger("error: %v", err)
		},
		OnSentinel: func(err error) {
			logger("sentinel: %v", err)
		},
		OnComplete: func() {
			logger("stream completed")
		},
	})
}
