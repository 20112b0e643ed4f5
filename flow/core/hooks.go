package core

import (
	"context"
)

// Hooks holds typed observation callbacks for a pipeline.
// All fields are optional - nil means no observation for that event.
// Hooks are invoked synchronously by the terminal driving the pipeline, so
// they should be fast to avoid stalling demand.
type Hooks[T any] struct {
	OnStart    func()      // First demand is about to be issued
	OnValue    func(T)     // Element delivered to the terminal
	OnError    func(error) // Pipeline failed
	OnSentinel func(error) // Sentinel received, including end-of-stream
	OnComplete func()      // Terminal finished, whatever the outcome
}

// hooksKey is unexported to prevent collisions with user context keys.
type hooksKey[T any] struct{}

type hooksContainer[T any] struct {
	hookSets []*Hooks[T]
}

// WithHooks attaches typed hooks to the context.
// Multiple calls compose in FIFO order.
//
// Example:
//
//	ctx := core.WithHooks(ctx, core.Hooks[*big.Int]{
//	    OnValue: func(v *big.Int) { log.Printf("value: %s", v) },
//	})
func WithHooks[T any](ctx context.Context, hooks Hooks[T]) context.Context {
	if ctx == nil {
		panic("nil context")
	}

	var sets []*Hooks[T]
	if existing := getHooksContainer[T](ctx); existing != nil {
		sets = make([]*Hooks[T], len(existing.hookSets), len(existing.hookSets)+1)
		copy(sets, existing.hookSets)
	}
	sets = append(sets, &hooks)

	return context.WithValue(ctx, hooksKey[T]{}, &hooksContainer[T]{hookSets: sets})
}

func getHooksContainer[T any](ctx context.Context) *hooksContainer[T] {
	if ctx == nil {
		return nil
	}
	if c, ok := ctx.Value(hooksKey[T]{}).(*hooksContainer[T]); ok {
		return c
	}
	return nil
}

// hookInvoker caches the hook lookup for the lifetime of one terminal run.
type hookInvoker[T any] struct {
	sets []*Hooks[T]
}

func newHookInvoker[T any](ctx context.Context) hookInvoker[T] {
	if c := getHooksContainer[T](ctx); c != nil {
		return hookInvoker[T]{sets: c.hookSets}
	}
	return hookInvoker[T]{}
}

func (h hookInvoker[T]) start() {
	for _, hooks := range h.sets {
		if hooks.OnStart != nil {
			hooks.OnStart()
		}
	}
}

func (h hookInvoker[T]) value(v T) {
	for _, hooks := range h.sets {
		if hooks.OnValue != nil {
			hooks.OnValue(v)
		}
	}
}

func (h hookInvoker[T]) fail(err error) {
	for _, hooks := range h.sets {
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
	}
}

func (h hookInvoker[T]) sentinel(err error) {
	for _, hooks := range h.sets {
		if hooks.OnSentinel != nil {
			hooks.OnSentinel(err)
		}
	}
}

func (h hookInvoker[T]) complete() {
	for _, hooks := range h.sets {
		if hooks.OnComplete != nil {
			hooks.OnComplete()
		}
	}
}

// NewSafeHooks wraps every hook with panic recovery. If panicHandler is nil,
// panics are silently recovered.
func NewSafeHooks[T any](hooks Hooks[T], panicHandler func(any)) Hooks[T] {
	if panicHandler == nil {
		panicHandler = func(any) {}
	}
	guard := func() {
		if r := recover(); r != nil {
			panicHandler(r)
		}
	}

	var safe Hooks[T]
	if fn := hooks.OnStart; fn != nil {
		safe.OnStart = func() { defer guard(); fn() }
	}
	if fn := hooks.OnValue; fn != nil {
		safe.OnValue = func(v T) { defer guard(); fn(v) }
	}
	if fn := hooks.OnError; fn != nil {
		safe.OnError = func(err error) { defer guard(); fn(err) }
	}
	if fn := hooks.OnSentinel; fn != nil {
		safe.OnSentinel = func(err error) { defer guard(); fn(err) }
	}
	if fn := hooks.OnComplete; fn != nil {
		safe.OnComplete = func() { defer guard(); fn() }
	}
	return safe
}

// WithSafeHooks attaches hooks wrapped with panic recovery.
func WithSafeHooks[T any](ctx context.Context, hooks Hooks[T], panicHandler func(any)) context.Context {
	return WithHooks(ctx, NewSafeHooks(hooks, panicHandler))
}
