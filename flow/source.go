package flow

import (
	"context"
	"iter"

	"github.com/lguimbarda/fibflow/flow/core"
)

// FromSlice creates a Stream that emits each element of items on demand.
func FromSlice[T any](items []T) Stream[T] {
	i := 0
	return core.Emit("slice", func() (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	}, nil)
}

// FromIter creates a Stream from an iterator sequence. The iterator is
// advanced only when an element is requested; closing the stream stops it.
func FromIter[T any](seq iter.Seq[T]) Stream[T] {
	next, stop := iter.Pull(seq)
	return core.Emit("iter", func() (T, bool, error) {
		v, ok := next()
		return v, ok, nil
	}, stop)
}

// Empty creates a Stream that ends on the first pull.
func Empty[T any]() Stream[T] {
	return FromSlice[T](nil)
}

// Once creates a Stream that emits a single value.
func Once[T any](value T) Stream[T] {
	return FromSlice([]T{value})
}

// FromError creates a Stream that fails with err, unwrapped, on every pull.
func FromError[T any](err error) Stream[T] {
	return failed[T]{err: err}
}

type failed[T any] struct{ err error }

func (f failed[T]) Pull(context.Context) Result[T] { return core.Err[T](f.err) }

func (f failed[T]) Close() error { return nil }

// Generate creates a Stream that calls fn for each element. fn returns the
// element and true, or false to end the stream. An error from fn fails the
// stream.
func Generate[T any](fn func() (T, bool, error)) Stream[T] {
	return core.Emit("generate", fn, nil)
}

// Range creates a Stream that emits integers from start (inclusive) to end
// (exclusive).
func Range(start, end int) Stream[int] {
	i := start
	return core.Emit("range", func() (int, bool, error) {
		if i >= end {
			return 0, false, nil
		}
		v := i
		i++
		return v, true, nil
	}, nil)
}

// Unfold creates a Stream by unfolding a seed. fn receives the current state
// and returns the element to emit, the next state, and whether to continue.
func Unfold[T, S any](seed S, fn func(S) (T, S, bool, error)) Stream[T] {
	state := seed
	return core.Emit("unfold", func() (T, bool, error) {
		value, next, ok, err := fn(state)
		if err != nil || !ok {
			return value, false, err
		}
		state = next
		return value, true, nil
	}, nil)
}

// Iterate creates an unbounded Stream of seed, fn(seed), fn(fn(seed)), ...
func Iterate[T any](seed T, fn func(T) T) Stream[T] {
	current, started := seed, false
	return core.Emit("iterate", func() (T, bool, error) {
		if started {
			current = fn(current)
		}
		started = true
		return current, true, nil
	}, nil)
}

// Concat emits every element of each stream in turn. A stream is only
// pulled once the one before it has ended. A failure closes the streams not
// yet drained, and later pulls repeat it.
func Concat[T any](streams ...Stream[T]) Stream[T] {
	return &concat[T]{streams: streams}
}

type concat[T any] struct {
	streams []Stream[T]
	ended   bool
	err     error
}

func (c *concat[T]) Pull(ctx context.Context) Result[T] {
	if c.err != nil {
		return core.Err[T](c.err)
	}
	if c.ended {
		return core.Err[T](ErrContractViolation)
	}
	for len(c.streams) > 0 {
		res := c.streams[0].Pull(ctx)
		if res.IsError() {
			c.err = res.Error()
			_ = c.Close()
			return res
		}
		if !res.IsEndOfStream() {
			return res
		}
		_ = c.streams[0].Close()
		c.streams = c.streams[1:]
	}
	c.ended = true
	return core.EndOfStream[T]()
}

func (c *concat[T]) Close() error {
	var first error
	for _, s := range c.streams {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.streams = nil
	c.ended = true
	return first
}
