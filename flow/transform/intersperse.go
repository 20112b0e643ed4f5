// Package transform provides element-wise and structural stages: separators,
// text encoding, indexing and side effects.
package transform

import (
	"context"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Intersperse creates a Transformer that emits sep between consecutive
// elements. The separator for an element is only emitted once that element
// has arrived, so the output never ends with a separator and at most one
// element is held back at a time.
func Intersperse[T any](sep T) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &intersperse[T]{Link: core.NewLink(in), sep: sep}
	})
}

type intersperse[T any] struct {
	core.Link[T]
	sep     T
	started bool
	held    T
	holding bool
}

func (s *intersperse[T]) Pull(ctx context.Context) core.Result[T] {
	if s.holding {
		v := s.held
		var zero T
		s.held, s.holding = zero, false
		return core.Ok(v)
	}
	res := s.Next(ctx)
	if !res.IsValue() {
		return res
	}
	if !s.started {
		s.started = true
		return res
	}
	s.held, s.holding = res.Value(), true
	return core.Ok(s.sep)
}

func (s *intersperse[T]) Close() error {
	var zero T
	s.held, s.holding = zero, false
	return s.Link.Close()
}
