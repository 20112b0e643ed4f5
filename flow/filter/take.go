package filter

import (
	"context"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Take creates a Transformer that forwards at most n elements.
// The upstream is closed as soon as the n-th element has been pulled, before
// it is handed downstream, so an unbounded source stops after exactly n
// production steps. Later pulls report end-of-stream. If n <= 0 the upstream
// is closed on the first pull without being asked for anything.
func Take[T any](n int) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &take[T]{Link: core.NewLink(in), remaining: n}
	})
}

type take[T any] struct {
	core.Link[T]
	remaining int
}

func (t *take[T]) Pull(ctx context.Context) core.Result[T] {
	if t.Open() && t.remaining <= 0 {
		t.End()
	}
	res := t.Next(ctx)
	if res.IsValue() {
		t.remaining--
		if t.remaining <= 0 {
			t.End()
		}
	}
	return res
}

// First creates a Transformer that forwards only the first element.
// This is equivalent to Take(1).
func First[T any]() core.Transformer[T, T] {
	return Take[T](1)
}

// TakeWhile creates a Transformer that forwards elements while the predicate
// holds. The first element that fails the predicate is dropped, the upstream
// is closed, and the stream ends.
func TakeWhile[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &takeWhile[T]{Link: core.NewLink(in), predicate: predicate}
	})
}

type takeWhile[T any] struct {
	core.Link[T]
	predicate func(T) bool
}

func (t *takeWhile[T]) Pull(ctx context.Context) core.Result[T] {
	res := t.Next(ctx)
	if !res.IsValue() {
		return res
	}
	keep, err := test("take-while", t.predicate, res.Value())
	if err != nil {
		t.Fail(err)
		return core.Err[T](err)
	}
	if !keep {
		t.End()
		return core.EndOfStream[T]()
	}
	return res
}

// Skip creates a Transformer that discards the first n elements and forwards
// the rest. Skipped elements are still pulled one at a time.
func Skip[T any](n int) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &skip[T]{Link: core.NewLink(in), remaining: n}
	})
}

type skip[T any] struct {
	core.Link[T]
	remaining int
}

func (s *skip[T]) Pull(ctx context.Context) core.Result[T] {
	for {
		res := s.Next(ctx)
		if !res.IsValue() || s.remaining <= 0 {
			return res
		}
		s.remaining--
	}
}

// SkipWhile creates a Transformer that discards elements while the predicate
// holds, then forwards everything from the first element that fails it.
func SkipWhile[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &skipWhile[T]{Link: core.NewLink(in), predicate: predicate, skipping: true}
	})
}

type skipWhile[T any] struct {
	core.Link[T]
	predicate func(T) bool
	skipping  bool
}

func (s *skipWhile[T]) Pull(ctx context.Context) core.Result[T] {
	for {
		res := s.Next(ctx)
		if !res.IsValue() || !s.skipping {
			return res
		}
		skip, err := test("skip-while", s.predicate, res.Value())
		if err != nil {
			s.Fail(err)
			return core.Err[T](err)
		}
		if !skip {
			s.skipping = false
			return res
		}
	}
}

// test runs a user predicate, converting a panic into a TransformError.
func test[T any](stage string, predicate func(T) bool, v T) (bool, error) {
	return core.Protect(stage, func() (bool, error) {
		return predicate(v), nil
	})
}
