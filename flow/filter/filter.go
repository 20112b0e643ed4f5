// Package filter provides stages that decide which elements pass downstream
// and when a stream ends.
package filter

import (
	"context"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Where creates a Transformer that forwards only elements satisfying the
// predicate. Rejected elements are pulled and dropped one at a time, so a
// predicate that never matches on an unbounded source never returns.
func Where[T any](predicate func(T) bool) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &where[T]{Link: core.NewLink(in), predicate: predicate}
	})
}

// Exclude creates a Transformer that drops elements satisfying the predicate.
func Exclude[T any](predicate func(T) bool) core.Transformer[T, T] {
	return Where(func(v T) bool { return !predicate(v) })
}

type where[T any] struct {
	core.Link[T]
	predicate func(T) bool
}

func (w *where[T]) Pull(ctx context.Context) core.Result[T] {
	for {
		res := w.Next(ctx)
		if !res.IsValue() {
			return res
		}
		keep, err := test("where", w.predicate, res.Value())
		if err != nil {
			w.Fail(err)
			return core.Err[T](err)
		}
		if keep {
			return res
		}
	}
}
