package transform

import (
	"context"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Indexed pairs an element with its 0-based position in the stream.
type Indexed[T any] struct {
	Index int
	Value T
}

// WithIndex creates a Transformer that wraps each item with its 0-based index.
func WithIndex[T any]() core.Transformer[T, Indexed[T]] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[Indexed[T]] {
		index := 0
		return core.Map(func(v T) (Indexed[T], error) {
			item := Indexed[T]{Index: index, Value: v}
			index++
			return item, nil
		}).Apply(in)
	})
}

// Tap creates a Transformer that calls fn for each element and forwards the
// element unchanged. An error returned by fn fails the stream.
func Tap[T any](fn func(T) error) core.Transformer[T, T] {
	return core.Map(func(v T) (T, error) {
		return v, fn(v)
	})
}

// Pairwise creates a Transformer that emits pairs of consecutive items.
// Each element except the first is emitted together with its predecessor.
func Pairwise[T any]() core.Transformer[T, [2]T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[[2]T] {
		return &pairwise[T]{Link: core.NewLink(in)}
	})
}

type pairwise[T any] struct {
	core.Link[T]
	prev    T
	hasPrev bool
}

func (p *pairwise[T]) Pull(ctx context.Context) core.Result[[2]T] {
	for {
		res := p.Next(ctx)
		if !res.IsValue() {
			return core.Recast[[2]T](res)
		}
		curr := res.Value()
		if p.hasPrev {
			pair := [2]T{p.prev, curr}
			p.prev = curr
			return core.Ok(pair)
		}
		p.prev, p.hasPrev = curr, true
	}
}

// StartWith creates a Transformer that emits values before the first element
// of the stream. The upstream is not pulled until they have been consumed.
func StartWith[T any](values ...T) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &startWith[T]{Link: core.NewLink(in), values: values}
	})
}

type startWith[T any] struct {
	core.Link[T]
	values []T
}

func (s *startWith[T]) Pull(ctx context.Context) core.Result[T] {
	if len(s.values) > 0 && s.Open() {
		v := s.values[0]
		s.values = s.values[1:]
		return core.Ok(v)
	}
	return s.Next(ctx)
}

// EndWith creates a Transformer that emits values after the stream ends
// normally. A failing stream does not get the trailing values.
func EndWith[T any](values ...T) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &endWith[T]{Link: core.NewLink(in), values: values}
	})
}

type endWith[T any] struct {
	core.Link[T]
	values []T
	closed bool
}

func (e *endWith[T]) Pull(ctx context.Context) core.Result[T] {
	res := e.Next(ctx)
	if !res.IsEndOfStream() || e.closed || len(e.values) == 0 {
		return res
	}
	v := e.values[0]
	e.values = e.values[1:]
	return core.Ok(v)
}

func (e *endWith[T]) Close() error {
	e.closed = true
	return e.Link.Close()
}

// DefaultIfEmpty creates a Transformer that emits value if the stream ends
// without producing any element.
func DefaultIfEmpty[T any](value T) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &defaultIfEmpty[T]{Link: core.NewLink(in), value: value}
	})
}

type defaultIfEmpty[T any] struct {
	core.Link[T]
	value T
	seen  bool
}

func (d *defaultIfEmpty[T]) Pull(ctx context.Context) core.Result[T] {
	res := d.Next(ctx)
	switch {
	case res.IsValue():
		d.seen = true
	case res.IsEndOfStream() && !d.seen:
		d.seen = true
		return core.Ok(d.value)
	}
	return res
}
