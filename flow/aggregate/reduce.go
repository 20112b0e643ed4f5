// Package aggregate provides stages that combine a whole stream into a
// single value, or into a running value per element.
package aggregate

import (
	"context"
	"math/big"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Combiner merges one element into an accumulator.
type Combiner[T, R any] func(acc R, item T) (R, error)

// Fold creates a Transformer that folds all items in the stream into a single
// value, starting from seed. The result is emitted once, after the upstream
// has ended, followed by end-of-stream. Fold always emits a value: seed if the
// stream is empty.
//
// A combiner error or panic fails the stream with a TransformError and
// closes the upstream.
func Fold[T, R any](seed R, combine Combiner[T, R]) core.Transformer[T, R] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[R] {
		return &fold[T, R]{Link: core.NewLink(in), acc: seed, combine: combine, stage: "fold"}
	})
}

type fold[T, R any] struct {
	core.Link[T]
	acc     R
	combine Combiner[T, R]
	stage   string
	done    bool
}

func (f *fold[T, R]) Pull(ctx context.Context) core.Result[R] {
	if f.done {
		return core.Recast[R](f.Next(ctx))
	}
	for {
		res := f.Next(ctx)
		switch {
		case res.IsValue():
			acc, err := f.step(res.Value())
			if err != nil {
				f.Fail(err)
				return core.Err[R](err)
			}
			f.acc = acc
		case res.IsEndOfStream():
			f.done = true
			var zero R
			acc := f.acc
			f.acc = zero
			return core.Ok(acc)
		default:
			return core.Recast[R](res)
		}
	}
}

func (f *fold[T, R]) step(item T) (R, error) {
	return core.Protect(f.stage, func() (R, error) {
		return f.combine(f.acc, item)
	})
}

// Reduce creates a Transformer that reduces all items in the stream to a
// single value. The first item becomes the initial accumulator. If the stream
// is empty, nothing is emitted.
func Reduce[T any](combine Combiner[T, T]) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &reduce[T]{Link: core.NewLink(in), combine: combine}
	})
}

type reduce[T any] struct {
	core.Link[T]
	combine Combiner[T, T]
	acc     T
	hasAcc  bool
	done    bool
}

func (r *reduce[T]) Pull(ctx context.Context) core.Result[T] {
	if r.done {
		return r.Next(ctx)
	}
	for {
		res := r.Next(ctx)
		switch {
		case res.IsValue() && !r.hasAcc:
			r.acc, r.hasAcc = res.Value(), true
		case res.IsValue():
			acc, err := core.Protect("reduce", func() (T, error) {
				return r.combine(r.acc, res.Value())
			})
			if err != nil {
				r.Fail(err)
				return core.Err[T](err)
			}
			r.acc = acc
		case res.IsEndOfStream() && r.hasAcc:
			r.done = true
			var zero T
			acc := r.acc
			r.acc = zero
			return core.Ok(acc)
		default:
			return res
		}
	}
}

// Scan creates a Transformer that emits the running accumulator after each
// item.
func Scan[T, R any](seed R, combine Combiner[T, R]) core.Transformer[T, R] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[R] {
		acc := seed
		return core.Map(func(item T) (R, error) {
			next, err := combine(acc, item)
			if err != nil {
				return next, err
			}
			acc = next
			return acc, nil
		}).Apply(in)
	})
}

// Count creates a Transformer that emits the number of items in the stream.
func Count[T any]() core.Transformer[T, int] {
	return Fold(0, func(n int, _ T) (int, error) {
		return n + 1, nil
	})
}

// Numeric is a constraint for numeric types that support arithmetic operations.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Sum creates a Transformer that emits the sum of numeric values.
func Sum[T Numeric]() core.Transformer[T, T] {
	return Fold(T(0), func(acc, item T) (T, error) {
		return acc + item, nil
	})
}

// SumBig creates a Transformer that emits the sum of arbitrary-precision
// integers. Elements are never modified.
func SumBig() core.Transformer[*big.Int, *big.Int] {
	return Fold(new(big.Int), func(acc, item *big.Int) (*big.Int, error) {
		return new(big.Int).Add(acc, item), nil
	})
}

// Min creates a Transformer that emits the smallest item according to less.
func Min[T any](less func(a, b T) bool) core.Transformer[T, T] {
	return Reduce(func(acc, item T) (T, error) {
		if less(item, acc) {
			return item, nil
		}
		return acc, nil
	})
}

// Max creates a Transformer that emits the largest item according to less.
func Max[T any](less func(a, b T) bool) core.Transformer[T, T] {
	return Reduce(func(acc, item T) (T, error) {
		if less(acc, item) {
			return item, nil
		}
		return acc, nil
	})
}
