// Package flow is the user-facing API for building lazy, pull-based
// pipelines: a source produces one element per unit of demand, stages
// transform it on the way down, and a terminal drives the whole thing and
// stops it.
//
// Most users should only need this package plus the operator packages
// (filter, transform, aggregate, sink). The flow/core subpackage holds the
// protocol itself.
package flow

import (
	"context"
	"iter"
	"math/big"

	"github.com/lguimbarda/fibflow/flow/core"
	"github.com/lguimbarda/fibflow/flow/sequence"
)

// Type aliases for core stream abstractions.
// These allow users to work with the framework without importing core directly.
type (
	// Result is the answer to one unit of demand: Value, Error, or Sentinel.
	Result[T any] = core.Result[T]

	// Stream is a lazy source of elements answering one Result per Pull.
	Stream[T any] = core.Stream[T]

	// Transformer wraps a Stream of IN in a stage producing OUT.
	Transformer[IN, OUT any] = core.Transformer[IN, OUT]

	// Transmitter is a function-backed Transformer.
	Transmitter[IN, OUT any] = core.Transmitter[IN, OUT]

	// Mapper transforms individual items (1:1 cardinality) and implements Transformer.
	Mapper[IN, OUT any] = core.Mapper[IN, OUT]

	// Emitter is a demand-driven producer.
	Emitter[T any] = core.Emitter[T]

	// State is a termination state.
	State = core.State
)

// Termination states.
const (
	Open              = core.Open
	ConsumerClosed    = core.ConsumerClosed
	ProducerExhausted = core.ProducerExhausted
	Destroyed         = core.Destroyed
)

// Errors of the pull protocol.
var (
	ErrEndOfStream       = core.ErrEndOfStream
	ErrContractViolation = core.ErrContractViolation
	ErrConsumerClosed    = core.ErrConsumerClosed
	ErrProtocolViolation = core.ErrProtocolViolation
)

// Ok creates a Result carrying an element.
func Ok[T any](value T) Result[T] {
	return core.Ok(value)
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return core.Err[T](err)
}

// EndOfStream creates the end-of-stream sentinel.
func EndOfStream[T any]() Result[T] {
	return core.EndOfStream[T]()
}

// Map creates a Mapper from a simple transformation function.
func Map[IN, OUT any](mapFunc func(IN) (OUT, error)) Mapper[IN, OUT] {
	return core.Map(mapFunc)
}

// Fibonacci returns a Source of 1, 1, 2, 3, 5, ... bounded by limit.
func Fibonacci(limit sequence.Limit) *sequence.Source {
	return sequence.New(limit)
}

// BigInts adapts a Fibonacci source to the generic Stream interface.
func BigInts(src *sequence.Source) Stream[*big.Int] {
	return src
}

// Terminal operations.

// Slice collects all stream values into a slice.
func Slice[T any](ctx context.Context, in Stream[T]) ([]T, error) {
	return core.Slice(ctx, in)
}

// First returns the first value from the stream and closes it.
func First[T any](ctx context.Context, in Stream[T]) (T, error) {
	return core.First(ctx, in)
}

// Run drives the stream for side effects only.
func Run[T any](ctx context.Context, in Stream[T]) error {
	return core.Run(ctx, in)
}

// Drain passes every element to fn.
func Drain[T any](ctx context.Context, in Stream[T], fn func(T) error) error {
	return core.Drain(ctx, in, fn)
}

// Collect gathers all Results, including the final one.
func Collect[T any](ctx context.Context, stream Stream[T]) []Result[T] {
	return core.Collect(ctx, stream)
}

// All returns an iterator over the stream's Results.
func All[T any](ctx context.Context, stream Stream[T]) iter.Seq[Result[T]] {
	return core.All(ctx, stream)
}

// Values returns an iterator over the stream's elements.
func Values[T any](ctx context.Context, stream Stream[T]) iter.Seq2[T, error] {
	return core.Values(ctx, stream)
}

// Transmit creates a Transmitter from a stage constructor.
func Transmit[IN, OUT any](transmitter func(Stream[IN]) Stream[OUT]) Transmitter[IN, OUT] {
	return core.Transmit(transmitter)
}

// Guard enforces the stage protocol on in.
func Guard[T any](name string, in Stream[T]) Stream[T] {
	return core.Guard(name, in)
}
