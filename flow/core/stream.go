// Package core defines the pull protocol that every fibflow pipeline is
// built on: streams that answer one Result per unit of demand, the demand
// counter and termination signal that pace and stop them, and the terminal
// operations that drive a pipeline to completion.
//
// NOTE: this package should have no dependencies outside the standard
// library, including other flow packages.
package core

import (
	"context"
	"iter"
)

// Stream is a lazy, pull-driven source of elements. Each call to Pull is
// one unit of demand and is answered with exactly one Result: an element,
// end-of-stream, or a terminal failure. Nothing is computed between pulls.
//
// Close is the upstream termination instruction: the stream stops producing,
// releases its state and closes its own upstream. Close is idempotent.
//
// A Stream is driven by a single goroutine.
type Stream[OUT any] interface {
	Pull(context.Context) Result[OUT]
	Close() error
}

// Transformer wraps an upstream Stream in a stage that exposes the same
// pull contract downstream. Transformers compose into pipelines.
type Transformer[IN, OUT any] interface {
	Apply(Stream[IN]) Stream[OUT]
}

// Transmitter is a function that builds a stage around an upstream Stream.
// It implements Transformer.
type Transmitter[IN, OUT any] func(Stream[IN]) Stream[OUT]

// Transmit creates a Transmitter from a stage constructor.
func Transmit[IN, OUT any](transmitter func(Stream[IN]) Stream[OUT]) Transmitter[IN, OUT] {
	return transmitter
}

func (t Transmitter[IN, OUT]) Apply(in Stream[IN]) Stream[OUT] {
	return t(in)
}

// Collect pulls every Result, including the final sentinel or failure, and
// closes the stream.
func Collect[OUT any](ctx context.Context, stream Stream[OUT]) []Result[OUT] {
	defer stream.Close()

	var results []Result[OUT]
	for {
		res := stream.Pull(ctx)
		results = append(results, res)
		if res.IsError() || res.IsEndOfStream() {
			return results
		}
	}
}

// All returns an iterator over the stream's Results, ending after the
// end-of-stream sentinel or the first failure. Breaking out of the loop
// closes the stream.
func All[OUT any](ctx context.Context, stream Stream[OUT]) iter.Seq[Result[OUT]] {
	return func(yield func(Result[OUT]) bool) {
		defer stream.Close()
		for {
			res := stream.Pull(ctx)
			if res.IsEndOfStream() {
				return
			}
			if !yield(res) || res.IsError() {
				return
			}
		}
	}
}

// Values returns an iterator over the stream's elements. A failure is
// yielded once with a zero value and ends the iteration.
func Values[OUT any](ctx context.Context, stream Stream[OUT]) iter.Seq2[OUT, error] {
	return func(yield func(OUT, error) bool) {
		for res := range All(ctx, stream) {
			switch {
			case res.IsValue():
				if !yield(res.Value(), nil) {
					return
				}
			case res.IsError():
				yield(res.Value(), res.Error())
				return
			}
		}
	}
}
