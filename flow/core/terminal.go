package core

import (
	"context"
	"errors"
)

// Terminal functions are sinks that drive a pipeline: they issue demand one
// element at a time until end-of-stream, a failure, or their own reason to
// stop, and they always close the stream before returning.

// ErrEmptyStream is returned by First when the stream ends without an element.
var ErrEmptyStream = errors.New("stream is empty")

// Drain pulls every element of in and passes it to fn. If fn returns an
// error the stream is closed and the error returned. Hooks registered for T
// on ctx are invoked as elements arrive.
func Drain[T any](ctx context.Context, in Stream[T], fn func(T) error) error {
	hooks := newHookInvoker[T](ctx)
	hooks.start()
	defer hooks.complete()
	defer in.Close()

	for {
		res := in.Pull(ctx)
		switch {
		case res.IsValue():
			hooks.value(res.Value())
			if err := fn(res.Value()); err != nil {
				return err
			}
		case res.IsError():
			hooks.fail(res.Error())
			return res.Error()
		case res.IsSentinel():
			hooks.sentinel(res.Sentinel())
			if res.IsEndOfStream() {
				return nil
			}
		}
	}
}

// Slice collects all elements. Only use it on bounded pipelines.
func Slice[T any](ctx context.Context, in Stream[T]) ([]T, error) {
	var out []T
	err := Drain(ctx, in, func(v T) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// errStop ends a Drain early without reporting an error.
var errStop = errors.New("stop")

// First returns the first element and closes the stream.
func First[T any](ctx context.Context, in Stream[T]) (T, error) {
	var (
		first T
		found bool
	)
	err := Drain(ctx, in, func(v T) error {
		first, found = v, true
		return errStop
	})
	switch {
	case errors.Is(err, errStop):
		return first, nil
	case err != nil:
		return first, err
	case !found:
		return first, ErrEmptyStream
	}
	return first, nil
}

// Run drives the stream for its side effects.
func Run[T any](ctx context.Context, in Stream[T]) error {
	return Drain(ctx, in, func(T) error { return nil })
}
