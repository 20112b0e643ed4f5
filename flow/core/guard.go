package core

import (
	"context"
	"fmt"
)

// Guard wraps a stream and enforces the stage protocol on it: once the
// stream has answered end-of-stream or a failure, any later element is an
// ErrProtocolViolation. The violation is fatal: the guarded stream is
// closed and the violation is returned from then on.
func Guard[T any](name string, in Stream[T]) Stream[T] {
	return &guard[T]{name: name, in: in}
}

type guard[T any] struct {
	name  string
	in    Stream[T]
	ended bool
	err   error
}

func (g *guard[T]) Pull(ctx context.Context) Result[T] {
	if g.err != nil {
		return Err[T](g.err)
	}
	res := g.in.Pull(ctx)
	switch {
	case res.IsValue() && g.ended:
		g.err = fmt.Errorf("%w: %s emitted after end of stream", ErrProtocolViolation, g.name)
		_ = g.in.Close()
		return Err[T](g.err)
	case res.IsEndOfStream():
		g.ended = true
	case res.IsError():
		g.ended = true
	}
	return res
}

func (g *guard[T]) Close() error {
	return g.in.Close()
}
