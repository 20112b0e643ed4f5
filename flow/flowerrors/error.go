package flowerrors

import (
	"context"

	"github.com/lguimbarda/fibflow/flow/core"
)

// OnError creates a Transformer that calls handler with the failure that
// stops the stream. The failure still passes through.
func OnError[T any](handler func(error)) core.Transformer[T, T] {
	return MapErrors[T](func(err error) error {
		handler(err)
		return err
	})
}

// MapErrors creates a Transformer that rewrites the failure that stops the
// stream. Returning nil from mapper keeps the original error.
func MapErrors[T any](mapper func(error) error) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &mapErrors[T]{in: in, mapper: mapper}
	})
}

type mapErrors[T any] struct {
	in     core.Stream[T]
	mapper func(error) error
	err    error
}

func (m *mapErrors[T]) Pull(ctx context.Context) core.Result[T] {
	if m.err != nil {
		return core.Err[T](m.err)
	}
	res := m.in.Pull(ctx)
	if !res.IsError() {
		return res
	}
	m.err = res.Error()
	if mapped := m.mapper(m.err); mapped != nil {
		m.err = mapped
	}
	return core.Err[T](m.err)
}

func (m *mapErrors[T]) Close() error {
	return m.in.Close()
}

// Recover creates a Transformer that turns the failure that stops the
// stream into a final element. If recoverFn returns an error it propagates
// instead. Either way the stream is over: the failed upstream has already
// been closed, so a recovered stream ends right after the recovered element.
func Recover[T any](recoverFn func(error) (T, error)) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &recoverStream[T]{in: in, recoverFn: recoverFn}
	})
}

type recoverStream[T any] struct {
	in        core.Stream[T]
	recoverFn func(error) (T, error)
	recovered bool
	err       error
}

func (r *recoverStream[T]) Pull(ctx context.Context) core.Result[T] {
	switch {
	case r.err != nil:
		return core.Err[T](r.err)
	case r.recovered:
		return core.EndOfStream[T]()
	}
	res := r.in.Pull(ctx)
	if !res.IsError() {
		return res
	}
	v, err := core.Protect("recover", func() (T, error) {
		return r.recoverFn(res.Error())
	})
	if err != nil {
		r.err = err
		return core.Err[T](err)
	}
	r.recovered = true
	return core.Ok(v)
}

func (r *recoverStream[T]) Close() error {
	return r.in.Close()
}

// FallbackValue creates a Transformer that ends a failed stream with
// value instead of the failure.
func FallbackValue[T any](value T) core.Transformer[T, T] {
	return Recover(func(error) (T, error) {
		return value, nil
	})
}
