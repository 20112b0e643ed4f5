// Package timing provides time-based stages. Waiting happens inside Pull,
// so a slow stage slows its producer instead of buffering ahead of it.
package timing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lguimbarda/fibflow/flow/core"
)

// ErrTimeout is returned when upstream does not answer a pull in time.
var ErrTimeout = errors.New("pull timed out")

// Pace creates a Transformer that forwards at most one element per
// interval. The first element is forwarded immediately; later pulls wait
// until interval has passed since the previous element, and only then ask
// upstream for the next one. An upstream that has already ended is not
// waited for. Cancelling the pull's context ends the wait.
func Pace[T any](interval time.Duration) core.Transformer[T, T] {
	return DelayWhen(func(T) time.Duration { return interval })
}

// DelayWhen is Pace with the interval chosen by the previous element.
func DelayWhen[T any](delayFn func(T) time.Duration) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &pace[T]{Link: core.NewLink(in), delayFn: delayFn}
	})
}

type pace[T any] struct {
	core.Link[T]
	delayFn func(T) time.Duration
	next    time.Time
}

func (p *pace[T]) Pull(ctx context.Context) core.Result[T] {
	if !p.Open() {
		return p.Halted()
	}
	if !p.UpstreamExhausted() {
		if err := sleepUntil(ctx, p.next); err != nil {
			p.Fail(err)
			return core.Err[T](err)
		}
	}
	res := p.Next(ctx)
	if res.IsValue() {
		d, err := core.Protect("pace", func() (time.Duration, error) {
			return p.delayFn(res.Value()), nil
		})
		if err != nil {
			p.Fail(err)
			return core.Err[T](err)
		}
		p.next = time.Now().Add(d)
	}
	return res
}

func sleepUntil(ctx context.Context, t time.Time) error {
	wait := time.Until(t)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Timeout creates a Transformer that gives upstream at most d to answer
// each pull. Upstream sees a context with that deadline; stages honoring
// it give up and the stream fails with ErrTimeout.
func Timeout[T any](d time.Duration) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &timeout[T]{Link: core.NewLink(in), d: d}
	})
}

type timeout[T any] struct {
	core.Link[T]
	d   time.Duration
	err error
}

func (s *timeout[T]) Pull(ctx context.Context) core.Result[T] {
	if s.err != nil {
		return core.Err[T](s.err)
	}
	if !s.Open() {
		return s.Halted()
	}
	pullCtx, cancel := context.WithTimeout(ctx, s.d)
	defer cancel()

	res := s.Next(pullCtx)
	if res.IsError() && errors.Is(res.Error(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.err = fmt.Errorf("%w after %s: %w", ErrTimeout, s.d, res.Error())
		return core.Err[T](s.err)
	}
	return res
}

// Timestamped pairs an element with the time it was forwarded.
type Timestamped[T any] struct {
	Value T
	Time  time.Time
}

// Stamped creates a Transformer that wraps each element with the time it
// was received.
func Stamped[T any]() core.Mapper[T, Timestamped[T]] {
	return core.Map(func(v T) (Timestamped[T], error) {
		return Timestamped[T]{Value: v, Time: time.Now()}, nil
	})
}

// TimeInterval pairs an element with the time since the previous one.
type TimeInterval[T any] struct {
	Value    T
	Interval time.Duration
}

// Elapsed creates a Transformer that wraps each element with the time
// since the previous element, or since the first pull for the first one.
func Elapsed[T any]() core.Transformer[T, TimeInterval[T]] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[TimeInterval[T]] {
		return &elapsed[T]{Link: core.NewLink(in)}
	})
}

type elapsed[T any] struct {
	core.Link[T]
	last time.Time
}

func (e *elapsed[T]) Pull(ctx context.Context) core.Result[TimeInterval[T]] {
	if e.last.IsZero() {
		e.last = time.Now()
	}
	res := e.Next(ctx)
	if !res.IsValue() {
		return core.Recast[TimeInterval[T]](res)
	}
	now := time.Now()
	item := TimeInterval[T]{Value: res.Value(), Interval: now.Sub(e.last)}
	e.last = now
	return core.Ok(item)
}
