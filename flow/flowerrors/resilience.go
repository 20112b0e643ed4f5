package flowerrors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lguimbarda/fibflow/flow/core"
)

// ErrMaxRetries is returned when an element still fails after all retries.
var ErrMaxRetries = errors.New("max retries exceeded")

// BackoffStrategy computes the delay before retry attempt (0-based).
type BackoffStrategy func(attempt int) time.Duration

// ConstantBackoff returns a BackoffStrategy that always waits the same duration.
func ConstantBackoff(delay time.Duration) BackoffStrategy {
	return func(int) time.Duration {
		return delay
	}
}

// LinearBackoff returns a BackoffStrategy that increases delay linearly.
func LinearBackoff(initialDelay time.Duration) BackoffStrategy {
	return func(attempt int) time.Duration {
		return time.Duration(attempt+1) * initialDelay
	}
}

// ExponentialBackoff returns a BackoffStrategy that doubles delay each attempt,
// capped at maxDelay when maxDelay > 0.
func ExponentialBackoff(initialDelay, maxDelay time.Duration) BackoffStrategy {
	return func(attempt int) time.Duration {
		delay := initialDelay * time.Duration(math.Pow(2, float64(attempt)))
		if maxDelay > 0 && delay > maxDelay {
			return maxDelay
		}
		return delay
	}
}

// Retry creates a Transformer that applies operation to each element,
// retrying it up to maxRetries times when it fails. An element that still
// fails stops the stream with an error wrapping both ErrMaxRetries and the
// last failure.
func Retry[IN, OUT any](maxRetries int, operation func(IN) (OUT, error)) core.Transformer[IN, OUT] {
	return RetryWithBackoff(maxRetries, nil, operation)
}

// RetryWithBackoff is Retry with a delay between attempts. The wait ends
// early if the context passed to Pull is cancelled. A nil backoff retries
// immediately.
func RetryWithBackoff[IN, OUT any](maxRetries int, backoff BackoffStrategy, operation func(IN) (OUT, error)) core.Transformer[IN, OUT] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return core.Transmit(func(in core.Stream[IN]) core.Stream[OUT] {
		return &retry[IN, OUT]{Link: core.NewLink(in), maxRetries: maxRetries, backoff: backoff, operation: operation}
	})
}

type retry[IN, OUT any] struct {
	core.Link[IN]
	maxRetries int
	backoff    BackoffStrategy
	operation  func(IN) (OUT, error)
}

func (r *retry[IN, OUT]) Pull(ctx context.Context) core.Result[OUT] {
	res := r.Next(ctx)
	if !res.IsValue() {
		return core.Recast[OUT](res)
	}
	out, err := r.attempt(ctx, res.Value())
	if err != nil {
		r.Fail(err)
		return core.Err[OUT](err)
	}
	return core.Ok(out)
}

func (r *retry[IN, OUT]) attempt(ctx context.Context, v IN) (OUT, error) {
	var (
		out     OUT
		lastErr error
	)
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 && r.backoff != nil {
			timer := time.NewTimer(r.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return out, ctx.Err()
			case <-timer.C:
			}
		}
		out, lastErr = core.Protect("retry", func() (OUT, error) {
			return r.operation(v)
		})
		if lastErr == nil {
			return out, nil
		}
	}
	return out, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, r.maxRetries+1, lastErr)
}
