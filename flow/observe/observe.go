// Package observe provides pass-through stages and context hooks for
// monitoring pipelines: counts, timings, logging and OpenTelemetry metrics.
// None of them change the elements or the demand that flows through them.
package observe

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Spy creates a Transformer that calls inspect with every Result it forwards,
// including the final sentinel or failure. done, if non-nil, runs once when
// the stage stops: after its last Result or when it is closed, whichever
// comes first.
func Spy[T any](inspect func(core.Result[T]), done func()) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &spy[T]{in: in, inspect: inspect, done: done}
	})
}

type spy[T any] struct {
	in       core.Stream[T]
	inspect  func(core.Result[T])
	done     func()
	finished bool
}

func (s *spy[T]) Pull(ctx context.Context) core.Result[T] {
	res := s.in.Pull(ctx)
	if s.finished {
		return res
	}
	if s.inspect != nil {
		s.inspect(res)
	}
	if !res.IsValue() {
		s.finish()
	}
	return res
}

func (s *spy[T]) Close() error {
	s.finish()
	return s.in.Close()
}

func (s *spy[T]) finish() {
	if s.finished {
		return
	}
	s.finished = true
	if s.done != nil {
		s.done()
	}
}

// StreamMetrics holds statistics about a stream's execution.
type StreamMetrics struct {
	ValueCount    int64
	ErrorCount    int64
	SentinelCount int64

	StartTime     time.Time
	EndTime       time.Time
	FirstItemTime time.Time
	LastItemTime  time.Time

	ItemsPerSecond float64

	// Latency is the time between consecutive values.
	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration
}

// Meter creates a Transformer that collects metrics about the stream.
// onComplete receives the final metrics once the stream ends, fails, or is
// closed.
func Meter[T any](onComplete func(StreamMetrics)) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		var (
			metrics      = StreamMetrics{StartTime: time.Now()}
			totalLatency time.Duration
			latencies    int64
		)
		inspect := func(res core.Result[T]) {
			switch {
			case res.IsError():
				metrics.ErrorCount++
				return
			case res.IsSentinel():
				metrics.SentinelCount++
				return
			}
			now := time.Now()
			if metrics.ValueCount == 0 {
				metrics.FirstItemTime = now
			} else {
				latency := now.Sub(metrics.LastItemTime)
				if latencies == 0 || latency < metrics.MinLatency {
					metrics.MinLatency = latency
				}
				if latency > metrics.MaxLatency {
					metrics.MaxLatency = latency
				}
				totalLatency += latency
				latencies++
			}
			metrics.LastItemTime = now
			metrics.ValueCount++
		}
		done := func() {
			metrics.EndTime = time.Now()
			if seconds := metrics.EndTime.Sub(metrics.StartTime).Seconds(); seconds > 0 {
				metrics.ItemsPerSecond = float64(metrics.ValueCount) / seconds
			}
			if latencies > 0 {
				metrics.AvgLatency = totalLatency / time.Duration(latencies)
			}
			if onComplete != nil {
				onComplete(metrics)
			}
		}
		return Spy(inspect, done).Apply(in)
	})
}

// LiveMetrics holds metrics that can be read from other goroutines while the
// stream is running.
type LiveMetrics struct {
	valueCount   atomic.Int64
	errorCount   atomic.Int64
	startTime    atomic.Int64 // Unix nano
	lastItemTime atomic.Int64 // Unix nano
}

// ValueCount returns the number of values forwarded.
func (m *LiveMetrics) ValueCount() int64 { return m.valueCount.Load() }

// ErrorCount returns the number of failures forwarded.
func (m *LiveMetrics) ErrorCount() int64 { return m.errorCount.Load() }

// StartTime returns when the stream was first pulled.
func (m *LiveMetrics) StartTime() time.Time {
	return time.Unix(0, m.startTime.Load())
}

// LastItemTime returns when the last value was forwarded.
func (m *LiveMetrics) LastItemTime() time.Time {
	return time.Unix(0, m.lastItemTime.Load())
}

// Duration returns how long the stream has been running.
func (m *LiveMetrics) Duration() time.Duration {
	start := m.startTime.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}

// ItemsPerSecond returns the current throughput.
func (m *LiveMetrics) ItemsPerSecond() float64 {
	duration := m.Duration().Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(m.ValueCount()) / duration
}

// MeterLive creates a Transformer that updates metrics as elements pass.
func MeterLive[T any](metrics *LiveMetrics) core.Transformer[T, T] {
	return Spy(func(res core.Result[T]) {
		now := time.Now().UnixNano()
		metrics.startTime.CompareAndSwap(0, now)
		switch {
		case res.IsValue():
			metrics.valueCount.Add(1)
			metrics.lastItemTime.Store(now)
		case res.IsError():
			metrics.errorCount.Add(1)
		}
	}, nil)
}
