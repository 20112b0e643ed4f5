package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Instruments are the OpenTelemetry instruments recorded by Instrument.
type Instruments struct {
	Values  metric.Int64Counter
	Errors  metric.Int64Counter
	Pull    metric.Float64Histogram
	Stopped metric.Int64Counter
}

// NewInstruments creates the instruments for a pipeline under prefix, e.g.
// "fibflow.stream" yields "fibflow.stream.values".
func NewInstruments(meter metric.Meter, prefix string) (*Instruments, error) {
	values, err := meter.Int64Counter(prefix+".values", metric.WithDescription("elements forwarded"))
	if err != nil {
		return nil, fmt.Errorf("create values counter: %w", err)
	}
	errs, err := meter.Int64Counter(prefix+".errors", metric.WithDescription("failures forwarded"))
	if err != nil {
		return nil, fmt.Errorf("create errors counter: %w", err)
	}
	pull, err := meter.Float64Histogram(prefix+".pull.duration",
		metric.WithDescription("time to answer one unit of demand"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create pull histogram: %w", err)
	}
	stopped, err := meter.Int64Counter(prefix+".stopped", metric.WithDescription("pipelines stopped, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create stopped counter: %w", err)
	}
	return &Instruments{Values: values, Errors: errs, Pull: pull, Stopped: stopped}, nil
}

// Instrument creates a Transformer recording every pull of the stream on
// inst. stage is attached to every measurement as the "stage" attribute.
func Instrument[T any](inst *Instruments, stage string) core.Transformer[T, T] {
	attrs := metric.WithAttributes(attribute.String("stage", stage))
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &instrumented[T]{in: in, inst: inst, attrs: attrs}
	})
}

type instrumented[T any] struct {
	in      core.Stream[T]
	inst    *Instruments
	attrs   metric.MeasurementOption
	stopped bool
}

func (s *instrumented[T]) Pull(ctx context.Context) core.Result[T] {
	start := time.Now()
	res := s.in.Pull(ctx)
	if s.stopped {
		return res
	}
	s.inst.Pull.Record(ctx, time.Since(start).Seconds(), s.attrs)
	switch {
	case res.IsValue():
		s.inst.Values.Add(ctx, 1, s.attrs)
	case res.IsError():
		s.inst.Errors.Add(ctx, 1, s.attrs)
		s.stop(ctx, "failed")
	case res.IsEndOfStream():
		s.stop(ctx, "exhausted")
	}
	return res
}

func (s *instrumented[T]) Close() error {
	s.stop(context.Background(), "closed")
	return s.in.Close()
}

func (s *instrumented[T]) stop(ctx context.Context, outcome string) {
	if s.stopped {
		return
	}
	s.stopped = true
	s.inst.Stopped.Add(ctx, 1, s.attrs, metric.WithAttributes(attribute.String("outcome", outcome)))
}
