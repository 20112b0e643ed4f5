package observe_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lguimbarda/fibflow/flow"
	"github.com/lguimbarda/fibflow/flow/filter"
	"github.com/lguimbarda/fibflow/flow/observe"
	"github.com/lguimbarda/fibflow/flow/sequence"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected an int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrument(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst, err := observe.NewInstruments(provider.Meter("fibflow/test"), "fibflow.stream")
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}

	src := sequence.New(sequence.Unbounded())
	s := filter.Take[*big.Int](4).Apply(observe.Instrument[*big.Int](inst, "source").Apply(src))
	if err := flow.Run(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := collect(t, reader)
	if v := sumOf(t, got["fibflow.stream.values"]); v != 4 {
		t.Errorf("expected 4 values, got %d", v)
	}
	if _, ok := got["fibflow.stream.errors"]; ok {
		t.Errorf("expected no errors recorded")
	}

	stopped := got["fibflow.stream.stopped"].(metricdata.Sum[int64])
	if len(stopped.DataPoints) != 1 {
		t.Fatalf("expected one stop, got %d", len(stopped.DataPoints))
	}
	outcome, _ := stopped.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
	if outcome.AsString() != "closed" {
		t.Errorf("expected outcome closed, got %q", outcome.AsString())
	}

	pulls, ok := got["fibflow.stream.pull.duration"].(metricdata.Histogram[float64])
	if !ok || len(pulls.DataPoints) != 1 || pulls.DataPoints[0].Count != 4 {
		t.Errorf("expected 4 pull durations, got %+v", got["fibflow.stream.pull.duration"])
	}
}

func TestInstrument_Failure(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst, err := observe.NewInstruments(provider.Meter("fibflow/test"), "fibflow.stream")
	if err != nil {
		t.Fatalf("instruments: %v", err)
	}

	boom := errors.New("boom")
	s := observe.Instrument[int](inst, "map").Apply(flow.Concat(flow.Once(1), flow.FromError[int](boom)))
	if err := flow.Run(context.Background(), s); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got := collect(t, reader)
	if v := sumOf(t, got["fibflow.stream.errors"]); v != 1 {
		t.Errorf("expected 1 error, got %d", v)
	}
	stopped := got["fibflow.stream.stopped"].(metricdata.Sum[int64])
	outcome, _ := stopped.DataPoints[0].Attributes.Value(attribute.Key("outcome"))
	if outcome.AsString() != "failed" {
		t.Errorf("expected outcome failed, got %q", outcome.AsString())
	}
}

func TestNewInstruments_Noop(t *testing.T) {
	inst, err := observe.NewInstruments(noop.NewMeterProvider().Meter("noop"), "fibflow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := flow.Slice(context.Background(), observe.Instrument[int](inst, "noop").Apply(flow.Range(0, 3)))
	if err != nil || len(got) != 3 {
		t.Errorf("expected elements to pass through, got %v (%v)", got, err)
	}
}
