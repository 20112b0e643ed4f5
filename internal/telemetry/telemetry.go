// Package telemetry sets up OpenTelemetry metric and trace export over
// OTLP/HTTP for the fibstream command.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/lguimbarda/fibflow/internal/config"
)

// InstrumentationName names the meter and tracer used by fibstream.
const InstrumentationName = "github.com/lguimbarda/fibflow"

// Service identifies the process in exported telemetry.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Shutdown flushes and stops the providers installed by Setup.
type Shutdown func(context.Context) error

// NewResource describes svc for exported telemetry.
func NewResource(ctx context.Context, svc Service) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(svc.Name),
			semconv.ServiceVersion(svc.Version),
			attribute.String("environment", svc.Environment),
		),
	)
}

// InitMeter installs a global meter provider exporting to endpoint every
// interval.
func InitMeter(ctx context.Context, res *resource.Resource, endpoint string, insecure bool, interval time.Duration) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// InitTracer installs a global tracer provider exporting to endpoint.
func InitTracer(ctx context.Context, res *resource.Resource, endpoint string, insecure bool) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Setup installs metric and trace export when cfg names an endpoint. With
// no endpoint the global no-op providers stay in place and the returned
// Shutdown does nothing.
func Setup(ctx context.Context, cfg config.TelemetryConfig, name, version string) (Shutdown, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := NewResource(ctx, Service{Name: name, Version: version, Environment: cfg.Environment})
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	mp, err := InitMeter(ctx, res, cfg.Endpoint, cfg.Insecure, 15*time.Second)
	if err != nil {
		return nil, err
	}
	tp, err := InitTracer(ctx, res, cfg.Endpoint, cfg.Insecure)
	if err != nil {
		return nil, errors.Join(err, mp.Shutdown(ctx))
	}

	zerolog.Ctx(ctx).Debug().
		Str("endpoint", cfg.Endpoint).
		Str("environment", cfg.Environment).
		Msg("telemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Meter returns fibstream's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// StartSpan starts a span on fibstream's tracer from the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name, opts...)
}
