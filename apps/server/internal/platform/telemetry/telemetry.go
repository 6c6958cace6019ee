// Package telemetry wires the OpenTelemetry SDK for the repofetch server.
// Instrumented code uses the global otel.Tracer / otel.Meter, so the
// remote-call spans and fetch metrics in pkg/repofiles need no wiring
// beyond calling New once at startup.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "repofetch-server"

const (
	metricInterval = 10 * time.Second
	// Name of the fetch duration histogram recorded by repofiles.Service.
	fetchDurationMetric = "repofetch.fetch.duration"
)

// fetchDurationBuckets in milliseconds. Small repositories finish in well
// under a second, large ones take minutes against a rate-limited API.
var fetchDurationBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 180000}

// Telemetry flushes and closes the SDK providers on Shutdown.
type Telemetry struct {
	Shutdown func(ctx context.Context) error
}

// New registers OTLP/gRPC trace and metric providers globally. With
// enabled=false the global providers stay noops and Shutdown does nothing.
// OTEL_EXPORTER_OTLP_ENDPOINT selects the collector (default localhost:4317).
func New(ctx context.Context, enabled bool) (*Telemetry, error) {
	if !enabled {
		return &Telemetry{Shutdown: func(context.Context) error { return nil }}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(ServiceName())))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{Shutdown: func(ctx context.Context) error {
		return errors.Join(
			wrapShutdown("trace provider", tp.Shutdown(ctx)),
			wrapShutdown("meter provider", mp.Shutdown(ctx)),
		)
	}}, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
		sdkmetric.WithView(fetchDurationView()),
	), nil
}

// fetchDurationView replaces the SDK's default buckets, which top out at
// 10s, for the fetch duration histogram.
func fetchDurationView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: fetchDurationMetric},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: fetchDurationBuckets,
		}},
	)
}

func wrapShutdown(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s shutdown: %w", what, err)
}

// ServiceName returns OTEL_SERVICE_NAME or DefaultServiceName.
func ServiceName() string {
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		return v
	}
	return DefaultServiceName
}
