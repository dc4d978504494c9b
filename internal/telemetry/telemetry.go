// Package telemetry wires ghtrack to OpenTelemetry. It is off unless
// GHTRACK_OTEL_ENABLED=true, in which case GraphQL calls, refreshes and
// saves are traced and counted.
//
//	GHTRACK_OTEL_ENABLED=true          turn telemetry on
//	GHTRACK_OTEL_STDOUT=true           print spans and metrics to stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT=host   send to an OTLP/HTTP collector
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT=host
//	                                   metrics collector, if different
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scope = "github.com/steveyegge/ghtrack"

// Settings selects the exporters. The zero value disables telemetry.
type Settings struct {
	Enabled         bool
	Stdout          bool
	Endpoint        string // OTLP/HTTP host:port for traces and metrics
	MetricsEndpoint string // overrides Endpoint for metrics
}

// SettingsFromEnv reads Settings from the environment.
func SettingsFromEnv() Settings {
	return Settings{
		Enabled:         Enabled(),
		Stdout:          os.Getenv("GHTRACK_OTEL_STDOUT") == "true",
		Endpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MetricsEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
	}
}

// Enabled reports whether GHTRACK_OTEL_ENABLED=true.
func Enabled() bool {
	return os.Getenv("GHTRACK_OTEL_ENABLED") == "true"
}

var (
	mu       sync.Mutex
	shutdown []func(context.Context) error
)

// Init installs the global tracer and meter providers for s. With
// telemetry disabled it installs no-op providers.
func Init(ctx context.Context, s Settings, serviceName, version string) error {
	if !s.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return fmt.Errorf("telemetry resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, s, res)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, s, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	mu.Lock()
	shutdown = append(shutdown, tp.Shutdown, mp.Shutdown)
	mu.Unlock()
	return nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = scope
	}
	return otel.Tracer(name)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	if name == "" {
		name = scope
	}
	return otel.Meter(name)
}

// Shutdown flushes pending spans and metrics.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	fns := shutdown
	shutdown = nil
	mu.Unlock()

	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
