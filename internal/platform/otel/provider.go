// Package otel wires opt-in OpenTelemetry tracing for steppe binaries.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/steppesim/steppe/internal/platform/config"
)

type settings struct {
	Enabled  bool   `env:"STEPPE_OTEL_ENABLED" envDefault:"true"`
	Endpoint string `env:"STEPPE_OTEL_ENDPOINT"`
}

// Setup initialises OpenTelemetry tracing for the given binary.
//
// Tracing is opt-in: when STEPPE_OTEL_ENDPOINT is empty or
// STEPPE_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and no global provider is registered. Batch sweeps and the visualization
// server create spans through the global tracer, so unconfigured runs pay
// nothing.
//
// The returned shutdown function flushes pending spans and should be
// deferred by the caller.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg settings
	if err := config.ParseEnv(&cfg); err != nil {
		return noop, err
	}
	if !cfg.Enabled || cfg.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
