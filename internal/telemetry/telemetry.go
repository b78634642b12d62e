// Package telemetry wires OpenTelemetry tracing for the tutor.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used by the tutoring loop.
const InstrumentationName = "github.com/Pavansyamala/agenticAItutor"

// Config configures trace export. An empty endpoint disables it.
type Config struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"agentic-tutor"`
	Insecure    bool   `env:"INSECURE" envDefault:"false"`
}

// Setup initialises OpenTelemetry tracing.
//
// Tracing is opt-in: when cfg.Endpoint is empty Setup returns a no-op
// shutdown function and no global provider is registered, so Tracer yields
// no-op spans.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		return noop, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "agentic-tutor"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
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

// Tracer returns the tutor's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
