// Package observability installs the OpenTelemetry tracer provider.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lifeembedding/lifeembedding/config"
	"github.com/lifeembedding/lifeembedding/internal"
)

var log = internal.GetLogger()

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer exports spans over OTLP/HTTP when tracing is enabled. When it is
// disabled the global no-op provider is left in place and the returned
// ShutdownFunc does nothing.
func InitTracer(ctx context.Context, cfg *config.Config) (ShutdownFunc, error) {
	tracing := cfg.Tracing
	if !tracing.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracehttp.Option
	if tracing.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(tracing.Endpoint))
	}
	if tracing.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", tracing.ServiceName),
			attribute.String("service.version", config.VersionString),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)

	log.Infof("tracing enabled, exporting to %s", endpointOrDefault(tracing.Endpoint))

	return tp.Shutdown, nil
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "the default OTLP endpoint"
	}
	return endpoint
}
