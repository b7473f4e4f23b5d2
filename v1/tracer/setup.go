package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

// instrumentationName names the tracer spans are created with.
const instrumentationName = "github.com/Aleph-Alpha/flexquery"

// Tracer owns the OpenTelemetry tracer provider of the process.
type Tracer struct {
	tracer *trace.TracerProvider
	logger logger.Logger
}

// NewClient builds a tracer provider with the service resource attributes,
// installs it as the global provider together with the W3C trace context and
// baggage propagators, and returns it wrapped.
//
// With cfg.EnableExport spans are batched to an OTLP/HTTP exporter.
func NewClient(cfg Config, log logger.Logger) (*Tracer, error) {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient())
		if err != nil {
			return nil, fmt.Errorf("cannot initiate tracer exporter: %w", err)
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	tp := trace.NewTracerProvider(options...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Info("Tracer initialized", nil, map[string]interface{}{
		"service": cfg.ServiceName,
		"export":  cfg.EnableExport,
	})

	return &Tracer{tracer: tp, logger: log}, nil
}

// NewWithProvider wraps an existing provider without touching the globals.
// Tests use it with an in-memory span recorder.
func NewWithProvider(tp *trace.TracerProvider, log logger.Logger) *Tracer {
	return &Tracer{tracer: tp, logger: log}
}

// Shutdown flushes and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
