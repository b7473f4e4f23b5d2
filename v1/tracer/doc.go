// Package tracer sets up OpenTelemetry tracing for flexquery components.
//
// NewClient installs a global tracer provider and W3C propagators. The
// postgres backend opens one span per terminal query operation when given a
// *Tracer:
//
//	t, err := tracer.NewClient(tracer.Config{ServiceName: "flexquery"}, log)
//	users := pg.Manager(&User{}, registry).WithTracer(t)
//
// A nil *Tracer is valid and produces no-op spans.
//
// # Configuration
//
//	TRACER_SERVICE_NAME=flexquery
//	APP_ENV=production
//	TRACER_ENABLE_EXPORT=true       # plus OTEL_EXPORTER_OTLP_ENDPOINT etc.
package tracer
