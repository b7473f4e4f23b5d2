package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

// FXModule provides *Tracer and shuts the provider down on stop.
//
// Dependencies required by this module:
// - A tracer.Config instance
// - A logger.Logger instance
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle flushes pending spans when the application stops.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer, log logger.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down tracer", nil)
			return tracer.Shutdown(ctx)
		},
	})
}
