// Package logger provides structured logging for flexquery components.
//
// It wraps go.uber.org/zap with a small, fixed call shape: a message, an
// optional error and optional field maps.
//
// # Architecture
//
//   - Logger interface: the contract components depend on
//   - LoggerClient struct: the zap-backed implementation
//   - NewLoggerClient constructor: returns *LoggerClient
//   - FXModule: provides both *LoggerClient and Logger
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "flexquery",
//		EnableTracing: true,
//	})
//
//	log.Info("Filter bound", nil, map[string]interface{}{
//		"filter": "adults",
//	})
//
//	// Adds trace_id and span_id of the active span.
//	log.ErrorWithContext(ctx, "Query failed", err)
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Provide(func() logger.Config {
//			return logger.Config{Level: logger.Info, ServiceName: "flexquery"}
//		}),
//	)
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=flexquery
//	LOGGER_ENABLE_TRACING=true
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package logger
