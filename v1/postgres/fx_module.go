package postgres

import (
	"context"

	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

// FXModule provides *Postgres and Client and keeps the connection monitored
// for the application's lifetime.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    postgres.FXModule,
//	    fx.Provide(func() postgres.Config {
//	        return loadPostgresConfig()
//	    }),
//	)
//
// Dependencies required by this module:
// - A postgres.Config instance
// - A logger.Logger instance
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresClientWithDI,
		func(pg *Postgres) Client { return pg },
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// PostgresParams groups the dependencies of NewPostgresClientWithDI.
type PostgresParams struct {
	fx.In

	Config Config
	Logger logger.Logger
}

// NewPostgresClientWithDI connects using the injected Config and Logger.
func NewPostgresClientWithDI(params PostgresParams) (*Postgres, error) {
	return NewPostgres(params.Config, params.Logger)
}

// PostgresLifeCycleParams groups the dependencies of RegisterPostgresLifecycle.
type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle starts MonitorConnection and RetryConnection on
// start. On stop it signals shutdown, waits for both loops and closes the
// pool.
//
// The loops run on their own context: the OnStart context ends as soon as
// the application has started.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	var (
		group  *errgroup.Group
		cancel context.CancelFunc
	)

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			group, ctx = errgroup.WithContext(ctx)

			group.Go(func() error {
				params.Postgres.MonitorConnection(ctx)
				return nil
			})
			group.Go(func() error {
				params.Postgres.RetryConnection(ctx)
				return nil
			})
			return nil
		},
		OnStop: func(context.Context) error {
			params.Postgres.closeShutdownOnce.Do(func() {
				close(params.Postgres.shutdownSignal)
			})
			cancel()
			_ = group.Wait()

			params.Postgres.closeRetryChanOnce.Do(func() {
				close(params.Postgres.retryChanSignal)
			})
			return params.Postgres.closePool()
		},
	})
}
