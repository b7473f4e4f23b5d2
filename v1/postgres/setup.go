package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

// Postgres is a wrapper around gorm.DB that provides connection monitoring,
// automatic reconnection and the entry point to query collections.
//
// Concurrency: the active *gorm.DB is stored in an atomic pointer and can be
// swapped during reconnection without blocking readers.
type Postgres struct {
	cfg             Config
	log             logger.Logger
	client          atomic.Pointer[gorm.DB]
	shutdownSignal  chan struct{}
	retryChanSignal chan error

	closeRetryChanOnce *sync.Once
	closeShutdownOnce  *sync.Once
}

// NewPostgres connects to the database described by cfg.
//
// Example:
//
//	pg, err := postgres.NewPostgres(cfg, log)
//	if err != nil {
//	    return err
//	}
//	users := pg.Manager(&User{}, userFilters)
func NewPostgres(cfg Config, log logger.Logger) (*Postgres, error) {
	conn, err := connectToPostgres(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to postgres: %w", err)
	}

	pg := newPostgres(cfg, log)
	pg.client.Store(conn)
	return pg, nil
}

// NewFromDB wraps an already opened gorm handle, such as a DryRun session in
// tests. It carries no connection config, so the monitor loops must not be
// started for it.
func NewFromDB(db *gorm.DB, log logger.Logger) *Postgres {
	pg := newPostgres(Config{}, log)
	pg.client.Store(db)
	return pg
}

func newPostgres(cfg Config, log logger.Logger) *Postgres {
	return &Postgres{
		cfg:                cfg,
		log:                log,
		shutdownSignal:     make(chan struct{}),
		retryChanSignal:    make(chan error, 1),
		closeRetryChanOnce: &sync.Once{},
		closeShutdownOnce:  &sync.Once{},
	}
}

// DB returns the current gorm handle.
func (p *Postgres) DB() *gorm.DB {
	return p.client.Load()
}

// connectToPostgres opens the connection and configures the pool.
func connectToPostgres(cfg Config, log logger.Logger) (*gorm.DB, error) {
	database, err := gorm.Open(
		postgres.Open(cfg.Connection.DSN()),
		&gorm.Config{
			TranslateError: true,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	databaseInstance, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL database instance: %w", err)
	}

	details := cfg.ConnectionDetails.withDefaults()
	databaseInstance.SetMaxOpenConns(details.MaxOpenConns)
	databaseInstance.SetMaxIdleConns(details.MaxIdleConns)
	databaseInstance.SetConnMaxLifetime(details.ConnMaxLifetime)

	log.Info("Successfully connected to PostgreSQL database", nil, map[string]interface{}{
		"host":     cfg.Connection.Host,
		"database": cfg.Connection.DbName,
	})

	return database, nil
}

// RetryConnection waits for failure signals from MonitorConnection and
// reconnects until it succeeds, the context ends or shutdown is requested.
//
// It runs two nested loops:
// - The outer loop waits for retry signals
// - The inner loop attempts reconnection until successful
func (p *Postgres) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-p.shutdownSignal:
			p.log.Info("Stopping RetryConnection loop due to shutdown signal", nil)
			return
		case <-ctx.Done():
			return
		case _, ok := <-p.retryChanSignal:
			if !ok {
				return
			}
		innerLoop:
			for {
				select {
				case <-p.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
					newConn, err := connectToPostgres(p.cfg, p.log)
					if err != nil {
						p.log.Error("PostgreSQL reconnection failed", err)
						time.Sleep(time.Second)
						continue innerLoop
					}
					p.client.Store(newConn)
					p.log.Info("Successfully reconnected to PostgreSQL database", nil)
					continue outerLoop
				}
			}
		}
	}
}

// MonitorConnection pings the database every HealthCheckInterval and signals
// RetryConnection when a ping fails.
func (p *Postgres) MonitorConnection(ctx context.Context) {
	defer p.closeRetryChanOnce.Do(func() {
		close(p.retryChanSignal)
	})

	ticker := time.NewTicker(p.cfg.ConnectionDetails.withDefaults().HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdownSignal:
			p.log.Info("Stopping MonitorConnection loop due to shutdown signal", nil)
			return
		case <-ticker.C:
			if err := p.healthCheck(ctx); err != nil {
				p.log.Warn("PostgreSQL health check failed", err)
				select {
				case p.retryChanSignal <- err:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// healthCheck pings the current connection with a 5 second timeout.
func (p *Postgres) healthCheck(ctx context.Context) error {
	dbConn := p.DB()
	if dbConn == nil {
		return fmt.Errorf("database client is not initialized")
	}

	db, err := dbConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// GracefulShutdown stops the background loops and closes the pool.
// retryChanSignal is closed by MonitorConnection, its only sender, on exit.
func (p *Postgres) GracefulShutdown() error {
	p.closeShutdownOnce.Do(func() {
		close(p.shutdownSignal)
	})

	return p.closePool()
}

func (p *Postgres) closePool() error {
	db := p.DB()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		// No *sql.DB pool to close.
		return nil
	}
	return sqlDB.Close()
}
