package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
)

// Client is the interface of the PostgreSQL backend. Depend on it rather
// than on *Postgres where a fake is needed.
type Client interface {
	// Manager returns the entry point to the rows of model.
	Manager(model any, registry *flexquery.Registry, opts ...ManagerOption) *Manager

	// Basic writes
	Create(ctx context.Context, value interface{}) error
	Save(ctx context.Context, value interface{}) error
	Exec(ctx context.Context, sql string, values ...interface{}) (int64, error)
	AutoMigrate(ctx context.Context, models ...interface{}) error

	// Transaction support
	Transaction(ctx context.Context, fn func(tx *Postgres) error) error

	// Raw GORM access for advanced use cases
	DB() *gorm.DB

	// TranslateError normalizes gorm and driver errors to the package sentinels.
	TranslateError(err error) error

	// Lifecycle management
	GracefulShutdown() error
}

var _ Client = (*Postgres)(nil)
