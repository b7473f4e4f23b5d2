package postgres

import (
	"context"
)

// Create inserts value, a pointer to a model or a slice of models.
func (p *Postgres) Create(ctx context.Context, value interface{}) error {
	return TranslateError(p.DB().WithContext(ctx).Create(value).Error)
}

// Save updates value by primary key, inserting it when the key is zero.
func (p *Postgres) Save(ctx context.Context, value interface{}) error {
	return TranslateError(p.DB().WithContext(ctx).Save(value).Error)
}

// Exec runs a raw statement and returns the number of rows affected.
func (p *Postgres) Exec(ctx context.Context, sql string, values ...interface{}) (int64, error) {
	result := p.DB().WithContext(ctx).Exec(sql, values...)
	return result.RowsAffected, TranslateError(result.Error)
}

// AutoMigrate creates or updates the tables of models.
func (p *Postgres) AutoMigrate(ctx context.Context, models ...interface{}) error {
	return p.DB().WithContext(ctx).AutoMigrate(models...)
}
