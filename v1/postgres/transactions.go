package postgres

import (
	"context"

	"gorm.io/gorm"
)

// cloneWithTx returns a Postgres whose handle is tx. It shares the shutdown
// plumbing of p, so shutting either down stops the same loops.
func (p *Postgres) cloneWithTx(tx *gorm.DB) *Postgres {
	clone := &Postgres{
		cfg:                p.cfg,
		log:                p.log,
		shutdownSignal:     p.shutdownSignal,
		retryChanSignal:    p.retryChanSignal,
		closeRetryChanOnce: p.closeRetryChanOnce,
		closeShutdownOnce:  p.closeShutdownOnce,
	}
	clone.client.Store(tx)
	return clone
}

// Transaction runs fn inside a database transaction. Managers and query sets
// obtained from the Postgres passed to fn run in that transaction. The
// transaction is rolled back if fn returns an error or panics, and committed
// otherwise.
//
// Example:
//
//	err := pg.Transaction(ctx, func(tx *postgres.Postgres) error {
//		locked := tx.Manager(&Account{}, nil).QuerySet().
//			Where(predicate.Lookup("pk", id)).
//			ForUpdate()
//		var acc Account
//		if err := locked.First(ctx, &acc); err != nil {
//			return err
//		}
//		_, err := locked.Update(ctx, map[string]interface{}{"balance": acc.Balance - amount})
//		return err
//	})
func (p *Postgres) Transaction(ctx context.Context, fn func(tx *Postgres) error) error {
	err := p.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(p.cloneWithTx(tx))
	})
	return TranslateError(err)
}
