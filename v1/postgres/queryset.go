package postgres

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/logger"
	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
	"github.com/Aleph-Alpha/flexquery/v1/tracer"
)

// scope is one recorded query step.
type scope func(db *gorm.DB) *gorm.DB

// QuerySet is an immutable, lazily executed query over one model.
//
// Every chaining method returns a new QuerySet; nothing touches the database
// until a terminal method (Find, First, Count, Exists, Pluck, Update, Delete)
// runs. Compile errors of Filter are kept and returned by the first terminal
// method, so chains never need intermediate error checks:
//
//	var adults []User
//	err := users.All().
//	    Filter(predicate.Lookup("age__gte", 18)).
//	    Order("name").
//	    Limit(20).
//	    Find(ctx, &adults)
type QuerySet struct {
	pg       *Postgres
	table    string
	schema   *schema.Schema
	registry *flexquery.Registry
	scopes   []scope
	err      error

	tracer   *tracer.Tracer
	observer observability.Observer
}

func newQuerySet(pg *Postgres, model any, table string, registry *flexquery.Registry) *QuerySet {
	qs := &QuerySet{pg: pg, table: table, registry: registry}
	qs.schema, qs.err = parseSchema(pg.DB(), model, table)
	return qs
}

func (qs *QuerySet) clone() *QuerySet {
	out := *qs
	out.scopes = append([]scope(nil), qs.scopes...)
	return &out
}

func (qs *QuerySet) with(s scope) *QuerySet {
	out := qs.clone()
	out.scopes = append(out.scopes, s)
	return out
}

// All returns a copy of the query set.
func (qs *QuerySet) All() flexquery.Collection {
	return qs.clone()
}

// Filter narrows the query set to the rows matching q.
func (qs *QuerySet) Filter(q predicate.Q) flexquery.Collection {
	return qs.Where(q)
}

// Where is Filter returning the concrete type.
func (qs *QuerySet) Where(q predicate.Q) *QuerySet {
	if qs.err != nil {
		return qs.clone()
	}

	expr, err := newCompiler(qs.pg.DB(), qs.schema).compile(q)
	if err != nil {
		out := qs.clone()
		out.err = fmt.Errorf("filtering %s: %w", qs.schema.Table, err)
		return out
	}
	if expr == nil {
		return qs.clone()
	}
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Where(expr) })
}

// Exclude narrows the query set to the rows not matching q. An empty q
// excludes nothing.
func (qs *QuerySet) Exclude(q predicate.Q) *QuerySet {
	if q.IsEmpty() {
		return qs.clone()
	}
	return qs.Where(q.Not())
}

// None returns a query set matching no row.
func (qs *QuerySet) None() flexquery.Collection {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Where(noneExpr) })
}

// FQ binds the filter declared under name to the query set.
func (qs *QuerySet) FQ(name string) (*flexquery.Bound, error) {
	return qs.registry.Bind(name, qs)
}

// Order appends an ORDER BY term, e.g. "name" or "created_at DESC".
func (qs *QuerySet) Order(value string) *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Order(value) })
}

// Limit caps the number of rows.
func (qs *QuerySet) Limit(n int) *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Limit(n) })
}

// Offset skips n rows.
func (qs *QuerySet) Offset(n int) *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Offset(n) })
}

// Select restricts the selected columns.
func (qs *QuerySet) Select(columns ...string) *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Select(columns) })
}

// Distinct selects distinct rows, optionally on the given columns.
func (qs *QuerySet) Distinct(columns ...string) *QuerySet {
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		args[i] = c
	}
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Distinct(args...) })
}

// Preload loads the named association along with the rows.
func (qs *QuerySet) Preload(association string, args ...interface{}) *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Preload(association, args...) })
}

// Unscoped includes soft-deleted rows.
func (qs *QuerySet) Unscoped() *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

// ForUpdate locks the selected rows (SELECT ... FOR UPDATE). Use it inside a transaction.
func (qs *QuerySet) ForUpdate() *QuerySet {
	return qs.with(func(db *gorm.DB) *gorm.DB {
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	})
}

// WithTracer opens a span around every terminal operation.
func (qs *QuerySet) WithTracer(t *tracer.Tracer) *QuerySet {
	out := qs.clone()
	out.tracer = t
	return out
}

// WithObserver reports every terminal operation to o.
func (qs *QuerySet) WithObserver(o observability.Observer) *QuerySet {
	out := qs.clone()
	out.observer = o
	return out
}

// Err returns the error collected while building the query set, if any.
func (qs *QuerySet) Err() error {
	return qs.err
}

// Find loads all matching rows into dest, a pointer to a slice of the model.
func (qs *QuerySet) Find(ctx context.Context, dest interface{}) error {
	_, err := qs.run(ctx, "find", func(db *gorm.DB) *gorm.DB {
		return db.Find(dest)
	})
	return err
}

// First loads the first matching row, ordered by primary key, into dest.
// Returns ErrRecordNotFound when nothing matches.
func (qs *QuerySet) First(ctx context.Context, dest interface{}) error {
	_, err := qs.run(ctx, "first", func(db *gorm.DB) *gorm.DB {
		return db.First(dest)
	})
	return err
}

// Count returns the number of matching rows.
func (qs *QuerySet) Count(ctx context.Context) (int64, error) {
	var count int64
	_, err := qs.run(ctx, "count", func(db *gorm.DB) *gorm.DB {
		return db.Count(&count)
	})
	return count, err
}

// Exists reports whether at least one row matches.
func (qs *QuerySet) Exists(ctx context.Context) (bool, error) {
	var exists bool
	_, err := qs.run(ctx, "exists", func(db *gorm.DB) *gorm.DB {
		sub := db.Select("1").Limit(1)
		return db.Session(&gorm.Session{NewDB: true}).Raw("SELECT EXISTS (?)", sub).Scan(&exists)
	})
	return exists, err
}

// Pluck loads a single column of the matching rows into dest.
func (qs *QuerySet) Pluck(ctx context.Context, column string, dest interface{}) error {
	_, err := qs.run(ctx, "pluck", func(db *gorm.DB) *gorm.DB {
		return db.Pluck(column, dest)
	})
	return err
}

// Update sets columns on every matching row and returns the number of rows
// changed. An unfiltered query set returns ErrMissingWhereClause.
func (qs *QuerySet) Update(ctx context.Context, values map[string]interface{}) (int64, error) {
	return qs.run(ctx, "update", func(db *gorm.DB) *gorm.DB {
		return db.Updates(values)
	})
}

// Delete removes every matching row (soft-deletes for models with
// gorm.DeletedAt) and returns the number of rows affected. An unfiltered
// query set returns ErrMissingWhereClause.
func (qs *QuerySet) Delete(ctx context.Context) (int64, error) {
	return qs.run(ctx, "delete", func(db *gorm.DB) *gorm.DB {
		return db.Delete(qs.newModel())
	})
}

// ToSQL renders the SELECT the query set would run, with values inlined.
// Nothing is executed.
func (qs *QuerySet) ToSQL() (string, error) {
	if qs.err != nil {
		return "", qs.err
	}
	dest := reflect.New(reflect.SliceOf(qs.schema.ModelType)).Interface()
	sql := qs.pg.DB().ToSQL(func(tx *gorm.DB) *gorm.DB {
		return qs.apply(tx).Find(dest)
	})
	return sql, nil
}

// String renders the query set as postgres.QuerySet(table).
func (qs *QuerySet) String() string {
	if qs.schema == nil {
		return "postgres.QuerySet(invalid)"
	}
	return fmt.Sprintf("postgres.QuerySet(%s)", qs.schema.Table)
}

func (qs *QuerySet) newModel() interface{} {
	return reflect.New(qs.schema.ModelType).Interface()
}

// apply replays the recorded steps on db.
func (qs *QuerySet) apply(db *gorm.DB) *gorm.DB {
	db = db.Model(qs.newModel())
	if qs.table != "" {
		db = db.Table(qs.table)
	}
	for _, s := range qs.scopes {
		db = s(db)
	}
	return db
}

// subquery returns the primary keys of the query set as a gorm subquery.
func (qs *QuerySet) subquery() (*gorm.DB, error) {
	if qs.err != nil {
		return nil, qs.err
	}
	pk := qs.schema.PrioritizedPrimaryField
	if pk == nil {
		return nil, fmt.Errorf("%w: %s has no primary key", ErrUnknownField, qs.schema.Name)
	}
	db := qs.apply(qs.pg.DB().Session(&gorm.Session{NewDB: true}))
	return db.Select(pk.DBName), nil
}

// run executes one terminal operation with tracing, logging and observation.
func (qs *QuerySet) run(ctx context.Context, operation string, fn func(db *gorm.DB) *gorm.DB) (int64, error) {
	start := time.Now()
	if qs.err != nil {
		qs.observe(operation, start, 0, qs.err)
		return 0, qs.err
	}

	ctx, span := qs.tracer.StartSpan(ctx, "postgres."+operation)
	defer span.End()

	result := fn(qs.apply(qs.pg.DB().WithContext(ctx)))
	err := TranslateError(result.Error)
	rows := result.RowsAffected

	qs.tracer.SetAttributes(span, map[string]interface{}{
		"db.system":    "postgresql",
		"db.table":     qs.schema.Table,
		"db.operation": operation,
		"db.rows":      rows,
	})
	if err != nil {
		qs.tracer.RecordErrorOnSpan(span, err)
		if err != ErrRecordNotFound {
			qs.log().ErrorWithContext(ctx, "PostgreSQL query failed", err, map[string]interface{}{
				"table":     qs.schema.Table,
				"operation": operation,
			})
		}
	}

	qs.observe(operation, start, rows, err)
	return rows, err
}

func (qs *QuerySet) observe(operation string, start time.Time, rows int64, err error) {
	if qs.observer == nil {
		return
	}
	resource := ""
	if qs.schema != nil {
		resource = qs.schema.Table
	}
	qs.observer.ObserveOperation(observability.OperationContext{
		Component: "postgres",
		Operation: operation,
		Resource:  resource,
		Duration:  time.Since(start),
		Error:     err,
		Size:      rows,
	})
}

func (qs *QuerySet) log() logger.Logger {
	if qs.pg.log == nil {
		return logger.NewNop()
	}
	return qs.pg.log
}
