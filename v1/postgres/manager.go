package postgres

import (
	"fmt"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
	"github.com/Aleph-Alpha/flexquery/v1/tracer"
)

// Manager is the entry point to the rows of one model. Its All, Filter and
// None return query sets carrying the full filter registry; filters bound to
// the manager itself exclude those declared QuerySetOnly.
type Manager struct {
	pg       *Postgres
	model    any
	table    string
	registry *flexquery.Registry
	filters  *flexquery.Registry

	tracer   *tracer.Tracer
	observer observability.Observer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTable makes the manager query table instead of the table gorm derives
// from the model's type name.
func WithTable(table string) ManagerOption {
	return func(m *Manager) {
		m.table = table
	}
}

// Manager returns the manager of model. registry may be nil when the model
// declares no filters.
//
// Example:
//
//	books := pg.Manager(&Book{}, bookFilters)
//	bound, err := books.FQ("publishedAfter")
//	var recent []Book
//	err = bound.Call(2020).(*postgres.QuerySet).Find(ctx, &recent)
func (p *Postgres) Manager(model any, registry *flexquery.Registry, opts ...ManagerOption) *Manager {
	m := &Manager{
		pg:       p,
		model:    model,
		registry: registry,
		filters:  registry.ForManager(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) queryset() *QuerySet {
	qs := newQuerySet(m.pg, m.model, m.table, m.registry)
	qs.tracer = m.tracer
	qs.observer = m.observer
	return qs
}

// QuerySet returns an unfiltered query set of the model.
func (m *Manager) QuerySet() *QuerySet {
	return m.queryset()
}

// All returns an unfiltered query set.
func (m *Manager) All() flexquery.Collection {
	return m.queryset()
}

// Filter returns a query set narrowed by q.
func (m *Manager) Filter(q predicate.Q) flexquery.Collection {
	return m.queryset().Where(q)
}

// None returns a query set matching no row.
func (m *Manager) None() flexquery.Collection {
	return m.queryset().None()
}

// FQ binds the filter declared under name to the manager.
// QuerySetOnly filters are reported as unknown.
func (m *Manager) FQ(name string) (*flexquery.Bound, error) {
	return m.filters.Bind(name, m)
}

// WithTracer returns a copy of m whose query sets are traced by t.
func (m *Manager) WithTracer(t *tracer.Tracer) *Manager {
	out := *m
	out.tracer = t
	return &out
}

// WithObserver returns a copy of m whose query sets report to o.
func (m *Manager) WithObserver(o observability.Observer) *Manager {
	out := *m
	out.observer = o
	return &out
}

// String renders the manager as postgres.Manager(table).
func (m *Manager) String() string {
	qs := m.queryset()
	if qs.schema == nil {
		return "postgres.Manager(invalid)"
	}
	return fmt.Sprintf("postgres.Manager(%s)", qs.schema.Table)
}
