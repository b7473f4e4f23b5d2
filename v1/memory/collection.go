package memory

import (
	"fmt"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// DefaultPrimaryKey is the primary key field used unless WithPrimaryKey says
// otherwise. It is also the primary key assumed for related rows.
const DefaultPrimaryKey = "id"

// Row is one record. Nested Row values model to-one relations, []Row values
// model to-many relations.
type Row = map[string]any

// Option configures a Collection.
type Option func(*Collection)

// WithPrimaryKey sets the field the "pk" lookup refers to.
func WithPrimaryKey(field string) Option {
	return func(c *Collection) { c.pk = field }
}

// WithRegistry attaches the filters FQ can bind.
func WithRegistry(r *flexquery.Registry) Option {
	return func(c *Collection) { c.registry = r }
}

// Collection is an immutable, in-memory query collection.
//
// Filter evaluates its predicate eagerly against the current rows and returns
// a new Collection. Evaluation errors (unknown fields, bad operands) do not
// panic; they stick to the returned collection and every collection derived
// from it, and are reported by Rows, Count and Err.
type Collection struct {
	name     string
	pk       string
	rows     []Row
	registry *flexquery.Registry
	err      error
}

// New creates a collection over rows. The slice is copied; the rows
// themselves are shared and must not be modified afterwards.
func New(name string, rows []Row, opts ...Option) *Collection {
	c := &Collection{
		name: name,
		pk:   DefaultPrimaryKey,
		rows: append([]Row(nil), rows...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collection) with(rows []Row, err error) *Collection {
	return &Collection{
		name:     c.name,
		pk:       c.pk,
		rows:     rows,
		registry: c.registry,
		err:      err,
	}
}

// All returns a new view of the collection, keeping the filters applied so far.
func (c *Collection) All() flexquery.Collection {
	return c.with(c.rows, c.err)
}

// Filter returns the rows matching q.
func (c *Collection) Filter(q predicate.Q) flexquery.Collection {
	if c.err != nil {
		return c.with(nil, c.err)
	}

	ev := evaluator{pk: c.pk}
	out := make([]Row, 0, len(c.rows))
	for _, row := range c.rows {
		ok, err := ev.match(row, q)
		if err != nil {
			return c.with(nil, fmt.Errorf("filtering %s: %w", c.name, err))
		}
		if ok {
			out = append(out, row)
		}
	}
	return c.with(out, nil)
}

// None returns an empty view.
func (c *Collection) None() flexquery.Collection {
	return c.with(nil, c.err)
}

// Rows returns the rows of the collection.
func (c *Collection) Rows() ([]Row, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]Row(nil), c.rows...), nil
}

// Count returns the number of rows.
func (c *Collection) Count() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	return len(c.rows), nil
}

// Err returns the error collected while filtering, if any.
func (c *Collection) Err() error {
	return c.err
}

// PrimaryKeys returns the primary key value of every row.
func (c *Collection) PrimaryKeys() ([]any, error) {
	if c.err != nil {
		return nil, c.err
	}
	keys := make([]any, 0, len(c.rows))
	for _, row := range c.rows {
		keys = append(keys, row[c.pk])
	}
	return keys, nil
}

// FQ binds the filter declared under name to the collection.
func (c *Collection) FQ(name string) (*flexquery.Bound, error) {
	return c.registry.Bind(name, c)
}

// String renders the collection as memory.Collection(name).
func (c *Collection) String() string {
	return fmt.Sprintf("memory.Collection(%s)", c.name)
}

// Manager hands out fresh collections over a fixed row set. Its own filters
// are those of the collection registry minus the QuerySetOnly ones.
type Manager struct {
	name     string
	rows     []Row
	opts     []Option
	registry *flexquery.Registry
}

// NewManager creates a manager whose collections carry registry.
func NewManager(name string, rows []Row, registry *flexquery.Registry, opts ...Option) *Manager {
	return &Manager{
		name:     name,
		rows:     append([]Row(nil), rows...),
		opts:     append(append([]Option(nil), opts...), WithRegistry(registry)),
		registry: registry.ForManager(),
	}
}

// All returns a collection over every row.
func (m *Manager) All() flexquery.Collection {
	return m.collection()
}

// Filter returns m.All().Filter(q).
func (m *Manager) Filter(q predicate.Q) flexquery.Collection {
	return m.collection().Filter(q)
}

// None returns an empty collection.
func (m *Manager) None() flexquery.Collection {
	return m.collection().None()
}

// FQ binds the manager's filter declared under name to the manager.
func (m *Manager) FQ(name string) (*flexquery.Bound, error) {
	return m.registry.Bind(name, m)
}

// String renders the manager as memory.Manager(name).
func (m *Manager) String() string {
	return fmt.Sprintf("memory.Manager(%s)", m.name)
}

func (m *Manager) collection() *Collection {
	return New(m.name, m.rows, m.opts...)
}
