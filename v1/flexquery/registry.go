package flexquery

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the filters declared on one kind of collection, keyed by
// attribute name. It plays the role of the collection "class": looking a
// filter up on the registry returns its Definition, accessing it through a
// collection instance returns a Bound filter.
//
// Declare filters during setup; lookups are safe for concurrent use.
//
// Example:
//
//	users := flexquery.NewRegistry("users").
//	    MustDeclare("adults", adults).
//	    MustDeclare("inTeam", inTeam)
//
//	qs := pg.Manager(&User{}, users).All()
//	adultsFilter, err := qs.FQ("adults")
type Registry struct {
	name string

	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry. name is used in messages only.
func NewRegistry(name string) *Registry {
	return &Registry{
		name: name,
		defs: make(map[string]*Definition),
	}
}

// Declare registers d under attr.
// Returns ErrDuplicateFilter if attr is taken.
func (r *Registry) Declare(attr string, d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: nil definition for %q", ErrInvalidFunc, attr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[attr]; exists {
		return fmt.Errorf("%w: %q is already declared on %s", ErrDuplicateFilter, attr, r.name)
	}
	r.defs[attr] = d
	return nil
}

// MustDeclare is like Declare but panics on error, and returns r for chaining.
func (r *Registry) MustDeclare(attr string, d *Definition) *Registry {
	if err := r.Declare(attr, d); err != nil {
		panic(err)
	}
	return r
}

// Definition returns the filter declared under attr, unbound.
func (r *Registry) Definition(attr string) (*Definition, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q, no filters are declared", ErrUnknownFilter, attr)
	}

	r.mu.RLock()
	d, ok := r.defs[attr]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q is not declared on %s", ErrUnknownFilter, attr, r.name)
	}
	return d, nil
}

// Access resolves attr on holder, see the package-level Access.
func (r *Registry) Access(attr string, holder any) (Attr, error) {
	d, err := r.Definition(attr)
	if err != nil {
		return nil, err
	}
	return Access(d, holder)
}

// Bind binds the filter declared under attr to base.
// Backends use it to implement their FQ methods.
func (r *Registry) Bind(attr string, base Collection) (*Bound, error) {
	d, err := r.Definition(attr)
	if err != nil {
		return nil, err
	}
	return Bind(d, base)
}

// Names returns the declared attribute names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForManager derives the registry of a manager built from this collection
// type. Every filter except those declared QuerySetOnly carries over.
// A nil registry yields an empty one.
func (r *Registry) ForManager() *Registry {
	if r == nil {
		return NewRegistry("manager")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry(r.name + " manager")
	for name, d := range r.defs {
		if d.querySetOnly {
			continue
		}
		out.defs[name] = d
	}
	return out
}

// String returns the registry name.
func (r *Registry) String() string {
	return r.name
}
