package flexquery

import (
	"fmt"
	"reflect"
	"time"

	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// Attr is what accessing a filter yields: the *Definition itself when accessed
// on a type or a non-collection value, a *Bound when accessed on a Collection.
type Attr interface {
	Definition() *Definition
	Kind() Kind
	Name() string
	String() string
}

// Access resolves d as an attribute of holder. If holder is a Collection, d
// is bound to it; any other holder, including nil and a nil pointer of a
// collection type, yields d unchanged.
func Access(d *Definition, holder any) (Attr, error) {
	if _, ok := holder.(Collection); !ok || isNil(holder) {
		return d, nil
	}
	b, err := Bind(d, holder)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Bound is a filter bound to one base collection. It is created per access
// and meant to be used right away; it holds no state besides its two references.
type Bound struct {
	def  *Definition
	base Collection
}

// Bind attaches d to base.
//
// Returns ErrImproperlyConfigured if d carries no function and ErrInvalidBase
// if base is not a Collection or is a nil pointer.
func Bind(d *Definition, base any) (*Bound, error) {
	if d == nil || d.kind == KindUndeclared {
		return nil, fmt.Errorf("%w: cannot bind %s, derive it with FromPredicate or FromCollection first", ErrImproperlyConfigured, d)
	}
	coll, ok := base.(Collection)
	if !ok || isNil(coll) {
		return nil, fmt.Errorf("%w: can only bind %s to a collection, not to %T", ErrInvalidBase, d, base)
	}
	return &Bound{def: d, base: coll}, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Definition returns the filter definition.
func (b *Bound) Definition() *Definition { return b.def }

// Kind returns the definition's kind.
func (b *Bound) Kind() Kind { return b.def.kind }

// Name returns the definition's name.
func (b *Bound) Name() string { return b.def.name }

// Base returns the collection the filter is bound to.
func (b *Bound) Base() Collection { return b.base }

// Call filters the base collection, relaying args to the function.
//
// A collection function receives base.All() followed by args and its result
// is returned as is. A predicate function receives args and its predicate is
// applied with base.Filter.
func (b *Bound) Call(args ...any) Collection {
	start := time.Now()

	q, rest, handled := b.intercept(args)
	var out Collection
	switch {
	case handled:
		out = b.base.Filter(q)
	case b.def.kind == KindCollection:
		out = b.def.collectionFn(b.base.All(), rest...)
	default:
		out = b.base.Filter(b.def.predicateFn(rest...))
	}

	b.observe("call", start, handled)
	return out
}

// AsQ returns the filter as a predicate, relaying args to the function.
//
// A predicate function's result is returned directly. A collection function's
// result is wrapped as pk__in=<collection>, so that collection filters can be
// embedded in larger predicates, possibly through Prefix.
func (b *Bound) AsQ(args ...any) predicate.Q {
	start := time.Now()

	q, rest, handled := b.intercept(args)
	if !handled {
		if b.def.kind == KindCollection {
			q = predicate.Lookup("pk__in", b.def.collectionFn(b.base.All(), rest...))
		} else {
			q = b.def.predicateFn(rest...)
		}
	}

	b.observe("as_q", start, handled)
	return q
}

func (b *Bound) intercept(args []any) (predicate.Q, []any, bool) {
	if b.def.guard == nil {
		return predicate.Q{}, args, false
	}
	return b.def.guard(b.base, args)
}

func (b *Bound) observe(operation string, start time.Time, guarded bool) {
	if b.def.observer == nil {
		return
	}
	b.def.observer.ObserveOperation(observability.OperationContext{
		Component:   "flexquery",
		Operation:   operation,
		Resource:    b.def.name,
		SubResource: b.def.kind.String(),
		Duration:    time.Since(start),
		Metadata:    map[string]interface{}{"guarded": guarded},
	})
}

// String renders b as Bound(kind "name", bound to <base>).
func (b *Bound) String() string {
	return fmt.Sprintf("Bound(%s %q, bound to %v)", b.def.kind, b.def.name, b.base)
}
