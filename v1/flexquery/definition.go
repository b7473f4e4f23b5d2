package flexquery

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// Kind tags which sort of function a Definition carries.
type Kind int

const (
	// KindUndeclared marks a Definition without a function. It can carry
	// options and be derived from, but not bound.
	KindUndeclared Kind = iota
	// KindPredicate marks a PredicateFunc.
	KindPredicate
	// KindCollection marks a CollectionFunc.
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindPredicate:
		return "predicate"
	case KindCollection:
		return "collection"
	default:
		return "undeclared"
	}
}

// PredicateFunc builds a predicate from the call-time arguments alone.
type PredicateFunc func(args ...any) predicate.Q

// CollectionFunc narrows base, the unfiltered base collection, using the
// call-time arguments and returns the result.
type CollectionFunc func(base Collection, args ...any) Collection

// Guard runs before the function of a bound filter. When handled is true the
// function is skipped and q is used as the filter's predicate. Otherwise the
// function receives rest in place of the original arguments.
type Guard func(base Collection, args []any) (q predicate.Q, rest []any, handled bool)

// Option configures a Definition.
type Option func(*Definition)

// WithName overrides the name derived from the function.
func WithName(name string) Option {
	return func(d *Definition) { d.name = name }
}

// QuerySetOnly keeps the filter off managers derived with Registry.ForManager.
func QuerySetOnly() Option {
	return func(d *Definition) { d.querySetOnly = true }
}

// WithGuard installs a Guard.
func WithGuard(g Guard) Option {
	return func(d *Definition) { d.guard = g }
}

// WithObserver reports every Call and AsQ of the filter to o.
func WithObserver(o observability.Observer) Option {
	return func(d *Definition) { d.observer = o }
}

// Definition is a named, reusable filter: exactly one function tagged with
// its Kind, plus options. Definitions are immutable once created and safe to
// share between goroutines.
//
// The zero value and the result of New are undeclared: they can be derived
// into a filter with FromPredicate or FromCollection exactly once per function.
// Deriving from a Definition that already has a function fails with
// ErrNotImplemented.
type Definition struct {
	name         string
	kind         Kind
	predicateFn  PredicateFunc
	collectionFn CollectionFunc
	guard        Guard
	querySetOnly bool
	observer     observability.Observer
}

// New returns an undeclared Definition carrying opts. Filters derived from it
// inherit the options, which makes it a template for families of filters:
//
//	audited := flexquery.New(flexquery.WithObserver(obs))
//	byOwner, err := audited.FromPredicate(ownerPredicate)
func New(opts ...Option) *Definition {
	d := &Definition{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromPredicate derives a filter from a function returning a predicate.
// The function never sees the base collection.
func FromPredicate(fn PredicateFunc, opts ...Option) (*Definition, error) {
	return (&Definition{}).FromPredicate(fn, opts...)
}

// FromCollection derives a filter from a function that narrows the base collection.
func FromCollection(fn CollectionFunc, opts ...Option) (*Definition, error) {
	return (&Definition{}).FromCollection(fn, opts...)
}

// MustFromPredicate is like FromPredicate but panics on error.
// It simplifies declaring filters as package-level variables.
func MustFromPredicate(fn PredicateFunc, opts ...Option) *Definition {
	d, err := FromPredicate(fn, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// MustFromCollection is like FromCollection but panics on error.
func MustFromCollection(fn CollectionFunc, opts ...Option) *Definition {
	d, err := FromCollection(fn, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// FromPredicate derives a predicate filter from d, inheriting its options.
//
// Returns ErrNotImplemented if d already carries a function, ErrInvalidFunc if fn is nil.
func (d *Definition) FromPredicate(fn PredicateFunc, opts ...Option) (*Definition, error) {
	if err := d.checkDerivable(fn == nil); err != nil {
		return nil, err
	}
	out := d.derive(KindPredicate, funcName(fn), opts)
	out.predicateFn = fn
	return out, nil
}

// FromCollection derives a collection filter from d, inheriting its options.
//
// Returns ErrNotImplemented if d already carries a function, ErrInvalidFunc if fn is nil.
func (d *Definition) FromCollection(fn CollectionFunc, opts ...Option) (*Definition, error) {
	if err := d.checkDerivable(fn == nil); err != nil {
		return nil, err
	}
	out := d.derive(KindCollection, funcName(fn), opts)
	out.collectionFn = fn
	return out, nil
}

func (d *Definition) checkDerivable(nilFunc bool) error {
	if d.kind != KindUndeclared {
		return fmt.Errorf("%w: cannot derive a filter from %s, it already carries a function", ErrNotImplemented, d)
	}
	if nilFunc {
		return fmt.Errorf("%w: can only create a filter from a non-nil function", ErrInvalidFunc)
	}
	return nil
}

func (d *Definition) derive(kind Kind, name string, opts []Option) *Definition {
	out := &Definition{
		name:         d.name,
		kind:         kind,
		guard:        d.guard,
		querySetOnly: d.querySetOnly,
		observer:     d.observer,
	}
	if out.name == "" {
		out.name = name
	}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Kind returns the function kind.
func (d *Definition) Kind() Kind { return d.kind }

// Name returns the filter name.
func (d *Definition) Name() string { return d.name }

// IsQuerySetOnly reports whether the filter stays off derived managers.
func (d *Definition) IsQuerySetOnly() bool { return d.querySetOnly }

// Definition returns d. It lets *Definition and *Bound share the Attr interface.
func (d *Definition) Definition() *Definition { return d }

// String renders d as Definition(kind "name"), or Definition(undeclared).
func (d *Definition) String() string {
	if d.kind == KindUndeclared {
		return "Definition(undeclared)"
	}
	return fmt.Sprintf("Definition(%s %q)", d.kind, d.name)
}

// funcName returns the short name of fn's symbol, e.g. "users.activeUsers"
// or "users.init.func1" for a closure.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := f.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
