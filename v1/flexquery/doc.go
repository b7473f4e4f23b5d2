// Package flexquery declares reusable filters and binds them to query collections.
//
// A filter is declared once, as a Definition wrapping one function, and used
// through any collection it is bound to:
//
//   - A predicate function builds a predicate.Q from the call arguments.
//   - A collection function receives the unfiltered base collection plus the
//     call arguments and returns a narrowed collection.
//
// Either way a bound filter can be called, narrowing its base collection, or
// turned into a predicate with AsQ for use inside larger predicates:
//
//	adults := flexquery.MustFromPredicate(func(args ...any) predicate.Q {
//	    return predicate.Lookup("age__gte", 18)
//	}, flexquery.WithName("adults"))
//
//	users := flexquery.NewRegistry("users").MustDeclare("adults", adults)
//	people := pg.Manager(&User{}, users)
//
//	f, _ := people.FQ("adults")
//	qs := f.Call()                                   // users with age >= 18
//	teams := pg.Manager(&Team{}, nil).
//	    Filter(f.AsQ().Prefix("members"))              // teams with an adult member
//
// # Binding
//
// Access is the accessor behind attribute lookups: on a Collection it returns a
// freshly bound *Bound, on anything else the *Definition itself. Registry
// wraps it for named filters and derives manager views with ForManager,
// dropping filters declared QuerySetOnly.
//
// # Errors
//
//   - ErrImproperlyConfigured: binding a Definition that carries no function.
//   - ErrInvalidBase: binding to something that is not a Collection.
//   - ErrInvalidFunc: deriving a Definition from a nil function.
//   - ErrNotImplemented: deriving from a Definition that already has a function.
//
// All of them are programming errors and are returned where the misuse happens.
//
// # Concurrency
//
// Definitions are immutable and may be shared freely. Bound filters are cheap,
// created per access and not meant to be cached.
package flexquery
