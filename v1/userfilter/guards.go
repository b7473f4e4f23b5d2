package userfilter

import (
	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// ForUserGuard returns the guard behind ForUser filters.
//
// The first argument is resolved with ResolveUser. A present user replaces it
// and the call proceeds. Without a user the function is skipped and the
// filter matches everything if cfg.AllIfNoUser is set, nothing otherwise.
func ForUserGuard(cfg ForUserConfig) flexquery.Guard {
	return func(base flexquery.Collection, args []any) (predicate.Q, []any, bool) {
		user, rest := splitUser(args)
		if user == nil {
			if cfg.AllIfNoUser {
				return predicate.Q{}, nil, true
			}
			return nothing(base), nil, true
		}
		return predicate.Q{}, withUser(user, rest), false
	}
}

// UserBasedGuard returns the guard behind UserBased filters.
//
// Like ForUserGuard, but anonymous users count as missing when
// cfg.TreatAnonymousAsMissing is set, and a missing user is handled according to
// cfg.NoUserBehavior. With PassThrough the function is called with a nil user.
func UserBasedGuard(cfg UserBasedConfig) flexquery.Guard {
	return func(base flexquery.Collection, args []any) (predicate.Q, []any, bool) {
		user, rest := splitUser(args)
		if cfg.TreatAnonymousAsMissing && IsAnonymous(user) {
			user = nil
		}
		if user == nil {
			switch cfg.NoUserBehavior {
			case AlwaysTrue:
				return predicate.Q{}, nil, true
			case NeverMatch:
				return nothing(base), nil, true
			}
		}
		return predicate.Q{}, withUser(user, rest), false
	}
}

// ForUserPredicate declares a predicate filter whose first argument is the
// acting user. See ForUserGuard.
func ForUserPredicate(fn flexquery.PredicateFunc, cfg ForUserConfig, opts ...flexquery.Option) (*flexquery.Definition, error) {
	return flexquery.FromPredicate(fn, withGuard(ForUserGuard(cfg), opts)...)
}

// ForUserCollection declares a collection filter whose first argument is the
// acting user. See ForUserGuard.
func ForUserCollection(fn flexquery.CollectionFunc, cfg ForUserConfig, opts ...flexquery.Option) (*flexquery.Definition, error) {
	return flexquery.FromCollection(fn, withGuard(ForUserGuard(cfg), opts)...)
}

// UserBasedPredicate declares a predicate filter whose first argument is the
// acting user. See UserBasedGuard.
func UserBasedPredicate(fn flexquery.PredicateFunc, cfg UserBasedConfig, opts ...flexquery.Option) (*flexquery.Definition, error) {
	return flexquery.FromPredicate(fn, withGuard(UserBasedGuard(cfg), opts)...)
}

// UserBasedCollection declares a collection filter whose first argument is the
// acting user. See UserBasedGuard.
func UserBasedCollection(fn flexquery.CollectionFunc, cfg UserBasedConfig, opts ...flexquery.Option) (*flexquery.Definition, error) {
	return flexquery.FromCollection(fn, withGuard(UserBasedGuard(cfg), opts)...)
}

// withGuard prepends g. A WithGuard among opts replaces it.
func withGuard(g flexquery.Guard, opts []flexquery.Option) []flexquery.Option {
	return append([]flexquery.Option{flexquery.WithGuard(g)}, opts...)
}

func splitUser(args []any) (any, []any) {
	if len(args) == 0 {
		return nil, nil
	}
	return ResolveUser(args[0]), args[1:]
}

func withUser(user any, rest []any) []any {
	return append([]any{user}, rest...)
}

func nothing(base flexquery.Collection) predicate.Q {
	return predicate.Lookup("pk__in", base.None())
}
