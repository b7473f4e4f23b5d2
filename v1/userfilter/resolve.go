package userfilter

import (
	"context"
	"errors"
	"net/http"
	"reflect"
)

// ErrInvalidBehavior is returned when decoding an unknown NoUserBehavior.
var ErrInvalidBehavior = errors.New("invalid no-user behavior")

// UserCarrier is implemented by values that carry the acting user, such as
// request or session wrappers.
type UserCarrier interface {
	User() any
}

// Anonymous is implemented by user types that can represent a visitor who is
// not logged in.
type Anonymous interface {
	IsAnonymous() bool
}

type userKey struct{}

// WithUser returns a copy of ctx carrying user. Requests whose context was
// built this way resolve to that user.
func WithUser(ctx context.Context, user any) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by WithUser, or nil.
func UserFromContext(ctx context.Context) any {
	if ctx == nil {
		return nil
	}
	return ctx.Value(userKey{})
}

// ResolveUser turns the first filter argument into a user.
//
// An *http.Request yields the user of its context, a UserCarrier yields its
// User(), anything else is taken as the user itself. Nil values, typed nil
// pointers included, and carriers that panic resolve to nil.
func ResolveUser(arg any) (user any) {
	defer func() {
		if recover() != nil {
			user = nil
		}
	}()

	switch v := arg.(type) {
	case *http.Request:
		if v == nil {
			return nil
		}
		user = UserFromContext(v.Context())
	case UserCarrier:
		user = v.User()
	default:
		user = arg
	}

	if isNil(user) {
		return nil
	}
	return user
}

// IsAnonymous reports whether user is an anonymous visitor.
func IsAnonymous(user any) bool {
	a, ok := user.(Anonymous)
	return ok && a.IsAnonymous()
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
