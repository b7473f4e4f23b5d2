package flexquery

import "errors"

// Errors returned by this package. They all signal programming mistakes and
// are returned at the point of misuse; none of them is worth retrying.
var (
	// ErrImproperlyConfigured is returned when a Definition without a function
	// (the undeclared base) is bound to a collection.
	ErrImproperlyConfigured = errors.New("flexquery: improperly configured")

	// ErrInvalidBase is returned when binding to something that is not a Collection.
	ErrInvalidBase = errors.New("flexquery: invalid base")

	// ErrInvalidFunc is returned when a Definition is derived from a nil function.
	ErrInvalidFunc = errors.New("flexquery: invalid function")

	// ErrNotImplemented is returned when deriving a Definition from one that
	// already carries a function.
	ErrNotImplemented = errors.New("flexquery: not implemented")

	// ErrUnknownFilter is returned when a Registry has no filter under the requested name.
	ErrUnknownFilter = errors.New("flexquery: unknown filter")

	// ErrDuplicateFilter is returned when a name is declared twice on a Registry.
	ErrDuplicateFilter = errors.New("flexquery: duplicate filter")
)

// IsConfigurationError reports whether err stems from binding an undeclared Definition.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrImproperlyConfigured)
}

// IsTypeError reports whether err stems from an argument of the wrong kind:
// a base that is not a Collection, or a missing function.
func IsTypeError(err error) bool {
	return errors.Is(err, ErrInvalidBase) || errors.Is(err, ErrInvalidFunc)
}
