// Package observability defines the hook through which flexquery components
// report the operations they perform.
//
// Components accept an optional Observer (usually via a WithObserver method)
// and call it once per operation. The metrics package provides a Prometheus
// implementation; tests typically use a small recording observer.
package observability

import "time"

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "flexquery" or "postgres".
	Component string

	// Operation names what was done, e.g. "call", "as_q", "find", "count".
	Operation string

	// Resource is the primary object operated on, e.g. a filter or table name.
	Resource string

	// SubResource adds detail to Resource, e.g. the filter kind.
	SubResource string

	// Duration is the wall time the operation took.
	Duration time.Duration

	// Error is the error the operation ended with, if any.
	Error error

	// Size is a component-specific magnitude such as a row count.
	Size int64

	// Metadata carries additional, low-cardinality details.
	Metadata map[string]interface{}
}

// Observer receives OperationContext events. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}
