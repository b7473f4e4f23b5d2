package flexquery

import "github.com/Aleph-Alpha/flexquery/v1/predicate"

// Collection is the query-collection API filters are bound to. Managers and
// query sets of every backend implement it.
//
// Implementations must treat collections as immutable: each method returns a
// new Collection and leaves the receiver usable as it was.
//
//go:generate mockgen -source=collection.go -destination=mock_collection.go -package=flexquery
type Collection interface {
	// All returns an unfiltered view of the collection.
	All() Collection

	// Filter returns the collection narrowed by q.
	Filter(q predicate.Q) Collection

	// None returns a view that never yields anything.
	None() Collection
}
