// Package memory is an in-memory flexquery backend.
//
// Rows are plain maps. A Collection evaluates predicate.Q trees against them
// with the usual lookup syntax, field__operator, where relation fields hold
// either a nested Row (to-one) or a []Row (to-many):
//
//	books := memory.New("books", []memory.Row{
//	    {"id": 1, "title": "Dune", "author": memory.Row{"id": 7, "name": "Herbert"}},
//	})
//	qs := books.Filter(predicate.Lookup("author__name__istartswith", "her"))
//
// Supported operators: exact (the default), iexact, contains, icontains,
// startswith, istartswith, endswith, iendswith, gt, gte, lt, lte, in, range and
// isnull. The operand of "in" may be another memory Collection, which
// contributes the primary keys of its rows; that is what pk__in predicates
// produced by flexquery collection filters rely on.
//
// The package is meant for tests, fixtures and small in-process data sets.
package memory
