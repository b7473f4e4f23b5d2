// Package predicate provides Q, an immutable boolean tree of field lookups.
//
// A Q node holds leaves (a lookup key and a value) and nested Q nodes, joined
// by a connector (AND/OR) and optionally negated. Query backends translate the
// tree into their own filter language; this package never interprets keys.
//
// # Building expressions
//
//	q := predicate.Lookup("age__gte", 18).
//		And(predicate.Lookup("status", "active").Not()).
//		Or(predicate.Lookup("role", "admin"))
//
// Lookup keys follow the "field__relation__operator" convention, with
// Separator ("__") between segments. FromMap builds an AND node from a map,
// sorting keys for a deterministic tree.
//
// # Prefixing
//
// Prefix rewrites every key of a tree so that constraints written for one model
// can be applied through a relation of another:
//
//	fruitIsRed := predicate.Lookup("color", "red")
//	treesWithRedFruit := fruitIsRed.Prefix("fruit") // fruit__color=red
//
// # Serialization
//
// Q implements json.Marshaler and json.Unmarshaler so that stored or
// user-supplied filters can travel as JSON:
//
//	{"connector":"OR","children":[{"key":"a","value":1},{"connector":"AND","negated":true,"children":[{"key":"b","value":2}]}]}
package predicate
