package predicate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Separator delimits the segments of a lookup key, e.g. "author__name__icontains".
const Separator = "__"

// Connector is the boolean operator joining the children of a Q node.
type Connector int

const (
	// AND requires every child to match.
	AND Connector = iota
	// OR requires at least one child to match.
	OR
)

// String returns "AND" or "OR".
func (c Connector) String() string {
	if c == OR {
		return "OR"
	}
	return "AND"
}

// Child is either a Leaf or a nested Q.
type Child interface {
	isChild()
}

// Leaf is a single field lookup constraint.
//
// Key names a field, optionally a relation path, and optionally a comparison
// operator, all joined by Separator. Value is handed to the query backend as is.
type Leaf struct {
	Key   string
	Value any
}

func (Leaf) isChild() {}

// String renders the leaf as key=value.
func (l Leaf) String() string {
	return fmt.Sprintf("%s=%v", l.Key, l.Value)
}

// Q is an immutable tree of field lookups combined with AND/OR and optional negation.
//
// The zero value is the empty expression, which matches everything.
// Every operation on Q returns a new tree; no method mutates its receiver.
//
// Example:
//
//	adults := predicate.Lookup("age__gte", 18)
//	active := predicate.Lookup("status", "active")
//	q := adults.And(active.Not()).Prefix("owner")
//	// (AND: owner__age__gte=18, (NOT (AND: owner__status=active)))
type Q struct {
	children  []Child
	connector Connector
	negated   bool
}

func (Q) isChild() {}

// New builds an AND expression over the given children.
func New(children ...Child) Q {
	return Compose(AND, false, children...)
}

// Compose builds an expression with an explicit connector and negation flag.
// The children slice is copied.
func Compose(conn Connector, negated bool, children ...Child) Q {
	q := Q{connector: conn, negated: negated}
	if len(children) > 0 {
		q.children = make([]Child, len(children))
		copy(q.children, children)
	}
	return q
}

// Lookup builds the single-constraint expression key=value.
func Lookup(key string, value any) Q {
	return New(Leaf{Key: key, Value: value})
}

// FromMap builds an AND expression with one leaf per map entry.
// Keys are sorted so that the resulting tree is deterministic.
func FromMap(lookups map[string]any) Q {
	keys := make([]string, 0, len(lookups))
	for k := range lookups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make([]Child, 0, len(keys))
	for _, k := range keys {
		children = append(children, Leaf{Key: k, Value: lookups[k]})
	}
	return New(children...)
}

// Children returns a copy of the node's children.
func (q Q) Children() []Child {
	if len(q.children) == 0 {
		return nil
	}
	out := make([]Child, len(q.children))
	copy(out, q.children)
	return out
}

// Connector returns the node's connector.
func (q Q) Connector() Connector { return q.connector }

// Negated reports whether the node is negated.
func (q Q) Negated() bool { return q.negated }

// Len returns the number of direct children.
func (q Q) Len() int { return len(q.children) }

// IsEmpty reports whether the node has no children. An empty expression
// imposes no constraint, whatever its negation flag.
func (q Q) IsEmpty() bool { return len(q.children) == 0 }

// Leaves returns every leaf of the tree in depth-first order.
func (q Q) Leaves() []Leaf {
	var out []Leaf
	for _, child := range q.children {
		switch c := child.(type) {
		case Leaf:
			out = append(out, c)
		case Q:
			out = append(out, c.Leaves()...)
		}
	}
	return out
}

// Equal reports whether both trees have the same shape, flags and leaves.
// Leaf values are compared with reflect.DeepEqual.
func (q Q) Equal(other Q) bool {
	if q.connector != other.connector || q.negated != other.negated || len(q.children) != len(other.children) {
		return false
	}
	for i := range q.children {
		if !childEqual(q.children[i], other.children[i]) {
			return false
		}
	}
	return true
}

func childEqual(a, b Child) bool {
	switch x := a.(type) {
	case Leaf:
		y, ok := b.(Leaf)
		return ok && x.Key == y.Key && reflect.DeepEqual(x.Value, y.Value)
	case Q:
		y, ok := b.(Q)
		return ok && x.Equal(y)
	}
	return false
}

// Prefix returns a deep copy of the tree in which every lookup key is
// rewritten to prefix + Separator + key. Connectors and negation flags are kept.
//
// The prefix may itself span several relations, e.g. "tree__fruit".
// Use it to delegate constraints written for one model to a related field:
//
//	q := fruitFilter.AsQ().Prefix("fruit") // fruit__color=red
func (q Q) Prefix(prefix string) Q {
	out := Q{connector: q.connector, negated: q.negated}
	if len(q.children) == 0 {
		return out
	}
	out.children = make([]Child, len(q.children))
	for i, child := range q.children {
		switch c := child.(type) {
		case Leaf:
			out.children[i] = Leaf{Key: prefix + Separator + c.Key, Value: c.Value}
		case Q:
			out.children[i] = c.Prefix(prefix)
		}
	}
	return out
}

// String renders the tree, e.g. "(OR: (NOT (AND: a=42)), (AND: b=43, c=44))".
func (q Q) String() string {
	var sb strings.Builder
	q.writeTo(&sb)
	return sb.String()
}

func (q Q) writeTo(sb *strings.Builder) {
	if q.negated {
		sb.WriteString("(NOT ")
	}
	sb.WriteByte('(')
	sb.WriteString(q.connector.String())
	sb.WriteByte(':')
	for i, child := range q.children {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte(' ')
		switch c := child.(type) {
		case Leaf:
			sb.WriteString(c.String())
		case Q:
			c.writeTo(sb)
		}
	}
	sb.WriteByte(')')
	if q.negated {
		sb.WriteByte(')')
	}
}
