package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

var (
	// ErrUnknownField is returned when a lookup names a field a row does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnsupportedLookup is returned for lookup operators the evaluator does not know.
	ErrUnsupportedLookup = errors.New("unsupported lookup")

	// ErrInvalidOperand is returned when a lookup value does not fit its operator.
	ErrInvalidOperand = errors.New("invalid lookup operand")
)

// operators lists the supported lookup suffixes.
var operators = map[string]struct{}{
	"exact":       {},
	"iexact":      {},
	"contains":    {},
	"icontains":   {},
	"startswith":  {},
	"istartswith": {},
	"endswith":    {},
	"iendswith":   {},
	"gt":          {},
	"gte":         {},
	"lt":          {},
	"lte":         {},
	"in":          {},
	"isnull":      {},
	"range":       {},
}

func isOperator(s string) bool {
	_, ok := operators[s]
	return ok
}

type evaluator struct {
	pk string
}

func (e evaluator) match(row Row, q predicate.Q) (bool, error) {
	if q.IsEmpty() {
		return true, nil
	}

	result := q.Connector() == predicate.AND
	for _, child := range q.Children() {
		var (
			ok  bool
			err error
		)
		switch c := child.(type) {
		case predicate.Leaf:
			ok, err = e.leaf(row, c)
		case predicate.Q:
			ok, err = e.match(row, c)
		}
		if err != nil {
			return false, err
		}
		if q.Connector() == predicate.AND && !ok {
			result = false
			break
		}
		if q.Connector() == predicate.OR && ok {
			result = true
			break
		}
	}

	if q.Negated() {
		return !result, nil
	}
	return result, nil
}

func (e evaluator) leaf(row Row, leaf predicate.Leaf) (bool, error) {
	parts := strings.Split(leaf.Key, predicate.Separator)
	return e.path(row, e.pk, parts, leaf)
}

// path walks parts through row. pk is the primary key field at this level.
func (e evaluator) path(row Row, pk string, parts []string, leaf predicate.Leaf) (bool, error) {
	field := parts[0]
	if field == "pk" {
		field = pk
	}

	value, ok := row[field]
	if !ok {
		return false, fmt.Errorf("%w: %q in lookup %q", ErrUnknownField, field, leaf.Key)
	}
	rest := parts[1:]

	switch related := value.(type) {
	case Row:
		if descends(related, rest) {
			return e.path(related, DefaultPrimaryKey, rest, leaf)
		}
	case []Row:
		if descends(nil, rest) {
			for _, item := range related {
				ok, err := e.path(item, DefaultPrimaryKey, rest, leaf)
				if err != nil || ok {
					return ok, err
				}
			}
			return false, nil
		}
	case nil:
		// Missing to-one relation: nothing below it matches.
		if len(rest) > 1 || (len(rest) == 1 && !isOperator(rest[0])) {
			return false, nil
		}
	}

	op := "exact"
	switch len(rest) {
	case 0:
	case 1:
		op = rest[0]
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedLookup, leaf.Key)
	}
	return e.compare(op, value, leaf)
}

// descends reports whether the remaining path continues into a related row
// rather than applying an operator to the relation itself.
func descends(related Row, rest []string) bool {
	if len(rest) == 0 {
		return false
	}
	if len(rest) > 1 || !isOperator(rest[0]) {
		return true
	}
	_, isField := related[rest[0]]
	return isField
}

func (e evaluator) compare(op string, value any, leaf predicate.Leaf) (bool, error) {
	operand := leaf.Value

	switch op {
	case "exact":
		if operand == nil {
			return value == nil, nil
		}
		return equal(value, operand), nil

	case "isnull":
		b, ok := operand.(bool)
		if !ok {
			return false, fmt.Errorf("%w: %q expects a bool, got %T", ErrInvalidOperand, leaf.Key, operand)
		}
		return (value == nil) == b, nil

	case "iexact", "contains", "icontains", "startswith", "istartswith", "endswith", "iendswith":
		pattern, ok := operand.(string)
		if !ok {
			return false, fmt.Errorf("%w: %q expects a string, got %T", ErrInvalidOperand, leaf.Key, operand)
		}
		s, ok := value.(string)
		if !ok {
			return false, nil
		}
		return matchText(op, s, pattern), nil

	case "gt", "gte", "lt", "lte":
		if value == nil || operand == nil {
			return false, nil
		}
		c, err := order(value, operand)
		if err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrInvalidOperand, leaf.Key, err)
		}
		switch op {
		case "gt":
			return c > 0, nil
		case "gte":
			return c >= 0, nil
		case "lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}

	case "range":
		bounds, err := items(operand)
		if err != nil || len(bounds) != 2 {
			return false, fmt.Errorf("%w: %q expects two bounds", ErrInvalidOperand, leaf.Key)
		}
		if value == nil {
			return false, nil
		}
		lo, err := order(value, bounds[0])
		if err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrInvalidOperand, leaf.Key, err)
		}
		hi, err := order(value, bounds[1])
		if err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrInvalidOperand, leaf.Key, err)
		}
		return lo >= 0 && hi <= 0, nil

	case "in":
		candidates, err := items(operand)
		if err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrInvalidOperand, leaf.Key, err)
		}
		for _, c := range candidates {
			if equal(value, c) {
				return true, nil
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("%w: %q", ErrUnsupportedLookup, leaf.Key)
}

func matchText(op, s, pattern string) bool {
	if strings.HasPrefix(op, "i") {
		s, pattern = strings.ToLower(s), strings.ToLower(pattern)
		op = op[1:]
	}
	switch op {
	case "exact":
		return s == pattern
	case "contains":
		return strings.Contains(s, pattern)
	case "startswith":
		return strings.HasPrefix(s, pattern)
	default:
		return strings.HasSuffix(s, pattern)
	}
}

// items expands an "in" or "range" operand. A *Collection contributes the
// primary keys of its rows, other operands must be slices or arrays.
func items(operand any) ([]any, error) {
	switch v := operand.(type) {
	case *Collection:
		return v.PrimaryKeys()
	case *Manager:
		return v.collection().PrimaryKeys()
	case []any:
		return v, nil
	}

	rv := reflect.ValueOf(operand)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list or a memory collection, got %T", operand)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func equal(a, b any) bool {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return na.Cmp(nb) == 0
		}
	}
	return reflect.DeepEqual(a, b)
}

// order compares a and b, which must both be numbers, strings or times.
func order(a, b any) (int, error) {
	if na, ok := number(a); ok {
		nb, ok := number(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return na.Cmp(nb), nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return strings.Compare(av, bv), nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		return av.Compare(bv), nil
	}
	return 0, fmt.Errorf("%T values are not ordered", a)
}

// number converts v to an exact big.Float. Integers keep all their bits, so
// keys beyond 2^53 stay distinct. NaN is not a number here.
func number(v any) (*big.Float, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return new(big.Float).SetInt64(i), true
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) {
			return nil, false
		}
		return new(big.Float).SetFloat64(f), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Float).SetInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Float).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		if math.IsNaN(rv.Float()) {
			return nil, false
		}
		return new(big.Float).SetFloat64(rv.Float()), true
	}
	return nil, false
}
