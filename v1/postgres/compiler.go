package postgres

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

// schemaCache is shared by every query set; gorm keys it by model type.
var schemaCache sync.Map

// parseSchema parses model. A non-empty table overrides the table name gorm
// would derive from the model.
func parseSchema(db *gorm.DB, model any, table string) (*schema.Schema, error) {
	sch, err := schema.ParseWithSpecialTableName(model, &schemaCache, db.NamingStrategy, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return sch, nil
}

var operators = map[string]struct{}{
	"exact": {}, "iexact": {},
	"contains": {}, "icontains": {},
	"startswith": {}, "istartswith": {},
	"endswith": {}, "iendswith": {},
	"gt": {}, "gte": {}, "lt": {}, "lte": {},
	"in": {}, "isnull": {}, "range": {},
}

func isOperator(s string) bool {
	_, ok := operators[s]
	return ok
}

// compiler turns predicate trees into gorm clause expressions for one model.
type compiler struct {
	db     *gorm.DB
	schema *schema.Schema
}

func newCompiler(db *gorm.DB, sch *schema.Schema) *compiler {
	return &compiler{db: db.Session(&gorm.Session{NewDB: true}), schema: sch}
}

// compile returns nil for an empty predicate: it matches every row.
func (c *compiler) compile(q predicate.Q) (clause.Expression, error) {
	if q.IsEmpty() {
		return nil, nil
	}

	exprs := make([]clause.Expression, 0, q.Len())
	for _, child := range q.Children() {
		var (
			expr clause.Expression
			err  error
		)
		switch ch := child.(type) {
		case predicate.Leaf:
			expr, err = c.leaf(ch)
		case predicate.Q:
			expr, err = c.compile(ch)
		}
		if err != nil {
			return nil, err
		}
		if expr != nil {
			exprs = append(exprs, expr)
		}
	}

	var expr clause.Expression
	switch {
	case len(exprs) == 0:
		return nil, nil
	case len(exprs) == 1:
		expr = exprs[0]
	default:
		sep := " AND "
		if q.Connector() == predicate.OR {
			sep = " OR "
		}
		expr = groupExpr{exprs: exprs, sep: sep}
	}

	if q.Negated() {
		return notExpr{expr: expr}, nil
	}
	return expr, nil
}

func (c *compiler) leaf(leaf predicate.Leaf) (clause.Expression, error) {
	parts := strings.Split(leaf.Key, predicate.Separator)
	return c.path(parts, leaf)
}

// path resolves the first segment of parts on the compiler's model. A plain
// field takes at most one operator; a relation hands the remaining segments
// to a compiler for the related model, wrapped in an IN subquery.
func (c *compiler) path(parts []string, leaf predicate.Leaf) (clause.Expression, error) {
	name, rest := parts[0], parts[1:]

	if rel := c.relation(name); rel != nil {
		return c.related(rel, rest, leaf)
	}

	field, err := c.field(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q in lookup %q", err, name, leaf.Key)
	}
	return c.column(field, rest, leaf)
}

func (c *compiler) column(field *schema.Field, rest []string, leaf predicate.Leaf) (clause.Expression, error) {
	op := "exact"
	switch {
	case len(rest) == 0:
	case len(rest) == 1 && isOperator(rest[0]):
		op = rest[0]
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLookup, leaf.Key)
	}

	col := clause.Column{Table: c.schema.Table, Name: field.DBName}
	return c.operator(col, op, leaf)
}

func (c *compiler) field(name string) (*schema.Field, error) {
	if name == "pk" {
		if c.schema.PrioritizedPrimaryField == nil {
			return nil, fmt.Errorf("%w: %s has no primary key", ErrUnknownField, c.schema.Name)
		}
		return c.schema.PrioritizedPrimaryField, nil
	}
	for _, f := range c.schema.Fields {
		if f.DBName == "" {
			continue
		}
		if f.DBName == name || strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, ErrUnknownField
}

func (c *compiler) relation(name string) *schema.Relationship {
	for _, rel := range c.schema.Relationships.Relations {
		if strings.EqualFold(rel.Name, name) {
			return rel
		}
	}
	return nil
}

// related compiles a lookup through rel.
//
// belongs-to:       own.fk IN (SELECT related.pk FROM related WHERE ...)
// has-one/has-many: own.pk IN (SELECT related.fk FROM related WHERE ...)
//
// A belongs-to relation followed by nothing or a bare operator compares the
// foreign key column itself, so author=3 and author__isnull=true work as
// expected.
func (c *compiler) related(rel *schema.Relationship, rest []string, leaf predicate.Leaf) (clause.Expression, error) {
	if rel.JoinTable != nil || len(rel.References) != 1 || rel.References[0].PrimaryValue != "" {
		return nil, fmt.Errorf("%w: %q crosses the %s relation %s", ErrUnsupportedLookup, leaf.Key, rel.Type, rel.Name)
	}
	ref := rel.References[0]

	bare := len(rest) == 0 || (len(rest) == 1 && isOperator(rest[0]))
	if bare {
		if !ref.OwnPrimaryKey {
			return c.column(ref.ForeignKey, rest, leaf)
		}
		if len(rest) == 1 && rest[0] == "isnull" {
			return nil, fmt.Errorf("%w: %q, isnull on a reverse relation", ErrUnsupportedLookup, leaf.Key)
		}
		rest = append([]string{"pk"}, rest...)
	}

	inner := newCompiler(c.db, rel.FieldSchema)
	cond, err := inner.path(rest, leaf)
	if err != nil {
		return nil, err
	}

	var outer, selected *schema.Field
	if ref.OwnPrimaryKey {
		outer, selected = ref.PrimaryKey, ref.ForeignKey
	} else {
		outer, selected = ref.ForeignKey, ref.PrimaryKey
	}

	sub := c.db.
		Model(reflect.New(rel.FieldSchema.ModelType).Interface()).
		Select(selected.DBName).
		Where(cond)

	return clause.Expr{
		SQL:  "? IN (?)",
		Vars: []interface{}{clause.Column{Table: c.schema.Table, Name: outer.DBName}, sub},
	}, nil
}

func (c *compiler) operator(col clause.Column, op string, leaf predicate.Leaf) (clause.Expression, error) {
	value := normalize(leaf.Value)

	switch op {
	case "exact":
		return clause.Eq{Column: col, Value: value}, nil
	case "iexact":
		return clause.Expr{SQL: "UPPER(?::text) = UPPER(?)", Vars: []interface{}{col, value}}, nil
	case "gt":
		return clause.Gt{Column: col, Value: value}, nil
	case "gte":
		return clause.Gte{Column: col, Value: value}, nil
	case "lt":
		return clause.Lt{Column: col, Value: value}, nil
	case "lte":
		return clause.Lte{Column: col, Value: value}, nil

	case "contains", "icontains", "startswith", "istartswith", "endswith", "iendswith":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %q expects a string, got %T", ErrInvalidOperand, leaf.Key, value)
		}
		return likeExpr(col, op, s), nil

	case "isnull":
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %q expects a bool, got %T", ErrInvalidOperand, leaf.Key, value)
		}
		if b {
			return clause.Eq{Column: col, Value: nil}, nil
		}
		return clause.Neq{Column: col, Value: nil}, nil

	case "range":
		bounds, err := items(value)
		if err != nil || len(bounds) != 2 {
			return nil, fmt.Errorf("%w: %q expects two bounds", ErrInvalidOperand, leaf.Key)
		}
		return clause.Expr{SQL: "? BETWEEN ? AND ?", Vars: []interface{}{col, bounds[0], bounds[1]}}, nil

	case "in":
		return c.in(col, value, leaf)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedLookup, leaf.Key)
}

func (c *compiler) in(col clause.Column, value any, leaf predicate.Leaf) (clause.Expression, error) {
	switch v := value.(type) {
	case *QuerySet:
		sub, err := v.subquery()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", leaf.Key, err)
		}
		return clause.Expr{SQL: "? IN (?)", Vars: []interface{}{col, sub}}, nil
	case *Manager:
		return c.in(col, v.queryset(), leaf)
	}

	values, err := items(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidOperand, leaf.Key, err)
	}
	return clause.IN{Column: col, Values: values}, nil
}

// likeExpr builds LIKE / ILIKE with the pattern's wildcards escaped.
func likeExpr(col clause.Column, op, s string) clause.Expression {
	keyword := "LIKE"
	if strings.HasPrefix(op, "i") {
		keyword = "ILIKE"
		op = op[1:]
	}

	escaped := likeEscaper.Replace(s)
	switch op {
	case "contains":
		escaped = "%" + escaped + "%"
	case "startswith":
		escaped = escaped + "%"
	case "endswith":
		escaped = "%" + escaped
	}
	return clause.Expr{SQL: "?::text " + keyword + " ?", Vars: []interface{}{col, escaped}}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// items expands a list operand.
func items(value any) ([]interface{}, error) {
	if v, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = normalize(v[i])
		}
		return out, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list or a query set, got %T", value)
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = normalize(rv.Index(i).Interface())
	}
	return out, nil
}

// normalize converts json.Number operands, as produced by decoding
// predicates from JSON, to int64 or float64.
func normalize(value any) any {
	n, ok := value.(json.Number)
	if !ok {
		return value
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// groupExpr joins expressions with sep inside parentheses.
type groupExpr struct {
	exprs []clause.Expression
	sep   string
}

func (g groupExpr) Build(builder clause.Builder) {
	builder.WriteByte('(')
	for i, expr := range g.exprs {
		if i > 0 {
			builder.WriteString(g.sep)
		}
		expr.Build(builder)
	}
	builder.WriteByte(')')
}

// notExpr negates expr. The operand is always parenthesized.
type notExpr struct {
	expr clause.Expression
}

func (n notExpr) Build(builder clause.Builder) {
	builder.WriteString("NOT ")
	if _, grouped := n.expr.(groupExpr); grouped {
		n.expr.Build(builder)
		return
	}
	builder.WriteByte('(')
	n.expr.Build(builder)
	builder.WriteByte(')')
}

// noneExpr matches no row.
var noneExpr = clause.Expr{SQL: "1 = 0"}
