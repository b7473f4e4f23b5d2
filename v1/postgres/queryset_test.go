package postgres

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/logger"
	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
	"github.com/Aleph-Alpha/flexquery/v1/tracer"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (r *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, ctx)
}

func (r *recordingObserver) operations() []observability.OperationContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observability.OperationContext(nil), r.ops...)
}

func bookFilters() *flexquery.Registry {
	publishedAfter := flexquery.MustFromPredicate(func(args ...any) predicate.Q {
		return predicate.Lookup("year__gt", args[0])
	})
	recentOnly := flexquery.MustFromCollection(func(base flexquery.Collection, args ...any) flexquery.Collection {
		return base.Filter(predicate.Lookup("year__gt", 2000))
	}, flexquery.QuerySetOnly())

	return flexquery.NewRegistry("books").
		MustDeclare("publishedAfter", publishedAfter).
		MustDeclare("recentOnly", recentOnly)
}

func toSQL(t *testing.T, c flexquery.Collection) string {
	t.Helper()
	qs, ok := c.(*QuerySet)
	require.True(t, ok, "expected *postgres.QuerySet, got %T", c)
	sql, err := qs.ToSQL()
	require.NoError(t, err)
	return sql
}

func TestQuerySet_PredicateFilter(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, bookFilters())

	f, err := books.QuerySet().FQ("publishedAfter")
	require.NoError(t, err)
	assert.Equal(t, flexquery.KindPredicate, f.Kind())

	assert.Contains(t, toSQL(t, f.Call(1990)), `WHERE "test_books"."year" > 1990`)
	assert.Contains(t, toSQL(t, books.Filter(f.AsQ(1990))), `WHERE "test_books"."year" > 1990`)
}

func TestQuerySet_CollectionFilterAsQ(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, bookFilters())

	f, err := books.QuerySet().FQ("recentOnly")
	require.NoError(t, err)

	assert.Contains(t, toSQL(t, f.Call()), `WHERE "test_books"."year" > 2000`)

	q := f.AsQ()
	leaves := q.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, "pk__in", leaves[0].Key)

	assert.Contains(t, toSQL(t, books.Filter(q)),
		`"test_books"."id" IN (SELECT "id" FROM "test_books" WHERE "test_books"."year" > 2000)`)
}

func TestManager_ExcludesQuerySetOnlyFilters(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, bookFilters())

	_, err := books.FQ("publishedAfter")
	assert.NoError(t, err)

	_, err = books.FQ("recentOnly")
	assert.ErrorIs(t, err, flexquery.ErrUnknownFilter)

	_, err = books.All().(*QuerySet).FQ("recentOnly")
	assert.NoError(t, err)
}

func TestManager_NilRegistry(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil)

	_, err := books.FQ("anything")
	assert.ErrorIs(t, err, flexquery.ErrUnknownFilter)

	_, err = books.QuerySet().FQ("anything")
	assert.ErrorIs(t, err, flexquery.ErrUnknownFilter)
}

func TestQuerySet_Chaining(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil).QuerySet()

	sql, err := books.
		Where(predicate.Lookup("title__startswith", "D")).
		Exclude(predicate.Lookup("year__gt", 2000)).
		Order("year DESC").
		Limit(5).
		Offset(10).
		ToSQL()
	require.NoError(t, err)

	assert.Contains(t, sql, `"test_books"."title"::text LIKE 'D%'`)
	assert.Contains(t, sql, `NOT ("test_books"."year" > 2000)`)
	assert.Contains(t, sql, `ORDER BY year DESC`)
	assert.Contains(t, sql, `LIMIT 5`)
	assert.Contains(t, sql, `OFFSET 10`)
}

func TestQuerySet_None(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil)

	assert.Contains(t, toSQL(t, books.None()), `1 = 0`)
}

func TestQuerySet_ExcludeEmptyMatchesAll(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil).QuerySet()

	sql := toSQL(t, books.Exclude(predicate.Q{}))
	assert.NotContains(t, sql, "WHERE")
	assert.Equal(t, toSQL(t, books.Where(predicate.Q{}.Not())), sql)
}

func TestQuerySet_IsImmutable(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil).QuerySet()

	filtered := books.Where(predicate.Lookup("year", 1965))
	_ = filtered.Order("title").Limit(1)
	broken := filtered.Where(predicate.Lookup("isbn", "x"))

	base, err := books.ToSQL()
	require.NoError(t, err)
	assert.NotContains(t, base, "WHERE")

	sql, err := filtered.ToSQL()
	require.NoError(t, err)
	assert.Contains(t, sql, `"test_books"."year" = 1965`)
	assert.NotContains(t, sql, "ORDER BY")
	assert.NoError(t, filtered.Err())

	assert.ErrorIs(t, broken.Err(), ErrUnknownField)
}

func TestQuerySet_ErrorsSurfaceAtTerminalOperations(t *testing.T) {
	obs := &recordingObserver{}
	books := dryRun(t).Manager(&testBook{}, nil).WithObserver(obs)

	qs := books.QuerySet().Where(predicate.Lookup("isbn", "x")).Order("title")

	var out []testBook
	assert.ErrorIs(t, qs.Find(context.Background(), &out), ErrUnknownField)

	_, err := qs.Count(context.Background())
	assert.ErrorIs(t, err, ErrUnknownField)

	ops := obs.operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "find", ops[0].Operation)
	assert.ErrorIs(t, ops[0].Error, ErrUnknownField)
	assert.Equal(t, "count", ops[1].Operation)
}

func TestQuerySet_ObservesAndTracesOperations(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := tracer.NewWithProvider(tp, logger.NewNop())
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	obs := &recordingObserver{}
	books := dryRun(t).Manager(&testBook{}, nil).WithObserver(obs).WithTracer(tr)

	qs := books.Filter(predicate.Lookup("year", 1965)).(*QuerySet)
	_, err := qs.Count(context.Background())
	require.NoError(t, err)

	ops := obs.operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "postgres", ops[0].Component)
	assert.Equal(t, "count", ops[0].Operation)
	assert.Equal(t, "test_books", ops[0].Resource)
	assert.NoError(t, ops[0].Error)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "postgres.count", spans[0].Name())
}

func TestQuerySet_MissingModel(t *testing.T) {
	qs := dryRun(t).Manager(42, nil).QuerySet()

	assert.ErrorIs(t, qs.Err(), ErrInvalidModel)
	assert.Equal(t, "postgres.QuerySet(invalid)", qs.String())

	_, err := qs.Count(context.Background())
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestString(t *testing.T) {
	books := dryRun(t).Manager(&testBook{}, nil)

	assert.Equal(t, "postgres.Manager(test_books)", books.String())
	assert.Equal(t, "postgres.QuerySet(test_books)", books.QuerySet().String())
}

func TestManager_WithTable(t *testing.T) {
	archived := dryRun(t).Manager(&testBook{}, nil, WithTable("archived_books"))

	sql := toSQL(t, archived.Filter(predicate.Lookup("title", "Dune")))
	assert.Contains(t, sql, `FROM "archived_books" WHERE "archived_books"."title" = 'Dune'`)
	assert.Equal(t, "postgres.Manager(archived_books)", archived.String())
}
