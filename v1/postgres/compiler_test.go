package postgres

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

type testAuthor struct {
	ID    uint
	Name  string
	Born  int
	Books []testBook `gorm:"foreignKey:AuthorID"`
}

type testBook struct {
	ID       uint
	Title    string
	Year     int
	AuthorID *uint
	Author   *testAuthor `gorm:"foreignKey:AuthorID"`
	Tags     []testTag   `gorm:"many2many:test_book_tags"`
}

type testTag struct {
	ID   uint
	Name string
}

// dryRun returns a Postgres that renders statements without a server.
func dryRun(t *testing.T) *Postgres {
	t.Helper()
	db, err := gorm.Open(
		driver.New(driver.Config{DSN: "host=localhost user=flexquery dbname=flexquery sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true},
	)
	require.NoError(t, err)
	return NewFromDB(db, logger.NewNop())
}

func booksSQL(t *testing.T, pg *Postgres, q predicate.Q) string {
	t.Helper()
	sql, err := pg.Manager(&testBook{}, nil).QuerySet().Where(q).ToSQL()
	require.NoError(t, err)
	return sql
}

func TestCompile_Lookups(t *testing.T) {
	pg := dryRun(t)

	tests := []struct {
		name string
		q    predicate.Q
		want string
	}{
		{"implicit exact", predicate.Lookup("title", "Dune"), `"test_books"."title" = 'Dune'`},
		{"explicit exact", predicate.Lookup("title__exact", "Dune"), `"test_books"."title" = 'Dune'`},
		{"go field name", predicate.Lookup("Title", "Dune"), `"test_books"."title" = 'Dune'`},
		{"pk", predicate.Lookup("pk", 3), `"test_books"."id" = 3`},
		{"iexact", predicate.Lookup("title__iexact", "dune"), `UPPER("test_books"."title"::text) = UPPER('dune')`},
		{"contains", predicate.Lookup("title__contains", "un"), `"test_books"."title"::text LIKE '%un%'`},
		{"icontains", predicate.Lookup("title__icontains", "UN"), `"test_books"."title"::text ILIKE '%UN%'`},
		{"startswith", predicate.Lookup("title__startswith", "Du"), `"test_books"."title"::text LIKE 'Du%'`},
		{"iendswith", predicate.Lookup("title__iendswith", "NE"), `"test_books"."title"::text ILIKE '%NE'`},
		{"escaped wildcard", predicate.Lookup("title__contains", "100%"), `LIKE '%100\%%'`},
		{"gt", predicate.Lookup("year__gt", 1960), `"test_books"."year" > 1960`},
		{"gte", predicate.Lookup("year__gte", 1960), `"test_books"."year" >= 1960`},
		{"lt", predicate.Lookup("year__lt", 1960), `"test_books"."year" < 1960`},
		{"lte", predicate.Lookup("year__lte", 1960), `"test_books"."year" <= 1960`},
		{"in", predicate.Lookup("year__in", []int{1965, 1968}), `"test_books"."year" IN (1965,1968)`},
		{"isnull", predicate.Lookup("author_id__isnull", true), `"test_books"."author_id" IS NULL`},
		{"not isnull", predicate.Lookup("author_id__isnull", false), `"test_books"."author_id" IS NOT NULL`},
		{"range", predicate.Lookup("year__range", []any{1960, 1970}), `"test_books"."year" BETWEEN 1960 AND 1970`},
		{"json number", predicate.Lookup("year", json.Number("1965")), `"test_books"."year" = 1965`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, booksSQL(t, pg, tt.q), tt.want)
		})
	}
}

func TestCompile_Connectors(t *testing.T) {
	pg := dryRun(t)

	or := predicate.Lookup("title", "Dune").Or(predicate.Lookup("year__lt", 1960))
	assert.Contains(t, booksSQL(t, pg, or),
		`("test_books"."title" = 'Dune' OR "test_books"."year" < 1960)`)

	and := predicate.FromMap(map[string]any{"title": "Dune", "year": 1965})
	assert.Contains(t, booksSQL(t, pg, and),
		`("test_books"."title" = 'Dune' AND "test_books"."year" = 1965)`)

	not := predicate.Lookup("year__gt", 2000).Not()
	assert.Contains(t, booksSQL(t, pg, not), `NOT ("test_books"."year" > 2000)`)

	notOr := or.Not()
	assert.Contains(t, booksSQL(t, pg, notOr),
		`NOT ("test_books"."title" = 'Dune' OR "test_books"."year" < 1960)`)
}

func TestCompile_EmptyPredicateMatchesEverything(t *testing.T) {
	pg := dryRun(t)

	sql := booksSQL(t, pg, predicate.Q{})
	assert.NotContains(t, sql, "WHERE")
}

func TestCompile_Relations(t *testing.T) {
	pg := dryRun(t)

	t.Run("belongs to", func(t *testing.T) {
		sql := booksSQL(t, pg, predicate.Lookup("author__name", "Herbert"))
		assert.Contains(t, sql,
			`"test_books"."author_id" IN (SELECT "id" FROM "test_authors" WHERE "test_authors"."name" = 'Herbert')`)
	})

	t.Run("belongs to bare", func(t *testing.T) {
		assert.Contains(t, booksSQL(t, pg, predicate.Lookup("author", 7)), `"test_books"."author_id" = 7`)
		assert.Contains(t, booksSQL(t, pg, predicate.Lookup("author__isnull", true)), `"test_books"."author_id" IS NULL`)
	})

	t.Run("prefixed", func(t *testing.T) {
		q := predicate.Lookup("born__lt", 1925).Prefix("author")
		assert.Contains(t, booksSQL(t, pg, q),
			`"test_books"."author_id" IN (SELECT "id" FROM "test_authors" WHERE "test_authors"."born" < 1925)`)
	})

	t.Run("has many", func(t *testing.T) {
		sql, err := pg.Manager(&testAuthor{}, nil).QuerySet().
			Where(predicate.Lookup("books__title__icontains", "dune")).
			ToSQL()
		require.NoError(t, err)
		assert.Contains(t, sql,
			`"test_authors"."id" IN (SELECT "author_id" FROM "test_books" WHERE "test_books"."title"::text ILIKE '%dune%')`)
	})

	t.Run("has many bare", func(t *testing.T) {
		sql, err := pg.Manager(&testAuthor{}, nil).QuerySet().
			Where(predicate.Lookup("books", 3)).
			ToSQL()
		require.NoError(t, err)
		assert.Contains(t, sql,
			`"test_authors"."id" IN (SELECT "author_id" FROM "test_books" WHERE "test_books"."id" = 3)`)
	})

	t.Run("query set operand", func(t *testing.T) {
		early := pg.Manager(&testAuthor{}, nil).QuerySet().Where(predicate.Lookup("born__lt", 1925))
		sql := booksSQL(t, pg, predicate.Lookup("author__in", early))
		assert.Contains(t, sql,
			`"test_books"."author_id" IN (SELECT "id" FROM "test_authors" WHERE "test_authors"."born" < 1925)`)
	})

	t.Run("manager operand", func(t *testing.T) {
		sql := booksSQL(t, pg, predicate.Lookup("author_id__in", pg.Manager(&testAuthor{}, nil)))
		assert.Contains(t, sql, `"test_books"."author_id" IN (SELECT "id" FROM "test_authors")`)
	})
}

func TestCompile_Errors(t *testing.T) {
	pg := dryRun(t)
	books := pg.Manager(&testBook{}, nil).QuerySet()

	tests := []struct {
		name string
		q    predicate.Q
		want error
	}{
		{"unknown field", predicate.Lookup("isbn", "x"), ErrUnknownField},
		{"unknown related field", predicate.Lookup("author__email", "x"), ErrUnknownField},
		{"unknown operator", predicate.Lookup("title__regex", "x"), ErrUnsupportedLookup},
		{"lookup past a column", predicate.Lookup("title__name__exact", "x"), ErrUnsupportedLookup},
		{"many to many", predicate.Lookup("tags__name", "sf"), ErrUnsupportedLookup},
		{"contains on a number", predicate.Lookup("title__contains", 3), ErrInvalidOperand},
		{"isnull on a string", predicate.Lookup("title__isnull", "yes"), ErrInvalidOperand},
		{"range with one bound", predicate.Lookup("year__range", []int{1}), ErrInvalidOperand},
		{"in on a scalar", predicate.Lookup("year__in", 3), ErrInvalidOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := books.Where(tt.q)
			assert.ErrorIs(t, qs.Err(), tt.want)

			_, err := qs.ToSQL()
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("reverse isnull", func(t *testing.T) {
		qs := pg.Manager(&testAuthor{}, nil).QuerySet().Where(predicate.Lookup("books__isnull", true))
		assert.ErrorIs(t, qs.Err(), ErrUnsupportedLookup)
	})
}

func TestLikeEscaper(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, likeEscaper.Replace(`a%b_c\d`))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(3), normalize(json.Number("3")))
	assert.Equal(t, 2.5, normalize(json.Number("2.5")))
	assert.Equal(t, "x", normalize("x"))
}
