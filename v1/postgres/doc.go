// Package postgres runs flexquery filters against PostgreSQL through GORM.
//
// A Manager is the entry point to the rows of one model. Its All, Filter and
// None return a QuerySet: an immutable query that compiles predicates into
// SQL as they are added and only touches the database in its terminal
// methods (Find, First, Count, Exists, Pluck, Update, Delete).
//
// Lookups:
//
// Predicate keys follow the field__operator form. A field is matched against
// the column name or the Go field name, and "pk" names the primary key.
// Supported operators are exact (the default), iexact, contains, icontains,
// startswith, istartswith, endswith, iendswith, gt, gte, lt, lte, in, isnull
// and range. The operand of "in" may be a slice, a *QuerySet or a *Manager;
// query sets become subqueries over their primary keys.
//
// A key may traverse belongs-to, has-one and has-many associations, e.g.
// author__name__icontains. Each traversal becomes an IN subquery, so a
// has-many lookup matches when any related row does. Many-to-many and
// polymorphic associations are not supported.
//
// Basic Usage:
//
//	pg, err := postgres.NewPostgres(cfg, log)
//	if err != nil {
//		return err
//	}
//	defer pg.GracefulShutdown()
//
//	books := pg.Manager(&Book{}, bookFilters)
//
//	var result []Book
//	err = books.QuerySet().
//		Where(predicate.Lookup("author__name__icontains", "le guin")).
//		Order("published_at DESC").
//		Find(ctx, &result)
//
// Filters:
//
//	recent, err := books.FQ("publishedAfter")
//	if err != nil {
//		return err
//	}
//	qs := recent.Call(2020).(*postgres.QuerySet)
//	count, err := qs.Count(ctx)
//
// Inspecting SQL:
//
//	sql, err := qs.ToSQL()
//
// Errors:
//
// Terminal methods return the package sentinels (ErrRecordNotFound,
// ErrDuplicateKey, ErrForeignKey, ...) for recognised gorm and PostgreSQL
// errors. A lookup that cannot be compiled fails with ErrUnknownField,
// ErrUnsupportedLookup or ErrInvalidOperand, reported by the first terminal
// method or by Err.
//
// FX Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		postgres.FXModule,
//		fx.Provide(func() postgres.Config { return cfg }),
//	)
//
// Thread Safety:
//
// Postgres is safe for concurrent use; reconnection swaps the underlying
// handle atomically. Managers and query sets are immutable values.
package postgres
