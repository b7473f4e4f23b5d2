package cli

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	driver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Aleph-Alpha/flexquery/v1/postgres"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

func newRenderCmd(s *state) *cobra.Command {
	var (
		table      string
		prefix     string
		primaryKey string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the PostgreSQL statement a predicate compiles to",
		Long: `Render reads a predicate and prints the SELECT it compiles to against
--table. Nothing is executed and no database is needed.

Columns are taken from the lookup keys, so relation lookups such as
author__name are not available here.`,
		Example: `  flexquery render --table books -f recent.json
  echo '{"children":[{"key":"title__icontains","value":"dune"}]}' | flexquery render --table books`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := s.readPredicate(cmd)
			if err != nil {
				return err
			}
			if prefix != "" {
				q = q.Prefix(prefix)
			}
			if primaryKey == "" {
				primaryKey = s.cfg.Render.PrimaryKey
			}

			sql, err := render(table, primaryKey, q)
			if err != nil {
				s.log.Error("Failed to render predicate", err, map[string]interface{}{
					"table": table,
				})
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table to query (required)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix lookup keys before rendering")
	cmd.Flags().StringVar(&primaryKey, "pk", "", `Primary key column "pk" resolves to (default from config, else "id")`)
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// render compiles q against table in a gorm DryRun session.
func render(table, primaryKey string, q predicate.Q) (string, error) {
	db, err := gorm.Open(
		driver.New(driver.Config{DSN: "sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true, Logger: gormlogger.Discard},
	)
	if err != nil {
		return "", fmt.Errorf("opening dry-run session: %w", err)
	}

	model := columnModel(primaryKey, columnsOf(q))
	pg := postgres.NewFromDB(db, nil)
	return pg.Manager(model, nil, postgres.WithTable(table)).QuerySet().Where(q).ToSQL()
}

// columnsOf returns the distinct first segments of the lookup keys of q,
// sorted, without "pk".
func columnsOf(q predicate.Q) []string {
	seen := map[string]struct{}{}
	for _, leaf := range q.Leaves() {
		name, _, _ := strings.Cut(leaf.Key, predicate.Separator)
		if name == "pk" {
			continue
		}
		seen[name] = struct{}{}
	}

	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

// columnModel builds a struct type gorm can parse: one field per column,
// with primaryKey marked as the primary key.
func columnModel(primaryKey string, columns []string) any {
	fields := []reflect.StructField{{
		Name: "PrimaryKey",
		Type: reflect.TypeOf(int64(0)),
		Tag:  reflect.StructTag(fmt.Sprintf(`gorm:"column:%s;primaryKey"`, primaryKey)),
	}}
	for i, column := range columns {
		if column == primaryKey {
			continue
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("Column_%d", i),
			Type: reflect.TypeOf(""),
			Tag:  reflect.StructTag(fmt.Sprintf(`gorm:"column:%s"`, column)),
		})
	}
	return reflect.New(reflect.StructOf(fields)).Interface()
}
