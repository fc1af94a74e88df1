package entity

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
)

// bookListQuery compiles "SELECT name, bookList FROM Author" against the
// library registry.
func bookListQuery(t *testing.T, reg *Registry, f exec.Fetcher) *exec.Context {
	t.Helper()
	ctx := context.Background()
	author, err := reg.Get(ctx, "Author")
	require.NoError(t, err)

	list := sql.C("bookList")
	ec := exec.NewContext(ctx, exec.Tuple)
	ec.Entity, ec.Subject = author.Name(), author.Name()
	ec.Query = sql.SelectFrom(author.Name()).Project(&sql.TupleColumn{Expr: sql.C("name")}, &sql.TupleColumn{Expr: list})
	ec.Column = list
	ec.Plan = exec.NewPlan()
	ec.Schema = reg
	ec.Fetcher = f

	p, err := author.Property("bookList")
	require.NoError(t, err)
	require.NoError(t, p.Handle(ec))
	return ec
}

func TestCrossReferenceFetchMock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	ec := bookListQuery(t, library(t), sql.NewExecutor(sql.OpenDB(dialect.Postgres, db), sql.WithExecutorLogger(discard)))
	query, _ := sql.Render(dialect.Postgres, ec.Query)
	assert.Equal(t, `SELECT "name", NULL AS "bookList", "Author"."id" FROM "Author"`, query)

	mock.ExpectQuery(`SELECT "t0".*, "t1"."authorId" AS "__ref0" FROM "Book" AS "t0" JOIN "AuthorToBook" AS "t1" ON "t0"."id" = "t1"."bookId" WHERE "t1"."authorId" IN ($1, $2)`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "__ref0"}).
			AddRow(10, "Dune", 1).
			AddRow(12, "Ulysses", 1))

	rows, err := ec.Plan.Process(context.Background(), []exec.Row{
		{"name": "Ann", "bookList": nil, "id": 1},
		{"name": "Bob", "bookList": nil, "id": 2},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []exec.Row{
		{"name": "Ann", "bookList": []exec.Row{{"id": int64(10), "title": "Dune"}, {"id": int64(12), "title": "Ulysses"}}},
		{"name": "Bob", "bookList": []exec.Row{}},
	}, rows)
}

func TestCrossReferenceFetchSQLite(t *testing.T) {
	ctx := context.Background()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	defer drv.Close()
	drv.DB().SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE "Author" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL)`,
		`CREATE TABLE "Book" ("id" INTEGER PRIMARY KEY, "title" TEXT NOT NULL, "publisherId" INTEGER)`,
		`CREATE TABLE "AuthorToBook" ("bookId" INTEGER NOT NULL, "authorId" INTEGER NOT NULL, PRIMARY KEY ("bookId", "authorId"))`,
		`INSERT INTO "Author" VALUES (1, 'Ann'), (2, 'Bob'), (3, 'Cy')`,
		`INSERT INTO "Book" VALUES (10, 'Dune', NULL), (11, 'Emma', NULL), (12, 'Ulysses', NULL)`,
		`INSERT INTO "AuthorToBook" VALUES (10, 1), (11, 1), (12, 2), (11, 2)`,
	} {
		_, err := drv.DB().ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	executor := sql.NewExecutor(drv, sql.WithExecutorLogger(discard))
	ec := bookListQuery(t, library(t), executor)
	rows, err := executor.Fetch(ctx, ec.Query)
	require.NoError(t, err)
	rows, err = ec.Plan.Process(ctx, rows)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byName := make(map[string]exec.Row, len(rows))
	for _, r := range rows {
		assert.NotContains(t, r, "id")
		byName[r["name"].(string)] = r
	}
	assert.ElementsMatch(t, []exec.Row{
		{"id": int64(10), "title": "Dune", "publisherId": nil},
		{"id": int64(11), "title": "Emma", "publisherId": nil},
	}, byName["Ann"]["bookList"])
	assert.ElementsMatch(t, []exec.Row{
		{"id": int64(12), "title": "Ulysses", "publisherId": nil},
		{"id": int64(11), "title": "Emma", "publisherId": nil},
	}, byName["Bob"]["bookList"])
	assert.Equal(t, []exec.Row{}, byName["Cy"]["bookList"])
}
