package sql

import (
	"testing"

	"github.com/syssam/entmeta/dialect"

	"github.com/stretchr/testify/assert"
)

func TestBuilderIdent(t *testing.T) {
	tests := []struct {
		dialect string
		ident   string
		want    string
	}{
		{dialect.Postgres, "users.id", `"users"."id"`},
		{dialect.MySQL, "users.id", "`users`.`id`"},
		{dialect.SQLite, "users.id", `"users"."id"`},
		{dialect.MySQL, "we`ird", "`we``ird`"},
		{dialect.Postgres, "t.*", `"t".*`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.ident, func(t *testing.T) {
			query, _ := Dialect(tt.dialect).Ident(tt.ident).Query()
			assert.Equal(t, tt.want, query)
		})
	}
}

func TestRenderSelect(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		query, args := Render(dialect.SQLite, SelectFrom("book"))
		assert.Equal(t, `SELECT * FROM "book"`, query)
		assert.Empty(t, args)
	})

	t.Run("projection_and_filter", func(t *testing.T) {
		q := SelectFrom("Book").Project(
			&TupleColumn{Expr: EC("Book", "id")},
			&TupleColumn{Expr: C("title"), Alias: "name"},
		)
		q.Table = "book"
		q.Filter(FieldEQ("status", "published")).Filter(FieldIn("id", 1, 2))
		query, args := Render(dialect.Postgres, q)
		assert.Equal(t, `SELECT "Book"."id", "title" AS "name" FROM "book" WHERE ("status" = $1 AND "id" IN ($2, $3))`, query)
		assert.Equal(t, []any{"published", 1, 2}, args)
	})

	t.Run("subquery", func(t *testing.T) {
		inner := SelectFrom("author").Project(&TupleColumn{Expr: C("id")})
		outer := SelectFrom("book").Filter(In(C("author_id"), inner))
		query, _ := Render(dialect.MySQL, outer)
		assert.Equal(t, "SELECT * FROM `book` WHERE `author_id` IN ((SELECT `id` FROM `author`))", query)
	})

	t.Run("join", func(t *testing.T) {
		q := SelectFrom("book").Join("JOIN", "author", "a", EQ(EC("a", "id"), EC("book", "author_id")))
		query, _ := Render(dialect.SQLite, q)
		assert.Equal(t, `SELECT * FROM "book" JOIN "author" AS "a" ON "a"."id" = "book"."author_id"`, query)
	})
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"list_eq", ListEQ([]Node{C("x"), C("y")}, []Node{C("a"), C("b")}), `("x", "y") = ("a", "b")`},
		{"or", Or(FieldEQ("a", 1), FieldEQ("b", 2)), `("a" = ? OR "b" = ?)`},
		{"not", Not(FieldEQ("a", 1)), `NOT "a" = ?`},
		{"is_null", IsNull(C("deleted_at")), `"deleted_at" IS NULL`},
		{"not_null", NotNull(C("deleted_at")), `"deleted_at" IS NOT NULL`},
		{"empty_in", In(C("id")), `FALSE`},
		{"func", F("LOWER", C("name")), `LOWER("name")`},
		{"single_and", And(FieldEQ("a", 1)), `"a" = ?`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _ := Render(dialect.SQLite, tt.node)
			assert.Equal(t, tt.want, query)
		})
	}
}

func TestColumnSubstitution(t *testing.T) {
	c := EC("user", "full_name")
	c.Substitute(F("CONCAT", C("first_name"), Raw("' '"), C("last_name")))
	query, _ := Render(dialect.MySQL, c)
	assert.Equal(t, "CONCAT(`first_name`, ' ', `last_name`)", query)
	assert.Nil(t, c.Clone().Substitution())
}

func TestTuple(t *testing.T) {
	tuple := Columns("id", "name")
	assert.False(t, tuple.IsDefault())
	assert.NotNil(t, tuple.Find("name"))
	assert.Nil(t, tuple.Find("email"))

	added := &TupleColumn{Expr: C("email")}
	assert.Same(t, added, tuple.AddIfNotExists(added))
	assert.Len(t, tuple.Columns, 3)

	conflict := &TupleColumn{Expr: C("other"), Alias: "name"}
	assert.Same(t, tuple.Find("name"), tuple.AddIfNotExists(conflict))
	assert.Len(t, tuple.Columns, 3)

	assert.True(t, DefaultTuple().IsDefault())
	assert.Equal(t, "", (&TupleColumn{Expr: F("COUNT", Raw("*"))}).AliasOrName())
}

func TestCloneNode(t *testing.T) {
	col := C("amount")
	expr := And(GT(F("SUM", col), V(10)), In(EC("t", "id"), V(1), V(2)))
	clone := CloneNode(expr)

	q1, args1 := Render(dialect.SQLite, expr)
	q2, args2 := Render(dialect.SQLite, clone)
	assert.Equal(t, q1, q2)
	assert.Equal(t, args1, args2)

	col.Substitute(Raw("0"))
	q3, _ := Render(dialect.SQLite, clone)
	assert.Equal(t, q2, q3, "clone does not share columns")

	sub := SelectFrom("Book").Project(&TupleColumn{Expr: C("id")}).Filter(FieldEQ("id", 1))
	cs := CloneNode(sub).(*Select)
	cs.Tuple.Columns[0].Alias = "bookId"
	q, _ := Render(dialect.SQLite, sub)
	assert.Equal(t, `SELECT "id" FROM "Book" WHERE "id" = ?`, q)
	assert.Nil(t, CloneNode(nil))
}
