package exec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/syssam/entmeta/dialect/sql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	assert.Len(t, Usages(), NumUsages)
	assert.Equal(t, "tuple", Tuple.String())
	assert.Equal(t, "joinCondition", JoinCondition.String())
	assert.Equal(t, "Usage(42)", Usage(42).String())
	assert.False(t, Usage(-1).Valid())
	assert.True(t, OrderBy.Valid())
}

func TestContextResultName(t *testing.T) {
	col := sql.C("title")
	q := sql.SelectFrom("book").Project(&sql.TupleColumn{Expr: col, Alias: "name"})
	ec := NewContext(context.Background(), Tuple)
	ec.Query, ec.Column = q, col
	assert.Equal(t, "name", ec.ResultName())
	assert.NotNil(t, ec.Context())

	ec.Column = sql.C("id")
	assert.Equal(t, "id", ec.ResultName())

	type key struct{}
	ec2 := ec.WithContext(context.WithValue(context.Background(), key{}, 1))
	assert.Equal(t, 1, ec2.Context().Value(key{}))
	assert.Nil(t, ec.Context().Value(key{}))
}

func TestPlanProcess(t *testing.T) {
	p := NewPlan()
	p.AddDeserializer("title", func(v any) (any, error) {
		return strings.ToUpper(v.(string)), nil
	})
	p.AddPostProcessor(func(_ context.Context, rows []Row) ([]Row, error) {
		for _, r := range rows {
			r["seen"] = true
		}
		return rows, nil
	})
	assert.Equal(t, []string{"title"}, p.Columns())
	assert.Equal(t, 1, p.Len())

	rows, err := p.Process(context.Background(), []Row{{"title": "dune"}, {"title": nil}, {}})
	require.NoError(t, err)
	assert.Equal(t, "DUNE", rows[0]["title"])
	assert.Nil(t, rows[1]["title"])
	assert.Equal(t, true, rows[2]["seen"])

	p.AddDeserializer("title", func(any) (any, error) { return nil, errors.New("bad") })
	_, err = p.Process(context.Background(), []Row{{"title": "x"}})
	require.ErrorContains(t, err, `column "title" of row 0: bad`)
	assert.Equal(t, []string{"title"}, p.Columns())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := NewPlan()
	q.AddPostProcessor(func(_ context.Context, rows []Row) ([]Row, error) { return rows[:0], nil })
	_, err = q.Process(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)

	rows, err = q.Process(context.Background(), []Row{{"id": 1}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestContextHiddenColumn(t *testing.T) {
	q := sql.SelectFrom("book").Project(&sql.TupleColumn{Expr: sql.C("title")})
	ec := NewContext(context.Background(), Tuple)
	ec.Query, ec.Plan, ec.Subject = q, NewPlan(), "book"

	assert.Equal(t, "id", ec.HiddenColumn("id"))
	assert.Equal(t, "title", ec.HiddenColumn("title"))
	assert.Len(t, q.Tuple.Columns, 2)
	assert.Equal(t, []string{"id"}, ec.Plan.Hidden())

	rows, err := ec.Plan.Process(context.Background(), []Row{{"id": 1, "title": "Dune"}})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"title": "Dune"}}, rows)

	ec.Query = sql.SelectFrom("book")
	assert.Equal(t, "id", ec.HiddenColumn("id"))
	assert.True(t, ec.Query.Tuple.IsDefault())
}
