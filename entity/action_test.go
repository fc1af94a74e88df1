package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/property"
)

type fetchFunc func(ctx context.Context, q *sql.Select) ([]map[string]any, error)

func (f fetchFunc) Fetch(ctx context.Context, q *sql.Select) ([]map[string]any, error) {
	return f(ctx, q)
}

func TestActionsSeeded(t *testing.T) {
	ctx := context.Background()
	var ran []Action
	count := ExecutorFunc(func(context.Context, sql.Node) ([]exec.Row, error) {
		return []exec.Row{{"count": 3}}, nil
	})
	reg := newRegistry(t)
	require.NoError(t, reg.Register(
		Declare("Note").
			AddProperties(id()).
			SetAction(ActionCount, count).
			AddPostActions(&PostAction{
				Actions: []Action{ActionInsert, ActionUpdate},
				Handler: func(_ context.Context, a Action, _ []exec.Row) error {
					ran = append(ran, a)
					return nil
				},
			}),
	))
	note, err := reg.Get(ctx, "Note")
	require.NoError(t, err)
	assert.Len(t, note.Actions(), len(Actions))
	for _, a := range Actions {
		ex, ok := note.Action(a)
		assert.True(t, ok, a)
		assert.Equal(t, a == ActionCount, ex != nil, a)
	}
	_, ok := note.Action("merge")
	assert.False(t, ok)

	ex, _ := note.Action(ActionCount)
	rows, err := ex.Execute(ctx, sql.SelectFrom("Note"))
	require.NoError(t, err)
	assert.Equal(t, 3, rows[0]["count"])

	pa := note.PostActions()
	require.Len(t, pa, 1)
	assert.True(t, pa[0].Handles(ActionUpdate))
	assert.False(t, pa[0].Handles(ActionDelete))
	assert.True(t, (&PostAction{}).Handles(ActionDelete))
	require.NoError(t, pa[0].Handler(ctx, ActionInsert, nil))
	assert.Equal(t, []Action{ActionInsert}, ran)
}

func TestFetchExecutor(t *testing.T) {
	ex := FetchExecutor{Fetcher: fetchFunc(func(_ context.Context, q *sql.Select) ([]map[string]any, error) {
		query, _ := sql.Render(dialect.SQLite, q)
		assert.Equal(t, `SELECT * FROM "Note"`, query)
		return []map[string]any{{"id": 1}}, nil
	})}
	rows, err := ex.Execute(context.Background(), sql.SelectFrom("Note"))
	require.NoError(t, err)
	assert.Equal(t, []exec.Row{{"id": 1}}, rows)

	_, err = ex.Execute(context.Background(), sql.Raw("DELETE FROM note"))
	assert.ErrorContains(t, err, "fetch executor cannot run")
}

func TestModifier(t *testing.T) {
	ctx := context.Background()
	visible := func(_ context.Context, rows []exec.Row) ([]exec.Row, error) {
		var out []exec.Row
		for _, r := range rows {
			if r["hidden"] != true {
				out = append(out, r)
			}
		}
		return out, nil
	}

	t.Run("result", func(t *testing.T) {
		m := NewModifier("visible", visible, nil)
		ec := exec.NewContext(ctx, exec.Tuple)
		ec.Plan = exec.NewPlan()
		require.NoError(t, m.HandleQuery(sql.SelectFrom("Note"), ec))
		assert.Equal(t, 1, ec.Plan.Len())

		rows, err := ec.Plan.Process(ctx, []exec.Row{{"id": 1}, {"id": 2, "hidden": true}})
		require.NoError(t, err)
		assert.Equal(t, []exec.Row{{"id": 1}}, rows)

		rows, err = m.ModifyRows(ctx, []exec.Row{{"hidden": true}})
		require.NoError(t, err)
		assert.Empty(t, rows)

		assert.ErrorContains(t, m.HandleQuery(sql.SelectFrom("Note"), exec.NewContext(ctx, exec.Tuple)), "needs a result plan")
	})

	t.Run("query", func(t *testing.T) {
		m := NewModifier("recent", nil, func(q *sql.Select, _ *exec.Context) error {
			q.Filter(sql.GT(sql.C("createdAt"), sql.V("2026-01-01")))
			return nil
		})
		q := sql.SelectFrom("Note")
		require.NoError(t, m.HandleQuery(q, exec.NewContext(ctx, exec.Filter)))
		query, args := sql.Render(dialect.SQLite, q)
		assert.Equal(t, `SELECT * FROM "Note" WHERE "createdAt" > ?`, query)
		assert.Equal(t, []any{"2026-01-01"}, args)

		_, err := m.ModifyRows(ctx, nil)
		assert.ErrorContains(t, err, `modifier "recent" has no result handler`)
	})

	t.Run("empty", func(t *testing.T) {
		m := NewModifier("noop", nil, nil)
		assert.ErrorContains(t, m.HandleQuery(sql.SelectFrom("Note"), exec.NewContext(ctx, exec.Tuple)), "has no query handler")
	})
}

func TestFunctions(t *testing.T) {
	match := NewFunction("match", func(ec *exec.Context, call *sql.Func) error {
		ec.Column.Substitute(sql.Raw("MATCH(title) AGAINST(?)"))
		return nil
	}).AsPublic().SetAccessGroups("search")
	assert.True(t, match.IsPublic())
	assert.Equal(t, []string{"search"}, match.AccessGroups())
	assert.True(t, match.IsCompatibleWith(&sql.Func{Name: "MATCH"}))
	assert.False(t, match.IsCompatibleWith(&sql.Func{Name: "matches"}))
	assert.False(t, match.IsCompatibleWith(nil))

	s := NewFunctionStorage("Note")
	require.NoError(t, s.Add(match, false))
	err := s.Add(NewFunction("match", nil), false)
	assert.True(t, entmeta.IsDescriptorError(err))
	require.NoError(t, s.Add(NewFunction("rank", nil), false))
	assert.Equal(t, []string{"match", "rank"}, names(s.List()))

	assert.Same(t, match, s.Match(&sql.Func{Name: "Match"}))
	assert.Nil(t, s.Match(&sql.Func{Name: "score"}))
	assert.True(t, s.Has("rank"))
	assert.Nil(t, s.Find("score"))
	_, err = s.Get("score")
	assert.True(t, entmeta.IsNotFound(err))
	assert.ErrorIs(t, err, entmeta.ErrFunctionNotFound)

	ec := exec.NewContext(context.Background(), exec.Filter)
	ec.Column = sql.C("match")
	require.NoError(t, match.Handle(ec, &sql.Func{Name: "match"}))
	assert.NotNil(t, ec.Column.Substitution())
	require.NoError(t, NewFunction("rank", nil).Handle(ec, nil))

	fail := NewFunction("fail", func(*exec.Context, *sql.Func) error { return errors.New("unsupported") })
	assert.ErrorContains(t, fail.Handle(ec, nil), "unsupported")
}

func TestEntityFunctions(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	require.NoError(t, reg.Register(
		Declare("Note").
			AddProperties(id(), property.Text("body")).
			AddFunctions(NewFunction("match", nil), NewFunction("match", nil)),
		Declare("Page").
			AddProperties(id()).
			AddFunctions(NewFunction("rank", nil)),
	))
	_, err := reg.Get(ctx, "Note")
	assert.ErrorContains(t, err, `function "match" is already defined`)

	page, err := reg.Get(ctx, "Page")
	require.NoError(t, err)
	assert.NotNil(t, page.FindFunction("rank"))
	_, err = page.Function("score")
	assert.True(t, entmeta.IsNotFound(err))
	assert.Len(t, page.Functions(), 1)
}
