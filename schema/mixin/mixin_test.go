package mixin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/privacy"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/schema/mixin"
)

func names(ps []*property.Property) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func build(t *testing.T, decls ...*entity.Declaration) *entity.Registry {
	t.Helper()
	reg, err := entity.NewRegistry(entity.WithAspectFactory(mixin.Factory()))
	require.NoError(t, err)
	for _, d := range decls {
		require.NoError(t, reg.Register(d))
	}
	return reg
}

func id() *property.Property { return property.Int("id").AsPrimaryKey().AsAutoIncrement() }

func TestTime(t *testing.T) {
	ctx := context.Background()
	reg := build(t,
		entity.Declare("Post").AddAspects(mixin.Time{}).AddProperties(id()),
		entity.Declare("Comment").AddAspects(mixin.CreateTime{}).AddProperties(id()),
		entity.Declare("Tag").AddAspects(mixin.UpdateTime{}).AddProperties(id()),
	)

	post, err := reg.Get(ctx, "Post")
	require.NoError(t, err)
	assert.Equal(t, []string{mixin.CreatedAt, mixin.UpdatedAt, "id"}, names(post.Properties()))

	created := post.FindProperty(mixin.CreatedAt)
	assert.Equal(t, property.TTimestamp, created.Type())
	assert.False(t, created.Able(exec.Assign))
	assert.Equal(t, []string{"time"}, created.AspectGroups())
	assert.NotNil(t, created.OnCreate())
	assert.Nil(t, created.OnUpdate())

	updated := post.FindProperty(mixin.UpdatedAt)
	assert.True(t, updated.Able(exec.Assign))
	text, _ := sql.Render(dialect.SQLite, updated.OnUpdate())
	assert.Equal(t, "CURRENT_TIMESTAMP", text)

	comment, err := reg.Get(ctx, "Comment")
	require.NoError(t, err)
	assert.Equal(t, []string{mixin.CreatedAt, "id"}, names(comment.Properties()))
	assert.Equal(t, []string{"createTime"}, comment.FindProperty(mixin.CreatedAt).AspectGroups())

	tag, err := reg.Get(ctx, "Tag")
	require.NoError(t, err)
	assert.Equal(t, []string{mixin.UpdatedAt, "id"}, names(tag.Properties()))
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	reg := build(t,
		entity.Declare("Post").AddAspects(mixin.TimeSoftDelete{}).AddProperties(id()),
		entity.Declare("Draft").AddAspects(mixin.SoftDelete{}).AddProperties(id()),
	)

	post, err := reg.Get(ctx, "Post")
	require.NoError(t, err)
	assert.Equal(t, []string{mixin.CreatedAt, mixin.UpdatedAt, mixin.DeletedAt, "id"}, names(post.Properties()))
	assert.True(t, post.FindProperty(mixin.DeletedAt).IsNullable())

	draft, err := reg.Get(ctx, "Draft")
	require.NoError(t, err)
	m := draft.Modifier(mixin.WithoutDeleted)
	require.NotNil(t, m)

	q := sql.SelectFrom("Draft").As("d")
	require.NoError(t, m.HandleQuery(q, exec.NewContext(ctx, exec.Filter)))
	text, _ := sql.Render(dialect.SQLite, q.Where)
	assert.Equal(t, `"d"."deletedAt" IS NULL`, text)
}

func TestTenantID(t *testing.T) {
	ctx := context.Background()
	reg := build(t, entity.Declare("Invoice").AddAspects(mixin.TenantID{}).AddProperties(id()))
	inv, err := reg.Get(ctx, "Invoice")
	require.NoError(t, err)
	assert.False(t, inv.FindProperty(mixin.TenantKey).Able(exec.Assign))

	m := inv.Modifier(mixin.TenantFilter)
	require.NotNil(t, m)

	t.Run("no viewer", func(t *testing.T) {
		ec := exec.NewContext(ctx, exec.Filter)
		ec.Entity = "Invoice"
		err := m.HandleQuery(sql.SelectFrom("Invoice"), ec)
		assert.ErrorIs(t, err, privacy.Deny)
	})

	t.Run("viewer", func(t *testing.T) {
		vctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "1", TenantID: "acme"})
		ec := exec.NewContext(vctx, exec.Filter)
		ec.Subject = "i"
		q := sql.SelectFrom("Invoice").As("i")
		require.NoError(t, m.HandleQuery(q, ec))
		text, args := sql.Render(dialect.Postgres, q.Where)
		assert.Equal(t, `"i"."tenantId" = $1`, text)
		assert.Equal(t, []any{"acme"}, args)
	})
}

func TestFactory(t *testing.T) {
	ctx := context.Background()
	f := mixin.Factory()
	assert.Equal(t, []string{"createTime", "id", "softDelete", "tenantId", "time", "timeSoftDelete", "updateTime"}, f.Names())

	reg := build(t,
		entity.Declare("Account").AddAspects(entity.NamedAspect("id"), entity.NamedAspect("time")),
	)
	acc, err := reg.Get(ctx, "Account")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", mixin.CreatedAt, mixin.UpdatedAt}, names(acc.Properties()))
	assert.Equal(t, []string{"id"}, acc.PrimaryKey().Columns())
	assert.Equal(t, property.TUUID, acc.FindProperty("id").Type())

	fn, ok := f.Lookup("time")
	require.True(t, ok)
	assert.ErrorContains(t, fn(nil, entity.NamedAspect("softDelete")), `aspect "softDelete" built as "time"`)
}

func TestClash(t *testing.T) {
	reg := build(t,
		entity.Declare("Log").AddAspects(mixin.Time{}).AddProperties(id(), property.DateTime(mixin.CreatedAt)),
	)
	_, err := reg.Get(context.Background(), "Log")
	assert.ErrorContains(t, err, `property "createdAt" is already defined`)
}
