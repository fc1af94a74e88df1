package property

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/relation"
)

func filterContext(entity string, column *sql.Column, value any) *exec.Context {
	ec := exec.NewContext(context.Background(), exec.Filter)
	ec.Entity = entity
	ec.Column = column
	ec.Constant = sql.V(value)
	return ec
}

func tupleContext(entity string, columns ...*sql.Column) *exec.Context {
	ec := exec.NewContext(context.Background(), exec.Tuple)
	ec.Entity = entity
	ec.Subject = entity
	tcs := make([]*sql.TupleColumn, len(columns))
	for i, c := range columns {
		tcs[i] = &sql.TupleColumn{Expr: c}
	}
	ec.Query = sql.SelectFrom(entity).Project(tcs...)
	ec.Column = columns[len(columns)-1]
	ec.Plan = exec.NewPlan()
	return ec
}

func TestHandleAble(t *testing.T) {
	p := String("title").Disable(exec.Filter)

	err := p.Handle(filterContext("Book", sql.C("title"), "x"))
	require.Error(t, err)
	assert.True(t, entmeta.IsPropertyWrongUse(err))
	var wrong *entmeta.PropertyWrongUseError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "Book", wrong.Entity)
	assert.Equal(t, "title", wrong.Property)
	assert.Equal(t, "filter", wrong.Context)

	require.NoError(t, p.Handle(tupleContext("Book", sql.C("title"))))

	for _, u := range exec.Usages() {
		assert.Equal(t, u != exec.Filter, p.Able(u), u.String())
	}
}

func TestHandleUnknownUsage(t *testing.T) {
	p := String("title")
	ec := exec.NewContext(context.Background(), exec.Usage(42))
	assert.Panics(t, func() { _ = p.Handle(ec) })
}

func TestHandleAfter(t *testing.T) {
	var calls []exec.Usage
	p := Int("id").SetHandlerAfter(func(ec *exec.Context, _ *Property) error {
		calls = append(calls, ec.Usage)
		return nil
	})
	require.NoError(t, p.Handle(tupleContext("Book", sql.C("id"))))
	require.NoError(t, p.Handle(filterContext("Book", sql.C("id"), 1)))
	assert.Equal(t, []exec.Usage{exec.Tuple, exec.Filter}, calls)

	p.AsReadOnly()
	ec := exec.NewContext(context.Background(), exec.Assign)
	require.Error(t, p.Handle(ec))
	assert.Len(t, calls, 2, "after-handler must not run on wrong use")
}

func TestHandleFieldName(t *testing.T) {
	p := String("title").SetFieldName("book_title")
	col := sql.C("title")
	ec := tupleContext("Book", sql.C("id"), col)

	require.NoError(t, p.Handle(ec))

	query, _ := sql.Render(dialect.SQLite, ec.Query)
	assert.Equal(t, `SELECT "id", "book_title" AS "title" FROM "Book"`, query)
	assert.Equal(t, "title", ec.ResultName())

	filter := sql.C("title")
	require.NoError(t, p.Handle(filterContext("Book", filter, "x")))
	query, _ = sql.Render(dialect.SQLite, sql.EQ(filter, sql.V("x")))
	assert.Equal(t, `"book_title" = ?`, query)
}

func TestHandleSerializable(t *testing.T) {
	p := JSON("tags")

	t.Run("tuple", func(t *testing.T) {
		ec := tupleContext("Book", sql.C("tags"))
		require.NoError(t, p.Handle(ec))
		rows, err := ec.Plan.Process(context.Background(), []exec.Row{{"tags": `{"a":1}`}, {"tags": nil}})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, rows[0]["tags"])
		assert.Nil(t, rows[1]["tags"])
	})

	t.Run("filter", func(t *testing.T) {
		ec := filterContext("Book", sql.C("tags"), []string{"go", "sql"})
		require.NoError(t, p.Handle(ec))
		_, args := sql.Render(dialect.SQLite, ec.Constant)
		assert.Equal(t, []any{`["go","sql"]`}, args)
	})

	t.Run("wrong_shape", func(t *testing.T) {
		err := p.Handle(filterContext("Book", sql.C("tags"), 12))
		require.Error(t, err)
		assert.True(t, entmeta.IsSerializationError(err))
		assert.ErrorIs(t, err, entmeta.ErrSerialization)
	})
}

func TestTimestampConstant(t *testing.T) {
	p := Timestamp("createdAt")

	ec := filterContext("Book", sql.C("createdAt"), 1700000000)
	require.NoError(t, p.Handle(ec))
	query, args := sql.Render(dialect.MySQL, ec.Constant)
	assert.Equal(t, "FROM_UNIXTIME(?)", query)
	assert.Equal(t, []any{1700000000}, args)

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	ec = filterContext("Book", sql.C("createdAt"), at)
	require.NoError(t, p.Handle(ec))
	_, args = sql.Render(dialect.MySQL, ec.Constant)
	assert.Equal(t, []any{"2024-03-01 12:30:00"}, args)

	ec = filterContext("Book", sql.C("createdAt"), "2024-03-01")
	require.NoError(t, p.Handle(ec))
	assert.Nil(t, ec.Constant.Substitution())
}

func TestWithDefault(t *testing.T) {
	tests := []struct {
		property *Property
		want     any
	}{
		{String("s"), ""},
		{Text("t"), ""},
		{Int("i"), 0},
		{BigInt("b"), int64(0)},
		{Float("f"), 0.0},
		{Boolean("ok"), false},
		{Date("d"), "0000-00-00"},
		{DateTime("dt"), "0000-00-00 00:00:00"},
		{Year("y"), "0000"},
		{Enum("status", "draft", "published"), "draft"},
		{IPAddress("ip"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.property.Name(), func(t *testing.T) {
			_, ok := tt.property.Default()
			assert.False(t, ok)
			v, ok := tt.property.WithDefault().Default()
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	_, ok := Enum("empty").WithDefault().Default()
	assert.False(t, ok, "enum without variants has no zero value")
	_, ok = UUID("id").WithDefault().Default()
	assert.False(t, ok)
}

func TestTypedConstructors(t *testing.T) {
	ip := IPAddress("ip")
	n, ok := ip.MaxLength()
	require.True(t, ok)
	assert.Equal(t, 32, n)
	assert.Equal(t, TString, ip.Type())

	assert.Equal(t, SlugPattern, Slug("code").Pattern())

	ref := ReferenceUUID("authorId", "Author", "")
	assert.Equal(t, "Author", ref.ReferenceTo())
	assert.Equal(t, relation.Reference, ref.RelationType())
	assert.True(t, ref.IsSerializable())
	assert.Equal(t, relation.BelongsTo, ReferenceUUID("ownerId", "User", relation.BelongsTo).RelationType())

	lo, ok := Int("n").AsUnsigned().Minimum()
	require.True(t, ok)
	assert.Zero(t, lo)
	_, ok = Int("n").Minimum()
	assert.False(t, ok)
}

func TestFreeze(t *testing.T) {
	p := String("title")
	p.Freeze()
	assert.True(t, p.IsFrozen())
	assert.Panics(t, func() { p.AsNullable() })
	assert.Panics(t, func() { p.SetTypicalName("title") })

	c := p.Clone()
	assert.False(t, c.IsFrozen())
	assert.NotPanics(t, func() { c.AsNullable() })
	assert.False(t, p.IsNullable())
}

func TestClone(t *testing.T) {
	p := String("title").
		SetAccessGroups("editor").
		SetMaxLength(64).
		SetHandlerAfter(func(*exec.Context, *Property) error { return nil }).
		SetDefinitionHandler(func(Owner, *Property) error { return nil })

	c := p.Clone()
	assert.Nil(t, c.HandlerAfter())
	assert.Nil(t, c.DefinitionHandler())
	assert.Equal(t, []string{"editor"}, c.AccessGroups())

	c.SetMaxLength(10).SetAccessGroups("admin")
	n, _ := p.MaxLength()
	assert.Equal(t, 64, n)
	assert.Equal(t, []string{"editor"}, p.AccessGroups())
}

func TestInheritFrom(t *testing.T) {
	p := String("title").SetMaxLength(64)

	c := p.InheritFrom("Document", false)
	assert.Equal(t, "Document", c.InheritedFrom())
	assert.Equal(t, p.Type(), c.Type())
	n, _ := c.MaxLength()
	assert.Equal(t, 64, n)
	assert.True(t, c.Able(exec.Assign))

	ro := c.InheritFrom("Article", true)
	assert.Equal(t, "Document", ro.InheritedFrom(), "first ancestor is kept")
	assert.False(t, ro.Able(exec.Assign))
	assert.True(t, ro.Able(exec.Tuple))
	assert.Empty(t, p.InheritedFrom())

	guarded := Int("salary").SetHandlerAfter(func(*exec.Context, *Property) error { return errors.New("hidden") })
	assert.NotNil(t, guarded.InheritFrom("Person", false).HandlerAfter(), "inherited copies keep the after-handler")
	assert.Nil(t, guarded.CloneAsReference("Person", relation.Reference).HandlerAfter())
}

func TestCloneAsReference(t *testing.T) {
	pk := Int("id").AsPrimaryKey().AsAutoIncrement().SetFieldName("author_id").SetTypicalName("id")
	pk.SetOnCreate(sql.Raw("DEFAULT"))

	ref := pk.CloneAsReference("Author", relation.Reference)
	assert.False(t, ref.IsPrimaryKey())
	assert.False(t, ref.IsAutoIncrement())
	assert.Nil(t, ref.OnCreate())
	assert.Empty(t, ref.TypicalName())
	assert.False(t, ref.HasFieldName())
	assert.True(t, ref.IsReference())
	assert.Equal(t, "Author", ref.ReferenceTo())
	assert.Equal(t, TInt, ref.Type())
	assert.True(t, pk.IsPrimaryKey())
}

type owner struct {
	name       string
	properties []*Property
	relations  []relation.Relation
}

func (o *owner) Name() string { return o.name }

func (o *owner) DescribeProperty(p *Property) error {
	o.properties = append(o.properties, p)
	return nil
}

func (o *owner) DescribeRelation(r relation.Relation) error {
	o.relations = append(o.relations, r)
	return nil
}

func TestHandleEntityDefinition(t *testing.T) {
	o := &owner{name: "Book"}
	require.NoError(t, String("title").HandleEntityDefinition(o))

	p := String("title").SetDefinitionHandler(func(o Owner, p *Property) error {
		return o.DescribeProperty(Int(p.Name() + "Length").AsVirtual())
	})
	require.NoError(t, p.HandleEntityDefinition(o))
	require.Len(t, o.properties, 1)
	assert.Equal(t, "titleLength", o.properties[0].Name())
}

func TestGroups(t *testing.T) {
	p := String("secret").AsInternal()
	assert.True(t, p.InGroup(GroupInternal))
	assert.Equal(t, []string{AccessInternal}, p.AccessGroups())

	p.AddAspectGroups("audit", "audit", "search")
	assert.Equal(t, []string{"audit", "search"}, p.AspectGroups())
	assert.Equal(t, []string{AccessPublic}, String("name").AsPublic().AccessGroups())
}

func TestTypeAndKind(t *testing.T) {
	for _, typ := range Types {
		assert.True(t, typ.Valid(), typ.String())
	}
	assert.Len(t, Types, 18)
	assert.False(t, Type("money").Valid())
	assert.True(t, TBigInt.Numeric())
	assert.False(t, TString.Numeric())
	assert.Equal(t, "cross-reference", KindCrossReference.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
