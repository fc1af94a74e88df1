package derived

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/relation"
)

func TestSchema(t *testing.T) {
	reg := library(t)
	q := sql.SelectFrom("Book").Project(column("headline", sql.C("title"))).As("recent")
	d, err := New(q, reg)
	require.NoError(t, err)
	s := NewSchema(reg, d)

	r, err := s.Relation("recent", "Publisher")
	require.NoError(t, err)
	assert.Equal(t, "Recent", r.Left())

	back, err := s.Relation("Publisher", "recent")
	require.NoError(t, err)
	assert.Equal(t, "Publisher", back.Left())
	assert.Equal(t, "Recent", back.Right())
	assert.Equal(t, relation.Collection, back.Type())

	base, err := s.Relation("Book", "Publisher")
	require.NoError(t, err)
	assert.Equal(t, "Book", base.Left())

	col, err := s.Column("recent", "headline")
	require.NoError(t, err)
	assert.Equal(t, "headline", col)
	_, err = s.Column("recent", "isbn")
	assert.True(t, entmeta.IsNotFound(err))
	col, err = s.Column("Book", "title")
	require.NoError(t, err)
	assert.Equal(t, "title", col)

	table, err := s.Table("Recent")
	require.NoError(t, err)
	assert.Equal(t, "recent", table)
	table, err = s.Table("Book")
	require.NoError(t, err)
	assert.Equal(t, "Book", table)

	pk, err := s.PrimaryKey("recent")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pk.Columns())
	pk, err = s.PrimaryKey("Author")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, pk.Columns())

	ghost, err := New(sql.SelectFrom("Ghost").As("g"), reg)
	require.NoError(t, err)
	s.Add(ghost)
	_, err = s.PrimaryKey("g")
	assert.True(t, entmeta.IsDescriptorError(err))
}
