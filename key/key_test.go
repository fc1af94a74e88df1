package key_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/entmeta/key"
)

func TestKey(t *testing.T) {
	k := key.New("author_id", "book_id")
	assert.Equal(t, "author_id_book_id", k.Name())
	assert.Equal(t, []string{"author_id", "book_id"}, k.Columns())
	assert.False(t, k.IsSimple())
	assert.False(t, k.IsPrimary())
	assert.False(t, k.IsUnique())

	pk := key.Primary("id")
	assert.True(t, pk.IsSimple())
	assert.True(t, pk.IsPrimary())
	assert.True(t, pk.IsUnique())
	assert.Equal(t, "id", pk.String())

	ft := key.New("title").AsFulltext().Named("ft_title")
	assert.True(t, ft.IsFulltext())
	assert.Equal(t, "ft_title", ft.Name())
}

func TestKeyColumnsCopy(t *testing.T) {
	k := key.New("a", "b")
	cols := k.Columns()
	cols[0] = "z"
	assert.Equal(t, []string{"a", "b"}, k.Columns())
}

func TestKeyEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *key.Key
		want bool
	}{
		{"same", key.New("id"), key.New("id"), true},
		{"order independent", key.New("a", "b"), key.New("b", "a"), true},
		{"different column", key.New("a"), key.New("b"), false},
		{"subset", key.New("a"), key.New("a", "b"), false},
		{"superset", key.New("a", "b"), key.New("a"), false},
		{"both nil", nil, nil, true},
		{"one nil", key.New("a"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestKeyClone(t *testing.T) {
	k := key.Primary("id")
	c := k.Clone()
	require.NotSame(t, k, c)
	assert.True(t, c.IsPrimary())
	assert.True(t, k.Equal(c))
}
