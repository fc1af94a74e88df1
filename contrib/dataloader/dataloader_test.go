package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row = map[string]any

func idKey(r row) Key { return RowKey(r, "id") }

// =============================================================================
// Key Tests
// =============================================================================

func TestTupleKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TupleKey(1, "a"), TupleKey(1, "a"))
	assert.Equal(t, TupleKey("abc"), TupleKey([]byte("abc")))
	assert.Equal(t, TupleKey(int64(7)), TupleKey(7))
	assert.NotEqual(t, TupleKey("ab", "c"), TupleKey("a", "bc"))
	assert.NotEqual(t, TupleKey(nil), TupleKey(""))
}

func TestRowKey(t *testing.T) {
	t.Parallel()

	r := row{"author": 1, "book": []byte("b-1"), "note": nil}
	assert.Equal(t, TupleKey(1, "b-1"), RowKey(r, "author", "book"))
	assert.False(t, HasNull(r, "author", "book"))
	assert.True(t, HasNull(r, "author", "note"))
	assert.True(t, HasNull(r, "missing"))
}

// =============================================================================
// OrderByKeys Tests
// =============================================================================

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	t.Run("all keys found", func(t *testing.T) {
		t.Parallel()
		keys := []Key{TupleKey(1), TupleKey(2), TupleKey(3)}
		values := []row{
			{"id": 3, "name": "third"},
			{"id": 1, "name": "first"},
			{"id": 2, "name": "second"},
		}

		result, errs := OrderByKeys(keys, values, idKey)

		require.Len(t, result, 3)
		require.Len(t, errs, 3)
		assert.Equal(t, "first", result[0]["name"])
		assert.Equal(t, "second", result[1]["name"])
		assert.Equal(t, "third", result[2]["name"])
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("some keys missing", func(t *testing.T) {
		t.Parallel()
		keys := []Key{TupleKey(1), TupleKey(2), TupleKey(3), TupleKey(4)}
		values := []row{
			{"id": 1, "name": "first"},
			{"id": 3, "name": "third"},
		}

		result, errs := OrderByKeys(keys, values, idKey)

		require.Len(t, result, 4)
		require.Len(t, errs, 4)
		assert.Equal(t, "first", result[0]["name"])
		assert.Nil(t, result[1])
		assert.Equal(t, "third", result[2]["name"])
		assert.Nil(t, result[3])
		assert.NoError(t, errs[0])
		assert.ErrorIs(t, errs[1], ErrNotFound)
		assert.NoError(t, errs[2])
		assert.ErrorIs(t, errs[3], ErrNotFound)
	})

	t.Run("empty keys", func(t *testing.T) {
		t.Parallel()
		result, errs := OrderByKeys([]Key{}, []row{}, idKey)

		assert.Empty(t, result)
		assert.Empty(t, errs)
	})

	t.Run("first value wins", func(t *testing.T) {
		t.Parallel()
		keys := []Key{TupleKey(1), TupleKey(1)}
		values := []row{
			{"id": 1, "name": "first"},
			{"id": 1, "name": "shadowed"},
		}

		result, errs := OrderByKeys(keys, values, idKey)

		require.Len(t, result, 2)
		assert.Equal(t, "first", result[0]["name"])
		assert.Equal(t, "first", result[1]["name"])
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})
}

func TestOrderByKeysNoError(t *testing.T) {
	t.Parallel()

	keys := []Key{TupleKey(1), TupleKey(2)}
	values := []row{{"id": 2, "name": "second"}}

	result := OrderByKeysNoError(keys, values, idKey)

	require.Len(t, result, 2)
	assert.Nil(t, result[0])
	assert.Equal(t, "second", result[1]["name"])
}

// =============================================================================
// GroupByKey Tests
// =============================================================================

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	refKey := func(r row) Key { return RowKey(r, "author", "lang") }

	t.Run("groups by composite key", func(t *testing.T) {
		t.Parallel()
		books := []row{
			{"title": "Book 1", "author": 10, "lang": "en"},
			{"title": "Book 2", "author": 10, "lang": "en"},
			{"title": "Book 3", "author": 10, "lang": "fr"},
			{"title": "Book 4", "author": 20, "lang": "en"},
		}

		grouped := GroupByKey(books, refKey)

		require.Len(t, grouped, 3)
		require.Len(t, grouped[TupleKey(10, "en")], 2)
		assert.Equal(t, "Book 1", grouped[TupleKey(10, "en")][0]["title"])
		assert.Equal(t, "Book 2", grouped[TupleKey(10, "en")][1]["title"])
		assert.Equal(t, "Book 3", grouped[TupleKey(10, "fr")][0]["title"])
		assert.Equal(t, "Book 4", grouped[TupleKey(20, "en")][0]["title"])
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, GroupByKey([]row{}, refKey))
	})
}

func TestOrderGroupsByKeys(t *testing.T) {
	t.Parallel()

	keys := []Key{TupleKey(10), TupleKey(20), TupleKey(30)}
	groups := map[Key][]string{
		TupleKey(10): {"a", "b"},
		TupleKey(20): {"c"},
	}

	result := OrderGroupsByKeys(keys, groups)

	require.Len(t, result, 3)
	assert.Equal(t, []string{"a", "b"}, result[0])
	assert.Equal(t, []string{"c"}, result[1])
	assert.Nil(t, result[2])
}

func TestUnique(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Key{"b", "a"}, Unique([]Key{"b", "a", "b", "a"}))
	assert.Empty(t, Unique([]Key{}))
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkGroupByKey(b *testing.B) {
	rows := make([]row, 100)
	for i := range rows {
		rows[i] = row{"id": i, "author": i % 10}
	}
	keyFn := func(r row) Key { return RowKey(r, "author") }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GroupByKey(rows, keyFn)
	}
}
