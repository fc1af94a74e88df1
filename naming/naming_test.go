package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Username", "username"},
		{"FullName", "full_name"},
		{"HTTPCode", "http_code"},
		{"UserID", "user_id"},
		{"getHTTPResponse", "get_http_response"},
		{"already_snake", "already_snake"},
		{"A", "a"},
		{"", ""},
		{"AuthorToBook", "author_to_book"},
		{"UserIDs", "user_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Snake(tt.input))
		})
	}
}

func TestPascalCamel(t *testing.T) {
	tests := []struct {
		input  string
		pascal string
		camel  string
	}{
		{"user_info", "UserInfo", "userInfo"},
		{"user_id", "UserID", "userID"},
		{"http_code", "HTTPCode", "httpCode"},
		{"full-admin", "FullAdmin", "fullAdmin"},
		{"a", "A", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.pascal, Pascal(tt.input))
			assert.Equal(t, tt.camel, Camel(tt.input))
		})
	}
	assert.Equal(t, "", Camel(""))
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name       string
		strategy   Strategy
		table      string
		column     string
		property   string
		crossRef   string
		constraint string
		entity     string
	}{
		{
			name:       "camel",
			strategy:   CamelCase{},
			table:      "BookAuthor",
			column:     "authorId",
			property:   "authorId",
			crossRef:   "AuthorToBook",
			constraint: "AuthorFkBookId",
			entity:     "BookAuthor",
		},
		{
			name:       "snake",
			strategy:   SnakeCase{},
			table:      "book_author",
			column:     "author_id",
			property:   "author_id",
			crossRef:   "author_to_book",
			constraint: "author_fk_book_id",
			entity:     "book_author",
		},
		{
			name:       "snake_table_camel_field",
			strategy:   SnakeTableCamel{},
			table:      "book_author",
			column:     "authorId",
			property:   "authorId",
			crossRef:   "AuthorToBook",
			constraint: "author_fk_book_id",
			entity:     "BookAuthor",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.strategy
			assert.Equal(t, tt.table, s.TableName("BookAuthor"))
			assert.Equal(t, tt.column, s.ColumnName("authorId"))
			assert.Equal(t, tt.property, s.PropertyName("author", "id"))
			assert.Equal(t, tt.crossRef, s.CrossReferenceEntityName("Author", "Book"))
			assert.Equal(t, tt.constraint, s.ConstraintName("Author", "Book", "id"))
			assert.Equal(t, tt.entity, s.EntityName("book_author"))
		})
	}
	assert.Equal(t, "bookList", CamelCase{}.PropertyName("Book", "list"))
	assert.Equal(t, "book_list", SnakeCase{}.PropertyName("Book", "list"))
	assert.Equal(t, "authorIdBookId", CamelCase{}.KeyName("authorId", "bookId"))
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", CamelName, SnakeName, SnakeTableCamelFieldName, "SNAKE"} {
		s, ok := ByName(name)
		require.True(t, ok, name)
		assert.NotNil(t, s)
	}
	_, ok := ByName("kebab")
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Author", Normalize("author"))
	assert.Equal(t, "AuthorToBook", Normalize("authorToBook"))
	assert.Equal(t, "Évènement", Normalize("évènement"))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, Fold("Title"), Fold("TITLE"))
	assert.Equal(t, "Categories", Plural("Category"))
	assert.Equal(t, "book", Singular("books"))
	assert.Equal(t, "aBC", LowerFirst("ABC"))
}
