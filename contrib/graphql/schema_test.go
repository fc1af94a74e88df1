package graphql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

func library(t *testing.T) *entity.Registry {
	t.Helper()
	reg, err := entity.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Register(
		entity.Declare("Publisher").AddProperties(
			property.Int("id").AsPrimaryKey().AsAutoIncrement(),
			property.String("name"),
		),
		entity.Declare("Book").
			AddProperties(
				property.Int("id").AsPrimaryKey().AsAutoIncrement(),
				property.String("title"),
				property.Enum("format", "paper", "e_book"),
				property.Float("price").AsNullable(),
				property.Timestamp("printedAt"),
				property.Object("extra").AsNullable(),
				property.String("secret").AsInternal(),
			).
			AddReference(entity.Reference{To: "Publisher", Required: relation.Bool(true)}),
	))
	return reg
}

func TestSchema(t *testing.T) {
	ctx := context.Background()
	s, err := Schema(ctx, library(t))
	require.NoError(t, err)

	book := s.Types["Book"]
	require.NotNil(t, book)
	assert.Equal(t, ast.Object, book.Kind)
	types := make(map[string]string)
	for _, f := range book.Fields {
		types[f.Name] = f.Type.String()
	}
	assert.Equal(t, map[string]string{
		"id":          "ID!",
		"title":       "String!",
		"format":      "BookFormat!",
		"price":       "Float",
		"printedAt":   "Time!",
		"extra":       "JSON",
		"publisherID": "Int!",
		"publisher":   "Publisher!",
	}, types)

	format := s.Types["BookFormat"]
	require.NotNil(t, format)
	assert.Equal(t, ast.Enum, format.Kind)
	assert.Equal(t, "PAPER", format.EnumValues[0].Name)
	assert.Equal(t, "E_BOOK", format.EnumValues[1].Name)
	assert.Equal(t, ast.Scalar, s.Types[ScalarTime].Kind)

	pub := s.Types["Publisher"]
	require.NotNil(t, pub)
	books := pub.Fields.ForName("books")
	require.NotNil(t, books)
	assert.Equal(t, "[Book!]!", books.Type.String())

	require.NotNil(t, s.Query)
	assert.Equal(t, "[Book!]!", s.Query.Fields.ForName("books").Type.String())
	byID := s.Query.Fields.ForName("book")
	require.NotNil(t, byID)
	assert.Equal(t, "ID!", byID.Arguments.ForName("id").Type.String())

	sdl := PrintSchema(s)
	assert.Contains(t, sdl, "type Book {")
	assert.Contains(t, sdl, "scalar JSON")
}

func TestDocument(t *testing.T) {
	ctx := context.Background()
	doc, err := Document(ctx, library(t), "Publisher")
	require.NoError(t, err)
	names := make([]string, len(doc.Definitions))
	for i, d := range doc.Definitions {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Publisher", "Query"}, names)
	pub := doc.Definitions.ForName("Publisher")
	assert.Nil(t, pub.Fields.ForName("books"), "relations to unexported entities are skipped")
	sdl := Print(doc)
	assert.Contains(t, sdl, "publishers: [Publisher!]!")
	assert.Contains(t, sdl, "publisher(id: ID!): Publisher")

	_, err = Document(ctx, library(t), "Magazine")
	assert.True(t, entmeta.IsNotFound(err))
}

func TestSchemaErrors(t *testing.T) {
	reg, err := entity.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Register(entity.Declare("Ticket").AddProperties(
		property.Int("id").AsPrimaryKey(),
		property.Enum("state", "open", "re-open"),
	)))
	_, err = Schema(context.Background(), reg)
	assert.ErrorContains(t, err, `variant "re-open" of state does not map to an enum value`)

	reg, err = entity.NewRegistry()
	require.NoError(t, err)
	require.NoError(t, reg.Register(entity.Declare("Doc").AddProperties(
		property.Int("id").AsPrimaryKey(),
		property.String("user_id"),
		property.String("userId"),
	)))
	_, err = Schema(context.Background(), reg)
	assert.ErrorContains(t, err, "field userID of property userId clashes with property user_id")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "OrderLine", TypeName("OrderLine"))
	assert.Equal(t, "salesRank", FieldName("sales_rank"))
	assert.Equal(t, "publisherID", FieldName("publisher_id"))
	assert.Equal(t, "publisher", FieldName("Publisher"))
}
