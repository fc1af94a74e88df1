// Package graphql exports built entities as a GraphQL schema.
//
// Every entity becomes an object type. Its tuple-able properties become
// fields; relations to other exported entities become object or list
// fields. A Query type gets a list and a by-primary-key field per entity:
//
//	s, err := graphql.Schema(ctx, reg, "Book", "Publisher")
//	if err != nil {
//		return err
//	}
//	fmt.Print(graphql.PrintSchema(s))
//
// produces, among others:
//
//	type Book {
//		id: ID!
//		title: String!
//		publisherID: Int
//		publisher: Publisher
//	}
//
//	type Query {
//		book(id: ID!): Book
//		books: [Book!]!
//		...
//	}
//
// # Type Mapping
//
//   - primary key columns: ID
//   - boolean: Boolean
//   - integer, bigint, year: Int
//   - float: Float
//   - datetime, timestamp: Time
//   - json, list, object: JSON
//   - enum: an enum type named after the entity and property, with the
//     variants upper-cased
//   - anything else: String
//
// Nullable properties map to nullable types. Internal properties and
// properties disabled for tuples are not exported.
//
// The document is validated by gqlparser before Schema returns.
package graphql
