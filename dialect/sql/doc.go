// Package sql provides the expression nodes that properties and relations
// operate on, a small statement renderer, and a database/sql backed driver
// used to run the fetches registered on a result plan.
//
// # Nodes
//
//   - Column: a (possibly qualified) property reference that may carry a substitution
//   - Constant: a bound argument
//   - Func, Raw, List: function calls, verbatim fragments and column lists
//   - Select, Tuple, TupleColumn: statements and their projections; a nested
//     Select renders as a subquery
//   - EQ, ListEQ, In, And, Or, Not, IsNull: predicates
//
// Relations produce join conditions from these nodes:
//
//	sql.EQ(sql.EC("book", "author_id"), sql.EC("author", "id"))
//	sql.ListEQ(
//	    []sql.Node{sql.EC("r", "x"), sql.EC("r", "y")},
//	    []sql.Node{sql.EC("l", "a"), sql.EC("l", "b")},
//	)
//
// # Rendering
//
// Identifiers are quoted per dialect and arguments use "?" placeholders,
// or "$n" for PostgreSQL:
//
//	query, args := sql.Render(dialect.Postgres, sql.SelectFrom("book").Filter(sql.FieldEQ("id", 1)))
//	// SELECT * FROM "book" WHERE "id" = $1
//
// # Executing
//
//	drv, err := sql.Open("sqlite", "file:meta.db")
//	rows, err := sql.NewExecutor(sql.NewStatsDriver(drv, sql.WithStorageName("main"))).Fetch(ctx, q)
package sql
