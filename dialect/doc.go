// Package dialect names the database dialects known to entmeta and defines
// the minimal driver contract used to run the fetches that virtual
// properties register on a result plan.
//
// # Supported Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
//	type Driver interface {
//	    Query(ctx context.Context, query string, args, v any) error
//	    Close() error
//	    Dialect() string
//	}
//
// Writes and transactions are not part of the contract. The metadata core
// only reads.
//
// # Sub-packages
//
//   - dialect/sql: expression nodes, a statement renderer, the database/sql
//     backed driver and the fetch executor
package dialect
