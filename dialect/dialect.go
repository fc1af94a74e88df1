package dialect

import (
	"context"
	"strings"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Querier wraps the Query method.
type Querier interface {
	// Query executes a statement that returns rows into v (*sql.Rows).
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for running
// fetches. It is read-only.
type Driver interface {
	Querier
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Normalize maps a driver name such as "sqlite3" or "pgx" to a dialect name.
// Unknown names are returned unchanged.
func Normalize(name string) string {
	switch {
	case strings.HasPrefix(name, MySQL):
		return MySQL
	case strings.HasPrefix(name, SQLite):
		return SQLite
	case strings.HasPrefix(name, Postgres), name == "pgx":
		return Postgres
	}
	return name
}
