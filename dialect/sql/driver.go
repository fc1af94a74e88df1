package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/entmeta/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
type Driver struct {
	Conn
	dialect string
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialectName string, c Conn) *Driver {
	return &Driver{dialect: dialectName, Conn: c}
}

// Open wraps database/sql.Open and returns a Driver.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps the given *sql.DB with a Driver.
func OpenDB(driverName string, db *sql.DB) *Driver {
	return NewDriver(driverName, Conn{Querier: db})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.Querier.(*sql.DB)
}

// Dialect implements the dialect.Driver method.
func (d Driver) Dialect() string {
	return dialect.Normalize(d.dialect)
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Querier wraps the standard QueryContext method. *sql.DB, *sql.Conn and
// *sql.Tx implement it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.Querier given Querier.
type Conn struct {
	Querier
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

// Rows wraps the sql.Rows to avoid locks copy.
type Rows struct{ ColumnScanner }

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
