package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syssam/entmeta/dialect"
)

// Executor renders select statements and runs them on a driver,
// returning rows as column-name keyed maps.
type Executor struct {
	drv    dialect.Driver
	logger *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the logger used for debug output.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor returns an executor over drv.
func NewExecutor(drv dialect.Driver, opts ...ExecutorOption) *Executor {
	e := &Executor{drv: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch renders q for the driver dialect, runs it and scans all rows.
func (e *Executor) Fetch(ctx context.Context, q *Select) (rows []map[string]any, err error) {
	query, args := Render(e.drv.Dialect(), q)
	if args == nil {
		args = []any{}
	}
	e.logger.DebugContext(ctx, "fetch", "query", query, "args", args)
	var rs Rows
	if err := e.drv.Query(ctx, query, args, &rs); err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, rs.Close()) }()
	return ScanMaps(rs)
}

// ScanMaps scans all remaining rows into maps keyed by column name.
func ScanMaps(rs ColumnScanner) ([]map[string]any, error) {
	columns, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	var result []map[string]any
	for rs.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		result = append(result, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: rows: %w", err)
	}
	return result, nil
}
