// Package exec holds the execution context handed to properties while a
// query is compiled, and the result plan that post-processes fetched rows.
package exec

import (
	"context"
	"fmt"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/relation"
)

// Usage is the syntactic role a property reference occupies in a query.
type Usage int

// Usage contexts. The set is closed; every value maps to one usability
// flag of a property.
const (
	Tuple Usage = iota
	Filter
	Assign
	GroupBy
	OrderBy
	Relation
	JoinCondition
)

// NumUsages is the number of usage contexts.
const NumUsages = int(JoinCondition) + 1

var usageNames = [NumUsages]string{
	Tuple:         "tuple",
	Filter:        "filter",
	Assign:        "assign",
	GroupBy:       "groupBy",
	OrderBy:       "orderBy",
	Relation:      "relation",
	JoinCondition: "joinCondition",
}

// Valid reports whether u is a known usage context.
func (u Usage) Valid() bool { return u >= 0 && int(u) < NumUsages }

// String returns the usage name.
func (u Usage) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Usage(%d)", int(u))
	}
	return usageNames[u]
}

// Usages returns all usage contexts in order.
func Usages() []Usage {
	us := make([]Usage, NumUsages)
	for i := range us {
		us[i] = Usage(i)
	}
	return us
}

// Row is a fetched result row keyed by column alias.
type Row = map[string]any

// Fetcher runs a select and returns its rows. *sql.Executor implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q *sql.Select) ([]map[string]any, error)
}

// Schema resolves built entity metadata by name while a query is compiled.
// The entity registry implements it.
type Schema interface {
	// Relation returns the relation held by entity from to entity to.
	Relation(from, to string) (relation.Relation, error)
	// PrimaryKey returns the primary key of entity.
	PrimaryKey(entity string) (*key.Key, error)
	// Column returns the storage column of a property.
	Column(entity, property string) (string, error)
	// Table returns the storage table of entity.
	Table(entity string) (string, error)
}

// Context describes one property reference being compiled.
type Context struct {
	ctx context.Context

	Query    *sql.Select   // query the reference belongs to
	Entity   string        // entity name of the reference
	Subject  string        // alias of the entity inside Query, if any
	Column   *sql.Column   // the column node being processed
	Constant *sql.Constant // right-hand value in filter and assign usage
	Usage    Usage
	Plan     *Plan
	Fetcher  Fetcher
	Schema   Schema
}

// NewContext returns a context for a reference in the given usage.
func NewContext(ctx context.Context, usage Usage) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{ctx: ctx, Usage: usage}
}

// Context returns the request context. It is never nil.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// WithContext returns a shallow copy of c with its context changed to ctx.
func (c *Context) WithContext(ctx context.Context) *Context {
	c2 := *c
	c2.ctx = ctx
	return &c2
}

// HiddenColumn projects column into the current query unless a column with
// the same name is already selected, and returns the name under which it
// appears in result rows. Columns added here are stripped by the plan after
// post-processing.
func (c *Context) HiddenColumn(column string) string {
	if c.Query == nil {
		return column
	}
	if c.Query.Tuple == nil || c.Query.Tuple.IsDefault() {
		// "select *" already carries every stored column.
		return column
	}
	added := &sql.TupleColumn{Expr: sql.EC(c.Subject, column)}
	tc := c.Query.Tuple.AddIfNotExists(added)
	if tc == added && c.Plan != nil {
		c.Plan.AddHidden(column)
	}
	return tc.AliasOrName()
}

// TupleColumn returns the select list entry that projects Column, or nil
// when the column is not projected directly.
func (c *Context) TupleColumn() *sql.TupleColumn {
	if c.Query == nil || c.Query.Tuple == nil || c.Column == nil {
		return nil
	}
	for _, tc := range c.Query.Tuple.Columns {
		if tc.Expr == c.Column {
			return tc
		}
	}
	return nil
}

// ResultName returns the name under which the column appears in result rows.
func (c *Context) ResultName() string {
	if tc := c.TupleColumn(); tc != nil && tc.Alias != "" {
		return tc.Alias
	}
	if c.Column != nil {
		return c.Column.Name
	}
	return ""
}
