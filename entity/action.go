package entity

import (
	"context"
	"fmt"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/relation"
)

// Action is a query action an entity can execute.
type Action string

// Query actions. The actions stage seeds every one of them as unhandled.
const (
	ActionSelect  Action = "select"
	ActionCount   Action = "count"
	ActionInsert  Action = "insert"
	ActionReplace Action = "replace"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
)

// Actions lists the query actions in seeding order.
var Actions = []Action{ActionSelect, ActionCount, ActionInsert, ActionReplace, ActionUpdate, ActionDelete}

// Executor runs the compiled query of one action.
type Executor interface {
	Execute(ctx context.Context, q sql.Node) ([]exec.Row, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, q sql.Node) ([]exec.Row, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, q sql.Node) ([]exec.Row, error) { return f(ctx, q) }

// FetchExecutor runs select queries with a fetcher.
type FetchExecutor struct {
	Fetcher exec.Fetcher
}

// Execute implements Executor.
func (e FetchExecutor) Execute(ctx context.Context, q sql.Node) ([]exec.Row, error) {
	s, ok := q.(*sql.Select)
	if !ok {
		return nil, fmt.Errorf("entity: fetch executor cannot run %T", q)
	}
	return e.Fetcher.Fetch(ctx, s)
}

// Modifier adjusts queries of an entity and, optionally, their result
// rows.
type Modifier struct {
	name   string
	query  func(q *sql.Select, ec *exec.Context) error
	result exec.PostProcessor
}

// NewModifier returns a modifier. Without a query handler, the modifier
// registers result as a post-processor of every query it is applied to.
func NewModifier(name string, result exec.PostProcessor, query func(q *sql.Select, ec *exec.Context) error) *Modifier {
	m := &Modifier{name: name, query: query, result: result}
	if m.query == nil && result != nil {
		m.query = func(_ *sql.Select, ec *exec.Context) error {
			if ec.Plan == nil {
				return fmt.Errorf("entity: modifier %q needs a result plan", name)
			}
			ec.Plan.AddPostProcessor(result)
			return nil
		}
	}
	return m
}

// Name returns the modifier name.
func (m *Modifier) Name() string { return m.name }

// HandleQuery applies the modifier to q.
func (m *Modifier) HandleQuery(q *sql.Select, ec *exec.Context) error {
	if m.query == nil {
		return fmt.Errorf("entity: modifier %q has no query handler", m.name)
	}
	return m.query(q, ec)
}

// ModifyRows runs the result handler over rows.
func (m *Modifier) ModifyRows(ctx context.Context, rows []exec.Row) ([]exec.Row, error) {
	if m.result == nil {
		return nil, fmt.Errorf("entity: modifier %q has no result handler", m.name)
	}
	return m.result(ctx, rows)
}

// ConstraintKind classifies a constraint.
type ConstraintKind string

// Constraint kinds.
const (
	ConstraintForeignKey ConstraintKind = "foreign-key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
)

// Constraint is an integrity rule of an entity.
type Constraint struct {
	Name     string
	Kind     ConstraintKind
	Key      *key.Key          // constrained columns
	Relation relation.Relation // referenced relation of a foreign key
	Check    sql.Node          // predicate of a check constraint
}

// PostActionFunc runs after an action of the entity completed.
type PostActionFunc func(ctx context.Context, action Action, rows []exec.Row) error

// PostAction is a callback bound to some actions of an entity. An empty
// action list binds it to all of them.
type PostAction struct {
	Actions []Action
	Handler PostActionFunc
}

// Handles reports whether the post-action runs after a.
func (p *PostAction) Handles(a Action) bool {
	if len(p.Actions) == 0 {
		return true
	}
	for _, x := range p.Actions {
		if x == a {
			return true
		}
	}
	return false
}
