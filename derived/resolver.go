package derived

import (
	"context"
	"strconv"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/property"
)

// Lookup finds built entities by name. *entity.Registry implements it.
type Lookup interface {
	Get(ctx context.Context, name string) (*entity.Entity, error)
}

// Resolver maps the output columns of a subquery to properties.
type Resolver interface {
	// ResolveProperties returns the properties of every output column.
	ResolveProperties() ([]*property.Property, error)
	// ResolveProperty returns the property of the output column called
	// name, or nil when there is none. from names the entity the column
	// belongs to when it is not the entity the subquery selects from.
	ResolveProperty(name, from string) (*property.Property, error)
}

// SubqueryResolver resolves properties from the select list of a
// subquery. A "SELECT *" subquery exposes the default columns of the
// entity it selects from; an explicit select list exposes its output
// columns only.
//
// With auto-adding, a property missing from the select list is appended
// to it when the entity has one of that name.
type SubqueryResolver struct {
	query   *sql.Select
	lookup  Lookup
	autoAdd bool
}

// NewResolver returns a resolver that only sees the output columns of q.
func NewResolver(q *sql.Select, lookup Lookup) *SubqueryResolver {
	return &SubqueryResolver{query: q, lookup: lookup}
}

// NewAutoAddingResolver returns a resolver that adds missing columns to
// the select list of q.
func NewAutoAddingResolver(q *sql.Select, lookup Lookup) *SubqueryResolver {
	return &SubqueryResolver{query: q, lookup: lookup, autoAdd: true}
}

func (r *SubqueryResolver) original() (*entity.Entity, error) {
	return r.lookup.Get(context.Background(), r.query.From)
}

func (r *SubqueryResolver) isDefault() bool {
	return r.query.Tuple == nil || r.query.Tuple.IsDefault()
}

// ResolveProperties implements Resolver.
func (r *SubqueryResolver) ResolveProperties() ([]*property.Property, error) {
	if r.isDefault() {
		orig, err := r.original()
		if err != nil {
			return nil, err
		}
		var ps []*property.Property
		for _, p := range orig.DefaultColumns() {
			ps = append(ps, property.Derive(p, ""))
		}
		return ps, nil
	}
	var ps []*property.Property
	for i, tc := range r.query.Tuple.Columns {
		name := tc.AliasOrName()
		if name == "" {
			name = "column" + strconv.Itoa(i+1)
		}
		p, err := r.fromColumn(name, tc)
		if err != nil {
			return nil, err
		}
		if p != nil {
			ps = append(ps, p)
		}
	}
	return ps, nil
}

// ResolveProperty implements Resolver.
func (r *SubqueryResolver) ResolveProperty(name, from string) (*property.Property, error) {
	if r.isDefault() {
		orig, err := r.original()
		if err != nil {
			return nil, err
		}
		if p := orig.FindProperty(name); p != nil {
			return property.Derive(p, name), nil
		}
		return nil, nil
	}
	if tc := r.query.Tuple.Find(name); tc != nil {
		p, err := r.fromColumn(name, tc)
		if p != nil || err != nil || !r.autoAdd {
			return p, err
		}
	}
	if !r.autoAdd {
		return nil, nil
	}
	return r.add(name, from)
}

// fromColumn returns the property of one output column. A bare column
// keeps the property of the entity it reads; a function call or a nested
// select becomes an opaque expression.
func (r *SubqueryResolver) fromColumn(name string, tc *sql.TupleColumn) (*property.Property, error) {
	switch expr := tc.Expr.(type) {
	case *sql.Column:
		e, err := r.owner(expr.Entity)
		if err != nil {
			return nil, err
		}
		p := e.FindProperty(expr.Name)
		if p == nil {
			return nil, nil
		}
		return property.Derive(p, name), nil
	case *sql.Func, *sql.Select:
		return property.DerivedExpression(name, ""), nil
	}
	return nil, nil
}

// owner returns the entity a column qualified by name belongs to.
func (r *SubqueryResolver) owner(name string) (*entity.Entity, error) {
	orig, err := r.original()
	if err != nil {
		return nil, err
	}
	if name == "" || name == orig.Name() || name == r.query.Alias {
		return orig, nil
	}
	return r.lookup.Get(context.Background(), name)
}

// add appends the column of the property called name to the select list.
func (r *SubqueryResolver) add(name, from string) (*property.Property, error) {
	e, err := r.owner(from)
	if err != nil {
		return nil, err
	}
	p := e.FindProperty(name)
	if p == nil {
		return nil, nil
	}
	tc := &sql.TupleColumn{Expr: sql.EC(e.Name(), p.Name())}
	if exists := r.query.Tuple.AddIfNotExists(tc); exists != tc {
		query, _ := sql.Render(dialect.SQLite, r.query)
		err := entmeta.NewTransformationError("column "+strconv.Quote(p.Name())+" is already used by another expression of the derived query", e.Name())
		err.Query = query
		return nil, err
	}
	return property.Derive(p, name), nil
}

var _ Resolver = (*SubqueryResolver)(nil)
