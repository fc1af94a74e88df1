// Package derived exposes subqueries as entities.
//
// A derived entity stands for "(SELECT ...) AS alias" inside a larger
// query. Its properties come from the select list of the subquery and its
// relations are those of the entity the subquery selects from, rewritten
// so that joins against the alias find their key columns:
//
//	q := sql.SelectFrom("Book").Project(&sql.TupleColumn{Expr: sql.C("title")}).As("recent")
//	d, err := derived.New(q, reg)
//	r, err := d.Relation("Publisher") // adds "Book"."publisherId" to q
//
// The original entity is looked up by name on every use; a derived
// entity never outlives the query that owns it. Derived entities are not
// safe for concurrent use.
package derived

import (
	"context"
	"errors"
	"strings"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// Entity is a view over a subquery.
type Entity struct {
	query    *sql.Select
	name     string
	lookup   Lookup
	resolver Resolver
	resolve  bool

	properties map[string]*property.Property
	order      []string
	relations  map[string]relation.Relation
}

// Option configures a derived entity.
type Option func(*Entity)

// WithResolver replaces the default resolver, which only sees the output
// columns of the subquery.
func WithResolver(r Resolver) Option {
	return func(e *Entity) { e.resolver = r }
}

// New returns the derived entity of q. q needs an alias, which names the
// entity, and must select from a registered entity.
func New(q *sql.Select, lookup Lookup, opts ...Option) (*Entity, error) {
	switch {
	case q == nil:
		return nil, errors.New("derived: nil subquery")
	case q.Alias == "":
		return nil, entmeta.NewDescriptorError(q.From, "derived entity needs a subquery alias")
	case q.From == "":
		return nil, entmeta.NewDescriptorError(q.Alias, "derived entity needs a subquery selecting from an entity")
	}
	e := &Entity{
		query:      q,
		name:       naming.Normalize(q.Alias),
		lookup:     lookup,
		resolve:    true,
		properties: make(map[string]*property.Property),
		relations:  make(map[string]relation.Relation),
	}
	e.resolver = NewResolver(q, lookup)
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the normalized subquery alias.
func (e *Entity) Name() string { return e.name }

// Subject returns the subquery alias as written.
func (e *Entity) Subject() string { return e.query.Alias }

// Query returns the subquery.
func (e *Entity) Query() *sql.Select { return e.query }

// Table returns the subquery alias, the name joins refer to.
func (e *Entity) Table() string { return e.query.Alias }

// SetResolveProperties switches property resolution on or off. When off,
// only properties set with SetProperty are visible.
func (e *Entity) SetResolveProperties(v bool) *Entity {
	e.resolve = v
	return e
}

// SetProperty makes p visible under its name.
func (e *Entity) SetProperty(p *property.Property) {
	if _, ok := e.properties[p.Name()]; !ok {
		e.order = append(e.order, p.Name())
	}
	e.properties[p.Name()] = p
}

// OriginalEntity returns the entity the subquery selects from.
func (e *Entity) OriginalEntity() (*entity.Entity, error) {
	orig, err := e.lookup.Get(context.Background(), e.query.From)
	if err != nil {
		return nil, entmeta.WrapDescriptorError(e.name, "original entity of derived entity", err)
	}
	return orig, nil
}

// Original returns the entity the subquery selects from.
func (e *Entity) Original() (entity.Model, error) {
	orig, err := e.OriginalEntity()
	if err != nil {
		return nil, err
	}
	return orig, nil
}

// Property returns the property of the output column called name. A
// name starting with "@" looks the property up by its typical name on
// the original entity.
func (e *Entity) Property(name string) (*property.Property, error) {
	if role, ok := strings.CutPrefix(name, entity.TypicalPrefix); ok {
		orig, err := e.OriginalEntity()
		if err != nil {
			return nil, err
		}
		p := orig.TypicalProperty(role)
		if p == nil {
			return nil, entmeta.NewPropertyNotFoundError(e.name, name)
		}
		name = p.Name()
	}
	if p, ok := e.properties[name]; ok {
		return p, nil
	}
	if !e.resolve {
		return nil, entmeta.NewPropertyNotFoundError(e.name, name)
	}
	p, err := e.resolver.ResolveProperty(name, "")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entmeta.NewPropertyNotFoundError(e.name, name)
	}
	e.SetProperty(p)
	return p, nil
}

// FindProperty is like Property but returns nil when nothing matches.
func (e *Entity) FindProperty(name string) *property.Property {
	p, _ := e.Property(name)
	return p
}

// ResolveProperties returns every property of the subquery output.
// Properties set with SetProperty take precedence.
func (e *Entity) ResolveProperties() ([]*property.Property, error) {
	if e.resolve {
		resolved, err := e.resolver.ResolveProperties()
		if err != nil {
			return nil, err
		}
		for _, p := range resolved {
			if _, ok := e.properties[p.Name()]; !ok {
				e.SetProperty(p)
			}
		}
	}
	ps := make([]*property.Property, len(e.order))
	for i, n := range e.order {
		ps[i] = e.properties[n]
	}
	return ps, nil
}

// Properties returns every property of the subquery output, or nil when
// they cannot be resolved. ResolveProperties reports the error.
func (e *Entity) Properties() []*property.Property {
	ps, _ := e.ResolveProperties()
	return ps
}

// DefaultColumns returns the properties a "SELECT *" over the derived
// entity projects: the default columns of the original entity for a
// "SELECT *" subquery, the named output columns otherwise.
func (e *Entity) DefaultColumns() []*property.Property {
	var names []string
	if t := e.query.Tuple; t == nil || t.IsDefault() {
		orig, err := e.OriginalEntity()
		if err != nil {
			return nil
		}
		for _, p := range orig.DefaultColumns() {
			names = append(names, p.Name())
		}
	} else {
		for _, tc := range t.Columns {
			if n := tc.AliasOrName(); n != "" {
				names = append(names, n)
			}
		}
	}
	var ps []*property.Property
	for _, n := range names {
		if p := e.FindProperty(n); p != nil {
			ps = append(ps, p)
		}
	}
	return ps
}

// Relation returns the relation from the derived entity to the entity
// called name. It is the relation the original entity holds with name,
// or the reversed relation name holds back, with the derived entity as
// its left side. The key columns the join needs are added to the
// subquery when missing.
func (e *Entity) Relation(name string) (relation.Relation, error) {
	if r, ok := e.relations[name]; ok {
		return r, nil
	}
	orig, err := e.OriginalEntity()
	if err != nil {
		return nil, err
	}
	target, err := e.lookup.Get(context.Background(), name)
	if err != nil {
		return nil, err
	}
	if r, ok := e.relations[target.Name()]; ok {
		return r, nil
	}
	r := orig.FindRelation(target.Name())
	if r == nil {
		back := target.FindRelation(orig.Name())
		if back == nil {
			err := entmeta.NewTransformationError("derived entity has no relation to "+target.Name(), e.name, orig.Name())
			err.Cause = entmeta.NewRelationNotFoundError(e.name, target.Name())
			return nil, err
		}
		if r, err = back.Reverse(); err != nil {
			return nil, err
		}
	}
	t, err := e.transform(r)
	if err != nil {
		return nil, err
	}
	e.relations[target.Name()] = t
	return t, nil
}

// FindRelation is like Relation but returns nil on failure.
func (e *Entity) FindRelation(name string) relation.Relation {
	r, _ := e.Relation(name)
	return r
}

// transform moves the left side of r to the derived entity and makes sure
// the subquery projects the left key of the join. For an indirect
// relation that is the left key of its last hop, which must be direct.
func (e *Entity) transform(r relation.Relation) (relation.Relation, error) {
	var (
		cols []string
		from string
	)
	switch r := r.(type) {
	case *relation.Direct:
		cols = r.LeftKey().Columns()
	case *relation.Indirect:
		path := r.Path()
		prev, err := e.lookup.Get(context.Background(), path[len(path)-2])
		if err != nil {
			return nil, err
		}
		last, err := prev.ResolveRelation(path[len(path)-1])
		if err != nil {
			return nil, err
		}
		direct, ok := last.(*relation.Direct)
		if !ok {
			err := entmeta.NewTransformationError("the last hop of an indirect relation must be direct", prev.Name(), last.Right())
			err.RelationType = string(last.Type())
			err.Query, _ = sql.Render(dialect.SQLite, e.query)
			return nil, err
		}
		cols, from = direct.LeftKey().Columns(), direct.Left()
	default:
		err := entmeta.NewTransformationError("relation cannot be adapted to a derived entity", r.Left(), r.Right())
		err.RelationType = string(r.Type())
		return nil, err
	}
	adder := NewAutoAddingResolver(e.query, e.lookup)
	for _, c := range cols {
		p, err := adder.ResolveProperty(c, from)
		if err != nil {
			return nil, err
		}
		if p == nil {
			err := entmeta.NewTransformationError("key column "+c+" cannot be added to the derived query", e.name, r.Right())
			err.Query, _ = sql.Render(dialect.SQLite, e.query)
			return nil, err
		}
	}
	return r.CloneWithSubjects(e.name, ""), nil
}

// Relations returns the relations of the original entity, untransformed.
// Use Relation for a relation joins against the derived entity can use.
func (e *Entity) Relations() []relation.Relation {
	orig, err := e.OriginalEntity()
	if err != nil {
		return nil
	}
	return orig.Relations()
}

// IsConsistentRelationWith reports whether the derived entity and other
// live in one storage domain. A derived entity is consistent with itself
// and with derived entities of the same name.
func (e *Entity) IsConsistentRelationWith(other entity.Model) (consistent, ok bool) {
	if other == entity.Model(e) {
		return true, true
	}
	if d, isDerived := other.(*Entity); isDerived {
		return d.Name() == e.name, true
	}
	orig, err := e.OriginalEntity()
	if err != nil {
		return false, false
	}
	return orig.IsConsistentRelationWith(other)
}

// Storage returns the storage of the original entity.
func (e *Entity) Storage() string {
	return delegate(e, (*entity.Entity).Storage)
}

// Inherits returns the parent of the original entity.
func (e *Entity) Inherits() string {
	return delegate(e, (*entity.Entity).Inherits)
}

// TypicalName returns the role alias of the original entity.
func (e *Entity) TypicalName() string {
	return delegate(e, (*entity.Entity).TypicalName)
}

// PrimaryKey returns the primary key of the original entity.
func (e *Entity) PrimaryKey() *key.Key {
	return delegate(e, (*entity.Entity).PrimaryKey)
}

// AutoIncrement returns the auto-increment property of the original
// entity.
func (e *Entity) AutoIncrement() *property.Property {
	return delegate(e, (*entity.Entity).AutoIncrement)
}

// TypicalProperty returns the derived property playing role, or nil.
func (e *Entity) TypicalProperty(role string) *property.Property {
	return e.FindProperty(entity.TypicalPrefix + role)
}

// Keys returns the keys of the original entity.
func (e *Entity) Keys() []*key.Key {
	return delegate(e, (*entity.Entity).Keys)
}

// Functions returns the functions of the original entity.
func (e *Entity) Functions() []*entity.Function {
	return delegate(e, (*entity.Entity).Functions)
}

// FindFunction returns the function of the original entity called name.
func (e *Entity) FindFunction(name string) *entity.Function {
	orig, err := e.OriginalEntity()
	if err != nil {
		return nil
	}
	return orig.FindFunction(name)
}

// Modifiers returns the modifiers of the original entity.
func (e *Entity) Modifiers() []*entity.Modifier {
	return delegate(e, (*entity.Entity).Modifiers)
}

// Constraints returns the constraints of the original entity.
func (e *Entity) Constraints() []*entity.Constraint {
	return delegate(e, (*entity.Entity).Constraints)
}

// Actions returns the action executors of the original entity.
func (e *Entity) Actions() map[entity.Action]entity.Executor {
	return delegate(e, (*entity.Entity).Actions)
}

// PostActions returns the post-actions of the original entity.
func (e *Entity) PostActions() []*entity.PostAction {
	return delegate(e, (*entity.Entity).PostActions)
}

// Aspects returns the aspects of the original entity.
func (e *Entity) Aspects() []entity.Aspect {
	return delegate(e, (*entity.Entity).Aspects)
}

// Options returns the options of the original entity.
func (e *Entity) Options() map[string]any {
	return delegate(e, (*entity.Entity).Options)
}

// delegate reads an attribute of the original entity, or its zero value
// when the original cannot be found.
func delegate[T any](e *Entity, get func(*entity.Entity) T) T {
	orig, err := e.OriginalEntity()
	if err != nil {
		var zero T
		return zero
	}
	return get(orig)
}

var _ entity.Model = (*Entity)(nil)
