package entity

import (
	"maps"
	"strings"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// TypicalPrefix marks a property lookup by typical name, as in "@title".
const TypicalPrefix = "@"

// Model is the read API shared by entities under construction, built
// entities and derived entities.
type Model interface {
	Name() string
	Table() string
	Storage() string
	Inherits() string
	PrimaryKey() *key.Key
	Property(name string) (*property.Property, error)
	FindProperty(name string) *property.Property
	Properties() []*property.Property
	DefaultColumns() []*property.Property
	Relation(name string) (relation.Relation, error)
	FindRelation(name string) relation.Relation
	Relations() []relation.Relation
	IsConsistentRelationWith(other Model) (consistent, ok bool)
}

// originator is implemented by views over another model.
type originator interface {
	Original() (Model, error)
}

// model holds the collections of an entity. Descriptor mutates it while
// building; Entity exposes a frozen copy.
type model struct {
	name        string
	typicalName string
	table       string
	storage     string
	inherits    string
	optionalPK  bool

	properties  ordered[*property.Property]
	typical     map[string]*property.Property // folded typical name
	keys        ordered[*key.Key]
	primary     *key.Key
	functions   *FunctionStorage
	relations   ordered[relation.Relation]
	modifiers   ordered[*Modifier]
	constraints ordered[*Constraint]
	actions     map[Action]Executor
	postActions []*PostAction
	aspects     ordered[Aspect]
	options     map[string]any

	lookup func(name string) (Model, error)
}

func newModel(name string) model {
	return model{
		name:        name,
		properties:  newOrdered[*property.Property](),
		typical:     make(map[string]*property.Property),
		keys:        newOrdered[*key.Key](),
		functions:   NewFunctionStorage(name),
		relations:   newOrdered[relation.Relation](),
		modifiers:   newOrdered[*Modifier](),
		constraints: newOrdered[*Constraint](),
		actions:     make(map[Action]Executor),
		aspects:     newOrdered[Aspect](),
		options:     make(map[string]any),
	}
}

// Name returns the normalized entity name.
func (m *model) Name() string { return m.name }

// TypicalName returns the role alias of the entity, if any.
func (m *model) TypicalName() string { return m.typicalName }

// Table returns the storage table name.
func (m *model) Table() string { return m.table }

// Storage returns the storage the entity lives in.
func (m *model) Storage() string { return m.storage }

// Inherits returns the name of the parent entity, if any.
func (m *model) Inherits() string { return m.inherits }

// IsPrimaryKeyOptional reports whether the entity may have no primary key.
func (m *model) IsPrimaryKeyOptional() bool { return m.optionalPK }

// PrimaryKey returns the primary key, or nil.
func (m *model) PrimaryKey() *key.Key { return m.primary }

// AutoIncrement returns the auto-increment property, or nil.
func (m *model) AutoIncrement() *property.Property {
	for _, p := range m.properties.list() {
		if p.IsAutoIncrement() {
			return p
		}
	}
	return nil
}

// Property returns the property called name. A name starting with "@"
// looks the property up by its typical name.
func (m *model) Property(name string) (*property.Property, error) {
	if p := m.FindProperty(name); p != nil {
		return p, nil
	}
	return nil, entmeta.NewPropertyNotFoundError(m.name, name)
}

// FindProperty is like Property but returns nil when nothing matches.
func (m *model) FindProperty(name string) *property.Property {
	if typical, ok := strings.CutPrefix(name, TypicalPrefix); ok {
		return m.TypicalProperty(typical)
	}
	p, _ := m.properties.get(name)
	return p
}

// HasProperty reports whether a property called name exists.
func (m *model) HasProperty(name string) bool { return m.FindProperty(name) != nil }

// TypicalProperty returns the property playing the given role, or nil.
// Roles are matched case-insensitively.
func (m *model) TypicalProperty(role string) *property.Property {
	return m.typical[naming.Fold(role)]
}

// Properties returns the properties in declaration order.
func (m *model) Properties() []*property.Property { return m.properties.list() }

// DefaultColumns returns the properties a "SELECT *" projects: the stored,
// non-virtual ones.
func (m *model) DefaultColumns() []*property.Property {
	var ps []*property.Property
	for _, p := range m.properties.list() {
		if !p.IsVirtual() {
			ps = append(ps, p)
		}
	}
	return ps
}

// Key returns the key called name, or nil.
func (m *model) Key(name string) *key.Key {
	k, _ := m.keys.get(name)
	return k
}

// Keys returns the keys in declaration order.
func (m *model) Keys() []*key.Key { return m.keys.list() }

// Function returns the function called name.
func (m *model) Function(name string) (*Function, error) { return m.functions.Get(name) }

// FindFunction returns the function called name, or nil.
func (m *model) FindFunction(name string) *Function { return m.functions.Find(name) }

// Functions returns the functions in declaration order.
func (m *model) Functions() []*Function { return m.functions.List() }

// Relation returns the relation to the entity called name.
func (m *model) Relation(name string) (relation.Relation, error) {
	if r := m.FindRelation(name); r != nil {
		return r, nil
	}
	return nil, entmeta.NewRelationNotFoundError(m.name, name)
}

// FindRelation returns the relation to the entity called name, or nil.
func (m *model) FindRelation(name string) relation.Relation {
	r, _ := m.relations.get(name)
	return r
}

// HasRelation reports whether the entity relates to name directly.
func (m *model) HasRelation(name string) bool { return m.relations.has(name) }

// Relations returns the relations in declaration order.
func (m *model) Relations() []relation.Relation { return m.relations.list() }

// ResolveRelation returns the relation to name. When the entity holds
// none, the relation the other entity holds back is reversed.
func (m *model) ResolveRelation(name string) (relation.Relation, error) {
	if r := m.FindRelation(name); r != nil {
		return r, nil
	}
	if m.lookup != nil {
		if other, err := m.lookup(name); err == nil {
			if back := other.FindRelation(m.name); back != nil {
				return back.Reverse()
			}
		}
	}
	return nil, entmeta.NewRelationNotFoundError(m.name, name)
}

// IsConsistentRelationWith reports whether the relation to other stays in
// one storage domain. ok is false when the entities are not related.
func (m *model) IsConsistentRelationWith(other Model) (consistent, ok bool) {
	for {
		o, isView := other.(originator)
		if !isView {
			break
		}
		orig, err := o.Original()
		if err != nil {
			return false, false
		}
		other = orig
	}
	if other.Name() == m.name {
		return true, true
	}
	r := m.FindRelation(other.Name())
	if r == nil {
		return false, false
	}
	return r.IsConsistent(), true
}

// Modifier returns the modifier called name, or nil.
func (m *model) Modifier(name string) *Modifier {
	mod, _ := m.modifiers.get(name)
	return mod
}

// Modifiers returns the modifiers in declaration order.
func (m *model) Modifiers() []*Modifier { return m.modifiers.list() }

// Constraints returns the constraints in declaration order.
func (m *model) Constraints() []*Constraint { return m.constraints.list() }

// Action returns the executor of an action. ok is false for actions the
// entity does not know; a nil executor means the action is unhandled.
func (m *model) Action(a Action) (ex Executor, ok bool) {
	ex, ok = m.actions[a]
	return ex, ok
}

// Actions returns the executors by action.
func (m *model) Actions() map[Action]Executor { return maps.Clone(m.actions) }

// PostActions returns the post-action descriptors.
func (m *model) PostActions() []*PostAction { return append([]*PostAction(nil), m.postActions...) }

// Aspects returns the applied aspects in order.
func (m *model) Aspects() []Aspect { return m.aspects.list() }

// HasAspect reports whether an aspect called name was applied.
func (m *model) HasAspect(name string) bool { return m.aspects.has(name) }

// Option returns an entity option.
func (m *model) Option(name string) (any, bool) {
	v, ok := m.options[name]
	return v, ok
}

// Options returns a copy of the options bag.
func (m *model) Options() map[string]any { return maps.Clone(m.options) }

// clone returns a copy of m whose collections can be changed without
// affecting m. Elements are shared.
func (m *model) clone() model {
	c := *m
	c.properties = cloneOrdered(m.properties)
	c.typical = maps.Clone(m.typical)
	c.keys = cloneOrdered(m.keys)
	c.relations = cloneOrdered(m.relations)
	c.modifiers = cloneOrdered(m.modifiers)
	c.constraints = cloneOrdered(m.constraints)
	c.actions = maps.Clone(m.actions)
	c.postActions = append([]*PostAction(nil), m.postActions...)
	c.aspects = cloneOrdered(m.aspects)
	c.options = maps.Clone(m.options)
	fs := NewFunctionStorage(m.name)
	for _, f := range m.functions.List() {
		_ = fs.Add(f, true)
	}
	c.functions = fs
	return c
}
