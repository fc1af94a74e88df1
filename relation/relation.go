package relation

import (
	"slices"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/key"
)

// Condition builds an extra join predicate for a pair of subject aliases.
type Condition func(left, right string) sql.Node

// reverse returns the condition seen from the other side.
func (c Condition) reverse() Condition {
	return func(left, right string) sql.Node { return c(right, left) }
}

// Relation is a typed connection from the left entity to the right one.
// It is identified within its owner by the right entity name.
type Relation interface {
	// Name returns the name of the right entity.
	Name() string
	Left() string
	Right() string
	Type() Type
	Direction() Direction
	Rel() Rel
	// IsRequired and IsLeastOnce are tri-states, nil means "not specified".
	IsRequired() *bool
	IsLeastOnce() *bool
	IsConsistent() bool
	Conditions() []Condition
	// Reverse returns the relation seen from the right entity.
	Reverse() (Relation, error)
	// CloneWithSubjects returns a copy with the left and right entity names
	// replaced. Empty names keep the current values.
	CloneWithSubjects(left, right string) Relation
}

// Base holds the attributes shared by all relations.
type Base struct {
	left       string
	right      string
	typ        Type
	required   *bool
	leastOnce  *bool
	consistent bool
	conditions []Condition
}

func newBase(left, right string, typ Type) Base {
	return Base{left: left, right: right, typ: typ, consistent: true}
}

// Name implements Relation.
func (b *Base) Name() string { return b.right }

// Left implements Relation.
func (b *Base) Left() string { return b.left }

// Right implements Relation.
func (b *Base) Right() string { return b.right }

// Type implements Relation.
func (b *Base) Type() Type { return b.typ }

// Direction implements Relation.
func (b *Base) Direction() Direction { return b.typ.Direction() }

// Rel implements Relation.
func (b *Base) Rel() Rel { return b.typ.Rel() }

// IsRequired implements Relation.
func (b *Base) IsRequired() *bool { return b.required }

// IsLeastOnce implements Relation.
func (b *Base) IsLeastOnce() *bool { return b.leastOnce }

// IsConsistent implements Relation.
func (b *Base) IsConsistent() bool { return b.consistent }

// Conditions implements Relation.
func (b *Base) Conditions() []Condition { return b.conditions }

// SetRequired sets the required flag. A nil value defers to the
// nullability of the referencing property.
func (b *Base) SetRequired(v *bool) { b.required = v }

// SetLeastOnce sets the least-once flag.
func (b *Base) SetLeastOnce(v *bool) { b.leastOnce = v }

// SetConsistent marks whether both entities live in the same storage.
func (b *Base) SetConsistent(v bool) { b.consistent = v }

// AddCondition appends an extra join predicate.
func (b *Base) AddCondition(c Condition) { b.conditions = append(b.conditions, c) }

func (b *Base) copyFlags(from *Base) {
	b.required = from.required
	b.leastOnce = from.leastOnce
	b.consistent = from.consistent
}

// CopyFlags copies the required, least-once and consistency flags of r.
func (b *Base) CopyFlags(r Relation) {
	b.required = r.IsRequired()
	b.leastOnce = r.IsLeastOnce()
	b.consistent = r.IsConsistent()
}

func (b *Base) reversedConditions() []Condition {
	if len(b.conditions) == 0 {
		return nil
	}
	cs := make([]Condition, len(b.conditions))
	for i, c := range b.conditions {
		cs[i] = c.reverse()
	}
	return cs
}

// Bool returns a pointer to v, for the tri-state setters.
func Bool(v bool) *bool { return &v }

// ResolveRequired turns the required tri-state of r into a concrete value.
// An explicit value on the relation wins; otherwise a relation is required
// when the referencing property is not nullable.
func ResolveRequired(r Relation, nullable bool) bool {
	if v := r.IsRequired(); v != nil {
		return *v
	}
	return !nullable
}

// Direct is a key-to-key relation:
//
//	SELECT * FROM left JOIN right ON right.rightKey = left.leftKey
type Direct struct {
	Base
	leftKey  *key.Key
	rightKey *key.Key
}

// NewDirect returns a direct relation from left to right.
func NewDirect(left string, leftKey *key.Key, right string, rightKey *key.Key, typ Type) *Direct {
	return &Direct{
		Base:     newBase(left, right, typ),
		leftKey:  leftKey,
		rightKey: rightKey,
	}
}

// LeftKey returns the key of the left entity.
func (d *Direct) LeftKey() *key.Key { return d.leftKey }

// RightKey returns the key of the right entity.
func (d *Direct) RightKey() *key.Key { return d.rightKey }

// Reverse implements Relation.
func (d *Direct) Reverse() (Relation, error) {
	r := NewDirect(d.right, d.rightKey.Clone(), d.left, d.leftKey.Clone(), d.typ.Reverse())
	r.copyFlags(&d.Base)
	r.conditions = d.reversedConditions()
	return r, nil
}

// CloneWithSubjects implements Relation.
func (d *Direct) CloneWithSubjects(left, right string) Relation {
	c := *d
	c.conditions = slices.Clone(d.conditions)
	if left != "" {
		c.left = left
	}
	if right != "" {
		c.right = right
	}
	return &c
}

// JoinCondition returns the ON predicate of the relation for the given
// subject aliases. Empty aliases default to the entity names.
func (d *Direct) JoinCondition(leftSubject, rightSubject string) (sql.Node, error) {
	if leftSubject == "" {
		leftSubject = d.left
	}
	if rightSubject == "" {
		rightSubject = d.right
	}
	lc, rc := d.leftKey.Columns(), d.rightKey.Columns()
	if len(lc) != len(rc) || len(lc) == 0 {
		err := entmeta.NewTransformationError("right and left keys differ in number of columns", d.left, d.right)
		err.RelationType = string(d.typ)
		return nil, err
	}
	var on sql.Node
	if len(lc) == 1 {
		on = sql.EQ(sql.EC(rightSubject, rc[0]), sql.EC(leftSubject, lc[0]))
	} else {
		rs, ls := make([]sql.Node, len(rc)), make([]sql.Node, len(lc))
		for i := range rc {
			rs[i] = sql.EC(rightSubject, rc[i])
			ls[i] = sql.EC(leftSubject, lc[i])
		}
		on = sql.ListEQ(rs, ls)
	}
	if len(d.conditions) == 0 {
		return on, nil
	}
	nodes := []sql.Node{on}
	for _, c := range d.conditions {
		nodes = append(nodes, c(leftSubject, rightSubject))
	}
	return sql.And(nodes...), nil
}

// Indirect is an association through one or more intermediate entities.
type Indirect struct {
	Base
	path []string
}

// NewIndirect returns an association along path, which must name at least
// three entities.
func NewIndirect(path ...string) (*Indirect, error) {
	if len(path) < 3 {
		return nil, entmeta.NewTransformationError("indirect relation path must contain at least 3 entities", path...)
	}
	return &Indirect{
		Base: newBase(path[0], path[len(path)-1], Association),
		path: slices.Clone(path),
	}, nil
}

// Path returns a copy of the entity path.
func (i *Indirect) Path() []string { return slices.Clone(i.path) }

// Reverse implements Relation.
func (i *Indirect) Reverse() (Relation, error) {
	path := slices.Clone(i.path)
	slices.Reverse(path)
	r, err := NewIndirect(path...)
	if err != nil {
		return nil, err
	}
	r.copyFlags(&i.Base)
	r.conditions = i.reversedConditions()
	return r, nil
}

// CloneWithSubjects implements Relation.
func (i *Indirect) CloneWithSubjects(left, right string) Relation {
	c := *i
	c.path = slices.Clone(i.path)
	c.conditions = slices.Clone(i.conditions)
	if left != "" {
		c.left = left
		c.path[0] = left
	}
	if right != "" {
		c.right = right
		c.path[len(c.path)-1] = right
	}
	return &c
}

var (
	_ Relation = (*Direct)(nil)
	_ Relation = (*Indirect)(nil)
)
