package entity

import (
	"context"
	"log/slog"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// State is the lifecycle state of an entity.
type State int

// Entity states.
const (
	Unbuilt State = iota
	Building
	Built
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Building:
		return "building"
	case Built:
		return "built"
	}
	return "unknown"
}

// Descriptor is an entity under construction. Its Describe methods are
// only allowed while it is building; once built it yields an immutable
// Entity and rejects every change.
type Descriptor struct {
	model

	state   State
	def     Definition
	plan    *Plan
	naming  naming.Strategy
	logger  *slog.Logger
	builder *Builder
	built   *Entity
	err     error
}

// NewDescriptor returns an unbuilt descriptor of the entity declared by
// def.
func NewDescriptor(def Definition, strategy naming.Strategy, logger *slog.Logger) *Descriptor {
	if strategy == nil {
		strategy = naming.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Descriptor{
		model:  newModel(naming.Normalize(def.Name())),
		def:    def,
		naming: strategy,
		logger: logger,
	}
	d.plan = NewPlan()
	d.plan.logger = logger
	d.plan.entity = d.name
	return d
}

// State returns the lifecycle state.
func (d *Descriptor) State() State { return d.state }

// WasBuilt reports whether the build completed.
func (d *Descriptor) WasBuilt() bool { return d.state == Built }

// Err returns the error the build failed with, if any.
func (d *Descriptor) Err() error { return d.err }

// Definition returns the definition the descriptor is built from.
func (d *Descriptor) Definition() Definition { return d.def }

// Plan returns the build plan. Handlers and callbacks added after the
// build are rejected by the plan.
func (d *Descriptor) Plan() *Plan { return d.plan }

// Naming returns the naming strategy in use.
func (d *Descriptor) Naming() naming.Strategy { return d.naming }

// Builder returns the builder driving the build, or nil for descriptors
// built outside a registry.
func (d *Descriptor) Builder() *Builder { return d.builder }

// Logger returns the build logger.
func (d *Descriptor) Logger() *slog.Logger { return d.logger }

// Entity returns the built entity, or nil before the build completed.
func (d *Descriptor) Entity() *Entity { return d.built }

// Build runs the build plan. Calling Build on a built or building
// descriptor does nothing; a failed build reports its error again.
func (d *Descriptor) Build(ctx context.Context) error {
	switch {
	case d.err != nil:
		return d.err
	case d.state != Unbuilt:
		return nil
	}
	d.state = Building
	if err := d.plan.Execute(ctx); err != nil {
		d.err = entmeta.WrapDescriptorError(d.name, "build failed", err)
		d.logger.WarnContext(ctx, "entity build failed", "entity", d.name, "error", err)
		return d.err
	}
	d.freeze()
	return nil
}

// freeze turns the descriptor into its immutable entity.
func (d *Descriptor) freeze() {
	for _, p := range d.properties.list() {
		p.Freeze()
	}
	d.built = &Entity{model: d.model.clone()}
	d.state = Built
}

// mutable fails unless the descriptor is building.
func (d *Descriptor) mutable(what string) error {
	if d.state != Building {
		return entmeta.NewDescriptorError(d.name, "cannot describe %s: entity is %s", what, d.state)
	}
	return nil
}

// SetTable sets the storage table.
func (d *Descriptor) SetTable(table string) error {
	if err := d.mutable("table"); err != nil {
		return err
	}
	d.table = table
	return nil
}

// SetStorage sets the storage the entity lives in.
func (d *Descriptor) SetStorage(storage string) error {
	if err := d.mutable("storage"); err != nil {
		return err
	}
	d.storage = storage
	return nil
}

// SetTypicalName sets the role alias of the entity.
func (d *Descriptor) SetTypicalName(name string) error {
	if err := d.mutable("typical name"); err != nil {
		return err
	}
	d.typicalName = name
	return nil
}

// SetInherits sets the parent entity.
func (d *Descriptor) SetInherits(parent string) error {
	if err := d.mutable("inheritance"); err != nil {
		return err
	}
	d.inherits = naming.Normalize(parent)
	return nil
}

// SetPrimaryKeyOptional lets the entity build without a primary key.
func (d *Descriptor) SetPrimaryKeyOptional(v bool) error {
	if err := d.mutable("primary key"); err != nil {
		return err
	}
	d.optionalPK = v
	return nil
}

// SetOption sets an entity option.
func (d *Descriptor) SetOption(name string, v any) error {
	if err := d.mutable("option " + name); err != nil {
		return err
	}
	d.options[name] = v
	return nil
}

// DescribeAspect records an applied aspect.
func (d *Descriptor) DescribeAspect(a Aspect) error {
	if err := d.mutable("aspect"); err != nil {
		return err
	}
	if d.aspects.has(a.AspectName()) {
		return entmeta.NewDescriptorError(d.name, "aspect %q is already applied", a.AspectName())
	}
	d.aspects.set(a.AspectName(), a)
	return nil
}

// DescribeProperty adds a property. It implements property.Owner.
func (d *Descriptor) DescribeProperty(p *property.Property) error {
	return d.describeProperty(p, false)
}

// RedefineProperty adds or replaces a property.
func (d *Descriptor) RedefineProperty(p *property.Property) error {
	return d.describeProperty(p, true)
}

func (d *Descriptor) describeProperty(p *property.Property, redefine bool) error {
	if err := d.mutable("property " + p.Name()); err != nil {
		return err
	}
	prev, exists := d.properties.get(p.Name())
	if exists && !redefine {
		return entmeta.NewDescriptorError(d.name, "property %q is already defined", p.Name())
	}
	if exists && prev.TypicalName() != "" {
		delete(d.typical, naming.Fold(prev.TypicalName()))
	}
	if t := p.TypicalName(); t != "" {
		if other, ok := d.typical[naming.Fold(t)]; ok && other.Name() != p.Name() {
			return entmeta.NewDescriptorError(d.name, "typical name %q of property %q is already used by %q", t, p.Name(), other.Name())
		}
		d.typical[naming.Fold(t)] = p
	}
	d.properties.set(p.Name(), p)
	return nil
}

// RemoveProperty removes a property, as aspects replacing declared
// properties do.
func (d *Descriptor) RemoveProperty(name string) error {
	if err := d.mutable("property " + name); err != nil {
		return err
	}
	p, ok := d.properties.get(name)
	if !ok {
		return entmeta.NewPropertyNotFoundError(d.name, name)
	}
	if t := p.TypicalName(); t != "" {
		delete(d.typical, naming.Fold(t))
	}
	d.properties.delete(name)
	return nil
}

// DescribeKey adds a key. A primary key becomes the entity primary key.
func (d *Descriptor) DescribeKey(k *key.Key) error { return d.describeKey(k, false) }

// RedefineKey adds or replaces a key.
func (d *Descriptor) RedefineKey(k *key.Key) error { return d.describeKey(k, true) }

func (d *Descriptor) describeKey(k *key.Key, redefine bool) error {
	if err := d.mutable("key " + k.Name()); err != nil {
		return err
	}
	if len(k.Columns()) == 0 {
		return entmeta.NewDescriptorError(d.name, "key %q has no column", k.Name())
	}
	if !redefine && d.keys.has(k.Name()) {
		return entmeta.NewDescriptorError(d.name, "key %q is already defined", k.Name())
	}
	if k.IsPrimary() {
		if d.primary != nil && !redefine {
			return entmeta.NewDescriptorError(d.name, "primary key is already defined as %q", d.primary.Name())
		}
		if d.primary != nil {
			d.keys.delete(d.primary.Name())
		}
		d.primary = k
	}
	d.keys.set(k.Name(), k)
	return nil
}

// DescribeFunction adds a function.
func (d *Descriptor) DescribeFunction(f *Function) error {
	if err := d.mutable("function " + f.Name()); err != nil {
		return err
	}
	return d.functions.Add(f, false)
}

// RedefineFunction adds or replaces a function.
func (d *Descriptor) RedefineFunction(f *Function) error {
	if err := d.mutable("function " + f.Name()); err != nil {
		return err
	}
	return d.functions.Add(f, true)
}

// DescribeRelation adds a relation held by the entity. It implements
// property.Owner.
func (d *Descriptor) DescribeRelation(r relation.Relation) error {
	return d.describeRelation(r, false)
}

// RedefineRelation adds or replaces a relation.
func (d *Descriptor) RedefineRelation(r relation.Relation) error {
	return d.describeRelation(r, true)
}

func (d *Descriptor) describeRelation(r relation.Relation, redefine bool) error {
	if err := d.mutable("relation " + r.Name()); err != nil {
		return err
	}
	if r.Left() != d.name {
		return entmeta.NewDescriptorError(d.name, "relation to %q starts at %q", r.Right(), r.Left())
	}
	if !redefine && d.relations.has(r.Name()) {
		return entmeta.NewDescriptorError(d.name, "relation to %q is already defined", r.Name())
	}
	d.relations.set(r.Name(), r)
	return nil
}

// DescribeModifier adds a modifier.
func (d *Descriptor) DescribeModifier(m *Modifier) error { return d.describeModifier(m, false) }

// RedefineModifier adds or replaces a modifier.
func (d *Descriptor) RedefineModifier(m *Modifier) error { return d.describeModifier(m, true) }

func (d *Descriptor) describeModifier(m *Modifier, redefine bool) error {
	if err := d.mutable("modifier " + m.Name()); err != nil {
		return err
	}
	if !redefine && d.modifiers.has(m.Name()) {
		return entmeta.NewDescriptorError(d.name, "modifier %q is already defined", m.Name())
	}
	d.modifiers.set(m.Name(), m)
	return nil
}

// DescribeConstraint adds a constraint.
func (d *Descriptor) DescribeConstraint(c *Constraint) error { return d.describeConstraint(c, false) }

// RedefineConstraint adds or replaces a constraint.
func (d *Descriptor) RedefineConstraint(c *Constraint) error { return d.describeConstraint(c, true) }

func (d *Descriptor) describeConstraint(c *Constraint, redefine bool) error {
	if err := d.mutable("constraint " + c.Name); err != nil {
		return err
	}
	if !redefine && d.constraints.has(c.Name) {
		return entmeta.NewDescriptorError(d.name, "constraint %q is already defined", c.Name)
	}
	d.constraints.set(c.Name, c)
	return nil
}

// DescribeAction sets the executor of an action. A nil executor leaves
// the action unhandled.
func (d *Descriptor) DescribeAction(a Action, ex Executor) error {
	return d.describeAction(a, ex, false)
}

// RedefineAction replaces the executor of an action.
func (d *Descriptor) RedefineAction(a Action, ex Executor) error {
	return d.describeAction(a, ex, true)
}

func (d *Descriptor) describeAction(a Action, ex Executor, redefine bool) error {
	if err := d.mutable("action " + string(a)); err != nil {
		return err
	}
	if prev, ok := d.actions[a]; ok && prev != nil && !redefine {
		return entmeta.NewDescriptorError(d.name, "action %q is already handled", a)
	}
	d.actions[a] = ex
	return nil
}

// DescribePostAction adds a post-action.
func (d *Descriptor) DescribePostAction(p *PostAction) error {
	if err := d.mutable("post-action"); err != nil {
		return err
	}
	d.postActions = append(d.postActions, p)
	return nil
}
