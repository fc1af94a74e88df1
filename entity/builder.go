package entity

import (
	"context"
	"slices"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// Builder drives the build plans of a registry. It keeps no state of its
// own; entities it needs are resolved through the registry.
type Builder struct {
	reg *Registry
}

// install sets the default stage handlers of d, then lets the definition
// adjust the plan.
func (b *Builder) install(d *Descriptor) {
	d.builder = b
	p := d.plan
	p.Handle(StageStart, func(ctx context.Context) error { return b.start(ctx, d) })
	p.Handle(StageAspects, func(context.Context) error {
		p.Before(StageProperties, func(ctx context.Context) error { return b.BuildAspects(ctx, d) })
		return nil
	})
	p.Handle(StageProperties, func(ctx context.Context) error { return b.properties(ctx, d) })
	p.Handle(StageInherit, func(ctx context.Context) error { return b.inherit(ctx, d) })
	p.Handle(StageAfterProperties, func(ctx context.Context) error { return b.afterProperties(ctx, d) })
	p.Handle(StageKeys, func(context.Context) error {
		for _, k := range d.def.Keys() {
			if k.IsPrimary() {
				continue
			}
			if err := d.DescribeKey(k); err != nil {
				return err
			}
		}
		return nil
	})
	p.Handle(StageFunctions, func(context.Context) error {
		for _, f := range d.def.Functions() {
			if err := d.DescribeFunction(f); err != nil {
				return err
			}
		}
		return nil
	})
	p.Handle(StageModifiers, func(context.Context) error {
		for _, m := range d.def.Modifiers() {
			if err := d.DescribeModifier(m); err != nil {
				return err
			}
		}
		return nil
	})
	p.Handle(StageRelations, func(ctx context.Context) error { return b.relations(ctx, d) })
	p.Handle(StageAfterRelations, func(ctx context.Context) error { return b.afterRelations(ctx, d) })
	p.Handle(StageConstraints, func(context.Context) error { return b.constraints(d) })
	p.Handle(StageActions, func(context.Context) error { return b.actions(d) })
	p.Handle(StageEnd, func(context.Context) error { return b.end(d) })
	if pl, ok := d.def.(Planner); ok {
		pl.Plan(p, d)
	}
}

func (b *Builder) start(_ context.Context, d *Descriptor) error {
	if d.name == "" {
		return entmeta.NewDescriptorError(d.def.Name(), "entity has no name")
	}
	if d.table == "" {
		d.table = d.naming.TableName(d.name)
	}
	if d.storage == "" {
		d.storage = b.reg.storage
	}
	if inh, ok := d.def.(Inheritor); ok && inh.Inherits() != "" {
		if err := d.SetInherits(inh.Inherits()); err != nil {
			return err
		}
	}
	if c, ok := d.def.(Configurer); ok {
		return c.Configure(d)
	}
	return nil
}

// BuildAspects applies the aspects listed by the definition of d. An
// aspect that does not apply itself needs a builder in the aspect factory.
func (b *Builder) BuildAspects(_ context.Context, d *Descriptor) error {
	for _, a := range d.def.Aspects() {
		if err := d.DescribeAspect(a); err != nil {
			return err
		}
		if ap, ok := a.(Applier); ok {
			if err := ap.ApplyAspect(d); err != nil {
				return entmeta.WrapDescriptorError(d.name, "aspect "+a.AspectName(), err)
			}
			continue
		}
		build, ok := b.reg.aspects.Lookup(a.AspectName())
		if !ok {
			return entmeta.NewDescriptorError(d.name, "unknown aspect %q", a.AspectName())
		}
		if err := build(d, a); err != nil {
			return entmeta.WrapDescriptorError(d.name, "aspect "+a.AspectName(), err)
		}
	}
	return nil
}

func (b *Builder) properties(ctx context.Context, d *Descriptor) error {
	for _, p := range d.def.Properties() {
		if err := d.DescribeProperty(p); err != nil {
			return err
		}
	}
	// The primary key is known before references are resolved, so that
	// entities referencing d back can be built meanwhile.
	for _, k := range d.def.Keys() {
		if k.IsPrimary() {
			if err := d.DescribeKey(k); err != nil {
				return err
			}
		}
	}
	if err := settlePrimaryKey(d); err != nil {
		return err
	}
	for _, r := range d.def.References() {
		if err := b.BuildReference(ctx, d, r.To, r.Type, r.Required, r.Property); err != nil {
			return err
		}
	}
	return nil
}

// settlePrimaryKey derives the primary key from primary key properties
// when none was declared.
func settlePrimaryKey(d *Descriptor) error {
	if d.primary != nil {
		return nil
	}
	var cols []string
	for _, p := range d.properties.list() {
		if p.IsPrimaryKey() {
			cols = append(cols, p.Name())
		}
	}
	if len(cols) == 0 {
		return nil
	}
	return d.DescribeKey(key.Primary(cols...).Named(d.naming.KeyName(cols...)))
}

func (b *Builder) inherit(ctx context.Context, d *Descriptor) error {
	if d.inherits == "" {
		return nil
	}
	readOnly := false
	if ro, ok := d.def.(ReadOnlyInheritor); ok {
		readOnly = ro.ReadOnlyInheritance()
	}
	return b.BuildInheritance(ctx, d, d.inherits, readOnly)
}

// afterProperties lets every property take part in the definition, then
// settles the primary key.
func (b *Builder) afterProperties(_ context.Context, d *Descriptor) error {
	// Properties may describe further properties.
	for i := 0; i < d.properties.len(); i++ {
		p := d.properties.values[d.properties.keys[i]]
		if err := p.HandleEntityDefinition(d); err != nil {
			return entmeta.WrapDescriptorError(d.name, "property "+p.Name(), err)
		}
	}
	if d.properties.len() == 0 {
		return entmeta.NewDescriptorError(d.name, "entity has no properties")
	}
	if err := settlePrimaryKey(d); err != nil {
		return err
	}
	if d.primary == nil {
		if d.optionalPK {
			return nil
		}
		return entmeta.NewDescriptorError(d.name, "entity has no primary key")
	}
	for _, c := range d.primary.Columns() {
		if !d.properties.has(c) {
			return entmeta.NewDescriptorError(d.name, "primary key column %q is not a property", c)
		}
	}
	return nil
}

func (b *Builder) relations(ctx context.Context, d *Descriptor) error {
	for _, r := range d.def.Relations() {
		if err := d.DescribeRelation(r); err != nil {
			return err
		}
	}
	for _, x := range d.def.CrossReferences() {
		if err := b.BuildCrossReference(ctx, d, x.To, x.Through, x.Required); err != nil {
			return err
		}
	}
	return nil
}

// afterRelations synthesizes the relation of every reference property
// that has none yet.
func (b *Builder) afterRelations(ctx context.Context, d *Descriptor) error {
	for _, p := range d.properties.list() {
		if !p.IsReference() || p.IsVirtual() {
			continue
		}
		to := naming.Normalize(p.ReferenceTo())
		if d.relations.has(to) {
			continue
		}
		target, err := b.reg.resolve(ctx, to)
		if err != nil {
			return entmeta.WrapDescriptorError(d.name, "reference "+p.Name(), err)
		}
		pk := target.PrimaryKey()
		if pk == nil || pk.Len() != 1 {
			return entmeta.NewDescriptorError(d.name, "property %q cannot reference %q: primary key is not a single column", p.Name(), to)
		}
		r := relation.NewDirect(d.name, key.New(p.Name()), target.Name(), pk.Clone(), p.RelationType())
		r.SetRequired(relation.Bool(relation.ResolveRequired(r, p.IsNullable())))
		r.SetConsistent(d.storage == target.Storage())
		if err := d.DescribeRelation(r); err != nil {
			return err
		}
	}
	return nil
}

// BuildReference adds to d the key properties and the direct relation of
// a reference to another entity. The key properties clone the primary key
// of the target; a property of the same name declared by d is used as is.
// required nil makes the relation required when the key is not nullable.
func (b *Builder) BuildReference(ctx context.Context, d *Descriptor, to string, typ relation.Type, required *bool, propName string) error {
	if typ == "" {
		typ = relation.Reference
	}
	target, err := b.reg.resolve(ctx, to)
	if err != nil {
		return entmeta.WrapDescriptorError(d.name, "reference "+to, err)
	}
	pk := target.PrimaryKey()
	if pk == nil {
		return entmeta.NewDescriptorError(d.name, "cannot reference %q: it has no primary key", target.Name())
	}
	var (
		cols     []string
		nullable bool
	)
	for _, c := range pk.Columns() {
		name := d.naming.PropertyName(naming.LowerFirst(target.Name()), c)
		if propName != "" && pk.Len() == 1 {
			name = propName
		}
		p := d.FindProperty(name)
		if p == nil {
			tp, err := target.Property(c)
			if err != nil {
				return err
			}
			p = tp.CloneAsReference(target.Name(), typ).SetName(name)
			if required != nil && !*required {
				p.AsNullable()
			} else {
				p.AsNotNull()
			}
			if err := d.DescribeProperty(p); err != nil {
				return err
			}
		}
		nullable = nullable || p.IsNullable()
		cols = append(cols, name)
	}
	r := relation.NewDirect(d.name, key.New(cols...), target.Name(), pk.Clone(), typ)
	r.SetRequired(required)
	r.SetRequired(relation.Bool(relation.ResolveRequired(r, nullable)))
	r.SetConsistent(d.storage == target.Storage())
	return d.DescribeRelation(r)
}

// constraints derives the foreign keys of reference relations.
func (b *Builder) constraints(d *Descriptor) error {
	for _, c := range d.def.Constraints() {
		if err := d.DescribeConstraint(c); err != nil {
			return err
		}
	}
	for _, r := range d.relations.list() {
		dr, ok := r.(*relation.Direct)
		if !ok || !slices.Contains([]relation.Type{relation.Reference, relation.BelongsTo}, dr.Type()) || !dr.IsConsistent() {
			continue
		}
		name := d.naming.ConstraintName(d.name, dr.Right(), dr.LeftKey().Name())
		if d.constraints.has(name) {
			continue
		}
		c := &Constraint{Name: name, Kind: ConstraintForeignKey, Key: dr.LeftKey(), Relation: dr}
		if err := d.DescribeConstraint(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) actions(d *Descriptor) error {
	for a, ex := range d.def.Actions() {
		if err := d.DescribeAction(a, ex); err != nil {
			return err
		}
	}
	for _, a := range Actions {
		if _, ok := d.actions[a]; !ok {
			d.actions[a] = nil
		}
	}
	for _, pa := range d.def.PostActions() {
		if err := d.DescribePostAction(pa); err != nil {
			return err
		}
	}
	return nil
}

// end maps property names to storage columns.
func (b *Builder) end(d *Descriptor) error {
	for _, p := range d.properties.list() {
		if p.IsVirtual() || p.HasFieldName() {
			continue
		}
		if col := d.naming.ColumnName(p.Name()); col != p.Name() {
			p.SetFieldName(col)
		}
	}
	return nil
}

// junctionProperty names the list property of a cross-reference.
func junctionProperty(s naming.Strategy, to string) string {
	return s.PropertyName(naming.LowerFirst(to), "list")
}

var _ property.Owner = (*Descriptor)(nil)
