package entity

import (
	"context"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/relation"
)

// BuildInheritance makes d inherit the built entity parent. Properties of
// the parent are copied unless d declares them itself. Relations of the
// parent are inherited once the relations of d are described, followed
// by the inheritance reference to the parent.
func (b *Builder) BuildInheritance(ctx context.Context, d *Descriptor, parent string, readOnly bool) error {
	m, err := b.reg.resolve(ctx, parent)
	if err != nil {
		return entmeta.WrapDescriptorError(d.name, "inherit "+parent, err)
	}
	p, ok := m.(*Entity)
	if !ok {
		return entmeta.NewDescriptorError(d.name, "cannot inherit %q: it is still building", m.Name())
	}
	if err := b.inheritProperties(d, p, readOnly); err != nil {
		return err
	}
	d.plan.After(StageRelations, func(context.Context) error {
		if err := b.inheritRelations(d, p); err != nil {
			return err
		}
		return b.describeInheritance(d, p)
	})
	return nil
}

func (b *Builder) inheritProperties(d *Descriptor, parent *Entity, readOnly bool) error {
	for _, pp := range parent.Properties() {
		if d.properties.has(pp.Name()) {
			continue
		}
		c := pp.InheritFrom(parent.Name(), readOnly)
		if t := c.TypicalName(); t != "" {
			if _, claimed := d.typical[naming.Fold(t)]; claimed {
				c.SetTypicalName("")
			}
		}
		if err := d.DescribeProperty(c); err != nil {
			return err
		}
	}
	return nil
}

// inheritRelations copies the relations of parent onto d. A direct
// relation anchored on the parent primary key is taken over as is; any
// other relation is reached through the parent.
func (b *Builder) inheritRelations(d *Descriptor, parent *Entity) error {
	pk := parent.PrimaryKey()
	for _, r := range parent.Relations() {
		if r.Right() == d.name || d.relations.has(r.Name()) {
			continue
		}
		var inherited relation.Relation
		switch r := r.(type) {
		case *relation.Direct:
			if pk != nil && r.LeftKey().Equal(pk) {
				dr := relation.NewDirect(d.name, r.LeftKey().Clone(), r.Right(), r.RightKey().Clone(), r.Type())
				dr.CopyFlags(r)
				for _, c := range r.Conditions() {
					dr.AddCondition(c)
				}
				inherited = dr
				break
			}
			ir, err := relation.NewIndirect(d.name, parent.Name(), r.Right())
			if err != nil {
				return err
			}
			ir.CopyFlags(r)
			inherited = ir
		case *relation.Indirect:
			ir, err := relation.NewIndirect(append([]string{d.name}, r.Path()...)...)
			if err != nil {
				return err
			}
			ir.CopyFlags(r)
			inherited = ir
		default:
			err := entmeta.NewTransformationError("relation cannot be inherited", d.name, parent.Name(), r.Right())
			err.RelationType = string(r.Type())
			return err
		}
		if err := d.DescribeRelation(inherited); err != nil {
			return err
		}
	}
	return nil
}

// describeInheritance relates d to its parent over the inherited primary
// key.
func (b *Builder) describeInheritance(d *Descriptor, parent *Entity) error {
	if d.relations.has(parent.Name()) {
		return nil
	}
	pk := parent.PrimaryKey()
	if pk == nil {
		return entmeta.NewDescriptorError(d.name, "cannot inherit %q: it has no primary key", parent.Name())
	}
	r := relation.NewDirect(d.name, key.New(pk.Columns()...), parent.Name(), pk.Clone(), relation.Inheritance)
	r.SetRequired(relation.Bool(true))
	r.SetConsistent(d.storage == parent.Storage())
	return d.DescribeRelation(r)
}
