package entity

import (
	"context"
	"errors"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// BuildCrossReference associates d with the entity to through a junction
// entity. through names the junction; when empty the naming strategy
// derives it. A missing junction is declared and built with one required
// reference to each side and a primary key over both. d gets the indirect
// relation to to, the reversed relation of the junction to d and the list
// property of the related rows. Building the same cross-reference again
// reuses everything.
func (b *Builder) BuildCrossReference(ctx context.Context, d *Descriptor, to, through string, required *bool) error {
	to = naming.Normalize(to)
	if through == "" {
		through = d.naming.CrossReferenceEntityName(d.name, to)
	}
	through = naming.Normalize(through)

	junction, err := b.junction(ctx, d, to, through)
	if err != nil {
		return entmeta.WrapDescriptorError(d.name, "cross-reference "+to, err)
	}
	back := junction.FindRelation(d.name)
	if back == nil {
		return entmeta.NewDescriptorError(d.name, "junction %q does not relate to %q", through, d.name)
	}
	if !d.relations.has(through) {
		r, err := back.Reverse()
		if err != nil {
			return err
		}
		if err := d.DescribeRelation(r); err != nil {
			return err
		}
	}
	if !d.relations.has(to) {
		ir, err := relation.NewIndirect(d.name, through, to)
		if err != nil {
			return err
		}
		ir.SetRequired(required)
		if required == nil {
			ir.SetRequired(relation.Bool(false))
		}
		ir.SetConsistent(d.storage == junction.Storage())
		if err := d.DescribeRelation(ir); err != nil {
			return err
		}
	}
	name := junctionProperty(d.naming, to)
	if !d.properties.has(name) {
		return d.DescribeProperty(property.CrossReference(name, to, through))
	}
	return nil
}

// junction returns the junction entity between d and to, declaring and
// building it on first use.
func (b *Builder) junction(ctx context.Context, d *Descriptor, to, through string) (Model, error) {
	if b.reg.has(through) {
		return b.reg.resolve(ctx, through)
	}
	target, err := b.reg.resolve(ctx, to)
	if err != nil {
		return nil, err
	}
	if d.primary == nil || target.PrimaryKey() == nil {
		return nil, errors.New("both sides of a cross-reference need a primary key")
	}
	var cols []string
	for _, side := range []struct {
		name string
		pk   *key.Key
	}{{target.Name(), target.PrimaryKey()}, {d.name, d.primary}} {
		for _, c := range side.pk.Columns() {
			cols = append(cols, d.naming.PropertyName(naming.LowerFirst(side.name), c))
		}
	}
	decl := Declare(through).
		SetStorage(d.storage).
		AddReference(Reference{To: target.Name(), Required: relation.Bool(true)}).
		AddReference(Reference{To: d.name, Required: relation.Bool(true)}).
		AddKeys(key.Primary(cols...).Named(d.naming.KeyName(cols...)))
	if err := b.reg.register(decl); err != nil {
		return nil, err
	}
	m, err := b.reg.resolve(ctx, through)
	if err != nil {
		return nil, err
	}
	b.reg.logger.InfoContext(ctx, "cross-reference entity created", "entity", through, "from", d.name, "to", to)
	return m, nil
}
