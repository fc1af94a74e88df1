package property

import (
	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/relation"
)

type (
	// HandlerFunc handles a property reference in one usage context of a
	// virtual property. It reports false when it did not handle the context.
	HandlerFunc func(ec *exec.Context, p *Property) (bool, error)

	// AfterFunc is a hook run while a reference is handled.
	AfterFunc func(ec *exec.Context, p *Property) error

	// DefinitionFunc runs once per property while its owner is built. It
	// may describe further properties and relations on the owner.
	DefinitionFunc func(owner Owner, p *Property) error

	// Owner is the entity under construction, as seen by a property.
	Owner interface {
		Name() string
		DescribeProperty(*Property) error
		DescribeRelation(relation.Relation) error
	}
)

// HandleEntityDefinition runs the definition hook of the property, if any.
func (p *Property) HandleEntityDefinition(owner Owner) error {
	if p.definition == nil {
		return nil
	}
	return p.definition(owner, p)
}

// Handle applies the property to one reference in a compiled query. It
// fails with a wrong-use error when the usage context is not allowed or
// when no virtual handler takes it. Handle panics on an unknown usage.
func (p *Property) Handle(ec *exec.Context) error {
	if p.kind == KindDerived && p.original != nil {
		// The subquery already projects the column under the derived name.
		return p.original.handle(ec, false)
	}
	return p.handle(ec, true)
}

func (p *Property) handle(ec *exec.Context, bind bool) error {
	if !p.Able(ec.Usage) {
		return p.wrongUse(ec)
	}
	if bind && !p.virtual {
		p.bindField(ec)
	}
	if err := p.handleBefore(ec); err != nil {
		return err
	}
	if p.dispatches() {
		ok, err := p.dispatch(ec)
		if err != nil {
			return err
		}
		if !ok {
			return p.wrongUse(ec)
		}
	}
	if p.after != nil {
		return p.after(ec, p)
	}
	return nil
}

func (p *Property) wrongUse(ec *exec.Context) error {
	return entmeta.NewPropertyWrongUseError(ec.Entity, p.name, ec.Usage.String())
}

// bindField points the column at the storage field. A projected column
// keeps the property name in result rows.
func (p *Property) bindField(ec *exec.Context) {
	if ec.Column == nil || p.field == "" || p.field == ec.Column.Name {
		return
	}
	if ec.Column.Substitution() == nil {
		ec.Column.Substitute(sql.EC(ec.Column.Entity, p.field))
	}
	if ec.Usage == exec.Tuple {
		aliasResult(ec)
	}
}

func (p *Property) handleBefore(ec *exec.Context) error {
	if p.serializer != nil {
		if err := p.handleSerializable(ec); err != nil {
			return err
		}
	}
	if p.before != nil {
		return p.before(ec, p)
	}
	return nil
}

// handleSerializable registers a deserializer for projected columns and
// serializes the right-hand constant of filters and assignments.
func (p *Property) handleSerializable(ec *exec.Context) error {
	switch ec.Usage {
	case exec.Tuple:
		if ec.Plan != nil && ec.Column != nil {
			ec.Plan.AddDeserializer(ec.ResultName(), p.Deserialize)
		}
	case exec.Filter, exec.Assign:
		if ec.Constant == nil || ec.Constant.Substitution() != nil {
			return nil
		}
		v, err := p.Serialize(ec.Constant.Value)
		if err != nil {
			return err
		}
		ec.Constant.Substitute(sql.V(v))
	}
	return nil
}

// Serialize converts v into its storage form. Properties without a
// serializer return v unchanged.
func (p *Property) Serialize(v any) (any, error) {
	if p.serializer == nil {
		return v, nil
	}
	s, err := p.serializer.Serialize(v, p.nullable)
	if err != nil {
		return nil, entmeta.NewSerializationError(p.name, err)
	}
	return s, nil
}

// Deserialize converts a stored value back into its Go form.
func (p *Property) Deserialize(v any) (any, error) {
	if p.serializer == nil {
		return v, nil
	}
	d, err := p.serializer.Deserialize(v, p.nullable)
	if err != nil {
		return nil, entmeta.NewSerializationError(p.name, err)
	}
	return d, nil
}

// dispatches reports whether Handle goes through the virtual handlers.
// Expression columns of a derived entity are virtual but handled like
// stored ones.
func (p *Property) dispatches() bool {
	return p.virtual && p.kind != KindDerivedExpression
}

func (p *Property) dispatch(ec *exec.Context) (bool, error) {
	if h := p.handlers[ec.Usage]; h != nil {
		return h(ec, p)
	}
	if p.single != nil {
		return p.single(ec, p)
	}
	return false, nil
}
