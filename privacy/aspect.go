package privacy

import (
	"context"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/property"
)

// Aspect guards every property of an entity with a rule. The rule is
// evaluated each time a property reference is handled, after the usage
// checks of the property itself, so a denied reference fails the query
// being compiled.
//
//	entity.Declare("Employee").
//	    AddAspects(privacy.Aspect{Rule: privacy.Policy{privacy.AccessGroupRule()}})
type Aspect struct {
	Rule Rule
}

// AspectName implements entity.Aspect.
func (Aspect) AspectName() string { return "privacy" }

// ApplyAspect implements entity.Applier. Properties described by later
// stages, such as references and inherited properties, are guarded too.
func (a Aspect) ApplyAspect(d *entity.Descriptor) error {
	rule := a.Rule
	if rule == nil {
		rule = Policy{AccessGroupRule()}
	}
	d.Plan().After(entity.StageAfterRelations, func(context.Context) error {
		for _, p := range d.Properties() {
			Guard(p, d.Name(), rule)
		}
		return nil
	})
	return nil
}

// Guard installs rule as the after-handler of p, keeping the handler p
// already had. Allow and Skip decisions let the reference through; any
// other decision fails it. It returns p.
func Guard(p *property.Property, entity string, rule Rule) *property.Property {
	next := p.HandlerAfter()
	return p.SetHandlerAfter(func(ec *exec.Context, p *property.Property) error {
		ref := Reference{
			Entity:       entity,
			Property:     p.Name(),
			AccessGroups: p.AccessGroups(),
			Usage:        ec.Usage,
		}
		if ec.Entity != "" {
			ref.Entity = ec.Entity
		}
		if err := (Policy{rule}).EvalReference(ec.Context(), ref); err != nil {
			return err
		}
		if next != nil {
			return next(ec, p)
		}
		return nil
	})
}

// Factory returns the builder of the privacy aspect for definitions that
// list it by name. Such entities are guarded by AccessGroupRule.
func Factory() entity.AspectFactory {
	return entity.AspectFactory{
		Aspect{}.AspectName(): func(d *entity.Descriptor, _ entity.Aspect) error {
			return Aspect{}.ApplyAspect(d)
		},
	}
}

var _ entity.Applier = Aspect{}
