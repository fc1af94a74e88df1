package entity

import (
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// Definition declares an entity. The registry builds an Entity from it.
//
// Embed Schema to implement the optional parts:
//
//	type Author struct{ entity.Schema }
//
//	func (Author) Name() string { return "Author" }
//
//	func (Author) Properties() []*property.Property {
//		return []*property.Property{
//			property.Int("id").AsPrimaryKey().AsAutoIncrement(),
//			property.String("name").SetTypicalName("title"),
//		}
//	}
type Definition interface {
	Name() string
	Aspects() []Aspect
	Properties() []*property.Property
	References() []Reference
	CrossReferences() []CrossReference
	Keys() []*key.Key
	Functions() []*Function
	Modifiers() []*Modifier
	Relations() []relation.Relation
	Constraints() []*Constraint
	Actions() map[Action]Executor
	PostActions() []*PostAction
}

// Optional interfaces of a Definition.
type (
	// Inheritor names the parent of an entity.
	Inheritor interface {
		Inherits() string
	}

	// ReadOnlyInheritor makes inherited properties read-only.
	ReadOnlyInheritor interface {
		Inheritor
		ReadOnlyInheritance() bool
	}

	// Configurer adjusts the descriptor when its build starts.
	Configurer interface {
		Configure(d *Descriptor) error
	}

	// Planner adds stage handlers or callbacks to the build plan.
	Planner interface {
		Plan(p *Plan, d *Descriptor)
	}
)

// Reference declares a to-one reference to another entity. The builder
// adds the foreign key properties and the relation.
type Reference struct {
	To       string
	Type     relation.Type // defaults to relation.Reference
	Required *bool         // nil follows the nullability of the property
	Property string        // name of the key property, when single-column
}

// CrossReference declares a many-to-many association through a junction
// entity. Through names the junction; an empty name lets the naming
// strategy pick one.
type CrossReference struct {
	To       string
	Through  string
	Required *bool
}

// Schema is the default implementation of the optional parts of a
// Definition. Embed it and implement Name.
type Schema struct{}

// Aspects of the schema.
func (Schema) Aspects() []Aspect { return nil }

// Properties of the schema.
func (Schema) Properties() []*property.Property { return nil }

// References of the schema.
func (Schema) References() []Reference { return nil }

// CrossReferences of the schema.
func (Schema) CrossReferences() []CrossReference { return nil }

// Keys of the schema.
func (Schema) Keys() []*key.Key { return nil }

// Functions of the schema.
func (Schema) Functions() []*Function { return nil }

// Modifiers of the schema.
func (Schema) Modifiers() []*Modifier { return nil }

// Relations of the schema.
func (Schema) Relations() []relation.Relation { return nil }

// Constraints of the schema.
func (Schema) Constraints() []*Constraint { return nil }

// Actions of the schema.
func (Schema) Actions() map[Action]Executor { return nil }

// PostActions of the schema.
func (Schema) PostActions() []*PostAction { return nil }

// Declaration is a Definition assembled with setters, as returned by
// Registry.New.
type Declaration struct {
	name        string
	typicalName string
	table       string
	storage     string
	parent      string
	readOnly    bool
	optionalPK  bool
	options     map[string]any

	aspects         []Aspect
	properties      []*property.Property
	references      []Reference
	crossReferences []CrossReference
	keys            []*key.Key
	functions       []*Function
	modifiers       []*Modifier
	relations       []relation.Relation
	constraints     []*Constraint
	actions         map[Action]Executor
	postActions     []*PostAction
}

// Declare returns an empty declaration of the named entity.
func Declare(name string) *Declaration {
	return &Declaration{name: name}
}

// Name implements Definition.
func (d *Declaration) Name() string { return d.name }

// Aspects implements Definition.
func (d *Declaration) Aspects() []Aspect { return d.aspects }

// Properties implements Definition.
func (d *Declaration) Properties() []*property.Property { return d.properties }

// References implements Definition.
func (d *Declaration) References() []Reference { return d.references }

// CrossReferences implements Definition.
func (d *Declaration) CrossReferences() []CrossReference { return d.crossReferences }

// Keys implements Definition.
func (d *Declaration) Keys() []*key.Key { return d.keys }

// Functions implements Definition.
func (d *Declaration) Functions() []*Function { return d.functions }

// Modifiers implements Definition.
func (d *Declaration) Modifiers() []*Modifier { return d.modifiers }

// Relations implements Definition.
func (d *Declaration) Relations() []relation.Relation { return d.relations }

// Constraints implements Definition.
func (d *Declaration) Constraints() []*Constraint { return d.constraints }

// Actions implements Definition.
func (d *Declaration) Actions() map[Action]Executor { return d.actions }

// PostActions implements Definition.
func (d *Declaration) PostActions() []*PostAction { return d.postActions }

// Inherits implements Inheritor.
func (d *Declaration) Inherits() string { return d.parent }

// ReadOnlyInheritance implements ReadOnlyInheritor.
func (d *Declaration) ReadOnlyInheritance() bool { return d.readOnly }

// Configure implements Configurer.
func (d *Declaration) Configure(desc *Descriptor) error {
	if d.table != "" {
		if err := desc.SetTable(d.table); err != nil {
			return err
		}
	}
	if d.storage != "" {
		if err := desc.SetStorage(d.storage); err != nil {
			return err
		}
	}
	if d.typicalName != "" {
		if err := desc.SetTypicalName(d.typicalName); err != nil {
			return err
		}
	}
	if d.optionalPK {
		if err := desc.SetPrimaryKeyOptional(true); err != nil {
			return err
		}
	}
	for k, v := range d.options {
		if err := desc.SetOption(k, v); err != nil {
			return err
		}
	}
	return nil
}

// SetTable sets the storage table.
func (d *Declaration) SetTable(table string) *Declaration {
	d.table = table
	return d
}

// SetStorage sets the storage the entity lives in.
func (d *Declaration) SetStorage(storage string) *Declaration {
	d.storage = storage
	return d
}

// SetTypicalName sets the role alias of the entity.
func (d *Declaration) SetTypicalName(name string) *Declaration {
	d.typicalName = name
	return d
}

// SetOption sets an entity option.
func (d *Declaration) SetOption(name string, v any) *Declaration {
	if d.options == nil {
		d.options = make(map[string]any)
	}
	d.options[name] = v
	return d
}

// OptionalPrimaryKey lets the entity build without a primary key.
func (d *Declaration) OptionalPrimaryKey() *Declaration {
	d.optionalPK = true
	return d
}

// InheritFrom sets the parent entity. With readOnly, inherited properties
// cannot be assigned.
func (d *Declaration) InheritFrom(parent string, readOnly bool) *Declaration {
	d.parent = parent
	d.readOnly = readOnly
	return d
}

// AddAspects appends aspects.
func (d *Declaration) AddAspects(as ...Aspect) *Declaration {
	d.aspects = append(d.aspects, as...)
	return d
}

// AddProperties appends properties.
func (d *Declaration) AddProperties(ps ...*property.Property) *Declaration {
	d.properties = append(d.properties, ps...)
	return d
}

// AddReference appends a reference.
func (d *Declaration) AddReference(r Reference) *Declaration {
	d.references = append(d.references, r)
	return d
}

// AddCrossReference appends a cross-reference.
func (d *Declaration) AddCrossReference(r CrossReference) *Declaration {
	d.crossReferences = append(d.crossReferences, r)
	return d
}

// AddKeys appends keys.
func (d *Declaration) AddKeys(ks ...*key.Key) *Declaration {
	d.keys = append(d.keys, ks...)
	return d
}

// AddFunctions appends functions.
func (d *Declaration) AddFunctions(fs ...*Function) *Declaration {
	d.functions = append(d.functions, fs...)
	return d
}

// AddModifiers appends modifiers.
func (d *Declaration) AddModifiers(ms ...*Modifier) *Declaration {
	d.modifiers = append(d.modifiers, ms...)
	return d
}

// AddRelations appends relations.
func (d *Declaration) AddRelations(rs ...relation.Relation) *Declaration {
	d.relations = append(d.relations, rs...)
	return d
}

// AddConstraints appends constraints.
func (d *Declaration) AddConstraints(cs ...*Constraint) *Declaration {
	d.constraints = append(d.constraints, cs...)
	return d
}

// SetAction sets the executor of an action.
func (d *Declaration) SetAction(a Action, ex Executor) *Declaration {
	if d.actions == nil {
		d.actions = make(map[Action]Executor)
	}
	d.actions[a] = ex
	return d
}

// AddPostActions appends post-actions.
func (d *Declaration) AddPostActions(ps ...*PostAction) *Declaration {
	d.postActions = append(d.postActions, ps...)
	return d
}
