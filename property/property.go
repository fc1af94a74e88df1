// Package property describes entity attributes and how each of them takes
// part in a compiled query, per usage context.
package property

import (
	"fmt"
	"slices"

	"github.com/syssam/entmeta/dialect/sql"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/relation"
)

// Well-known groups.
const (
	GroupInternal  = "internal"
	AccessInternal = "internal"
	AccessPublic   = "public"
)

// Property is one attribute of an entity. Properties are configured with
// chained setters while their entity is being built and are frozen with it;
// mutating a frozen property panics.
type Property struct {
	name        string
	field       string
	typicalName string
	typ         Type
	kind        Kind

	group        string
	accessGroups []string
	aspectGroups []string

	nullable      bool
	virtual       bool
	primaryKey    bool
	autoIncrement bool
	unsigned      bool

	size      *int
	minimum   *float64
	maximum   *float64
	minLength *int
	maxLength *int
	pattern   string

	defaultValue any
	hasDefault   bool
	onCreate     sql.Node
	onUpdate     sql.Node

	referenceTo  string
	relationType relation.Type

	disabled      [exec.NumUsages]bool
	inheritedFrom string

	variants        []string
	variantsVirtual bool

	serializer Serializer
	handlers   [exec.NumUsages]HandlerFunc
	single     HandlerFunc
	before     AfterFunc
	after      AfterFunc
	definition DefinitionFunc
	withDef    func(*Property)

	target     string
	via        string
	columns    []string
	expression sql.Node

	original *Property
	frozen   bool
}

// New returns a non-nullable scalar property of the given type.
func New(name string, typ Type) *Property {
	return &Property{name: name, typ: typ}
}

func (p *Property) mutate() {
	if p.frozen {
		panic(fmt.Sprintf("property: mutation of frozen property %q", p.name))
	}
}

// Freeze makes the property read-only. Entities freeze their properties
// when their build completes.
func (p *Property) Freeze() { p.frozen = true }

// IsFrozen reports whether the property is read-only.
func (p *Property) IsFrozen() bool { return p.frozen }

// Name returns the property name, unique within its entity.
func (p *Property) Name() string { return p.name }

// FieldName returns the storage column. It defaults to the name.
func (p *Property) FieldName() string {
	if p.field == "" {
		return p.name
	}
	return p.field
}

// HasFieldName reports whether a storage column was set explicitly.
func (p *Property) HasFieldName() bool { return p.field != "" }

// TypicalName returns the role alias of the property, if any.
func (p *Property) TypicalName() string { return p.typicalName }

// Type returns the semantic type.
func (p *Property) Type() Type { return p.typ }

// Kind returns the variant.
func (p *Property) Kind() Kind { return p.kind }

// Group returns the property group.
func (p *Property) Group() string { return p.group }

// InGroup reports whether the property belongs to group.
func (p *Property) InGroup(group string) bool { return p.group == group }

// AccessGroups returns the groups allowed to access the property.
func (p *Property) AccessGroups() []string {
	if len(p.accessGroups) == 0 && p.original != nil {
		return p.original.AccessGroups()
	}
	return slices.Clone(p.accessGroups)
}

// AspectGroups returns the aspect groups of the property. A derived
// property adds its own groups to those of the original.
func (p *Property) AspectGroups() []string {
	if p.original != nil {
		return append(p.original.AspectGroups(), p.aspectGroups...)
	}
	return slices.Clone(p.aspectGroups)
}

// IsNullable reports whether the property accepts NULL.
func (p *Property) IsNullable() bool { return p.nullable }

// IsVirtual reports whether the property has no physical column of its
// own. Derived properties are always virtual.
func (p *Property) IsVirtual() bool { return p.virtual || p.kind == KindDerived }

// IsSerializable reports whether values are converted on their way to and
// from storage.
func (p *Property) IsSerializable() bool { return p.serializer != nil }

// IsTuple reports whether the property yields a collection of rows.
func (p *Property) IsTuple() bool { return p.typ == TTuple }

// IsPrimaryKey reports whether the property is part of the primary key.
func (p *Property) IsPrimaryKey() bool { return p.primaryKey }

// IsAutoIncrement reports whether storage generates the value.
func (p *Property) IsAutoIncrement() bool { return p.autoIncrement }

// IsUnsigned reports whether negative numbers are rejected.
func (p *Property) IsUnsigned() bool { return p.unsigned }

// Size returns the storage size, if set.
func (p *Property) Size() (int, bool) { return deref(p.size) }

// Minimum returns the lower bound, if set. Unsigned numbers have 0.
func (p *Property) Minimum() (float64, bool) {
	if p.minimum == nil && p.unsigned {
		return 0, true
	}
	return deref(p.minimum)
}

// Maximum returns the upper bound, if set.
func (p *Property) Maximum() (float64, bool) { return deref(p.maximum) }

// MinLength returns the minimal length, if set.
func (p *Property) MinLength() (int, bool) { return deref(p.minLength) }

// MaxLength returns the maximal length, if set.
func (p *Property) MaxLength() (int, bool) { return deref(p.maxLength) }

// Pattern returns the validation pattern.
func (p *Property) Pattern() string { return p.pattern }

// Default returns the default value and whether one was set.
func (p *Property) Default() (any, bool) { return p.defaultValue, p.hasDefault }

// OnCreate returns the expression evaluated on insert.
func (p *Property) OnCreate() sql.Node { return p.onCreate }

// OnUpdate returns the expression evaluated on update.
func (p *Property) OnUpdate() sql.Node { return p.onUpdate }

// ReferenceTo returns the entity the property references.
func (p *Property) ReferenceTo() string { return p.referenceTo }

// IsReference reports whether the property references another entity.
func (p *Property) IsReference() bool { return p.referenceTo != "" }

// RelationType returns the relation tag of a reference. It defaults to
// relation.Reference.
func (p *Property) RelationType() relation.Type {
	if p.relationType == "" {
		return relation.Reference
	}
	return p.relationType
}

// InheritedFrom returns the entity the property was inherited from.
func (p *Property) InheritedFrom() string { return p.inheritedFrom }

// Variants returns the enum variants.
func (p *Property) Variants() []string { return slices.Clone(p.variants) }

// IsVariantsVirtual reports whether enum variants are not stored.
func (p *Property) IsVariantsVirtual() bool { return p.variantsVirtual }

// Serializer returns the value serializer, if any.
func (p *Property) Serializer() Serializer { return p.serializer }

// Target returns the entity a linked, nested tuple or cross-reference
// property reads from.
func (p *Property) Target() string { return p.target }

// Via returns the junction entity of a cross-reference property, or the
// property of the target a linked property reads.
func (p *Property) Via() string { return p.via }

// Columns returns the target columns of a nested tuple property.
func (p *Property) Columns() []string { return slices.Clone(p.columns) }

// Expression returns the expression an expression-backed property stands for.
func (p *Property) Expression() sql.Node { return p.expression }

// Original returns the property a derived property wraps.
func (p *Property) Original() *Property { return p.original }

// DefinitionHandler returns the entity definition hook.
func (p *Property) DefinitionHandler() DefinitionFunc { return p.definition }

// HandlerAfter returns the after-handler.
func (p *Property) HandlerAfter() AfterFunc { return p.after }

// Able reports whether the property may be used in the usage context u.
// It panics on an unknown usage.
func (p *Property) Able(u exec.Usage) bool {
	if !u.Valid() {
		panic(fmt.Sprintf("property: unknown usage context %d", int(u)))
	}
	if p.kind == KindDerived && p.original != nil {
		return p.original.Able(u)
	}
	if u == exec.JoinCondition && p.virtual {
		return false
	}
	return !p.disabled[u]
}

// SetName renames the property.
func (p *Property) SetName(name string) *Property {
	p.mutate()
	p.name = name
	return p
}

// SetFieldName sets the storage column.
func (p *Property) SetFieldName(field string) *Property {
	p.mutate()
	p.field = field
	return p
}

// SetTypicalName sets the role alias. An empty name removes it.
func (p *Property) SetTypicalName(name string) *Property {
	p.mutate()
	p.typicalName = name
	return p
}

// SetType changes the semantic type.
func (p *Property) SetType(t Type) *Property {
	p.mutate()
	p.typ = t
	return p
}

// SetGroup sets the property group.
func (p *Property) SetGroup(group string) *Property {
	p.mutate()
	p.group = group
	return p
}

// SetAccessGroups replaces the access groups.
func (p *Property) SetAccessGroups(groups ...string) *Property {
	p.mutate()
	p.accessGroups = slices.Clone(groups)
	return p
}

// AddAspectGroups appends aspect groups, skipping duplicates.
func (p *Property) AddAspectGroups(groups ...string) *Property {
	p.mutate()
	for _, g := range groups {
		if !slices.Contains(p.aspectGroups, g) {
			p.aspectGroups = append(p.aspectGroups, g)
		}
	}
	return p
}

// AsNullable makes the property nullable.
func (p *Property) AsNullable() *Property {
	p.mutate()
	p.nullable = true
	return p
}

// AsNotNull makes the property non-nullable.
func (p *Property) AsNotNull() *Property {
	p.mutate()
	p.nullable = false
	return p
}

// AsVirtual marks the property as having no physical column.
func (p *Property) AsVirtual() *Property {
	p.mutate()
	p.virtual = true
	return p
}

// AsPrimaryKey marks the property as part of the primary key.
func (p *Property) AsPrimaryKey() *Property {
	p.mutate()
	p.primaryKey = true
	return p
}

// AsAutoIncrement marks the value as generated by storage.
func (p *Property) AsAutoIncrement() *Property {
	p.mutate()
	p.autoIncrement = true
	return p
}

// AsUnsigned rejects negative numbers.
func (p *Property) AsUnsigned() *Property {
	p.mutate()
	p.unsigned = true
	return p
}

// AsInternal moves the property to the internal group with internal access.
func (p *Property) AsInternal() *Property {
	return p.SetGroup(GroupInternal).SetAccessGroups(AccessInternal)
}

// AsPublic grants public access.
func (p *Property) AsPublic() *Property {
	return p.SetAccessGroups(AccessPublic)
}

// AsReadOnly disables assignment.
func (p *Property) AsReadOnly() *Property {
	return p.Disable(exec.Assign)
}

// SetSize sets the storage size.
func (p *Property) SetSize(n int) *Property {
	p.mutate()
	p.size = &n
	return p
}

// SetMinimum sets the lower bound.
func (p *Property) SetMinimum(v float64) *Property {
	p.mutate()
	p.minimum = &v
	return p
}

// SetMaximum sets the upper bound.
func (p *Property) SetMaximum(v float64) *Property {
	p.mutate()
	p.maximum = &v
	return p
}

// SetMinLength sets the minimal length.
func (p *Property) SetMinLength(n int) *Property {
	p.mutate()
	p.minLength = &n
	return p
}

// SetMaxLength sets the maximal length.
func (p *Property) SetMaxLength(n int) *Property {
	p.mutate()
	p.maxLength = &n
	return p
}

// SetPattern sets the validation pattern.
func (p *Property) SetPattern(pattern string) *Property {
	p.mutate()
	p.pattern = pattern
	return p
}

// SetDefault sets the default value.
func (p *Property) SetDefault(v any) *Property {
	p.mutate()
	p.defaultValue, p.hasDefault = v, true
	return p
}

// WithDefault sets the zero value of the property type as its default,
// e.g. "" for strings or the first variant of an enum.
func (p *Property) WithDefault() *Property {
	p.mutate()
	if p.withDef != nil {
		p.withDef(p)
	}
	return p
}

// SetOnCreate sets the expression evaluated on insert.
func (p *Property) SetOnCreate(n sql.Node) *Property {
	p.mutate()
	p.onCreate = n
	return p
}

// SetOnUpdate sets the expression evaluated on update.
func (p *Property) SetOnUpdate(n sql.Node) *Property {
	p.mutate()
	p.onUpdate = n
	return p
}

// SetReference makes the property a reference to entity. An empty
// relation type defaults to relation.Reference.
func (p *Property) SetReference(entity string, typ relation.Type) *Property {
	p.mutate()
	p.referenceTo, p.relationType = entity, typ
	return p
}

// SetVariants replaces the enum variants.
func (p *Property) SetVariants(variants ...string) *Property {
	p.mutate()
	p.variants = slices.Clone(variants)
	return p
}

// SetVariantsVirtual marks enum variants as not stored.
func (p *Property) SetVariantsVirtual(v bool) *Property {
	p.mutate()
	p.variantsVirtual = v
	return p
}

// Disable forbids the usage contexts.
func (p *Property) Disable(us ...exec.Usage) *Property {
	p.mutate()
	for _, u := range us {
		p.disabled[u] = true
	}
	return p
}

// Enable allows the usage contexts.
func (p *Property) Enable(us ...exec.Usage) *Property {
	p.mutate()
	for _, u := range us {
		p.disabled[u] = false
	}
	return p
}

// SetSerializer sets the value serializer. A nil serializer makes the
// property non-serializable.
func (p *Property) SetSerializer(s Serializer) *Property {
	p.mutate()
	p.serializer = s
	return p
}

// SetHandler sets the handler of a virtual property for usage u.
func (p *Property) SetHandler(u exec.Usage, h HandlerFunc) *Property {
	p.mutate()
	p.handlers[u] = h
	return p
}

// SetSingleHandler sets a handler of a virtual property that serves every
// usage context.
func (p *Property) SetSingleHandler(h HandlerFunc) *Property {
	p.mutate()
	p.single = h
	return p
}

// SetHandlerBefore sets a hook run after the built-in preparation of a
// reference and before the virtual handlers.
func (p *Property) SetHandlerBefore(fn AfterFunc) *Property {
	p.mutate()
	p.before = fn
	return p
}

// SetHandlerAfter sets the hook run after every successful Handle.
func (p *Property) SetHandlerAfter(fn AfterFunc) *Property {
	p.mutate()
	p.after = fn
	return p
}

// SetDefinitionHandler sets the hook run once while the owning entity is
// being built.
func (p *Property) SetDefinitionHandler(fn DefinitionFunc) *Property {
	p.mutate()
	p.definition = fn
	return p
}

// Clone returns an unfrozen copy of the property. The definition hook and
// the after-handler are not copied.
func (p *Property) Clone() *Property {
	c := *p
	c.accessGroups = slices.Clone(p.accessGroups)
	c.aspectGroups = slices.Clone(p.aspectGroups)
	c.variants = slices.Clone(p.variants)
	c.columns = slices.Clone(p.columns)
	c.size = clonePtr(p.size)
	c.minimum = clonePtr(p.minimum)
	c.maximum = clonePtr(p.maximum)
	c.minLength = clonePtr(p.minLength)
	c.maxLength = clonePtr(p.maxLength)
	c.definition = nil
	c.after = nil
	c.frozen = false
	return &c
}

// InheritFrom returns a copy of the property for an entity inheriting
// entity. The first ancestor is kept when the property was inherited
// already. A read-only copy cannot be assigned. The after-handler of p
// stays in force on the copy.
func (p *Property) InheritFrom(entity string, readOnly bool) *Property {
	c := p.Clone()
	c.after = p.after
	if c.inheritedFrom == "" {
		c.inheritedFrom = entity
	}
	if readOnly {
		c.disabled[exec.Assign] = true
	}
	return c
}

// CloneAsReference returns a copy of the property that references entity,
// as used for foreign keys. Key, generation and inheritance markers are
// dropped.
func (p *Property) CloneAsReference(entity string, typ relation.Type) *Property {
	c := p.Clone()
	c.primaryKey = false
	c.autoIncrement = false
	c.inheritedFrom = ""
	c.onCreate = nil
	c.onUpdate = nil
	c.field = ""
	c.typicalName = ""
	c.referenceTo = entity
	c.relationType = typ
	return c
}

func deref[T any](v *T) (T, bool) {
	if v == nil {
		var zero T
		return zero, false
	}
	return *v, true
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
