// Package load reads entity declarations from YAML files and turns them
// into entity definitions.
//
// A declaration file holds one entity per YAML document:
//
//	name: Book
//	typical: work
//	aspects: [time]
//	properties:
//	  - {name: id, type: integer, primary_key: true, auto_increment: true}
//	  - {name: title, type: string, max_length: 200, typical: title}
//	  - {name: salesRank, type: integer, nullable: true, access: [sales]}
//	references:
//	  - {to: Publisher, required: false}
//	cross_references:
//	  - {to: Author}
//	---
//	name: Publisher
//	properties:
//	  - {name: id, type: integer, primary_key: true}
package load

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// Spec is the YAML form of an entity declaration.
type Spec struct {
	Name                string            `yaml:"name"`
	Table               string            `yaml:"table,omitempty"`
	Storage             string            `yaml:"storage,omitempty"`
	Typical             string            `yaml:"typical,omitempty"`
	Inherits            string            `yaml:"inherits,omitempty"`
	ReadOnlyInheritance bool              `yaml:"read_only_inheritance,omitempty"`
	OptionalPrimaryKey  bool              `yaml:"optional_primary_key,omitempty"`
	Aspects             []string          `yaml:"aspects,omitempty"`
	Properties          []*Property       `yaml:"properties,omitempty"`
	Keys                []*Key            `yaml:"keys,omitempty"`
	References          []*Reference      `yaml:"references,omitempty"`
	CrossReferences     []*CrossReference `yaml:"cross_references,omitempty"`
	Options             map[string]any    `yaml:"options,omitempty"`
}

// Property is the YAML form of a property.
type Property struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Field         string   `yaml:"field,omitempty"`
	Typical       string   `yaml:"typical,omitempty"`
	Group         string   `yaml:"group,omitempty"`
	Access        []string `yaml:"access,omitempty"`
	Nullable      bool     `yaml:"nullable,omitempty"`
	PrimaryKey    bool     `yaml:"primary_key,omitempty"`
	AutoIncrement bool     `yaml:"auto_increment,omitempty"`
	Unsigned      bool     `yaml:"unsigned,omitempty"`
	ReadOnly      bool     `yaml:"read_only,omitempty"`
	Internal      bool     `yaml:"internal,omitempty"`
	Size          *int     `yaml:"size,omitempty"`
	MinLength     *int     `yaml:"min_length,omitempty"`
	MaxLength     *int     `yaml:"max_length,omitempty"`
	Minimum       *float64 `yaml:"minimum,omitempty"`
	Maximum       *float64 `yaml:"maximum,omitempty"`
	Pattern       string   `yaml:"pattern,omitempty"`
	Default       any      `yaml:"default,omitempty"`
	WithDefault   bool     `yaml:"with_default,omitempty"`
	Variants      []string `yaml:"variants,omitempty"`
	Format        string   `yaml:"format,omitempty"`
}

// Key is the YAML form of a key.
type Key struct {
	Name     string   `yaml:"name,omitempty"`
	Columns  []string `yaml:"columns"`
	Primary  bool     `yaml:"primary,omitempty"`
	Unique   bool     `yaml:"unique,omitempty"`
	Fulltext bool     `yaml:"fulltext,omitempty"`
}

// Reference is the YAML form of a to-one reference.
type Reference struct {
	To       string `yaml:"to"`
	Type     string `yaml:"type,omitempty"`
	Required *bool  `yaml:"required,omitempty"`
	Property string `yaml:"property,omitempty"`
}

// CrossReference is the YAML form of a many-to-many association.
type CrossReference struct {
	To       string `yaml:"to"`
	Through  string `yaml:"through,omitempty"`
	Required *bool  `yaml:"required,omitempty"`
}

// Schema is an entity definition loaded from a declaration file. It
// implements entity.Definition through the embedded declaration.
type Schema struct {
	*entity.Declaration
	Spec *Spec
	Pos  string // file and document index the schema was read from
}

// constructors maps the type names of declaration files to property
// constructors. Formats refine string properties.
var constructors = map[property.Type]func(name string) *property.Property{
	property.TBoolean:   property.Boolean,
	property.TString:    property.String,
	property.TText:      property.Text,
	property.TInt:       property.Int,
	property.TBigInt:    property.BigInt,
	property.TFloat:     property.Float,
	property.TUUID:      property.UUID,
	property.TULID:      property.ULID,
	property.TDate:      property.Date,
	property.TTime:      property.Time,
	property.TDateTime:  property.DateTime,
	property.TTimestamp: property.Timestamp,
	property.TYear:      property.Year,
	property.TJSON:      property.JSON,
	property.TList:      property.List,
	property.TObject:    property.Object,
}

var formats = map[string]func(name string) *property.Property{
	"ip":   property.IPAddress,
	"slug": property.Slug,
}

// TypeNames returns the property type names accepted in declaration
// files, sorted.
func TypeNames() []string {
	names := make([]string, 0, len(constructors)+1)
	for t := range constructors {
		names = append(names, t.String())
	}
	names = append(names, property.TEnum.String())
	slices.Sort(names)
	return names
}

// Schema validates the spec and converts it to a definition.
func (s *Spec) Schema(pos string) (*Schema, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("load: %s: entity has no name", pos)
	}
	d := entity.Declare(s.Name)
	fail := func(format string, args ...any) (*Schema, error) {
		return nil, fmt.Errorf("load: %s: entity %q: %s", pos, s.Name, fmt.Sprintf(format, args...))
	}
	if s.Table != "" {
		d.SetTable(s.Table)
	}
	if s.Storage != "" {
		d.SetStorage(s.Storage)
	}
	if s.Typical != "" {
		d.SetTypicalName(s.Typical)
	}
	if s.Inherits != "" {
		d.InheritFrom(s.Inherits, s.ReadOnlyInheritance)
	}
	if s.OptionalPrimaryKey {
		d.OptionalPrimaryKey()
	}
	for _, k := range slices.Sorted(maps.Keys(s.Options)) {
		d.SetOption(k, s.Options[k])
	}
	for _, a := range s.Aspects {
		d.AddAspects(entity.NamedAspect(a))
	}
	for i, ps := range s.Properties {
		p, err := ps.property()
		if err != nil {
			return fail("property %d: %v", i, err)
		}
		d.AddProperties(p)
	}
	for i, ks := range s.Keys {
		if len(ks.Columns) == 0 {
			return fail("key %d has no columns", i)
		}
		k := key.New(ks.Columns...)
		switch {
		case ks.Primary:
			k.AsPrimary()
		case ks.Fulltext:
			k.AsFulltext()
		case ks.Unique:
			k.AsUnique()
		}
		if ks.Name != "" {
			k.Named(ks.Name)
		}
		d.AddKeys(k)
	}
	for _, r := range s.References {
		typ := relation.Reference
		if r.Type != "" {
			typ = relation.Type(r.Type)
		}
		if r.To == "" || !typ.Valid() {
			return fail("invalid reference to %q of type %q", r.To, r.Type)
		}
		d.AddReference(entity.Reference{To: r.To, Type: typ, Required: r.Required, Property: r.Property})
	}
	for _, r := range s.CrossReferences {
		if r.To == "" {
			return fail("cross reference has no target")
		}
		d.AddCrossReference(entity.CrossReference{To: r.To, Through: r.Through, Required: r.Required})
	}
	return &Schema{Declaration: d, Spec: s, Pos: pos}, nil
}

func (ps *Property) property() (*property.Property, error) {
	if ps.Name == "" {
		return nil, fmt.Errorf("property has no name")
	}
	var p *property.Property
	switch t := property.Type(strings.ToLower(ps.Type)); {
	case t == property.TEnum:
		if len(ps.Variants) == 0 {
			return nil, fmt.Errorf("enum %q has no variants", ps.Name)
		}
		p = property.Enum(ps.Name, ps.Variants...)
	case ps.Format != "":
		f, ok := formats[ps.Format]
		if !ok || t != property.TString {
			return nil, fmt.Errorf("unknown format %q of %s %q", ps.Format, ps.Type, ps.Name)
		}
		p = f(ps.Name)
	default:
		newProperty, ok := constructors[t]
		if !ok {
			return nil, fmt.Errorf("unknown type %q of %q", ps.Type, ps.Name)
		}
		p = newProperty(ps.Name)
	}
	if ps.Field != "" {
		p.SetFieldName(ps.Field)
	}
	if ps.Typical != "" {
		p.SetTypicalName(ps.Typical)
	}
	if ps.Group != "" {
		p.SetGroup(ps.Group)
	}
	if len(ps.Access) > 0 {
		p.SetAccessGroups(ps.Access...)
	}
	if ps.Nullable {
		p.AsNullable()
	}
	if ps.PrimaryKey {
		p.AsPrimaryKey()
	}
	if ps.AutoIncrement {
		p.AsAutoIncrement()
	}
	if ps.Unsigned {
		p.AsUnsigned()
	}
	if ps.ReadOnly {
		p.AsReadOnly()
	}
	if ps.Internal {
		p.AsInternal()
	}
	if ps.Size != nil {
		p.SetSize(*ps.Size)
	}
	if ps.MinLength != nil {
		p.SetMinLength(*ps.MinLength)
	}
	if ps.MaxLength != nil {
		p.SetMaxLength(*ps.MaxLength)
	}
	if ps.Minimum != nil {
		p.SetMinimum(*ps.Minimum)
	}
	if ps.Maximum != nil {
		p.SetMaximum(*ps.Maximum)
	}
	if ps.Pattern != "" {
		p.SetPattern(ps.Pattern)
	}
	switch {
	case ps.Default != nil:
		p.SetDefault(ps.Default)
	case ps.WithDefault:
		p.WithDefault()
	}
	return p, nil
}

var (
	_ entity.Definition        = (*Schema)(nil)
	_ entity.ReadOnlyInheritor = (*Schema)(nil)
	_ entity.Configurer        = (*Schema)(nil)
)
