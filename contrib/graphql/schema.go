package graphql

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
	"github.com/syssam/entmeta/relation"
)

// Scalars declared by the exported document.
const (
	ScalarTime = "Time"
	ScalarJSON = "JSON"
)

// SourceName is the source name of the exported document in gqlparser
// positions and errors.
const SourceName = "entmeta.graphql"

var nameRE = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Schema builds the named entities, or every registered entity when no
// name is given, and returns the validated GraphQL schema.
func Schema(ctx context.Context, reg *entity.Registry, names ...string) (*ast.Schema, error) {
	doc, err := Document(ctx, reg, names...)
	if err != nil {
		return nil, err
	}
	s, err := gqlparser.LoadSchema(&ast.Source{Name: SourceName, Input: Print(doc)})
	if err != nil {
		return nil, fmt.Errorf("graphql: invalid schema: %w", err)
	}
	return s, nil
}

// Document builds the named entities, or every registered entity, and
// returns the unvalidated schema document.
func Document(ctx context.Context, reg *entity.Registry, names ...string) (*ast.SchemaDocument, error) {
	entities, err := build(ctx, reg, names)
	if err != nil {
		return nil, err
	}
	b := &builder{
		entities: entities,
		types:    make(map[string]string, len(entities)),
		scalar:   make(map[string]bool),
	}
	for _, e := range entities {
		b.types[e.Name()] = TypeName(e.Name())
	}
	query := &ast.Definition{Kind: ast.Object, Name: "Query"}
	for _, e := range entities {
		def, err := b.object(e)
		if err != nil {
			return nil, err
		}
		b.defs = append(b.defs, def)
		query.Fields = append(query.Fields, queryFields(e, def.Name)...)
	}
	for _, s := range []string{ScalarTime, ScalarJSON} {
		if b.scalar[s] {
			b.defs = append(b.defs, &ast.Definition{Kind: ast.Scalar, Name: s})
		}
	}
	slices.SortFunc(b.defs, func(x, y *ast.Definition) int { return strings.Compare(x.Name, y.Name) })
	slices.SortFunc(query.Fields, func(x, y *ast.FieldDefinition) int { return strings.Compare(x.Name, y.Name) })
	return &ast.SchemaDocument{Definitions: append(b.defs, query)}, nil
}

func build(ctx context.Context, reg *entity.Registry, names []string) ([]*entity.Entity, error) {
	if len(names) == 0 {
		return reg.BuildAll(ctx)
	}
	entities := make([]*entity.Entity, 0, len(names))
	for _, name := range names {
		e, err := reg.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// TypeName returns the GraphQL type of an entity.
func TypeName(entity string) string {
	return naming.Pascal(naming.Snake(entity))
}

// FieldName returns the GraphQL field of a property or relation.
func FieldName(name string) string {
	return naming.Camel(naming.Snake(name))
}

type builder struct {
	entities []*entity.Entity
	types    map[string]string // entity name to type name
	scalar   map[string]bool
	defs     ast.DefinitionList
}

func (b *builder) object(e *entity.Entity) (*ast.Definition, error) {
	def := &ast.Definition{
		Kind:        ast.Object,
		Name:        b.types[e.Name()],
		Description: fmt.Sprintf("%s is stored in %s.", e.Name(), e.Table()),
	}
	seen := make(map[string]string)
	add := func(f *ast.FieldDefinition, of string) error {
		if !nameRE.MatchString(f.Name) {
			return fmt.Errorf("graphql: entity %q: %s does not map to a field name (got %q)", e.Name(), of, f.Name)
		}
		if prev, ok := seen[f.Name]; ok {
			return fmt.Errorf("graphql: entity %q: field %s of %s clashes with %s", e.Name(), f.Name, of, prev)
		}
		seen[f.Name] = of
		def.Fields = append(def.Fields, f)
		return nil
	}
	for _, p := range e.Properties() {
		if !p.Able(exec.Tuple) || p.InGroup(property.GroupInternal) {
			continue
		}
		t, err := b.propertyType(e, p)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		if err := add(&ast.FieldDefinition{Name: FieldName(p.Name()), Type: t}, "property "+p.Name()); err != nil {
			return nil, err
		}
	}
	relations := slices.Clone(e.Relations())
	for _, o := range b.entities {
		// relations held by the other side only
		if e.FindRelation(o.Name()) != nil || o.FindRelation(e.Name()) == nil {
			continue
		}
		r, err := e.ResolveRelation(o.Name())
		if err != nil {
			return nil, err
		}
		relations = append(relations, r)
	}
	for _, r := range relations {
		target, ok := b.types[r.Right()]
		if !ok || r.Type().IsInheritance() {
			continue
		}
		name := FieldName(r.Name())
		var t *ast.Type
		if toMany(r.Type()) {
			name = naming.Plural(name)
			t = ast.NonNullListType(ast.NonNullNamedType(target, nil), nil)
		} else {
			t = ast.NamedType(target, nil)
			if req := r.IsRequired(); req != nil && *req {
				t = ast.NonNullNamedType(target, nil)
			}
		}
		if _, clash := seen[name]; clash {
			// a property already carries the relation name
			name += "Relation"
		}
		if err := add(&ast.FieldDefinition{Name: name, Type: t}, "relation "+r.Name()); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// toMany reports whether the right side of a relation of type t is a
// list.
func toMany(t relation.Type) bool {
	switch t {
	case relation.Collection, relation.Owns, relation.Parent, relation.ExtendedBy, relation.Association:
		return true
	}
	return false
}

// propertyType returns the field type of p, or nil when p has no GraphQL
// form.
func (b *builder) propertyType(e *entity.Entity, p *property.Property) (*ast.Type, error) {
	var name string
	switch {
	case p.IsPrimaryKey():
		name = "ID"
	case p.IsTuple():
		target, ok := b.types[p.Target()]
		if !ok {
			return nil, nil
		}
		return ast.NonNullListType(ast.NonNullNamedType(target, nil), nil), nil
	}
	if name == "" {
		switch p.Type() {
		case property.TBoolean:
			name = "Boolean"
		case property.TInt, property.TBigInt, property.TYear:
			name = "Int"
		case property.TFloat:
			name = "Float"
		case property.TDateTime, property.TTimestamp:
			name = ScalarTime
			b.scalar[name] = true
		case property.TJSON, property.TList, property.TObject:
			name = ScalarJSON
			b.scalar[name] = true
		case property.TEnum:
			def, err := enum(e, p)
			if err != nil {
				return nil, err
			}
			b.defs = append(b.defs, def)
			name = def.Name
		default:
			name = "String"
		}
	}
	if p.IsNullable() {
		return ast.NamedType(name, nil), nil
	}
	return ast.NonNullNamedType(name, nil), nil
}

func enum(e *entity.Entity, p *property.Property) (*ast.Definition, error) {
	def := &ast.Definition{
		Kind:        ast.Enum,
		Name:        TypeName(e.Name()) + naming.Pascal(naming.Snake(p.Name())),
		Description: fmt.Sprintf("%s of %s.", p.Name(), e.Name()),
	}
	for _, v := range p.Variants() {
		name := strings.ToUpper(naming.Snake(v))
		if !nameRE.MatchString(name) {
			return nil, fmt.Errorf("graphql: entity %q: variant %q of %s does not map to an enum value", e.Name(), v, p.Name())
		}
		def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: name})
	}
	return def, nil
}

func queryFields(e *entity.Entity, typ string) ast.FieldList {
	single := naming.LowerFirst(typ)
	fields := ast.FieldList{{
		Name: naming.Plural(single),
		Type: ast.NonNullListType(ast.NonNullNamedType(typ, nil), nil),
	}}
	if pk := e.PrimaryKey(); pk != nil && pk.IsSimple() {
		fields = append(fields, &ast.FieldDefinition{
			Name: single,
			Arguments: ast.ArgumentDefinitionList{{
				Name: FieldName(pk.Columns()[0]),
				Type: ast.NonNullNamedType("ID", nil),
			}},
			Type: ast.NamedType(typ, nil),
		})
	}
	return fields
}

// Print formats a schema document as SDL.
func Print(doc *ast.SchemaDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String()
}

// PrintSchema formats a loaded schema as SDL, without the built-in types
// and directives.
func PrintSchema(s *ast.Schema) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchema(s)
	return buf.String()
}
