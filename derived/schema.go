package derived

import (
	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/relation"
)

// Schema resolves derived entities by name and everything else through a
// base schema, so that property handlers compiled against a derived
// entity see its transformed relations.
type Schema struct {
	base     exec.Schema
	entities map[string]*Entity
}

// NewSchema returns a schema exposing entities on top of base.
func NewSchema(base exec.Schema, entities ...*Entity) *Schema {
	s := &Schema{base: base, entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		s.Add(e)
	}
	return s
}

// Add exposes e under its name.
func (s *Schema) Add(e *Entity) { s.entities[e.Name()] = e }

func (s *Schema) derived(name string) (*Entity, bool) {
	e, ok := s.entities[naming.Normalize(name)]
	return e, ok
}

// Relation implements exec.Schema. A relation towards a derived entity is
// the reversed relation the derived entity holds.
func (s *Schema) Relation(from, to string) (relation.Relation, error) {
	if e, ok := s.derived(from); ok {
		return e.Relation(to)
	}
	if e, ok := s.derived(to); ok {
		r, err := e.Relation(from)
		if err != nil {
			return nil, err
		}
		return r.Reverse()
	}
	return s.base.Relation(from, to)
}

// PrimaryKey implements exec.Schema.
func (s *Schema) PrimaryKey(name string) (*key.Key, error) {
	e, ok := s.derived(name)
	if !ok {
		return s.base.PrimaryKey(name)
	}
	if pk := e.PrimaryKey(); pk != nil {
		return pk, nil
	}
	return nil, entmeta.NewDescriptorError(e.Name(), "derived entity has no primary key")
}

// Column implements exec.Schema. Output columns of a subquery are named
// after their properties.
func (s *Schema) Column(name, prop string) (string, error) {
	e, ok := s.derived(name)
	if !ok {
		return s.base.Column(name, prop)
	}
	p, err := e.Property(prop)
	if err != nil {
		return "", err
	}
	return p.Name(), nil
}

// Table implements exec.Schema.
func (s *Schema) Table(name string) (string, error) {
	if e, ok := s.derived(name); ok {
		return e.Table(), nil
	}
	return s.base.Table(name)
}

var _ exec.Schema = (*Schema)(nil)
