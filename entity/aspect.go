package entity

import (
	"maps"
	"slices"
)

// Aspect is a cross-cutting concern applied to entities, such as
// timestamps or soft deletion. Aspects are listed by the definition and
// applied after the aspects stage, before properties are declared.
type Aspect interface {
	AspectName() string
}

// Applier is an aspect that applies itself to an entity being built.
type Applier interface {
	Aspect
	ApplyAspect(d *Descriptor) error
}

// AspectBuilder applies an aspect that does not apply itself.
type AspectBuilder func(d *Descriptor, a Aspect) error

// AspectFactory maps aspect names to builders. Aspects listed by name,
// as declaration files do, are applied through it.
type AspectFactory map[string]AspectBuilder

// Lookup returns the builder of the named aspect.
func (f AspectFactory) Lookup(name string) (AspectBuilder, bool) {
	b, ok := f[name]
	return b, ok
}

// Names returns the registered aspect names, sorted.
func (f AspectFactory) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Merge returns a factory holding the builders of f and other. Builders
// of other win on conflicts.
func (f AspectFactory) Merge(other AspectFactory) AspectFactory {
	m := maps.Clone(f)
	if m == nil {
		m = make(AspectFactory, len(other))
	}
	maps.Copy(m, other)
	return m
}

// NamedAspect is an aspect known by name only. It is applied through the
// registry's aspect factory.
type NamedAspect string

// AspectName implements Aspect.
func (a NamedAspect) AspectName() string { return string(a) }
