package entity

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/key"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/relation"
)

// Option configures a Registry.
type Option func(*Registry) error

// WithNaming sets the naming strategy used by every build.
func WithNaming(s naming.Strategy) Option {
	return func(r *Registry) error {
		if s == nil {
			return errors.New("entity: nil naming strategy")
		}
		r.naming = s
		return nil
	}
}

// WithLogger sets the build logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) error {
		if l == nil {
			return errors.New("entity: nil logger")
		}
		r.logger = l
		return nil
	}
}

// WithStorage sets the storage of entities that do not name one.
func WithStorage(name string) Option {
	return func(r *Registry) error {
		r.storage = name
		return nil
	}
}

// WithAspectFactory adds aspect builders for aspects listed by name.
func WithAspectFactory(f AspectFactory) Option {
	return func(r *Registry) error {
		r.aspects = r.aspects.Merge(f)
		return nil
	}
}

// Registry builds entities from their definitions on first use and keeps
// them. Each entity is built at most once; a failed build is remembered
// and reported again.
//
// Lookups from within a build, such as the target of a reference, see an
// entity that is still building once it has a primary key. Registries
// are safe for concurrent use; builds are serialized.
type Registry struct {
	mu sync.Mutex

	naming  naming.Strategy
	logger  *slog.Logger
	storage string
	aspects AspectFactory
	builder *Builder

	definitions map[string]Definition
	entities    map[string]*Entity
	building    map[string]*Descriptor
	failed      map[string]error
	typical     map[string]string // folded typical name to entity name
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		naming:      naming.Default,
		logger:      slog.Default(),
		aspects:     AspectFactory{},
		definitions: make(map[string]Definition),
		entities:    make(map[string]*Entity),
		building:    make(map[string]*Descriptor),
		failed:      make(map[string]error),
		typical:     make(map[string]string),
	}
	r.builder = &Builder{reg: r}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Naming returns the naming strategy of the registry.
func (r *Registry) Naming() naming.Strategy { return r.naming }

// Builder returns the builder driving the builds of the registry.
func (r *Registry) Builder() *Builder { return r.builder }

// Register adds definitions. Names must be unique.
func (r *Registry) Register(defs ...Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, def := range defs {
		if err := r.register(def); err != nil {
			errs = append(errs, err)
		}
	}
	return entmeta.NewAggregateError(errs...)
}

func (r *Registry) register(def Definition) error {
	name := naming.Normalize(def.Name())
	if name == "" {
		return entmeta.NewDescriptorError(def.Name(), "entity has no name")
	}
	if _, ok := r.definitions[name]; ok {
		return entmeta.NewDescriptorError(name, "entity is already registered")
	}
	if _, ok := r.entities[name]; ok {
		return entmeta.NewDescriptorError(name, "entity is already registered")
	}
	r.definitions[name] = def
	return nil
}

// New registers and returns a blank declaration of the named entity.
func (r *Registry) New(name string) (*Declaration, error) {
	d := Declare(name)
	if err := r.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Set stores a copy of an entity built elsewhere, such as by another
// registry.
func (r *Registry) Set(e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[e.Name()]; ok {
		return entmeta.NewDescriptorError(e.Name(), "entity is already registered")
	}
	if _, ok := r.entities[e.Name()]; ok {
		return entmeta.NewDescriptorError(e.Name(), "entity is already registered")
	}
	c := *e
	r.store(&c)
	return nil
}

// Names returns the names of all known entities, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := slices.Collect(maps.Keys(r.definitions))
	for n := range r.entities {
		if _, ok := r.definitions[n]; !ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}

// Get returns the named entity, building it when needed. It fails with a
// not-found error for unknown names and with the build error of entities
// that failed to build.
func (r *Registry) Get(ctx context.Context, name string) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	e, ok := m.(*Entity)
	if !ok {
		return nil, entmeta.NewDescriptorError(m.Name(), "entity is still building")
	}
	return e, nil
}

// Find is like Get but returns nil for unknown names.
func (r *Registry) Find(ctx context.Context, name string) (*Entity, error) {
	if !r.Has(name) {
		return nil, nil
	}
	return r.Get(ctx, name)
}

// Has reports whether the named entity is registered or stored.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.has(naming.Normalize(name))
}

func (r *Registry) has(name string) bool {
	_, declared := r.definitions[name]
	_, stored := r.entities[name]
	return declared || stored
}

// FindTypical returns the entity playing the given role, or nil. Roles
// are matched case-insensitively; entities are built as needed.
func (r *Registry) FindTypical(ctx context.Context, role string) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	folded := naming.Fold(role)
	if name, ok := r.typical[folded]; ok {
		return r.entities[name], nil
	}
	for _, name := range slices.Sorted(maps.Keys(r.definitions)) {
		if _, built := r.entities[name]; built {
			continue
		}
		if _, err := r.resolve(ctx, name); err != nil {
			return nil, err
		}
		if n, ok := r.typical[folded]; ok {
			return r.entities[n], nil
		}
	}
	return nil, nil
}

// BuildAll builds every registered entity in name order and reports all
// failures. Builds run one at a time under the registry lock.
func (r *Registry) BuildAll(ctx context.Context) ([]*Entity, error) {
	names := r.Names()
	entities := make([]*Entity, len(names))
	errs := make([]error, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entities[i], errs[i] = r.Get(ctx, name)
	}
	if err := entmeta.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return entities, nil
}

// resolve returns the named entity, or the descriptor building it. The
// caller holds r.mu.
func (r *Registry) resolve(ctx context.Context, name string) (Model, error) {
	name = naming.Normalize(name)
	if e, ok := r.entities[name]; ok {
		return e, nil
	}
	if err, ok := r.failed[name]; ok {
		return nil, err
	}
	if d, ok := r.building[name]; ok {
		if d.primary == nil {
			return nil, entmeta.NewDescriptorError(name, "cyclic dependency: entity is needed before its primary key is known")
		}
		return d, nil
	}
	def, ok := r.definitions[name]
	if !ok {
		return nil, entmeta.NewEntityNotFoundError(name)
	}
	d := NewDescriptor(def, r.naming, r.logger)
	d.lookup = func(n string) (Model, error) { return r.resolve(ctx, n) }
	r.builder.install(d)
	r.building[name] = d
	err := d.Build(ctx)
	delete(r.building, name)
	if err != nil {
		r.failed[name] = err
		return nil, err
	}
	r.store(d.Entity())
	return d.Entity(), nil
}

// store caches a built entity. The caller holds r.mu.
func (r *Registry) store(e *Entity) {
	e.lookup = func(n string) (Model, error) { return r.Get(context.Background(), n) }
	r.entities[e.Name()] = e
	if t := e.TypicalName(); t != "" {
		r.typical[naming.Fold(t)] = e.Name()
	}
	r.logger.Debug("entity built", "entity", e.Name(), "properties", len(e.Properties()), "relations", len(e.Relations()))
}

// Relation implements exec.Schema.
func (r *Registry) Relation(from, to string) (relation.Relation, error) {
	e, err := r.Get(context.Background(), from)
	if err != nil {
		return nil, err
	}
	return e.ResolveRelation(to)
}

// PrimaryKey implements exec.Schema.
func (r *Registry) PrimaryKey(entity string) (*key.Key, error) {
	e, err := r.Get(context.Background(), entity)
	if err != nil {
		return nil, err
	}
	if e.PrimaryKey() == nil {
		return nil, entmeta.NewDescriptorError(e.Name(), "entity has no primary key")
	}
	return e.PrimaryKey(), nil
}

// Column implements exec.Schema.
func (r *Registry) Column(entity, prop string) (string, error) {
	e, err := r.Get(context.Background(), entity)
	if err != nil {
		return "", err
	}
	p, err := e.Property(prop)
	if err != nil {
		return "", err
	}
	return p.FieldName(), nil
}

// Table implements exec.Schema.
func (r *Registry) Table(entity string) (string, error) {
	e, err := r.Get(context.Background(), entity)
	if err != nil {
		return "", err
	}
	return e.Table(), nil
}

var _ exec.Schema = (*Registry)(nil)
