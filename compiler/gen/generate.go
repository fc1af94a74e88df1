package gen

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/property"
)

// IndexFile is the file listing the generated entities.
const IndexFile = "entities.go"

const (
	uuidPkg = "github.com/google/uuid"
	ulidPkg = "github.com/oklog/ulid/v2"
)

// Generator writes the constants files of the entities of a registry.
type Generator struct {
	reg *entity.Registry
	cfg *Config

	mu      sync.Mutex
	metrics Metrics
}

// Metrics tracks generation output.
type Metrics struct {
	FilesGenerated int
	TotalBytes     int64
}

// New returns a generator for the entities of reg.
func New(reg *entity.Registry, opts ...Option) (*Generator, error) {
	if reg == nil {
		return nil, NewConfigError("Registry", nil, "registry cannot be nil")
	}
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &Generator{reg: reg, cfg: cfg}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() *Config { return g.cfg }

// Metrics returns the generation metrics.
func (g *Generator) Metrics() Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.metrics
}

// Generate builds the named entities, or every registered entity when no
// name is given, and writes one file per entity plus the index file. It
// returns the written paths, sorted.
func (g *Generator) Generate(ctx context.Context, names ...string) ([]string, error) {
	entities, err := g.entities(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.cfg.Target, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, len(entities)+1)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, e := range entities {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			f, err := g.entityFile(e)
			if err != nil {
				return err
			}
			paths[i], err = g.write(e.Name(), fileName(e.Name()), f)
			return err
		})
	}
	eg.Go(func() error {
		var err error
		paths[len(entities)], err = g.write("", IndexFile, g.indexFile(entities))
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

func (g *Generator) entities(ctx context.Context, names []string) ([]*entity.Entity, error) {
	if len(names) == 0 {
		return g.reg.BuildAll(ctx)
	}
	entities := make([]*entity.Entity, 0, len(names))
	for _, name := range names {
		e, err := g.reg.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// fileName returns the file of an entity, kept clear of the _test suffix.
func fileName(name string) string {
	base := naming.Snake(name)
	if strings.HasSuffix(base, "_test") {
		base += "_entity"
	}
	return base + ".go"
}

// GoName returns the exported Go identifier of an entity, property or
// relation name.
//
//	GoName("publisherId") == "PublisherID"
func GoName(name string) string {
	return naming.Pascal(naming.Snake(name))
}

// idents rejects duplicate or invalid identifiers within one file.
type idents struct {
	entity string
	seen   map[string]string
}

func (s *idents) add(ident, of string) error {
	if !token.IsIdentifier(ident) || !token.IsExported(ident) {
		return NewGenerationError(s.entity, "", fmt.Sprintf("%s does not map to an exported identifier (got %q)", of, ident), nil)
	}
	if prev, ok := s.seen[ident]; ok {
		return NewGenerationError(s.entity, "", fmt.Sprintf("identifier %s of %s clashes with %s", ident, of, prev), nil)
	}
	s.seen[ident] = of
	return nil
}

func (g *Generator) entityFile(e *entity.Entity) (*jen.File, error) {
	name := e.Name()
	ids := &idents{entity: name, seen: make(map[string]string)}
	typ := GoName(name)
	if err := ids.add(typ, "entity "+name); err != nil {
		return nil, err
	}

	f := g.newFile()
	header := []jen.Code{
		jen.Comment(fmt.Sprintf("%sEntity is the name of the %s entity.", typ, name)),
		jen.Id(typ + "Entity").Op("=").Lit(name),
		jen.Comment(fmt.Sprintf("%sTable is the table of the %s entity.", typ, name)),
		jen.Id(typ + "Table").Op("=").Lit(e.Table()),
	}
	for _, id := range []string{typ + "Entity", typ + "Table", typ + "Storage", typ + "Columns"} {
		if err := ids.add(id, "entity "+name); err != nil {
			return nil, err
		}
	}
	if e.Storage() != "" {
		header = append(header,
			jen.Comment(fmt.Sprintf("%sStorage is the storage of the %s entity.", typ, name)),
			jen.Id(typ+"Storage").Op("=").Lit(e.Storage()),
		)
	}
	f.Const().Defs(header...)

	var fields, columns, enums []jen.Code
	for _, p := range e.Properties() {
		id := GoName(p.Name())
		if err := ids.add(typ+"Field"+id, "property "+p.Name()); err != nil {
			return nil, err
		}
		fields = append(fields, jen.Id(typ+"Field"+id).Op("=").Lit(p.Name()))
		if p.IsVirtual() {
			continue
		}
		if err := ids.add(typ+"Column"+id, "property "+p.Name()); err != nil {
			return nil, err
		}
		columns = append(columns, jen.Id(typ+"Column"+id).Op("=").Lit(p.FieldName()))
		if p.Type() != property.TEnum {
			continue
		}
		for _, v := range p.Variants() {
			vid := typ + id + GoName(v)
			if err := ids.add(vid, fmt.Sprintf("variant %q of %s", v, p.Name())); err != nil {
				return nil, err
			}
			enums = append(enums, jen.Id(vid).Op("=").Lit(v))
		}
	}
	if len(fields) > 0 {
		f.Comment(fmt.Sprintf("Property names of %s.", name))
		f.Const().Defs(fields...)
	}
	if len(columns) > 0 {
		f.Comment(fmt.Sprintf("Columns of %s.", name))
		f.Const().Defs(columns...)
	}
	if len(enums) > 0 {
		f.Comment(fmt.Sprintf("Enum variants of %s.", name))
		f.Const().Defs(enums...)
	}

	var relations []jen.Code
	for _, r := range e.Relations() {
		id := typ + "Relation" + GoName(r.Name())
		if err := ids.add(id, "relation "+r.Name()); err != nil {
			return nil, err
		}
		relations = append(relations, jen.Id(id).Op("=").Lit(r.Name()))
	}
	if len(relations) > 0 {
		f.Comment(fmt.Sprintf("Relations of %s, named by their right entity.", name))
		f.Const().Defs(relations...)
	}

	defaults := e.DefaultColumns()
	f.Comment(fmt.Sprintf("%sColumns lists the columns a select of %s projects by default.", typ, name))
	f.Var().Id(typ + "Columns").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
		for _, p := range defaults {
			grp.Lit(p.FieldName())
		}
	})

	f.Comment(fmt.Sprintf("%s is a row of the %s entity.", typ, name))
	f.Type().Id(typ).StructFunc(func(grp *jen.Group) {
		for _, p := range defaults {
			if !p.Able(exec.Tuple) {
				continue
			}
			grp.Id(GoName(p.Name())).Add(goType(p)).Tag(map[string]string{
				"json": p.Name() + omitEmpty(p),
				"db":   p.FieldName(),
			})
		}
	})
	return f, nil
}

func omitEmpty(p *property.Property) string {
	if p.IsNullable() {
		return ",omitempty"
	}
	return ""
}

// goType returns the Go type of a property. Nullable scalars are pointers.
func goType(p *property.Property) jen.Code {
	var t *jen.Statement
	switch p.Type() {
	case property.TBoolean:
		t = jen.Bool()
	case property.TInt, property.TBigInt, property.TYear:
		if p.IsUnsigned() {
			t = jen.Uint64()
		} else {
			t = jen.Int64()
		}
	case property.TFloat:
		t = jen.Float64()
	case property.TUUID:
		t = jen.Qual(uuidPkg, "UUID")
	case property.TULID:
		t = jen.Qual(ulidPkg, "ULID")
	case property.TDate, property.TDateTime, property.TTimestamp:
		t = jen.Qual("time", "Time")
	case property.TJSON:
		return jen.Qual("encoding/json", "RawMessage")
	case property.TList:
		return jen.Index().Interface()
	case property.TObject:
		return jen.Map(jen.String()).Interface()
	case property.TTuple:
		return jen.Index().Map(jen.String()).Interface()
	default:
		t = jen.String()
	}
	if p.IsNullable() {
		return jen.Op("*").Add(t)
	}
	return t
}

func (g *Generator) indexFile(entities []*entity.Entity) *jen.File {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name()
	}
	slices.Sort(names)
	f := g.newFile()
	f.Comment("Entities lists the generated entities, sorted.")
	f.Var().Id("Entities").Op("=").Index().String().ValuesFunc(func(grp *jen.Group) {
		for _, n := range names {
			grp.Lit(n)
		}
	})
	return f
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	f.ImportNames(map[string]string{uuidPkg: "uuid", ulidPkg: "ulid"})
	if g.cfg.Header != "" {
		f.HeaderComment(g.cfg.Header)
	}
	return f
}

// write renders f, formats it with goimports and writes it under the
// target directory.
func (g *Generator) write(entityName, name string, f *jen.File) (string, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", NewGenerationError(entityName, name, "render", err)
	}
	path := filepath.Join(g.cfg.Target, name)
	formatted, err := imports.Process(path, buf.Bytes(), nil)
	if err != nil {
		debugPath := path + ".error"
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return "", NewGenerationError(entityName, name, "format (unformatted written to "+debugPath+")", err)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return "", NewGenerationError(entityName, name, "write", err)
	}
	g.mu.Lock()
	g.metrics.FilesGenerated++
	g.metrics.TotalBytes += int64(len(formatted))
	g.mu.Unlock()
	g.cfg.Logger.Debug("file generated", "entity", entityName, "file", path, "bytes", len(formatted))
	return path, nil
}
