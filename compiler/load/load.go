package load

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/entmeta"
	"github.com/syssam/entmeta/entity"
)

// Parse decodes the entity declarations of one file. Unknown keys are
// errors. file is only used to report positions.
func Parse(data []byte, file string) ([]*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var schemas []*Schema
	for i := 0; ; i++ {
		var spec Spec
		err := dec.Decode(&spec)
		if errors.Is(err, io.EOF) {
			return schemas, nil
		}
		pos := fmt.Sprintf("%s#%d", file, i)
		if err != nil {
			return nil, fmt.Errorf("load: %s: %w", pos, err)
		}
		s, err := spec.Schema(pos)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
}

// Files reads and parses the declaration files concurrently. The schemas
// keep the order of files, then of documents. Errors of every file are
// reported together, as are entities declared twice.
func Files(ctx context.Context, files ...string) ([]*Schema, error) {
	parsed := make([][]*Schema, len(files))
	errs := make([]error, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(f)
			if err != nil {
				errs[i] = fmt.Errorf("load: %w", err)
				return nil
			}
			parsed[i], errs[i] = Parse(data, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := entmeta.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	var (
		schemas []*Schema
		seen    = make(map[string]string)
	)
	for _, ss := range parsed {
		for _, s := range ss {
			if prev, ok := seen[s.Name()]; ok {
				errs = append(errs, fmt.Errorf("load: %s: entity %q is already declared at %s", s.Pos, s.Name(), prev))
				continue
			}
			seen[s.Name()] = s.Pos
			schemas = append(schemas, s)
		}
	}
	if err := entmeta.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	return schemas, nil
}

// Register registers the schemas with reg.
func Register(reg *entity.Registry, schemas ...*Schema) error {
	defs := make([]entity.Definition, len(schemas))
	for i, s := range schemas {
		defs[i] = s
	}
	return reg.Register(defs...)
}
