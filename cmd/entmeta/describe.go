package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/exec"
)

type description struct {
	Name       string                `yaml:"name"`
	Table      string                `yaml:"table"`
	Storage    string                `yaml:"storage,omitempty"`
	Inherits   string                `yaml:"inherits,omitempty"`
	Aspects    []string              `yaml:"aspects,omitempty"`
	PrimaryKey []string              `yaml:"primary_key,omitempty"`
	Properties []propertyDescription `yaml:"properties"`
	Keys       []keyDescription      `yaml:"keys,omitempty"`
	Relations  []relationDescription `yaml:"relations,omitempty"`
	Options    map[string]any        `yaml:"options,omitempty"`
}

type propertyDescription struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"`
	Column    string   `yaml:"column,omitempty"`
	Nullable  bool     `yaml:"nullable,omitempty"`
	Virtual   bool     `yaml:"virtual,omitempty"`
	ReadOnly  bool     `yaml:"read_only,omitempty"`
	Reference string   `yaml:"reference,omitempty"`
	Inherited string   `yaml:"inherited_from,omitempty"`
	Access    []string `yaml:"access,omitempty"`
}

type keyDescription struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

type relationDescription struct {
	To       string `yaml:"to"`
	Type     string `yaml:"type"`
	Required *bool  `yaml:"required,omitempty"`
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [entity...]",
		Short: "Print built entities as YAML",
		Long: `Builds the named entities, or every declared entity, and prints one
YAML document per entity.

Examples:
  entmeta describe
  entmeta describe Book -f schema/library.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := a.registry(ctx)
			if err != nil {
				return err
			}
			entities, err := buildEntities(cmd, reg, args)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			for _, e := range entities {
				if err := enc.Encode(describe(e)); err != nil {
					return err
				}
			}
			return enc.Close()
		},
	}
}

func buildEntities(cmd *cobra.Command, reg *entity.Registry, names []string) ([]*entity.Entity, error) {
	if len(names) == 0 {
		return reg.BuildAll(cmd.Context())
	}
	entities := make([]*entity.Entity, 0, len(names))
	for _, name := range names {
		e, err := reg.Get(cmd.Context(), name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func describe(e *entity.Entity) description {
	d := description{
		Name:     e.Name(),
		Table:    e.Table(),
		Storage:  e.Storage(),
		Inherits: e.Inherits(),
		Options:  e.Options(),
	}
	for _, a := range e.Aspects() {
		d.Aspects = append(d.Aspects, a.AspectName())
	}
	if pk := e.PrimaryKey(); pk != nil {
		d.PrimaryKey = pk.Columns()
	}
	for _, p := range e.Properties() {
		pd := propertyDescription{
			Name:      p.Name(),
			Type:      p.Type().String(),
			Nullable:  p.IsNullable(),
			Virtual:   p.IsVirtual(),
			ReadOnly:  !p.Able(exec.Assign),
			Reference: p.ReferenceTo(),
			Inherited: p.InheritedFrom(),
			Access:    p.AccessGroups(),
		}
		if !p.IsVirtual() {
			pd.Column = p.FieldName()
		}
		d.Properties = append(d.Properties, pd)
	}
	for _, k := range e.Keys() {
		if k.IsPrimary() {
			continue
		}
		d.Keys = append(d.Keys, keyDescription{Name: k.Name(), Columns: k.Columns(), Unique: k.IsUnique()})
	}
	for _, r := range e.Relations() {
		d.Relations = append(d.Relations, relationDescription{
			To:       r.Right(),
			Type:     r.Type().String(),
			Required: r.IsRequired(),
		})
	}
	return d
}
