package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/entmeta/compiler/gen"
	"github.com/syssam/entmeta/entity"
)

type genFlags struct {
	target string
	pkg    string
}

func newGenCmd(a *app) *cobra.Command {
	var f genFlags
	cmd := &cobra.Command{
		Use:   "gen [entity...]",
		Short: "Generate Go constants for built entities",
		Long: `Builds the named entities, or every declared entity, and writes one Go
file per entity with its table, property, column and relation names.

The target directory and package default to the gen section of
entmeta.yaml.

Examples:
  entmeta gen
  entmeta gen --target ./internal/model --package model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), cmd.OutOrStdout(), reg, f, args...)
		},
	}
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "output directory")
	cmd.Flags().StringVarP(&f.pkg, "package", "p", "", "package name of the generated files")
	return cmd
}

func (a *app) generate(ctx context.Context, out io.Writer, reg *entity.Registry, f genFlags, names ...string) error {
	target, pkg := a.cfg.GenTarget(), a.cfg.GenPackage()
	if f.target != "" {
		target, pkg = f.target, ""
	}
	if f.pkg != "" {
		pkg = f.pkg
	}
	opts := []gen.Option{gen.WithTarget(target), gen.WithLogger(a.logger)}
	if pkg != "" {
		opts = append(opts, gen.WithPackage(pkg))
	}
	g, err := gen.New(reg, opts...)
	if err != nil {
		return err
	}
	files, err := g.Generate(ctx, names...)
	if err != nil {
		return err
	}
	for _, file := range files {
		fmt.Fprintln(out, file)
	}
	return nil
}
