package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/entmeta/compiler/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		generate bool
		f        genFlags
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild entities when declaration files change",
		Long: `Watches the directories of the declaration files and rebuilds every
entity after each change. Build errors are reported and watching goes on.
With --gen, code is generated after each successful build.

Examples:
  entmeta watch
  entmeta watch --gen --target ./model`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := a.declarationFiles()
			if err != nil {
				return err
			}
			rebuild := func(ctx context.Context, changed []string) {
				if err := a.rebuild(ctx, cmd.OutOrStdout(), generate, f); err != nil {
					a.logger.Warn("rebuild failed", "changed", changed, "error", err)
				}
			}
			w, err := watch.New(watch.Config{
				Dirs:     watch.Dirs(files...),
				OnChange: rebuild,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}
			rebuild(cmd.Context(), nil)
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&generate, "gen", false, "generate code after each build")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "output directory of --gen")
	cmd.Flags().StringVarP(&f.pkg, "package", "p", "", "package name of --gen")
	return cmd
}

// rebuild reloads the declarations and builds every entity.
func (a *app) rebuild(ctx context.Context, out io.Writer, generate bool, f genFlags) error {
	reg, err := a.registry(ctx)
	if err != nil {
		return err
	}
	entities, err := reg.BuildAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "built %d entities\n", len(entities))
	if !generate {
		return nil
	}
	return a.generate(ctx, out, reg, f)
}
