package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/syssam/entmeta/compiler/load"
	"github.com/syssam/entmeta/config"
	"github.com/syssam/entmeta/entity"
)

// app holds the global flags and the state resolved from them.
type app struct {
	configPath string
	logLevel   string
	files      []string

	errOut io.Writer
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{errOut: errOut}
	root := &cobra.Command{
		Use:   "entmeta",
		Short: "Entity metadata tool",
		Long: `entmeta builds entity metadata from YAML declarations.

The declaration files are listed in entmeta.yaml or given with --file.

Examples:
  entmeta describe Book Publisher
  entmeta graphql --out schema.graphql
  entmeta gen --target ./model`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.init() },
	}
	root.SetOut(out)
	root.SetErr(errOut)
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultFile, "configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringSliceVarP(&a.files, "file", "f", nil, "declaration file, in addition to the configured ones")

	root.AddCommand(
		newDescribeCmd(a),
		newGraphQLCmd(a),
		newGenCmd(a),
		newWatchCmd(a),
	)
	return root
}

// init loads the configuration and sets up logging.
func (a *app) init() error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if _, err := cfg.Level(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = cfg.Logger(a.errOut)
	return nil
}

// declarationFiles returns the configured declaration files followed by
// the ones given on the command line.
func (a *app) declarationFiles() ([]string, error) {
	files, err := a.cfg.DeclarationFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range a.files {
		if !slices.Contains(files, f) {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no declaration files; set declarations in %s or use --file", a.configPath)
	}
	return files, nil
}

// registry loads every declaration file into a new registry. Entities are
// built on demand.
func (a *app) registry(ctx context.Context) (*entity.Registry, error) {
	files, err := a.declarationFiles()
	if err != nil {
		return nil, err
	}
	schemas, err := load.Files(ctx, files...)
	if err != nil {
		return nil, err
	}
	reg, err := entity.NewRegistry(a.cfg.RegistryOptions(a.logger)...)
	if err != nil {
		return nil, err
	}
	if err := load.Register(reg, schemas...); err != nil {
		return nil, err
	}
	a.logger.Debug("declarations loaded", "files", len(files), "entities", len(schemas))
	return reg, nil
}
