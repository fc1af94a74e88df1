// Package config loads the project configuration of entmeta: the naming
// strategy, logging, storages and the declaration files of entities.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/entmeta/entity"
	"github.com/syssam/entmeta/naming"
	"github.com/syssam/entmeta/privacy"
	"github.com/syssam/entmeta/schema/mixin"
)

// DefaultFile is the configuration file looked up by the CLI.
const DefaultFile = "entmeta.yaml"

// Config is the content of an entmeta.yaml file.
//
//	naming: snake
//	log_level: debug
//	default_storage: main
//	storages:
//	  main:
//	    dialect: postgres
//	    dsn: postgres://app@localhost:5432/shop?sslmode=disable
//	    slow_query: 200ms
//	declarations:
//	  - schema/*.yaml
//	gen:
//	  target: ./model
//	  package: model
type Config struct {
	// Naming is the name of the naming strategy (camel, snake or
	// snake_table_camel_field). Defaults to camel.
	Naming string `yaml:"naming,omitempty"`

	// LogLevel is one of debug, info, warn or error. Defaults to info.
	LogLevel string `yaml:"log_level,omitempty"`

	// DefaultStorage names the storage of entities declaring none.
	DefaultStorage string `yaml:"default_storage,omitempty"`

	// Storages maps storage names to their connection settings.
	Storages map[string]*Storage `yaml:"storages,omitempty"`

	// Declarations are glob patterns of entity declaration files,
	// relative to the configuration file.
	Declarations []string `yaml:"declarations,omitempty"`

	// Gen configures code generation.
	Gen Gen `yaml:"gen,omitempty"`

	dir string
}

// Gen configures code generation.
type Gen struct {
	// Target is the output directory. Defaults to "model".
	Target string `yaml:"target,omitempty"`
	// Package is the package name of the generated files. Defaults to the
	// base name of Target.
	Package string `yaml:"package,omitempty"`
}

// Default returns the configuration used without a configuration file.
func Default() *Config {
	return &Config{
		Naming:       naming.CamelName,
		LogLevel:     "info",
		Declarations: []string{"schema/*.yaml"},
		Gen:          Gen{Target: "model"},
		dir:          ".",
	}
}

// Load reads the configuration file at path. Environment variables
// ENTMETA_NAMING and ENTMETA_LOG_LEVEL override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		c = Default()
		c.applyEnv()
		return c, c.Validate()
	}
	return c, err
}

// Parse decodes and validates a configuration. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Naming = getenv("ENTMETA_NAMING", c.Naming)
	c.LogLevel = getenv("ENTMETA_LOG_LEVEL", c.LogLevel)
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// Validate checks the naming strategy, the log level and every storage.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := naming.ByName(c.Naming); !ok {
		errs = append(errs, fmt.Errorf("unknown naming strategy %q", c.Naming))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.DefaultStorage != "" {
		if _, ok := c.Storages[c.DefaultStorage]; !ok {
			errs = append(errs, fmt.Errorf("default storage %q is not configured", c.DefaultStorage))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.Storages)) {
		s := c.Storages[name]
		if s == nil {
			errs = append(errs, fmt.Errorf("storage %q: empty", name))
			continue
		}
		if _, err := s.Database(); err != nil {
			errs = append(errs, fmt.Errorf("storage %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// Strategy returns the configured naming strategy.
func (c *Config) Strategy() naming.Strategy {
	if s, ok := naming.ByName(c.Naming); ok {
		return s
	}
	return naming.Default
}

// RegistryOptions returns the registry options of the configuration. The
// aspects of package mixin and the privacy aspect are always available by
// name.
func (c *Config) RegistryOptions(logger *slog.Logger) []entity.Option {
	opts := []entity.Option{
		entity.WithNaming(c.Strategy()),
		entity.WithAspectFactory(mixin.Factory().Merge(privacy.Factory())),
	}
	if logger != nil {
		opts = append(opts, entity.WithLogger(logger))
	}
	if c.DefaultStorage != "" {
		opts = append(opts, entity.WithStorage(c.DefaultStorage))
	}
	return opts
}

// DeclarationFiles expands the declaration patterns, sorted and without
// duplicates.
func (c *Config) DeclarationFiles() ([]string, error) {
	var files []string
	for _, pattern := range c.Declarations {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(c.dir, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("config: declarations %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// Dir returns the directory of the configuration file.
func (c *Config) Dir() string { return c.dir }

// GenTarget returns the code generation directory, relative to the
// configuration file.
func (c *Config) GenTarget() string {
	t := c.Gen.Target
	if t == "" {
		t = "model"
	}
	if filepath.IsAbs(t) {
		return t
	}
	return filepath.Join(c.dir, t)
}

// GenPackage returns the package name of generated files.
func (c *Config) GenPackage() string {
	if c.Gen.Package != "" {
		return c.Gen.Package
	}
	return filepath.Base(c.GenTarget())
}

// SlowQuery is a duration decoded from strings such as "200ms".
type SlowQuery time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *SlowQuery) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: slow_query: %w", n.Line, err)
	}
	*d = SlowQuery(v)
	return nil
}
