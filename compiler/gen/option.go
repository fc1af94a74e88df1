package gen

import (
	"errors"
	"go/token"
	"log/slog"
	"path/filepath"
	"runtime"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by entmeta. DO NOT EDIT."

// Config configures code generation.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the name of the generated package. It defaults to the
	// base name of Target.
	Package string
	// Header is the comment at the top of each generated file.
	Header string
	// Workers bounds the files written in parallel.
	Workers int
	// Logger receives a line per generated file.
	Logger *slog.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithPackage sets the name of the generated package.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) {
			return NewConfigError("Package", pkg, "package must be a Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithHeader sets the file header comment.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a Config with the given options and fills in the
// defaults.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Header:  DefaultHeader,
		Workers: runtime.GOMAXPROCS(0),
		Logger:  slog.Default(),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	if c.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	if c.Package == "" {
		c.Package = filepath.Base(filepath.Clean(c.Target))
		if !token.IsIdentifier(c.Package) {
			return nil, NewConfigError("Package", c.Package, "target base name is not a Go identifier; use WithPackage")
		}
	}
	return c, nil
}
