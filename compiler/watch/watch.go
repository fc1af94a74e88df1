// Package watch reports changes to entity declaration files.
//
// A Watcher watches directories and calls back with the changed
// declaration files once they have been quiet for the debounce delay, so
// an editor saving several files yields one rebuild.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before changes are reported.
const DefaultDebounce = 100 * time.Millisecond

// Config holds configuration options for the Watcher.
type Config struct {
	// Dirs are the watched directories. Subdirectories are not watched.
	Dirs []string
	// Match selects the relevant files. Defaults to YAML files.
	Match func(path string) bool
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// OnChange receives the changed files, sorted. It runs on the
	// watching goroutine.
	OnChange func(ctx context.Context, paths []string)
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Watcher monitors declaration directories.
type Watcher struct {
	dirs     []string
	match    func(string) bool
	debounce time.Duration
	onChange func(context.Context, []string)
	logger   *slog.Logger
}

// New creates a Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, fmt.Errorf("watch: no directory to watch")
	}
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("watch: change callback is required")
	}
	w := &Watcher{
		dirs:     slices.Compact(slices.Sorted(slices.Values(cfg.Dirs))),
		match:    cfg.Match,
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
	}
	if w.match == nil {
		w.match = IsDeclaration
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// IsDeclaration reports whether path names a YAML file.
func IsDeclaration(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Dirs returns the watched directories of file patterns such as
// "schema/*.yaml".
func Dirs(patterns ...string) []string {
	dirs := make([]string, 0, len(patterns))
	for _, p := range patterns {
		dirs = append(dirs, filepath.Dir(p))
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create file watcher: %w", err)
	}
	defer fw.Close()
	for _, d := range w.dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("watch: %s: %w", d, err)
		}
		w.logger.Debug("watching declarations", "dir", d)
	}

	var (
		pending = make(map[string]struct{})
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("declaration changed", "op", ev.Op.String(), "path", ev.Name)
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			paths := slices.Sorted(maps.Keys(pending))
			clear(pending)
			w.onChange(ctx, paths)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.match(ev.Name)
}
