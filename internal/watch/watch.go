// Package watch rebuilds assets when source images change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Always ignored: VCS metadata, editor swap files, imgset's own state and
// the temp files written by atomic saves.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.imgset/**",
	"**/.imgset-*.tmp",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Dir is the directory to watch recursively.
	Dir string
	// Patterns select the files that trigger a rebuild, relative to Dir.
	// Empty matches every file.
	Patterns []string
	// Ignore lists extra patterns that never trigger a rebuild.
	Ignore   []string
	Debounce time.Duration
	// OnChange receives the changed paths, slash-separated and relative to
	// Dir. Calls never overlap.
	OnChange func(ctx context.Context, changed []string) error
	Log      *slog.Logger
}

// Watcher fires a debounced callback when matching files change.
type Watcher struct {
	cfg     Config
	dir     string
	ignores []string
	fsw     *fsnotify.Watcher
	log     *slog.Logger
	started atomic.Bool
}

// New creates a Watcher and registers every non-ignored directory under
// cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	for _, p := range slices.Concat(cfg.Patterns, cfg.Ignore) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		dir:     dir,
		ignores: slices.Concat(defaultIgnores, cfg.Ignore),
		fsw:     fsw,
		log:     log,
	}
	if err := w.addTree(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation, after any OnChange call in progress has finished. Run may
// only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watcher already running")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.log.Warn("closing file watcher", "err", err)
		}
	}()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		stopped bool
		// busy is held while OnChange runs.
		busy sync.Mutex
	)

	fire := func() {
		busy.Lock()
		defer busy.Unlock()

		mu.Lock()
		if stopped || ctx.Err() != nil {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.log.Error("rebuild failed", "err", err)
		}
	}
	// Run returns only once no OnChange call is in flight.
	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()

		busy.Lock()
		busy.Unlock() //nolint:staticcheck // waits for a running fire
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			rel, ok := w.relevant(evt)
			if !ok {
				continue
			}
			w.log.Debug("change detected", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.cfg.Debounce, fire)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("file events dropped", "err", err)
				continue
			}
			return fmt.Errorf("watching %s: %w", w.dir, err)
		}
	}
}

// relevant reports whether evt should trigger a rebuild and returns its
// slash-separated path relative to the watched directory. Newly created
// directories are added to the watch list.
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return "", false
	}
	rel, err := filepath.Rel(w.dir, evt.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return "", false
	}

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			if err := w.addTree(evt.Name); err != nil {
				w.log.Warn("watching new directory", "path", rel, "err", err)
			}
			return "", false
		}
	}

	return rel, w.matches(rel)
}

// addTree watches root and every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Debug("skipping unreadable path", "path", p, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.dir, p)
		if err != nil {
			return nil
		}
		if rel != "." && (w.ignored(filepath.ToSlash(rel)) || w.ignored(filepath.ToSlash(rel)+"/")) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(rel string) bool {
	for _, p := range w.ignores {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(rel string) bool {
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	for _, p := range w.cfg.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
