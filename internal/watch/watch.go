// Package watch reports changes to a small set of files, such as the launch
// document and the config file.
//
// Files are watched through their parent directories, so creation, removal
// and atomic replacement (write to a temp file, then rename) are all seen.
// A target whose directory does not exist yet is watched through its
// nearest existing ancestor until the directory appears.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Handler receives the targets that changed during one debounce window,
// sorted.
type Handler func(changed []string)

// Watcher watches a fixed set of target files.
type Watcher struct {
	fw       *fsnotify.Watcher
	targets  map[string]struct{}
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watched map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last event before the
// handler runs. Zero or negative selects DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher for the given files. Targets need not exist.
func New(targets []string, opts ...Option) (*Watcher, error) {
	if len(targets) == 0 {
		return nil, errors.New("no files to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		fw:      fw,
		targets: make(map[string]struct{}, len(targets)),
		watched: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	for _, t := range targets {
		abs, err := filepath.Abs(t)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve %q: %w", t, err)
		}
		w.targets[abs] = struct{}{}
	}
	if err := w.sync(); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Targets returns the watched files, sorted.
func (w *Watcher) Targets() []string {
	out := make([]string, 0, len(w.targets))
	for t := range w.targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Run delivers changes to fn until ctx is done or the watcher is closed.
// fn runs on the calling goroutine.
func (w *Watcher) Run(ctx context.Context, fn Handler) error {
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
			return ctx.Err()

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			changed := w.handle(ev)
			if len(changed) == 0 {
				continue
			}
			for _, c := range changed {
				pending[c] = struct{}{}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for c := range pending {
				changed = append(changed, c)
			}
			clear(pending)
			sort.Strings(changed)
			fn(changed)
		}
	}
}

// Close stops the watcher. Run returns once the event channels close.
func (w *Watcher) Close() error { return w.fw.Close() }

// handle maps an event to the targets it affects.
func (w *Watcher) handle(ev fsnotify.Event) []string {
	name := filepath.Clean(ev.Name)
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		// A directory on the way to a target may have appeared or gone.
		if w.isAncestor(name) {
			if err := w.sync(); err != nil {
				w.logger.Warn("failed to update watched directories", "error", err)
			}
			var changed []string
			for t := range w.targets {
				if strings.HasPrefix(t, name+string(filepath.Separator)) {
					if _, err := os.Stat(t); err == nil || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
						changed = append(changed, t)
					}
				}
			}
			return changed
		}
	}
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	if _, ok := w.targets[name]; ok {
		return []string{name}
	}
	return nil
}

func (w *Watcher) isAncestor(path string) bool {
	for t := range w.targets {
		if strings.HasPrefix(t, path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// sync watches the deepest existing directory on the way to each target.
func (w *Watcher) sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	want := make(map[string]struct{})
	for t := range w.targets {
		dir := filepath.Dir(t)
		for {
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		want[dir] = struct{}{}
	}

	for dir := range want {
		if _, ok := w.watched[dir]; ok {
			continue
		}
		if err := w.fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.watched[dir] = struct{}{}
	}
	for dir := range w.watched {
		if _, ok := want[dir]; ok {
			continue
		}
		// The directory may already be gone, which removes the watch.
		_ = w.fw.Remove(dir)
		delete(w.watched, dir)
	}
	return nil
}
