package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 2 * time.Second

// Filter decides which paths under Root are relevant. *scanner.Scanner
// satisfies it.
type Filter interface {
	Root() string
	Matches(rel string) bool
	ExcludesDir(name string) bool
}

// TriggerFunc runs once per debounced burst of events.
type TriggerFunc func(ctx context.Context) error

// Watcher watches a directory tree and calls a trigger after file activity
// settles.
type Watcher struct {
	filter   Filter
	debounce time.Duration
	trigger  TriggerFunc
	logger   zerolog.Logger

	fsw     *fsnotify.Watcher
	dirs    map[string]bool
	started chan struct{}
}

// New creates a Watcher. A non-positive debounce selects DefaultDebounce.
func New(filter Filter, debounce time.Duration, trigger TriggerFunc, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		filter:   filter,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger.With().Str("component", "watcher").Logger(),
		dirs:     make(map[string]bool),
		started:  make(chan struct{}),
	}
}

// Started is closed once the initial directory tree is being watched.
func (w *Watcher) Started() <-chan struct{} {
	return w.started
}

// Run blocks until ctx is cancelled. Trigger errors are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	if err := w.addRecursive(w.filter.Root()); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	close(w.started)
	w.logger.Info().Str("root", w.filter.Root()).Int("dirs", len(w.dirs)).Dur("debounce", w.debounce).Msg("watching for changes")

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	w.logger.Info().Msg("changes settled, updating index")
	if err := w.trigger(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error().Err(err).Msg("triggered update failed")
	}
}

// relevant reports whether an event can change the indexed file set.
// New directories are added to the watch list as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	rel, err := filepath.Rel(w.filter.Root(), event.Name)
	if err != nil {
		return false
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.dirs[event.Name] {
			delete(w.dirs, event.Name)
			return true
		}
		return w.filter.Matches(rel)
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.filter.ExcludesDir(info.Name()) {
				return false
			}
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
			}
			return true
		}
	}

	return w.filter.Matches(rel)
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable directory")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.filter.ExcludesDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.dirs[path] = true
		return nil
	})
}
