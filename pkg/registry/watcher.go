package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sta4152/datahub/pkg/observability"
)

// DefaultDebounce is the quiet period a Watcher waits for before reloading
const DefaultDebounce = 500 * time.Millisecond

// Reloader reloads a registry
type Reloader interface {
	Load(ctx context.Context, trigger string) error
}

// ReloadFunc adapts a function to Reloader
type ReloadFunc func(ctx context.Context, trigger string) error

// Load calls f
func (f ReloadFunc) Load(ctx context.Context, trigger string) error { return f(ctx, trigger) }

// Reloader returns a Reloader that loads r
func (r *Registry) Reloader() Reloader {
	return ReloadFunc(func(ctx context.Context, trigger string) error {
		_, err := r.Load(ctx, trigger)
		return err
	})
}

// Watcher reloads when schema documents under a directory change. Bursts of
// events are collapsed into one reload.
type Watcher struct {
	dir      string
	reloader Reloader
	debounce time.Duration
	logger   *observability.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher watches dir and every directory below it
func NewWatcher(dir string, reloader Reloader, debounce time.Duration, logger *observability.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		dir:      dir,
		reloader: reloader,
		debounce: debounce,
		logger:   logger.WithField("component", "watcher"),
		watcher:  fw,
	}
	if err := w.addTree(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree recursively adds all directories to the watcher
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer observability.RecoverPanic(w.logger, "registry watcher")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.WithField("dir", w.dir).Info("Started watching schema documents")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		case <-timer.C:
			if err := w.reloader.Load(ctx, TriggerWatch); err != nil {
				w.logger.WithError(err).Warn("Reload after change failed, keeping previous snapshot")
			}
		}
	}
}

// handle reports whether event should trigger a reload
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			w.logger.WithField("dir", event.Name).Debug("New directory")
			if err := w.addTree(event.Name); err != nil {
				w.logger.WithError(err).Warn("Failed to watch new directory")
			}
			return true
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !IsSchemaDocument(event.Name) || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	w.logger.WithField("file", event.Name).Debug("Schema document changed")
	return true
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
