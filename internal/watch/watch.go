// Package watch re-indexes files as they change on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceWindow coalesces editor save bursts.
const DefaultDebounceWindow = 500 * time.Millisecond

// Handler is invoked for each changed file after debouncing.
type Handler func(ctx context.Context, path string)

// Watcher watches a directory tree and feeds changed files to a
// handler. New subdirectories are picked up as they appear.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	accept    func(path string) bool
}

// New creates a watcher over root. accept filters changed paths; nil
// accepts everything.
func New(root string, window time.Duration, accept func(path string) bool) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:      root,
		fsw:       fsw,
		debouncer: NewDebouncer(window),
		accept:    accept,
	}
	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers root and every non-hidden subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run blocks, dispatching debounced change events to handler until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	defer w.debouncer.Stop()
	defer func() { _ = w.fsw.Close() }()

	slog.Info("watch_started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch_stopped", slog.String("root", w.root))
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))

		case batch := <-w.debouncer.Output():
			for _, path := range batch {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				handler(ctx, path)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// Watch new directories as they appear.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				_ = w.addRecursive(event.Name)
			}
			return
		}
	}

	if !w.accept(event.Name) {
		return
	}
	w.debouncer.Add(event.Name)
}
