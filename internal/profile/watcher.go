package profile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a profiles file when it changes on disk.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func(*Registry)
}

// NewWatcher creates a watcher for path. onChange receives every registry
// that loads successfully; invalid files are logged and skipped.
func NewWatcher(path string, logger *slog.Logger, onChange func(*Registry)) *Watcher {
	return &Watcher{path: path, logger: logger, onChange: onChange}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// that editors replacing the file by rename are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("profile: watch dir %q: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("profile watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	reg, err := LoadFile(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid profiles file", "path", w.path, "error", err)
		return
	}
	w.logger.Info("profiles reloaded", "path", w.path, "count", reg.Len())
	w.onChange(reg)
}
