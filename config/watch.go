package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the reloaded configuration each time the file at
// path is written, created or renamed into place. A resolved Registry never
// changes, so fn is expected to build a new one from the Config it gets.
// Files that fail to load are logged and skipped. Watch blocks until ctx is
// done.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	defer w.Close()

	// Editors replace files rather than write them in place, so watch the
	// directory and filter on the name.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				logger.WarnContext(ctx, "config reload failed", "path", abs, "error", err)
				continue
			}
			logger.InfoContext(ctx, "config reloaded", "path", abs, "daos", len(cfg.DAOs))
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "config watcher error", "error", err)
		}
	}
}
