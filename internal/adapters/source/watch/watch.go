// Package watch re-runs a callback whenever a local file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/stagerank/pkg/logger"
)

// File calls onChange each time path is written or recreated, until ctx is
// cancelled. A failing onChange is logged and watching continues.
//
// The parent directory is watched so editors that save by rename are seen.
func File(ctx context.Context, path string, log logger.Logger, onChange func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	log.Info(ctx, "watching results file", logger.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := onChange(ctx); err != nil {
				log.Error(ctx, "reload failed, keeping previous results",
					logger.String("path", abs), logger.Error(err))
				continue
			}
			log.Info(ctx, "results file reloaded", logger.String("path", abs))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "watcher error", logger.Error(err))
		}
	}
}
