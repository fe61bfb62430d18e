package study

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay debounces bursts of writes from editors.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the configured space file whenever it changes, until ctx
// is done. onReload, when not nil, receives the outcome of every reload;
// a failed reload keeps the previous space.
func (s *Study) Watch(ctx context.Context, onReload func(error)) error {
	path := s.cfg.SpaceFile
	if path == "" {
		return errors.New("no space file configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDelay, func() {
				err := s.LoadSpace(path)
				if err != nil {
					s.logger.Warn("space reload failed", "path", path, "error", err)
				} else {
					s.logger.Info("space reloaded", "path", path)
				}
				if onReload != nil {
					onReload(err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}
