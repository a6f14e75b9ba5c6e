package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors produce per save.
var watchDebounce = 200 * time.Millisecond

// Watch blocks until ctx is cancelled, calling onChange with the reloaded
// config after each settled change to path. The parent directory is watched
// so that rename-over saves and delete/recreate cycles are seen.
func Watch(ctx context.Context, path string, onChange func(Config, error)) error {
	if path == "" {
		return fmt.Errorf("watch config: path required")
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config: add %s: %w", filepath.Dir(target), err)
	}
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", target)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
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

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerCh = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)

		case <-timerCh:
			timerCh = nil
			cfg, loadErr := Load(target)
			if loadErr != nil {
				slog.Warn("[WARN-CONFIG] reload after change failed", "path", target, "error", loadErr)
			} else {
				slog.Info("[CONFIG] reloaded after change", "path", target)
			}
			if onChange != nil {
				onChange(cfg, loadErr)
			}
		}
	}
}
