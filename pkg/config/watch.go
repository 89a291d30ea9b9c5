package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rmax-ai/wattwise/pkg/analysis"
)

const defaultDebounce = 100 * time.Millisecond

// WatchRates reloads path whenever it changes and passes the new tables to
// onChange. Invalid files are logged and skipped so the last good tables
// stay active. It blocks until ctx is cancelled.
//
// The parent directory is watched because editors often replace files by
// rename, which drops a watch placed on the file itself.
func WatchRates(ctx context.Context, path string, debounce time.Duration, onChange func(analysis.Tables)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve rates path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			tables, err := LoadRates(abs)
			if err != nil {
				slog.Warn("rates_reload_failed", "component", "config", "path", abs, "error", err)
				continue
			}
			slog.Info("rates_reloaded", "component", "config", "path", abs)
			onChange(tables)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("rates_watch_error", "component", "config", "error", err)
		}
	}
}
