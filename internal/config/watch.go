package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounce is how long a file must go unwritten before it is reloaded.
const debounce = 200 * time.Millisecond

// Watch reloads the configuration at path whenever it is written and passes
// each valid result to fn. The directory is watched rather than the file so
// that editors which replace the file are still seen. Watch returns once the
// watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, path string, log zerolog.Logger, fn func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	go watchLoop(ctx, watcher, abs, log, fn)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, log zerolog.Logger, fn func(*Config)) {
	defer watcher.Close()
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			reload(path, log, fn)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func reload(path string, log zerolog.Logger, fn func(*Config)) {
	cfg, err := Load(path)
	if err == nil {
		err = cfg.ApplyEnv()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("config reload failed")
		return
	}
	log.Info().Str("path", path).Msg("config reloaded")
	fn(cfg)
}
