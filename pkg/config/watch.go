package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/MannuMourya/Learner-API/pkg/observability"
)

// WatchFile reloads the configuration each time the file at path is written
// or replaced and passes it to onChange. It blocks until ctx is done. A
// reload that fails to parse or validate is logged and skipped.
//
// The parent directory is watched rather than the file so that editors which
// save by rename are still seen.
func WatchFile(ctx context.Context, path string, logger *observability.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	logger = logger.WithField("config_file", path)
	logger.Debug("Watching configuration file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Writers truncate before writing; the empty file is not a change.
			if info, err := os.Stat(path); err != nil || info.Size() == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.WithError(err).Warn("Ignoring invalid configuration change")
				continue
			}
			logger.Info("Configuration reloaded")
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Config watcher error")
		}
	}
}
