// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig calls apply with the new configuration every time the file at
// path is written or replaced, until ctx is done. Files that fail to load
// are logged and skipped.
//
// The directory of path is watched rather than the file itself, so editors
// that save by renaming a temporary file are seen too.
func WatchConfig(ctx context.Context, path string, apply func(Config)) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("renderer: watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("renderer: watch config: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path ||
				!event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig(path)
			if err != nil {
				slogger().Warn("renderer: config reload failed", "path", path, "err", err)
				continue
			}
			slogger().Info("renderer: config reloaded", "path", path)
			apply(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slogger().Warn("renderer: config watcher", "err", err)
		}
	}
}
