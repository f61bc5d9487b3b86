// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watcher notifies when the schematic file is modified externally,
// e.g. saved from the editor while this tool holds a parsed copy.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces
// (write, chmod, rename dance) into a single callback.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher watches one schematic file for external modification.
//
// Safe for concurrent use. Start should only be called once.
type FileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	callback func(path string)
	log      *slog.Logger
}

// Config configures a FileWatcher.
type Config struct {
	// Path is the schematic file to watch.
	Path string
	// Debounce is the quiet period before the callback fires. Zero selects
	// DefaultDebounce.
	Debounce time.Duration
	// Callback runs after a debounced modification. Required.
	Callback func(path string)
	// Logger receives progress logging. Nil selects slog.Default().
	Logger *slog.Logger
}

// New creates a watcher for external schematic changes.
func New(cfg Config) (*FileWatcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("watcher: path is required")
	}
	if cfg.Callback == nil {
		return nil, fmt.Errorf("watcher: callback is required")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &FileWatcher{
		path:     cfg.Path,
		debounce: debounce,
		watcher:  w,
		callback: cfg.Callback,
		log:      log,
	}, nil
}

// Start begins watching. Blocks until the context is cancelled; run it in a
// goroutine.
//
// The parent directory is watched rather than the file itself: editors that
// save via temp-file + rename replace the inode, which silently drops a
// direct file watch.
func (w *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Debug("watching schematic", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug("schematic changed on disk", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.callback(w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop releases the underlying fsnotify watcher.
func (w *FileWatcher) Stop() error { return w.watcher.Close() }
