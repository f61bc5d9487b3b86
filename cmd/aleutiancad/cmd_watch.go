// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianCAD/services/schematic/tasks"
	"github.com/AleutianAI/AleutianCAD/services/schematic/watcher"
)

// runWatchCommand re-runs ERC every time the schematic is saved. Runs until
// interrupted.
func runWatchCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := tasks.NewRunner(tasks.Config{Logger: logger.Slog()})
	debounce := time.Duration(watchDebounceS) * time.Second

	w, err := watcher.New(watcher.Config{
		Path:     schematicPath,
		Debounce: debounce,
		Logger:   logger.Slog(),
		Callback: func(path string) {
			infof("change detected: %s", path)
			report, err := runner.RunERC(ctx, path)
			if err != nil {
				logger.Error("ERC failed", "error", err)
				infof("ERC failed: %v", err)
				return
			}
			infof("ERC report: %s", report)
		},
	})
	if err != nil {
		os.Exit(OutputError("failed to start watcher", err))
	}
	defer w.Stop()

	infof("watching %s (ctrl-c to stop)", schematicPath)
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(OutputError("watcher stopped", err))
	}
	os.Exit(CLIExitSuccess)
}
