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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// runHistoryCommand lists journaled applies, newest first.
func runHistoryCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	store, err := openHistory(logger.Slog())
	if err != nil {
		os.Exit(OutputError("failed to open history", err))
	}
	defer store.Close()

	entries, err := store.List(context.Background(), historyLimit)
	if err != nil {
		os.Exit(OutputError("failed to list history", err))
	}

	if quietMode {
		os.Exit(CLIExitSuccess)
	}
	if jsonOutput {
		if err := OutputJSON(entries); err != nil {
			os.Exit(OutputError("failed to encode output", err))
		}
		os.Exit(CLIExitSuccess)
	}

	if len(entries) == 0 {
		fmt.Println("No applies recorded yet.")
		os.Exit(CLIExitSuccess)
	}
	styled := isInteractive()
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "FAILED"
		}
		line := fmt.Sprintf("%s  %-6s  %s", e.CreatedAt.Format("2006-01-02 15:04:05"), status, summarizePrompt(e.Prompt))
		if styled && !e.Success {
			line = styles.Error.Render(line)
		}
		fmt.Println(line)
		if len(e.AffectedRefs) > 0 {
			refs := "    refs: " + strings.Join(e.AffectedRefs, ", ")
			if styled {
				refs = styles.Muted.Render(refs)
			}
			fmt.Println(refs)
		}
	}
	os.Exit(CLIExitSuccess)
}

func summarizePrompt(prompt string) string {
	if prompt == "" {
		return "(plan file)"
	}
	if len(prompt) > 60 {
		return prompt[:57] + "..."
	}
	return prompt
}
