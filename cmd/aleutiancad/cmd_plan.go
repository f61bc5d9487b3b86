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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// runPlanCommand generates a plan from the prompt and prints it to stdout.
// The plan JSON always goes to stdout so it can be piped into `apply
// --plan -` style workflows; diagnostics go to stderr.
func runPlanCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	prompt := strings.Join(args, " ")
	p, err := buildPlanner(logger.Slog())
	if err != nil {
		os.Exit(OutputError("failed to load configuration", err))
	}

	res := p.PlanFromPrompt(context.Background(), prompt)
	renderDiagnostics(res.Diagnostics)

	if !quietMode {
		if jsonOutput {
			if err := OutputJSON(map[string]interface{}{
				"plan":        res.Plan,
				"diagnostics": res.Diagnostics,
			}); err != nil {
				os.Exit(OutputError("failed to encode output", err))
			}
		} else {
			data, err := json.MarshalIndent(res.Plan, "", "  ")
			if err != nil {
				os.Exit(OutputError("failed to encode plan", err))
			}
			fmt.Println(string(data))
		}
	}

	if res.HasErrors() {
		os.Exit(CLIExitFindings)
	}
	os.Exit(CLIExitSuccess)
}
