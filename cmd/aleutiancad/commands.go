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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	jsonOutput     bool   // Machine-readable output for scripting
	quietMode      bool   // Exit code only, no output
	modelOverride  string // CLI override for the planning model
	schematicPath  string // Path to the schematic document
	planFilePath   string // Pre-generated plan file for apply
	applyPrompt    string // Prompt for plan-then-apply in one step
	dryRun         bool   // Validate the plan without persisting
	assumeYes      bool   // Skip the interactive confirmation
	historyLimit   int    // Page size for the history listing
	watchDebounceS int    // Debounce window for watch, in seconds

	rootCmd = &cobra.Command{
		Use:   "aleutiancad",
		Short: "A cli for AI-assisted schematic editing",
		Long: `AleutianCAD turns natural-language requests into schematic
				edit plans, applies them deterministically, and runs the
				KiCad validation toolchain on the result.`,
	}

	// --- Planning ---
	planCmd = &cobra.Command{
		Use:   "plan [prompt]",
		Short: "Generate an edit plan from a natural-language prompt",
		Args:  cobra.MinimumNArgs(1),
		Run:   runPlanCommand, // Defined in cmd_plan.go
	}

	// --- Applying ---
	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Apply an edit plan to the schematic document",
		Long: `Apply reads a plan from --plan (or generates one from
				--prompt), backs up the schematic, applies the operations,
				and reports per-operation diagnostics.`,
		Run: runApplyCommand, // Defined in cmd_apply.go
	}

	// --- Validation ---
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Run ERC, netlist export and PDF export via kicad-cli",
		Run:   runCheckCommand, // Defined in cmd_check.go
	}

	// --- History ---
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List previously applied plans, newest first",
		Run:   runHistoryCommand, // Defined in cmd_history.go
	}

	// --- Watch ---
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run ERC whenever the schematic changes on disk",
		Run:   runWatchCommand, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "No output, exit code only")
	rootCmd.PersistentFlags().StringVarP(&schematicPath, "schematic", "s", "schematic.json", "Path to the schematic document")

	planCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Planning model (default from config)")

	applyCmd.Flags().StringVarP(&planFilePath, "plan", "p", "", "Path to a plan JSON file")
	applyCmd.Flags().StringVar(&applyPrompt, "prompt", "", "Generate the plan from this prompt instead of a file")
	applyCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Planning model (default from config)")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without writing the schematic")
	applyCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to list (0 = all)")

	watchCmd.Flags().IntVar(&watchDebounceS, "debounce", 0, "Debounce window in seconds (0 = default 500ms)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}
