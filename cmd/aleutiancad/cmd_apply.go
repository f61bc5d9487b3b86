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
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianCAD/services/schematic/backup"
	"github.com/AleutianAI/AleutianCAD/services/schematic/history"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
	"github.com/AleutianAI/AleutianCAD/services/schematic/tasks"
	"github.com/AleutianAI/AleutianCAD/services/schematic/writer"
)

// runApplyCommand applies a plan to the schematic document. The plan comes
// from --plan (a file, or "-" for stdin) or is generated from --prompt.
// The schematic is backed up before anything is written.
func runApplyCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()
	ctx := context.Background()

	planBytes, exitCode := resolvePlanBytes(ctx, logger.Slog())
	if exitCode != CLIExitSuccess {
		os.Exit(exitCode)
	}

	plan, err := schema.ParsePlan(planBytes)
	if err != nil {
		os.Exit(OutputError("invalid plan", err))
	}

	doc, existed, err := loadDocument(schematicPath)
	if err != nil {
		os.Exit(OutputError("failed to load schematic", err))
	}

	if !assumeYes && !dryRun && isInteractive() {
		confirmed := false
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("Apply %d operations to %s?", len(plan.Ops), schematicPath)).
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			os.Exit(OutputError("confirmation failed", err))
		}
		if !confirmed {
			infof("Aborted.")
			os.Exit(CLIExitSuccess)
		}
	}

	if existed && !dryRun {
		bakPath, err := backup.Create(schematicPath)
		if err != nil {
			os.Exit(OutputError("failed to back up schematic", err))
		}
		logger.Info("backup created", "path", bakPath)
	}

	applier := writer.New(writer.Config{Logger: logger.Slog()})
	result := applier.Apply(doc, plan)
	renderDiagnostics(result.Diagnostics)

	if !dryRun {
		// Persist and validate only a clean apply; the document in memory may
		// hold partial mutations, but the file on disk stays at the backup
		// state when the plan produced errors.
		if result.Success {
			if err := doc.SerializeToPath(ctx, schematicPath); err != nil {
				os.Exit(OutputError("failed to write schematic", err))
			}
			runPostApplyERC(ctx, logger.Slog())
		} else {
			infof("not persisting %s: plan produced error diagnostics", schematicPath)
		}
		journalApply(ctx, logger.Slog(), planBytes, result)
	}

	if quietMode {
		exitForResult(result)
	}
	if jsonOutput {
		if err := OutputJSON(result); err != nil {
			os.Exit(OutputError("failed to encode output", err))
		}
	} else {
		status := "applied"
		if dryRun {
			status = "validated (dry run)"
		}
		line := fmt.Sprintf("%d operations %s, %d refs affected", len(plan.Ops), status, len(result.AffectedRefs))
		if isInteractive() {
			if result.Success {
				line = styles.Success.Render(line)
			} else {
				line = styles.Error.Render(line)
			}
		}
		fmt.Println(line)
	}
	exitForResult(result)
}

// resolvePlanBytes yields the plan JSON from --plan or --prompt.
func resolvePlanBytes(ctx context.Context, log *slog.Logger) ([]byte, int) {
	switch {
	case planFilePath != "" && applyPrompt != "":
		return nil, OutputError("conflicting flags", fmt.Errorf("--plan and --prompt are mutually exclusive"))
	case planFilePath == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, OutputError("failed to read plan from stdin", err)
		}
		return data, CLIExitSuccess
	case planFilePath != "":
		data, err := os.ReadFile(planFilePath)
		if err != nil {
			return nil, OutputError("failed to read plan file", err)
		}
		return data, CLIExitSuccess
	case applyPrompt != "":
		p, err := buildPlanner(log)
		if err != nil {
			return nil, OutputError("failed to load configuration", err)
		}
		res := p.PlanFromPrompt(ctx, applyPrompt)
		renderDiagnostics(res.Diagnostics)
		data, err := json.Marshal(res.Plan)
		if err != nil {
			return nil, OutputError("failed to encode generated plan", err)
		}
		return data, CLIExitSuccess
	default:
		return nil, OutputError("missing plan", fmt.Errorf("one of --plan or --prompt is required"))
	}
}

// runPostApplyERC runs ERC on the freshly written schematic. kicad-cli is
// optional tooling: absence skips the check, only a real ERC failure is
// surfaced.
func runPostApplyERC(ctx context.Context, log *slog.Logger) {
	runner := tasks.NewRunner(tasks.Config{Logger: log})
	if _, err := runner.CheckTool(ctx); err != nil {
		log.Debug("kicad-cli unavailable, skipping ERC", "error", err)
		return
	}
	report, err := runner.RunERC(ctx, schematicPath)
	if err != nil {
		log.Warn("post-apply ERC failed", "error", err)
		infof("ERC failed: %v", err)
		return
	}
	infof("ERC report: %s", report)
}

// journalApply records the apply in the history store. Journaling is
// best-effort: a failure is logged, never fatal, because the schematic
// write already succeeded.
func journalApply(ctx context.Context, log *slog.Logger, planBytes []byte, result schema.ApplyResult) {
	store, err := openHistory(log)
	if err != nil {
		log.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Append(ctx, history.Entry{
		Prompt:       applyPrompt,
		Plan:         planBytes,
		Success:      result.Success,
		AffectedRefs: result.AffectedRefs,
	}); err != nil {
		log.Warn("failed to journal apply", "error", err)
	}
}

func exitForResult(result schema.ApplyResult) {
	if result.Success {
		os.Exit(CLIExitSuccess)
	}
	os.Exit(CLIExitFindings)
}
