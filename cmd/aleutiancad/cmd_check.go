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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianCAD/services/schematic/tasks"
)

// checkTimeout bounds the whole kicad-cli validation run. PDF export of a
// large sheet is the slow path.
const checkTimeout = 2 * time.Minute

// runCheckCommand verifies kicad-cli is installed and runs ERC, netlist
// export and PDF export against the schematic.
func runCheckCommand(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	runner := tasks.NewRunner(tasks.Config{Logger: logger.Slog()})

	version, err := runner.CheckTool(ctx)
	if err != nil {
		if errors.Is(err, tasks.ErrToolNotFound) {
			os.Exit(OutputError("kicad-cli missing", err))
		}
		os.Exit(OutputError("kicad-cli check failed", err))
	}
	infof("kicad-cli %s", version)

	artifacts, err := runner.RunAll(ctx, schematicPath)
	if err != nil {
		os.Exit(OutputError("validation run failed", err))
	}

	if quietMode {
		os.Exit(CLIExitSuccess)
	}
	if jsonOutput {
		if err := OutputJSON(artifacts); err != nil {
			os.Exit(OutputError("failed to encode output", err))
		}
	} else {
		fmt.Println("ERC report:", artifacts.ERCReport)
		fmt.Println("Netlist:   ", artifacts.Netlist)
		fmt.Println("PDF:       ", artifacts.PDF)
	}
	os.Exit(CLIExitSuccess)
}
