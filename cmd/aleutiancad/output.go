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
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with error diagnostics
	CLIExitError    = 2 // Operation failed
)

// Deep ocean teal palette, shared with the rest of the Aleutian tools.
var (
	colorTealBright = lipgloss.Color("#2CD7C7")
	colorWarning    = lipgloss.Color("#F4D03F")
	colorError      = lipgloss.Color("#E74C3C")
	colorMuted      = lipgloss.Color("#2C4A54")
)

var styles = struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorTealBright),
	Success: lipgloss.NewStyle().Foreground(colorTealBright),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
}

// isInteractive reports whether stdout is a real terminal. Styling and the
// confirmation prompt are disabled when output is piped.
func isInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// severityStyle maps a diagnostic severity to its display style.
func severityStyle(s schema.Severity) lipgloss.Style {
	switch s {
	case schema.SeverityError:
		return styles.Error
	case schema.SeverityWarning:
		return styles.Warning
	default:
		return styles.Muted
	}
}

// renderDiagnostics writes the diagnostic trail to stderr, one line per
// diagnostic, styled when the terminal supports it.
func renderDiagnostics(diags []schema.Diagnostic) {
	if quietMode {
		return
	}
	styled := isInteractive()
	for _, d := range diags {
		line := fmt.Sprintf("[%s/%s] %s", d.Stage, d.Severity, d.Message)
		if styled {
			line = severityStyle(d.Severity).Render(line)
		}
		fmt.Fprintln(os.Stderr, line)
		if d.Suggestion != "" {
			hint := "  hint: " + d.Suggestion
			if styled {
				hint = styles.Muted.Render(hint)
			}
			fmt.Fprintln(os.Stderr, hint)
		}
	}
}

// OutputJSON writes structured data as indented JSON to stdout.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// OutputError writes an error in the appropriate format and returns the
// exit code to use.
func OutputError(msg string, err error) int {
	if quietMode {
		return CLIExitError
	}
	if jsonOutput {
		_ = OutputJSON(map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)})
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
	return CLIExitError
}

// infof prints a status line to stderr unless quiet.
func infof(format string, args ...interface{}) {
	if quietMode {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
