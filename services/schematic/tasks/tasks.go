// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tasks drives the external kicad-cli tool: electrical rules check,
// netlist export and PDF export. Output files are placed next to the
// schematic with the extension swapped.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrToolNotFound reports that kicad-cli is not installed or not on PATH.
var ErrToolNotFound = errors.New("kicad-cli not found in PATH, install KiCad >= 7.0")

const defaultCLI = "kicad-cli"

// Runner invokes kicad-cli against a schematic file.
type Runner struct {
	cli string
	log *slog.Logger
}

// Config configures a Runner.
type Config struct {
	// CLI overrides the kicad-cli binary name or path. Empty selects the
	// PATH lookup of "kicad-cli".
	CLI string
	// Logger receives progress logging. Nil selects slog.Default().
	Logger *slog.Logger
}

// NewRunner returns a Runner with the given configuration.
func NewRunner(cfg Config) *Runner {
	cli := cfg.CLI
	if cli == "" {
		cli = defaultCLI
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cli: cli, log: log}
}

// CheckTool verifies kicad-cli is installed and returns its version line.
func (r *Runner) CheckTool(ctx context.Context) (string, error) {
	if _, err := exec.LookPath(r.cli); err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, r.cli, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("kicad-cli --version failed: %w", err)
	}
	version := strings.TrimSpace(string(out))
	r.log.Info("found kicad-cli", "version", version)
	return version, nil
}

// outputPath swaps the schematic's extension, so demo.kicad_sch becomes
// demo.erc.txt, demo.net, demo.pdf.
func outputPath(sch, ext string) string {
	return strings.TrimSuffix(sch, filepath.Ext(sch)) + ext
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	if _, err := exec.LookPath(r.cli); err != nil {
		return fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	cmd := exec.CommandContext(ctx, r.cli, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", r.cli, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// RunERC runs the electrical rules check and returns the report path.
func (r *Runner) RunERC(ctx context.Context, sch string) (string, error) {
	out := outputPath(sch, ".erc.txt")
	r.log.Info("running ERC", "schematic", sch, "report", out)
	if err := r.run(ctx, "sch", "erc", sch, "-o", out, "--format", "report"); err != nil {
		return "", err
	}
	return out, nil
}

// ExportNetlist exports the netlist and returns its path.
func (r *Runner) ExportNetlist(ctx context.Context, sch string) (string, error) {
	out := outputPath(sch, ".net")
	r.log.Info("exporting netlist", "schematic", sch, "netlist", out)
	if err := r.run(ctx, "sch", "export", "netlist", sch, "-o", out); err != nil {
		return "", err
	}
	return out, nil
}

// ExportPDF exports the schematic as PDF and returns its path.
func (r *Runner) ExportPDF(ctx context.Context, sch string) (string, error) {
	out := outputPath(sch, ".pdf")
	r.log.Info("exporting PDF", "schematic", sch, "pdf", out)
	if err := r.run(ctx, "sch", "export", "pdf", sch, "-o", out); err != nil {
		return "", err
	}
	return out, nil
}

// Artifacts holds the output paths produced by RunAll.
type Artifacts struct {
	ERCReport string
	Netlist   string
	PDF       string
}

// RunAll fans the three kicad-cli invocations out concurrently. The first
// failure cancels the rest; the returned Artifacts is only meaningful when
// err is nil.
func (r *Runner) RunAll(ctx context.Context, sch string) (Artifacts, error) {
	var artifacts Artifacts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := r.RunERC(ctx, sch)
		artifacts.ERCReport = out
		return err
	})
	g.Go(func() error {
		out, err := r.ExportNetlist(ctx, sch)
		artifacts.Netlist = out
		return err
	})
	g.Go(func() error {
		out, err := r.ExportPDF(ctx, sch)
		artifacts.PDF = out
		return err
	})
	if err := g.Wait(); err != nil {
		return Artifacts{}, err
	}
	return artifacts, nil
}
