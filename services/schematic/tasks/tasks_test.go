// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// installFakeCLI drops a shell script named kicad-cli on a private PATH. The
// script writes a marker file to whatever -o argument it receives.
func installFakeCLI(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "8.0.4"
  exit 0
fi
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
if [ -n "$out" ]; then echo "fake output" > "$out"; fi
exit 0
`
	path := filepath.Join(dir, "kicad-cli")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir)
	return dir
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/demo.erc.txt", outputPath("/tmp/demo.kicad_sch", ".erc.txt"))
	assert.Equal(t, "demo.net", outputPath("demo.kicad_sch", ".net"))
	assert.Equal(t, "demo.pdf", outputPath("demo.kicad_sch", ".pdf"))
	// No extension: the suffix is simply appended.
	assert.Equal(t, "demo.net", outputPath("demo", ".net"))
}

func TestRunner_CheckTool(t *testing.T) {
	installFakeCLI(t)
	r := NewRunner(Config{})
	version, err := r.CheckTool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8.0.4", version)
}

func TestRunner_ToolNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir()) // empty dir, no kicad-cli
	r := NewRunner(Config{})

	_, err := r.CheckTool(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))

	_, err = r.RunERC(context.Background(), "demo.kicad_sch")
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestRunner_RunAll(t *testing.T) {
	installFakeCLI(t)
	sch := filepath.Join(t.TempDir(), "demo.kicad_sch")
	require.NoError(t, os.WriteFile(sch, []byte("(kicad_sch)"), 0o644))

	r := NewRunner(Config{})
	artifacts, err := r.RunAll(context.Background(), sch)
	require.NoError(t, err)

	for _, path := range []string{artifacts.ERCReport, artifacts.Netlist, artifacts.PDF} {
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "missing artifact %s", path)
	}
	assert.Equal(t, outputPath(sch, ".erc.txt"), artifacts.ERCReport)
	assert.Equal(t, outputPath(sch, ".net"), artifacts.Netlist)
	assert.Equal(t, outputPath(sch, ".pdf"), artifacts.PDF)
}

func TestRunner_CommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI script requires a POSIX shell")
	}
	dir := t.TempDir()
	script := "#!/bin/sh\necho 'ERC found 3 errors' >&2\nexit 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kicad-cli"), []byte(script), 0o755))
	t.Setenv("PATH", dir)

	r := NewRunner(Config{})
	_, err := r.RunERC(context.Background(), "demo.kicad_sch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERC found 3 errors")
}
