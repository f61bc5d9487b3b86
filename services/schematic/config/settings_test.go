// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("config dir isolation relies on XDG_CONFIG_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENAI_TEMPERATURE", "")
	t.Setenv("ALEUTIANCAD_BACKEND", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfig(t)
	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Backend)
	assert.Equal(t, "gpt-4o-mini", s.Model)
	assert.Zero(t, s.Temperature)
	assert.False(t, s.HasAPIKey())
	_, err = s.APIKey()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := isolateConfig(t)
	cfgDir := filepath.Join(dir, "aleutiancad")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))
	file := "backend: ollama\nmodel: gpt-4o\ntemperature: 0.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(file), 0o600))

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ollama", s.Backend)
	assert.Equal(t, "gpt-4o", s.Model)
	assert.InEpsilon(t, 0.5, float64(s.Temperature), 1e-6)

	// Env beats file.
	t.Setenv("OPENAI_MODEL", "gpt-4-turbo")
	t.Setenv("OPENAI_TEMPERATURE", "0.9")
	s, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", s.Model)
	assert.InEpsilon(t, 0.9, float64(s.Temperature), 1e-6)
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	isolateConfig(t)
	t.Setenv("OPENAI_API_KEY", "sk-test-123")

	s, err := Load()
	require.NoError(t, err)
	require.True(t, s.HasAPIKey())
	key, err := s.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", key)

	// The key survives repeated opens.
	key2, err := s.APIKey()
	require.NoError(t, err)
	assert.Equal(t, key, key2)
}

func TestSave_OmitsAPIKey(t *testing.T) {
	isolateConfig(t)
	s := &Settings{Backend: "openai", Model: "gpt-4o-mini", Temperature: 0.2}
	s.SetAPIKey("sk-secret")
	require.NoError(t, s.Save())

	data, err := os.ReadFile(ConfigPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
	assert.Contains(t, string(data), "model: gpt-4o-mini")

	back, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", back.Backend)
	assert.InEpsilon(t, 0.2, float64(back.Temperature), 1e-6)
	assert.False(t, back.HasAPIKey(), "key must not round-trip through the file")
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolateConfig(t)
	cfgDir := filepath.Join(dir, "aleutiancad")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("{not yaml"), 0o600))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_BadTemperatureEnv(t *testing.T) {
	isolateConfig(t)
	t.Setenv("OPENAI_TEMPERATURE", "warm")
	_, err := Load()
	require.Error(t, err)
}
