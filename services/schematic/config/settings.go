// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and persists tool settings.
//
// Settings are an explicit value passed into the planner and the binaries;
// nothing in this package writes process globals. Precedence per field is
// environment variable over config file over default. The API key never
// touches the YAML file on save and is held in a memguard enclave rather
// than a plain string.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/awnumar/memguard"
	"gopkg.in/yaml.v3"
)

const (
	appDirName     = "aleutiancad"
	configFileName = "config.yaml"
)

// ErrNoAPIKey reports that no API key is configured anywhere.
var ErrNoAPIKey = errors.New("no API key configured")

// ConfigDir returns the platform config directory for the tool.
func ConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, appDirName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", appDirName)
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appDirName)
	}
}

// ConfigPath returns the full path of the config file.
func ConfigPath() string { return filepath.Join(ConfigDir(), configFileName) }

// fileSettings is the on-disk shape. The API key is deliberately absent.
type fileSettings struct {
	Backend        string  `yaml:"backend"`
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	DefaultProject string  `yaml:"default_project"`
}

// Settings holds the resolved configuration.
type Settings struct {
	// Backend selects the LLM backend: "openai", "ollama", "anthropic",
	// "llamacpp" or "" for none.
	Backend string
	// Model is the planning model name (registry-validated downstream).
	Model string
	// Temperature is the sampling temperature, conservative zero default.
	Temperature float32
	// DefaultProject is the schematic project directory.
	DefaultProject string

	apiKey *memguard.Enclave
}

// Load resolves settings from the config file and the environment.
//
// Key precedence: OPENAI_API_KEY env var, then the config file is never
// consulted for the key (it is never written there), so env is the only
// source besides SetAPIKey.
func Load() (*Settings, error) {
	s := &Settings{
		Backend:     "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0,
	}
	if wd, err := os.Getwd(); err == nil {
		s.DefaultProject = wd
	}

	data, err := os.ReadFile(ConfigPath())
	switch {
	case err == nil:
		var fs fileSettings
		if err := yaml.Unmarshal(data, &fs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ConfigPath(), err)
		}
		if fs.Backend != "" {
			s.Backend = fs.Backend
		}
		if fs.Model != "" {
			s.Model = fs.Model
		}
		if fs.Temperature != 0 {
			s.Temperature = fs.Temperature
		}
		if fs.DefaultProject != "" {
			s.DefaultProject = fs.DefaultProject
		}
	case os.IsNotExist(err):
		// First run, defaults apply.
	default:
		return nil, fmt.Errorf("read %s: %w", ConfigPath(), err)
	}

	if v := os.Getenv("ALEUTIANCAD_BACKEND"); v != "" {
		s.Backend = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		s.Model = v
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("OPENAI_TEMPERATURE: %w", err)
		}
		s.Temperature = float32(t)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		s.SetAPIKey(key)
	}
	return s, nil
}

// SetAPIKey seals the key into a memguard enclave.
func (s *Settings) SetAPIKey(key string) {
	if key == "" {
		s.apiKey = nil
		return
	}
	s.apiKey = memguard.NewEnclave([]byte(key))
}

// HasAPIKey reports whether a key is configured.
func (s *Settings) HasAPIKey() bool { return s.apiKey != nil }

// APIKey opens the enclave and returns the key. The caller gets a plain
// string copy; the sealed original stays protected.
func (s *Settings) APIKey() (string, error) {
	if s.apiKey == nil {
		return "", ErrNoAPIKey
	}
	buf, err := s.apiKey.Open()
	if err != nil {
		return "", fmt.Errorf("open API key enclave: %w", err)
	}
	defer buf.Destroy()
	return buf.String(), nil
}

// Save writes the non-secret settings to the config file.
func (s *Settings) Save() error {
	if err := os.MkdirAll(ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(fileSettings{
		Backend:        s.Backend,
		Model:          s.Model,
		Temperature:    s.Temperature,
		DefaultProject: s.DefaultProject,
	})
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o600)
}
