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
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AleutianAI/AleutianCAD/pkg/logging"
	"github.com/AleutianAI/AleutianCAD/services/llm"
	"github.com/AleutianAI/AleutianCAD/services/schematic/config"
	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/history"
	"github.com/AleutianAI/AleutianCAD/services/schematic/planner"
)

// newLogger builds the CLI logger. File logging goes next to the config so
// repeated runs are traceable; stderr stays clean in quiet mode.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if quietMode {
		level = logging.LevelError
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  filepath.Join(config.ConfigDir(), "logs"),
		Service: "cli",
		Quiet:   true, // stderr is reserved for diagnostics output
	})
}

// buildLLMClient constructs the configured backend. A missing API key or an
// unreachable local backend returns a nil client: the planner degrades to
// the demo plan with a diagnostic instead of hard-failing the command.
func buildLLMClient(settings *config.Settings, log *slog.Logger) llm.LLMClient {
	switch settings.Backend {
	case "openai":
		key, err := settings.APIKey()
		if err != nil {
			if !errors.Is(err, config.ErrNoAPIKey) {
				log.Warn("failed to read API key", "error", err)
			}
			return nil
		}
		client, err := llm.NewOpenAIClient(key, settings.Model)
		if err != nil {
			log.Warn("openai backend unavailable", "error", err)
			return nil
		}
		return client
	case "ollama":
		client, err := llm.NewOllamaClient()
		if err != nil {
			log.Warn("ollama backend unavailable", "error", err)
			return nil
		}
		return client
	case "anthropic":
		client, err := llm.NewAnthropicClient()
		if err != nil {
			log.Warn("anthropic backend unavailable", "error", err)
			return nil
		}
		return client
	case "llamacpp":
		client, err := llm.NewLocalLlamaCppClient()
		if err != nil {
			log.Warn("llama.cpp backend unavailable", "error", err)
			return nil
		}
		return client
	default:
		return nil
	}
}

// buildPlanner loads settings and wires up the planner for one command.
func buildPlanner(log *slog.Logger) (*planner.Planner, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	model := settings.Model
	if modelOverride != "" {
		model = modelOverride
	}
	var temp *float32
	if settings.Temperature != 0 {
		t := settings.Temperature
		temp = &t
	}
	return planner.New(planner.Config{
		Client:      buildLLMClient(settings, log),
		Model:       model,
		Temperature: temp,
		Logger:      log,
	}), nil
}

// openHistory opens the on-disk plan journal under the config directory.
func openHistory(log *slog.Logger) (*history.Store, error) {
	cfg := history.DefaultConfig(filepath.Join(config.ConfigDir(), "history"))
	cfg.Logger = log
	return history.Open(cfg)
}

// loadDocument reads the schematic at path, or starts an empty document
// when the file does not exist yet.
func loadDocument(path string) (*document.MemDocument, bool, error) {
	doc, err := document.LoadMem(path)
	switch {
	case err == nil:
		return doc, true, nil
	case os.IsNotExist(err):
		return document.NewMem(), false, nil
	default:
		return nil, false, err
	}
}
