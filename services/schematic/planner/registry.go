// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

// ModelConfig describes one supported planning model.
type ModelConfig struct {
	Name          string
	MaxTokens     int
	ContextWindow int
	JSONMode      bool
	Description   string
}

// modelRegistry is the single source of truth for planning models. Only real,
// shipping model identifiers belong here.
var modelRegistry = map[string]ModelConfig{
	"gpt-4": {
		Name:          "gpt-4",
		MaxTokens:     8192,
		ContextWindow: 8192,
		JSONMode:      true,
		Description:   "Most capable GPT-4 model, best for complex schematics",
	},
	"gpt-4-turbo": {
		Name:          "gpt-4-turbo",
		MaxTokens:     4096,
		ContextWindow: 128000,
		JSONMode:      true,
		Description:   "Fast and capable, good for most tasks",
	},
	"gpt-4o": {
		Name:          "gpt-4o",
		MaxTokens:     4096,
		ContextWindow: 128000,
		JSONMode:      true,
		Description:   "Optimized GPT-4 for speed and cost",
	},
	"gpt-4o-mini": {
		Name:          "gpt-4o-mini",
		MaxTokens:     4096,
		ContextWindow: 128000,
		JSONMode:      true,
		Description:   "Efficient and fast, great for simple tasks (recommended)",
	},
}

// modelAliases maps names users keep typing (marketing names, older config
// files) onto registry entries.
var modelAliases = map[string]string{
	"gpt-5-mini": "gpt-4o-mini",
	"gpt-5":      "gpt-4o",
	"gpt4o-mini": "gpt-4o-mini",
}

// availableModels is ordered cheapest-first for suggestion lists.
var availableModels = []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-4"}

// DefaultModel is the recommended planning model.
func DefaultModel() string { return "gpt-4o-mini" }

// ResolveModel maps a user-supplied model name (or alias) onto a registry
// entry. ok is false for names the registry does not know.
func ResolveModel(name string) (ModelConfig, bool) {
	if canonical, aliased := modelAliases[name]; aliased {
		name = canonical
	}
	cfg, ok := modelRegistry[name]
	return cfg, ok
}

// AvailableModels lists the supported model names, cheapest first.
func AvailableModels() []string {
	out := make([]string, len(availableModels))
	copy(out, availableModels)
	return out
}
