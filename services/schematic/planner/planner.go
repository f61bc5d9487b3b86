// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package planner turns a natural-language request into a Plan via an LLM
// backend. The planner never fails hard: every failure path returns a usable
// demo plan plus a diagnostic explaining what went wrong, so the caller's
// review/apply loop keeps working without an API key, without network, and
// with a misbehaving model.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/AleutianCAD/services/llm"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
)

// systemPrompt embeds the operation grammar, the common symbol table and
// placement guidance. The model must answer with a single JSON object.
const systemPrompt = `You are an expert schematic planning assistant. Your job is to generate valid schematic operation plans in JSON format.

## Schema Rules

### Operations (ops)
You can use these operations:

1. **add_component**: Add a component to the schematic
   - ref: Component reference (e.g., "R1", "C2", "U1")
   - symbol: Library symbol in format "LibraryName:ComponentName" (e.g., "Device:R", "Device:C")
   - value: Component value (e.g., "10k", "100nF", "STM32F103")
   - at: [x, y] position in mm (will be snapped to the placement grid)
   - rot: Rotation in degrees (0, 90, 180, 270)
   - fields: Optional dict of custom fields

2. **wire**: Connect two component pins
   - from: Source as "REF:PIN" (e.g., "R1:1" means R1 pin 1)
   - to: Target as "REF:PIN" (e.g., "R2:2")

3. **label**: Add net label
   - net: Net name (e.g., "VCC", "GND", "SDA")
   - at: [x, y] position in mm

### Common Symbols
- Device:R - Resistor (pins: 1, 2)
- Device:C - Capacitor (pins: 1, 2)
- Device:LED - LED (pins: 1=cathode/K, 2=anode/A)
- Device:D - Diode (pins: 1=K, 2=A)
- Connector:Conn_01x02_Pin - 2-pin connector (pins: 1, 2)
- power:GND - Ground symbol (pin: 1)
- power:VCC - VCC power symbol (pin: 1)

### Reference Designators
- R = Resistor (R1, R2, ...)
- C = Capacitor (C1, C2, ...)
- D = Diode/LED (D1, D2, ...)
- U = IC (U1, U2, ...)
- J = Connector (J1, J2, ...)
- Q = Transistor (Q1, Q2, ...)

### Placement Guidelines
- Space components 15-25mm apart
- Positions are snapped to a 2.54mm grid
- Common ranges: X: 50-200mm, Y: 50-150mm
- Keep related components close together

### Output Format
Return ONLY valid JSON matching this structure:
{
  "plan_version": 1,
  "ops": [
    {"op": "add_component", "ref": "R1", "symbol": "Device:R", "value": "1k", "at": [80.01, 50.8], "rot": 0},
    {"op": "wire", "from": "R1:2", "to": "D1:1"},
    {"op": "label", "net": "VCC", "at": [76.2, 50.8]}
  ]
}

Do NOT include explanations, markdown, or anything other than the JSON object.`

// DemoPlan returns the canonical LED + resistor circuit used whenever real
// planning is unavailable.
func DemoPlan() *schema.Plan {
	return &schema.Plan{
		PlanVersion: schema.PlanSchemaVersion,
		Ops: []schema.Op{
			schema.AddComponent{Ref: "R1", Symbol: "Device:R", Value: "220", At: [2]float64{80.01, 50.8}},
			schema.AddComponent{Ref: "D1", Symbol: "Device:LED", Value: "RED", At: [2]float64{101.6, 50.8}},
			schema.Wire{From: "R1:2", To: "D1:1"},
			schema.Label{Net: "VCC", At: [2]float64{76.2, 50.8}},
			schema.Label{Net: "GND", At: [2]float64{106.68, 50.8}},
		},
		Constraints: map[string]any{},
	}
}

// Config configures a Planner.
type Config struct {
	// Client is the LLM backend. Nil means no backend is configured; the
	// planner degrades to the demo plan with a warning.
	Client llm.LLMClient
	// Model names the planning model; resolved through the registry.
	// Empty selects DefaultModel.
	Model string
	// Temperature overrides the backend's sampling temperature when set.
	Temperature *float32
	// Logger receives progress logging. Nil selects slog.Default().
	Logger *slog.Logger
}

// Planner generates plans from prompts.
type Planner struct {
	client      llm.LLMClient
	model       string
	temperature *float32
	log         *slog.Logger
}

// New returns a Planner with the given configuration.
func New(cfg Config) *Planner {
	model := cfg.Model
	if model == "" {
		model = DefaultModel()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Planner{
		client:      cfg.Client,
		model:       model,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// PlanFromPrompt generates a Plan from a natural-language request.
//
// Fallback behavior, all non-throwing:
//   - no backend configured: demo plan + warning
//   - unknown model: demo plan + error listing registry models
//   - backend error: demo plan + warning
//   - unparseable response: demo plan + error
func (p *Planner) PlanFromPrompt(ctx context.Context, prompt string) schema.PlanResult {
	var diags []schema.Diagnostic

	if p.client == nil {
		p.log.Warn("no LLM backend configured, returning demo plan")
		diags = append(diags, schema.Diagnostic{
			Stage:      schema.StagePlanner,
			Severity:   schema.SeverityWarning,
			Message:    "No LLM backend configured",
			Suggestion: "Set OPENAI_API_KEY or configure a backend in settings",
		})
		return schema.PlanResult{Plan: DemoPlan(), Diagnostics: diags}
	}

	modelCfg, ok := ResolveModel(p.model)
	if !ok {
		available := AvailableModels()
		if len(available) > 5 {
			available = available[:5]
		}
		diags = append(diags, schema.Diagnostic{
			Stage:      schema.StagePlanner,
			Severity:   schema.SeverityError,
			Message:    fmt.Sprintf("Invalid model: %s", p.model),
			Suggestion: "Use one of: " + strings.Join(available, ", "),
		})
		return schema.PlanResult{Plan: DemoPlan(), Diagnostics: diags}
	}

	p.log.Info("planning", "model", modelCfg.Name)

	maxTokens := modelCfg.MaxTokens
	params := llm.GenerationParams{
		Temperature: p.temperature,
		MaxTokens:   &maxTokens,
		ForceJSON:   modelCfg.JSONMode,
	}
	content, err := p.client.Generate(ctx, systemPrompt, prompt, params)
	if err != nil {
		p.log.Error("LLM call failed", "error", err)
		diags = append(diags, schema.Diagnostic{
			Stage:      schema.StagePlanner,
			Severity:   schema.SeverityWarning,
			Message:    "LLM API error: " + truncate(err.Error(), 100),
			Suggestion: "Check API key, model availability, and network connectivity",
		})
		return schema.PlanResult{Plan: DemoPlan(), Diagnostics: diags}
	}

	plan, err := schema.ParsePlan([]byte(extractJSON(content)))
	if err != nil {
		p.log.Error("failed to parse model response", "error", err)
		diags = append(diags, schema.Diagnostic{
			Stage:      schema.StagePlanner,
			Severity:   schema.SeverityError,
			Message:    "Invalid JSON response from model: " + truncate(err.Error(), 100),
			Suggestion: "Try a different model or rephrase your prompt",
		})
		return schema.PlanResult{Plan: DemoPlan(), Diagnostics: diags}
	}

	diags = append(diags, schema.Diagnostic{
		Stage:    schema.StagePlanner,
		Severity: schema.SeverityInfo,
		Message:  fmt.Sprintf("Generated %d operations using %s", len(plan.Ops), modelCfg.Name),
	})
	return schema.PlanResult{Plan: plan, Diagnostics: diags}
}

// extractJSON pulls the outermost JSON object out of a model response.
// Models occasionally wrap the object in markdown fences or prose despite
// the instructions; everything outside the first '{' and last '}' is noise.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
