// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package writer applies a plan to a schematic document.
//
// The applier is the system's core state machine. It gates on the plan
// schema version, builds reference/pin indexes from the live document,
// executes operations in order, and converts every failure into a
// Diagnostic at the operation boundary: one bad operation is skipped and
// processing continues. The applier never panics past its boundary and
// never returns an error value; the only whole-apply failure is the version
// mismatch, which is itself reported through the result.
//
// The document is mutated incrementally and in place; there is no rollback.
// Callers keep a backup of the pre-apply file and only persist when
// ApplyResult.Success is true.
package writer

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
	"github.com/AleutianAI/AleutianCAD/services/schematic/validation"
)

// DefaultGrid is the canonical schematic placement grid: 2.54mm (100mil).
// A 1.27mm (50mil) grid is in use by some planners; construct the Applier
// with an explicit Grid to match.
const DefaultGrid = 2.54

// SnapToGrid rounds a coordinate to the nearest multiple of grid. Snapping
// keeps repeated applies producing clean, diffable values instead of
// floating-point noise. snap(snap(x)) == snap(x) for all finite x.
func SnapToGrid(value, grid float64) float64 {
	return math.Round(value/grid) * grid
}

// Config configures an Applier.
type Config struct {
	// Grid is the placement grid in mm. Zero selects DefaultGrid.
	Grid float64
	// Logger receives progress logging. Nil selects slog.Default().
	Logger *slog.Logger
}

// Applier applies plans to documents. It holds no per-apply state and is
// reusable across calls; each Apply call is strictly single-threaded over
// its document.
type Applier struct {
	grid float64
	log  *slog.Logger
}

// New returns an Applier with the given configuration.
func New(cfg Config) *Applier {
	grid := cfg.Grid
	if grid <= 0 {
		grid = DefaultGrid
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Applier{grid: grid, log: log}
}

// Grid returns the placement grid in mm.
func (a *Applier) Grid() float64 { return a.grid }

// Apply executes the plan against the document.
//
// Version gate: a plan whose plan_version differs from PlanSchemaVersion is
// rejected before any index is built or any mutation happens. Otherwise
// operations run sequentially, best-effort; per-operation failures append an
// error diagnostic and processing continues with the next operation.
func (a *Applier) Apply(doc document.Document, plan *schema.Plan) schema.ApplyResult {
	var diags []schema.Diagnostic
	var affected []string

	if plan == nil || plan.PlanVersion != schema.PlanSchemaVersion {
		version := 0
		if plan != nil {
			version = plan.PlanVersion
		}
		diags = append(diags, schema.Diagnostic{
			Stage:    schema.StageValidator,
			Severity: schema.SeverityError,
			Message: fmt.Sprintf("Plan schema version mismatch: plan has v%d, writer expects v%d",
				version, schema.PlanSchemaVersion),
			Suggestion: fmt.Sprintf("Re-run the planner to generate a v%d plan, or run a schema migrator if available",
				schema.PlanSchemaVersion),
		})
		return schema.NewApplyResult(diags, nil)
	}

	// Capability selection happens once, not per operation.
	creator, canCreate := doc.(document.SymbolCreator)

	index := buildRefIndex(doc)
	indexStale := false

	for _, op := range plan.Ops {
		switch op := op.(type) {
		case schema.AddComponent:
			if a.applyAddComponent(doc, creator, canCreate, op, &diags) {
				affected = append(affected, op.Ref)
				indexStale = true
			}

		case schema.Wire:
			if indexStale {
				index = buildRefIndex(doc)
				indexStale = false
			}
			if fromRef, toRef, ok := a.applyWire(doc, index, op, &diags); ok {
				affected = append(affected, fromRef, toRef)
			}

		case schema.Label:
			if a.applyLabel(doc, op, &diags) {
				affected = append(affected, op.Net)
			}

		default:
			// The op union is closed; this guards against a future kind
			// being added without a handler.
			diags = append(diags, schema.Diagnostic{
				Stage:    schema.StageWriter,
				Severity: schema.SeverityError,
				Message:  fmt.Sprintf("Unsupported operation %q", op.Kind()),
			})
		}
	}

	result := schema.NewApplyResult(diags, affected)
	a.log.Debug("plan applied",
		"ops", len(plan.Ops),
		"success", result.Success,
		"diagnostics", len(result.Diagnostics))
	return result
}

func (a *Applier) applyAddComponent(doc document.Document, creator document.SymbolCreator, canCreate bool,
	op schema.AddComponent, diags *[]schema.Diagnostic) bool {

	if ok, msg := validation.SymbolName(op.Symbol); !ok {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Ref:        op.Ref,
			Message:    "Invalid symbol name: " + msg,
			Suggestion: "Use the 'Library:Name' form (e.g. 'Device:R')",
		})
		return false
	}

	ok, msg, x, y := validation.Coordinate(op.At[:])
	if !ok {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Ref:        op.Ref,
			Message:    "Invalid coordinate: " + msg,
			Suggestion: "Use [x, y] format with numeric values",
		})
		return false
	}
	x, y = SnapToGrid(x, a.grid), SnapToGrid(y, a.grid)

	if !canCreate {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Ref:        op.Ref,
			Message:    "This document does not support creating symbols programmatically",
			Suggestion: "Add the component manually in the editor first, then use this tool for wiring and labels only",
		})
		return false
	}

	sym, err := creator.CreateSymbol(op.Symbol, op.Ref, x, y, document.DefaultSymbolOptions())
	if err != nil {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Ref:        op.Ref,
			Message:    fmt.Sprintf("Failed to add component: %v", err),
			Suggestion: "Add the component manually in the editor first, then use this tool for wiring and labels only",
		})
		return false
	}

	// Display metadata is best-effort: a failed set is not fatal.
	if op.Value != "" {
		if !sym.SetValue(op.Value) {
			a.log.Warn("value not set", "ref", op.Ref, "value", op.Value)
		}
	}
	if op.Rot != 0 {
		if !sym.SetRotation(op.Rot) {
			a.log.Warn("rotation not set", "ref", op.Ref, "rot", op.Rot)
		}
	}
	for name, value := range op.Fields {
		if !sym.SetField(name, value) {
			a.log.Warn("field not set", "ref", op.Ref, "field", name)
		}
	}

	*diags = append(*diags, schema.Diagnostic{
		Stage:    schema.StageWriter,
		Severity: schema.SeverityInfo,
		Ref:      op.Ref,
		Message:  fmt.Sprintf("Added %s (%s)", op.Ref, op.Symbol),
	})
	return true
}

func (a *Applier) applyWire(doc document.Document, index refIndex, op schema.Wire,
	diags *[]schema.Diagnostic) (fromRef, toRef string, ok bool) {

	fromOK, fromMsg, fromRef, fromPin := validation.WireFormat(op.From)
	if !fromOK {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Message:    "Invalid 'from' wire format: " + fromMsg,
			Suggestion: "Use format 'REF:PIN' (e.g. 'R1:1')",
		})
		return "", "", false
	}
	toOK, toMsg, toRef, toPin := validation.WireFormat(op.To)
	if !toOK {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Message:    "Invalid 'to' wire format: " + toMsg,
			Suggestion: "Use format 'REF:PIN' (e.g. 'R1:2')",
		})
		return "", "", false
	}

	fromPos, fromFound := lookupPinCoords(doc, index, fromRef, fromPin, diags)
	toPos, toFound := lookupPinCoords(doc, index, toRef, toPin, diags)
	if !fromFound || !toFound {
		// lookupPinCoords already explained why; no fallback entity is
		// created for a wire that cannot resolve both endpoints.
		return "", "", false
	}

	if _, err := doc.CreateWire(fromPos, toPos); err != nil {
		*diags = append(*diags, schema.Diagnostic{
			Stage:    schema.StageWriter,
			Severity: schema.SeverityError,
			Ref:      fromRef,
			Message:  fmt.Sprintf("Wire placement failed: %v", err),
		})
		return "", "", false
	}

	*diags = append(*diags, schema.Diagnostic{
		Stage:    schema.StageWriter,
		Severity: schema.SeverityInfo,
		Ref:      fromRef,
		Message:  fmt.Sprintf("Connected wire from %s:%s to %s:%s", fromRef, fromPin, toRef, toPin),
	})
	return fromRef, toRef, true
}

func (a *Applier) applyLabel(doc document.Document, op schema.Label, diags *[]schema.Diagnostic) bool {
	ok, msg, x, y := validation.Coordinate(op.At[:])
	if !ok {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Message:    "Invalid label coordinate: " + msg,
			Suggestion: "Use [x, y] format with numeric values",
		})
		return false
	}
	x, y = SnapToGrid(x, a.grid), SnapToGrid(y, a.grid)

	if _, err := doc.CreateLabel(op.Net, document.Point{X: x, Y: y}); err != nil {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Message:    fmt.Sprintf("Label operation failed: %v", err),
			Suggestion: "Check label position and net name validity",
		})
		return false
	}

	*diags = append(*diags, schema.Diagnostic{
		Stage:    schema.StageWriter,
		Severity: schema.SeverityInfo,
		Message:  fmt.Sprintf("Added label %q at (%g, %g)", op.Net, x, y),
	})
	return true
}
