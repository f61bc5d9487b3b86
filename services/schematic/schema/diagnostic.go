// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

// =============================================================================
// Diagnostics
// =============================================================================

// Stage identifies which component produced a diagnostic.
type Stage string

const (
	StagePlanner   Stage = "planner"
	StageWriter    Stage = "writer"
	StageValidator Stage = "validator"
	StageWeb       Stage = "web"
)

// Severity classifies a diagnostic.
//
//   - error: the operation's effect did not happen
//   - warning: skipped or partial for a recoverable/transient reason
//   - info: normal progress narration
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one structured, severity-tagged message. Diagnostics are
// immutable values, appended in operation order and never mutated after
// creation.
type Diagnostic struct {
	Stage    Stage    `json:"stage"`
	Severity Severity `json:"severity"`
	// Ref is the component reference the diagnostic concerns, if any.
	Ref        string `json:"ref,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func hasSeverity(diags []Diagnostic, s Severity) bool {
	for _, d := range diags {
		if d.Severity == s {
			return true
		}
	}
	return false
}

// =============================================================================
// Results
// =============================================================================

// PlanResult is the outcome of a planning call. The planner always returns a
// plan (possibly the demo fallback); errors and warnings travel alongside.
type PlanResult struct {
	Plan        *Plan        `json:"plan"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// HasErrors reports whether any diagnostic is an error.
func (r PlanResult) HasErrors() bool { return hasSeverity(r.Diagnostics, SeverityError) }

// HasWarnings reports whether any diagnostic is a warning.
func (r PlanResult) HasWarnings() bool { return hasSeverity(r.Diagnostics, SeverityWarning) }

// ApplyResult is the outcome of applying a plan.
//
// Success is derived, not independently set: it is true exactly when no
// diagnostic carries SeverityError. Callers must branch on Success before
// persisting the document. AffectedRefs preserves operation order and may
// contain duplicates.
type ApplyResult struct {
	Success      bool         `json:"success"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
	AffectedRefs []string     `json:"affected_refs"`
}

// NewApplyResult computes Success from the diagnostic list.
func NewApplyResult(diags []Diagnostic, affectedRefs []string) ApplyResult {
	if diags == nil {
		diags = []Diagnostic{}
	}
	if affectedRefs == nil {
		affectedRefs = []string{}
	}
	return ApplyResult{
		Success:      !hasSeverity(diags, SeverityError),
		Diagnostics:  diags,
		AffectedRefs: affectedRefs,
	}
}

// HasErrors reports whether any diagnostic is an error.
func (r ApplyResult) HasErrors() bool { return hasSeverity(r.Diagnostics, SeverityError) }

// HasWarnings reports whether any diagnostic is a warning.
func (r ApplyResult) HasWarnings() bool { return hasSeverity(r.Diagnostics, SeverityWarning) }
