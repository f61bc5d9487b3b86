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

import (
	"math/rand"
	"testing"
)

func TestNewApplyResult_SuccessPredicate(t *testing.T) {
	// success == (no diagnostic has severity "error"), verified over
	// randomly generated diagnostic lists.
	rng := rand.New(rand.NewSource(42))
	severities := []Severity{SeverityError, SeverityWarning, SeverityInfo}

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(8)
		diags := make([]Diagnostic, 0, n)
		hasError := false
		for i := 0; i < n; i++ {
			s := severities[rng.Intn(len(severities))]
			if s == SeverityError {
				hasError = true
			}
			diags = append(diags, Diagnostic{Stage: StageWriter, Severity: s, Message: "x"})
		}

		res := NewApplyResult(diags, nil)
		if res.Success == hasError {
			t.Fatalf("trial %d: success=%v with hasError=%v (%v)", trial, res.Success, hasError, diags)
		}
		if res.HasErrors() != hasError {
			t.Fatalf("trial %d: HasErrors()=%v, want %v", trial, res.HasErrors(), hasError)
		}
	}
}

func TestNewApplyResult_NilSlices(t *testing.T) {
	res := NewApplyResult(nil, nil)
	if !res.Success {
		t.Error("empty result should be a success")
	}
	if res.Diagnostics == nil || res.AffectedRefs == nil {
		t.Error("result slices should be non-nil for stable JSON output")
	}
}

func TestPlanResult_HasWarnings(t *testing.T) {
	r := PlanResult{Diagnostics: []Diagnostic{
		{Stage: StagePlanner, Severity: SeverityInfo, Message: "generated"},
		{Stage: StagePlanner, Severity: SeverityWarning, Message: "no api key"},
	}}
	if r.HasErrors() {
		t.Error("HasErrors should be false")
	}
	if !r.HasWarnings() {
		t.Error("HasWarnings should be true")
	}
}
