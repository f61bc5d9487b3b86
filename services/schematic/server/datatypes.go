// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the planner and the applier over HTTP. Transport
// status codes reflect transport problems only: a plan that applies with
// errors is still a 200 whose body says success=false.
package server

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// MaxPromptBytes bounds the planning prompt to keep request bodies sane.
const MaxPromptBytes = 8 * 1024

// requestValidate is the shared validator instance for request types.
var requestValidate = validator.New()

// PlanRequest asks the planner for a plan.
type PlanRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8192"`
	// Model optionally overrides the configured planning model.
	Model string `json:"model,omitempty" validate:"omitempty,max=64"`
}

// Validate checks field constraints beyond JSON well-formedness.
func (r PlanRequest) Validate() error {
	return requestValidate.Struct(r)
}

// ApplyRequest applies a plan to the server's document.
type ApplyRequest struct {
	// Plan is the raw plan JSON; parsed and version-gated by the applier
	// pipeline.
	Plan json.RawMessage `json:"plan" validate:"required"`
	// Prompt optionally records the natural-language request in history.
	Prompt string `json:"prompt,omitempty" validate:"omitempty,max=8192"`
	// DryRun applies against a copy and discards the result.
	DryRun bool `json:"dry_run,omitempty"`
}

// Validate checks field constraints beyond JSON well-formedness.
func (r ApplyRequest) Validate() error {
	return requestValidate.Struct(r)
}
