// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/history"
	"github.com/AleutianAI/AleutianCAD/services/schematic/planner"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
	"github.com/AleutianAI/AleutianCAD/services/schematic/writer"
)

const validPlanJSON = `{
	"plan_version": 1,
	"ops": [
		{"op": "add_component", "ref": "R1", "symbol": "Device:R", "value": "220", "at": [100, 60], "rot": 0},
		{"op": "add_component", "ref": "D1", "symbol": "Device:LED", "value": "RED", "at": [120, 60], "rot": 0},
		{"op": "wire", "from": "R1:2", "to": "D1:1"}
	]
}`

func newTestServer(t *testing.T, limiter *rate.Limiter) (*gin.Engine, *State) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hist, err := history.Open(history.InMemoryConfig())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	state := NewState(
		document.NewMem(),
		writer.New(writer.Config{}),
		planner.New(planner.Config{}), // no backend: demo fallback
		hist,
		nil,
	)
	router := gin.New()
	SetupRoutes(router, state, limiter)
	return router, state
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := newTestServer(t, nil)
	w := doJSON(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHandlePlan_DemoFallback(t *testing.T) {
	router, _ := newTestServer(t, nil)
	w := doJSON(router, http.MethodPost, "/v1/plan", `{"prompt":"blink an LED"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	plan, err := schema.ParsePlan(resp.Plan)
	if err != nil {
		t.Fatalf("plan in response does not parse: %v", err)
	}
	if len(plan.Ops) != 5 {
		t.Errorf("demo plan has %d ops, want 5", len(plan.Ops))
	}
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Severity != schema.SeverityWarning {
		t.Errorf("expected single no-backend warning, got %+v", resp.Diagnostics)
	}
}

func TestHandlePlan_BadRequests(t *testing.T) {
	router, _ := newTestServer(t, nil)

	if w := doJSON(router, http.MethodPost, "/v1/plan", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d, want 400", w.Code)
	}
	if w := doJSON(router, http.MethodPost, "/v1/plan", `{"prompt":""}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty prompt: status = %d, want 400", w.Code)
	}
}

func TestHandleApply_Success(t *testing.T) {
	router, state := newTestServer(t, nil)
	body := `{"plan": ` + validPlanJSON + `, "prompt": "blink an LED"}`

	w := doJSON(router, http.MethodPost, "/v1/apply", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result schema.ApplyResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success {
		t.Fatalf("apply failed: %+v", result.Diagnostics)
	}
	if len(state.Document().Symbols()) != 2 || len(state.Document().Wires()) != 1 {
		t.Error("live document was not mutated")
	}

	// The apply landed in history.
	hw := doJSON(router, http.MethodGet, "/v1/history", "")
	var page struct {
		Entries []history.Entry `json:"entries"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].Prompt != "blink an LED" {
		t.Errorf("history = %+v, want the single journaled apply", page.Entries)
	}
}

func TestHandleApply_PlanFailureIsStill200(t *testing.T) {
	router, _ := newTestServer(t, nil)
	body := `{"plan": {"plan_version": 99, "ops": []}}`

	w := doJSON(router, http.MethodPost, "/v1/apply", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (HTTP reflects transport, not plan outcome)", w.Code)
	}
	var result schema.ApplyResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Success {
		t.Error("version mismatch must report success=false")
	}
}

func TestHandleApply_BadRequests(t *testing.T) {
	router, _ := newTestServer(t, nil)

	if w := doJSON(router, http.MethodPost, "/v1/apply", `{broken`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
	// Well-formed envelope, malformed plan.
	bad := `{"plan": {"plan_version": 1, "ops": [{"op": "teleport"}]}}`
	if w := doJSON(router, http.MethodPost, "/v1/apply", bad); w.Code != http.StatusBadRequest {
		t.Errorf("unknown op: status = %d, want 400", w.Code)
	}
}

func TestHandleApply_DryRun(t *testing.T) {
	router, state := newTestServer(t, nil)
	body := `{"plan": ` + validPlanJSON + `, "dry_run": true}`

	w := doJSON(router, http.MethodPost, "/v1/apply", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var result schema.ApplyResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Success {
		t.Fatalf("dry run failed: %+v", result.Diagnostics)
	}
	if len(state.Document().Symbols()) != 0 {
		t.Error("dry run must not touch the live document")
	}

	hw := doJSON(router, http.MethodGet, "/v1/history", "")
	var page struct {
		Entries []history.Entry `json:"entries"`
	}
	if err := json.Unmarshal(hw.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(page.Entries) != 0 {
		t.Error("dry runs must not be journaled")
	}
}

func TestHandleHistory_BadLimit(t *testing.T) {
	router, _ := newTestServer(t, nil)
	if w := doJSON(router, http.MethodGet, "/v1/history?limit=-3", ""); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status = %d, want 400", w.Code)
	}
	if w := doJSON(router, http.MethodGet, "/v1/history?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric limit: status = %d, want 400", w.Code)
	}
}

func TestPlanRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0), 1) // one request, no refill
	router, _ := newTestServer(t, limiter)

	if w := doJSON(router, http.MethodPost, "/v1/plan", `{"prompt":"x"}`); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want 200", w.Code)
	}
	if w := doJSON(router, http.MethodPost, "/v1/plan", `{"prompt":"x"}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", w.Code)
	}
}

func TestHandleDocument(t *testing.T) {
	router, state := newTestServer(t, nil)
	state.Document().AddSymbol("Device:R", "R7", 10, 10)

	w := doJSON(router, http.MethodGet, "/v1/document", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Symbols int      `json:"symbols"`
		Refs    []string `json:"refs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Symbols != 1 || len(body.Refs) != 1 || body.Refs[0] != "R7" {
		t.Errorf("document summary = %+v", body)
	}
}
