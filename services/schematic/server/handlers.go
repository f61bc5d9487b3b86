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
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/history"
	"github.com/AleutianAI/AleutianCAD/services/schematic/planner"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
	"github.com/AleutianAI/AleutianCAD/services/schematic/writer"
)

var serverTracer = otel.Tracer("aleutiancad.server.handlers")

// State holds the live schematic document plus its collaborators. The mutex
// serializes applies; the applier itself is single-threaded over a document.
type State struct {
	mu      sync.Mutex
	doc     *document.MemDocument
	applier *writer.Applier
	planner *planner.Planner
	history *history.Store
	log     *slog.Logger
}

// NewState wires the server state. history may be nil (journaling disabled).
func NewState(doc *document.MemDocument, applier *writer.Applier, p *planner.Planner,
	hist *history.Store, log *slog.Logger) *State {
	if log == nil {
		log = slog.Default()
	}
	return &State{doc: doc, applier: applier, planner: p, history: hist, log: log}
}

// Document returns the live document, for serialization by the binary.
func (s *State) Document() *document.MemDocument { return s.doc }

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandlePlan turns a prompt into a plan. Planner fallbacks mean this always
// returns 200 with diagnostics unless the request itself is malformed.
func HandlePlan(s *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := serverTracer.Start(c.Request.Context(), "HandlePlan")
		defer span.End()

		var req PlanRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Error("failed to parse plan request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res := s.planner.PlanFromPrompt(ctx, req.Prompt)
		c.JSON(http.StatusOK, gin.H{
			"plan":        res.Plan,
			"diagnostics": res.Diagnostics,
		})
	}
}

// HandleApply applies a plan to the live document. Plan-level failures are
// diagnostics in a 200 body; only malformed requests are 4xx.
func HandleApply(s *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := serverTracer.Start(c.Request.Context(), "HandleApply")
		defer span.End()

		var req ApplyRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Error("failed to parse apply request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		plan, err := schema.ParsePlan(req.Plan)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan: " + err.Error()})
			return
		}

		s.mu.Lock()
		target := s.doc
		if req.DryRun {
			target = s.doc.Clone()
		}
		result := s.applier.Apply(target, plan)
		s.mu.Unlock()

		if !req.DryRun && s.history != nil {
			if _, err := s.history.Append(ctx, history.Entry{
				Prompt:       req.Prompt,
				Plan:         req.Plan,
				Success:      result.Success,
				AffectedRefs: result.AffectedRefs,
			}); err != nil {
				// Journaling is best-effort; the apply already happened.
				s.log.Warn("failed to journal apply", "error", err)
			}
		}

		c.JSON(http.StatusOK, result)
	}
}

// HandleHistory lists journaled applies, newest first. ?limit=N bounds the
// page, default 20.
func HandleHistory(s *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := serverTracer.Start(c.Request.Context(), "HandleHistory")
		defer span.End()

		if s.history == nil {
			c.JSON(http.StatusOK, gin.H{"entries": []history.Entry{}})
			return
		}
		limit := 20
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		entries, err := s.history.List(ctx, limit)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.log.Error("failed to list history", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

// HandleDocument dumps the live document as JSON, mostly for debugging the
// demo server.
func HandleDocument(s *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		snapshot := s.doc.Clone()
		s.mu.Unlock()

		symbols := snapshot.Symbols()
		wires := snapshot.Wires()
		labels := snapshot.Labels()
		out := gin.H{
			"symbols": len(symbols),
			"wires":   len(wires),
			"labels":  len(labels),
		}
		refs := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			refs = append(refs, sym.Reference())
		}
		out["refs"] = refs
		c.JSON(http.StatusOK, out)
	}
}

// planResponse mirrors HandlePlan's body shape for clients and tests.
type planResponse struct {
	Plan        json.RawMessage     `json:"plan"`
	Diagnostics []schema.Diagnostic `json:"diagnostics"`
}
