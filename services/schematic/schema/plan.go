// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema defines the versioned plan model exchanged between the
// planner, the writer, and the UI shells.
//
// A Plan is an ordered list of typed operations (add_component, wire,
// label). The operation list is a closed sum type: every operation kind has
// its own struct, and consumers switch exhaustively on the concrete type so
// a newly added kind cannot silently fall through unhandled.
//
// Wire format note: the wire operation's source endpoint is serialized under
// the JSON key "from". The Go field is named From, but any implementation in
// any language must read and write the "from" key, never an internal alias.
package schema

import (
	"encoding/json"
	"fmt"
)

// PlanSchemaVersion is the schema version the writer expects. Plans carrying
// any other version are rejected before any operation executes.
const PlanSchemaVersion = 1

// Op is one schematic operation. Implementations are AddComponent, Wire and
// Label; the interface is sealed.
type Op interface {
	// Kind returns the wire-format discriminator ("add_component", "wire",
	// "label").
	Kind() string

	isOp()
}

// AddComponent places a new symbol on the schematic.
type AddComponent struct {
	// Ref is the reference designator, e.g. "R1".
	Ref string `json:"ref"`
	// Symbol is the library symbol id in "Library:Name" form, e.g. "Device:R".
	Symbol string `json:"symbol"`
	// Value is the display value, e.g. "1k" or "RED".
	Value string `json:"value"`
	// At is the position in mm. It is snapped to the placement grid on apply.
	At [2]float64 `json:"at"`
	// Rot is the rotation in degrees: 0, 90, 180 or 270.
	Rot int `json:"rot"`
	// Fields holds additional custom fields, applied best-effort.
	Fields map[string]string `json:"fields,omitempty"`
}

func (AddComponent) Kind() string { return "add_component" }
func (AddComponent) isOp()        {}

// Wire connects two component pins. Endpoints are "REF:PIN" strings,
// e.g. "R1:2" or "U3:VCC".
type Wire struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (Wire) Kind() string { return "wire" }
func (Wire) isOp()        {}

// Label places a net label at a position.
type Label struct {
	Net string     `json:"net"`
	At  [2]float64 `json:"at"`
}

func (Label) Kind() string { return "label" }
func (Label) isOp()        {}

// Plan is an ordered sequence of operations plus unused constraint metadata.
// A Plan is immutable once built and consumed exactly once per apply call.
type Plan struct {
	PlanVersion int            `json:"plan_version"`
	Ops         []Op           `json:"ops"`
	Constraints map[string]any `json:"constraints"`
}

// MarshalJSON writes each operation with its "op" discriminator.
func (p Plan) MarshalJSON() ([]byte, error) {
	type envelope struct {
		PlanVersion int               `json:"plan_version"`
		Ops         []json.RawMessage `json:"ops"`
		Constraints map[string]any    `json:"constraints"`
	}
	env := envelope{
		PlanVersion: p.PlanVersion,
		Ops:         make([]json.RawMessage, 0, len(p.Ops)),
		Constraints: p.Constraints,
	}
	if env.Constraints == nil {
		env.Constraints = map[string]any{}
	}
	for _, op := range p.Ops {
		raw, err := marshalOp(op)
		if err != nil {
			return nil, err
		}
		env.Ops = append(env.Ops, raw)
	}
	return json.Marshal(env)
}

func marshalOp(op Op) ([]byte, error) {
	switch v := op.(type) {
	case AddComponent:
		type alias AddComponent
		return json.Marshal(struct {
			Op string `json:"op"`
			alias
		}{v.Kind(), alias(v)})
	case *AddComponent:
		return marshalOp(*v)
	case Wire:
		type alias Wire
		return json.Marshal(struct {
			Op string `json:"op"`
			alias
		}{v.Kind(), alias(v)})
	case *Wire:
		return marshalOp(*v)
	case Label:
		type alias Label
		return json.Marshal(struct {
			Op string `json:"op"`
			alias
		}{v.Kind(), alias(v)})
	case *Label:
		return marshalOp(*v)
	default:
		return nil, fmt.Errorf("schema: unknown operation type %T", op)
	}
}

// UnmarshalJSON decodes operations by their "op" discriminator. Unknown
// discriminators and malformed operation bodies are decode errors; a Plan
// either parses fully or not at all.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var env struct {
		PlanVersion int               `json:"plan_version"`
		Ops         []json.RawMessage `json:"ops"`
		Constraints map[string]any    `json:"constraints"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	ops := make([]Op, 0, len(env.Ops))
	for i, raw := range env.Ops {
		var disc struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(raw, &disc); err != nil {
			return fmt.Errorf("schema: op %d: %w", i, err)
		}
		op, err := unmarshalOp(disc.Op, raw)
		if err != nil {
			return fmt.Errorf("schema: op %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	p.PlanVersion = env.PlanVersion
	p.Ops = ops
	p.Constraints = env.Constraints
	if p.Constraints == nil {
		p.Constraints = map[string]any{}
	}
	return nil
}

func unmarshalOp(kind string, raw []byte) (Op, error) {
	switch kind {
	case "add_component":
		var v AddComponent
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "wire":
		var v Wire
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "label":
		var v Label
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case "":
		return nil, fmt.Errorf("missing op discriminator")
	default:
		return nil, fmt.Errorf("unknown op %q", kind)
	}
}

// ParsePlan decodes a plan from its wire JSON.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
