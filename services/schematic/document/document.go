// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package document defines the schematic document collaborator contract
// consumed by the writer, plus an in-memory implementation.
//
// The writer does not parse or write any schematic file format; it mutates a
// Document through this interface and leaves persistence to the caller.
// Optional abilities (symbol creation, serialization) are expressed as
// separate capability interfaces. Callers detect a capability once with a
// type assertion and select a strategy up front instead of probing per call.
package document

import "context"

// Point is a schematic coordinate in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Symbol is a handle to one placed component instance.
//
// The mutators are best-effort by contract: they report success with a bool
// and never panic, because display metadata (value, rotation, custom fields)
// is non-critical and a failed set must not abort an apply.
type Symbol interface {
	// Reference returns the reference designator, e.g. "R1". Symbols for
	// which no reference can be determined return "".
	Reference() string
	// LibID returns the "Library:Name" symbol id.
	LibID() string
	// Position returns the symbol anchor position.
	Position() Point

	SetValue(value string) bool
	SetRotation(degrees int) bool
	SetField(name, value string) bool
}

// Wire is a handle to one wire segment.
type Wire interface {
	Points() [2]Point
}

// Label is a handle to one net label.
type Label interface {
	Text() string
	Position() Point
}

// Document is the mutable schematic state the writer operates on.
//
// A Document is shared, single-writer, single-threaded state: it is mutated
// in place, never copied, and no concurrent mutation is permitted for the
// duration of one apply call.
type Document interface {
	// Symbols returns the symbol collection in document order.
	Symbols() []Symbol
	// Wires returns the wire collection in document order.
	Wires() []Wire
	// Labels returns the label collection in document order.
	Labels() []Label

	// PinLocations returns pin-identifier → coordinate for a symbol, keyed
	// by both pin number and pin name (unnamed "~" pins appear under their
	// number only). ok is false when the symbol's library definition is not
	// loaded and no pin geometry is queryable.
	PinLocations(sym Symbol) (locations map[string]Point, ok bool)

	// CreateWire appends a wire with the given endpoints.
	CreateWire(a, b Point) (Wire, error)
	// CreateLabel appends a net label.
	CreateLabel(text string, at Point) (Label, error)
}

// SymbolOptions carries the unit/inclusion flags for symbol creation.
type SymbolOptions struct {
	Unit    int
	InBOM   bool
	OnBoard bool
	DNP     bool
}

// DefaultSymbolOptions matches the flags used for every planner-created
// symbol: unit 1, in BOM, on board, not DNP.
func DefaultSymbolOptions() SymbolOptions {
	return SymbolOptions{Unit: 1, InBOM: true, OnBoard: true}
}

// SymbolCreator is the optional symbol-creation capability. Document
// implementations bound to libraries without programmatic creation support
// simply do not implement it; the writer reports the gap as a diagnostic.
type SymbolCreator interface {
	CreateSymbol(libID, reference string, x, y float64, opts SymbolOptions) (Symbol, error)
}

// Serializer is the optional persistence capability.
type Serializer interface {
	SerializeToPath(ctx context.Context, path string) error
}
