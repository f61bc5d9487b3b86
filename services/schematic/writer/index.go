// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package writer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/schema"
)

// refIndex maps reference designator → symbol handle. It is ephemeral: built
// once per apply call and rebuilt after additive mutations; never shared
// across calls.
type refIndex map[string]document.Symbol

// buildRefIndex scans the symbol collection once. Symbols without an
// extractable reference are skipped; on duplicate references the last symbol
// wins, matching the collection's iteration order.
func buildRefIndex(doc document.Document) refIndex {
	index := make(refIndex)
	for _, sym := range doc.Symbols() {
		if ref := sym.Reference(); ref != "" {
			index[ref] = sym
		}
	}
	return index
}

// twoPinFallbackOffset is the standard half body length of the common
// two-terminal symbols (2.54mm = 100mil).
const twoPinFallbackOffset = 2.54

// twoPinPassives are the library parts the pin-geometry fallback may assume
// a two-pin horizontal body for.
var twoPinPassives = map[string]bool{
	"R": true, "R_Small": true,
	"C": true, "C_Small": true,
	"L": true, "L_Small": true,
	"D": true, "D_Small": true,
	"LED": true,
}

func isTwoPinPassive(libID string) bool {
	_, name, ok := strings.Cut(libID, ":")
	return ok && twoPinPassives[name]
}

// pinLocations returns pin-identifier → coordinate for a symbol.
//
// It prefers the document's native pin query. When that yields nothing (the
// symbol was just created and its library definition is not attached yet)
// and the part is a two-pin passive, it falls back to the standard offsets
// pin "1" at (x-2.54, y) and pin "2" at (x+2.54, y). The fallback is an
// approximation that lets a freshly added resistor or LED be wired without a
// save/reload round trip; it is never applied to multi-pin parts.
func pinLocations(doc document.Document, sym document.Symbol) map[string]document.Point {
	if locs, ok := doc.PinLocations(sym); ok && len(locs) > 0 {
		return locs
	}
	if !isTwoPinPassive(sym.LibID()) {
		return nil
	}
	at := sym.Position()
	return map[string]document.Point{
		"1": {X: at.X - twoPinFallbackOffset, Y: at.Y},
		"2": {X: at.X + twoPinFallbackOffset, Y: at.Y},
	}
}

// lookupPinCoords resolves one "REF:PIN" endpoint to a coordinate. The three
// failure modes produce distinctly worded diagnostics so callers can give
// actionable feedback: component missing, pin data unavailable (transient),
// pin name unknown.
func lookupPinCoords(doc document.Document, index refIndex, ref, pin string, diags *[]schema.Diagnostic) (document.Point, bool) {
	sym, ok := index[ref]
	if !ok {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityError,
			Ref:        ref,
			Message:    fmt.Sprintf("Component %s not found in schematic", ref),
			Suggestion: "Ensure the component is added before wiring",
		})
		return document.Point{}, false
	}

	locs := pinLocations(doc, sym)
	if len(locs) == 0 {
		*diags = append(*diags, schema.Diagnostic{
			Stage:      schema.StageWriter,
			Severity:   schema.SeverityWarning,
			Ref:        ref,
			Message:    fmt.Sprintf("Pin coordinates not yet available for %s (symbol created but library definitions not loaded)", ref),
			Suggestion: "Save and reload the schematic, or the wire will be skipped for now",
		})
		return document.Point{}, false
	}

	if pt, ok := locs[pin]; ok {
		return pt, true
	}

	available := make([]string, 0, len(locs))
	for name := range locs {
		available = append(available, name)
	}
	sort.Strings(available)
	if len(available) > 10 {
		available = available[:10]
	}
	*diags = append(*diags, schema.Diagnostic{
		Stage:      schema.StageWriter,
		Severity:   schema.SeverityError,
		Ref:        ref,
		Message:    fmt.Sprintf("Pin %q not found on %s", pin, ref),
		Suggestion: "Available pins: " + strings.Join(available, ", "),
	})
	return document.Point{}, false
}
