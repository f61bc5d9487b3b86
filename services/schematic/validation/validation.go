// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation holds pure, document-independent validators for the
// operation parameters carried by a plan.
//
// Plan parameters originate from an LLM and are untrusted. Every string that
// is later used to resolve a library file must be validated here before use,
// so a hostile plan cannot smuggle a path traversal into a lookup.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	// MaxSymbolNameLen bounds the full "Library:Name" string.
	MaxSymbolNameLen = 200
	// MaxPinNameLen bounds the pin portion of a "REF:PIN" spec.
	MaxPinNameLen = 50
	// MaxCoordinate bounds coordinate magnitudes (practical schematic limit).
	MaxCoordinate = 1000000.0
)

var (
	symbolPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-+. ]+:[a-zA-Z0-9_\-+. ]+$`)
	refPattern    = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
)

// SymbolName validates a "Library:Name" symbol id.
//
// The rules block path traversal: exactly one colon split into non-empty
// parts, no ".." sequences, no path separators, charset limited to
// alphanumerics plus "-", "_", "+", ".", and space.
func SymbolName(symbol string) (bool, string) {
	if strings.TrimSpace(symbol) == "" {
		return false, "symbol name cannot be empty"
	}
	if !strings.Contains(symbol, ":") {
		return false, "symbol must be in format 'Library:Name'"
	}
	lib, name, _ := strings.Cut(symbol, ":")
	if strings.TrimSpace(lib) == "" || strings.TrimSpace(name) == "" {
		return false, "library and symbol name cannot be empty"
	}
	if strings.Contains(lib, "..") || strings.Contains(name, "..") {
		return false, "symbol name contains path traversal"
	}
	if strings.ContainsAny(symbol, `/\`) {
		return false, "symbol name contains path separators"
	}
	if !symbolPattern.MatchString(symbol) {
		return false, "symbol name contains invalid characters"
	}
	if len(symbol) > MaxSymbolNameLen {
		return false, fmt.Sprintf("symbol name too long (max %d characters)", MaxSymbolNameLen)
	}
	return true, ""
}

// WireFormat validates a "REF:PIN" wire endpoint and returns the parsed
// parts. The split is on the first colon only, so a pin name may itself
// contain colons. The reference must be uppercase letters followed by
// digits (R1, U47).
func WireFormat(spec string) (ok bool, errMsg string, ref string, pin string) {
	if strings.TrimSpace(spec) == "" {
		return false, "wire specification cannot be empty", "", ""
	}
	if !strings.Contains(spec, ":") {
		return false, fmt.Sprintf("wire format must be 'REF:PIN', got %q", spec), "", ""
	}
	rawRef, rawPin, _ := strings.Cut(spec, ":")
	ref = strings.TrimSpace(rawRef)
	pin = strings.TrimSpace(rawPin)
	if ref == "" {
		return false, "component reference cannot be empty", "", ""
	}
	if !refPattern.MatchString(ref) {
		return false, fmt.Sprintf("invalid component reference %q (expected format: R1, U5, C10)", ref), "", ""
	}
	if pin == "" {
		return false, "pin name/number cannot be empty", "", ""
	}
	if len(rawPin) > MaxPinNameLen {
		return false, "pin name too long", "", ""
	}
	return true, "", ref, pin
}

// Coordinate validates an [x, y] pair and returns the parsed values. Both
// elements must be finite and within ±MaxCoordinate.
func Coordinate(coord []float64) (ok bool, errMsg string, x float64, y float64) {
	if len(coord) != 2 {
		return false, fmt.Sprintf("coordinate must have exactly 2 values, got %d", len(coord)), 0, 0
	}
	x, y = coord[0], coord[1]
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return false, "coordinate values must be finite numbers", 0, 0
	}
	if math.Abs(x) > MaxCoordinate || math.Abs(y) > MaxCoordinate {
		return false, fmt.Sprintf("coordinate values exceed maximum %g", MaxCoordinate), 0, 0
	}
	return true, "", x, y
}
