// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianCAD/services/schematic/backup"
)

// pinDef is one library pin: number, optional name, offset from the symbol
// anchor. Unnamed pins use "~" like the underlying EDA libraries do.
type pinDef struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Offset Point  `json:"offset"`
}

// builtinLibrary is a small symbol table covering the common parts the
// planner emits. Two-terminal bodies use the standard 2.54mm half-length.
var builtinLibrary = map[string][]pinDef{
	"Device:R": {
		{Number: "1", Name: "~", Offset: Point{X: -2.54}},
		{Number: "2", Name: "~", Offset: Point{X: 2.54}},
	},
	"Device:C": {
		{Number: "1", Name: "~", Offset: Point{X: -2.54}},
		{Number: "2", Name: "~", Offset: Point{X: 2.54}},
	},
	"Device:L": {
		{Number: "1", Name: "~", Offset: Point{X: -2.54}},
		{Number: "2", Name: "~", Offset: Point{X: 2.54}},
	},
	"Device:D": {
		{Number: "1", Name: "K", Offset: Point{X: -2.54}},
		{Number: "2", Name: "A", Offset: Point{X: 2.54}},
	},
	"Device:LED": {
		{Number: "1", Name: "K", Offset: Point{X: -2.54}},
		{Number: "2", Name: "A", Offset: Point{X: 2.54}},
	},
	"power:GND": {
		{Number: "1", Name: "GND", Offset: Point{}},
	},
	"power:VCC": {
		{Number: "1", Name: "VCC", Offset: Point{}},
	},
	"Connector:Conn_01x02_Pin": {
		{Number: "1", Name: "Pin_1", Offset: Point{Y: -2.54}},
		{Number: "2", Name: "Pin_2", Offset: Point{Y: 2.54}},
	},
	"Amplifier_Operational:LM358": {
		{Number: "1", Name: "OUT1", Offset: Point{X: -7.62, Y: -2.54}},
		{Number: "2", Name: "IN1-", Offset: Point{X: -7.62, Y: 0}},
		{Number: "3", Name: "IN1+", Offset: Point{X: -7.62, Y: 2.54}},
		{Number: "4", Name: "V-", Offset: Point{X: 0, Y: 5.08}},
		{Number: "5", Name: "IN2+", Offset: Point{X: 7.62, Y: 2.54}},
		{Number: "6", Name: "IN2-", Offset: Point{X: 7.62, Y: 0}},
		{Number: "7", Name: "OUT2", Offset: Point{X: 7.62, Y: -2.54}},
		{Number: "8", Name: "V+", Offset: Point{X: 0, Y: -5.08}},
	},
}

// MemSymbol is the in-memory Symbol implementation.
type MemSymbol struct {
	libID    string
	ref      string
	value    string
	at       Point
	rotation int
	fields   map[string]string

	// pins is nil when the library definition is "not loaded" for this
	// symbol, which mirrors a freshly created symbol before a save/reload
	// round trip repopulates the library table.
	pins []pinDef
}

func (s *MemSymbol) Reference() string { return s.ref }
func (s *MemSymbol) LibID() string     { return s.libID }
func (s *MemSymbol) Position() Point   { return s.at }
func (s *MemSymbol) Value() string     { return s.value }
func (s *MemSymbol) Rotation() int     { return s.rotation }

func (s *MemSymbol) SetValue(value string) bool {
	s.value = value
	return true
}

func (s *MemSymbol) SetRotation(degrees int) bool {
	switch degrees {
	case 0, 90, 180, 270:
		s.rotation = degrees
		return true
	default:
		return false
	}
}

func (s *MemSymbol) SetField(name, value string) bool {
	if name == "" {
		return false
	}
	if s.fields == nil {
		s.fields = map[string]string{}
	}
	s.fields[name] = value
	return true
}

// Field returns a custom field value.
func (s *MemSymbol) Field(name string) (string, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// MemWire is the in-memory Wire implementation.
type MemWire struct {
	pts [2]Point
}

func (w *MemWire) Points() [2]Point { return w.pts }

// MemLabel is the in-memory Label implementation.
type MemLabel struct {
	text string
	at   Point
}

func (l *MemLabel) Text() string    { return l.text }
func (l *MemLabel) Position() Point { return l.at }

// MemDocument is an in-memory schematic document backed by the built-in
// symbol library. It implements Document, SymbolCreator and Serializer and
// backs tests, dry runs and the demo server.
//
// The mutex only guards against accidental cross-request sharing in the demo
// server; within one apply call the document is single-writer by contract.
type MemDocument struct {
	mu      sync.Mutex
	symbols []*MemSymbol
	wires   []*MemWire
	labels  []*MemLabel

	// DeferPinData makes newly created symbols carry no pin geometry until
	// ReloadLibraries is called, simulating a document whose library table
	// is only populated on save/reload.
	DeferPinData bool
}

// NewMem returns an empty in-memory document.
func NewMem() *MemDocument { return &MemDocument{} }

func (d *MemDocument) Symbols() []Symbol {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Symbol, len(d.symbols))
	for i, s := range d.symbols {
		out[i] = s
	}
	return out
}

func (d *MemDocument) Wires() []Wire {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Wire, len(d.wires))
	for i, w := range d.wires {
		out[i] = w
	}
	return out
}

func (d *MemDocument) Labels() []Label {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Label, len(d.labels))
	for i, l := range d.labels {
		out[i] = l
	}
	return out
}

func (d *MemDocument) PinLocations(sym Symbol) (map[string]Point, bool) {
	ms, ok := sym.(*MemSymbol)
	if !ok || ms.pins == nil {
		return nil, false
	}
	locations := make(map[string]Point, len(ms.pins)*2)
	for _, p := range ms.pins {
		abs := Point{X: ms.at.X + p.Offset.X, Y: ms.at.Y + p.Offset.Y}
		locations[p.Number] = abs
		if p.Name != "" && p.Name != "~" {
			locations[p.Name] = abs
		}
	}
	return locations, true
}

func (d *MemDocument) CreateSymbol(libID, reference string, x, y float64, opts SymbolOptions) (Symbol, error) {
	pins, known := builtinLibrary[libID]
	if !known {
		return nil, fmt.Errorf("symbol %q not found in library table", libID)
	}
	sym := &MemSymbol{
		libID: libID,
		ref:   reference,
		at:    Point{X: x, Y: y},
	}
	if !d.DeferPinData {
		sym.pins = pins
	}
	d.mu.Lock()
	d.symbols = append(d.symbols, sym)
	d.mu.Unlock()
	return sym, nil
}

// AddSymbol places a pre-existing symbol, as if it had been added manually
// in the editor. Unknown library ids get no pin geometry.
func (d *MemDocument) AddSymbol(libID, reference string, x, y float64) *MemSymbol {
	sym := &MemSymbol{
		libID: libID,
		ref:   reference,
		at:    Point{X: x, Y: y},
		pins:  builtinLibrary[libID],
	}
	d.mu.Lock()
	d.symbols = append(d.symbols, sym)
	d.mu.Unlock()
	return sym
}

// ReloadLibraries repopulates pin geometry for symbols whose library is
// known, simulating the save/reload round trip a real editor performs.
func (d *MemDocument) ReloadLibraries() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.symbols {
		if s.pins == nil {
			s.pins = builtinLibrary[s.libID]
		}
	}
}

// Clone returns a deep copy sharing no state with the receiver. Used for
// dry-run applies.
func (d *MemDocument) Clone() *MemDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := &MemDocument{DeferPinData: d.DeferPinData}
	out.symbols = make([]*MemSymbol, len(d.symbols))
	for i, s := range d.symbols {
		cp := *s
		if s.fields != nil {
			cp.fields = make(map[string]string, len(s.fields))
			for k, v := range s.fields {
				cp.fields[k] = v
			}
		}
		out.symbols[i] = &cp
	}
	out.wires = make([]*MemWire, len(d.wires))
	for i, w := range d.wires {
		cp := *w
		out.wires[i] = &cp
	}
	out.labels = make([]*MemLabel, len(d.labels))
	for i, l := range d.labels {
		cp := *l
		out.labels[i] = &cp
	}
	return out
}

func (d *MemDocument) CreateWire(a, b Point) (Wire, error) {
	w := &MemWire{pts: [2]Point{a, b}}
	d.mu.Lock()
	d.wires = append(d.wires, w)
	d.mu.Unlock()
	return w, nil
}

func (d *MemDocument) CreateLabel(text string, at Point) (Label, error) {
	if text == "" {
		return nil, fmt.Errorf("label text cannot be empty")
	}
	l := &MemLabel{text: text, at: at}
	d.mu.Lock()
	d.labels = append(d.labels, l)
	d.mu.Unlock()
	return l, nil
}

// =============================================================================
// Persistence
// =============================================================================

type memSymbolJSON struct {
	LibID    string            `json:"lib_id"`
	Ref      string            `json:"ref"`
	Value    string            `json:"value,omitempty"`
	At       Point             `json:"at"`
	Rotation int               `json:"rot,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

type memWireJSON struct {
	Points [2]Point `json:"pts"`
}

type memLabelJSON struct {
	Text string `json:"text"`
	At   Point  `json:"at"`
}

type memDocJSON struct {
	Symbols []memSymbolJSON `json:"symbols"`
	Wires   []memWireJSON   `json:"wires"`
	Labels  []memLabelJSON  `json:"labels"`
}

// SerializeToPath writes the document as stable, diffable JSON.
func (d *MemDocument) SerializeToPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	dump := memDocJSON{
		Symbols: make([]memSymbolJSON, 0, len(d.symbols)),
		Wires:   make([]memWireJSON, 0, len(d.wires)),
		Labels:  make([]memLabelJSON, 0, len(d.labels)),
	}
	for _, s := range d.symbols {
		fields := s.fields
		if len(fields) > 0 {
			// Copy so later mutation cannot race the encoder.
			fields = make(map[string]string, len(s.fields))
			for k, v := range s.fields {
				fields[k] = v
			}
		}
		dump.Symbols = append(dump.Symbols, memSymbolJSON{
			LibID: s.libID, Ref: s.ref, Value: s.value, At: s.at, Rotation: s.rotation, Fields: fields,
		})
	}
	for _, w := range d.wires {
		dump.Wires = append(dump.Wires, memWireJSON{Points: w.pts})
	}
	for _, l := range d.labels {
		dump.Labels = append(dump.Labels, memLabelJSON{Text: l.text, At: l.at})
	}
	d.mu.Unlock()

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize schematic: %w", err)
	}
	// Rename-based write: an interrupted save never truncates the document.
	return backup.WriteAtomic(path, append(data, '\n'))
}

// LoadMem reads a document previously written by SerializeToPath.
func LoadMem(path string) (*MemDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dump memDocJSON
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse schematic %s: %w", path, err)
	}
	doc := NewMem()
	for _, s := range dump.Symbols {
		sym := doc.AddSymbol(s.LibID, s.Ref, s.At.X, s.At.Y)
		sym.value = s.Value
		sym.rotation = s.Rotation
		if len(s.Fields) > 0 {
			sym.fields = s.Fields
		}
	}
	for _, w := range dump.Wires {
		if _, err := doc.CreateWire(w.Points[0], w.Points[1]); err != nil {
			return nil, err
		}
	}
	for _, l := range dump.Labels {
		if _, err := doc.CreateLabel(l.Text, l.At); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// LibraryIDs lists the symbols available in the built-in library, sorted.
func LibraryIDs() []string {
	ids := make([]string, 0, len(builtinLibrary))
	for id := range builtinLibrary {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
