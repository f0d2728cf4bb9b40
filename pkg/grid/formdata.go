package grid

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/story-grid/pkg/script"
)

var (
	// ErrMalformedPayload is returned for input that is not valid JSON of
	// either supported shape.
	ErrMalformedPayload = errors.New("malformed story grid payload")
	// ErrUnrecognizedShape is returned for a JSON object carrying neither
	// topRow/bottomRows nor visualElements.
	ErrUnrecognizedShape = errors.New("unrecognized story grid payload shape")
	// ErrInvalidActiveStep is returned when an import names a step outside [0,3].
	ErrInvalidActiveStep = errors.New("active step out of range")
)

// TopEntry is a marker on the lane above the path.
type TopEntry struct {
	Column      int    `json:"col"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// BottomEntry is a marker on a lane below the path.
type BottomEntry struct {
	Row         int    `json:"row"`
	Column      int    `json:"col"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// FormData is the shape the host form stores for a story-grid field.
// Symbols and colors are display data and are not part of it.
type FormData struct {
	TopRow        []TopEntry    `json:"topRow"`
	BottomRows    []BottomEntry `json:"bottomRows"`
	ActiveStep    int           `json:"activeStep"`
	TotalElements int           `json:"totalElements"`
}

// Export partitions the markers into the top lane and the lanes below the
// path, keeping placement order.
func (g *Grid) Export() FormData {
	fd := FormData{
		TopRow:        []TopEntry{},
		BottomRows:    []BottomEntry{},
		ActiveStep:    g.activeStep,
		TotalElements: len(g.markers),
	}
	for _, m := range g.markers {
		switch {
		case m.Row == TopRow:
			fd.TopRow = append(fd.TopRow, TopEntry{Column: m.Column, Type: m.Type, Description: m.Description})
		case m.Row >= FirstLaneRow:
			fd.BottomRows = append(fd.BottomRows, BottomEntry{Row: m.Row, Column: m.Column, Type: m.Type, Description: m.Description})
		}
	}
	return fd
}

// GetData is the host-facing name for Export.
func (g *Grid) GetData() FormData { return g.Export() }

// Entry is one marker to import, in either shape.
type Entry struct {
	Row         int
	Column      int
	Type        string
	Description string
}

// Payload is a decoded import. ActiveStep is nil when the input had none.
type Payload struct {
	Entries    []Entry
	ActiveStep *int
	Legacy     bool
}

// Payload converts form data into an import payload.
func (fd FormData) Payload() Payload {
	step := fd.ActiveStep
	p := Payload{ActiveStep: &step}
	for _, e := range fd.TopRow {
		p.Entries = append(p.Entries, Entry{Row: TopRow, Column: e.Column, Type: e.Type, Description: e.Description})
	}
	for _, e := range fd.BottomRows {
		p.Entries = append(p.Entries, Entry{Row: e.Row, Column: e.Column, Type: e.Type, Description: e.Description})
	}
	return p
}

type legacyElement struct {
	Row         int    `json:"row"`
	Column      int    `json:"col"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// DecodePayload parses a stored field value. Objects with a topRow or
// bottomRows key use the current shape; objects with visualElements use the
// legacy flat list, where each element's own row decides its lane.
func DecodePayload(data []byte) (Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var p Payload
	if v, ok := raw["activeStep"]; ok && string(v) != "null" {
		var step int
		if err := json.Unmarshal(v, &step); err != nil {
			return Payload{}, fmt.Errorf("%w: activeStep: %v", ErrMalformedPayload, err)
		}
		p.ActiveStep = &step
	}

	_, hasTop := raw["topRow"]
	_, hasBottom := raw["bottomRows"]
	legacy, hasLegacy := raw["visualElements"]

	switch {
	case hasTop || hasBottom:
		var top []TopEntry
		if err := unmarshalList(raw["topRow"], &top); err != nil {
			return Payload{}, fmt.Errorf("%w: topRow: %v", ErrMalformedPayload, err)
		}
		var bottom []BottomEntry
		if err := unmarshalList(raw["bottomRows"], &bottom); err != nil {
			return Payload{}, fmt.Errorf("%w: bottomRows: %v", ErrMalformedPayload, err)
		}
		for _, e := range top {
			p.Entries = append(p.Entries, Entry{Row: TopRow, Column: e.Column, Type: e.Type, Description: e.Description})
		}
		for _, e := range bottom {
			p.Entries = append(p.Entries, Entry{Row: e.Row, Column: e.Column, Type: e.Type, Description: e.Description})
		}
	case hasLegacy:
		var elems []legacyElement
		if err := unmarshalList(legacy, &elems); err != nil {
			return Payload{}, fmt.Errorf("%w: visualElements: %v", ErrMalformedPayload, err)
		}
		p.Legacy = true
		for _, e := range elems {
			p.Entries = append(p.Entries, Entry(e))
		}
	default:
		return Payload{}, ErrUnrecognizedShape
	}
	return p, nil
}

func unmarshalList(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// ImportReport describes what an import kept and dropped.
type ImportReport struct {
	Imported     int `json:"imported"`
	Dropped      int `json:"dropped"`
	UnknownTypes int `json:"unknown_types"`
}

// Import replaces the markers with the payload's entries. Symbols and colors
// come from the catalog, with a placeholder for unknown types, and every
// marker gets a fresh id. A present active step overwrites the current one.
// Entries outside the grid (lanes at or past MaxRows included), on the path
// row, in the empty King and Goal cells
// of the top lane, or on an already used cell are dropped. On error the grid
// is left unchanged.
func (g *Grid) Import(p Payload) (ImportReport, error) {
	var report ImportReport
	if p.ActiveStep != nil && (*p.ActiveStep < 0 || *p.ActiveStep > MaxActiveStep) {
		return report, fmt.Errorf("%w: %d", ErrInvalidActiveStep, *p.ActiveStep)
	}

	type cell struct{ row, col int }
	used := make(map[cell]bool, len(p.Entries))
	markers := make([]Marker, 0, len(p.Entries))
	for _, e := range p.Entries {
		if !importable(e.Row, e.Column) {
			report.Dropped++
			g.log.Warn("Dropping story grid entry outside the grid", "row", e.Row, "col", e.Column, "type", e.Type)
			continue
		}
		c := cell{e.Row, e.Column}
		if used[c] {
			report.Dropped++
			g.log.Warn("Dropping duplicate story grid entry", "row", e.Row, "col", e.Column, "type", e.Type)
			continue
		}
		used[c] = true

		ch, known := g.catalog.Lookup(e.Type)
		if !known {
			report.UnknownTypes++
			g.log.Warn("Unknown character type, using placeholder", "type", e.Type)
			ch = g.catalog.Resolve(e.Type)
		}
		markers = append(markers, Marker{
			ID:          g.newID(),
			Row:         e.Row,
			Column:      e.Column,
			Type:        e.Type,
			Symbol:      ch.Symbol,
			Color:       ch.Color,
			Description: e.Description,
		})
	}
	report.Imported = len(markers)

	g.markers = markers
	if p.ActiveStep != nil {
		g.activeStep = *p.ActiveStep
		if len(g.boxes) > g.activeStep {
			g.boxes = g.boxes[:g.activeStep:g.activeStep]
		}
	}
	g.notify()
	return report, nil
}

func importable(row, col int) bool {
	if col < 0 || col >= script.Columns || row < 0 || row >= MaxRows || row == PathRow {
		return false
	}
	if row == TopRow && (col == script.ColumnKing || col == script.ColumnGoal) {
		return false
	}
	return true
}

// SetData decodes and imports a stored field value. On any error the grid
// keeps its prior state and a warning is logged.
func (g *Grid) SetData(data []byte) (ImportReport, error) {
	p, err := DecodePayload(data)
	if err != nil {
		g.log.Warn("Skipping story grid data", "error", err)
		return ImportReport{}, err
	}
	report, err := g.Import(p)
	if err != nil {
		g.log.Warn("Skipping story grid data", "error", err)
		return report, err
	}
	return report, nil
}

// MarshalJSON keeps empty lanes as [] rather than null.
func (fd FormData) MarshalJSON() ([]byte, error) {
	type alias FormData
	a := alias(fd)
	if a.TopRow == nil {
		a.TopRow = []TopEntry{}
	}
	if a.BottomRows == nil {
		a.BottomRows = []BottomEntry{}
	}
	return json.Marshal(a)
}
