package editor

import (
	"github.com/google/uuid"
	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"golang.org/x/text/unicode/norm"
)

// Mode is what the surface is waiting for.
type Mode int

const (
	// ModeIdle has nothing selected.
	ModeIdle Mode = iota
	// ModePicking has an empty cell targeted and the character panel open.
	ModePicking
	// ModeEditing has a marker selected and its description in the editor.
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModePicking:
		return "picking"
	case ModeEditing:
		return "editing"
	default:
		return "idle"
	}
}

// Cell is a grid coordinate.
type Cell struct {
	Row    int
	Column int
}

// Option is one entry of the character panel.
type Option struct {
	catalog.Character
	Name      string
	Limit     string
	Placed    int
	Remaining int
}

// Surface translates user intents into grid operations. It holds only the
// current selection and the pending description text; everything else lives
// in the grid.
type Surface struct {
	grid *grid.Grid

	mode     Mode
	target   Cell
	selected uuid.UUID
	pending  string
}

// New wraps g.
func New(g *grid.Grid) *Surface {
	return &Surface{grid: g}
}

// Grid returns the wrapped grid for read-only queries.
func (s *Surface) Grid() *grid.Grid { return s.grid }

// Mode returns the current interaction mode.
func (s *Surface) Mode() Mode { return s.mode }

// Pending returns the description being edited.
func (s *Surface) Pending() string { return s.pending }

// Target returns the empty cell the picker was opened for.
func (s *Surface) Target() (Cell, bool) {
	return s.target, s.mode == ModePicking
}

// Selected returns the marker being edited.
func (s *Surface) Selected() (grid.Marker, bool) {
	if s.mode != ModeEditing {
		return grid.Marker{}, false
	}
	return s.grid.Marker(s.selected)
}

// Click handles a pointer event on a cell. A marker in an editable cell is
// selected for editing; an empty editable cell opens the character panel.
// Clicks on anything else are ignored and return false.
func (s *Surface) Click(row, col int) bool {
	if !s.grid.CellAccess(row, col).Editable {
		return false
	}
	if m, ok := s.grid.MarkerAt(row, col); ok {
		s.selectMarker(m)
		return true
	}
	s.discard()
	s.mode = ModePicking
	s.target = Cell{Row: row, Column: col}
	return true
}

// OpenPicker opens the character panel for the add affordance of the active
// column.
func (s *Surface) OpenPicker() bool {
	row, ok := s.grid.AddTarget()
	if !ok {
		return false
	}
	s.discard()
	s.mode = ModePicking
	s.target = Cell{Row: row, Column: s.grid.ActiveStep()}
	return true
}

// Options lists the character panel with the placement hints of each type.
func (s *Surface) Options() []Option {
	cat := s.grid.Catalog()
	chars := cat.Characters()
	out := make([]Option, 0, len(chars))
	for _, ch := range chars {
		placed := s.grid.CountByType(ch.Type)
		out = append(out, Option{
			Character: ch,
			Name:      cat.DisplayName(ch.Type),
			Limit:     cat.LimitLabel(ch.Type),
			Placed:    placed,
			Remaining: cat.Remaining(ch.Type, placed),
		})
	}
	return out
}

// Pick places a character for the open picker. A target on the lane above
// the path places there; anything else goes through the active column's
// placement rule. The new marker is selected for editing.
func (s *Surface) Pick(typ string) (grid.Marker, bool) {
	if s.mode != ModePicking {
		return grid.Marker{}, false
	}
	var (
		m  grid.Marker
		ok bool
	)
	if s.target.Row == grid.TopRow {
		m, ok = s.grid.PlaceAbove(s.target.Column, typ, "")
	} else {
		m, ok = s.grid.PlaceMarker(s.target.Column, typ, "")
	}
	if !ok {
		return grid.Marker{}, false
	}
	s.selectMarker(m)
	return m, true
}

// SetPending replaces the pending description text.
func (s *Surface) SetPending(text string) {
	if s.mode == ModeEditing {
		s.pending = text
	}
}

// Save writes the pending description to the selected marker and clears the
// selection. Text is stored in NFC form.
func (s *Surface) Save() bool {
	if s.mode != ModeEditing {
		return false
	}
	ok := s.grid.EditDescription(s.selected, norm.NFC.String(s.pending))
	s.discard()
	return ok
}

// Cancel drops the selection and any pending text.
func (s *Surface) Cancel() { s.discard() }

// Delete removes the selected marker.
func (s *Surface) Delete() bool {
	m, ok := s.Selected()
	s.discard()
	if !ok {
		return false
	}
	return s.grid.DeleteMarker(m.Row, m.Column)
}

// Advance unlocks the next step.
func (s *Surface) Advance() bool {
	s.discard()
	return s.grid.Advance()
}

// Clean resets the grid to its first step.
func (s *Surface) Clean() {
	s.discard()
	s.grid.Reset()
}

// ChangeScenario selects another story script.
func (s *Surface) ChangeScenario(key string) {
	s.discard()
	s.grid.SetScenario(key)
}

func (s *Surface) selectMarker(m grid.Marker) {
	s.mode = ModeEditing
	s.selected = m.ID
	s.pending = m.Description
	s.target = Cell{}
}

func (s *Surface) discard() {
	s.mode = ModeIdle
	s.selected = uuid.Nil
	s.pending = ""
	s.target = Cell{}
}
