package grid

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/jwebster45206/story-grid/pkg/script"
)

const (
	// TopRow is the lane above the step path.
	TopRow = 0
	// PathRow holds the step path itself.
	PathRow = 1
	// FirstLaneRow is the first content lane below the path.
	FirstLaneRow = 2

	MinRows = 4
	MaxRows = 7

	InitialStep   = 1
	MaxActiveStep = 3

	DefaultScenario = script.KeySettingsExist
)

// Marker is a placed character.
type Marker struct {
	ID          uuid.UUID `json:"id"`
	Row         int       `json:"row"`
	Column      int       `json:"col"`
	Type        string    `json:"type"`
	Symbol      string    `json:"symbol"` // frozen at creation
	Color       string    `json:"color"`  // frozen at creation
	Description string    `json:"description"`
}

// StoryBox records the narrative shown when a step unlocked.
type StoryBox struct {
	ID        uuid.UUID `json:"id"`
	Step      int       `json:"step"`
	Title     string    `json:"title"`
	Symbol    string    `json:"symbol"`
	Color     string    `json:"color"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// frozenStructure is the step path for the current scenario. New resolves it
// immediately; resolved is false only on a zero-value Grid, where the path
// reads as locked.
type frozenStructure struct {
	value    script.Structure
	resolved bool
}

type subscriber struct {
	id int
	fn func(FormData)
}

type scenarioSubscriber struct {
	id int
	fn func(string)
}

// Grid is the progressive story-grid state machine. It owns the markers, the
// active step, the story log and the frozen step path of one editor. It is
// not safe for concurrent use; the embedding editor is the only writer.
type Grid struct {
	resolver *script.Resolver
	catalog  *catalog.Catalog
	log      *slog.Logger
	now      func() time.Time
	newID    func() uuid.UUID

	activeStep  int
	scenarioKey string
	structure   frozenStructure
	markers     []Marker
	boxes       []StoryBox

	nextSubID    int
	subs         []subscriber
	scenarioSubs []scenarioSubscriber
}

// Option configures a Grid.
type Option func(*Grid)

// WithScenario sets the initial scenario key.
func WithScenario(key string) Option {
	return func(g *Grid) { g.scenarioKey = key }
}

// WithResolver sets the script resolver.
func WithResolver(r *script.Resolver) Option {
	return func(g *Grid) { g.resolver = r }
}

// WithCatalog sets the character catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(g *Grid) { g.catalog = c }
}

// WithLogger sets the logger used for import warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Grid) { g.log = l }
}

// WithClock sets the story box clock.
func WithClock(now func() time.Time) Option {
	return func(g *Grid) { g.now = now }
}

// WithIDGenerator sets the marker and story box id source.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(g *Grid) { g.newID = fn }
}

// New creates a grid at step 1 and freezes the step path of its scenario.
func New(opts ...Option) *Grid {
	g := &Grid{
		activeStep:  InitialStep,
		scenarioKey: DefaultScenario,
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.resolver == nil {
		g.resolver = script.NewDefaultResolver(nil)
	}
	if g.catalog == nil {
		g.catalog = catalog.Default()
	}
	if g.log == nil {
		g.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g.freeze()
	return g
}

func (g *Grid) freeze() {
	g.structure = frozenStructure{value: g.resolver.Resolve(g.scenarioKey), resolved: true}
}

// Catalog returns the character catalog in use.
func (g *Grid) Catalog() *catalog.Catalog { return g.catalog }

// ActiveStep returns the column currently open for placement.
func (g *Grid) ActiveStep() int { return g.activeStep }

// ScenarioKey returns the selected scenario.
func (g *Grid) ScenarioKey() string { return g.scenarioKey }

// Structure returns the frozen step path, or false while pending.
func (g *Grid) Structure() (script.Structure, bool) {
	return g.structure.value, g.structure.resolved
}

// Markers returns a copy of the markers in placement order.
func (g *Grid) Markers() []Marker {
	out := make([]Marker, len(g.markers))
	copy(out, g.markers)
	return out
}

// StoryBoxes returns a copy of the story log.
func (g *Grid) StoryBoxes() []StoryBox {
	out := make([]StoryBox, len(g.boxes))
	copy(out, g.boxes)
	return out
}

// MarkerAt returns the marker occupying a cell.
func (g *Grid) MarkerAt(row, col int) (Marker, bool) {
	if i := g.indexAt(row, col); i >= 0 {
		return g.markers[i], true
	}
	return Marker{}, false
}

// Marker returns the marker with the given id.
func (g *Grid) Marker(id uuid.UUID) (Marker, bool) {
	if i := g.indexOf(id); i >= 0 {
		return g.markers[i], true
	}
	return Marker{}, false
}

func (g *Grid) indexAt(row, col int) int {
	for i, m := range g.markers {
		if m.Row == row && m.Column == col {
			return i
		}
	}
	return -1
}

func (g *Grid) indexOf(id uuid.UUID) int {
	for i, m := range g.markers {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// CountByType returns how many markers of a type are placed.
func (g *Grid) CountByType(typ string) int {
	n := 0
	for _, m := range g.markers {
		if m.Type == typ {
			n++
		}
	}
	return n
}

// CanAdvance reports whether another column can be unlocked.
func (g *Grid) CanAdvance() bool {
	return g.activeStep < MaxActiveStep
}

// Advance unlocks the next column and logs its story box. It returns false,
// changing nothing, once the last step is active.
func (g *Grid) Advance() bool {
	if !g.CanAdvance() {
		return false
	}
	g.activeStep++

	step := g.structure.value[g.activeStep]
	box := StoryBox{
		ID:        g.newID(),
		Step:      g.activeStep,
		Title:     step.Title,
		Symbol:    step.Symbol,
		Color:     step.Color,
		Content:   script.Narrate(g.activeStep, step, g.scenarioKey),
		Timestamp: g.now(),
	}
	g.boxes = append(g.boxes, box)

	g.notify()
	return true
}

// SetScenario selects a scenario and freezes a fresh resolution of its step
// path. Markers and story boxes are kept.
func (g *Grid) SetScenario(key string) {
	g.scenarioKey = key
	g.freeze()
	for _, s := range g.scenarioSubs {
		s.fn(key)
	}
}

// PlaceMarker adds a character below the path in the active column. The row
// is the add target of that column. It returns false when the column is not
// active, the type is unknown, or the column is full.
func (g *Grid) PlaceMarker(col int, typ, description string) (Marker, bool) {
	if col != g.activeStep {
		return Marker{}, false
	}
	ch, ok := g.catalog.Lookup(typ)
	if !ok {
		return Marker{}, false
	}
	row := g.nextRow(col)
	if row < FirstLaneRow || row >= MaxRows || g.indexAt(row, col) >= 0 {
		return Marker{}, false
	}
	return g.add(row, col, ch, description), true
}

// PlaceAbove adds a character to the lane above the path. The cell must be
// editable and empty.
func (g *Grid) PlaceAbove(col int, typ, description string) (Marker, bool) {
	if !g.CellAccess(TopRow, col).Editable || g.indexAt(TopRow, col) >= 0 {
		return Marker{}, false
	}
	ch, ok := g.catalog.Lookup(typ)
	if !ok {
		return Marker{}, false
	}
	return g.add(TopRow, col, ch, description), true
}

func (g *Grid) add(row, col int, ch catalog.Character, description string) Marker {
	m := Marker{
		ID:          g.newID(),
		Row:         row,
		Column:      col,
		Type:        ch.Type,
		Symbol:      ch.Symbol,
		Color:       ch.Color,
		Description: description,
	}
	g.markers = append(g.markers, m)
	g.notify()
	return m
}

// nextRow computes where the next marker of a column goes: row 2 for an empty
// column, below the lowest marker when that row is occupied, otherwise the
// row above it. Only lanes below the path count.
func (g *Grid) nextRow(col int) int {
	maxRow := -1
	for _, m := range g.markers {
		if m.Column == col && m.Row >= FirstLaneRow && m.Row > maxRow {
			maxRow = m.Row
		}
	}
	if maxRow < 0 {
		return FirstLaneRow
	}
	if g.indexAt(maxRow, col) >= 0 {
		return maxRow + 1
	}
	return maxRow - 1
}

// AddTarget returns the row where the add affordance of the active column is
// shown, or false when the column cannot take another marker.
func (g *Grid) AddTarget() (int, bool) {
	row := g.nextRow(g.activeStep)
	if row < FirstLaneRow || row >= g.Rows() || g.indexAt(row, g.activeStep) >= 0 {
		return 0, false
	}
	return row, true
}

// Rows returns the rendered grid height: at least MinRows, at most MaxRows,
// and enough to show one free row after the active column's block.
func (g *Grid) Rows() int {
	target := g.nextRow(g.activeStep)
	return min(max(target+1, MinRows), MaxRows)
}

// EditDescription replaces a marker's description.
func (g *Grid) EditDescription(id uuid.UUID, text string) bool {
	i := g.indexOf(id)
	if i < 0 {
		return false
	}
	if g.markers[i].Description == text {
		return true
	}
	g.markers[i].Description = text
	g.notify()
	return true
}

// DeleteMarker removes the marker at a cell. It is a no-op for empty cells.
func (g *Grid) DeleteMarker(row, col int) bool {
	i := g.indexAt(row, col)
	if i < 0 {
		return false
	}
	g.markers = append(g.markers[:i], g.markers[i+1:]...)
	g.notify()
	return true
}

// ClearAll removes every marker. Step and scenario are kept.
func (g *Grid) ClearAll() {
	g.markers = nil
	g.notify()
}

// Reset clears markers and the story log and returns to step 1. The
// scenario and its frozen step path are kept.
func (g *Grid) Reset() {
	g.markers = nil
	g.boxes = nil
	g.activeStep = InitialStep
	g.notify()
}

// IsBlockCompleted reports whether the first lane of a column holds a
// described marker.
func (g *Grid) IsBlockCompleted(col int) bool {
	m, ok := g.MarkerAt(FirstLaneRow, col)
	return ok && strings.TrimSpace(m.Description) != ""
}

// IsBlockFinished reports a completed block that is no longer active.
func (g *Grid) IsBlockFinished(col int) bool {
	return g.IsBlockCompleted(col) && col != g.activeStep
}

// Subscribe registers fn to receive the exported form data after every
// change to the markers or the active step. The returned func unsubscribes.
func (g *Grid) Subscribe(fn func(FormData)) func() {
	g.nextSubID++
	id := g.nextSubID
	g.subs = append(g.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

// OnScenarioChange registers fn to receive scenario selections.
func (g *Grid) OnScenarioChange(fn func(string)) func() {
	g.nextSubID++
	id := g.nextSubID
	g.scenarioSubs = append(g.scenarioSubs, scenarioSubscriber{id: id, fn: fn})
	return func() {
		for i, s := range g.scenarioSubs {
			if s.id == id {
				g.scenarioSubs = append(g.scenarioSubs[:i], g.scenarioSubs[i+1:]...)
				return
			}
		}
	}
}

func (g *Grid) notify() {
	if len(g.subs) == 0 {
		return
	}
	fd := g.Export()
	for _, s := range g.subs {
		s.fn(fd)
	}
}
