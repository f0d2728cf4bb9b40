package grid

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSampler(v float64) script.Sampler {
	return script.SamplerFunc(func() float64 { return v })
}

func newTestGrid(t *testing.T, opts ...Option) *Grid {
	t.Helper()
	base := []Option{
		WithResolver(script.NewDefaultResolver(fixedSampler(0.9))),
		WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
	}
	return New(append(base, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	g := newTestGrid(t)

	assert.Equal(t, InitialStep, g.ActiveStep())
	assert.Equal(t, DefaultScenario, g.ScenarioKey())
	assert.Empty(t, g.Markers())
	assert.Empty(t, g.StoryBoxes())

	st, ok := g.Structure()
	require.True(t, ok, "structure should be resolved on construction")
	assert.Equal(t, "How to use it", st[1].Title)
	assert.Equal(t, MinRows, g.Rows())
}

func TestZeroGrid_StructurePending(t *testing.T) {
	var g Grid

	_, ok := g.Structure()
	assert.False(t, ok)
	for col := 0; col < script.Columns; col++ {
		cell := g.PathCell(col)
		assert.True(t, cell.Locked, "column %d", col)
		assert.Equal(t, LockedSymbol, cell.Symbol)
	}
}

func TestAdvance(t *testing.T) {
	g := newTestGrid(t, WithScenario(script.KeySettingsNotThere))

	require.True(t, g.Advance())
	assert.Equal(t, 2, g.ActiveStep())

	boxes := g.StoryBoxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, 2, boxes[0].Step)
	assert.Equal(t, "Embed in workflow", boxes[0].Title)
	assert.Contains(t, boxes[0].Content, "integrate it into your workflow")
	assert.Equal(t, 2025, boxes[0].Timestamp.Year())

	require.True(t, g.Advance())
	assert.Equal(t, 3, g.ActiveStep())
	assert.False(t, g.CanAdvance())

	t.Run("no-op at the last step", func(t *testing.T) {
		before := g.Export()
		beforeBoxes := g.StoryBoxes()

		assert.False(t, g.Advance())
		assert.Equal(t, 3, g.ActiveStep())
		assert.Equal(t, before, g.Export())
		assert.Equal(t, beforeBoxes, g.StoryBoxes())
	})

	assert.LessOrEqual(t, len(g.StoryBoxes()), g.ActiveStep())
}

func TestPlaceMarker_OnlyActiveColumn(t *testing.T) {
	g := newTestGrid(t)

	_, ok := g.PlaceMarker(2, catalog.TypeQueen, "")
	assert.False(t, ok, "column 2 is not active")

	_, ok = g.PlaceMarker(0, catalog.TypeQueen, "")
	assert.False(t, ok, "King column is not active")

	_, ok = g.PlaceMarker(1, "bishop", "")
	assert.False(t, ok, "unknown types are not placeable")

	m, ok := g.PlaceMarker(1, catalog.TypeQueen, "first")
	require.True(t, ok)
	assert.Equal(t, 2, m.Row)
	assert.Equal(t, 1, m.Column)
	assert.Equal(t, "♕", m.Symbol)
	assert.Equal(t, "#ff9f43", m.Color)
	assert.NotEqual(t, uuid.Nil, m.ID)
}

func TestPlaceMarker_ContiguousBlock(t *testing.T) {
	g := newTestGrid(t)
	types := []string{catalog.TypePawn, catalog.TypeQueen, catalog.TypeKnight, catalog.TypePawn, catalog.TypePawn}

	for i, typ := range types {
		m, ok := g.PlaceMarker(1, typ, "")
		require.True(t, ok, "placement %d", i)
		assert.Equal(t, FirstLaneRow+i, m.Row)
	}

	// Rows 2..6 are full; row 7 is beyond the grid ceiling.
	_, ok := g.PlaceMarker(1, catalog.TypePawn, "")
	assert.False(t, ok)
	assert.Equal(t, MaxRows, g.Rows())
	_, ok = g.AddTarget()
	assert.False(t, ok)

	assertContiguous(t, g, 1)
}

func TestPlaceMarker_RefillsAfterDelete(t *testing.T) {
	g := newTestGrid(t)
	for i := 0; i < 3; i++ {
		_, ok := g.PlaceMarker(1, catalog.TypePawn, "")
		require.True(t, ok)
	}

	// Removing the lowest marker lets the next one take its row again.
	require.True(t, g.DeleteMarker(4, 1))
	m, ok := g.PlaceMarker(1, catalog.TypeKnight, "")
	require.True(t, ok)
	assert.Equal(t, 4, m.Row)
	assertContiguous(t, g, 1)

	// Clearing the column starts over at row 2.
	g.ClearAll()
	m, ok = g.PlaceMarker(1, catalog.TypeKnight, "")
	require.True(t, ok)
	assert.Equal(t, 2, m.Row)
}

func TestRowsAndAddTarget(t *testing.T) {
	g := newTestGrid(t)

	row, ok := g.AddTarget()
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, 4, g.Rows())

	g.PlaceMarker(1, catalog.TypePawn, "")
	row, _ = g.AddTarget()
	assert.Equal(t, 3, row)
	assert.Equal(t, 4, g.Rows())

	g.PlaceMarker(1, catalog.TypePawn, "")
	row, _ = g.AddTarget()
	assert.Equal(t, 4, row)
	assert.Equal(t, 5, g.Rows())

	// Markers in other columns do not grow the grid.
	g.Advance()
	assert.Equal(t, 4, g.Rows())
}

func TestCellAccess(t *testing.T) {
	g := newTestGrid(t)
	g.Advance() // active step 2

	tests := []struct {
		name     string
		row, col int
		want     Access
	}{
		{"lane below, after active", 3, 3, Access{}},
		{"lane below, active", 3, 2, Access{Visible: true, Editable: true}},
		{"lane below, before active", 3, 1, Access{Visible: true}},
		{"top lane King", 0, 0, Access{}},
		{"top lane Goal", 0, 4, Access{}},
		{"top lane middle", 0, 3, Access{Visible: true, Editable: true}},
		{"path row", 1, 4, Access{Visible: true}},
		{"path row locked column", 1, 3, Access{Visible: true}},
		{"out of range column", 2, 5, Access{}},
		{"negative row", -1, 2, Access{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.CellAccess(tt.row, tt.col))
		})
	}
}

func TestPathCell(t *testing.T) {
	g := newTestGrid(t)

	assert.Equal(t, "King", g.PathCell(0).Title)
	assert.Equal(t, "How to use it", g.PathCell(1).Title)
	assert.True(t, g.PathCell(2).Locked)
	assert.Equal(t, LockedSymbol, g.PathCell(3).Symbol)
	assert.Equal(t, "Goal - Opponent King", g.PathCell(4).Title)
	assert.False(t, g.PathCell(4).Locked)

	g.Advance()
	assert.Equal(t, "Complete the task", g.PathCell(2).Title)
	assert.Equal(t, "Complete the task", g.CurrentStep().Title)
}

func TestPlaceAbove(t *testing.T) {
	g := newTestGrid(t)

	m, ok := g.PlaceAbove(3, catalog.TypeKnight, "watcher")
	require.True(t, ok, "top lane accepts columns 1-3 regardless of the active step")
	assert.Equal(t, TopRow, m.Row)

	_, ok = g.PlaceAbove(3, catalog.TypePawn, "")
	assert.False(t, ok, "cell already used")

	_, ok = g.PlaceAbove(0, catalog.TypePawn, "")
	assert.False(t, ok, "King column has no top lane")

	// A top lane marker does not shift the lanes below.
	g2 := newTestGrid(t)
	g2.PlaceAbove(1, catalog.TypePawn, "")
	below, ok := g2.PlaceMarker(1, catalog.TypeQueen, "")
	require.True(t, ok)
	assert.Equal(t, 2, below.Row)
}

func TestEditAndDelete(t *testing.T) {
	g := newTestGrid(t)
	m, _ := g.PlaceMarker(1, catalog.TypeQueen, "")

	assert.True(t, g.EditDescription(m.ID, "the boss"))
	got, ok := g.Marker(m.ID)
	require.True(t, ok)
	assert.Equal(t, "the boss", got.Description)
	assert.Equal(t, m.ID, got.ID, "id is stable across edits")

	assert.False(t, g.EditDescription(uuid.New(), "nobody"))

	// Edits and deletes do not check the column policy.
	g.Advance()
	assert.True(t, g.EditDescription(m.ID, "still editable"))
	assert.False(t, g.DeleteMarker(3, 1), "empty cell")
	assert.True(t, g.DeleteMarker(2, 1))
	assert.Empty(t, g.Markers())
}

func TestBlockCompletion(t *testing.T) {
	g := newTestGrid(t)
	m, _ := g.PlaceMarker(1, catalog.TypeQueen, "  ")

	assert.False(t, g.IsBlockCompleted(1), "blank description")
	g.EditDescription(m.ID, "done")
	assert.True(t, g.IsBlockCompleted(1))
	assert.False(t, g.IsBlockFinished(1), "still active")

	g.Advance()
	assert.True(t, g.IsBlockFinished(1))
}

func TestScenarioFrozenUntilChanged(t *testing.T) {
	draws := []float64{0.1, 0.9}
	i := 0
	sampler := script.SamplerFunc(func() float64 {
		v := draws[i%len(draws)]
		i++
		return v
	})
	g := New(WithResolver(script.NewDefaultResolver(sampler)), WithScenario(script.KeySettingsNotThere))
	g.Advance()

	// Alternative drawn once and frozen.
	for n := 0; n < 3; n++ {
		assert.Equal(t, script.AlternativeHelpTitle, g.PathCell(2).Title)
	}
	assert.Contains(t, g.StoryBoxes()[0].Content, "reach out for help")

	var selected []string
	g.OnScenarioChange(func(key string) { selected = append(selected, key) })
	m, _ := g.PlaceMarker(2, catalog.TypePawn, "")

	g.SetScenario(script.KeySettingsNotThere)
	assert.Equal(t, "Embed in workflow", g.PathCell(2).Title)
	assert.Equal(t, []string{script.KeySettingsNotThere}, selected)

	_, ok := g.Marker(m.ID)
	assert.True(t, ok, "scenario change keeps markers")
	assert.Len(t, g.StoryBoxes(), 1, "scenario change keeps story boxes")
}

func TestResetAndClear(t *testing.T) {
	g := newTestGrid(t, WithScenario(script.KeySettingsNotThere))
	g.PlaceMarker(1, catalog.TypePawn, "")
	g.Advance()
	g.PlaceMarker(2, catalog.TypePawn, "")

	g.ClearAll()
	assert.Empty(t, g.Markers())
	assert.Equal(t, 2, g.ActiveStep())
	assert.Len(t, g.StoryBoxes(), 1)

	g.PlaceMarker(2, catalog.TypePawn, "")
	g.Reset()
	assert.Empty(t, g.Markers())
	assert.Empty(t, g.StoryBoxes())
	assert.Equal(t, InitialStep, g.ActiveStep())
	assert.Equal(t, script.KeySettingsNotThere, g.ScenarioKey())
}

func TestSubscribe(t *testing.T) {
	g := newTestGrid(t)
	var got []FormData
	unsubscribe := g.Subscribe(func(fd FormData) { got = append(got, fd) })

	m, _ := g.PlaceMarker(1, catalog.TypeQueen, "")
	g.EditDescription(m.ID, "x")
	g.EditDescription(m.ID, "x") // unchanged, no event
	g.Advance()
	g.DeleteMarker(2, 1)
	g.DeleteMarker(2, 1) // no-op, no event
	g.SetScenario(script.KeySettingsNotThere)

	require.Len(t, got, 4)
	assert.Equal(t, 1, got[0].TotalElements)
	assert.Equal(t, "x", got[1].BottomRows[0].Description)
	assert.Equal(t, 2, got[2].ActiveStep)
	assert.Equal(t, 0, got[3].TotalElements)

	unsubscribe()
	g.Reset()
	assert.Len(t, got, 4)
}

func TestEndToEndScenario(t *testing.T) {
	g := newTestGrid(t)
	require.Equal(t, 1, g.ActiveStep())

	m, ok := g.PlaceMarker(1, catalog.TypeQueen, "first")
	require.True(t, ok)
	assert.Equal(t, 2, m.Row)
	assert.Equal(t, 1, m.Column)

	require.True(t, g.Advance())
	assert.Equal(t, 2, g.ActiveStep())
	assert.Len(t, g.StoryBoxes(), 1)

	require.True(t, g.DeleteMarker(2, 1))
	assert.Empty(t, g.Markers())

	assert.Equal(t, FormData{
		TopRow:        []TopEntry{},
		BottomRows:    []BottomEntry{},
		ActiveStep:    2,
		TotalElements: 0,
	}, g.Export())
}

func assertContiguous(t *testing.T, g *Grid, col int) {
	t.Helper()
	rows := map[int]bool{}
	for _, m := range g.Markers() {
		if m.Column == col && m.Row >= FirstLaneRow {
			rows[m.Row] = true
		}
	}
	for r := FirstLaneRow; r < FirstLaneRow+len(rows); r++ {
		assert.True(t, rows[r], "row %d missing from block %v", r, rows)
	}
}

// applyRandomOp performs one editor action chosen by rng: a placement in the
// active column, an advance, a top-lane placement, or removal of the lowest
// marker of a column.
func applyRandomOp(rng *rand.Rand, g *Grid) {
	types := []string{catalog.TypeQueen, catalog.TypeKnight, catalog.TypePawn}
	switch rng.IntN(10) {
	case 0:
		g.Advance()
	case 1:
		g.PlaceAbove(1+rng.IntN(3), types[rng.IntN(len(types))], "above")
	case 2, 3:
		col := 1 + rng.IntN(3)
		lowest := -1
		for _, m := range g.Markers() {
			if m.Column == col && m.Row > lowest {
				lowest = m.Row
			}
		}
		if lowest >= FirstLaneRow {
			g.DeleteMarker(lowest, col)
		}
	default:
		g.PlaceMarker(g.ActiveStep(), types[rng.IntN(len(types))], "lane")
	}
}

func TestRandomSequences_StayContiguous(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		g := newTestGrid(t)
		for i := 0; i < 40; i++ {
			applyRandomOp(rng, g)
			for col := 1; col <= 3; col++ {
				assertContiguous(t, g, col)
			}
			assert.LessOrEqual(t, len(g.StoryBoxes()), g.ActiveStep())
			assert.LessOrEqual(t, g.Rows(), MaxRows)
		}
		if t.Failed() {
			t.Fatalf("seed %d broke the block invariant", seed)
		}
	}
}
