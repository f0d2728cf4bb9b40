package editor

import (
	"testing"

	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSurface() *Surface {
	sampler := script.SamplerFunc(func() float64 { return 0.9 })
	return New(grid.New(grid.WithResolver(script.NewDefaultResolver(sampler))))
}

func TestClick(t *testing.T) {
	tests := []struct {
		name     string
		row, col int
		want     bool
		wantMode Mode
	}{
		{"path row ignored", 1, 1, false, ModeIdle},
		{"locked column ignored", 2, 2, false, ModeIdle},
		{"King top cell ignored", 0, 0, false, ModeIdle},
		{"empty active cell opens picker", 3, 1, true, ModePicking},
		{"empty top cell opens picker", 0, 3, true, ModePicking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSurface()
			assert.Equal(t, tt.want, s.Click(tt.row, tt.col))
			assert.Equal(t, tt.wantMode, s.Mode())
		})
	}
}

func TestPickAndSave(t *testing.T) {
	s := newSurface()

	require.True(t, s.Click(5, 1))
	target, ok := s.Target()
	require.True(t, ok)
	assert.Equal(t, Cell{Row: 5, Column: 1}, target)

	// Lanes below the path fill from row 2 regardless of the clicked row.
	m, ok := s.Pick(catalog.TypeQueen)
	require.True(t, ok)
	assert.Equal(t, 2, m.Row)
	assert.Equal(t, ModeEditing, s.Mode())

	// "e" followed by a combining acute accent is stored composed.
	s.SetPending("cafe\u0301")
	require.True(t, s.Save())
	assert.Equal(t, ModeIdle, s.Mode())
	assert.Empty(t, s.Pending())

	got, ok := s.Grid().MarkerAt(2, 1)
	require.True(t, ok)
	assert.Equal(t, "caf\u00e9", got.Description)
}

func TestPickTopLane(t *testing.T) {
	s := newSurface()
	require.True(t, s.Click(0, 2))

	m, ok := s.Pick(catalog.TypeKnight)
	require.True(t, ok)
	assert.Equal(t, grid.TopRow, m.Row)
	assert.Equal(t, 2, m.Column)
}

func TestPickWithoutPicker(t *testing.T) {
	s := newSurface()
	_, ok := s.Pick(catalog.TypePawn)
	assert.False(t, ok)
	assert.Empty(t, s.Grid().Markers())
}

func TestOpenPicker(t *testing.T) {
	s := newSurface()
	require.True(t, s.OpenPicker())
	target, _ := s.Target()
	assert.Equal(t, Cell{Row: 2, Column: 1}, target)

	_, ok := s.Pick("dragon")
	assert.False(t, ok, "unknown types are not offered")
	assert.Equal(t, ModePicking, s.Mode())
}

func TestCancelDiscardsPending(t *testing.T) {
	s := newSurface()
	s.OpenPicker()
	m, _ := s.Pick(catalog.TypePawn)

	s.SetPending("never saved")
	s.Cancel()

	got, _ := s.Grid().Marker(m.ID)
	assert.Empty(t, got.Description)
	assert.Equal(t, ModeIdle, s.Mode())
}

func TestClickSelectsMarker(t *testing.T) {
	s := newSurface()
	s.Grid().PlaceMarker(1, catalog.TypeQueen, "existing")

	require.True(t, s.Click(2, 1))
	assert.Equal(t, ModeEditing, s.Mode())
	assert.Equal(t, "existing", s.Pending())

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, catalog.TypeQueen, sel.Type)

	require.True(t, s.Delete())
	assert.Empty(t, s.Grid().Markers())
	assert.False(t, s.Delete(), "nothing selected")
}

func TestOptions(t *testing.T) {
	s := newSurface()
	s.Grid().PlaceMarker(1, catalog.TypeQueen, "")

	opts := s.Options()
	require.Len(t, opts, 3)
	assert.Equal(t, "Queen", opts[0].Name)
	assert.Equal(t, "2", opts[0].Limit)
	assert.Equal(t, 1, opts[0].Placed)
	assert.Equal(t, 1, opts[0].Remaining)
	assert.Equal(t, "Unlimited", opts[2].Limit)
	assert.Equal(t, catalog.Unbounded, opts[2].Remaining)
}

func TestStepControls(t *testing.T) {
	s := newSurface()
	s.OpenPicker()

	require.True(t, s.Advance())
	assert.Equal(t, ModeIdle, s.Mode(), "advancing drops the selection")
	assert.Equal(t, 2, s.Grid().ActiveStep())

	s.ChangeScenario(script.KeySettingsNotThere)
	assert.Equal(t, script.KeySettingsNotThere, s.Grid().ScenarioKey())

	s.Clean()
	assert.Equal(t, grid.InitialStep, s.Grid().ActiveStep())
	assert.Empty(t, s.Grid().StoryBoxes())
}
