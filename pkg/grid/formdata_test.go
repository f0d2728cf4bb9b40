package grid

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jwebster45206/story-grid/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_PartitionsLanes(t *testing.T) {
	g := newTestGrid(t)
	g.PlaceAbove(2, catalog.TypeKnight, "mentor")
	g.PlaceMarker(1, catalog.TypeQueen, "lead")
	g.PlaceMarker(1, catalog.TypePawn, "")

	fd := g.Export()
	want := FormData{
		TopRow: []TopEntry{{Column: 2, Type: catalog.TypeKnight, Description: "mentor"}},
		BottomRows: []BottomEntry{
			{Row: 2, Column: 1, Type: catalog.TypeQueen, Description: "lead"},
			{Row: 3, Column: 1, Type: catalog.TypePawn, Description: ""},
		},
		ActiveStep:    1,
		TotalElements: 3,
	}
	if diff := cmp.Diff(want, fd); diff != "" {
		t.Errorf("Export() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, fd, g.GetData())
}

func TestFormData_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(FormData{ActiveStep: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"topRow":[],"bottomRows":[],"activeStep":1,"totalElements":0}`, string(data))
}

func TestRoundTrip(t *testing.T) {
	src := newTestGrid(t)
	src.PlaceMarker(1, catalog.TypeQueen, "lead")
	src.PlaceMarker(1, catalog.TypeKnight, "second")
	src.Advance()
	src.PlaceMarker(2, catalog.TypePawn, "helper")
	src.PlaceAbove(3, catalog.TypePawn, "watching")

	data, err := json.Marshal(src.Export())
	require.NoError(t, err)

	dst := newTestGrid(t)
	report, err := dst.SetData(data)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Imported: 4}, report)

	if diff := cmp.Diff(src.Export(), dst.Export()); diff != "" {
		t.Errorf("round trip mismatch (-src +dst):\n%s", diff)
	}

	// Display data comes from the catalog, ids are fresh.
	srcMarkers, dstMarkers := src.Markers(), dst.Markers()
	for i := range srcMarkers {
		assert.Equal(t, srcMarkers[i].Symbol, dstMarkers[i].Symbol)
		assert.Equal(t, srcMarkers[i].Color, dstMarkers[i].Color)
		assert.NotEqual(t, srcMarkers[i].ID, dstMarkers[i].ID)
	}
}

func TestRoundTrip_RandomSequences(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*17))
		src := newTestGrid(t)
		for i := 0; i < 30; i++ {
			applyRandomOp(rng, src)

			data, err := json.Marshal(src.Export())
			require.NoError(t, err)
			dst := newTestGrid(t)
			report, err := dst.SetData(data)
			require.NoError(t, err)
			require.Zero(t, report.Dropped, "seed %d step %d", seed, i)

			if diff := cmp.Diff(src.Export(), dst.Export()); diff != "" {
				t.Fatalf("seed %d step %d: round trip mismatch (-src +dst):\n%s", seed, i, diff)
			}
		}
	}
}

func TestDecodePayload(t *testing.T) {
	step := func(n int) *int { return &n }

	tests := []struct {
		name    string
		input   string
		want    Payload
		wantErr error
	}{
		{
			name:  "current shape",
			input: `{"topRow":[{"col":2,"type":"pawn","description":"a"}],"bottomRows":[{"row":3,"col":1,"type":"queen","description":"b"}],"activeStep":2,"totalElements":2}`,
			want: Payload{
				Entries: []Entry{
					{Row: 0, Column: 2, Type: "pawn", Description: "a"},
					{Row: 3, Column: 1, Type: "queen", Description: "b"},
				},
				ActiveStep: step(2),
			},
		},
		{
			name:  "current shape without active step",
			input: `{"bottomRows":[]}`,
			want:  Payload{},
		},
		{
			name:  "null active step",
			input: `{"topRow":null,"activeStep":null}`,
			want:  Payload{},
		},
		{
			name:  "legacy flat list",
			input: `{"visualElements":[{"row":0,"col":1,"type":"knight","description":"up"},{"row":4,"col":2,"type":"pawn","description":"down"}],"activeStep":3}`,
			want: Payload{
				Entries: []Entry{
					{Row: 0, Column: 1, Type: "knight", Description: "up"},
					{Row: 4, Column: 2, Type: "pawn", Description: "down"},
				},
				ActiveStep: step(3),
				Legacy:     true,
			},
		},
		{
			name:    "not json",
			input:   `{"topRow":`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "array instead of object",
			input:   `[1,2,3]`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "wrong lane type",
			input:   `{"topRow":"nope"}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "active step not a number",
			input:   `{"topRow":[],"activeStep":"two"}`,
			wantErr: ErrMalformedPayload,
		},
		{
			name:    "no known keys",
			input:   `{"something":"else"}`,
			wantErr: ErrUnrecognizedShape,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodePayload() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImport_Legacy(t *testing.T) {
	g := newTestGrid(t)
	_, err := g.SetData([]byte(`{"visualElements":[
		{"row":0,"col":1,"type":"knight","description":"up"},
		{"row":2,"col":1,"type":"queen","description":"lead"},
		{"row":3,"col":1,"type":"pawn","description":""}
	],"activeStep":2}`))
	require.NoError(t, err)

	fd := g.Export()
	assert.Equal(t, 2, fd.ActiveStep)
	assert.Equal(t, 3, fd.TotalElements)
	assert.Equal(t, []TopEntry{{Column: 1, Type: "knight", Description: "up"}}, fd.TopRow)
	assert.Len(t, fd.BottomRows, 2)
}

func TestImport_LegacyKeepsStepWhenMissing(t *testing.T) {
	g := newTestGrid(t)
	g.Advance()

	_, err := g.SetData([]byte(`{"visualElements":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, g.ActiveStep())
}

func TestImport_DropsInvalidEntries(t *testing.T) {
	var logs bytes.Buffer
	g := newTestGrid(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	report, err := g.Import(Payload{Entries: []Entry{
		{Row: 2, Column: 1, Type: "queen"},
		{Row: 2, Column: 1, Type: "pawn"},       // duplicate cell
		{Row: 1, Column: 2, Type: "pawn"},       // path row
		{Row: 0, Column: 0, Type: "pawn"},       // King top cell
		{Row: 0, Column: 4, Type: "pawn"},       // Goal top cell
		{Row: 3, Column: 5, Type: "pawn"},       // beyond the last column
		{Row: -1, Column: 2, Type: "pawn"},      // negative row
		{Row: MaxRows, Column: 3, Type: "pawn"}, // past the lowest lane
		{Row: 9, Column: 1, Type: "pawn"},       // past the lowest lane
		{Row: 3, Column: 2, Type: "dragon"},     // unknown type kept
	}})
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Imported: 2, Dropped: 8, UnknownTypes: 1}, report)

	m, ok := g.MarkerAt(3, 2)
	require.True(t, ok)
	assert.Equal(t, "dragon", m.Type)
	assert.Equal(t, catalog.PlaceholderSymbol, m.Symbol)
	assert.Equal(t, catalog.PlaceholderColor, m.Color)

	assert.Contains(t, logs.String(), "Unknown character type")
	assert.Contains(t, logs.String(), "duplicate")
}

func TestSetData_RowPastCeilingKeepsColumnUsable(t *testing.T) {
	g := newTestGrid(t)

	report, err := g.SetData([]byte(`{"topRow":[],"bottomRows":[{"row":9,"col":1,"type":"pawn","description":""}],"activeStep":1}`))
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Dropped: 1}, report)
	assert.Empty(t, g.Markers())

	row, ok := g.AddTarget()
	require.True(t, ok)
	assert.Equal(t, FirstLaneRow, row)

	m, ok := g.PlaceMarker(1, catalog.TypePawn, "")
	require.True(t, ok)
	assert.Equal(t, FirstLaneRow, m.Row)
	assert.Equal(t, MinRows, g.Rows())
}

func TestImport_InvalidActiveStepKeepsState(t *testing.T) {
	g := newTestGrid(t)
	g.PlaceMarker(1, catalog.TypeQueen, "keep me")
	before := g.Export()

	for _, input := range []string{
		`{"topRow":[],"bottomRows":[],"activeStep":4}`,
		`{"topRow":[],"bottomRows":[],"activeStep":-1}`,
		`not json`,
		`{"rows":[]}`,
	} {
		_, err := g.SetData([]byte(input))
		assert.Error(t, err, input)
		assert.Equal(t, before, g.Export(), input)
	}
}

func TestImport_TruncatesStoryLog(t *testing.T) {
	g := newTestGrid(t)
	g.Advance()
	g.Advance()
	require.Len(t, g.StoryBoxes(), 2)

	step := 1
	_, err := g.Import(Payload{ActiveStep: &step})
	require.NoError(t, err)
	assert.Equal(t, 1, g.ActiveStep())
	assert.Len(t, g.StoryBoxes(), 1)
	assert.Empty(t, g.Markers())
}

func TestImport_NotifiesSubscribers(t *testing.T) {
	g := newTestGrid(t)
	var got []FormData
	g.Subscribe(func(fd FormData) { got = append(got, fd) })

	_, err := g.SetData([]byte(`{"topRow":[],"bottomRows":[{"row":2,"col":1,"type":"pawn","description":""}],"activeStep":1}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].TotalElements)

	_, _ = g.SetData([]byte(`garbage`))
	assert.Len(t, got, 1, "failed imports do not notify")
}
