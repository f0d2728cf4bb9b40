package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_Lookup(t *testing.T) {
	c := Default()

	tests := []struct {
		typ      string
		symbol   string
		color    string
		maxCount int
	}{
		{TypeQueen, "♕", "#ff9f43", 2},
		{TypeKnight, "♘", "#10b981", 3},
		{TypePawn, "♙", "#4fc3f7", Unbounded},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			ch, ok := c.Lookup(tt.typ)
			if !ok {
				t.Fatalf("expected %s in catalog", tt.typ)
			}
			assert.Equal(t, tt.symbol, ch.Symbol)
			assert.Equal(t, tt.color, ch.Color)
			assert.Equal(t, tt.maxCount, ch.MaxCount)
		})
	}

	if _, ok := c.Lookup("bishop"); ok {
		t.Error("bishop should not be in the default catalog")
	}
}

func TestResolve_UnknownUsesPlaceholder(t *testing.T) {
	c := Default()
	ch := c.Resolve("dragon")

	assert.Equal(t, "dragon", ch.Type)
	assert.Equal(t, "?", ch.Symbol)
	assert.Equal(t, "#000000", ch.Color)
}

func TestCharacters_KeepsOrderAndSkipsDuplicates(t *testing.T) {
	c := New(
		Character{Type: "a", Symbol: "1", MaxCount: 1},
		Character{Type: "b", Symbol: "2", MaxCount: 1},
		Character{Type: "a", Symbol: "3", MaxCount: 1},
	)

	chars := c.Characters()
	if assert.Len(t, chars, 2) {
		assert.Equal(t, "a", chars[0].Type)
		assert.Equal(t, "1", chars[0].Symbol)
		assert.Equal(t, "b", chars[1].Type)
	}
}

func TestDisplayAndLimits(t *testing.T) {
	c := Default()

	assert.Equal(t, "Queen", c.DisplayName("queen"))
	assert.Equal(t, "Knight", c.DisplayName("KNIGHT"))
	assert.Equal(t, "", c.DisplayName(""))

	assert.Equal(t, "2", c.LimitLabel(TypeQueen))
	assert.Equal(t, "3", c.LimitLabel(TypeKnight))
	assert.Equal(t, "Unlimited", c.LimitLabel(TypePawn))

	assert.Equal(t, 1, c.Remaining(TypeQueen, 1))
	assert.Equal(t, 0, c.Remaining(TypeQueen, 5))
	assert.Equal(t, Unbounded, c.Remaining(TypePawn, 100))
}
