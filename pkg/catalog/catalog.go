package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unbounded marks a character type with no placement limit.
const Unbounded = -1

const (
	TypeQueen  = "queen"
	TypeKnight = "knight"
	TypePawn   = "pawn"
)

// Character is a placeable marker type.
type Character struct {
	Type     string `json:"type"`
	Symbol   string `json:"symbol"`
	Color    string `json:"color"`
	MaxCount int    `json:"max_count"` // positive, or Unbounded
}

// IsUnbounded reports whether the character has no placement limit.
func (c Character) IsUnbounded() bool {
	return c.MaxCount == Unbounded
}

// Placeholder display for types the catalog does not know.
const (
	PlaceholderSymbol = "?"
	PlaceholderColor  = "#000000"
)

var placeholder = Character{Symbol: PlaceholderSymbol, Color: PlaceholderColor, MaxCount: Unbounded}

// Catalog is a read-only table of character types. It is never mutated after
// construction, so it can be shared freely.
type Catalog struct {
	order []string
	byTyp map[string]Character
}

// New builds a catalog from the given characters, keeping their order.
// Later duplicates of a type are ignored.
func New(chars ...Character) *Catalog {
	c := &Catalog{
		byTyp: make(map[string]Character, len(chars)),
	}
	for _, ch := range chars {
		if _, exists := c.byTyp[ch.Type]; exists {
			continue
		}
		c.byTyp[ch.Type] = ch
		c.order = append(c.order, ch.Type)
	}
	return c
}

// Default returns the chess characters used by the story grid.
func Default() *Catalog {
	return New(
		Character{Type: TypeQueen, Symbol: "♕", Color: "#ff9f43", MaxCount: 2},
		Character{Type: TypeKnight, Symbol: "♘", Color: "#10b981", MaxCount: 3},
		Character{Type: TypePawn, Symbol: "♙", Color: "#4fc3f7", MaxCount: Unbounded},
	)
}

// Lookup returns the catalog entry for a type.
func (c *Catalog) Lookup(typ string) (Character, bool) {
	ch, ok := c.byTyp[typ]
	return ch, ok
}

// Resolve returns the entry for a type, or the placeholder glyph and color
// carrying the requested type when it is unknown.
func (c *Catalog) Resolve(typ string) Character {
	if ch, ok := c.byTyp[typ]; ok {
		return ch
	}
	ch := placeholder
	ch.Type = typ
	return ch
}

// Placeholder returns the fallback used for unknown types.
func (c *Catalog) Placeholder() Character {
	return placeholder
}

// Characters returns all entries in catalog order.
func (c *Catalog) Characters() []Character {
	out := make([]Character, 0, len(c.order))
	for _, typ := range c.order {
		out = append(out, c.byTyp[typ])
	}
	return out
}

// DisplayName returns the type in title case, e.g. "Queen".
func (c *Catalog) DisplayName(typ string) string {
	if typ == "" {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(strings.ToLower(typ))
}

// LimitLabel is the count hint shown next to a type in the picker.
func (c *Catalog) LimitLabel(typ string) string {
	ch := c.Resolve(typ)
	if ch.IsUnbounded() {
		return "Unlimited"
	}
	return strconv.Itoa(ch.MaxCount)
}

// Remaining returns how many more of a type fit under its limit given the
// number already placed. Unbounded types return Unbounded. The result is a
// display hint; placement is not capped by it.
func (c *Catalog) Remaining(typ string, placed int) int {
	ch := c.Resolve(typ)
	if ch.IsUnbounded() {
		return Unbounded
	}
	if left := ch.MaxCount - placed; left > 0 {
		return left
	}
	return 0
}
