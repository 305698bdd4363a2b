// internal/models/card.go
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Color is the colour printed on a card. Wild cards carry ColorWild.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorWild   Color = "wild"
)

// PlayableColors are the colours a wild may select, in deck build order.
var PlayableColors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

// IsPlayable reports whether c is one of the four selectable colours.
func (c Color) IsPlayable() bool {
	for _, pc := range PlayableColors {
		if c == pc {
			return true
		}
	}
	return false
}

// Kind is the face of a card. The string values are the wire names used by clients.
type Kind string

const (
	KindNumber       Kind = "number"
	KindSkip         Kind = "skip"
	KindReverse      Kind = "reverse"
	KindDrawTwo      Kind = "draw2"
	KindWild         Kind = "wild"
	KindWildDrawFour Kind = "wild_draw4"
	KindWildShuffle  Kind = "wild_shuffle"
)

// Card is immutable once built. The same pointer moves between piles and hands.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Color Color     `json:"color"`
	Kind  Kind      `json:"type"`
	Value *int      `json:"value,omitempty"` // number cards only
}

// NewNumberCard returns a coloured number card with a fresh id.
func NewNumberCard(color Color, value int) *Card {
	v := value
	return &Card{ID: uuid.New(), Color: color, Kind: KindNumber, Value: &v}
}

// NewActionCard returns a non-number card with a fresh id. Wild kinds get ColorWild.
func NewActionCard(color Color, kind Kind) *Card {
	if kind.IsWild() {
		color = ColorWild
	}
	return &Card{ID: uuid.New(), Color: color, Kind: kind}
}

// IsWild reports whether the kind is one of the wild variants.
func (k Kind) IsWild() bool {
	return k == KindWild || k == KindWildDrawFour || k == KindWildShuffle
}

// DrawPenalty is the number of cards the next player is forced to draw.
func (k Kind) DrawPenalty() int {
	switch k {
	case KindDrawTwo:
		return 2
	case KindWildDrawFour:
		return 4
	default:
		return 0
	}
}

// IsWild reports whether the card is a wild.
func (c *Card) IsWild() bool {
	return c.Color == ColorWild
}

func (c *Card) String() string {
	if c.Kind == KindNumber && c.Value != nil {
		return fmt.Sprintf("%s-%d", c.Color, *c.Value)
	}
	if c.Kind.IsWild() {
		return string(c.Kind)
	}
	return fmt.Sprintf("%s-%s", c.Color, c.Kind)
}
