// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/uno/internal/models"
)

// DeckConfig describes the deck composition for a room.
type DeckConfig struct {
	// ShuffleHandsCards is the number of wild_shuffle cards added to the standard 108.
	ShuffleHandsCards int `json:"shuffleHandsCards"`
}

// DeckSize returns the number of cards BuildDeck produces for cfg.
func (cfg DeckConfig) DeckSize() int {
	return 108 + cfg.ShuffleHandsCards
}

// BuildDeck returns a fresh, unshuffled deck. The order only depends on cfg.
func BuildDeck(cfg DeckConfig) []*models.Card {
	deck := make([]*models.Card, 0, cfg.DeckSize())
	for _, color := range models.PlayableColors {
		deck = append(deck, models.NewNumberCard(color, 0))
		for n := 1; n <= 9; n++ {
			deck = append(deck, models.NewNumberCard(color, n), models.NewNumberCard(color, n))
		}
		for _, kind := range []models.Kind{models.KindSkip, models.KindReverse, models.KindDrawTwo} {
			deck = append(deck, models.NewActionCard(color, kind), models.NewActionCard(color, kind))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, models.NewActionCard(models.ColorWild, models.KindWild))
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, models.NewActionCard(models.ColorWild, models.KindWildDrawFour))
	}
	for i := 0; i < cfg.ShuffleHandsCards; i++ {
		deck = append(deck, models.NewActionCard(models.ColorWild, models.KindWildShuffle))
	}
	return deck
}

// Shuffle permutes cards in place (Fisher-Yates) using r.
func Shuffle(cards []*models.Card, r *rand.Rand) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Deck holds the draw pile and the discard pile. The top of both is the end of the slice.
type Deck struct {
	DrawPile    []*models.Card
	DiscardPile []*models.Card
}

// Top returns the discard top, or nil if the discard pile is empty.
func (d *Deck) Top() *models.Card {
	if len(d.DiscardPile) == 0 {
		return nil
	}
	return d.DiscardPile[len(d.DiscardPile)-1]
}

// Available is how many cards can still be drawn, counting what a reshuffle would recycle.
func (d *Deck) Available() int {
	n := len(d.DrawPile)
	if len(d.DiscardPile) > 1 {
		n += len(d.DiscardPile) - 1
	}
	return n
}

// DrawOne pops the top of the draw pile. An empty draw pile is refilled from every
// discard except the top one, shuffled with r.
func (d *Deck) DrawOne(r *rand.Rand) (*models.Card, error) {
	if len(d.DrawPile) == 0 {
		if !d.recycle(r) {
			return nil, ErrDeckExhausted
		}
	}
	top := len(d.DrawPile) - 1
	c := d.DrawPile[top]
	d.DrawPile = d.DrawPile[:top]
	return c, nil
}

// recycle moves all but the discard top into the draw pile. Returns false if nothing moved.
func (d *Deck) recycle(r *rand.Rand) bool {
	if len(d.DiscardPile) <= 1 {
		return false
	}
	top := d.DiscardPile[len(d.DiscardPile)-1]
	recycled := make([]*models.Card, len(d.DiscardPile)-1)
	copy(recycled, d.DiscardPile[:len(d.DiscardPile)-1])
	Shuffle(recycled, r)
	d.DrawPile = append(d.DrawPile, recycled...)
	d.DiscardPile = []*models.Card{top}
	return true
}

// Size returns the number of cards held by both piles.
func (d *Deck) Size() int {
	return len(d.DrawPile) + len(d.DiscardPile)
}
