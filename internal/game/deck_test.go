// internal/game/deck_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeckComposition(t *testing.T) {
	deck := BuildDeck(DeckConfig{ShuffleHandsCards: 1})
	require.Len(t, deck, 109)

	seen := make(map[uuid.UUID]bool)
	kinds := make(map[models.Kind]int)
	numbers := make(map[models.Color]map[int]int)
	for _, c := range deck {
		require.False(t, seen[c.ID], "duplicate card id")
		seen[c.ID] = true
		kinds[c.Kind]++
		if c.Kind == models.KindNumber {
			require.NotNil(t, c.Value)
			if numbers[c.Color] == nil {
				numbers[c.Color] = make(map[int]int)
			}
			numbers[c.Color][*c.Value]++
		} else {
			assert.Nil(t, c.Value, "%s should carry no value", c)
		}
		if c.Kind.IsWild() {
			assert.Equal(t, models.ColorWild, c.Color)
		}
	}

	assert.Equal(t, 76, kinds[models.KindNumber])
	assert.Equal(t, 8, kinds[models.KindSkip])
	assert.Equal(t, 8, kinds[models.KindReverse])
	assert.Equal(t, 8, kinds[models.KindDrawTwo])
	assert.Equal(t, 4, kinds[models.KindWild])
	assert.Equal(t, 4, kinds[models.KindWildDrawFour])
	assert.Equal(t, 1, kinds[models.KindWildShuffle])

	for _, color := range models.PlayableColors {
		assert.Equal(t, 1, numbers[color][0], "%s zeros", color)
		for n := 1; n <= 9; n++ {
			assert.Equal(t, 2, numbers[color][n], "%s %d", color, n)
		}
	}
}

func TestBuildDeckIsDeterministic(t *testing.T) {
	a := BuildDeck(DeckConfig{})
	b := BuildDeck(DeckConfig{})
	require.Len(t, a, 108)
	require.Len(t, b, 108)
	for i := range a {
		assert.Equal(t, a[i].String(), b[i].String())
	}
}

func TestShuffleUsesSource(t *testing.T) {
	a := BuildDeck(DeckConfig{})
	b := make([]*models.Card, len(a))
	copy(b, a)

	Shuffle(a, rand.New(rand.NewSource(7)))
	Shuffle(b, rand.New(rand.NewSource(7)))
	for i := range a {
		assert.Same(t, a[i], b[i])
	}
}

func TestDrawOneRecyclesDiscard(t *testing.T) {
	under1, under2, top := num(models.ColorRed, 1), num(models.ColorRed, 2), num(models.ColorRed, 3)
	d := Deck{DiscardPile: []*models.Card{under1, under2, top}}
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, 2, d.Available())
	assert.Equal(t, 3, d.Size())

	c, err := d.DrawOne(rng)
	require.NoError(t, err)
	assert.Contains(t, []*models.Card{under1, under2}, c)
	assert.Equal(t, []*models.Card{top}, d.DiscardPile, "discard top survives the reshuffle")
	assert.Len(t, d.DrawPile, 1)
	assert.Equal(t, 2, d.Size(), "no card lost or created")

	_, err = d.DrawOne(rng)
	require.NoError(t, err)
	_, err = d.DrawOne(rng)
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Same(t, top, d.Top())
}

func TestDrawOneTakesFromTop(t *testing.T) {
	bottom, top := num(models.ColorBlue, 1), num(models.ColorBlue, 2)
	d := Deck{DrawPile: []*models.Card{bottom, top}, DiscardPile: []*models.Card{num(models.ColorRed, 0)}}

	c, err := d.DrawOne(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Same(t, top, c)
	assert.Equal(t, []*models.Card{bottom}, d.DrawPile)
}
