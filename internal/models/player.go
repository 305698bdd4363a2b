// internal/models/player.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is one seat in a room. The hand is only mutated by the room state machine.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Hand      []*Card   `json:"hand"`
	IsSafe    bool      `json:"isSafe"`
	Connected bool      `json:"connected"`

	// DisconnectedAt is zero while connected.
	DisconnectedAt time.Time `json:"-"`
}

// CardCount returns the hand size.
func (p *Player) CardCount() int {
	return len(p.Hand)
}

// FindCard returns the index of the card with the given id, or -1.
func (p *Player) FindCard(cardID uuid.UUID) int {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return i
		}
	}
	return -1
}

// RemoveCardAt removes and returns the card at idx, keeping display order.
func (p *Player) RemoveCardAt(idx int) *Card {
	c := p.Hand[idx]
	p.Hand = append(p.Hand[:idx:idx], p.Hand[idx+1:]...)
	return c
}
