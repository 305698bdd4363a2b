// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// PlayerSnapshot represents one seat from the perspective of a requesting player.
type PlayerSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Connected bool      `json:"connected"`
	IsSafe    bool      `json:"isSafe"`
	CardCount int       `json:"cardCount"`
	// Hand is populated only for the requesting player's own seat; null for everyone else.
	Hand []models.Card `json:"hand"`
}

// RoomSnapshot is the full room state tailored to one connection.
type RoomSnapshot struct {
	RoomID           string           `json:"roomId"`
	Status           RoomStatus       `json:"status"`
	Players          []PlayerSnapshot `json:"players"`
	DeckCount        int              `json:"deckCount"`
	DiscardPile      []models.Card    `json:"discardPile"`
	CurrentTurnIndex int              `json:"currentTurnIndex"`
	Direction        int              `json:"direction"`
	ActiveColor      models.Color     `json:"activeColor,omitempty"`
	ActiveNumber     *int             `json:"activeNumber"`
	ActiveType       *models.Kind     `json:"activeType"`
	PendingDraw      int              `json:"pendingDraw"`
	WinnerID         *uuid.UUID       `json:"winnerId"`
	HouseRules       HouseRules       `json:"houseRules"`
}

// snapshotFor generates a snapshot of the room for forPlayer. Other players' hands are
// reduced to counts here and nowhere else.
// Assumes lock is held by caller.
func (r *Room) snapshotFor(forPlayer uuid.UUID) RoomSnapshot {
	snap := RoomSnapshot{
		RoomID:           r.Code,
		Status:           r.Status,
		Players:          make([]PlayerSnapshot, 0, len(r.Players)),
		DeckCount:        len(r.Deck.DrawPile),
		DiscardPile:      copyCards(r.Deck.DiscardPile),
		CurrentTurnIndex: r.CurrentTurn,
		Direction:        r.Direction,
		ActiveColor:      r.ActiveColor,
		PendingDraw:      r.PendingDraw,
		HouseRules:       r.HouseRules,
	}
	if r.ActiveNumber != nil {
		n := *r.ActiveNumber
		snap.ActiveNumber = &n
	}
	if r.ActiveType != nil {
		k := *r.ActiveType
		snap.ActiveType = &k
	}
	if r.WinnerID != nil {
		w := *r.WinnerID
		snap.WinnerID = &w
	}

	for _, p := range r.Players {
		ps := PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Connected: p.Connected,
			IsSafe:    p.IsSafe,
			CardCount: len(p.Hand),
		}
		if p.ID == forPlayer {
			ps.Hand = copyCards(p.Hand)
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

// Snapshot returns the room state as seen by forPlayer.
func (r *Room) Snapshot(forPlayer uuid.UUID) RoomSnapshot {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotFor(forPlayer)
}

// copyCards detaches snapshot data from the live piles.
func copyCards(cards []*models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	for i, c := range cards {
		out[i] = *c
	}
	return out
}
