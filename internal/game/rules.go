// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// challengePenalty is the number of cards drawn by a player caught on one card without calling UNO.
const challengePenalty = 2

// IsLegalPlay reports whether actingPlayerID may put card on the pile right now. It is the
// only legality check in the system; clients may mirror it for display but the result
// here is binding.
func IsLegalPlay(card *models.Card, room *Room, actingPlayerID uuid.UUID) bool {
	if room.Status != StatusPlaying || len(room.Players) == 0 {
		return false
	}
	if room.Players[room.CurrentTurn].ID != actingPlayerID {
		return false
	}

	// A stacked forced draw can only be answered by another draw card.
	if room.PendingDraw > 0 {
		if card.Kind == models.KindWildDrawFour {
			return true
		}
		return card.Kind == models.KindDrawTwo && room.pendingKind == models.KindDrawTwo
	}

	if card.Color == models.ColorWild {
		return true
	}
	if card.Color == room.ActiveColor {
		return true
	}
	if card.Kind == models.KindNumber && room.ActiveNumber != nil && card.Value != nil && *card.Value == *room.ActiveNumber {
		return true
	}
	if card.Kind != models.KindNumber && room.ActiveType != nil && card.Kind == *room.ActiveType {
		return true
	}
	return false
}

// applyEffect resolves a card that already passed IsLegalPlay and has left the actor's hand.
// Forced-draw availability is checked by the caller, so a draw failure here is an
// invariant violation.
// Assumes lock is held by caller.
func (r *Room) applyEffect(actor *models.Player, card *models.Card, selectedColor models.Color) error {
	r.discard(card)
	if card.IsWild() {
		r.ActiveColor = selectedColor
	}

	switch card.Kind {
	case models.KindNumber, models.KindWild:
		r.advanceTurn(1)

	case models.KindSkip:
		r.advanceTurn(2)

	case models.KindReverse:
		r.Direction = -r.Direction
		if len(r.Players) == 2 {
			r.advanceTurn(2)
		} else {
			r.advanceTurn(1)
		}

	case models.KindDrawTwo, models.KindWildDrawFour:
		penalty := card.Kind.DrawPenalty()
		if r.HouseRules.Stacking {
			r.PendingDraw += penalty
			r.pendingKind = card.Kind
			r.advanceTurn(1)
			return nil
		}
		victim := r.Players[r.seatAfter(r.CurrentTurn, 1)]
		if err := r.drawInto(victim, penalty); err != nil {
			return fmt.Errorf("forced draw for %s: %w", victim.ID, err)
		}
		r.advanceTurn(2)

	case models.KindWildShuffle:
		if len(actor.Hand) > 0 {
			r.redistributeHands()
		}
		r.advanceTurn(1)

	default:
		return fmt.Errorf("unknown card kind %q", card.Kind)
	}
	return nil
}

// discard pushes card onto the discard top and updates the active triplet. A wild clears
// the number and leaves the colour to the selection step.
// Assumes lock is held by caller.
func (r *Room) discard(card *models.Card) {
	r.Deck.DiscardPile = append(r.Deck.DiscardPile, card)
	kind := card.Kind
	r.ActiveType = &kind
	r.ActiveNumber = nil
	if card.Kind == models.KindNumber && card.Value != nil {
		n := *card.Value
		r.ActiveNumber = &n
	}
	if !card.IsWild() {
		r.ActiveColor = card.Color
	}
}

// seatAfter returns the seat index steps turns away from idx in the current direction.
func (r *Room) seatAfter(idx, steps int) int {
	n := len(r.Players)
	i := (idx + steps*r.Direction) % n
	if i < 0 {
		i += n
	}
	return i
}

// advanceTurn moves the turn steps seats in the current direction.
// Assumes lock is held by caller.
func (r *Room) advanceTurn(steps int) {
	r.CurrentTurn = r.seatAfter(r.CurrentTurn, steps)
	r.turnID++
}

// drawInto moves n cards from the deck into p's hand. Gaining cards always clears safety.
// Assumes lock is held by caller.
func (r *Room) drawInto(p *models.Player, n int) error {
	for i := 0; i < n; i++ {
		c, err := r.Deck.DrawOne(r.rng)
		if err != nil {
			return err
		}
		p.Hand = append(p.Hand, c)
	}
	if n > 0 {
		p.IsSafe = false
	}
	return nil
}

// redistributeHands pools every hand and deals equal shares in turn order, starting with
// the player after the current one. Leftover cards go to the current player.
// Assumes lock is held by caller.
func (r *Room) redistributeHands() {
	var pool []*models.Card
	for _, p := range r.Players {
		pool = append(pool, p.Hand...)
		p.Hand = nil
		p.IsSafe = false
	}
	Shuffle(pool, r.rng)

	n := len(r.Players)
	share := len(pool) / n
	next := 0
	for step := 1; step <= n; step++ {
		p := r.Players[r.seatAfter(r.CurrentTurn, step)]
		p.Hand = append(p.Hand, pool[next:next+share]...)
		next += share
	}
	current := r.Players[r.CurrentTurn]
	current.Hand = append(current.Hand, pool[next:]...)
}
