// internal/game/house_rules.go
package game

import "fmt"

const (
	defaultHandSize   = 7
	defaultMaxPlayers = 10
	minPlayers        = 2
)

// HouseRules defines the per-room configuration chosen when the room is created.
type HouseRules struct {
	Stacking          bool `json:"stacking"`          // allow draw2/wild_draw4 to be stacked onto a pending forced draw
	ShuffleHandsCards int  `json:"shuffleHandsCards"` // number of wild_shuffle cards in the deck
	HandSize          int  `json:"handSize"`          // cards dealt to each player on start
	MaxPlayers        int  `json:"maxPlayers"`        // seats available while waiting
}

// DefaultHouseRules returns the standard rule set: stacking forbidden, one shuffle-hands wild.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		Stacking:          false,
		ShuffleHandsCards: 1,
		HandSize:          defaultHandSize,
		MaxPlayers:        defaultMaxPlayers,
	}
}

// DeckConfig returns the deck composition implied by the rules.
func (rules HouseRules) DeckConfig() DeckConfig {
	return DeckConfig{ShuffleHandsCards: rules.ShuffleHandsCards}
}

// Validate checks that a full table can be dealt and still flip a starting card.
func (rules HouseRules) Validate() error {
	if rules.HandSize < 1 {
		return fmt.Errorf("handSize must be positive")
	}
	if rules.MaxPlayers < minPlayers {
		return fmt.Errorf("maxPlayers must be at least %d", minPlayers)
	}
	if rules.ShuffleHandsCards < 0 || rules.ShuffleHandsCards > 4 {
		return fmt.Errorf("shuffleHandsCards must be between 0 and 4")
	}
	// at least one non-wild must stay undealt for the starting flip
	wilds := 8 + rules.ShuffleHandsCards
	if rules.HandSize*rules.MaxPlayers >= rules.DeckConfig().DeckSize()-wilds {
		return fmt.Errorf("deck too small for %d players with %d cards each", rules.MaxPlayers, rules.HandSize)
	}
	return nil
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			// JSON numbers decode as float64
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	next := *rules
	if err := assignBool(&next.Stacking, "stacking"); err != nil {
		return err
	}
	if err := assignInt(&next.ShuffleHandsCards, "shuffleHandsCards"); err != nil {
		return err
	}
	if err := assignInt(&next.HandSize, "handSize"); err != nil {
		return err
	}
	if err := assignInt(&next.MaxPlayers, "maxPlayers"); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*rules = next
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
