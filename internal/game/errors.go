// internal/game/errors.go
package game

import "errors"

// Command validation errors. None of them mutate room state; they are returned to the
// connection that issued the command.
var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrCardNotInHand          = errors.New("card not in hand")
	ErrIllegalPlay            = errors.New("card cannot be played on the current pile")
	ErrMissingColorSelection  = errors.New("wild card played without a color selection")
	ErrInvalidColor           = errors.New("invalid color selection")
	ErrRoomNotJoinable        = errors.New("room is not joinable")
	ErrRoomNotFound           = errors.New("room not found")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrDeckExhausted          = errors.New("draw pile and discard pile are exhausted")
	ErrInvalidChallengeTarget = errors.New("player cannot be challenged")
	ErrNotEnoughPlayers       = errors.New("not enough players to start")
	ErrGameNotActive          = errors.New("game is not in progress")
	ErrGameInProgress         = errors.New("game already started")
	ErrRoomHalted             = errors.New("room halted after an internal error")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotYourTurn, "not_your_turn"},
	{ErrCardNotInHand, "card_not_in_hand"},
	{ErrIllegalPlay, "illegal_play"},
	{ErrMissingColorSelection, "missing_color_selection"},
	{ErrInvalidColor, "invalid_color"},
	{ErrRoomNotJoinable, "room_not_joinable"},
	{ErrRoomNotFound, "room_not_found"},
	{ErrPlayerNotFound, "player_not_found"},
	{ErrDeckExhausted, "deck_exhausted"},
	{ErrInvalidChallengeTarget, "invalid_challenge_target"},
	{ErrNotEnoughPlayers, "not_enough_players"},
	{ErrGameNotActive, "game_not_active"},
	{ErrGameInProgress, "game_in_progress"},
	{ErrRoomHalted, "room_halted"},
}

// ErrorCode maps an error to the short code sent to clients. Unknown errors map to "internal".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
