// internal/handlers/messages.go
package handlers

import (
	"errors"

	"github.com/jason-s-yu/uno/internal/game"
)

// Client message types.
const (
	msgCreateRoom = "create_room"
	msgJoinRoom   = "join_room"
	msgStartGame  = "start_game"
	msgPlayCard   = "play_card"
	msgDrawCard   = "draw_card"
	msgCallUno    = "call_uno"
	msgChallenge  = "challenge"
	msgResetGame  = "reset_game"
	msgLeaveRoom  = "leave_room"
	msgPing       = "ping"
)

// ClientMessage is the union of every frame a client may send. Only the fields relevant
// to Type are read.
type ClientMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`

	// create_room / join_room
	PlayerName string                 `json:"playerName,omitempty"`
	HouseRules map[string]interface{} `json:"houseRules,omitempty"`
	RoomID     string                 `json:"roomId,omitempty"`
	PlayerID   string                 `json:"playerId,omitempty"`
	Token      string                 `json:"token,omitempty"`

	// play_card
	CardID        string `json:"cardId,omitempty"`
	SelectedColor string `json:"selectedColor,omitempty"`

	// challenge
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
}

// Protocol errors raised before a command reaches a room.
var (
	errMalformedMessage = errors.New("malformed message")
	errUnknownMessage   = errors.New("unknown message type")
	errAlreadySeated    = errors.New("connection already joined a room")
	errNotSeated        = errors.New("connection has not joined a room")
)

var protocolErrorCodes = []struct {
	err  error
	code string
}{
	{errMalformedMessage, "malformed_message"},
	{errUnknownMessage, "unknown_message"},
	{errAlreadySeated, "already_seated"},
	{errNotSeated, "not_seated"},
}

// errorEvent builds the error frame for err, covering protocol errors as well as room errors.
func errorEvent(err error, requestID string) game.GameEvent {
	ev := game.NewErrorEvent(err, requestID)
	for _, pc := range protocolErrorCodes {
		if errors.Is(err, pc.err) {
			ev.Code = pc.code
			break
		}
	}
	return ev
}
