// internal/game/events.go
package game

import "github.com/google/uuid"

// GameEventType is an enum-like type for events sent to clients.
type GameEventType string

const (
	EventJoinedSuccess GameEventType = "joined_success" // private: canonical player id after join/reconnect
	EventSyncState     GameEventType = "sync_state"     // private: full snapshot on join/reconnect
	EventGameStarted   GameEventType = "game_started"   // per player snapshot when the deal happens
	EventStateUpdate   GameEventType = "state_update"   // per player snapshot after every applied command
	EventError         GameEventType = "error"          // private: rejected command
	EventAck           GameEventType = "ack"            // private: reply to create_room
	EventPong          GameEventType = "pong"
)

// GameEvent holds data about an event that can be sent to the clients in a consistent format.
type GameEvent struct {
	Type      GameEventType `json:"type"`
	RequestID string        `json:"requestId,omitempty"`

	PlayerID *uuid.UUID `json:"playerId,omitempty"`
	RoomID   string     `json:"roomId,omitempty"`
	Token    string     `json:"token,omitempty"`

	// Error fields
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	State *RoomSnapshot `json:"state,omitempty"`
}

// NewErrorEvent builds the error frame for a rejected command.
func NewErrorEvent(err error, requestID string) GameEvent {
	return GameEvent{
		Type:      EventError,
		RequestID: requestID,
		Code:      ErrorCode(err),
		Message:   err.Error(),
	}
}

// Conn is a client connection attached to a seat. Send must not block: rooms call it
// while holding their lock. Close detaches a connection replaced by a reconnect.
type Conn interface {
	Send(ev GameEvent)
	Close()
}
