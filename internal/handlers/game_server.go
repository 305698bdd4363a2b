// internal/handlers/game_server.go
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks a seat token and returns the room code and player id it grants.
type TokenVerifier func(token string) (roomCode string, playerID uuid.UUID, err error)

// GameServer is a high-level struct that holds the RoomStore and the connection settings
// shared by every websocket session.
type GameServer struct {
	Rooms  *game.RoomStore
	Logger *logrus.Logger

	// OriginPatterns is passed to websocket.Accept.
	OriginPatterns []string
	// OutboxSize bounds the frames queued per connection.
	OutboxSize   int
	PingInterval time.Duration
	// VerifyToken validates join_room tokens. If nil, tokens are ignored.
	VerifyToken TokenVerifier
}

// NewGameServer returns a GameServer with default connection settings.
func NewGameServer(logger *logrus.Logger, rooms *game.RoomStore) *GameServer {
	if rooms == nil {
		rooms = game.NewRoomStore()
	}
	return &GameServer{
		Rooms:          rooms,
		Logger:         logger,
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		OutboxSize:     64,
		PingInterval:   30 * time.Second,
	}
}
