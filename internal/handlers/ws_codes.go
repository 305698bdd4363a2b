// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	SeatReplacedClose websocket.StatusCode = 3000 // Another connection reattached to this seat.
	BadFrameClose     websocket.StatusCode = 3001 // Client sent a binary frame.
)
