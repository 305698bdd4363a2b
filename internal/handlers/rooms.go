// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/uno/internal/game"
)

// RoomInfoHandler serves GET /rooms/{code} with the room's public summary.
func RoomInfoHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		room, ok := gs.Rooms.GetRoom(r.PathValue("code"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"code":    game.ErrorCode(game.ErrRoomNotFound),
				"message": game.ErrRoomNotFound.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, room.Summary())
	}
}

// HealthHandler reports liveness along with the number of open rooms.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"rooms":  len(gs.Rooms.Rooms()),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NewRouter registers every HTTP and websocket route of the game server.
func NewRouter(gs *GameServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", GameWSHandler(gs))
	mux.HandleFunc("GET /rooms/{code}", RoomInfoHandler(gs))
	mux.HandleFunc("GET /healthz", HealthHandler(gs))
	return mux
}
