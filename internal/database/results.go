// internal/database/results.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RoomResult is the outcome of one finished game in a room.
type RoomResult struct {
	RoomID      uuid.UUID
	RoomCode    string
	WinnerID    uuid.UUID
	PlayerCount int
	Turns       int
	Players     []PlayerResult
	FinishedAt  time.Time
}

// PlayerResult is one seat's final position.
type PlayerResult struct {
	PlayerID  uuid.UUID
	Name      string
	Seat      int
	CardsLeft int
}

// RecordRoomResult persists a finished game and each seat's remaining cards. The room
// row is upserted first so the result can reference it.
func RecordRoomResult(ctx context.Context, res RoomResult) error {
	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		finalizeQ := `
			INSERT INTO rooms (id, code, status, end_time)
			VALUES ($1, $2, 'completed', $3)
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = $3
		`
		if _, err := tx.Exec(ctx, finalizeQ, res.RoomID, res.RoomCode, res.FinishedAt); err != nil {
			return err
		}

		var resultID int64
		q := `
			INSERT INTO room_results (room_id, room_code, winner_id, player_count, turns, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		if err := tx.QueryRow(ctx, q, res.RoomID, res.RoomCode, res.WinnerID, res.PlayerCount, res.Turns, res.FinishedAt).Scan(&resultID); err != nil {
			return err
		}

		rows := make([][]interface{}, 0, len(res.Players))
		for _, p := range res.Players {
			rows = append(rows, []interface{}{resultID, p.PlayerID, p.Name, p.Seat, p.CardsLeft})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"room_result_players"},
			[]string{"result_id", "player_id", "name", "seat", "cards_left"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("tx insert room result: %w", err)
	}
	return nil
}
