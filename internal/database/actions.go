// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/uno/internal/cache"
)

// InsertRoomActions writes a batch of action records in one transaction and marks each
// touched room as in progress.
func InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		seen := make(map[uuid.UUID]bool)
		for _, rec := range records {
			if !seen[rec.RoomID] {
				seen[rec.RoomID] = true
				batch.Queue(`
					INSERT INTO rooms (id, code, status, start_time)
					VALUES ($1, $2, 'in_progress', NOW())
					ON CONFLICT (id) DO NOTHING
				`, rec.RoomID, rec.RoomCode)
			}
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload for %s #%d: %w", rec.RoomCode, rec.ActionIndex, err)
			}
			batch.Queue(`
				INSERT INTO room_actions (room_id, room_code, action_index, actor_id, action_type, action_payload, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (room_id, action_index) DO NOTHING
			`, rec.RoomID, rec.RoomCode, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert room actions: %w", err)
	}
	return nil
}

// MarkRoomAbandoned flags a room that stopped producing actions before finishing.
func MarkRoomAbandoned(ctx context.Context, roomID uuid.UUID) error {
	return beginTxFunc(ctx, func(tx pgx.Tx) error {
		q := `
			UPDATE rooms
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, roomID)
		return err
	})
}
