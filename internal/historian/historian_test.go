// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]cache.RoomActionRecord
	abandoned []uuid.UUID
}

func (f *fakeSink) InsertRoomActions(_ context.Context, records []cache.RoomActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]cache.RoomActionRecord(nil), records...))
	return nil
}

func (f *fakeSink) MarkRoomAbandoned(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, roomID)
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

// chanSource feeds records from a channel.
type chanSource chan cache.RoomActionRecord

func (c chanSource) Pop(ctx context.Context, timeout time.Duration) (cache.RoomActionRecord, bool, error) {
	select {
	case rec := <-c:
		return rec, true, nil
	case <-time.After(timeout):
		return cache.RoomActionRecord{}, false, nil
	case <-ctx.Done():
		return cache.RoomActionRecord{}, false, ctx.Err()
	}
}

func record(roomID uuid.UUID, code string, idx int, actionType string) cache.RoomActionRecord {
	return cache.RoomActionRecord{
		RoomID:      roomID,
		RoomCode:    code,
		ActionIndex: idx,
		ActorID:     uuid.New(),
		ActionType:  actionType,
		Timestamp:   time.Now().UnixMilli(),
	}
}

func TestAddFlushesFullBatch(t *testing.T) {
	sink := &fakeSink{}
	svc := NewService(chanSource(nil), sink, Config{BatchSize: 3, FlushDelay: time.Hour})
	ctx := context.Background()
	room := uuid.New()

	svc.Add(ctx, record(room, "ABCDEF", 1, "play_card"))
	svc.Add(ctx, record(room, "ABCDEF", 2, "play_card"))
	assert.Equal(t, 0, sink.total(), "batch should not flush before it is full")

	svc.Add(ctx, record(room, "ABCDEF", 3, "play_card"))
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
	assert.Equal(t, 3, sink.batches[0][2].ActionIndex)

	svc.Flush(ctx)
	assert.Len(t, sink.batches, 1, "empty flush must not reach the sink")
}

func TestRunFlushesOnIntervalAndShutdown(t *testing.T) {
	sink := &fakeSink{}
	src := make(chanSource, 4)
	svc := NewService(src, sink, Config{BatchSize: 100, FlushDelay: 20 * time.Millisecond, PopTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	room := uuid.New()
	src <- record(room, "ROOM22", 1, "game_start")
	src <- record(room, "ROOM22", 2, "draw_card")

	assert.Eventually(t, func() bool { return sink.total() == 2 }, time.Second, 10*time.Millisecond)

	src <- record(room, "ROOM22", 3, "draw_card")
	assert.Eventually(t, func() bool { return len(src) == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 3, sink.total())
}

func TestMarkInactive(t *testing.T) {
	sink := &fakeSink{}
	svc := NewService(chanSource(nil), sink, Config{BatchSize: 10, Inactivity: time.Minute})
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	idle, done := uuid.New(), uuid.New()
	svc.Add(ctx, record(idle, "IDLE22", 1, "game_start"))
	svc.Add(ctx, record(done, "DONE22", 1, "game_start"))
	svc.Add(ctx, record(done, "DONE22", 2, "game_end"))

	svc.now = func() time.Time { return base.Add(30 * time.Second) }
	assert.Equal(t, 0, svc.MarkInactive(ctx))

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, 1, svc.MarkInactive(ctx))
	assert.Equal(t, []uuid.UUID{idle}, sink.abandoned)
	assert.Equal(t, 3, sink.total(), "pending actions are flushed before marking")

	assert.Equal(t, 0, svc.MarkInactive(ctx), "a room is only marked once")
}

func TestReusedCodeTrackedPerRoom(t *testing.T) {
	sink := &fakeSink{}
	svc := NewService(chanSource(nil), sink, Config{BatchSize: 10, Inactivity: time.Minute})
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	// the same code, two room lifetimes
	first, second := uuid.New(), uuid.New()
	svc.Add(ctx, record(first, "SAME22", 1, "game_start"))
	svc.Add(ctx, record(second, "SAME22", 1, "game_start"))
	svc.Add(ctx, record(second, "SAME22", 2, "game_end"))

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.Equal(t, 1, svc.MarkInactive(ctx))
	assert.Equal(t, []uuid.UUID{first}, sink.abandoned, "the finished lifetime is left alone")
}

// TestRedisSource needs a local Redis and is skipped without one.
func TestRedisSource(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	queue := "uno_actions_test_" + uuid.NewString()
	defer rdb.Del(context.Background(), queue)

	rec := record(uuid.New(), "REDIS2", 7, "call_uno")
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, rdb.RPush(ctx, queue, data).Err())
	require.NoError(t, rdb.RPush(ctx, queue, "not json").Err())
	require.NoError(t, rdb.RPush(ctx, queue, `{"room_code":"OLD222","action_index":1}`).Err())

	src := &RedisSource{Client: rdb, Queue: queue}
	got, ok, err := src.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.RoomID, got.RoomID)
	assert.Equal(t, rec.RoomCode, got.RoomCode)
	assert.Equal(t, rec.ActorID, got.ActorID)

	_, ok, err = src.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "malformed payloads are skipped")

	_, ok, err = src.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "records without a room id are skipped")
}
