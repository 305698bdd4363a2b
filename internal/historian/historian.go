// internal/historian/historian.go is an asynchronous consumer that pops room action records
// from a Redis queue and persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source yields queued action records. ok is false when the wait timed out empty.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (rec cache.RoomActionRecord, ok bool, err error)
}

// Sink persists batches of action records.
type Sink interface {
	InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error
	MarkRoomAbandoned(ctx context.Context, roomID uuid.UUID) error
}

// Config tunes batching and abandonment.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a room may go without actions before it is marked abandoned.
	Inactivity time.Duration
	PopTimeout time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:  20,
		FlushDelay: 500 * time.Millisecond,
		Inactivity: 10 * time.Minute,
		PopTimeout: 3 * time.Second,
	}
}

// Service batches records from a Source into a Sink.
type Service struct {
	source Source
	sink   Sink
	cfg    Config

	batchMu sync.Mutex
	batch   []cache.RoomActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	now func() time.Time
}

// NewService wires a source to a sink.
func NewService(source Source, sink Sink, cfg Config) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = DefaultConfig().FlushDelay
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = DefaultConfig().PopTimeout
	}
	return &Service{
		source:       source,
		sink:         sink,
		cfg:          cfg,
		batch:        make([]cache.RoomActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}
}

// Run starts the read, flush and inactivity loops and blocks until ctx is cancelled.
// Whatever is still batched is flushed before returning.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	if s.cfg.Inactivity > 0 {
		g.Go(func() error { return s.inactivityLoop(gctx) })
	}

	log.Info("uno-historian service started")
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	log.Info("uno-historian shutting down")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, ok, err := s.source.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Errorf("pop action: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}
		s.Add(ctx, rec)
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) error {
	interval := s.cfg.Inactivity / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.MarkInactive(ctx)
		}
	}
}

// Add appends rec to the pending batch and flushes when the batch is full.
func (s *Service) Add(ctx context.Context, rec cache.RoomActionRecord) {
	s.touch(rec)

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is logged and dropped.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	toInsert := s.batch
	s.batch = make([]cache.RoomActionRecord, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertRoomActions(ctx, toInsert); err != nil {
		log.WithField("count", len(toInsert)).Errorf("failed to flush batch: %v", err)
		return
	}
	log.WithField("count", len(toInsert)).Debug("flushed action batch")
}

// touch tracks the last action time per room lifetime. Finished rooms stop being tracked.
func (s *Service) touch(rec cache.RoomActionRecord) {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	switch rec.ActionType {
	case "game_end", "room_halted":
		delete(s.lastActivity, rec.RoomID)
	default:
		s.lastActivity[rec.RoomID] = s.now()
	}
}

// MarkInactive marks every tracked room idle for longer than the inactivity window as
// abandoned and returns how many were marked.
func (s *Service) MarkInactive(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.Inactivity)

	s.activityMu.Lock()
	var stale []uuid.UUID
	for id, last := range s.lastActivity {
		if last.Before(cutoff) {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	// pending actions of a stale room must land before its status changes
	if len(stale) > 0 {
		s.Flush(ctx)
	}
	for _, id := range stale {
		if err := s.sink.MarkRoomAbandoned(ctx, id); err != nil {
			log.WithField("room_id", id).Errorf("failed to mark room abandoned: %v", err)
			continue
		}
		log.WithField("room_id", id).Info("marked room abandoned")
	}
	return len(stale)
}

// RedisSource pops records with BLPop.
type RedisSource struct {
	Client *redis.Client
	Queue  string
}

// Pop implements Source.
func (r *RedisSource) Pop(ctx context.Context, timeout time.Duration) (cache.RoomActionRecord, bool, error) {
	res, err := r.Client.BLPop(ctx, timeout, r.Queue).Result()
	if errors.Is(err, redis.Nil) {
		return cache.RoomActionRecord{}, false, nil
	}
	if err != nil {
		return cache.RoomActionRecord{}, false, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return cache.RoomActionRecord{}, false, nil
	}
	rec, err := cache.DecodeRoomAction(res[1])
	if err != nil {
		log.Warnf("skipping queued payload: %v", err)
		return cache.RoomActionRecord{}, false, nil
	}
	if rec.RoomID == uuid.Nil {
		log.WithField("room", rec.RoomCode).Warn("skipping queued action without a room id")
		return cache.RoomActionRecord{}, false, nil
	}
	return rec, true, nil
}

// DBSink writes to the shared database pool.
type DBSink struct{}

// InsertRoomActions implements Sink.
func (DBSink) InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error {
	return database.InsertRoomActions(ctx, records)
}

// MarkRoomAbandoned implements Sink.
func (DBSink) MarkRoomAbandoned(ctx context.Context, roomID uuid.UUID) error {
	return database.MarkRoomAbandoned(ctx, roomID)
}
