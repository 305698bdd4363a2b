// internal/game/room_store.go
package game

import (
	"context"
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// roomCodeAlphabet skips characters that are easy to misread (0/O, 1/I).
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
)

// RoomStore manages active rooms in memory. It provides thread-safe access to add,
// retrieve, and delete rooms. The store lock is never held while a room lock is taken.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room

	// DefaultRules are copied into every new room before per-room overrides.
	DefaultRules HouseRules
	// RequireSeatToken is copied into every new room.
	RequireSeatToken bool
	// IssueToken is copied into every new room.
	IssueToken TokenIssuer
	// IdleTTL is how long a room with nobody connected survives before the reaper removes it.
	IdleTTL time.Duration
	// NewRand seeds each room's random source. Tests replace it for reproducible deals.
	NewRand func() *mrand.Rand
}

// NewRoomStore initializes and returns an empty RoomStore with default rules.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:        make(map[string]*Room),
		DefaultRules: DefaultHouseRules(),
		IdleTTL:      10 * time.Minute,
		NewRand: func() *mrand.Rand {
			return mrand.New(mrand.NewSource(time.Now().UnixNano()))
		},
	}
}

// CreateRoom builds a new waiting room under a fresh code. overrides may be nil.
func (s *RoomStore) CreateRoom(overrides map[string]interface{}) (*Room, error) {
	rules := s.DefaultRules
	if len(overrides) > 0 {
		var err error
		if rules, err = ParseRules(overrides, s.DefaultRules); err != nil {
			return nil, fmt.Errorf("invalid house rules: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < 16; attempt++ {
		code, err := newRoomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := s.rooms[code]; taken {
			continue
		}
		room := NewRoom(code, rules, s.NewRand())
		room.RequireSeatToken = s.RequireSeatToken
		room.IssueToken = s.IssueToken
		s.rooms[code] = room
		log.WithField("room", code).Info("room created")
		return room, nil
	}
	return nil, fmt.Errorf("could not allocate a free room code")
}

// GetRoom retrieves a room by code. Codes are case-insensitive.
func (s *RoomStore) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[NormalizeRoomCode(code)]
	return r, ok
}

// DeleteRoom removes a room by code.
func (s *RoomStore) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = NormalizeRoomCode(code)
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		log.WithField("room", code).Info("room deleted")
	}
}

// removeRoom deletes r only if it is still the room stored under its code.
func (s *RoomStore) removeRoom(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[r.Code] != r {
		return false
	}
	delete(s.rooms, r.Code)
	log.WithField("room", r.Code).Info("room deleted")
	return true
}

// Rooms returns a copy of the room list.
func (s *RoomStore) Rooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Reap deletes rooms nobody has been connected to for longer than IdleTTL. Returns the
// number of rooms removed.
func (s *RoomStore) Reap(now time.Time) int {
	removed := 0
	for _, r := range s.Rooms() {
		if r.closeIfIdle(now, s.IdleTTL) && s.removeRoom(r) {
			removed++
		}
	}
	return removed
}

// RunReaper calls Reap every interval until ctx is done.
func (s *RoomStore) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Reap(now); n > 0 {
				log.Infof("reaped %d idle room(s)", n)
			}
		}
	}
}

// NormalizeRoomCode upper-cases and trims a client supplied code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func newRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}
