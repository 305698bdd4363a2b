// internal/game/room_store_test.go
package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetRoom(t *testing.T) {
	s := NewRoomStore()
	r, err := s.CreateRoom(nil)
	require.NoError(t, err)

	assert.Len(t, r.Code, roomCodeLength)
	for _, ch := range r.Code {
		assert.True(t, strings.ContainsRune(roomCodeAlphabet, ch), "unexpected %q in %s", ch, r.Code)
	}
	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, DefaultHouseRules(), r.HouseRules)

	got, ok := s.GetRoom(" " + strings.ToLower(r.Code) + " ")
	require.True(t, ok, "codes are case-insensitive")
	assert.Same(t, r, got)

	_, ok = s.GetRoom("ZZZZZZ")
	assert.False(t, ok)

	s.DeleteRoom(r.Code)
	_, ok = s.GetRoom(r.Code)
	assert.False(t, ok)
}

func TestCreateRoomAppliesOverrides(t *testing.T) {
	s := NewRoomStore()
	s.RequireSeatToken = true

	r, err := s.CreateRoom(map[string]interface{}{"stacking": true, "handSize": float64(5)})
	require.NoError(t, err)
	assert.True(t, r.HouseRules.Stacking)
	assert.Equal(t, 5, r.HouseRules.HandSize)
	assert.True(t, r.RequireSeatToken)

	_, err = s.CreateRoom(map[string]interface{}{"handSize": "many"})
	assert.Error(t, err)
	assert.Len(t, s.Rooms(), 1)
}

func TestCodesAreUnique(t *testing.T) {
	s := NewRoomStore()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		r, err := s.CreateRoom(nil)
		require.NoError(t, err)
		require.False(t, seen[r.Code])
		seen[r.Code] = true
	}
	assert.Len(t, s.Rooms(), 200)
}

func TestReapRemovesIdleRooms(t *testing.T) {
	s := NewRoomStore()
	s.IdleTTL = time.Minute

	idle, err := s.CreateRoom(nil)
	require.NoError(t, err)
	c := &mockConn{}
	res, err := idle.Join(JoinRequest{Conn: c})
	require.NoError(t, err)
	idle.Disconnect(res.PlayerID, c)

	busy, err := s.CreateRoom(nil)
	require.NoError(t, err)
	_, err = busy.Join(JoinRequest{Conn: &mockConn{}})
	require.NoError(t, err)

	assert.Equal(t, 0, s.Reap(time.Now()), "nothing is past the TTL yet")
	assert.Equal(t, 1, s.Reap(time.Now().Add(2*time.Minute)))

	_, ok := s.GetRoom(idle.Code)
	assert.False(t, ok)
	_, ok = s.GetRoom(busy.Code)
	assert.True(t, ok, "rooms with a connected player survive")

	// a reconnect racing the reaper finds the room closed
	_, err = idle.Join(JoinRequest{Conn: &mockConn{}, PlayerID: res.PlayerID})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestReapSkipsReplacedRoom(t *testing.T) {
	s := NewRoomStore()
	s.IdleTTL = time.Minute
	old, err := s.CreateRoom(nil)
	require.NoError(t, err)

	// the code now belongs to a different room
	fresh := NewRoom(old.Code, DefaultHouseRules(), nil)
	s.mu.Lock()
	s.rooms[old.Code] = fresh
	s.mu.Unlock()

	assert.True(t, old.closeIfIdle(time.Now().Add(time.Hour), s.IdleTTL))
	assert.False(t, s.removeRoom(old))
	got, ok := s.GetRoom(old.Code)
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRunReaperStopsWithContext(t *testing.T) {
	s := NewRoomStore()
	s.IdleTTL = 0
	_, err := s.CreateRoom(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunReaper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(s.Rooms()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
