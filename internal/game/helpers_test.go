// internal/game/helpers_test.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/require"
)

// mockConn collects events instead of sending them over WS.
type mockConn struct {
	mu     sync.Mutex
	events []GameEvent
	closed bool
}

func (m *mockConn) Send(ev GameEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *mockConn) all() []GameEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GameEvent(nil), m.events...)
}

func (m *mockConn) last() *GameEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	ev := m.events[len(m.events)-1]
	return &ev
}

func (m *mockConn) ofType(t GameEventType) []GameEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []GameEvent
	for _, ev := range m.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// newTestRoom creates a waiting room with n joined players and a fixed random source.
func newTestRoom(t *testing.T, n int, rules *HouseRules) (*Room, []*models.Player, []*mockConn) {
	t.Helper()
	hr := DefaultHouseRules()
	if rules != nil {
		hr = *rules
	}
	r := NewRoom("TESTRM", hr, rand.New(rand.NewSource(42)))

	conns := make([]*mockConn, n)
	for i := 0; i < n; i++ {
		conns[i] = &mockConn{}
		_, err := r.Join(JoinRequest{Conn: conns[i], PlayerName: fmt.Sprintf("player-%d", i)})
		require.NoError(t, err)
	}
	for _, c := range conns {
		c.clear()
	}
	return r, r.Players, conns
}

// rig puts the room into a hand-built playing position. The top card is discarded first,
// so the active triplet follows it.
func rig(r *Room, top *models.Card, draw []*models.Card, hands ...[]*models.Card) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	r.Status = StatusPlaying
	r.Deck = Deck{DrawPile: draw, DiscardPile: []*models.Card{}}
	r.discard(top)
	total := len(draw) + 1
	for i, h := range hands {
		r.Players[i].Hand = h
		total += len(h)
	}
	r.totalCards = total
	r.CurrentTurn = 0
	r.Direction = 1
	r.PendingDraw = 0
	r.pendingKind = ""
	r.WinnerID = nil
}

func num(color models.Color, v int) *models.Card {
	return models.NewNumberCard(color, v)
}

func act(color models.Color, kind models.Kind) *models.Card {
	return models.NewActionCard(color, kind)
}

func wild(kind models.Kind) *models.Card {
	return models.NewActionCard(models.ColorWild, kind)
}

// filler returns n plain green number cards.
func filler(n int) []*models.Card {
	out := make([]*models.Card, n)
	for i := range out {
		out[i] = num(models.ColorGreen, i%10)
	}
	return out
}

func hand(cards ...*models.Card) []*models.Card {
	return cards
}

// eventState returns the snapshot of the last event of type t on c.
func eventState(t *testing.T, c *mockConn, typ GameEventType) *RoomSnapshot {
	t.Helper()
	evs := c.ofType(typ)
	require.NotEmpty(t, evs, "expected a %s event", typ)
	st := evs[len(evs)-1].State
	require.NotNil(t, st)
	return st
}
