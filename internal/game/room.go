// internal/game/room.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/models"
	log "github.com/sirupsen/logrus"
)

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// TokenIssuer returns the reconnect token handed to a player on join.
type TokenIssuer func(roomCode string, playerID uuid.UUID) (string, error)

// Room holds the entire authoritative state for a single room in memory. Every exported
// method takes Mu, so commands against one room are applied in arrival order.
type Room struct {
	// ID is unique per room lifetime. Code is what players type and is reused.
	ID         uuid.UUID
	Code       string
	HouseRules HouseRules
	CreatedAt  time.Time

	Status      RoomStatus
	Players     []*models.Player
	Deck        Deck
	CurrentTurn int
	Direction   int

	ActiveColor  models.Color
	ActiveNumber *int
	ActiveType   *models.Kind
	PendingDraw  int
	WinnerID     *uuid.UUID

	// RequireSeatToken refuses bare player-id reconnects.
	RequireSeatToken bool
	// IssueToken is used to hand out reconnect tokens. If nil, no token is sent.
	IssueToken TokenIssuer

	Mu sync.Mutex

	conns       map[uuid.UUID]Conn
	rng         *rand.Rand
	pendingKind models.Kind
	totalCards  int
	turnID      int
	actionIndex int
	halted      bool
	closed      bool
	lastActive  time.Time
}

// NewRoom builds an empty waiting room. rng drives every shuffle in the room.
func NewRoom(code string, rules HouseRules, rng *rand.Rand) *Room {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := time.Now()
	return &Room{
		ID:         uuid.New(),
		Code:       code,
		HouseRules: rules,
		CreatedAt:  now,
		Status:     StatusWaiting,
		Direction:  1,
		conns:      make(map[uuid.UUID]Conn),
		rng:        rng,
		lastActive: now,
	}
}

// JoinRequest carries a join or reconnect attempt.
type JoinRequest struct {
	Conn       Conn
	PlayerName string
	// PlayerID is the id the client presents for a reconnect, uuid.Nil for a fresh seat.
	PlayerID   uuid.UUID
	// Authorized is true when the client proved ownership of PlayerID with a seat token.
	Authorized bool
	RequestID  string
	// Ack asks for an ack frame ahead of joined_success, as the reply to create_room.
	Ack        bool
}

// JoinResult describes the seat the connection ended up in.
type JoinResult struct {
	PlayerID    uuid.UUID
	Token       string
	Reconnected bool
}

// Join attaches a connection to a seat, either reattaching an existing player or adding a
// new one while the room is waiting.
func (r *Room) Join(req JoinRequest) (JoinResult, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.halted {
		return JoinResult{}, ErrRoomHalted
	}
	if r.closed {
		return JoinResult{}, fmt.Errorf("room %s closed: %w", r.Code, ErrRoomNotFound)
	}

	if req.PlayerID != uuid.Nil {
		if p := r.getPlayerByID(req.PlayerID); p != nil && r.canReattach(p, req.Authorized) {
			r.attach(p, req.Conn)
			log.WithFields(log.Fields{"room": r.Code, "player": p.ID}).Info("player reconnected")
			r.logAction(p.ID, "player_reconnect", nil)
			token := r.sendJoined(p, req)
			return JoinResult{PlayerID: p.ID, Token: token, Reconnected: true}, nil
		}
	}

	if r.Status != StatusWaiting {
		return JoinResult{}, fmt.Errorf("room %s is %s: %w", r.Code, r.Status, ErrRoomNotJoinable)
	}
	if len(r.Players) >= r.HouseRules.MaxPlayers {
		return JoinResult{}, fmt.Errorf("room %s is full: %w", r.Code, ErrRoomNotJoinable)
	}

	name := req.PlayerName
	if name == "" {
		name = fmt.Sprintf("Player %d", len(r.Players)+1)
	}
	p := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		Hand:      []*models.Card{},
		Connected: true,
	}
	r.Players = append(r.Players, p)
	r.attach(p, req.Conn)
	log.WithFields(log.Fields{"room": r.Code, "player": p.ID, "name": name}).Info("player joined")
	r.logAction(p.ID, "player_join", map[string]interface{}{"name": name})
	token := r.sendJoined(p, req)
	return JoinResult{PlayerID: p.ID, Token: token}, nil
}

// canReattach decides whether a presented player id may take over its seat. A token
// always works; a bare id only reclaims a seat nobody is currently holding.
func (r *Room) canReattach(p *models.Player, authorized bool) bool {
	if authorized {
		return true
	}
	return !p.Connected && !r.RequireSeatToken
}

// attach binds conn to p, closing any connection it replaces.
// Assumes lock is held by caller.
func (r *Room) attach(p *models.Player, conn Conn) {
	if old, ok := r.conns[p.ID]; ok && old != conn && old != nil {
		old.Close()
	}
	if conn != nil {
		r.conns[p.ID] = conn
	}
	p.Connected = true
	p.DisconnectedAt = time.Time{}
	r.lastActive = time.Now()
}

// sendJoined sends the optional ack, joined_success and sync_state to the joiner and a
// state update to everyone else. Returns the seat token, signed once per join.
// Assumes lock is held by caller.
func (r *Room) sendJoined(p *models.Player, req JoinRequest) string {
	var token string
	if r.IssueToken != nil {
		var err error
		if token, err = r.IssueToken(r.Code, p.ID); err != nil {
			log.WithFields(log.Fields{"room": r.Code, "player": p.ID}).Warnf("failed to issue seat token: %v", err)
		}
	}
	if conn := req.Conn; conn != nil {
		id := p.ID
		if req.Ack {
			conn.Send(GameEvent{Type: EventAck, RequestID: req.RequestID, PlayerID: &id, RoomID: r.Code, Token: token})
		}
		conn.Send(GameEvent{Type: EventJoinedSuccess, RequestID: req.RequestID, PlayerID: &id, RoomID: r.Code, Token: token})
		state := r.snapshotFor(p.ID)
		conn.Send(GameEvent{Type: EventSyncState, State: &state})
	}
	r.broadcastState(EventStateUpdate, p.ID)
	return token
}

// Disconnect marks the player as disconnected if conn is still the one attached to the
// seat. The seat and hand are kept for a later reconnect.
func (r *Room) Disconnect(playerID uuid.UUID, conn Conn) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if current, ok := r.conns[playerID]; !ok || current != conn {
		// stale connection, the seat was already taken over
		return
	}
	p := r.getPlayerByID(playerID)
	if p == nil {
		return
	}
	delete(r.conns, playerID)
	p.Connected = false
	p.DisconnectedAt = time.Now()
	log.WithFields(log.Fields{"room": r.Code, "player": playerID}).Info("player disconnected")
	r.logAction(playerID, "player_disconnect", nil)
	r.broadcastState(EventStateUpdate, uuid.Nil)
}

// Leave removes the player from a waiting room, or marks them disconnected once a game
// has been dealt. Returns true when the roster is empty afterwards; the room is then
// closed and refuses further joins.
func (r *Room) Leave(playerID uuid.UUID) (bool, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	idx := r.indexOf(playerID)
	if idx < 0 {
		return len(r.Players) == 0, ErrPlayerNotFound
	}
	p := r.Players[idx]
	delete(r.conns, playerID)

	if r.Status == StatusWaiting {
		r.Players = append(r.Players[:idx:idx], r.Players[idx+1:]...)
		if r.CurrentTurn >= len(r.Players) {
			r.CurrentTurn = 0
		}
	} else {
		p.Connected = false
		p.DisconnectedAt = time.Now()
	}
	log.WithFields(log.Fields{"room": r.Code, "player": playerID}).Info("player left")
	r.logAction(playerID, "player_leave", nil)
	r.broadcastState(EventStateUpdate, uuid.Nil)
	if len(r.Players) == 0 {
		r.closed = true
	}
	return r.closed, nil
}

// Start deals the game. Any seated player may start once at least two are present.
func (r *Room) Start(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.halted {
		return ErrRoomHalted
	}
	if r.Status != StatusWaiting {
		return ErrGameInProgress
	}
	if r.getPlayerByID(playerID) == nil {
		return ErrPlayerNotFound
	}
	if len(r.Players) < minPlayers {
		return ErrNotEnoughPlayers
	}

	cards := BuildDeck(r.HouseRules.DeckConfig())
	Shuffle(cards, r.rng)
	r.Deck = Deck{DrawPile: cards, DiscardPile: []*models.Card{}}
	r.totalCards = len(cards)

	for _, p := range r.Players {
		p.Hand = make([]*models.Card, 0, r.HouseRules.HandSize)
		p.IsSafe = false
	}
	for round := 0; round < r.HouseRules.HandSize; round++ {
		for _, p := range r.Players {
			if err := r.drawInto(p, 1); err != nil {
				return r.halt(fmt.Errorf("initial deal: %w", err))
			}
		}
	}

	if err := r.flipStartingCard(); err != nil {
		return r.halt(err)
	}

	r.Status = StatusPlaying
	r.CurrentTurn = 0
	r.Direction = 1
	r.PendingDraw = 0
	r.pendingKind = ""
	r.WinnerID = nil
	r.turnID = 0

	log.WithFields(log.Fields{"room": r.Code, "players": len(r.Players), "deck": r.totalCards}).Info("game started")
	r.logAction(playerID, "game_start", map[string]interface{}{"players": len(r.Players)})
	return r.afterCommand(EventGameStarted)
}

// flipStartingCard turns the first non-wild card onto the discard pile. Wilds go back
// under the draw pile. The flipped card's action is not applied.
// Assumes lock is held by caller.
func (r *Room) flipStartingCard() error {
	for attempts := 0; attempts < r.totalCards; attempts++ {
		c, err := r.Deck.DrawOne(r.rng)
		if err != nil {
			return fmt.Errorf("starting flip: %w", err)
		}
		if c.IsWild() {
			r.Deck.DrawPile = append([]*models.Card{c}, r.Deck.DrawPile...)
			continue
		}
		r.discard(c)
		return nil
	}
	return fmt.Errorf("starting flip: no non-wild card in %d attempts", r.totalCards)
}

// PlayCard plays cardID from the player's hand. selectedColor is required for wilds.
func (r *Room) PlayCard(playerID, cardID uuid.UUID, selectedColor models.Color) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p, err := r.turnPlayer(playerID)
	if err != nil {
		return err
	}
	idx := p.FindCard(cardID)
	if idx < 0 {
		return ErrCardNotInHand
	}
	card := p.Hand[idx]
	if card.IsWild() {
		if selectedColor == "" {
			return ErrMissingColorSelection
		}
		if !selectedColor.IsPlayable() {
			return fmt.Errorf("%q: %w", selectedColor, ErrInvalidColor)
		}
	}
	if !IsLegalPlay(card, r, playerID) {
		return fmt.Errorf("%s: %w", card, ErrIllegalPlay)
	}
	// the played card's predecessor becomes recyclable, hence Size rather than Available.
	// A stacked draw must stay drawable in full by whoever ends up taking it.
	if owed := card.Kind.DrawPenalty(); owed > 0 {
		if r.HouseRules.Stacking {
			owed += r.PendingDraw
		}
		if owed > r.Deck.Size() {
			return ErrDeckExhausted
		}
	}

	p.RemoveCardAt(idx)
	if err := r.applyEffect(p, card, selectedColor); err != nil {
		return r.halt(err)
	}
	if len(p.Hand) == 1 {
		p.IsSafe = false
	}

	payload := map[string]interface{}{"cardId": card.ID, "card": card.String()}
	if card.IsWild() {
		payload["selectedColor"] = selectedColor
	}
	r.logAction(playerID, "play_card", payload)

	if len(p.Hand) == 0 {
		r.finish(p)
	}
	return r.afterCommand(EventStateUpdate)
}

// DrawCard draws for the current player and ends their turn. With a stacked forced draw
// pending, the whole pending amount is drawn instead of one card.
func (r *Room) DrawCard(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	p, err := r.turnPlayer(playerID)
	if err != nil {
		return err
	}
	n := 1
	if r.PendingDraw > 0 {
		n = r.PendingDraw
	}
	if r.Deck.Available() < n {
		return ErrDeckExhausted
	}
	if err := r.drawInto(p, n); err != nil {
		return r.halt(err)
	}
	r.PendingDraw = 0
	r.pendingKind = ""
	r.advanceTurn(1)

	r.logAction(playerID, "draw_card", map[string]interface{}{"count": n})
	return r.afterCommand(EventStateUpdate)
}

// CallUno declares UNO. It only has an effect at exactly one card; otherwise it is ignored.
func (r *Room) CallUno(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.checkActive(); err != nil {
		return err
	}
	p := r.getPlayerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if len(p.Hand) != 1 || p.IsSafe {
		return nil
	}
	p.IsSafe = true
	r.logAction(playerID, "call_uno", nil)
	return r.afterCommand(EventStateUpdate)
}

// Challenge penalises a target holding one card without having called UNO. Any player may
// challenge at any time, not only on their own turn.
func (r *Room) Challenge(challengerID, targetID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if err := r.checkActive(); err != nil {
		return err
	}
	if r.getPlayerByID(challengerID) == nil {
		return ErrPlayerNotFound
	}
	target := r.getPlayerByID(targetID)
	if target == nil {
		return ErrPlayerNotFound
	}
	if targetID == challengerID || len(target.Hand) != 1 || target.IsSafe {
		return ErrInvalidChallengeTarget
	}
	// a pending stacked draw keeps its cards reserved
	if r.Deck.Available() < challengePenalty+r.PendingDraw {
		return ErrDeckExhausted
	}
	if err := r.drawInto(target, challengePenalty); err != nil {
		return r.halt(err)
	}
	r.logAction(challengerID, "challenge", map[string]interface{}{"target": targetID})
	return r.afterCommand(EventStateUpdate)
}

// Reset returns a finished room to waiting with the same roster.
func (r *Room) Reset(playerID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.halted {
		return ErrRoomHalted
	}
	if r.getPlayerByID(playerID) == nil {
		return ErrPlayerNotFound
	}
	if r.Status == StatusPlaying {
		return ErrGameInProgress
	}

	for _, p := range r.Players {
		p.Hand = []*models.Card{}
		p.IsSafe = false
	}
	r.Status = StatusWaiting
	r.Deck = Deck{}
	r.totalCards = 0
	r.CurrentTurn = 0
	r.Direction = 1
	r.ActiveColor = ""
	r.ActiveNumber = nil
	r.ActiveType = nil
	r.PendingDraw = 0
	r.pendingKind = ""
	r.WinnerID = nil

	r.logAction(playerID, "reset_game", nil)
	return r.afterCommand(EventStateUpdate)
}

// finish marks p as the winner and records the result.
// Assumes lock is held by caller.
func (r *Room) finish(p *models.Player) {
	id := p.ID
	r.WinnerID = &id
	r.Status = StatusFinished
	log.WithFields(log.Fields{"room": r.Code, "winner": p.ID}).Info("game finished")
	r.logAction(p.ID, "game_end", map[string]interface{}{"winner": p.ID})
	r.persistResult(p.ID)
}

// persistResult writes the finished room to postgres when a pool is configured.
// Assumes lock is held by caller.
func (r *Room) persistResult(winner uuid.UUID) {
	if database.DB == nil {
		return
	}
	result := database.RoomResult{
		RoomID:      r.ID,
		RoomCode:    r.Code,
		WinnerID:    winner,
		PlayerCount: len(r.Players),
		Turns:       r.turnID,
		Players:     make([]database.PlayerResult, 0, len(r.Players)),
		FinishedAt:  time.Now(),
	}
	for seat, p := range r.Players {
		result.Players = append(result.Players, database.PlayerResult{
			PlayerID:  p.ID,
			Name:      p.Name,
			Seat:      seat,
			CardsLeft: len(p.Hand),
		})
	}
	go func(res database.RoomResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordRoomResult(ctx, res); err != nil {
			log.WithField("room", res.RoomCode).Errorf("failed to record room result: %v", err)
		}
	}(result)
}

// turnPlayer validates that the room is in play and it is playerID's turn.
// Assumes lock is held by caller.
func (r *Room) turnPlayer(playerID uuid.UUID) (*models.Player, error) {
	if err := r.checkActive(); err != nil {
		return nil, err
	}
	idx := r.indexOf(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	if idx != r.CurrentTurn {
		return nil, ErrNotYourTurn
	}
	return r.Players[idx], nil
}

// checkActive rejects game commands outside of play.
// Assumes lock is held by caller.
func (r *Room) checkActive() error {
	if r.halted {
		return ErrRoomHalted
	}
	if r.Status != StatusPlaying {
		return ErrGameNotActive
	}
	return nil
}

// afterCommand verifies the card invariants and broadcasts the new state.
// Assumes lock is held by caller.
func (r *Room) afterCommand(evType GameEventType) error {
	r.lastActive = time.Now()
	if err := r.checkInvariants(); err != nil {
		return r.halt(err)
	}
	r.broadcastState(evType, uuid.Nil)
	return nil
}

// halt stops all further processing of the room after an invariant violation.
// Assumes lock is held by caller.
func (r *Room) halt(cause error) error {
	r.halted = true
	log.WithFields(log.Fields{"room": r.Code, "status": r.Status}).Errorf("room halted: %v", cause)
	r.logAction(uuid.Nil, "room_halted", map[string]interface{}{"cause": cause.Error()})
	return fmt.Errorf("%w: %v", ErrRoomHalted, cause)
}

// checkInvariants verifies that no card was lost or duplicated and the turn state is sane.
// Assumes lock is held by caller.
func (r *Room) checkInvariants() error {
	if r.Status == StatusWaiting {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, r.totalCards)
	count := func(cards []*models.Card) error {
		for _, c := range cards {
			if _, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %s held twice", c.ID)
			}
			seen[c.ID] = struct{}{}
		}
		return nil
	}
	if err := count(r.Deck.DrawPile); err != nil {
		return err
	}
	if err := count(r.Deck.DiscardPile); err != nil {
		return err
	}
	for _, p := range r.Players {
		if err := count(p.Hand); err != nil {
			return err
		}
	}
	if len(seen) != r.totalCards {
		return fmt.Errorf("card count %d, expected %d", len(seen), r.totalCards)
	}
	if len(r.Deck.DiscardPile) == 0 {
		return fmt.Errorf("empty discard pile while %s", r.Status)
	}
	if r.Status == StatusPlaying && r.PendingDraw > r.Deck.Available() {
		return fmt.Errorf("pending draw %d exceeds %d drawable cards", r.PendingDraw, r.Deck.Available())
	}
	if r.CurrentTurn < 0 || r.CurrentTurn >= len(r.Players) {
		return fmt.Errorf("turn index %d out of range", r.CurrentTurn)
	}
	if r.Direction != 1 && r.Direction != -1 {
		return fmt.Errorf("direction %d", r.Direction)
	}
	return nil
}

// broadcastState sends each attached connection its own snapshot. skip, if set, names a
// player that was already sent a sync_state.
// Assumes lock is held by caller.
func (r *Room) broadcastState(evType GameEventType, skip uuid.UUID) {
	for _, p := range r.Players {
		if p.ID == skip {
			continue
		}
		conn, ok := r.conns[p.ID]
		if !ok || conn == nil {
			continue
		}
		state := r.snapshotFor(p.ID)
		conn.Send(GameEvent{Type: evType, State: &state})
	}
}

// SendTo delivers a private event to playerID's connection, if attached.
func (r *Room) SendTo(playerID uuid.UUID, ev GameEvent) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if conn, ok := r.conns[playerID]; ok && conn != nil {
		conn.Send(ev)
	}
}

// getPlayerByID is a helper to find a player struct by their ID.
// Assumes lock is held by caller.
func (r *Room) getPlayerByID(playerID uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// indexOf returns the seat of playerID or -1.
// Assumes lock is held by caller.
func (r *Room) indexOf(playerID uuid.UUID) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// closeIfIdle closes the room when nobody has been connected to it, and no command has
// run, for longer than ttl. A closed room refuses every later join.
func (r *Room) closeIfIdle(now time.Time, ttl time.Duration) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return true
	}
	last := r.lastActive
	for _, p := range r.Players {
		if p.Connected {
			return false
		}
		if p.DisconnectedAt.After(last) {
			last = p.DisconnectedAt
		}
	}
	if now.Sub(last) <= ttl {
		return false
	}
	r.closed = true
	return true
}

// logAction sends the action details to the historian service via Redis.
// Assumes lock is held by caller.
func (r *Room) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomID:        r.ID,
		RoomCode:      r.Code,
		ActionIndex:   r.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}
	go func(rec cache.RoomActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoomAction(ctx, rec); err != nil {
			log.WithField("room", rec.RoomCode).Warnf("failed to publish action %d: %v", rec.ActionIndex, err)
		}
	}(record)
}

// RoomSummary is the public lookup view of a room.
type RoomSummary struct {
	RoomID      string     `json:"roomId"`
	Status      RoomStatus `json:"status"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
}

// Summary returns the room's lookup view.
func (r *Room) Summary() RoomSummary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return RoomSummary{
		RoomID:      r.Code,
		Status:      r.Status,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.HouseRules.MaxPlayers,
	}
}
