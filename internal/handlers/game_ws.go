// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// wsConn is the game.Conn for one websocket. Send queues onto OutChan without blocking;
// writePump drains it in order.
type wsConn struct {
	OutChan chan game.GameEvent

	cancel   context.CancelFunc
	once     sync.Once
	replaced atomic.Bool
	dropped  atomic.Int64
	logger   *logrus.Logger
}

func newWSConn(cancel context.CancelFunc, size int, logger *logrus.Logger) *wsConn {
	return &wsConn{
		OutChan: make(chan game.GameEvent, size),
		cancel:  cancel,
		logger:  logger,
	}
}

// Send pushes a frame onto OutChan non-blockingly. Frames are dropped when the outbox is
// full; every state frame carries a full snapshot, so the next one resynchronizes.
func (c *wsConn) Send(ev game.GameEvent) {
	select {
	case c.OutChan <- ev:
	default:
		n := c.dropped.Add(1)
		c.logger.Warnf("outbox full, dropped %s frame (%d dropped so far)", ev.Type, n)
	}
}

// Close is called by the room when another connection takes over the seat.
func (c *wsConn) Close() {
	c.once.Do(func() {
		c.replaced.Store(true)
		c.cancel()
	})
}

// session is the per-connection view of which seat the socket holds.
type session struct {
	conn     *wsConn
	room     *game.Room
	playerID uuid.UUID
	base     *logrus.Entry
	logger   *logrus.Entry
}

// GameWSHandler upgrades the HTTP connection to WebSocket. A connection starts unseated
// and takes a seat with create_room or join_room.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	logger := gs.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"uno"},
			OriginPatterns: gs.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("WebSocket accept error from %s: %v", r.RemoteAddr, err)
			return
		}
		defer c.CloseNow()
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := newWSConn(cancel, gs.OutboxSize, logger)
		base := logger.WithField("remote", r.RemoteAddr)
		sess := &session{conn: conn, base: base, logger: base}

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			writePump(ctx, c, conn, gs.PingInterval, logger)
		}()

		readErr := readPump(ctx, c, gs, sess)

		// ---- Cleanup after readPump exits ----
		if sess.room != nil {
			sess.room.Disconnect(sess.playerID, conn)
		}
		cancel()
		<-writeDone

		switch {
		case conn.replaced.Load():
			c.Close(SeatReplacedClose, "seat taken over by another connection")
		case errors.Is(readErr, errBinaryFrame):
			c.Close(BadFrameClose, "text frames only")
		default:
			c.Close(websocket.StatusNormalClosure, "")
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
	}
}

var errBinaryFrame = errors.New("binary frame")

// readPump reads client frames and dispatches them until the socket closes or ctx ends.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, sess *session) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			return errBinaryFrame
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.conn.Send(errorEvent(fmt.Errorf("%w: %v", errMalformedMessage, err), ""))
			continue
		}
		if err := gs.dispatch(sess, msg); err != nil {
			sess.logger.WithFields(logrus.Fields{"type": msg.Type, "code": game.ErrorCode(err)}).Debugf("command rejected: %v", err)
			sess.conn.Send(errorEvent(err, msg.RequestID))
		}
	}
}

// dispatch applies one client message. Errors are returned to the sender only.
func (gs *GameServer) dispatch(sess *session, msg ClientMessage) error {
	switch msg.Type {
	case msgPing:
		sess.conn.Send(game.GameEvent{Type: game.EventPong, RequestID: msg.RequestID})
		return nil
	case msgCreateRoom:
		return gs.handleCreateRoom(sess, msg)
	case msgJoinRoom:
		return gs.handleJoinRoom(sess, msg)
	case "":
		return fmt.Errorf("%w: missing type", errMalformedMessage)
	}

	if sess.room == nil {
		switch msg.Type {
		case msgStartGame, msgPlayCard, msgDrawCard, msgCallUno, msgChallenge, msgResetGame, msgLeaveRoom:
			return errNotSeated
		}
		return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
	}

	room, playerID := sess.room, sess.playerID
	switch msg.Type {
	case msgStartGame:
		return room.Start(playerID)
	case msgPlayCard:
		cardID, err := uuid.Parse(msg.CardID)
		if err != nil {
			return fmt.Errorf("card id %q: %w", msg.CardID, game.ErrCardNotInHand)
		}
		return room.PlayCard(playerID, cardID, models.Color(msg.SelectedColor))
	case msgDrawCard:
		return room.DrawCard(playerID)
	case msgCallUno:
		return room.CallUno(playerID)
	case msgChallenge:
		targetID, err := uuid.Parse(msg.TargetPlayerID)
		if err != nil {
			return fmt.Errorf("target %q: %w", msg.TargetPlayerID, game.ErrPlayerNotFound)
		}
		return room.Challenge(playerID, targetID)
	case msgResetGame:
		return room.Reset(playerID)
	case msgLeaveRoom:
		empty, err := room.Leave(playerID)
		if err != nil {
			return err
		}
		if empty {
			gs.Rooms.DeleteRoom(room.Code)
		}
		sess.logger.WithField("room", room.Code).Info("left room")
		sess.room, sess.playerID, sess.logger = nil, uuid.Nil, sess.base
		return nil
	}
	return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
}

func (gs *GameServer) handleCreateRoom(sess *session, msg ClientMessage) error {
	if sess.room != nil {
		return fmt.Errorf("%w: %s", errAlreadySeated, sess.room.Code)
	}
	room, err := gs.Rooms.CreateRoom(msg.HouseRules)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	res, err := room.Join(game.JoinRequest{
		Conn:       sess.conn,
		PlayerName: msg.PlayerName,
		RequestID:  msg.RequestID,
		Ack:        true,
	})
	if err != nil {
		gs.Rooms.DeleteRoom(room.Code)
		return err
	}
	sess.seat(room, res.PlayerID)
	return nil
}

func (gs *GameServer) handleJoinRoom(sess *session, msg ClientMessage) error {
	if sess.room != nil {
		return fmt.Errorf("%w: %s", errAlreadySeated, sess.room.Code)
	}
	room, ok := gs.Rooms.GetRoom(msg.RoomID)
	if !ok {
		return fmt.Errorf("%q: %w", msg.RoomID, game.ErrRoomNotFound)
	}

	var playerID uuid.UUID
	if msg.PlayerID != "" {
		id, err := uuid.Parse(msg.PlayerID)
		if err != nil {
			return fmt.Errorf("player id %q: %w", msg.PlayerID, game.ErrPlayerNotFound)
		}
		playerID = id
	}

	authorized := false
	if msg.Token != "" && gs.VerifyToken != nil {
		tokenRoom, tokenPlayer, err := gs.VerifyToken(msg.Token)
		switch {
		case err != nil:
			sess.logger.Warnf("rejected seat token: %v", err)
		case tokenRoom != room.Code:
			sess.logger.Warnf("seat token for room %s presented to %s", tokenRoom, room.Code)
		case playerID != uuid.Nil && tokenPlayer != playerID:
			sess.logger.Warnf("seat token for %s presented with player id %s", tokenPlayer, playerID)
		default:
			playerID = tokenPlayer
			authorized = true
		}
	}

	res, err := room.Join(game.JoinRequest{
		Conn:       sess.conn,
		PlayerName: msg.PlayerName,
		PlayerID:   playerID,
		Authorized: authorized,
		RequestID:  msg.RequestID,
	})
	if err != nil {
		return err
	}
	sess.seat(room, res.PlayerID)
	return nil
}

func (s *session) seat(room *game.Room, playerID uuid.UUID) {
	s.room, s.playerID = room, playerID
	s.logger = s.base.WithFields(logrus.Fields{"room": room.Code, "player": playerID})
}

// writePump drains OutChan to the socket and pings on an interval.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConn, pingInterval time.Duration, logger *logrus.Logger) {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-conn.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("failed to marshal outgoing %s frame: %v", ev.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf("failed to write to websocket: %v", err)
				}
				conn.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warnf("websocket ping failed: %v", err)
				}
				conn.cancel()
				return
			}
		}
	}
}
