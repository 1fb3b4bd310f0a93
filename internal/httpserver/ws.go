// internal/httpserver/ws.go
//
// Live state push for a single game.
//   - GET /game/{id}/ws upgrades to a WebSocket owned by the game's player.
//   - The server sends {"type":"state"} on connect and after every change,
//     including the timed flip-back of a mismatched pair.
//   - The client may send {"type":"select","card":n} or {"type":"reset"};
//     these follow the same rules as the HTTP routes.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/internal/game"
	"github.com/robalobadob/memory/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// wsMessage is every server → client frame.
type wsMessage struct {
	Type  string     `json:"type"` // "state" | "error"
	State *stateView `json:"state,omitempty"`
	Error string     `json:"error,omitempty"`
}

// wsCommand is every client → server frame.
type wsCommand struct {
	Type string `json:"type"` // "select" | "reset"
	Card *int   `json:"card,omitempty"`
}

// wsClient is one connection. send and closed are guarded by hub.mu.
type wsClient struct {
	conn   *websocket.Conn
	send   chan wsMessage
	closed bool
}

// close must be called with hub.mu held.
func (c *wsClient) close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// hub tracks subscribers per game id.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*wsClient]struct{})}
}

func (h *hub) subscribe(gameID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[*wsClient]struct{})
	}
	h.subs[gameID][c] = struct{}{}
}

func (h *hub) unsubscribe(gameID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[gameID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, gameID)
		}
	}
	c.close()
}

// publish queues msg for every subscriber of gameID. A subscriber whose
// buffer is full is disconnected; it can reconnect and resync.
func (h *hub) publish(gameID string, msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[gameID] {
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("gameId", gameID).Msg("slow websocket client dropped")
			delete(h.subs[gameID], c)
			c.close()
		}
	}
}

// subscribers reports the number of clients watching gameID.
func (h *hub) subscribers(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[gameID])
}

// closeGame disconnects every subscriber of gameID.
func (h *hub) closeGame(gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[gameID] {
		c.close()
	}
	delete(h.subs, gameID)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, set := range h.subs {
		for c := range set {
			c.close()
		}
		delete(h.subs, id)
	}
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.opts.ClientOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

// handleWS upgrades the connection and streams the game's state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	c := &wsClient{conn: conn, send: make(chan wsMessage, sendBuffer)}
	id := sess.Game.ID
	s.hub.subscribe(id, c)
	view := buildStateView(sess, sess.Game.Snapshot())
	s.reply(c, wsMessage{Type: "state", State: &view})

	go c.writePump()
	s.readPump(c, sess)
}

// readPump applies client commands until the connection closes.
func (s *Server) readPump(c *wsClient, sess *store.Session) {
	defer func() {
		s.hub.unsubscribe(sess.Game.ID, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd wsCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}
		ctx := context.Background()

		switch cmd.Type {
		case "select":
			if cmd.Card == nil {
				s.reply(c, wsMessage{Type: "error", Error: "bad_command"})
				continue
			}
			// Successful picks reach this client through the game's notify hook.
			_, _, err := s.applySelect(ctx, sess, *cmd.Card)
			switch {
			case errors.Is(err, game.ErrInvalidCard):
				s.reply(c, wsMessage{Type: "error", Error: "invalid_card"})
			case errors.Is(err, game.ErrGameClosed):
				s.reply(c, wsMessage{Type: "error", Error: "game_closed"})
				return
			}
		case "reset":
			if _, err := s.applyReset(ctx, sess); err != nil {
				s.reply(c, wsMessage{Type: "error", Error: err.Error()})
			}
		default:
			// ignore unknown types
		}
	}
}

// reply sends a message to one client without blocking the read loop.
func (s *Server) reply(c *wsClient, msg wsMessage) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
