package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/memory/internal/game"
)

func dialGame(t *testing.T, e *testEnv, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	for _, c := range e.cookies {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketStreamsStateAndFlipBack(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	id := e.newGame(t)
	pairs := e.layout(t, id)
	conn := dialGame(t, e, ts, id)

	hello := readState(t, conn)
	require.Equal(t, "state", hello.Type)
	require.NotNil(t, hello.State)
	assert.Equal(t, id, hello.State.GameID)

	a, b := pairs[0][0], pairs[1][0]
	require.NoError(t, conn.WriteJSON(wsCommand{Type: "select", Card: &a}))
	msg := readState(t, conn)
	assert.Equal(t, game.TurnOneSelected, msg.State.Turn)

	require.NoError(t, conn.WriteJSON(wsCommand{Type: "select", Card: &b}))
	msg = readState(t, conn)
	assert.True(t, msg.State.Resolving)
	assert.Equal(t, 1, msg.State.Moves)

	// The flip-back is pushed without any client request.
	e.sched.fireAll()
	msg = readState(t, conn)
	assert.False(t, msg.State.Resolving)
	assert.Equal(t, game.TurnIdle, msg.State.Turn)
	assert.False(t, msg.State.Cards[a].Revealed)
	assert.False(t, msg.State.Cards[b].Revealed)

	bad := 42
	require.NoError(t, conn.WriteJSON(wsCommand{Type: "select", Card: &bad}))
	msg = readState(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "invalid_card", msg.Error)
}

func TestExpiredGameClosesSocket(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	id := e.newGame(t)
	conn := dialGame(t, e, ts, id)
	readState(t, conn)

	expired := e.mem.Sweep(time.Now().Add(time.Hour))
	require.Len(t, expired, 1)
	e.srv.Expire(expired)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	err := conn.ReadJSON(&msg)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure), err.Error())
	assert.Equal(t, 0, e.srv.hub.subscribers(id))

	rec := e.do(t, http.MethodGet, "/game/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketRejectsStranger(t *testing.T) {
	e := newTestEnv(t)
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	id := e.newGame(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + id + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHubDropsSlowClients(t *testing.T) {
	h := newHub()
	c := &wsClient{send: make(chan wsMessage, 1)}
	h.subscribe("g", c)
	assert.Equal(t, 1, h.subscribers("g"))

	h.publish("g", wsMessage{Type: "state"})
	h.publish("g", wsMessage{Type: "state"}) // buffer full

	assert.Equal(t, 0, h.subscribers("g"))
	h.mu.Lock()
	assert.True(t, c.closed)
	h.mu.Unlock()
}
