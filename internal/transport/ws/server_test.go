package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	srv      *httptest.Server
	ws       *Server
	registry *Registry
	chats    *fakeChats
	canvas   *fakeCanvas
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	reg := NewRegistry()
	f := &wsFixture{registry: reg, chats: &fakeChats{}, canvas: &fakeCanvas{}}
	router := NewRouter(reg, NewHub(reg), f.chats, f.canvas, fakeUsers{"U": "Alice"})
	f.ws = NewServer(Config{PingPeriod: time.Second, WriteWait: time.Second}, fakeAuth{}, reg, router)
	f.srv = httptest.NewServer(http.HandlerFunc(f.ws.HandleWS))
	t.Cleanup(func() {
		f.ws.Shutdown()
		f.srv.Close()
	})
	return f
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func readFrame(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// expectSilence — за короткое окно ничего не пришло.
func expectSilence(t *testing.T, c *websocket.Conn) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := c.ReadMessage()
	require.Error(t, err, "unexpected frame %s", data)
}

// waitMembers ждёт, пока join обработается: read loop асинхронен к клиенту.
func (f *wsFixture) waitMembers(t *testing.T, room domain.RoomID, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.registry.MembersOf(room)) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_DrawScenario(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")
	b := f.dial(t, "ok:V")
	c := f.dial(t, "ok:W")

	send(t, a, `{"type":"join_room","roomId":7}`)
	send(t, b, `{"type":"join_room","roomId":7}`)
	send(t, c, `{"type":"join_room","roomId":9}`)
	f.waitMembers(t, 7, 2)
	f.waitMembers(t, 9, 1)

	send(t, a, `{"type":"draw","roomId":7,"data":{"id":1,"type":"rect"}}`)

	got := readFrame(t, b)
	assert.Equal(t, "draw", got["type"])
	assert.Equal(t, "U", got["userId"])
	assert.EqualValues(t, 7, got["roomId"])
	assert.Equal(t, map[string]any{"id": float64(1), "type": "rect"}, got["data"])

	expectSilence(t, a)
	expectSilence(t, c)
}

func TestServer_ChatScenario(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")
	b := f.dial(t, "ok:V")

	send(t, a, `{"type":"join_room","roomId":7}`)
	send(t, b, `{"type":"join_room","roomId":7}`)
	f.waitMembers(t, 7, 2)

	send(t, a, `{"type":"chat","roomId":7,"message":"hi"}`)

	for _, conn := range []*websocket.Conn{a, b} {
		got := readFrame(t, conn)
		assert.Equal(t, "chat", got["type"])
		assert.Equal(t, "hi", got["message"])
		assert.Equal(t, "U", got["userId"])
		assert.Equal(t, "Alice", got["userName"])
		assert.NotZero(t, got["chatId"])
	}

	rows := f.chats.saved()
	require.Len(t, rows, 1)
	assert.Equal(t, "hi", rows[0].Text)
	assert.Equal(t, domain.UserID("U"), rows[0].UserID)
}

func TestServer_InvalidTokenClosed(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "expired")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Zero(t, f.registry.Len())
}

func TestServer_LeaveThenNoDelivery(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")
	b := f.dial(t, "ok:V")

	send(t, a, `{"type":"join_room","roomId":7}`)
	send(t, b, `{"type":"join_room","roomId":7}`)
	f.waitMembers(t, 7, 2)

	send(t, a, `{"type":"leave_room","room":7}`)
	f.waitMembers(t, 7, 1)

	send(t, b, `{"type":"draw","roomId":7,"data":{"id":3}}`)
	require.Eventually(t, func() bool { return len(f.canvas.saved()) == 1 }, 2*time.Second, 10*time.Millisecond)
	expectSilence(t, a)
}

func TestServer_MalformedFrameKeepsConnection(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")
	b := f.dial(t, "ok:V")

	send(t, a, `{"type":"join_room","roomId":7}`)
	send(t, b, `{"type":"join_room","roomId":7}`)
	f.waitMembers(t, 7, 2)

	send(t, a, `garbage`)
	send(t, a, `{"type":"draw","roomId":7}`)
	send(t, a, `{"type":"erase","roomId":7,"data":{"id":1}}`)

	got := readFrame(t, b)
	assert.Equal(t, "erase", got["type"])
	assert.Len(t, f.canvas.saved(), 1)
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")

	send(t, a, `{"type":"join_room","roomId":7}`)
	f.waitMembers(t, 7, 1)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.registry.MembersOf(7))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://board.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req), "no Origin header")

	req.Header.Set("Origin", "https://board.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}

func TestServer_ShutdownSendsGoingAway(t *testing.T) {
	f := newWSFixture(t)
	a := f.dial(t, "ok:U")
	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.ws.Shutdown()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
