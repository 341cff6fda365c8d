package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/security"
	"github.com/cwrk-planet/board-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore — одна in-memory реализация всех хранилищ сервисного слоя.
type memStore struct {
	mu     sync.Mutex
	rooms  map[domain.RoomID]domain.Room
	chats  []domain.ChatMessage
	ops    []domain.CanvasOp
	names  map[domain.UserID]string
	nextID int64
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &r, nil
}

func (m *memStore) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	name, ok := m.names[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &domain.User{ID: id, Name: name}, nil
}

func (m *memStore) GetBySlug(_ context.Context, slug string) (*domain.Room, error) {
	for _, r := range m.rooms {
		if r.Slug == slug {
			return &r, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

type chatStore struct{ *memStore }

func (s chatStore) Save(_ context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := domain.ChatMessage{ID: s.id(), RoomID: roomID, UserID: userID, Text: text, CreatedAt: time.Now()}
	s.chats = append(s.chats, msg)
	return &msg, nil
}

func (s chatStore) Recent(_ context.Context, roomID domain.RoomID, limit int, before int64) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ChatMessage{}
	for i := len(s.chats) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.chats[i]
		if c.RoomID == roomID && (before == 0 || c.ID < before) {
			c.UserName = s.names[c.UserID]
			out = append(out, c)
		}
	}
	return out, nil
}

func (s chatStore) DeleteByRoom(_ context.Context, roomID domain.RoomID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.ChatMessage
	for _, c := range s.chats {
		if c.RoomID != roomID {
			kept = append(kept, c)
		}
	}
	n := int64(len(s.chats) - len(kept))
	s.chats = kept
	return n, nil
}

type canvasStore struct{ *memStore }

func (s canvasStore) Append(_ context.Context, op *domain.CanvasOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op.ID = s.id()
	op.CreatedAt = time.Now()
	s.ops = append(s.ops, *op)
	return nil
}

func (s canvasStore) List(_ context.Context, roomID domain.RoomID) ([]domain.CanvasOp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CanvasOp
	for _, op := range s.ops {
		if op.RoomID == roomID {
			op.UserName = s.names[op.UserID]
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s canvasStore) Delete(_ context.Context, roomID domain.RoomID, opID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, op := range s.ops {
		if op.RoomID == roomID && op.ID == opID {
			s.ops = append(s.ops[:i], s.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrOpNotFound
}

func (s canvasStore) DeleteByRoom(_ context.Context, roomID domain.RoomID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.CanvasOp
	for _, op := range s.ops {
		if op.RoomID != roomID {
			kept = append(kept, op)
		}
	}
	n := int64(len(s.ops) - len(kept))
	s.ops = kept
	return n, nil
}

type apiFixture struct {
	srv    *httptest.Server
	auth   *security.Authenticator
	chat   *service.ChatService
	canvas *service.CanvasService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := &memStore{
		rooms: map[domain.RoomID]domain.Room{
			7: {ID: 7, Slug: "design-review", AdminID: "admin", CreatedAt: time.Now()},
		},
		names: map[domain.UserID]string{"u1": "Alice", "admin": "Boss"},
	}
	auth := security.NewAuthenticator("test-secret", "", time.Hour, 0)
	rooms := service.NewRoomService(store, store)
	f := &apiFixture{
		auth:   auth,
		chat:   service.NewChatService(chatStore{store}, nil, 0),
		canvas: service.NewCanvasService(canvasStore{store}, nil),
	}
	router := NewRouter(Deps{
		Handler: NewHandler(rooms, f.chat, f.canvas),
		Auth:    auth,
		Admins:  rooms,
	})
	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, user domain.UserID, out any) int {
	t.Helper()
	return f.doBody(t, method, path, user, "", out)
}

func (f *apiFixture) doBody(t *testing.T, method, path string, user domain.UserID, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := f.auth.Sign(user, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRequiresBearer(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/chats/7", "", nil))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil))
}

func TestGetRoomBySlug(t *testing.T) {
	f := newAPIFixture(t)

	var room RoomItem
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/room/design-review", "u1", &room))
	assert.Equal(t, domain.RoomID(7), room.ID)
	assert.Equal(t, domain.UserID("admin"), room.AdminID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/room/missing", "u1", nil))
}

func TestGetChats_NewestFirstWithCursor(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.chat.AppendChat(ctx, 7, "u1", text)
		require.NoError(t, err)
	}

	var page ChatHistoryResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/chats/7?limit=2", "u1", &page))
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "three", page.Messages[0].Message)
	assert.Equal(t, "Alice", page.Messages[0].UserName)
	require.NotEmpty(t, page.NextCursor)

	var rest ChatHistoryResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/chats/7?limit=2&cursor="+page.NextCursor, "u1", &rest))
	require.Len(t, rest.Messages, 1)
	assert.Equal(t, "one", rest.Messages[0].Message)
	assert.Empty(t, rest.NextCursor)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/chats/7?cursor=%21%21", "u1", nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/chats/abc", "u1", nil))
}

func TestCanvasEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	first, err := f.canvas.AppendCanvasOp(ctx, 7, "u1", domain.OpDraw, json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)
	_, err = f.canvas.AppendCanvasOp(ctx, 7, "u2", domain.OpDraw, json.RawMessage(`{"id":"b"}`))
	require.NoError(t, err)
	_, err = f.canvas.AppendCanvasOp(ctx, 7, "u2", domain.OpErase, json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)

	var ops CanvasOpsResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/canvas/7", "u1", &ops))
	require.Len(t, ops.Ops, 3)
	assert.Equal(t, first.ID, ops.Ops[0].ID)
	assert.Equal(t, "Alice", ops.Ops[0].UserName)
	assert.Empty(t, ops.Ops[1].UserName, "unknown author")
	assert.Equal(t, domain.OpErase, ops.Ops[2].Type)

	var state CanvasStateResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/canvas/7/state", "u1", &state))
	require.Len(t, state.Shapes, 1)
	assert.JSONEq(t, `{"id":"b"}`, string(state.Shapes[0].Data))
	assert.Equal(t, ops.Ops[2].ID, state.LastOpID)
}

func TestAdminOnlyDeletes(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	op, err := f.canvas.AppendCanvasOp(ctx, 7, "u1", domain.OpDraw, json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)
	_, err = f.chat.AppendChat(ctx, 7, "u1", "hi")
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/canvas/7", "u1", nil))
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/chats/7", "u1", nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/chats/8", "admin", nil))

	path := "/canvas/7/" + strconv.FormatInt(op.ID, 10)
	var del DeletedResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, path, "admin", &del))
	assert.EqualValues(t, 1, del.Deleted)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, "admin", nil))

	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/chats/7", "admin", &del))
	assert.EqualValues(t, 1, del.Deleted)
	assert.Empty(t, f.chat.ListRecentChats(ctx, 7, 0))
}

func TestPostChat(t *testing.T) {
	f := newAPIFixture(t)

	var item ChatMessageItem
	require.Equal(t, http.StatusCreated, f.doBody(t, http.MethodPost, "/chats/7", "u1", `{"message":" hi there "}`, &item))
	assert.NotZero(t, item.ID)
	assert.Equal(t, " hi there ", item.Message)
	assert.Equal(t, domain.UserID("u1"), item.UserID)
	assert.Equal(t, "Alice", item.UserName)
	assert.Equal(t, domain.RoomID(7), item.RoomID)

	msgs := f.chat.ListRecentChats(context.Background(), 7, 0)
	require.Len(t, msgs, 1)
	assert.Equal(t, item.ID, msgs[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/chats/7", "u1", `{"message":"   "}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/chats/7", "u1", `{"message":"x\u0000"}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/chats/7", "u1", `not json`, nil))
	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/chats/3000000000", "u1", `{"message":"hi"}`, nil))
	assert.Equal(t, http.StatusUnauthorized, f.doBody(t, http.MethodPost, "/chats/7", "", `{"message":"hi"}`, nil))
}

func TestPostCanvasOp_IDUsableForErase(t *testing.T) {
	f := newAPIFixture(t)

	var drawn CanvasOpItem
	require.Equal(t, http.StatusCreated,
		f.doBody(t, http.MethodPost, "/canvas/7", "u1", `{"type":"draw","data":{"type":"rect","x":1}}`, &drawn))
	assert.NotZero(t, drawn.ID)
	assert.Equal(t, domain.OpDraw, drawn.Type)
	assert.Equal(t, "Alice", drawn.UserName)
	assert.JSONEq(t, `{"type":"rect","x":1}`, string(drawn.Data))

	var state CanvasStateResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/canvas/7/state", "u1", &state))
	require.Len(t, state.Shapes, 1)

	// автор стирает фигуру по id строки, полученному из ответа
	erase := `{"type":"erase","data":{"dbId":` + strconv.FormatInt(drawn.ID, 10) + `}}`
	require.Equal(t, http.StatusCreated, f.doBody(t, http.MethodPost, "/canvas/7", "u1", erase, nil))
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/canvas/7/state", "u1", &state))
	assert.Empty(t, state.Shapes)

	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/canvas/7", "u1", `{"type":"paint","data":{}}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/canvas/7", "u1", `{"type":"draw"}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.doBody(t, http.MethodPost, "/canvas/7", "u1", `{"type":"draw","data":null}`, nil))
}
