package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
)

// fakeConn складывает отправленные кадры в память.
type fakeConn struct {
	id   string
	user domain.UserID

	mu     sync.Mutex
	frames [][]byte
	err    error
	closed bool
}

func newFakeConn(id string, user domain.UserID) *fakeConn {
	return &fakeConn{id: id, user: user}
}

func (c *fakeConn) ID() string            { return c.id }
func (c *fakeConn) UserID() domain.UserID { return c.user }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, payload)
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.frames...)
}

type fakeChats struct {
	mu   sync.Mutex
	rows []domain.ChatMessage
	err  error
}

func (f *fakeChats) AppendChat(_ context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	msg := domain.ChatMessage{
		ID:        int64(len(f.rows) + 100),
		RoomID:    roomID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.rows = append(f.rows, msg)
	return &msg, nil
}

func (f *fakeChats) saved() []domain.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChatMessage(nil), f.rows...)
}

type fakeCanvas struct {
	mu  sync.Mutex
	ops []domain.CanvasOp
	err error
}

func (f *fakeCanvas) AppendCanvasOp(_ context.Context, roomID domain.RoomID, userID domain.UserID, kind domain.OpKind, payload json.RawMessage) (*domain.CanvasOp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	op := domain.CanvasOp{
		ID:     int64(len(f.ops) + 1),
		RoomID: roomID,
		UserID: userID,
		Kind:   kind,
		Data:   payload,
	}
	f.ops = append(f.ops, op)
	return &op, nil
}

func (f *fakeCanvas) saved() []domain.CanvasOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CanvasOp(nil), f.ops...)
}

type fakeUsers map[domain.UserID]string

func (u fakeUsers) DisplayName(_ context.Context, id domain.UserID) string { return u[id] }

type fakeAuth struct{}

// токен "ok:<user>" валиден, остальное нет
func (fakeAuth) Authenticate(token string) (domain.UserID, error) {
	if len(token) > 3 && token[:3] == "ok:" {
		return domain.UserID(token[3:]), nil
	}
	return "", fmt.Errorf("bad token %q", token)
}

type fakeRelay struct {
	mu   sync.Mutex
	sent map[domain.RoomID][][]byte
	err  error
}

func (r *fakeRelay) Publish(roomID domain.RoomID, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.sent == nil {
		r.sent = make(map[domain.RoomID][][]byte)
	}
	r.sent[roomID] = append(r.sent[roomID], payload)
	return nil
}

var errStore = errors.New("storage error: db down")
