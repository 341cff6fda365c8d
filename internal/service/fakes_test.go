package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
)

var errDown = errors.New("connection refused")

type memChats struct {
	mu   sync.Mutex
	rows []domain.ChatMessage
	err  error
}

func (m *memChats) Save(_ context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	msg := domain.ChatMessage{
		ID:        int64(len(m.rows) + 1),
		RoomID:    roomID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	m.rows = append(m.rows, msg)
	return &msg, nil
}

func (m *memChats) Recent(_ context.Context, roomID domain.RoomID, limit int, before int64) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.ChatMessage{}
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.rows[i]
		if r.RoomID != roomID || (before > 0 && r.ID >= before) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memChats) DeleteByRoom(_ context.Context, roomID domain.RoomID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if r.RoomID == roomID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

type memCanvas struct {
	mu   sync.Mutex
	ops  []domain.CanvasOp
	next int64
	err  error
}

func (m *memCanvas) Append(_ context.Context, op *domain.CanvasOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.next++
	op.ID = m.next
	op.CreatedAt = time.Now()
	m.ops = append(m.ops, *op)
	return nil
}

func (m *memCanvas) List(_ context.Context, roomID domain.RoomID) ([]domain.CanvasOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CanvasOp
	for _, op := range m.ops {
		if op.RoomID == roomID {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *memCanvas) Delete(_ context.Context, roomID domain.RoomID, opID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, op := range m.ops {
		if op.RoomID == roomID && op.ID == opID {
			m.ops = append(m.ops[:i], m.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrOpNotFound
}

func (m *memCanvas) DeleteByRoom(_ context.Context, roomID domain.RoomID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.ops[:0]
	var n int64
	for _, op := range m.ops {
		if op.RoomID == roomID {
			n++
			continue
		}
		kept = append(kept, op)
	}
	m.ops = kept
	return n, nil
}

type memRooms struct {
	rooms map[domain.RoomID]domain.Room
	err   error
}

func (m *memRooms) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &r, nil
}

func (m *memRooms) GetBySlug(_ context.Context, slug string) (*domain.Room, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.rooms {
		if r.Slug == slug {
			return &r, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

type memUsers map[domain.UserID]domain.User

func (m memUsers) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
