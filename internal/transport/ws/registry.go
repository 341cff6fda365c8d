package ws

import (
	"sync"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"
)

type entry struct {
	user  domain.UserID
	rooms map[domain.RoomID]struct{}
}

// Registry — живые соединения и их комнаты. Один RWMutex покрывает и
// conn -> rooms, и индекс room -> conns, поэтому join/leave/unregister атомарны.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]*entry
	rooms map[domain.RoomID]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[Conn]*entry),
		rooms: make(map[domain.RoomID]map[Conn]struct{}),
	}
}

// Register добавляет соединение с пустым набором комнат.
func (r *Registry) Register(c Conn, user domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return
	}
	r.conns[c] = &entry{user: user, rooms: make(map[domain.RoomID]struct{})}
	metrics.ConnectionsActive.Inc()
}

// Join не проверяет существование комнаты: вход по коду открыт всем.
func (r *Registry) Join(c Conn, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[c]
	if !ok {
		return false
	}
	e.rooms[roomID] = struct{}{}

	rs, ok := r.rooms[roomID]
	if !ok {
		rs = make(map[Conn]struct{})
		r.rooms[roomID] = rs
	}
	rs[c] = struct{}{}
	return true
}

// Leave комнаты, в которой соединение не состоит, — no-op.
func (r *Registry) Leave(c Conn, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[c]
	if !ok {
		return false
	}
	if _, ok := e.rooms[roomID]; !ok {
		return false
	}
	delete(e.rooms, roomID)
	r.dropFromRoom(c, roomID)
	return true
}

// MembersOf — снимок участников на момент вызова.
func (r *Registry) MembersOf(roomID domain.RoomID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs := r.rooms[roomID]
	out := make([]Conn, 0, len(rs))
	for c := range rs {
		out = append(out, c)
	}
	return out
}

func (r *Registry) RoomsOf(c Conn) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[c]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.rooms))
	for id := range e.rooms {
		out = append(out, id)
	}
	return out
}

func (r *Registry) UserOf(c Conn) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[c]
	if !ok {
		return "", false
	}
	return e.user, true
}

// Unregister убирает соединение из всех комнат сразу.
func (r *Registry) Unregister(c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[c]
	if !ok {
		return false
	}
	for roomID := range e.rooms {
		r.dropFromRoom(c, roomID)
	}
	delete(r.conns, c)
	metrics.ConnectionsActive.Dec()
	return true
}

// Conns — снимок всех соединений (для остановки сервера).
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) dropFromRoom(c Conn, roomID domain.RoomID) {
	if rs, ok := r.rooms[roomID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
