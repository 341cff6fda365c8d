package ws

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrQueueFull  = errors.New("ws: send queue full")
	ErrConnClosed = errors.New("ws: connection closed")
)

// Conn — то, что видят Registry и Hub. Send не блокируется.
type Conn interface {
	ID() string
	UserID() domain.UserID
	Send(payload []byte) error
	Close() error
}

// ConnState — CONNECTING -> AUTHENTICATED -> CLOSED
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type wsConn struct {
	id     string
	userID domain.UserID
	conn   *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

// newWsConn — соединение сразу после upgrade, ещё в состоянии CONNECTING.
func newWsConn(c *websocket.Conn, buffer int) *wsConn {
	if buffer <= 0 {
		buffer = 64
	}
	return &wsConn{
		id:     uuid.NewString(),
		conn:   c,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

// authenticate переводит CONNECTING -> AUTHENTICATED. Вызывается до Register и writePump.
func (c *wsConn) authenticate(userID domain.UserID) bool {
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated)) {
		return false
	}
	c.userID = userID
	return true
}

func (c *wsConn) ID() string            { return c.id }
func (c *wsConn) UserID() domain.UserID { return c.userID }
func (c *wsConn) State() ConnState      { return ConnState(c.state.Load()) }

// Send кладёт кадр в очередь write pump; медленный клиент получает ErrQueueFull.
// До аутентификации и после закрытия кадры не принимаются.
func (c *wsConn) Send(payload []byte) error {
	if c.State() != StateAuthenticated {
		return ErrConnClosed
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.closed)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// closeWith шлёт close-кадр с кодом и закрывает соединение. Повторный вызов ничего не делает.
func (c *wsConn) closeWith(code int, reason string, writeWait time.Duration) {
	if c.State() == StateClosed {
		return
	}
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	}
	_ = c.Close()
}

// writePump — единственный писатель в сокет: кадры из очереди и ping.
func (c *wsConn) writePump(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "user", c.userID, slog.Any("err", err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("ws ping failed", "conn", c.id, "user", c.userID, slog.Any("err", err))
				return
			}
		case <-c.closed:
			return
		}
	}
}
