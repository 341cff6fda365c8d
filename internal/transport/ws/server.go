package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"
	"github.com/cwrk-planet/board-service/internal/security"
	"github.com/cwrk-planet/board-service/pkg/logger"

	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(token string) (domain.UserID, error)
}

type Config struct {
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBuffer     int
	AllowedOrigins []string // пусто — любой Origin
}

func (c *Config) setDefaults() {
	if c.PingPeriod <= 0 {
		c.PingPeriod = 15 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 20
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
}

type Server struct {
	upgrader websocket.Upgrader
	auth     Authenticator
	registry *Registry
	router   *Router
	cfg      Config
}

func NewServer(cfg Config, auth Authenticator, registry *Registry, router *Router) *Server {
	cfg.setDefaults()
	return &Server{
		auth:     auth,
		registry: registry,
		router:   router,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// WS endpoint: GET /ws?token=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, authErr := s.auth.Authenticate(r.URL.Query().Get("token"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	c := newWsConn(conn, s.cfg.SendBuffer)

	// неаутентифицированное соединение сразу закрываем, в реестр оно не попадает
	if authErr != nil || !c.authenticate(userID) {
		metrics.AuthFailures.WithLabelValues(authReason(authErr)).Inc()
		slog.Info("ws auth rejected", "remote", r.RemoteAddr, "conn", c.id, slog.Any("err", authErr))
		c.closeWith(websocket.ClosePolicyViolation, "unauthorized", s.cfg.WriteWait)
		return
	}

	s.registry.Register(c, userID)
	slog.Debug("ws connected", logger.Conn(c.id, string(userID))...)

	go c.writePump(s.cfg.PingPeriod, s.cfg.WriteWait)
	s.readLoop(context.WithoutCancel(r.Context()), c)

	s.registry.Unregister(c)
	_ = c.Close()
	slog.Debug("ws disconnected", logger.Conn(c.id, string(userID))...)
}

// readLoop обрабатывает кадры строго по одному: порядок приёма = порядок записи = порядок рассылки.
func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingPeriod))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read failed", append(logger.Conn(c.id, string(c.userID)), slog.Any("err", err))...)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingPeriod))
		if msgType != websocket.TextMessage {
			continue
		}
		_ = s.router.Handle(ctx, c, data)
	}
}

// Shutdown закрывает все живые соединения с кодом going away.
func (s *Server) Shutdown() {
	for _, c := range s.registry.Conns() {
		if wc, ok := c.(*wsConn); ok {
			wc.closeWith(websocket.CloseGoingAway, "server shutdown", s.cfg.WriteWait)
			continue
		}
		_ = c.Close()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

func authReason(err error) string {
	switch {
	case errors.Is(err, security.ErrMissingToken):
		return "missing"
	case errors.Is(err, security.ErrTokenExpired):
		return "expired"
	case errors.Is(err, security.ErrInvalidSubject):
		return "no_subject"
	case errors.Is(err, security.ErrInvalidIssuer):
		return "issuer"
	default:
		return "invalid"
	}
}
