package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/metrics"
)

type ChatGateway interface {
	AppendChat(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error)
}

type CanvasGateway interface {
	AppendCanvasOp(ctx context.Context, roomID domain.RoomID, userID domain.UserID, kind domain.OpKind, payload json.RawMessage) (*domain.CanvasOp, error)
}

type UserDirectory interface {
	DisplayName(ctx context.Context, userID domain.UserID) string
}

// Router — диспетчер входящих кадров одного соединения.
// Ни одна ошибка не уходит клиенту: кадр просто не имеет эффекта.
type Router struct {
	registry *Registry
	hub      *Hub
	chats    ChatGateway
	canvas   CanvasGateway
	users    UserDirectory
}

func NewRouter(registry *Registry, hub *Hub, chats ChatGateway, canvas CanvasGateway, users UserDirectory) *Router {
	return &Router{
		registry: registry,
		hub:      hub,
		chats:    chats,
		canvas:   canvas,
		users:    users,
	}
}

// Handle обрабатывает один кадр. Запись в хранилище завершается до рассылки.
// Возвращённая ошибка уже залогирована и посчитана.
func (r *Router) Handle(ctx context.Context, c Conn, raw []byte) error {
	start := time.Now()

	f, err := ParseFrame(raw)
	if err != nil {
		metrics.Frames.WithLabelValues("invalid", "dropped").Inc()
		slog.Debug("ws: frame dropped", "conn", c.ID(), "user", c.UserID(), slog.Any("err", err))
		return err
	}

	switch {
	case f.Type == TypeJoinRoom:
		r.registry.Join(c, f.RoomID)
	case f.Type == TypeLeaveRoom:
		r.registry.Leave(c, f.RoomID)
	case f.Type == TypeChat:
		err = r.handleChat(ctx, c, f)
	case f.Type.IsCanvas():
		err = r.handleCanvas(ctx, c, f)
	}

	metrics.FrameDuration.WithLabelValues(string(f.Type)).Observe(time.Since(start).Seconds())
	metrics.Frames.WithLabelValues(string(f.Type), frameResult(err)).Inc()
	if err != nil {
		level := slog.LevelDebug
		if !isClientErr(err) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "ws: frame not applied",
			"type", f.Type, "room", f.RoomID, "conn", c.ID(), "user", c.UserID(), slog.Any("err", err))
	}
	return err
}

func (r *Router) handleChat(ctx context.Context, c Conn, f Frame) error {
	msg, err := r.chats.AppendChat(ctx, f.RoomID, c.UserID(), f.Message)
	if err != nil {
		return err
	}

	var name string
	if r.users != nil {
		name = r.users.DisplayName(ctx, c.UserID())
	}
	payload, err := json.Marshal(newChatOut(msg, name))
	if err != nil {
		return err
	}

	// автор тоже получает своё сообщение: это подтверждение с chatId
	r.hub.Broadcast(f.RoomID, payload, nil)
	return nil
}

func (r *Router) handleCanvas(ctx context.Context, c Conn, f Frame) error {
	op, err := r.canvas.AppendCanvasOp(ctx, f.RoomID, c.UserID(), domain.OpKind(f.Type), f.Data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(newCanvasOut(op))
	if err != nil {
		return err
	}

	r.hub.Broadcast(f.RoomID, payload, c)
	return nil
}

// isClientErr — ошибки во входных данных, а не в хранилище.
func isClientErr(err error) bool {
	return errors.Is(err, ErrProtocol) ||
		errors.Is(err, domain.ErrEmptyMessage) ||
		errors.Is(err, domain.ErrMessageTooLong) ||
		errors.Is(err, domain.ErrInvalidText) ||
		errors.Is(err, domain.ErrInvalidData) ||
		errors.Is(err, domain.ErrEmptyPayload) ||
		errors.Is(err, domain.ErrInvalidOpKind) ||
		errors.Is(err, domain.ErrRoomNotFound) ||
		errors.Is(err, domain.ErrUserNotFound)
}

func frameResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isClientErr(err):
		return "dropped"
	default:
		return "storage_error"
	}
}
