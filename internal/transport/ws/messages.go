package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
)

// ErrProtocol — кадр не разобран; кадр отбрасывается, соединение живёт.
var ErrProtocol = errors.New("protocol error")

type FrameType string

// Типы кадров, которые клиент шлёт в WS
const (
	TypeJoinRoom  FrameType = "join_room"
	TypeLeaveRoom FrameType = "leave_room"
	TypeChat      FrameType = "chat"
	TypeDraw      FrameType = "draw"
	TypeErase     FrameType = "erase"
	TypeClear     FrameType = "clear"
)

// IsCanvas — draw/erase/clear, пишутся в журнал холста.
func (t FrameType) IsCanvas() bool {
	return t == TypeDraw || t == TypeErase || t == TypeClear
}

// Frame — разобранный входящий кадр. Заполнены только поля, нужные его типу.
type Frame struct {
	Type    FrameType
	RoomID  domain.RoomID
	Message string          // chat
	Data    json.RawMessage // draw|erase|clear
}

type inboundFrame struct {
	Type    string          `json:"type"`
	RoomID  *domain.RoomID  `json:"roomId"`
	Room    *domain.RoomID  `json:"room"`
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// ParseFrame разбирает кадр как tagged union; всё, что вне известных типов, — ErrProtocol.
func ParseFrame(raw []byte) (Frame, error) {
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	f := Frame{Type: FrameType(in.Type)}
	switch f.Type {
	case TypeJoinRoom:
		if in.RoomID == nil {
			return Frame{}, fmt.Errorf("%w: join_room without roomId", ErrProtocol)
		}
		f.RoomID = *in.RoomID

	case TypeLeaveRoom:
		// клиенты шлют room, но и roomId принимаем
		switch {
		case in.Room != nil:
			f.RoomID = *in.Room
		case in.RoomID != nil:
			f.RoomID = *in.RoomID
		default:
			return Frame{}, fmt.Errorf("%w: leave_room without room", ErrProtocol)
		}

	case TypeChat:
		if in.RoomID == nil {
			return Frame{}, fmt.Errorf("%w: chat without roomId", ErrProtocol)
		}
		if in.Message == nil || domain.IsBlankText(*in.Message) {
			return Frame{}, fmt.Errorf("%w: chat without message", ErrProtocol)
		}
		if domain.HasNUL(*in.Message) {
			return Frame{}, fmt.Errorf("%w: chat message contains NUL", ErrProtocol)
		}
		f.RoomID = *in.RoomID
		f.Message = *in.Message

	case TypeDraw, TypeErase, TypeClear:
		if in.RoomID == nil {
			return Frame{}, fmt.Errorf("%w: %s without roomId", ErrProtocol, f.Type)
		}
		data := bytes.TrimSpace(in.Data)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return Frame{}, fmt.Errorf("%w: %s without data", ErrProtocol, f.Type)
		}
		f.RoomID = *in.RoomID
		f.Data = data

	default:
		return Frame{}, fmt.Errorf("%w: unknown type %q", ErrProtocol, in.Type)
	}

	return f, nil
}

// ChatOut — рассылается всем участникам комнаты, включая автора.
type ChatOut struct {
	Type      FrameType     `json:"type"`
	Message   string        `json:"message"`
	RoomID    domain.RoomID `json:"roomId"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	ChatID    int64         `json:"chatId"`
	CreatedAt time.Time     `json:"createdAt"`
}

// CanvasOut — рассылается всем, кроме автора.
type CanvasOut struct {
	Type   FrameType       `json:"type"`
	Data   json.RawMessage `json:"data"`
	RoomID domain.RoomID   `json:"roomId"`
	UserID domain.UserID   `json:"userId"`
}

func newChatOut(msg *domain.ChatMessage, userName string) ChatOut {
	return ChatOut{
		Type:      TypeChat,
		Message:   msg.Text,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		UserName:  userName,
		ChatID:    msg.ID,
		CreatedAt: msg.CreatedAt,
	}
}

func newCanvasOut(op *domain.CanvasOp) CanvasOut {
	return CanvasOut{
		Type:   FrameType(op.Kind),
		Data:   op.Data,
		RoomID: op.RoomID,
		UserID: op.UserID,
	}
}
