package http

import (
	"encoding/json"
	"time"

	"github.com/cwrk-planet/board-service/internal/domain"
)

type RoomItem struct {
	ID        domain.RoomID `json:"id"`
	Slug      string        `json:"slug"`
	AdminID   domain.UserID `json:"adminId"`
	CreatedAt time.Time     `json:"createdAt"`
}

type ChatMessageItem struct {
	ID        int64         `json:"id"`
	RoomID    domain.RoomID `json:"roomId"`
	UserID    domain.UserID `json:"userId"`
	UserName  string        `json:"userName"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// PostChatRequest — POST /chats/{roomId}
type PostChatRequest struct {
	Message string `json:"message"`
}

// PostCanvasRequest — POST /canvas/{roomId}; data хранится как есть.
type PostCanvasRequest struct {
	Type domain.OpKind   `json:"type"`
	Data json.RawMessage `json:"data"`
}

type ChatHistoryResponse struct {
	Messages   []ChatMessageItem `json:"messages"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type CanvasOpItem struct {
	ID        int64           `json:"id"`
	RoomID    domain.RoomID   `json:"roomId"`
	UserID    domain.UserID   `json:"userId"`
	UserName  string          `json:"userName"`
	Type      domain.OpKind   `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

type CanvasOpsResponse struct {
	Ops []CanvasOpItem `json:"ops"`
}

type CanvasStateResponse struct {
	Shapes   []domain.Shape `json:"shapes"`
	LastOpID int64          `json:"lastOpId"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

func toRoomItem(r *domain.Room) RoomItem {
	return RoomItem{ID: r.ID, Slug: r.Slug, AdminID: r.AdminID, CreatedAt: r.CreatedAt}
}

func toChatItem(m domain.ChatMessage) ChatMessageItem {
	return ChatMessageItem{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Message:   m.Text,
		CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
	}
}

func toCanvasOpItem(op domain.CanvasOp) CanvasOpItem {
	return CanvasOpItem{
		ID:        op.ID,
		RoomID:    op.RoomID,
		UserID:    op.UserID,
		UserName:  op.UserName,
		Type:      op.Kind,
		Data:      op.Data,
		CreatedAt: op.CreatedAt.Truncate(time.Millisecond),
	}
}
