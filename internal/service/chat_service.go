package service

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/cwrk-planet/board-service/internal/domain"
)

const (
	DefaultChatMaxLen       = 4000
	DefaultRecentChatsLimit = 50
	MaxRecentChatsLimit     = 100
)

type ChatStore interface {
	Save(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error)
	Recent(ctx context.Context, roomID domain.RoomID, limit int, before int64) ([]domain.ChatMessage, error)
	DeleteByRoom(ctx context.Context, roomID domain.RoomID) (int64, error)
}

type ChatService struct {
	store   ChatStore
	breaker *Breaker
	maxLen  int
}

func NewChatService(store ChatStore, breaker *Breaker, maxLen int) *ChatService {
	if maxLen <= 0 {
		maxLen = DefaultChatMaxLen
	}
	return &ChatService{store: store, breaker: breaker, maxLen: maxLen}
}

// AppendChat сохраняет сообщение как есть (без trim), пустые и слишком длинные отклоняются.
func (s *ChatService) AppendChat(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	if domain.IsBlankText(text) {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.maxLen {
		return nil, domain.ErrMessageTooLong
	}
	if domain.HasNUL(text) {
		return nil, domain.ErrInvalidText
	}

	var msg *domain.ChatMessage
	err := s.breaker.Do("chat.append", func() error {
		m, err := s.store.Save(ctx, roomID, userID, text)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListRecentChats никогда не возвращает ошибку наружу: при сбое — пустой список и лог.
func (s *ChatService) ListRecentChats(ctx context.Context, roomID domain.RoomID, limit int) []domain.ChatMessage {
	msgs, _, err := s.History(ctx, roomID, limit, 0)
	if err != nil {
		slog.Warn("chat.listRecent failed", "room", roomID, slog.Any("err", err))
		return []domain.ChatMessage{}
	}
	return msgs
}

// History — страница истории (новые первыми) и курсор следующей страницы (0 — конец).
func (s *ChatService) History(ctx context.Context, roomID domain.RoomID, limit int, before int64) ([]domain.ChatMessage, int64, error) {
	limit = clampLimit(limit)

	msgs, err := s.store.Recent(ctx, roomID, limit, before)
	if err != nil {
		return nil, 0, storageErr("chat.list", err)
	}
	var next int64
	if len(msgs) == limit {
		next = msgs[len(msgs)-1].ID
	}
	return msgs, next, nil
}

// ClearChats — привилегированная операция, вызывается только после проверки админа.
func (s *ChatService) ClearChats(ctx context.Context, roomID domain.RoomID) (int64, error) {
	var n int64
	err := s.breaker.Do("chat.clear", func() error {
		var err error
		n, err = s.store.DeleteByRoom(ctx, roomID)
		return err
	})
	return n, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentChatsLimit
	}
	if limit > MaxRecentChatsLimit {
		return MaxRecentChatsLimit
	}
	return limit
}
