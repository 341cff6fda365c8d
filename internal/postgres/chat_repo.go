package postgres

import (
	"context"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, roomID domain.RoomID, userID domain.UserID, text string) (*domain.ChatMessage, error) {
	m := domain.ChatMessage{
		RoomID: roomID,
		UserID: userID,
		Text:   text,
	}
	if err := r.db.QueryRow(ctx, queryInsertChat, int64(roomID), string(userID), text).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, mapPgError(err)
	}
	return &m, nil
}

// Recent возвращает последние limit сообщений комнаты, новые первыми.
// before — курсор (id), 0 — с самого нового.
func (r *ChatRepository) Recent(ctx context.Context, roomID domain.RoomID, limit int, before int64) ([]domain.ChatMessage, error) {
	var cursor any
	if before > 0 {
		cursor = before
	}

	rows, err := r.db.Query(ctx, queryListChats, int64(roomID), limit, cursor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m      domain.ChatMessage
			room   int64
			userID string
		)
		if err := rows.Scan(&m.ID, &room, &userID, &m.Text, &m.CreatedAt, &m.UserName); err != nil {
			return nil, err
		}
		m.RoomID = domain.RoomID(room)
		m.UserID = domain.UserID(userID)
		out = append(out, m)
	}

	return out, rows.Err()
}

func (r *ChatRepository) DeleteByRoom(ctx context.Context, roomID domain.RoomID) (int64, error) {
	tag, err := r.db.Exec(ctx, queryDeleteChatsByRoom, int64(roomID))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
