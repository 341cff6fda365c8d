package domain

import (
	"strings"
	"time"
)

type ChatMessage struct {
	ID        int64     `db:"id"`
	RoomID    RoomID    `db:"room_id"`
	UserID    UserID    `db:"user_id"`
	Text      string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`

	// UserName заполняется только при чтении истории (JOIN users).
	UserName string `db:"user_name"`
}

// IsBlankText — сообщение без единого непробельного символа не сохраняем.
func IsBlankText(text string) bool {
	return strings.TrimSpace(text) == ""
}

// HasNUL — TEXT в Postgres не хранит \x00.
func HasNUL(text string) bool {
	return strings.IndexByte(text, 0) >= 0
}
