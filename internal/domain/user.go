package domain

import "time"

// UserID — стабильный идентификатор пользователя из claim userId.
type UserID string

func (id UserID) String() string { return string(id) }

type User struct {
	ID        UserID    `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	Photo     *string   `db:"photo"`
	CreatedAt time.Time `db:"created_at"`
}
