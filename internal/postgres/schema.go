package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Схема общая с HTTP-слоем: он читает те же строки, что пишет ws-ядро.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		password   TEXT NOT NULL,
		name       TEXT NOT NULL,
		photo      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         SERIAL PRIMARY KEY,
		slug       TEXT NOT NULL UNIQUE,
		admin_id   TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id         BIGSERIAL PRIMARY KEY,
		room_id    INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL REFERENCES users(id),
		message    TEXT NOT NULL CHECK (length(btrim(message)) > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS chats_room_id_id_idx ON chats (room_id, id DESC)`,
	// журнал холста: строки только добавляются, порядок проигрывания = id
	`CREATE TABLE IF NOT EXISTS canvas_ops (
		id         BIGSERIAL PRIMARY KEY,
		room_id    INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL REFERENCES users(id),
		kind       TEXT NOT NULL CHECK (kind IN ('draw', 'erase', 'clear')),
		data       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS canvas_ops_room_id_id_idx ON canvas_ops (room_id, id)`,
}

// Migrate создаёт таблицы, если их ещё нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
