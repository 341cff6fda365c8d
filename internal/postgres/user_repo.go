package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository — только чтение профиля; регистрация живёт в auth-сервисе.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var (
		u   domain.User
		uid string
	)
	err := r.db.QueryRow(ctx, queryGetUserByID, string(id)).Scan(&uid, &u.Email, &u.Name, &u.Photo, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.ID = domain.UserID(uid)

	return &u, nil
}
