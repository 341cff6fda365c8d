package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return r.getOne(ctx, queryGetRoomByID, int64(id))
}

func (r *RoomRepository) GetBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	return r.getOne(ctx, queryGetRoomBySlug, slug)
}

func (r *RoomRepository) getOne(ctx context.Context, query string, arg any) (*domain.Room, error) {
	var (
		rm      domain.Room
		id      int64
		adminID string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &rm.Slug, &adminID, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	rm.ID = domain.RoomID(id)
	rm.AdminID = domain.UserID(adminID)

	return &rm, nil
}
