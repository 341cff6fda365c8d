package postgres

import (
	"context"
	"encoding/json"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CanvasRepository struct {
	db *pgxpool.Pool
}

func NewCanvasRepository(db *pgxpool.Pool) *CanvasRepository {
	return &CanvasRepository{db: db}
}

// Append добавляет строку журнала. erase/clear — тоже Append, не DELETE.
func (r *CanvasRepository) Append(ctx context.Context, op *domain.CanvasOp) error {
	err := r.db.QueryRow(ctx, queryInsertCanvasOp,
		int64(op.RoomID),
		string(op.UserID),
		string(op.Kind),
		string(op.Data),
	).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// List возвращает журнал комнаты в порядке вставки.
func (r *CanvasRepository) List(ctx context.Context, roomID domain.RoomID) ([]domain.CanvasOp, error) {
	rows, err := r.db.Query(ctx, queryListCanvasOps, int64(roomID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CanvasOp
	for rows.Next() {
		var (
			op     domain.CanvasOp
			room   int64
			userID string
			kind   string
			data   string
		)
		if err := rows.Scan(&op.ID, &room, &userID, &kind, &data, &op.CreatedAt, &op.UserName); err != nil {
			return nil, err
		}
		op.RoomID = domain.RoomID(room)
		op.UserID = domain.UserID(userID)
		op.Kind = domain.OpKind(kind)
		op.Data = json.RawMessage(data)
		out = append(out, op)
	}

	return out, rows.Err()
}

func (r *CanvasRepository) Delete(ctx context.Context, roomID domain.RoomID, opID int64) error {
	tag, err := r.db.Exec(ctx, queryDeleteCanvasOp, int64(roomID), opID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOpNotFound
	}
	return nil
}

func (r *CanvasRepository) DeleteByRoom(ctx context.Context, roomID domain.RoomID) (int64, error) {
	tag, err := r.db.Exec(ctx, queryDeleteCanvasOpsByRoom, int64(roomID))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
