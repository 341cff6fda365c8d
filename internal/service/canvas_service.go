package service

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cwrk-planet/board-service/internal/domain"
)

type CanvasStore interface {
	Append(ctx context.Context, op *domain.CanvasOp) error
	List(ctx context.Context, roomID domain.RoomID) ([]domain.CanvasOp, error)
	Delete(ctx context.Context, roomID domain.RoomID, opID int64) error
	DeleteByRoom(ctx context.Context, roomID domain.RoomID) (int64, error)
}

type CanvasService struct {
	store   CanvasStore
	breaker *Breaker
}

func NewCanvasService(store CanvasStore, breaker *Breaker) *CanvasService {
	return &CanvasService{store: store, breaker: breaker}
}

// AppendCanvasOp пишет новую строку журнала; erase и clear — тоже вставки.
func (s *CanvasService) AppendCanvasOp(ctx context.Context, roomID domain.RoomID, userID domain.UserID, kind domain.OpKind, payload json.RawMessage) (*domain.CanvasOp, error) {
	if _, err := domain.ParseOpKind(string(kind)); err != nil {
		return nil, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) || !json.Valid(payload) {
		return nil, domain.ErrEmptyPayload
	}

	op := &domain.CanvasOp{
		RoomID: roomID,
		UserID: userID,
		Kind:   kind,
		Data:   payload,
	}
	if err := s.breaker.Do("canvas.append", func() error {
		return s.store.Append(ctx, op)
	}); err != nil {
		return nil, err
	}
	return op, nil
}

// ListCanvasOps — журнал в порядке создания, для проигрывания опоздавшими клиентами.
func (s *CanvasService) ListCanvasOps(ctx context.Context, roomID domain.RoomID) ([]domain.CanvasOp, error) {
	ops, err := s.store.List(ctx, roomID)
	if err != nil {
		return nil, storageErr("canvas.list", err)
	}
	if ops == nil {
		ops = []domain.CanvasOp{}
	}
	return ops, nil
}

// CanvasState — материализованное представление: журнал, проигранный по порядку.
func (s *CanvasService) CanvasState(ctx context.Context, roomID domain.RoomID) ([]domain.Shape, int64, error) {
	ops, err := s.ListCanvasOps(ctx, roomID)
	if err != nil {
		return nil, 0, err
	}
	c := domain.NewCanvas()
	for _, op := range ops {
		c.Apply(op)
	}
	return c.Shapes(), c.LastOpID(), nil
}

func (s *CanvasService) DeleteCanvasOp(ctx context.Context, roomID domain.RoomID, opID int64) error {
	return s.breaker.Do("canvas.delete", func() error {
		return s.store.Delete(ctx, roomID, opID)
	})
}

func (s *CanvasService) ClearCanvasOps(ctx context.Context, roomID domain.RoomID) (int64, error) {
	var n int64
	err := s.breaker.Do("canvas.clear", func() error {
		var err error
		n, err = s.store.DeleteByRoom(ctx, roomID)
		return err
	})
	return n, err
}
