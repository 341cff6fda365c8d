package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cwrk-planet/board-service/internal/domain"
)

type RoomStore interface {
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Room, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type RoomService struct {
	rooms RoomStore
	users UserStore
}

func NewRoomService(rooms RoomStore, users UserStore) *RoomService {
	return &RoomService{rooms: rooms, users: users}
}

// GetRoom возвращает комнату по ID.
func (s *RoomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, storageErr("room.get", err)
	}
	return room, nil
}

// GetRoomBySlug — поиск по коду комнаты (join by code).
func (s *RoomService) GetRoomBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	room, err := s.rooms.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, storageErr("room.getBySlug", err)
	}
	return room, nil
}

// RequireAdmin — разрешение на уничтожение данных комнаты есть только у её админа.
func (s *RoomService) RequireAdmin(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsAdmin(userID) {
		return nil, domain.ErrNotRoomAdmin
	}
	return room, nil
}

// DisplayName — имя для исходящих chat-кадров; best-effort, пустая строка при сбое.
func (s *RoomService) DisplayName(ctx context.Context, userID domain.UserID) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		slog.Debug("user lookup failed", "user", userID, slog.Any("err", err))
		return ""
	}
	return u.Name
}
