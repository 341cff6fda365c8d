package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrOpNotFound     = errors.New("canvas operation not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrNotRoomAdmin   = errors.New("user is not the room admin")
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
	ErrInvalidText    = errors.New("message contains NUL byte")
	ErrInvalidOpKind  = errors.New("invalid canvas operation kind")
	ErrEmptyPayload   = errors.New("empty canvas payload")

	// ErrInvalidData — БД отвергла значение (класс SQLSTATE 22): виноваты входные данные, не хранилище.
	ErrInvalidData = errors.New("invalid data")
)
