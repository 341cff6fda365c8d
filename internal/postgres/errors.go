package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/board-service/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	// класс 22 — data exception: 22003 числа вне диапазона, 22021 \x00 в TEXT, 22P05 в JSONB
	pgDataExceptionClass = "22"
)

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrAlreadyExists
		case pgForeignKeyViolation:
			// *_user_id_fkey — автора нет в users, иначе комната удалена или не существовала
			if strings.Contains(pgErr.ConstraintName, "user_id") {
				return domain.ErrUserNotFound
			}
			return domain.ErrRoomNotFound
		case pgCheckViolation:
			if strings.Contains(pgErr.ConstraintName, "kind") {
				return domain.ErrInvalidOpKind
			}
			return domain.ErrEmptyMessage
		}
		if strings.HasPrefix(pgErr.Code, pgDataExceptionClass) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidData, pgErr.Code)
		}
	}

	return err
}
