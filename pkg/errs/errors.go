package errs

import (
	"errors"
	"net/http"
)

// Категории ошибок транспортного уровня. Доменные ошибки сводятся к ним
// в обработчиках, а ToHTTP даёт код ответа.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	ErrUnavailable = errors.New("service unavailable")
)

func ToHTTP(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Public — текст, который можно отдать клиенту: для 5xx детали скрываются.
func Public(err error) string {
	status := ToHTTP(err)
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
