package httpmw

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type AdminChecker interface {
	RequireAdmin(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Room, error)
}

// RequireRoomAdmin пропускает запрос, только если пользователь — админ комнаты {roomId}.
func RequireRoomAdmin(rooms AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roomID, err := domain.ParseRoomID(chi.URLParam(r, "roomId"))
			if err != nil {
				httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid room id")
				return
			}
			userID := UserIDFromCtx(r.Context())
			if userID == "" {
				httputil.Error(r.Context(), w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if _, err := rooms.RequireAdmin(r.Context(), roomID, userID); err != nil {
				switch {
				case errors.Is(err, domain.ErrNotRoomAdmin):
					httputil.Error(r.Context(), w, http.StatusForbidden, "only the room admin can do this")
				case errors.Is(err, domain.ErrRoomNotFound):
					httputil.Error(r.Context(), w, http.StatusNotFound, "room not found")
				default:
					slog.Error("httpmw.RequireRoomAdmin:", slog.Any("err", err))
					httputil.Error(r.Context(), w, http.StatusServiceUnavailable, "service unavailable")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
