package httpmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/pkg/httputil"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

type TokenAuthenticator interface {
	Authenticate(token string) (domain.UserID, error)
}

var errMissingBearer = errors.New("missing bearer token")

// Auth проверяет Bearer-токен тем же секретом, что и WS, и кладёт userId в контекст.
func Auth(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				httputil.Error(r.Context(), w, http.StatusUnauthorized, err.Error())
				return
			}
			userID, err := auth.Authenticate(token)
			if err != nil {
				httputil.Error(r.Context(), w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if len(h) <= 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", errMissingBearer
	}
	token := strings.TrimSpace(h[7:])
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

func WithUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, id)
}

func UserIDFromCtx(ctx context.Context) domain.UserID {
	if id, ok := ctx.Value(ctxKeyUserID).(domain.UserID); ok {
		return id
	}
	return ""
}
