package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse — тело любой ошибки API.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

func OK(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, v)
}

// Error — {"error": msg} с request id, если он есть в контексте.
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	reqID, _ := FromContext(ctx)
	JSON(w, status, ErrorResponse{Error: msg, RequestID: reqID})
}
