package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cwrk-planet/board-service/internal/domain"
	"github.com/cwrk-planet/board-service/internal/postgres"
	"github.com/cwrk-planet/board-service/internal/service"
	httpmw "github.com/cwrk-planet/board-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/board-service/pkg/errs"
	"github.com/cwrk-planet/board-service/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	roomSvc   *service.RoomService
	chatSvc   *service.ChatService
	canvasSvc *service.CanvasService
}

func NewHandler(room *service.RoomService, chat *service.ChatService, canvas *service.CanvasService) *Handler {
	return &Handler{
		roomSvc:   room,
		chatSvc:   chat,
		canvasSvc: canvas,
	}
}

// GET /room/{slug}
func (h *Handler) GetRoomBySlug(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoomBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, "handler.GetRoomBySlug", err)
		return
	}

	httputil.OK(w, toRoomItem(room))
}

// GET /chats/{roomId}?limit=&cursor=
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	limit := service.DefaultRecentChatsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	var before int64
	if s := r.URL.Query().Get("cursor"); s != "" {
		cur, err := postgres.DecodeCursor(s)
		if err != nil {
			httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid_cursor")
			return
		}
		before = cur.BeforeID
	}

	msgs, next, err := h.chatSvc.History(r.Context(), roomID, limit, before)
	if err != nil {
		h.fail(w, r, "handler.GetChats", err)
		return
	}
	resp := ChatHistoryResponse{Messages: make([]ChatMessageItem, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toChatItem(m))
	}
	if next > 0 {
		if resp.NextCursor, err = postgres.EncodeCursor(postgres.Cursor{BeforeID: next}); err != nil {
			h.fail(w, r, "handler.GetChats.EncodeCursor", err)
			return
		}
	}

	httputil.OK(w, resp)
}

// POST /chats/{roomId} — сохраняет сообщение без рассылки, живой чат идёт через WS.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	var in PostChatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID := httpmw.UserIDFromCtx(r.Context())
	msg, err := h.chatSvc.AppendChat(r.Context(), roomID, userID, in.Message)
	if err != nil {
		h.fail(w, r, "handler.PostChat", err)
		return
	}
	msg.UserName = h.roomSvc.DisplayName(r.Context(), userID)

	httputil.JSON(w, http.StatusCreated, toChatItem(*msg))
}

// DELETE /chats/{roomId} (только админ)
func (h *Handler) ClearChats(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	n, err := h.chatSvc.ClearChats(r.Context(), roomID)
	if err != nil {
		h.fail(w, r, "handler.ClearChats", err)
		return
	}
	slog.Info("chats cleared", "room", roomID, "deleted", n)

	httputil.OK(w, DeletedResponse{Deleted: n})
}

// GET /canvas/{roomId}
func (h *Handler) GetCanvasOps(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	ops, err := h.canvasSvc.ListCanvasOps(r.Context(), roomID)
	if err != nil {
		h.fail(w, r, "handler.GetCanvasOps", err)
		return
	}
	resp := CanvasOpsResponse{Ops: make([]CanvasOpItem, 0, len(ops))}
	for _, op := range ops {
		resp.Ops = append(resp.Ops, toCanvasOpItem(op))
	}

	httputil.OK(w, resp)
}

// POST /canvas/{roomId} — id созданной строки клиент потом шлёт в erase как dbId.
func (h *Handler) PostCanvasOp(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	var in PostCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON")
		return
	}

	userID := httpmw.UserIDFromCtx(r.Context())
	op, err := h.canvasSvc.AppendCanvasOp(r.Context(), roomID, userID, in.Type, in.Data)
	if err != nil {
		h.fail(w, r, "handler.PostCanvasOp", err)
		return
	}
	op.UserName = h.roomSvc.DisplayName(r.Context(), userID)

	httputil.JSON(w, http.StatusCreated, toCanvasOpItem(*op))
}

// GET /canvas/{roomId}/state
func (h *Handler) GetCanvasState(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	shapes, last, err := h.canvasSvc.CanvasState(r.Context(), roomID)
	if err != nil {
		h.fail(w, r, "handler.GetCanvasState", err)
		return
	}
	if shapes == nil {
		shapes = []domain.Shape{}
	}

	httputil.OK(w, CanvasStateResponse{Shapes: shapes, LastOpID: last})
}

// DELETE /canvas/{roomId} (только админ)
func (h *Handler) ClearCanvas(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	n, err := h.canvasSvc.ClearCanvasOps(r.Context(), roomID)
	if err != nil {
		h.fail(w, r, "handler.ClearCanvas", err)
		return
	}
	slog.Info("canvas cleared", "room", roomID, "deleted", n)

	httputil.OK(w, DeletedResponse{Deleted: n})
}

// DELETE /canvas/{roomId}/{opId} (только админ)
func (h *Handler) DeleteCanvasOp(w http.ResponseWriter, r *http.Request) {
	roomID, ok := h.roomID(w, r)
	if !ok {
		return
	}
	opID, err := strconv.ParseInt(chi.URLParam(r, "opId"), 10, 64)
	if err != nil || opID <= 0 {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid op id")
		return
	}
	if err := h.canvasSvc.DeleteCanvasOp(r.Context(), roomID, opID); err != nil {
		h.fail(w, r, "handler.DeleteCanvasOp", err)
		return
	}

	httputil.OK(w, DeletedResponse{Deleted: 1})
}

func (h *Handler) roomID(w http.ResponseWriter, r *http.Request) (domain.RoomID, bool) {
	id, err := domain.ParseRoomID(chi.URLParam(r, "roomId"))
	if err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid room id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	err = classify(err)
	status := errs.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+":", slog.Any("err", err))
	}
	httputil.Error(r.Context(), w, status, errs.Public(err))
}

// classify сводит доменные ошибки к транспортным категориям.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrOpNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %s", errs.ErrNotFound, rootMessage(err))
	case errors.Is(err, domain.ErrNotRoomAdmin):
		return fmt.Errorf("%w: %s", errs.ErrForbidden, rootMessage(err))
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrInvalidText),
		errors.Is(err, domain.ErrInvalidOpKind),
		errors.Is(err, domain.ErrEmptyPayload),
		errors.Is(err, domain.ErrInvalidData):
		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, rootMessage(err))
	case errors.Is(err, domain.ErrAlreadyExists):
		return fmt.Errorf("%w: %s", errs.ErrConflict, rootMessage(err))
	case errors.Is(err, service.ErrStorage):
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	default:
		return err
	}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
