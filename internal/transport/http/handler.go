package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
	"github.com/sawariz0r/3d-voice-room/internal/postgres"
	httpmw "github.com/sawariz0r/3d-voice-room/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type RoomReader interface {
	ListRooms() []domain.RoomInfo
	State(id string) (domain.RoomState, error)
}

type HistoryReader interface {
	History(ctx context.Context, roomID, after string, limit int) ([]domain.RoomEvent, string, error)
}

type Handler struct {
	rooms   RoomReader
	history HistoryReader
}

// NewHandler builds the lobby handlers. history may be nil when no database
// is configured.
func NewHandler(rooms RoomReader, history HistoryReader) *Handler {
	return &Handler{rooms: rooms, history: history}
}

type historyResponse struct {
	Items      []domain.RoomEvent `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

func toHTTP(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, postgres.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotInRoom):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GET /rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ok(r.Context(), w, h.rooms.ListRooms())
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	state, err := h.rooms.State(id)
	if err != nil {
		status := toHTTP(err)
		if status >= 500 {
			httpmw.L(r.Context()).Error("handler.GetRoom", "err", err)
		}
		fail(r.Context(), w, status, "room not found")
		return
	}
	ok(r.Context(), w, state)
}

// GET /rooms/{id}/history?after=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		fail(r.Context(), w, http.StatusNotImplemented, "journal disabled")
		return
	}
	roomID := strings.TrimSpace(chi.URLParam(r, "id"))
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.history.History(r.Context(), roomID, after, limit)
	if err != nil {
		status := toHTTP(err)
		if status >= 500 {
			httpmw.L(r.Context()).Error("handler.History", "room", roomID, "err", err)
		}
		fail(r.Context(), w, status, err.Error())
		return
	}
	if items == nil {
		items = []domain.RoomEvent{}
	}
	ok(r.Context(), w, historyResponse{Items: items, NextCursor: next})
}
