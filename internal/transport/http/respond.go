package http

import (
	"context"
	"encoding/json"
	"net/http"

	httpmw "github.com/sawariz0r/3d-voice-room/internal/transport/http/middleware"
)

type envelope map[string]any

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		httpmw.L(ctx).Error("write json response failed", "err", err)
	}
}

func ok(ctx context.Context, w http.ResponseWriter, data any) {
	writeJSON(ctx, w, http.StatusOK, envelope{"data": data})
}

func fail(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, envelope{"error": envelope{"message": msg}})
}
