package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/chat-replay/archive"
	"github.com/onnwee/chat-replay/telemetry"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	archives ArchiveService
	checks   []Check
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{archives: deps.Archives, checks: deps.Checks}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

// writeError maps archive errors to status codes and hides internal details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, archive.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, archive.ErrNoVideoSource):
		http.Error(w, "import not configured", http.StatusNotImplemented)
	default:
		telemetry.LoggerWithCorr(r.Context()).Error("request failed", slog.String("path", r.URL.Path), slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
