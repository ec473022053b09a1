package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/boozedog/chronicle/internal/chronicle"
	"github.com/boozedog/chronicle/internal/web/sse"
)

// DefaultPageEvents is how many recent events the index page shows.
const DefaultPageEvents = 50

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *chronicle.Store
	broker *sse.Broker
}

// New creates a new Handler.
func New(store *chronicle.Store, broker *sse.Broker) *Handler {
	return &Handler{
		store:  store,
		broker: broker,
	}
}

// recentEvents returns the last limit events of path, newest first.
func (h *Handler) recentEvents(path string, limit int) ([]chronicle.Event, error) {
	events, err := h.store.TailChronicle(path, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(events)
	return events, nil
}

// statusFor maps a chronicle error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chronicle.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, chronicle.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Warn("write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}
