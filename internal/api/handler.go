// Package api provides HTTP handlers for the assistant API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ashureev/wpassist/internal/config"
	"github.com/ashureev/wpassist/internal/identity"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/ashureev/wpassist/internal/view"
	"github.com/ashureev/wpassist/internal/wordpress"
)

const defaultMaxBodySize = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	registry *session.Registry
	renderer *view.Renderer
	cfg      *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(registry *session.Registry, renderer *view.Renderer, cfg *config.Config) *Handler {
	return &Handler{
		registry: registry,
		renderer: renderer,
		cfg:      cfg,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// sessionFor returns the caller's session, creating it on first use.
func (h *Handler) sessionFor(r *http.Request) *session.State {
	return h.registry.GetOrCreate(
		identity.UserIDFromContext(r.Context()),
		identity.SessionIDFromContext(r.Context()),
	)
}

func (h *Handler) maxBodySize() int64 {
	if h.cfg != nil && h.cfg.SSE.MaxRequestBodySize > 0 {
		return h.cfg.SSE.MaxRequestBodySize
	}
	return defaultMaxBodySize
}

// decodeJSON reads a size-limited JSON body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusForError maps session and fetcher errors to an HTTP status and message.
func statusForError(err error) (int, string) {
	var connErr *wordpress.ConnectionError
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, err.Error()
	case errors.Is(err, session.ErrEmpty):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNotConnected):
		return http.StatusConflict, err.Error()
	case errors.As(err, &connErr):
		return http.StatusBadGateway, session.ConnectFailedMessage
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	status, msg := statusForError(err)
	Error(w, status, msg)
}
