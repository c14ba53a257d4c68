package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/wpassist/internal/identity"
	"github.com/ashureev/wpassist/internal/session"
)

const (
	defaultKeepalive  = 10 * time.Second
	defaultRetryDelay = 5 * time.Second
)

type stateEvent struct {
	Instance string        `json:"instance"`
	Version  uint64        `json:"version"`
	Phase    session.Phase `json:"phase"`
	Loading  bool          `json:"loading"`
	Error    string        `json:"error,omitempty"`
}

func newStateEvent(snap session.Snapshot) stateEvent {
	return stateEvent{
		Instance: snap.Instance,
		Version:  snap.Version,
		Phase:    snap.Phase(),
		Loading:  snap.Loading,
		Error:    snap.Error,
	}
}

// Stream pushes a "state" event whenever the caller's session changes. Events carry
// the snapshot version as their ID; clients refetch the widget or state on receipt.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sess := h.sessionFor(r)
	updates, cancel := sess.Subscribe(1)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	retryDelay, keepaliveInterval := defaultRetryDelay, defaultKeepalive
	if h.cfg != nil {
		if h.cfg.SSE.RetryDelay > 0 {
			retryDelay = h.cfg.SSE.RetryDelay
		}
		if h.cfg.SSE.KeepaliveInterval > 0 {
			keepaliveInterval = h.cfg.SSE.KeepaliveInterval
		}
	}
	if _, err := io.WriteString(w, fmt.Sprintf("retry: %d\n\n", retryDelay.Milliseconds())); err != nil {
		slog.Warn("failed to write SSE retry header", "error", err, "user_id", userID)
		return
	}

	// The current state goes first so a reconnecting client catches up.
	snap := sess.Snapshot()
	if err := writeStateEvent(w, snap); err != nil {
		slog.Warn("failed to write SSE state event", "error", err, "user_id", userID)
		return
	}
	flusher.Flush()
	slog.Info("SSE connection established", "user_id", userID, "session_id", sessionID, "version", snap.Version)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE connection closed", "user_id", userID, "session_id", sessionID)
			return
		case snap, ok := <-updates:
			if !ok {
				slog.Info("Session closed, ending stream", "user_id", userID, "session_id", sessionID)
				return
			}
			if err := writeStateEvent(w, snap); err != nil {
				slog.Warn("failed to write SSE state event", "error", err, "user_id", userID)
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if err := writeSSE(w, "ping", `{"status":"alive"}`); err != nil {
				slog.Warn("failed to write SSE keepalive ping", "error", err, "user_id", userID)
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w io.Writer, snap session.Snapshot) error {
	data, err := json.Marshal(newStateEvent(snap))
	if err != nil {
		return err
	}
	return writeSSEWithID(w, snap.Version, "state", string(data))
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id uint64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
