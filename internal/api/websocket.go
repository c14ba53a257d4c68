package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/identity"
	"github.com/ashureev/wpassist/internal/session"
	"github.com/coder/websocket"
)

// WebSocketHandler drives a session over a WebSocket: JSON commands in, snapshots out.
type WebSocketHandler struct {
	*Handler
	allowedOrigins []string
	isDev          bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(base *Handler, allowedOrigins []string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		Handler:        base,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
	}
}

// wsCommand is a client message.
type wsCommand struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
	Value string `json:"value,omitempty"`
}

// wsEvent is a server message.
type wsEvent struct {
	Type   string            `json:"type"`
	State  *session.Snapshot `json:"state,omitempty"`
	Error  string            `json:"error,omitempty"`
	Status int               `json:"status,omitempty"`
}

// ServeHTTP handles WebSocket upgrade and session I/O.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	sess := h.sessionFor(r)
	updates, unsubscribe := sess.Subscribe(1)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snap := sess.Snapshot()
	if err := h.writeJSON(ctx, ws, wsEvent{Type: "state", State: &snap}); err != nil {
		slog.Debug("Failed to send initial state", "error", err, "user_id", userID)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, sess, userID)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, updates, userID)
	}()

	wg.Wait()
	slog.Info("WebSocket session ended", "user_id", userID, "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	// Same-origin pages (the demo page) are always allowed.
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, sess *session.State, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			h.sendError(ctx, ws, http.StatusBadRequest, "invalid message")
			continue
		}

		// Requests outlive the socket; their result is kept in the session.
		bg := context.WithoutCancel(ctx)

		switch cmd.Type {
		case "connect":
			go func(siteURL string) {
				if err := sess.Connect(bg, siteURL); err != nil {
					status, msg := statusForError(err)
					h.sendError(ctx, ws, status, msg)
				}
			}(cmd.URL)
		case "query":
			pending, err := sess.BeginSubmit(cmd.Text)
			if err != nil {
				status, msg := statusForError(err)
				h.sendError(ctx, ws, status, msg)
				continue
			}
			go func() {
				if err := pending.Complete(bg); err != nil {
					slog.Warn("Query answered with apology", "error", err, "user_id", userID)
				}
			}()
		case "reset":
			sess.Reset()
		case "tab":
			sess.SetTab(domain.Tab(cmd.Value))
		case "toggle":
			sess.Toggle()
		case "mode":
			sess.SetMode(domain.ParseDisplayMode(cmd.Value))
		case "draft":
			sess.SetDraft(cmd.Value)
		case "ping":
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		default:
			h.sendError(ctx, ws, http.StatusBadRequest, "unknown command")
		}
	}
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, updates <-chan session.Snapshot, userID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				slog.Debug("Session closed, ending socket", "user_id", userID)
				return
			}
			if err := h.writeJSON(ctx, ws, wsEvent{Type: "state", State: &snap}); err != nil {
				slog.Debug("WebSocket write error", "error", err, "user_id", userID)
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendError(ctx context.Context, ws *websocket.Conn, status int, msg string) {
	if err := h.writeJSON(ctx, ws, wsEvent{Type: "error", Error: msg, Status: status}); err != nil {
		slog.Debug("Failed to send error message", "error", err)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}
