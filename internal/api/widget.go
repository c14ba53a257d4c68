package api

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/wpassist/internal/domain"
	"github.com/ashureev/wpassist/internal/identity"
	"github.com/go-chi/chi/v5"
)

// WidgetHandler serves the widget fragment and the session actions behind it.
type WidgetHandler struct {
	*Handler
}

// NewWidgetHandler creates a widget handler.
func NewWidgetHandler(base *Handler) *WidgetHandler {
	return &WidgetHandler{Handler: base}
}

// RegisterRoutes registers the widget and session routes.
func (h *WidgetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/widget", h.Widget)
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.State)
		r.Post("/connect", h.Connect)
		r.Post("/query", h.Query)
		r.Post("/reset", h.Reset)
		r.Post("/ui", h.UI)
		r.Get("/config", h.Config)
		r.Get("/stream", h.Stream)
	})
}

// Widget renders the session as an HTML fragment. A mode parameter switches the
// display variant; a site_url parameter (or the configured default) starts indexing
// when no site is loaded yet.
func (h *WidgetHandler) Widget(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFor(r)
	q := r.URL.Query()

	if mode := q.Get("mode"); mode != "" {
		sess.SetMode(domain.ParseDisplayMode(mode))
	}

	siteURL := strings.TrimSpace(q.Get("site_url"))
	if siteURL == "" && h.cfg != nil {
		siteURL = h.cfg.DefaultSiteURL
	}
	if siteURL != "" && !sess.Snapshot().Site.Connected && !sess.Busy() {
		userID := identity.UserIDFromContext(r.Context())
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := sess.AutoConnect(ctx, siteURL); err != nil {
				slog.Warn("Auto-connect failed", "error", err, "user_id", userID, "site", siteURL)
			}
		}()
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, sess.Snapshot()); err != nil {
		slog.Error("Failed to render widget", "error", err)
		Error(w, http.StatusInternalServerError, "failed to render widget")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write widget", "error", err)
	}
}

// State returns the session snapshot.
func (h *WidgetHandler) State(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.sessionFor(r).Snapshot())
}

type connectRequest struct {
	URL string `json:"url"`
}

// Connect indexes a WordPress site and returns the resulting snapshot.
func (h *WidgetHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessionFor(r)
	if err := sess.Connect(r.Context(), req.URL); err != nil {
		writeSessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

type queryRequest struct {
	Text string `json:"text"`
}

// Query records the question and answers it in the background, replying 202. With
// wait=true the answer is produced before responding.
func (h *WidgetHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessionFor(r)
	pending, err := sess.BeginSubmit(req.Text)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		// Analyzer failures are already recorded as an apology turn.
		_ = pending.Complete(ctx)
		JSON(w, http.StatusOK, sess.Snapshot())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	go func() {
		if err := pending.Complete(ctx); err != nil {
			slog.Warn("Query answered with apology", "error", err, "user_id", userID)
		}
	}()
	JSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"version": sess.Snapshot().Version,
	})
}

// Reset disconnects the site and clears the conversation.
func (h *WidgetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFor(r)
	sess.Reset()
	JSON(w, http.StatusOK, sess.Snapshot())
}

type uiRequest struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

// UI applies a presentation event: toggle, tab, mode or draft.
func (h *WidgetHandler) UI(w http.ResponseWriter, r *http.Request) {
	var req uiRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessionFor(r)
	switch req.Action {
	case "toggle":
		sess.Toggle()
	case "tab":
		sess.SetTab(domain.Tab(req.Value))
	case "mode":
		sess.SetMode(domain.ParseDisplayMode(req.Value))
	case "draft":
		sess.SetDraft(req.Value)
	default:
		Error(w, http.StatusBadRequest, "unknown action")
		return
	}
	JSON(w, http.StatusOK, sess.Snapshot())
}

// Config returns the settings the loader needs.
func (h *WidgetHandler) Config(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"display_mode":     domain.ModeWidget,
		"default_site_url": "",
	}
	if h.cfg != nil {
		resp["display_mode"] = h.cfg.DisplayMode
		resp["default_site_url"] = h.cfg.DefaultSiteURL
	}
	JSON(w, http.StatusOK, resp)
}
