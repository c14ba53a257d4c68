// Package identity provides anonymous per-browser identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	AnonCookieName        = "wpassist_anon_id"
	ClientHeaderName      = "X-WPA-Client-ID"
	SessionHeaderName     = "X-WPA-Session-ID"
	DefaultSessionIDValue = "default"
	anonCookieMaxAge      = 30 * 24 * time.Hour
)

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserIDFromContext extracts the anonymous visitor ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithIdentity returns a context carrying the given visitor and tab IDs.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

// NewAnonID generates a random anonymous visitor ID.
func NewAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	// The widget runs on the WordPress origin, so outside development the cookie
	// must be usable in cross-site requests.
	sameSite := http.SameSiteNoneMode
	if isDev {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: sameSite,
		Secure:   !isDev,
	})
}

// clientIDFromRequest returns an ID supplied by the loader script, which keeps one in
// local storage for browsers that block third-party cookies.
func clientIDFromRequest(r *http.Request) string {
	id := r.Header.Get(ClientHeaderName)
	if id == "" {
		id = r.URL.Query().Get("client_id")
	}
	if isValidAnonID(id) {
		return id
	}
	return ""
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if id := clientIDFromRequest(r); id != "" {
		return id, nil
	}

	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := NewAnonID()
	if err != nil {
		return "", err
	}
	setAnonCookie(w, id, isDev)
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// Middleware injects anonymous per-browser identity and per-tab session ID.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			ctx := WithIdentity(r.Context(), userID, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
