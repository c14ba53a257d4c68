// Package middleware provides HTTP middleware for the assistant API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/ashureev/wpassist/internal/identity"
)

var allowedHeaders = strings.Join([]string{
	"Content-Type",
	identity.ClientHeaderName,
	identity.SessionHeaderName,
}, ", ")

// CORS returns middleware that handles CORS headers for sites embedding the widget.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			allowed, explicit := matchOrigin(allowedOrigins, origin)
			if origin != "" && allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				// Only allow credentials for explicit origins, not wildcard matches.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowedOrigins []string, origin string) (allowed, explicit bool) {
	for _, o := range allowedOrigins {
		if o == "*" {
			allowed = true
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
			return true, true
		}
	}
	return allowed, false
}
