// Package middleware provides HTTP middleware for the WorksheetBot API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gpotter/worksheetbot/internal/session"
)

// allowedHeaders lists the request headers the browser client sends.
var allowedHeaders = strings.Join([]string{"Content-Type", session.HeaderName}, ", ")

// CORS returns middleware that handles CORS for the browser frontend.
// Credentials are only allowed for explicitly listed origins; echoing a
// wildcard-matched origin with Allow-Credentials would enable CSRF.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	explicit := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		explicit[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if origin != "" && (wildcard || explicit[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				if explicit[origin] {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "300")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
