// Package session assigns anonymous per-browser session identity used to key
// conversation history.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// CookieName holds the anonymous session id across visits.
	CookieName = "wsb_session_id"
	// HeaderName lets a client pin an explicit session id per request.
	HeaderName = "X-Session-ID"

	cookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

// idPattern matches the ids the history backends accept as filenames and keys.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// FromContext extracts the session ID from the request context. It returns
// an empty string when the middleware did not run.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "sess_" + hex.EncodeToString(buf), nil
}

// Valid reports whether id is safe to use as a history session id.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}

// explicitID returns a per-request id pinned via the header or query string.
func explicitID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(HeaderName))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("session_id"))
	}
	if !Valid(id) {
		return ""
	}
	return id
}

func cookieID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil || !Valid(c.Value) {
		return ""
	}
	return c.Value
}

func setCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware resolves the session id from header, query, or cookie, minting
// a fresh one when none is present, and injects it into the request context.
// Header- and query-pinned ids are request-scoped: they never replace the
// browser's cookie session.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := explicitID(r)
			if id == "" {
				id = cookieID(r)
				if id == "" {
					var err error
					id, err = generateID()
					if err != nil {
						http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
						return
					}
				}
				setCookie(w, id, isDev)
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
