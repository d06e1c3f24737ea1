// Package web embeds the built chat frontend (dist/) and serves it as a
// single-page application.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPAHandler returns an http.Handler that serves the embedded frontend.
// Paths that don't match an embedded file fall back to index.html so
// client-side routes resolve after a hard reload.
func SPAHandler() http.Handler {
	assets, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}

		if _, err := fs.Stat(assets, name); err != nil {
			// Unknown path: hand the client the app shell and let it route.
			r.URL.Path = "/"
			name = "index.html"
		}
		if name == "index.html" {
			// The shell must never be cached stale across deploys.
			w.Header().Set("Cache-Control", "no-cache")
		}

		fileServer.ServeHTTP(w, r)
	})
}
