// Package web embeds the widget's loader script, styles, demo host page and the
// server-side HTML templates.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed static templates
var assetsFS embed.FS

// Templates returns the HTML templates used to render the widget.
func Templates() fs.FS {
	sub, err := fs.Sub(assetsFS, "templates")
	if err != nil {
		panic("web: failed to create templates filesystem: " + err.Error())
	}
	return sub
}

// StaticHandler returns an http.Handler serving the loader script and styles.
// It expects to be mounted with the /static/ prefix stripped.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(assetsFS, "static")
	if err != nil {
		panic("web: failed to create static filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" || strings.HasSuffix(path, "/") {
			http.NotFound(w, r)
			return
		}

		f, err := subFS.Open(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
		}

		// The loader is fetched cross-origin by WordPress pages.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, r)
	})
}

// DemoHandler serves a host page that mounts the widget, standing in for a
// WordPress page carrying the shortcode.
func DemoHandler() http.Handler {
	page, err := fs.ReadFile(assetsFS, "static/index.html")
	if err != nil {
		panic("web: missing demo page: " + err.Error())
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			slog.Debug("web: failed to write demo page", "error", err)
		}
	})
}
