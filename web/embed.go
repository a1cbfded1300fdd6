// Package web embeds the built React client (dist/) and serves it as a
// single-page application: static files when they exist, index.html for
// everything else so client-side routing works.
//
// During development the Vite dev server is used instead; production builds
// land in dist/ before the Go binary is compiled.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPAHandler returns an http.Handler serving the embedded client bundle.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if _, err := fs.Stat(subFS, path); err != nil {
			// No such file: hand the SPA its entry point and let the
			// client router resolve the path.
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}
