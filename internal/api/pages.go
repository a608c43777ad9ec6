package api

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

const (
	indexPage   = "index.html"
	figuresPage = "figures.html"
)

//go:embed static
var embeddedStatic embed.FS

// pages serves the landing and figures pages plus any other static assets,
// from a directory when one is configured and from the embedded copies
// otherwise.
type pages struct {
	fsys fs.FS
}

func newPages(staticDir string) *pages {
	if staticDir != "" {
		slog.Info("serving static pages from directory", "dir", staticDir)
		return &pages{fsys: os.DirFS(staticDir)}
	}
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic(err)
	}
	return &pages{fsys: sub}
}

func (p *pages) serve(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.serveFile(w, r, name)
	}
}

func (p *pages) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	info, err := fs.Stat(p.fsys, name)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("error reading static file", "name", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, p.fsys, name)
}

// assets handles every unrouted GET. Directories are never listed.
func (p *pages) assets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || !fs.ValidPath(name) {
			http.NotFound(w, r)
			return
		}
		p.serveFile(w, r, name)
	}
}
