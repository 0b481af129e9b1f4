// Package view renders the server-side HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	Dashboard = "dashboard"
	Stats     = "stats"
	Error     = "error"
)

// Site holds values every page shows.
type Site struct {
	BaseURL string
	Version string
}

// LinkRow is a link formatted for display.
type LinkRow struct {
	Code        string
	TargetURL   string
	ShortURL    string
	TotalClicks int64
	LastClicked string
	CreatedAt   string
}

type DashboardPage struct {
	Site
	Links []LinkRow
}

type StatsPage struct {
	Site
	Link LinkRow
}

type ErrorPage struct {
	Site
	Status  int
	Title   string
	Message string
}

// Renderer executes the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page together with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}

	for _, name := range []string{Dashboard, Stats, Error} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the named page with the given status.
// The page is executed into a buffer first so a template error never
// leaves a half written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
