package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"fema-catalog/internal/models"
	"fema-catalog/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template receives.
type page struct {
	Title   string
	User    *models.User
	Flashes []session.Flash
	Data    interface{}
}

// PageLink is one numbered link of a paginated listing.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("Jan 2, 2006")
	},
	"money": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"inc": func(n int) int { return n + 1 },
}

// Renderer holds one parsed template set per page, each combined with the
// shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimSuffix(path.Base(name), ".html")
		if base == "layout" {
			continue
		}
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data page) error {
	t, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func pageLinks(basePath string, query func(page int) string, current, pages int) []PageLink {
	links := make([]PageLink, 0, pages)
	for i := 0; i < pages; i++ {
		links = append(links, PageLink{
			Number:  i,
			URL:     basePath + "?" + query(i),
			Current: i == current,
		})
	}
	return links
}
