package web

import "net/http"

func (h *Handler) staticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, name, title, nil)
	}
}

// mapPage serves the Google Maps views. The optional q parameter seeds the
// place search.
func (h *Handler) mapPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, name, title, struct {
			Query  string
			APIKey string
		}{r.URL.Query().Get("q"), h.Config.Maps.GoogleAPIKey})
	}
}
