package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	accounts "fema-catalog/internal/accounts/service"
	catalogsvc "fema-catalog/internal/catalog/service"
	"fema-catalog/internal/config"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
	"fema-catalog/internal/observability"
	"fema-catalog/internal/session"
	"fema-catalog/internal/share"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Catalog  *catalogsvc.CatalogService
	Accounts *accounts.AccountService
	Sessions *session.Manager
	QR       *share.QRGenerator
	Views    *Renderer
	Store    Pinger
	Metrics  *observability.Metrics
	Logger   *logger.Logger
	Config   *config.Config
}

// Routes builds the HTML application router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.Sessions.Middleware)

	r.Get("/", h.Index)
	r.Get("/registration", h.ShowRegistration)
	r.Post("/registration", h.Register)
	r.Get("/login", h.ShowLogin)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.Sessions.RequireUser)
		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.ShowUser)
	})

	r.Get("/events", h.ListEvents)
	r.Get("/events/{fema_id}", h.ShowEvent)
	r.Get("/events/{fema_id}/qr.png", h.EventQR)
	r.Post("/save/event/{fema_id}", h.SaveEvent)

	r.Get("/search", h.ShowSearch)
	r.Get("/search/results", h.SearchResults)

	r.Get("/about", h.staticPage("about", "About"))
	r.Get("/contact", h.staticPage("contact", "Contact"))
	r.Get("/us-map", h.mapPage("us-map", "United States"))
	r.Get("/geolocate", h.mapPage("geolocate", "Geolocate"))
	r.Get("/places_locate", h.mapPage("location-search", "Find a place"))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		h.Metrics.HTTPRequests.WithLabelValues("web", r.Method, fmt.Sprint(status)).Inc()
		h.Metrics.HTTPDuration.WithLabelValues("web").Observe(elapsed.Seconds())
		h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprint(status), elapsed.String())
	})
}

// currentUser loads the signed-in user. A session pointing at a deleted
// account is treated as anonymous.
func (h *Handler) currentUser(r *http.Request) *models.User {
	uid, ok := session.UserID(r.Context())
	if !ok {
		return nil
	}
	user, err := h.Accounts.GetUser(r.Context(), uid)
	if err != nil {
		h.Logger.Warn("SESSION", fmt.Sprintf("Session user %d not loaded: %v", uid, err))
		return nil
	}
	return user
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data interface{}) {
	h.renderUser(w, r, h.currentUser(r), name, title, data)
}

func (h *Handler) renderUser(w http.ResponseWriter, r *http.Request, user *models.User, name, title string, data interface{}) {
	p := page{
		Title:   title,
		User:    user,
		Flashes: session.PopFlashes(w, r),
		Data:    data,
	}
	if err := h.Views.Render(w, http.StatusOK, name, p); err != nil {
		h.Logger.Error("RENDER", err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, category, message, to string) {
	session.SetFlash(w, r, category, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Error("HTTP", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
