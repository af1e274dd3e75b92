package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fema-catalog/internal/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Manager ties a Store to the session cookie.
type Manager struct {
	Store      Store
	CookieName string
	TTL        time.Duration
	Secure     bool
	Logger     *logger.Logger
}

func NewManager(store Store, cookieName string, ttl time.Duration, secure bool, log *logger.Logger) *Manager {
	return &Manager{Store: store, CookieName: cookieName, TTL: ttl, Secure: secure, Logger: log}
}

// Login starts a session for userID and sets the cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	token, err := m.Store.Create(r.Context(), userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout ends the current session, if any, and clears the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.CookieName); err == nil {
		if err := m.Store.Destroy(r.Context(), c.Value); err != nil {
			m.Logger.Error("SESSION", fmt.Sprintf("Failed to destroy session: %v", err))
		}
	}
	m.clear(w)
}

func (m *Manager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware resolves the session cookie into a user id on the request
// context. Requests without a valid session continue anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(m.CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.Store.Lookup(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, ErrNoSession) {
				m.Logger.Error("SESSION", fmt.Sprintf("Session lookup failed: %v", err))
			} else {
				m.Logger.LogSecurity("SESSION_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
			}
			m.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireUser redirects anonymous visitors to the login page.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			SetFlash(w, r, FlashInfo, "Please log in to access this page.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the signed-in user, if any.
func UserID(ctx context.Context) (int64, bool) {
	uid, ok := ctx.Value(userIDKey).(int64)
	return uid, ok && uid > 0
}
