package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	accounts "fema-catalog/internal/accounts/service"
	"fema-catalog/internal/models"
	"fema-catalog/internal/session"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	var saved []models.Event
	if user != nil {
		var err error
		if saved, err = h.Accounts.SavedEvents(r.Context(), user.ID); err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	h.renderUser(w, r, user, "homepage", "Home", struct{ Saved []models.Event }{saved})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "users-list", "Users", struct{ Users []models.User }{users})
}

func (h *Handler) ShowUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	profile, err := h.Accounts.GetUser(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		h.redirectWithFlash(w, r, session.FlashDanger, "User does not exist", "/users")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	saved, err := h.Accounts.SavedEvents(r.Context(), id)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, "user-info", profile.Username, struct {
		Profile *models.User
		Saved   []models.Event
	}{profile, saved})
}

func (h *Handler) ShowRegistration(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "registration", "Register", nil)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	in := models.RegisterInput{
		Username:   r.PostForm.Get("username"),
		Email:      r.PostForm.Get("email"),
		Password:   r.PostForm.Get("password"),
		Occupation: r.PostForm.Get("occupation"),
	}

	_, err := h.Accounts.Register(r.Context(), in)
	var verr *accounts.ValidationError
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, session.FlashSuccess, "New User Registration Complete", "/login")
	case errors.As(err, &verr):
		h.redirectWithFlash(w, r, session.FlashDanger, verr.Message, "/registration")
	case errors.Is(err, models.ErrUsernameTaken):
		h.redirectWithFlash(w, r, session.FlashDanger, "Username is taken", "/registration")
	case errors.Is(err, models.ErrEmailTaken):
		h.redirectWithFlash(w, r, session.FlashDanger, "Email is already in use", "/registration")
	case errors.Is(err, models.ErrConflict):
		h.redirectWithFlash(w, r, session.FlashDanger, "That account already exists", "/registration")
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", "Log in", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	user, err := h.Accounts.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if errors.Is(err, models.ErrInvalidCredentials) {
		h.redirectWithFlash(w, r, session.FlashDanger, "Invalid username or password", "/login")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if err := h.Sessions.Login(w, r, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.Logger.Info("SESSION", fmt.Sprintf("User %d logged in", user.ID))
	h.redirectWithFlash(w, r, session.FlashSuccess, "Logged In", fmt.Sprintf("/users/%d", user.ID))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(w, r)
	h.redirectWithFlash(w, r, session.FlashInfo, "Logout Successful", "/")
}
