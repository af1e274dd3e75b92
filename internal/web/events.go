package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fema-catalog/internal/catalog"
	"fema-catalog/internal/models"
	"fema-catalog/internal/pagination"
	"fema-catalog/internal/session"

	"github.com/go-chi/chi/v5"
)

const missingEventMessage = "This event does not exist or this database is incomplete."

type eventTable struct {
	Result   *models.EventPage
	SavedIDs map[int]bool
	Links    []PageLink
}

type eventInfo struct {
	Detail   *models.DisasterDetail
	Saved    bool
	ShareURL string
}

// ListEvents serves the unfiltered catalog. A fema-id parameter jumps straight
// to that disaster's page.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if raw := strings.TrimSpace(r.URL.Query().Get("fema-id")); raw != "" {
		femaID, err := strconv.Atoi(raw)
		if err != nil || femaID <= 0 {
			h.redirectWithFlash(w, r, session.FlashDanger, missingEventMessage, "/")
			return
		}
		http.Redirect(w, r, "/events/"+strconv.Itoa(femaID), http.StatusSeeOther)
		return
	}

	page, err := pagination.ParsePage(r.URL.Query().Get("page"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Catalog.ListEvents(r.Context(), page)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	links := pageLinks("/events", func(p int) string {
		return url.Values{"page": {strconv.Itoa(p)}}.Encode()
	}, page, result.Pages)
	h.renderTable(w, r, "All disasters", result, links)
}

func (h *Handler) ShowSearch(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Catalog.SearchOptions(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	months := make([]string, 12)
	for i := range months {
		months[i] = time.Month(i + 1).String()
	}
	h.render(w, r, "user-search", "Search", struct {
		Options *models.SearchOptions
		Months  []string
	}{opts, months})
}

func (h *Handler) SearchResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := catalog.ParseCriteria(q)
	if err != nil {
		h.redirectWithFlash(w, r, session.FlashDanger, "Please check your search: "+err.Error(), "/search")
		return
	}
	page, err := pagination.ParsePage(q.Get("page"))
	if err != nil {
		h.redirectWithFlash(w, r, session.FlashDanger, "Please check your search: "+err.Error(), "/search")
		return
	}

	result, err := h.Catalog.Search(r.Context(), criteria, page)
	if errors.Is(err, models.ErrNoResults) {
		h.redirectWithFlash(w, r, session.FlashInfo, "There are no events of this type that are in this database.", "/search")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	links := pageLinks("/search/results", func(p int) string {
		v := criteria.Query()
		v.Set("page", strconv.Itoa(p))
		return v.Encode()
	}, page, result.Pages)
	h.renderTable(w, r, "Search results", result, links)
}

func (h *Handler) renderTable(w http.ResponseWriter, r *http.Request, title string, result *models.EventPage, links []PageLink) {
	user := h.currentUser(r)
	data := eventTable{Result: result, SavedIDs: map[int]bool{}, Links: links}
	if user != nil {
		ids, err := h.Accounts.SavedFemaIDs(r.Context(), user.ID)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		data.SavedIDs = ids
	}
	h.renderUser(w, r, user, "event-table", title, data)
}

func (h *Handler) ShowEvent(w http.ResponseWriter, r *http.Request) {
	femaID, err := strconv.Atoi(chi.URLParam(r, "fema_id"))
	if err != nil {
		h.redirectWithFlash(w, r, session.FlashDanger, missingEventMessage, "/")
		return
	}

	detail, err := h.Catalog.GetDisaster(r.Context(), femaID)
	if errors.Is(err, models.ErrNotFound) {
		h.redirectWithFlash(w, r, session.FlashDanger, missingEventMessage, "/")
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := h.currentUser(r)
	data := eventInfo{Detail: detail, ShareURL: h.QR.EventURL(femaID)}
	if user != nil {
		ids, err := h.Accounts.SavedFemaIDs(r.Context(), user.ID)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		data.Saved = ids[femaID]
	}
	h.renderUser(w, r, user, "event-info", detail.Event.Name, data)
}

func (h *Handler) EventQR(w http.ResponseWriter, r *http.Request) {
	femaID, err := strconv.Atoi(chi.URLParam(r, "fema_id"))
	if err != nil || femaID <= 0 {
		http.NotFound(w, r)
		return
	}

	png, err := h.QR.EventQR(femaID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

// SaveEvent bookmarks a disaster for the signed-in user. It answers in JSON
// because the listing pages call it from script.
func (h *Handler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Please log in to save events."})
		return
	}
	femaID, err := strconv.Atoi(chi.URLParam(r, "fema_id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": missingEventMessage})
		return
	}

	result, err := h.Accounts.SaveEvent(r.Context(), userID, femaID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, models.ErrAlreadySaved):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "You have already saved this event."})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": missingEventMessage})
	default:
		h.Logger.Error("BOOKMARK", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Could not save this event."})
	}
}
