package handlers

import (
	"net/http"

	"golang.org/x/oauth2"

	"familytime/internal/calendar"
)

// CalendarHandler handles calendar link HTTP requests
type CalendarHandler struct {
	links *calendar.LinkStore
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(links *calendar.LinkStore) *CalendarHandler {
	return &CalendarHandler{links: links}
}

type calendarLinkView struct {
	Provider   string        `json:"provider"`
	CalendarID string        `json:"calendarId"`
	Token      *oauth2.Token `json:"token,omitempty"`
}

// ListLinks returns the caller's linked calendars. Tokens are never
// echoed back.
func (h *CalendarHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	links, err := h.links.List(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	views := make([]calendarLinkView, 0, len(links))
	for _, link := range links {
		views = append(views, calendarLinkView{
			Provider:   link.Provider,
			CalendarID: link.CalendarID,
		})
	}
	respondWithJSON(w, http.StatusOK, views)
}

// SaveLink stores or replaces a calendar link for the caller.
func (h *CalendarHandler) SaveLink(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req calendarLinkView
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Provider == "" {
		respondWithError(w, http.StatusBadRequest, "Provider is required", "", nil)
		return
	}

	link := calendar.Link{
		Provider:   req.Provider,
		CalendarID: req.CalendarID,
		Token:      req.Token,
	}
	if err := h.links.Save(r.Context(), user.ID, link); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearLinks unlinks every calendar for the caller.
func (h *CalendarHandler) ClearLinks(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	if err := h.links.Clear(r.Context(), user.ID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
