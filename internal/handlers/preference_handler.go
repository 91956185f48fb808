package handlers

import (
	"net/http"
	"time"

	"familytime/internal/models"
	"familytime/internal/service"
	"familytime/internal/timeslot"
	"familytime/internal/utils"
)

// PreferenceHandler handles availability preference HTTP requests
type PreferenceHandler struct {
	preferenceService *service.PreferenceService
	familyService     *service.FamilyService
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(preferenceService *service.PreferenceService, familyService *service.FamilyService) *PreferenceHandler {
	return &PreferenceHandler{
		preferenceService: preferenceService,
		familyService:     familyService,
	}
}

type preferenceView struct {
	Mode               string                       `json:"mode"`
	FollowedUserID     string                       `json:"followedUserId,omitempty"`
	Days               map[string][]timeslot.Window `json:"days"`
	MinDurationMinutes int                          `json:"minDurationMinutes"`
	MaxDurationMinutes int                          `json:"maxDurationMinutes"`
}

type availabilityView struct {
	Mode     string                       `json:"mode"`
	SourceID string                       `json:"sourceId,omitempty"`
	Days     map[string][]timeslot.Window `json:"days"`
	Deferred bool                         `json:"deferred"`
}

func daysToWire(days map[time.Weekday][]timeslot.Window) map[string][]timeslot.Window {
	out := make(map[string][]timeslot.Window, len(days))
	for day, windows := range days {
		out[models.WeekdayName(day)] = windows
	}
	return out
}

func daysFromWire(days map[string][]timeslot.Window) (map[time.Weekday][]timeslot.Window, error) {
	out := make(map[time.Weekday][]timeslot.Window, len(days))
	for name, windows := range days {
		day, ok := models.ParseWeekday(name)
		if !ok {
			return nil, utils.ValidationError{Field: "days", Message: "unknown weekday: " + name}
		}
		out[day] = windows
	}
	return out, nil
}

// GetPreference returns the caller's stored preference, or the default
// when none has been saved yet.
func (h *PreferenceHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	pref, err := h.preferenceService.Get(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preferenceView{
		Mode:               string(pref.Mode),
		FollowedUserID:     pref.FollowedUserID,
		Days:               daysToWire(pref.Days),
		MinDurationMinutes: pref.MinDurationMinutes,
		MaxDurationMinutes: pref.MaxDurationMinutes,
	})
}

// SavePreference validates and stores the caller's preference.
func (h *PreferenceHandler) SavePreference(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req preferenceView
	if !decodeJSONBody(w, r, &req) {
		return
	}

	days, err := daysFromWire(req.Days)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	pref := &models.UserPreference{
		UserID:             user.ID,
		Mode:               models.PreferenceMode(req.Mode),
		FollowedUserID:     req.FollowedUserID,
		Days:               days,
		MinDurationMinutes: req.MinDurationMinutes,
		MaxDurationMinutes: req.MaxDurationMinutes,
	}

	var family *models.Family
	if pref.Mode == models.ModeFollow && user.InFamily() {
		family, err = h.familyService.GetFamily(r.Context(), user.FamilyID)
		if err != nil {
			respondWithServiceError(w, err)
			return
		}
	}

	if err := h.preferenceService.Save(r.Context(), pref, family); err != nil {
		respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEffectiveAvailability resolves the caller's preference against the
// current family roster, following as needed.
func (h *PreferenceHandler) GetEffectiveAvailability(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var family *models.Family
	if user.InFamily() {
		loaded, err := h.familyService.GetFamily(r.Context(), user.FamilyID)
		if err != nil {
			respondWithServiceError(w, err)
			return
		}
		family = loaded
	}

	availability, err := h.preferenceService.Resolve(r.Context(), user.ID, family)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, availabilityView{
		Mode:     string(availability.Mode),
		SourceID: availability.SourceID,
		Days:     daysToWire(availability.Days),
		Deferred: availability.Deferred,
	})
}

// GetPresets lists the named slot presets and their bounds, in display
// order, for editor clients.
func (h *PreferenceHandler) GetPresets(w http.ResponseWriter, r *http.Request) {
	type presetView struct {
		Name  string `json:"name"`
		Start string `json:"start"`
		End   string `json:"end"`
	}

	presets := timeslot.Presets()
	views := make([]presetView, 0, len(presets))
	for _, preset := range presets {
		start, end, ok := timeslot.PresetBounds(preset)
		if !ok {
			continue
		}
		views = append(views, presetView{Name: string(preset), Start: start, End: end})
	}
	respondWithJSON(w, http.StatusOK, views)
}
