package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"familytime/internal/docstore"
	"familytime/internal/models"
	"familytime/internal/service"
	"familytime/internal/utils"
)

// GetUserFromContext retrieves the caller loaded by RequireUser.
func GetUserFromContext(r *http.Request) *models.User {
	user, _ := r.Context().Value(UserContextKey).(*models.User)
	return user
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return false
	}
	return true
}

// respondWithServiceError maps the service layer's typed errors onto
// HTTP statuses. Precondition rejections carry their reason code so
// clients can branch without parsing prose.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var pe *service.PreconditionError
	if errors.As(err, &pe) {
		status := http.StatusConflict
		switch pe.Reason {
		case service.PreconditionNotOwner, service.PreconditionNotMember:
			status = http.StatusForbidden
		case service.PreconditionCodeNotFound, service.PreconditionRequestNotFound,
			service.PreconditionTargetNotFound, service.PreconditionRecordVanished:
			status = http.StatusNotFound
		case service.PreconditionSelfReference, service.PreconditionInviteInvalid:
			status = http.StatusBadRequest
		}
		respondWithJSON(w, status, map[string]string{"error": string(pe.Reason)})
		return
	}

	var ve utils.ValidationError
	if errors.As(err, &ve) {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"field":   ve.Field,
			"message": ve.Message,
		})
		return
	}

	if errors.Is(err, docstore.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Not found", "", nil)
		return
	}

	respondWithError(w, http.StatusInternalServerError, "Internal server error", "service call failed", err)
}

func respondWithOutcome(w http.ResponseWriter, outcome service.Outcome) {
	respondWithJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
}
