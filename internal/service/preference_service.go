package service

import (
	"context"
	"errors"

	"familytime/internal/docstore"
	"familytime/internal/models"
	"familytime/internal/timeslot"
	"familytime/internal/utils"
)

// PreferenceService persists per-user availability preferences. Each
// preference document is written only by its owning user, so writes need
// no version guard.
type PreferenceService struct {
	store docstore.Store
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(store docstore.Store) *PreferenceService {
	return &PreferenceService{store: store}
}

// Get loads a user's preference, returning the defaults when none has
// been saved yet.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.UserPreference, error) {
	const op = "get preference"
	doc, err := s.store.Get(ctx, models.CollectionPreferences, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.DefaultPreference(userID), nil
	}
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return models.DecodePreference(doc.Fields)
}

// Save validates and writes a user's preference. Follow mode must name
// another current member of the user's family. Day windows are run
// through the interval merger before persisting so stored documents are
// always normalized.
func (s *PreferenceService) Save(ctx context.Context, pref *models.UserPreference, family *models.Family) error {
	const op = "save preference"
	if err := pref.Validate(); err != nil {
		return err
	}
	if pref.Mode == models.ModeFollow {
		if family == nil || !family.IsMember(pref.FollowedUserID) {
			return &PreconditionError{Op: op, Reason: PreconditionTargetNotFound}
		}
		if !family.IsMember(pref.UserID) {
			return &PreconditionError{Op: op, Reason: PreconditionNotMember}
		}
	}

	normalized := *pref
	normalized.Days = normalizeDays(pref.Days)

	if err := s.store.Set(ctx, models.CollectionPreferences, pref.UserID, normalized.Fields()); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

// Resolve loads everything needed to answer "whose windows count for
// this user" and delegates to the pure resolver.
func (s *PreferenceService) Resolve(ctx context.Context, userID string, family *models.Family) (EffectiveAvailability, error) {
	pref, err := s.Get(ctx, userID)
	if err != nil {
		return EffectiveAvailability{}, err
	}
	lookup := func(id string) *models.UserPreference {
		followed, err := s.Get(ctx, id)
		if err != nil {
			return nil
		}
		return followed
	}
	return Resolve(pref, family, lookup), nil
}

// ValidateWindow is a write-time guard for a single edited window,
// surfaced to callers before any document write is attempted.
func ValidateWindow(start, end string) error {
	if !timeslot.IsRange(start, end) {
		return utils.ValidationError{Field: "window", Message: "end must be after start, both HH:MM"}
	}
	return nil
}
