package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytime/internal/docstore"
	"familytime/internal/familycode"
	"familytime/internal/models"
	"familytime/internal/utils"
)

// CalendarUnlinker clears a user's linked external calendar references.
// The service treats the clear as opaque.
type CalendarUnlinker interface {
	Clear(ctx context.Context, userID string) error
}

// Every mutating transition is a read-validate-write cycle against the
// family document, guarded by an expected-version compare-and-swap. A
// conflicting concurrent write is retried from a fresh snapshot up to
// casAttempts times before surfacing a retryable store error.
const (
	casAttempts = 3
	casBackoff  = 25 * time.Millisecond
)

// FamilyService owns all mutating transitions on family records and the
// companion cleanup of affected users' own records.
type FamilyService struct {
	store    docstore.Store
	calendar CalendarUnlinker
}

// NewFamilyService creates a new family service.
func NewFamilyService(store docstore.Store, calendar CalendarUnlinker) *FamilyService {
	return &FamilyService{store: store, calendar: calendar}
}

// GetFamily retrieves and decodes a family record.
func (s *FamilyService) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	const op = "get family"
	doc, err := s.store.Get(ctx, models.CollectionFamilies, familyID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, &PreconditionError{Op: op, Reason: PreconditionRecordVanished}
	}
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return models.DecodeFamily(doc.Fields)
}

// GetUser retrieves and decodes a user record.
func (s *FamilyService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "get user"
	doc, err := s.store.Get(ctx, models.CollectionUsers, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, &PreconditionError{Op: op, Reason: PreconditionTargetNotFound}
	}
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return models.DecodeUser(doc.Fields)
}

// Create generates a unique code, writes a new family with the creator
// as sole owner, and points the creator's own record at it.
func (s *FamilyService) Create(ctx context.Context, user *models.User, name string) (*models.Family, error) {
	const op = "create family"
	if err := utils.ValidateName(name); err != nil {
		return nil, err
	}
	if user.InFamily() {
		return nil, &PreconditionError{Op: op, Reason: PreconditionAlreadyInFamily}
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		code, err := familycode.Generate(ctx, s.codeTaken)
		if err != nil {
			return nil, &StoreError{Op: op, Err: err}
		}

		family := &models.Family{
			ID:         code,
			Name:       name,
			OwnerID:    user.ID,
			OwnerEmail: utils.NormalizeEmail(user.Email),
			Members: []models.Member{{
				UserID:      user.ID,
				Email:       utils.NormalizeEmail(user.Email),
				Role:        models.RoleAdmin,
				DisplayName: user.DisplayName,
				AvatarEmoji: user.AvatarEmoji,
			}},
			CodeVariants: familycode.Variants(code),
			CreatedAt:    time.Now().UTC(),
		}

		// Expected version 0 asserts the code is still unclaimed; a
		// conflict means we lost a race for it and draw again.
		err = s.store.Set(ctx, models.CollectionFamilies, code, family.Fields(), docstore.WithExpectedVersion(0))
		if errors.Is(err, docstore.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, &StoreError{Op: op, Err: err}
		}

		if err := s.setUserFamily(ctx, op, user.ID, code, models.RoleAdmin); err != nil {
			return nil, err
		}
		return family, nil
	}
	return nil, &StoreError{Op: op, Err: errors.New("could not claim a unique family code")}
}

// codeTaken reports whether a candidate code collides with an existing
// family id or any registered lookup variant.
func (s *FamilyService) codeTaken(ctx context.Context, code string) (bool, error) {
	_, err := s.store.Get(ctx, models.CollectionFamilies, code)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return false, err
	}
	matches, err := s.store.QueryContains(ctx, models.CollectionFamilies, models.FieldCodeVariants, code)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// FindByCode resolves a typed code to a family through its lookup
// variants, tolerating case, diacritics, and stray punctuation.
func (s *FamilyService) FindByCode(ctx context.Context, code string) (*models.Family, error) {
	const op = "find family by code"
	for _, variant := range familycode.Variants(code) {
		doc, err := s.store.Get(ctx, models.CollectionFamilies, variant)
		if err == nil {
			return models.DecodeFamily(doc.Fields)
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return nil, &StoreError{Op: op, Err: err}
		}

		matches, err := s.store.QueryContains(ctx, models.CollectionFamilies, models.FieldCodeVariants, variant)
		if err != nil {
			return nil, &StoreError{Op: op, Err: err}
		}
		if len(matches) > 0 {
			return models.DecodeFamily(matches[0].Fields)
		}
	}
	return nil, &PreconditionError{Op: op, Reason: PreconditionCodeNotFound}
}

// RequestJoin appends a join request for the user on the family the code
// resolves to. A user whose own record already points at a different
// family is rejected; already being a member or already having a
// pending request short-circuits without a write.
func (s *FamilyService) RequestJoin(ctx context.Context, user *models.User, code string) (Outcome, error) {
	const op = "request join"
	family, err := s.FindByCode(ctx, code)
	if err != nil {
		var pe *PreconditionError
		if errors.As(err, &pe) {
			return "", &PreconditionError{Op: op, Reason: pe.Reason}
		}
		return "", err
	}
	if user.InFamily() && user.FamilyID != family.ID {
		return "", &PreconditionError{Op: op, Reason: PreconditionAlreadyInFamily}
	}

	_, outcome, err := s.updateFamily(ctx, op, family.ID, func(f *models.Family) (Outcome, error) {
		if f.IsMember(user.ID) {
			return OutcomeAlreadyInState, nil
		}
		if _, pending := f.RequestByUser(user.ID); pending {
			return OutcomeAlreadyInState, nil
		}
		f.JoinRequests = append(f.JoinRequests, models.JoinRequest{
			UserID:      user.ID,
			Email:       utils.NormalizeEmail(user.Email),
			DisplayName: user.DisplayName,
			RequestedAt: time.Now().UTC(),
		})
		return OutcomeApplied, nil
	})
	return outcome, err
}

// Approve is owner-only: it removes the matching join request, adds the
// requester as a member if they are not one already, and purges any
// pending invite held for their email. The requester's own record is
// re-read first; a requester who joined another family since asking is
// rejected rather than silently repointed.
func (s *FamilyService) Approve(ctx context.Context, ownerID, familyID, targetUserID string) (Outcome, error) {
	const op = "approve join request"

	elsewhere, err := s.affiliatedElsewhere(ctx, targetUserID, familyID)
	if err != nil {
		return "", err
	}
	if elsewhere {
		return "", &PreconditionError{Op: op, Reason: PreconditionAlreadyInFamily}
	}

	var approved models.JoinRequest
	_, outcome, err := s.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if !f.IsOwner(ownerID) {
			return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
		}
		request, ok := f.RequestByUser(targetUserID)
		if !ok {
			return "", &PreconditionError{Op: op, Reason: PreconditionRequestNotFound}
		}
		approved = *request
		f.JoinRequests = removeRequest(f.JoinRequests, targetUserID)
		if !f.IsMember(targetUserID) {
			f.Members = append(f.Members, models.Member{
				UserID:      approved.UserID,
				Email:       approved.Email,
				Role:        models.RoleMember,
				DisplayName: approved.DisplayName,
			})
		}
		if approved.Email != "" {
			f.PendingInvites = removeString(f.PendingInvites, approved.Email)
		}
		return OutcomeApplied, nil
	})
	if err != nil {
		return "", err
	}

	if err := s.setUserFamily(ctx, op, targetUserID, familyID, models.RoleMember); err != nil {
		return "", err
	}
	return outcome, nil
}

// Reject is owner-only: it removes the matching join request and nothing
// else.
func (s *FamilyService) Reject(ctx context.Context, ownerID, familyID, targetUserID string) (Outcome, error) {
	const op = "reject join request"
	_, outcome, err := s.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if !f.IsOwner(ownerID) {
			return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
		}
		if _, ok := f.RequestByUser(targetUserID); !ok {
			return "", &PreconditionError{Op: op, Reason: PreconditionRequestNotFound}
		}
		f.JoinRequests = removeRequest(f.JoinRequests, targetUserID)
		return OutcomeApplied, nil
	})
	return outcome, err
}

// TransferOwnership promotes an existing member to owner and demotes the
// current owner to plain member, updating the owner fields in the same
// write.
func (s *FamilyService) TransferOwnership(ctx context.Context, ownerID, familyID, targetUserID string) (Outcome, error) {
	const op = "transfer ownership"
	_, outcome, err := s.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		return transferOwner(op, f, ownerID, targetUserID)
	})
	if err != nil {
		return "", err
	}

	if err := s.setUserFamily(ctx, op, targetUserID, familyID, models.RoleAdmin); err != nil {
		return "", err
	}
	if err := s.setUserFamily(ctx, op, ownerID, familyID, models.RoleMember); err != nil {
		return "", err
	}
	return outcome, nil
}

// transferOwner applies the role swap on the in-memory record; shared by
// TransferOwnership and owner departure in Leave.
func transferOwner(op string, f *models.Family, ownerID, targetUserID string) (Outcome, error) {
	if !f.IsOwner(ownerID) {
		return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
	}
	if targetUserID == ownerID {
		return "", &PreconditionError{Op: op, Reason: PreconditionSelfReference}
	}
	target, ok := f.MemberByID(targetUserID)
	if !ok {
		return "", &PreconditionError{Op: op, Reason: PreconditionTargetNotFound}
	}
	if current, ok := f.MemberByID(ownerID); ok {
		current.Role = models.RoleMember
	}
	target.Role = models.RoleAdmin
	f.OwnerID = target.UserID
	f.OwnerEmail = target.Email
	return OutcomeApplied, nil
}

// RemoveMember is owner-only: it deletes the target from the roster,
// purges their pending invite entries, clears their cross-reference
// fields, and unlinks their calendars.
func (s *FamilyService) RemoveMember(ctx context.Context, ownerID, familyID, targetUserID string) (Outcome, error) {
	const op = "remove member"

	var removed models.Member
	_, outcome, err := s.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if !f.IsOwner(ownerID) {
			return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
		}
		if targetUserID == ownerID {
			return "", &PreconditionError{Op: op, Reason: PreconditionSelfReference}
		}
		target, ok := f.MemberByID(targetUserID)
		if !ok {
			return "", &PreconditionError{Op: op, Reason: PreconditionTargetNotFound}
		}
		removed = *target
		f.Members = removeMember(f.Members, targetUserID)
		if removed.Email != "" {
			f.PendingInvites = removeString(f.PendingInvites, removed.Email)
		}
		return OutcomeApplied, nil
	})
	if err != nil {
		return "", err
	}

	if err := s.clearUserFamily(ctx, op, targetUserID); err != nil {
		return "", err
	}
	return outcome, nil
}

// Leave removes the user from the family. A departing owner with other
// members remaining must name nextOwnerID, which receives ownership in
// the same write; a sole owner leaves the family ownerless but intact.
// A nextOwnerID supplied by a non-owner is ignored. Leaving a family
// one is not in reports AlreadyInState.
func (s *FamilyService) Leave(ctx context.Context, userID, familyID, nextOwnerID string) (Outcome, error) {
	const op = "leave family"
	var transferred bool
	_, outcome, err := s.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		transferred = false
		if !f.IsMember(userID) {
			return OutcomeAlreadyInState, nil
		}

		if f.IsOwner(userID) {
			if len(f.Members) > 1 {
				if outcome, err := transferOwner(op, f, userID, nextOwnerID); err != nil {
					return outcome, err
				}
				transferred = true
			} else {
				f.OwnerID = ""
				f.OwnerEmail = ""
			}
		}
		f.Members = removeMember(f.Members, userID)
		return OutcomeApplied, nil
	})
	if err != nil {
		return "", err
	}
	if outcome == OutcomeAlreadyInState {
		return outcome, nil
	}

	if transferred {
		if err := s.setUserFamily(ctx, op, nextOwnerID, familyID, models.RoleAdmin); err != nil {
			return "", err
		}
	}
	if err := s.clearUserFamily(ctx, op, userID); err != nil {
		return "", err
	}
	return outcome, nil
}

// Delete is owner-only: it clears every member's cross-reference fields
// and calendar links, then deletes the family record itself. Deleting an
// already-absent family reports AlreadyInState.
func (s *FamilyService) Delete(ctx context.Context, ownerID, familyID string) (Outcome, error) {
	const op = "delete family"

	doc, err := s.store.Get(ctx, models.CollectionFamilies, familyID)
	if errors.Is(err, docstore.ErrNotFound) {
		return OutcomeAlreadyInState, nil
	}
	if err != nil {
		return "", &StoreError{Op: op, Err: err}
	}
	family, err := models.DecodeFamily(doc.Fields)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !family.IsOwner(ownerID) {
		return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
	}

	for _, member := range family.Members {
		if err := s.clearUserFamily(ctx, op, member.UserID); err != nil {
			return "", err
		}
	}

	if err := s.store.Delete(ctx, models.CollectionFamilies, familyID); err != nil {
		return "", &StoreError{Op: op, Err: err}
	}
	return OutcomeApplied, nil
}

// updateFamily runs one transition as a read-validate-write cycle with a
// version compare-and-swap, retrying the whole cycle on conflict.
func (s *FamilyService) updateFamily(ctx context.Context, op, familyID string, mutate func(*models.Family) (Outcome, error)) (*models.Family, Outcome, error) {
	for attempt := 0; ; attempt++ {
		doc, err := s.store.Get(ctx, models.CollectionFamilies, familyID)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, "", &PreconditionError{Op: op, Reason: PreconditionRecordVanished}
		}
		if err != nil {
			return nil, "", &StoreError{Op: op, Err: err}
		}

		family, err := models.DecodeFamily(doc.Fields)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		outcome, err := mutate(family)
		if err != nil {
			return nil, "", err
		}
		if outcome == OutcomeAlreadyInState {
			return family, outcome, nil
		}

		if err := family.Validate(); err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		err = s.store.Set(ctx, models.CollectionFamilies, familyID, family.Fields(),
			docstore.WithExpectedVersion(doc.Version))
		if err == nil {
			return family, OutcomeApplied, nil
		}
		if !errors.Is(err, docstore.ErrVersionConflict) {
			return nil, "", &StoreError{Op: op, Err: err}
		}
		if attempt+1 >= casAttempts {
			return nil, "", &StoreError{Op: op, Err: err}
		}
		time.Sleep(casBackoff * time.Duration(attempt+1))
	}
}

// affiliatedElsewhere reports whether the user's own record points at a
// family other than familyID. An absent record carries no affiliation.
func (s *FamilyService) affiliatedElsewhere(ctx context.Context, userID, familyID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		var pe *PreconditionError
		if errors.As(err, &pe) {
			return false, nil
		}
		return false, err
	}
	return user.InFamily() && user.FamilyID != familyID, nil
}

// setUserFamily points a user's own record at the family.
func (s *FamilyService) setUserFamily(ctx context.Context, op, userID, familyID, role string) error {
	fields := map[string]any{
		models.FieldFamilyID:   familyID,
		models.FieldFamilyRole: role,
		"updatedAt":            docstore.ServerTimestamp,
	}
	if err := s.store.Set(ctx, models.CollectionUsers, userID, fields, docstore.WithMerge()); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	return nil
}

// clearUserFamily removes a user's family cross-references and unlinks
// their calendars.
func (s *FamilyService) clearUserFamily(ctx context.Context, op, userID string) error {
	fields := map[string]any{
		models.FieldFamilyID:   docstore.DeleteField,
		models.FieldFamilyRole: docstore.DeleteField,
		"updatedAt":            docstore.ServerTimestamp,
	}
	if err := s.store.Set(ctx, models.CollectionUsers, userID, fields, docstore.WithMerge()); err != nil {
		return &StoreError{Op: op, Err: err}
	}
	if s.calendar != nil {
		if err := s.calendar.Clear(ctx, userID); err != nil {
			return &StoreError{Op: op, Err: err}
		}
	}
	return nil
}

func removeMember(members []models.Member, userID string) []models.Member {
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}

func removeRequest(requests []models.JoinRequest, userID string) []models.JoinRequest {
	out := make([]models.JoinRequest, 0, len(requests))
	for _, r := range requests {
		if r.UserID != userID {
			out = append(out, r)
		}
	}
	return out
}

func removeString(values []string, value string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
