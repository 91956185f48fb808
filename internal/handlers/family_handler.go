package handlers

import (
	"context"
	"net/http"
	"time"

	"familytime/internal/models"
	"familytime/internal/service"
)

// FamilyHandler handles family membership HTTP requests
type FamilyHandler struct {
	familyService *service.FamilyService
	inviteService *service.InviteService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, inviteService *service.InviteService) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		inviteService: inviteService,
	}
}

type memberView struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	AvatarEmoji string `json:"avatarEmoji,omitempty"`
}

type joinRequestView struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	RequestedAt time.Time `json:"requestedAt"`
}

type familyView struct {
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	OwnerID        string            `json:"ownerId"`
	Members        []memberView      `json:"members"`
	PendingInvites []string          `json:"pendingInvites,omitempty"`
	JoinRequests   []joinRequestView `json:"joinRequests,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func newFamilyView(f *models.Family) familyView {
	view := familyView{
		Code:           f.ID,
		Name:           f.Name,
		OwnerID:        f.OwnerID,
		Members:        make([]memberView, 0, len(f.Members)),
		PendingInvites: f.PendingInvites,
		CreatedAt:      f.CreatedAt,
	}
	for _, m := range f.Members {
		view.Members = append(view.Members, memberView{
			UserID:      m.UserID,
			Email:       m.Email,
			Role:        m.Role,
			DisplayName: m.DisplayName,
			AvatarEmoji: m.AvatarEmoji,
		})
	}
	for _, req := range f.JoinRequests {
		view.JoinRequests = append(view.JoinRequests, joinRequestView{
			UserID:      req.UserID,
			Email:       req.Email,
			DisplayName: req.DisplayName,
			RequestedAt: req.RequestedAt,
		})
	}
	return view
}

// GetFamily returns the caller's current family.
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if !user.InFamily() {
		respondWithError(w, http.StatusNotFound, "Not in a family", "", nil)
		return
	}

	family, err := h.familyService.GetFamily(r.Context(), user.FamilyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newFamilyView(family))
}

// CreateFamily creates a family with the caller as owner.
func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	family, err := h.familyService.Create(r.Context(), user, req.Name)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, newFamilyView(family))
}

// JoinByCode records a join request against the family the code names.
func (h *FamilyHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.familyService.RequestJoin(r.Context(), user, req.Code)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// ApproveRequest lets the owner promote a pending join request to
// membership.
func (h *FamilyHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.familyService.Approve)
}

// RejectRequest lets the owner discard a pending join request.
func (h *FamilyHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.familyService.Reject)
}

// TransferOwnership moves the owner role to another member.
func (h *FamilyHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.familyService.TransferOwnership)
}

// RemoveMember evicts a member from the caller's family.
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, h.familyService.RemoveMember)
}

// ownerAction is the shared shape of owner-initiated transitions that
// target another user in the caller's family.
func (h *FamilyHandler) ownerAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, ownerID, familyID, targetUserID string) (service.Outcome, error)) {
	user := GetUserFromContext(r)

	var req struct {
		UserID string `json:"userId"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := action(r.Context(), user.ID, user.FamilyID, req.UserID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// LeaveFamily removes the caller from their family. A departing owner
// with remaining members must name a successor.
func (h *FamilyHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		NextOwnerID string `json:"nextOwnerId"`
	}
	if r.ContentLength > 0 && !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.familyService.Leave(r.Context(), user.ID, user.FamilyID, req.NextOwnerID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// DeleteFamily dissolves the caller's family entirely.
func (h *FamilyHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	outcome, err := h.familyService.Delete(r.Context(), user.ID, user.FamilyID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// InviteMember sends (or resends) an email invite to join the caller's
// family.
func (h *FamilyHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.inviteService.Invite(r.Context(), user.ID, user.FamilyID, req.Email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// RevokeInvite withdraws a pending email invite.
func (h *FamilyHandler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.inviteService.Revoke(r.Context(), user.ID, user.FamilyID, req.Email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}

// AcceptInvite redeems an invite token for the caller.
func (h *FamilyHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	outcome, err := h.inviteService.Accept(r.Context(), user, req.Token)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithOutcome(w, outcome)
}
