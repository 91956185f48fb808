package models

import (
	"time"

	"familytime/internal/utils"
)

// Member roles. Exactly one member of a family holds RoleAdmin and it is
// always the owner.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Store collections.
const (
	CollectionFamilies = "families"
	CollectionUsers    = "users"
)

// Family field names used in partial (merge) writes.
const (
	FieldMembers        = "members"
	FieldJoinRequests   = "joinRequests"
	FieldPendingInvites = "pendingInvites"
	FieldOwnerID        = "ownerId"
	FieldOwnerEmail     = "ownerEmail"
	FieldCodeVariants   = "codeVariants"
)

// Member is a user's entry in a family roster.
type Member struct {
	UserID      string
	Email       string
	Role        string
	DisplayName string
	AvatarEmoji string
}

// JoinRequest is a pending, owner-reviewable request to join a family by
// code. At most one exists per user per family.
type JoinRequest struct {
	UserID      string
	Email       string
	DisplayName string
	RequestedAt time.Time
}

// Family is the shared group record. ID is the human-readable code and
// is immutable; CodeVariants holds the alternate spellings a typed code
// resolves through.
type Family struct {
	ID             string
	Name           string
	OwnerID        string
	OwnerEmail     string
	Members        []Member
	PendingInvites []string
	JoinRequests   []JoinRequest
	CodeVariants   []string
	CreatedAt      time.Time
}

// MemberByID returns the roster entry for a user.
func (f *Family) MemberByID(userID string) (*Member, bool) {
	for i := range f.Members {
		if f.Members[i].UserID == userID {
			return &f.Members[i], true
		}
	}
	return nil, false
}

// IsMember reports whether the user appears in the roster.
func (f *Family) IsMember(userID string) bool {
	_, ok := f.MemberByID(userID)
	return ok
}

// IsOwner reports whether the user owns the family.
func (f *Family) IsOwner(userID string) bool {
	return f.OwnerID != "" && f.OwnerID == userID
}

// RequestByUser returns the pending join request for a user.
func (f *Family) RequestByUser(userID string) (*JoinRequest, bool) {
	for i := range f.JoinRequests {
		if f.JoinRequests[i].UserID == userID {
			return &f.JoinRequests[i], true
		}
	}
	return nil, false
}

// HasPendingInvite reports whether the (normalized) email has an open
// invitation.
func (f *Family) HasPendingInvite(email string) bool {
	email = utils.NormalizeEmail(email)
	for _, e := range f.PendingInvites {
		if e == email {
			return true
		}
	}
	return false
}

// Validate checks the record invariants: no duplicate members, and
// either exactly one admin matching OwnerID or an empty roster with
// cleared owner fields.
func (f *Family) Validate() error {
	if f.ID == "" {
		return utils.ValidationError{Field: "id", Message: "missing family id"}
	}

	seen := make(map[string]bool, len(f.Members))
	admins := 0
	for _, m := range f.Members {
		if seen[m.UserID] {
			return utils.ValidationError{Field: FieldMembers, Message: "duplicate member " + m.UserID}
		}
		seen[m.UserID] = true
		if m.Role == RoleAdmin {
			admins++
			if m.UserID != f.OwnerID {
				return utils.ValidationError{Field: FieldOwnerID, Message: "admin does not match owner"}
			}
		}
	}

	if len(f.Members) == 0 {
		if f.OwnerID != "" || f.OwnerEmail != "" {
			return utils.ValidationError{Field: FieldOwnerID, Message: "ownerless family must clear owner fields"}
		}
		return nil
	}
	if f.OwnerID == "" {
		// Ownerless but populated: reached only when a sole owner left and
		// other members joined before anyone claimed ownership.
		if admins != 0 {
			return utils.ValidationError{Field: FieldOwnerID, Message: "admin present without owner id"}
		}
		return nil
	}
	if admins != 1 {
		return utils.ValidationError{Field: FieldMembers, Message: "family must have exactly one admin"}
	}
	if !f.IsMember(f.OwnerID) {
		return utils.ValidationError{Field: FieldOwnerID, Message: "owner is not a member"}
	}
	return nil
}

// Fields encodes the family into its document shape.
func (f *Family) Fields() map[string]any {
	members := make([]map[string]any, len(f.Members))
	for i, m := range f.Members {
		members[i] = map[string]any{
			"userId":      m.UserID,
			"email":       m.Email,
			"role":        m.Role,
			"displayName": m.DisplayName,
			"avatarEmoji": m.AvatarEmoji,
		}
	}
	requests := make([]map[string]any, len(f.JoinRequests))
	for i, r := range f.JoinRequests {
		requests[i] = map[string]any{
			"userId":      r.UserID,
			"email":       r.Email,
			"displayName": r.DisplayName,
			"requestedAt": r.RequestedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return map[string]any{
		"id":                f.ID,
		"name":              f.Name,
		FieldOwnerID:        f.OwnerID,
		FieldOwnerEmail:     f.OwnerEmail,
		FieldMembers:        members,
		FieldPendingInvites: append([]string(nil), f.PendingInvites...),
		FieldJoinRequests:   requests,
		FieldCodeVariants:   append([]string(nil), f.CodeVariants...),
		"createdAt":         f.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeFamily decodes and validates a family document. Malformed
// documents fail here, at the store boundary.
func DecodeFamily(fields map[string]any) (*Family, error) {
	id, err := getString(fields, "id")
	if err != nil {
		return nil, err
	}
	name, err := getString(fields, "name")
	if err != nil {
		return nil, err
	}
	ownerID, err := optString(fields, FieldOwnerID)
	if err != nil {
		return nil, err
	}
	ownerEmail, err := optString(fields, FieldOwnerEmail)
	if err != nil {
		return nil, err
	}
	invites, err := getStringList(fields, FieldPendingInvites)
	if err != nil {
		return nil, err
	}
	variants, err := getStringList(fields, FieldCodeVariants)
	if err != nil {
		return nil, err
	}
	createdAt, err := getTime(fields, "createdAt")
	if err != nil {
		return nil, err
	}

	memberMaps, err := getMapList(fields, FieldMembers)
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(memberMaps))
	for _, m := range memberMaps {
		member, err := decodeMember(m)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	requestMaps, err := getMapList(fields, FieldJoinRequests)
	if err != nil {
		return nil, err
	}
	requests := make([]JoinRequest, 0, len(requestMaps))
	for _, m := range requestMaps {
		request, err := decodeJoinRequest(m)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	family := &Family{
		ID:             id,
		Name:           name,
		OwnerID:        ownerID,
		OwnerEmail:     ownerEmail,
		Members:        members,
		PendingInvites: invites,
		JoinRequests:   requests,
		CodeVariants:   variants,
		CreatedAt:      createdAt,
	}
	if err := family.Validate(); err != nil {
		return nil, err
	}
	return family, nil
}

func decodeMember(fields map[string]any) (Member, error) {
	userID, err := getString(fields, "userId")
	if err != nil {
		return Member{}, err
	}
	email, err := optString(fields, "email")
	if err != nil {
		return Member{}, err
	}
	role, err := getString(fields, "role")
	if err != nil {
		return Member{}, err
	}
	if role != RoleAdmin && role != RoleMember {
		return Member{}, utils.ValidationError{Field: "role", Message: "unknown role " + role}
	}
	displayName, err := optString(fields, "displayName")
	if err != nil {
		return Member{}, err
	}
	avatar, err := optString(fields, "avatarEmoji")
	if err != nil {
		return Member{}, err
	}
	return Member{
		UserID:      userID,
		Email:       email,
		Role:        role,
		DisplayName: displayName,
		AvatarEmoji: avatar,
	}, nil
}

func decodeJoinRequest(fields map[string]any) (JoinRequest, error) {
	userID, err := getString(fields, "userId")
	if err != nil {
		return JoinRequest{}, err
	}
	email, err := optString(fields, "email")
	if err != nil {
		return JoinRequest{}, err
	}
	displayName, err := optString(fields, "displayName")
	if err != nil {
		return JoinRequest{}, err
	}
	requestedAt, err := getTime(fields, "requestedAt")
	if err != nil {
		return JoinRequest{}, err
	}
	return JoinRequest{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		RequestedAt: requestedAt,
	}, nil
}
