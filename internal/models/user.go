package models

// User field names used in partial (merge) writes, notably the
// cross-reference clears during leave/remove/delete.
const (
	FieldFamilyID   = "familyId"
	FieldFamilyRole = "familyRole"
)

// User is a user's own record: profile fields plus the family
// cross-reference. A user belongs to at most one family at a time, which
// this record (not the family record) enforces.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarEmoji string
	FamilyID    string
	FamilyRole  string
}

// InFamily reports whether the user currently references a family.
func (u *User) InFamily() bool {
	return u.FamilyID != ""
}

// Fields encodes the user into its document shape.
func (u *User) Fields() map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"displayName":   u.DisplayName,
		"avatarEmoji":   u.AvatarEmoji,
		FieldFamilyID:   u.FamilyID,
		FieldFamilyRole: u.FamilyRole,
	}
}

// DecodeUser decodes a user document, failing fast on malformed fields.
func DecodeUser(fields map[string]any) (*User, error) {
	id, err := getString(fields, "id")
	if err != nil {
		return nil, err
	}
	email, err := optString(fields, "email")
	if err != nil {
		return nil, err
	}
	displayName, err := optString(fields, "displayName")
	if err != nil {
		return nil, err
	}
	avatar, err := optString(fields, "avatarEmoji")
	if err != nil {
		return nil, err
	}
	familyID, err := optString(fields, FieldFamilyID)
	if err != nil {
		return nil, err
	}
	familyRole, err := optString(fields, FieldFamilyRole)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		AvatarEmoji: avatar,
		FamilyID:    familyID,
		FamilyRole:  familyRole,
	}, nil
}
