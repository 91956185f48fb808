package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// inviteClaims is the payload of a signed invite link: which family, for
// which email address, until when.
type inviteClaims struct {
	FamilyID string `json:"familyId"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// InviteSigner mints and verifies the HS256 tokens embedded in invite
// mails. Tokens are bound to a single family and email address.
type InviteSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewInviteSigner creates a signer. ttl bounds how long an invite link
// stays usable.
func NewInviteSigner(secret string, ttl time.Duration) *InviteSigner {
	return &InviteSigner{secret: []byte(secret), ttl: ttl}
}

// Sign mints an invite token for the email on the family.
func (s *InviteSigner) Sign(familyID, email string) (string, error) {
	now := time.Now()
	claims := inviteClaims{
		FamilyID: familyID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign invite token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the family id and email it was
// minted for.
func (s *InviteSigner) Verify(tokenText string) (familyID, email string, err error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &inviteClaims{}
	parsed, err := parser.ParseWithClaims(tokenText, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to parse invite token: %w", err)
	}
	if !parsed.Valid || claims.FamilyID == "" || claims.Email == "" {
		return "", "", fmt.Errorf("invalid invite token")
	}
	return claims.FamilyID, claims.Email, nil
}
