package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytime/internal/models"
)

// fakeMailer records invite mails instead of sending them.
type fakeMailer struct {
	sent []sentInvite
}

type sentInvite struct {
	To     string
	Family string
	Token  string
}

func (m *fakeMailer) SendFamilyInvite(ctx context.Context, toEmail, familyName, inviterName, token string) error {
	m.sent = append(m.sent, sentInvite{To: toEmail, Family: familyName, Token: token})
	return nil
}

func newInviteFixture(t *testing.T) (*InviteService, *FamilyService, *fakeMailer, string) {
	t.Helper()
	familyService, _, _, familyID := newFamilyFixture(t)
	mailer := &fakeMailer{}
	signer := NewInviteSigner("test-secret", time.Hour)
	return NewInviteService(familyService, signer, mailer), familyService, mailer, familyID
}

func TestInviteSignerRoundTrip(t *testing.T) {
	signer := NewInviteSigner("test-secret", time.Hour)

	token, err := signer.Sign("sunny-badger", "carol@example.com")
	require.NoError(t, err)

	familyID, email, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "sunny-badger", familyID)
	assert.Equal(t, "carol@example.com", email)
}

func TestInviteSignerRejectsForgedToken(t *testing.T) {
	signer := NewInviteSigner("test-secret", time.Hour)
	other := NewInviteSigner("other-secret", time.Hour)

	token, err := other.Sign("sunny-badger", "carol@example.com")
	require.NoError(t, err)

	_, _, err = signer.Verify(token)
	assert.Error(t, err)

	_, _, err = signer.Verify("not.a.token")
	assert.Error(t, err)
}

func TestInviteSignerRejectsExpiredToken(t *testing.T) {
	signer := NewInviteSigner("test-secret", -time.Minute)

	token, err := signer.Sign("sunny-badger", "carol@example.com")
	require.NoError(t, err)

	_, _, err = signer.Verify(token)
	assert.Error(t, err)
}

func TestInvite(t *testing.T) {
	invites, families, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	outcome, err := invites.Invite(ctx, alice().ID, familyID, "Carol@Example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	family := mustGetFamily(t, families, familyID)
	assert.True(t, family.HasPendingInvite("carol@example.com"))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "carol@example.com", mailer.sent[0].To)
	assert.Equal(t, "The Smiths", mailer.sent[0].Family)
	assert.NotEmpty(t, mailer.sent[0].Token)

	// Re-inviting resends the mail but writes nothing new.
	outcome, err = invites.Invite(ctx, alice().ID, familyID, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInState, outcome)
	assert.Len(t, mailer.sent, 2)

	family = mustGetFamily(t, families, familyID)
	assert.Len(t, family.PendingInvites, 1)
}

func TestInvitePreconditions(t *testing.T) {
	invites, _, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, bob().ID, familyID, "carol@example.com")
	assert.True(t, IsPrecondition(err, PreconditionNotOwner), "got %v", err)

	_, err = invites.Invite(ctx, alice().ID, familyID, "not-an-email")
	assert.Error(t, err)

	assert.Empty(t, mailer.sent)
}

func TestAcceptInviteRejectsMemberOfAnotherFamily(t *testing.T) {
	invites, families, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, alice().ID, familyID, carol().Email)
	require.NoError(t, err)
	token := mailer.sent[0].Token

	// Carol founds her own family before redeeming the invite.
	carolFamily, err := families.Create(ctx, carol(), "The Joneses")
	require.NoError(t, err)

	accepter := mustGetUser(t, families, carol().ID)
	_, err = invites.Accept(ctx, accepter, token)
	assert.True(t, IsPrecondition(err, PreconditionAlreadyInFamily), "got %v", err)

	family := mustGetFamily(t, families, familyID)
	assert.False(t, family.IsMember(carol().ID))
	assert.Equal(t, carolFamily.ID, mustGetUser(t, families, carol().ID).FamilyID)
}

func TestRevokeInvite(t *testing.T) {
	invites, families, _, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, alice().ID, familyID, "carol@example.com")
	require.NoError(t, err)

	outcome, err := invites.Revoke(ctx, alice().ID, familyID, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	family := mustGetFamily(t, families, familyID)
	assert.False(t, family.HasPendingInvite("carol@example.com"))

	outcome, err = invites.Revoke(ctx, alice().ID, familyID, "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInState, outcome)
}

func TestAcceptInvite(t *testing.T) {
	invites, families, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, alice().ID, familyID, carol().Email)
	require.NoError(t, err)
	token := mailer.sent[0].Token

	outcome, err := invites.Accept(ctx, carol(), token)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	family := mustGetFamily(t, families, familyID)
	assert.True(t, family.IsMember(carol().ID))
	assert.False(t, family.HasPendingInvite(carol().Email))

	user := mustGetUser(t, families, carol().ID)
	assert.Equal(t, familyID, user.FamilyID)
	assert.Equal(t, models.RoleMember, user.FamilyRole)

	// Accepting again is a no-op.
	outcome, err = invites.Accept(ctx, carol(), token)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyInState, outcome)
}

func TestAcceptInviteRejectsWrongUser(t *testing.T) {
	invites, _, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, alice().ID, familyID, carol().Email)
	require.NoError(t, err)
	token := mailer.sent[0].Token

	stranger := &models.User{ID: "u-dan", Email: "dan@example.com", DisplayName: "Dan"}
	_, err = invites.Accept(ctx, stranger, token)
	assert.True(t, IsPrecondition(err, PreconditionInviteInvalid), "got %v", err)
}

func TestAcceptInviteAfterRevoke(t *testing.T) {
	invites, _, mailer, familyID := newInviteFixture(t)
	ctx := context.Background()

	_, err := invites.Invite(ctx, alice().ID, familyID, carol().Email)
	require.NoError(t, err)
	token := mailer.sent[0].Token

	_, err = invites.Revoke(ctx, alice().ID, familyID, carol().Email)
	require.NoError(t, err)

	// The signed token is still within its ttl but no longer redeems.
	_, err = invites.Accept(ctx, carol(), token)
	assert.True(t, IsPrecondition(err, PreconditionInviteInvalid), "got %v", err)
}

func TestAcceptInviteBadToken(t *testing.T) {
	invites, _, _, _ := newInviteFixture(t)

	_, err := invites.Accept(context.Background(), carol(), "garbage")
	assert.True(t, IsPrecondition(err, PreconditionInviteInvalid), "got %v", err)
}
