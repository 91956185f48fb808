package service

import (
	"context"
	"errors"

	"familytime/internal/models"
	"familytime/internal/utils"
)

// InviteMailer sends an invite mail; satisfied by EmailService.
type InviteMailer interface {
	SendFamilyInvite(ctx context.Context, toEmail, familyName, inviterName, token string) error
}

// InviteService manages email invitations: the pendingInvites entries on
// the family record, the signed accept tokens, and delivery.
type InviteService struct {
	families *FamilyService
	signer   *InviteSigner
	mailer   InviteMailer
}

// NewInviteService creates a new invite service.
func NewInviteService(families *FamilyService, signer *InviteSigner, mailer InviteMailer) *InviteService {
	return &InviteService{families: families, signer: signer, mailer: mailer}
}

// Invite is owner-only: it records the email under pendingInvites and
// mails a signed accept link. Re-inviting an already-pending email
// resends the mail and reports AlreadyInState.
func (s *InviteService) Invite(ctx context.Context, ownerID, familyID, email string) (Outcome, error) {
	const op = "invite member"
	if err := utils.ValidateEmail(email); err != nil {
		return "", err
	}
	email = utils.NormalizeEmail(email)

	var familyName, inviterName string
	_, outcome, err := s.families.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if !f.IsOwner(ownerID) {
			return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
		}
		familyName = f.Name
		if owner, ok := f.MemberByID(ownerID); ok {
			inviterName = owner.DisplayName
		}
		if f.HasPendingInvite(email) {
			return OutcomeAlreadyInState, nil
		}
		f.PendingInvites = append(f.PendingInvites, email)
		return OutcomeApplied, nil
	})
	if err != nil {
		return "", err
	}

	token, err := s.signer.Sign(familyID, email)
	if err != nil {
		return "", &StoreError{Op: op, Err: err}
	}
	if err := s.mailer.SendFamilyInvite(ctx, email, familyName, inviterName, token); err != nil {
		return "", &StoreError{Op: op, Err: err}
	}
	return outcome, nil
}

// Revoke is owner-only: it removes a pending invite entry. Outstanding
// tokens for the email stop working because Accept re-checks the entry.
func (s *InviteService) Revoke(ctx context.Context, ownerID, familyID, email string) (Outcome, error) {
	const op = "revoke invite"
	email = utils.NormalizeEmail(email)
	_, outcome, err := s.families.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if !f.IsOwner(ownerID) {
			return "", &PreconditionError{Op: op, Reason: PreconditionNotOwner}
		}
		if !f.HasPendingInvite(email) {
			return OutcomeAlreadyInState, nil
		}
		f.PendingInvites = removeString(f.PendingInvites, email)
		return OutcomeApplied, nil
	})
	return outcome, err
}

// Accept verifies a signed invite token for the user and joins them
// directly as a member, bypassing the join-request queue. The token's
// email must match the accepting user's and the invite must still be
// pending.
func (s *InviteService) Accept(ctx context.Context, user *models.User, tokenText string) (Outcome, error) {
	const op = "accept invite"

	familyID, email, err := s.signer.Verify(tokenText)
	if err != nil {
		return "", &PreconditionError{Op: op, Reason: PreconditionInviteInvalid}
	}
	if utils.NormalizeEmail(user.Email) != email {
		return "", &PreconditionError{Op: op, Reason: PreconditionInviteInvalid}
	}
	if user.InFamily() && user.FamilyID != familyID {
		return "", &PreconditionError{Op: op, Reason: PreconditionAlreadyInFamily}
	}

	_, outcome, err := s.families.updateFamily(ctx, op, familyID, func(f *models.Family) (Outcome, error) {
		if f.IsMember(user.ID) {
			return OutcomeAlreadyInState, nil
		}
		if !f.HasPendingInvite(email) {
			return "", &PreconditionError{Op: op, Reason: PreconditionInviteInvalid}
		}
		f.PendingInvites = removeString(f.PendingInvites, email)
		f.JoinRequests = removeRequest(f.JoinRequests, user.ID)
		f.Members = append(f.Members, models.Member{
			UserID:      user.ID,
			Email:       email,
			Role:        models.RoleMember,
			DisplayName: user.DisplayName,
			AvatarEmoji: user.AvatarEmoji,
		})
		return OutcomeApplied, nil
	})
	if err != nil {
		var pe *PreconditionError
		if errors.As(err, &pe) && pe.Reason == PreconditionRecordVanished {
			return "", &PreconditionError{Op: op, Reason: PreconditionInviteInvalid}
		}
		return "", err
	}
	if outcome == OutcomeAlreadyInState {
		return outcome, nil
	}

	if err := s.families.setUserFamily(ctx, op, user.ID, familyID, models.RoleMember); err != nil {
		return "", err
	}
	return outcome, nil
}
