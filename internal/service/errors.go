package service

import (
	"errors"
	"fmt"
)

// Outcome is the result variant of an idempotent mutating transition.
type Outcome string

const (
	// OutcomeApplied means the transition changed the record.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyInState means the record was already in the requested
	// state and nothing was written.
	OutcomeAlreadyInState Outcome = "already-in-state"
)

// Precondition is a reason code for a rejected transition.
type Precondition string

const (
	PreconditionNotOwner        Precondition = "not-owner"
	PreconditionNotMember       Precondition = "not-member"
	PreconditionCodeNotFound    Precondition = "code-not-found"
	PreconditionRequestNotFound Precondition = "request-not-found"
	PreconditionTargetNotFound  Precondition = "target-not-found"
	PreconditionSelfReference   Precondition = "self-reference"
	PreconditionRecordVanished  Precondition = "record-vanished"
	PreconditionAlreadyInFamily Precondition = "already-in-family"
	PreconditionInviteInvalid   Precondition = "invite-invalid"
)

// PreconditionError is a typed, user-actionable rejection. No partial
// state change accompanies it.
type PreconditionError struct {
	Op     string
	Reason Precondition
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

// IsPrecondition reports whether err is a precondition rejection with
// the given reason.
func IsPrecondition(err error, reason Precondition) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Reason == reason
}

// StoreError wraps a store or network failure. The transition performed
// no partial mutation; the caller may safely retry the whole call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store failure: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
