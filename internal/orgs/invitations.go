package orgs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationNotPending    = errors.New("invitation has already been answered")
	ErrInvitationEmailMismatch = errors.New("invitation is addressed to another email")
	ErrInvitationPending       = errors.New("a pending invitation already exists for this email")
	ErrAlreadyMember           = errors.New("user is already a member of this organization")
	ErrInvalidStatus           = errors.New("status must be accepted or rejected")
)

// InvitationStatus is the lifecycle state of an invitation
type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

// IsResponse reports whether s is a status an invitee may answer with
func (s InvitationStatus) IsResponse() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Transition validates moving an invitation from s to next. Only
// pending→accepted and pending→rejected are allowed, and only once.
func (s InvitationStatus) Transition(next InvitationStatus) error {
	if !next.IsResponse() {
		return ErrInvalidStatus
	}
	if s != StatusPending {
		return ErrInvitationNotPending
	}
	return nil
}

// Invitation is a pending or answered offer to join an organization
type Invitation struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	OrgID           uuid.UUID        `db:"org_id" json:"organizationId"`
	InvitedByUserID uuid.UUID        `db:"invited_by_user_id" json:"invitedById"`
	InvitedEmail    string           `db:"invited_email" json:"invitedEmail"`
	Status          InvitationStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	RespondedAt     *time.Time       `db:"responded_at" json:"respondedAt,omitempty"`
}

// OrgRef is the organization summary embedded in invitation listings
type OrgRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserRef is the inviter summary embedded in invitation listings
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// InvitationView is an invitation joined with its organization and inviter
type InvitationView struct {
	ID           uuid.UUID        `json:"id"`
	InvitedEmail string           `json:"invitedEmail"`
	Status       InvitationStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	RespondedAt  *time.Time       `json:"respondedAt,omitempty"`
	Organization OrgRef           `json:"organization"`
	InvitedBy    UserRef          `json:"invitedBy"`
}
