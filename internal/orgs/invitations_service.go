package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliuyar1234/teamhub/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invitationViewQuery = `
	SELECT
	  i.id,
	  i.invited_email,
	  i.status,
	  i.created_at,
	  i.responded_at,
	  o.id,
	  o.name,
	  u.id,
	  u.email
	FROM invitations i
	INNER JOIN orgs o ON o.id = i.org_id
	INNER JOIN users u ON u.id = i.invited_by_user_id
`

// CreateInvitation invites email into orgID on behalf of actorUserID, who
// must own the organization. email must already be normalized.
func (s *Service) CreateInvitation(ctx context.Context, orgID, actorUserID uuid.UUID, email string) (*Invitation, error) {
	if err := s.RequireOwner(ctx, actorUserID, orgID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var alreadyMember bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1
		  FROM org_memberships m
		  INNER JOIN users u ON u.id = m.user_id
		  WHERE m.org_id = $1 AND lower(u.email) = $2
		)
	`, orgID, email).Scan(&alreadyMember)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}
	if alreadyMember {
		return nil, ErrAlreadyMember
	}

	var inv Invitation
	err = tx.QueryRow(ctx, `
		INSERT INTO invitations (org_id, invited_by_user_id, invited_email)
		VALUES ($1, $2, $3)
		RETURNING id, org_id, invited_by_user_id, invited_email, status, created_at, responded_at
	`, orgID, actorUserID, email).Scan(
		&inv.ID,
		&inv.OrgID,
		&inv.InvitedByUserID,
		&inv.InvitedEmail,
		&inv.Status,
		&inv.CreatedAt,
		&inv.RespondedAt,
	)
	if err != nil {
		// invitations_one_pending_idx
		if db.IsUniqueViolation(err) {
			return nil, ErrInvitationPending
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, nil
}

// ListPendingForUser returns pending invitations addressed to the user's email
func (s *Service) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]InvitationView, error) {
	rows, err := s.pool.Query(ctx, invitationViewQuery+`
		INNER JOIN users me ON lower(me.email) = lower(i.invited_email)
		WHERE me.id = $1
		  AND i.status = 'pending'
		ORDER BY i.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	return collectInvitationViews(rows)
}

// ListOrgInvitations returns every invitation of an organization. Owner only.
func (s *Service) ListOrgInvitations(ctx context.Context, orgID, actorUserID uuid.UUID) ([]InvitationView, error) {
	if err := s.RequireOwner(ctx, actorUserID, orgID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, invitationViewQuery+`
		WHERE i.org_id = $1
		ORDER BY i.created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	return collectInvitationViews(rows)
}

func collectInvitationViews(rows pgx.Rows) ([]InvitationView, error) {
	defer rows.Close()

	views := []InvitationView{}
	for rows.Next() {
		var v InvitationView
		if err := rows.Scan(
			&v.ID,
			&v.InvitedEmail,
			&v.Status,
			&v.CreatedAt,
			&v.RespondedAt,
			&v.Organization.ID,
			&v.Organization.Name,
			&v.InvitedBy.ID,
			&v.InvitedBy.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return views, nil
}

// RespondToInvitation accepts or rejects an invitation addressed to userID.
// The invitation row is locked for the duration of the transaction, so two
// concurrent answers resolve to exactly one transition; the loser gets
// ErrInvitationNotPending. Accepting inserts the MEMBER membership in the same
// transaction.
func (s *Service) RespondToInvitation(ctx context.Context, invitationID, userID uuid.UUID, status InvitationStatus) (*Invitation, error) {
	if !status.IsResponse() {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var inv Invitation
	err = tx.QueryRow(ctx, `
		SELECT id, org_id, invited_by_user_id, invited_email, status, created_at, responded_at
		FROM invitations
		WHERE id = $1
		FOR UPDATE
	`, invitationID).Scan(
		&inv.ID,
		&inv.OrgID,
		&inv.InvitedByUserID,
		&inv.InvitedEmail,
		&inv.Status,
		&inv.CreatedAt,
		&inv.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	var userEmail string
	err = tx.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&userEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationEmailMismatch
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !strings.EqualFold(userEmail, inv.InvitedEmail) {
		return nil, ErrInvitationEmailMismatch
	}

	if err := inv.Status.Transition(status); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE invitations
		SET status = $2, responded_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING status, responded_at
	`, inv.ID, status).Scan(&inv.Status, &inv.RespondedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotPending
		}
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	if status == StatusAccepted {
		_, err = tx.Exec(ctx, `
			INSERT INTO org_memberships (org_id, user_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT (org_id, user_id) DO NOTHING
		`, inv.OrgID, userID, RoleMember)
		if err != nil {
			return nil, fmt.Errorf("failed to create membership: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &inv, nil
}
