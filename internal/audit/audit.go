package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	EventUserCreated           = "user.created"
	EventUserUpdated           = "user.updated"
	EventUserDeleted           = "user.deleted"
	EventUserPasswordChanged   = "user.password_changed"
	EventLoginFailed           = "auth.login_failed"
	EventOrgCreated            = "org.created"
	EventInvitationCreated     = "invitation.created"
	EventInvitationAccepted    = "invitation.accepted"
	EventInvitationRejected    = "invitation.rejected"
	EventTeamCreated           = "team.created"
	EventTeamSupervisorChanged = "team.supervisor_changed"
	EventTeamMemberAdded       = "team.member_added"
	EventTeamMemberRemoved     = "team.member_removed"
	EventTeamDeleted           = "team.deleted"
)

// Writer provides methods to write audit log entries.
type Writer struct {
	pool *pgxpool.Pool
}

func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// LogParams contains parameters for logging an audit event.
type LogParams struct {
	OrgID       *uuid.UUID
	ActorUserID *uuid.UUID
	Action      string
	Meta        map[string]interface{}
}

// Log writes one audit row. A nil Writer discards the event.
func (w *Writer) Log(ctx context.Context, params LogParams) error {
	if w == nil || w.pool == nil {
		return nil
	}

	metaJSON := []byte("{}")
	if params.Meta != nil {
		b, err := json.Marshal(params.Meta)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal audit meta")
			return err
		}
		metaJSON = b
	}

	query := `
		INSERT INTO audit_log (org_id, actor_user_id, action, meta, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := w.pool.Exec(ctx, query, toNullUUID(params.OrgID), toNullUUID(params.ActorUserID), params.Action, metaJSON, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Str("action", params.Action).Msg("Failed to write audit log")
		return err
	}

	log.Debug().
		Str("action", params.Action).
		Interface("org_id", params.OrgID).
		Interface("actor_user_id", params.ActorUserID).
		Msg("Audit event logged")

	return nil
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (w *Writer) LogUserCreated(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserCreated,
		Meta: map[string]interface{}{
			"email": email,
		},
	})
}

func (w *Writer) LogUserUpdated(ctx context.Context, userID uuid.UUID, fields []string) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserUpdated,
		Meta: map[string]interface{}{
			"fields": fields,
		},
	})
}

// LogUserDeleted records the deletion without an actor reference, since the
// actor row no longer exists.
func (w *Writer) LogUserDeleted(ctx context.Context, userID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		Action: EventUserDeleted,
		Meta: map[string]interface{}{
			"user_id": userID.String(),
			"email":   email,
		},
	})
}

func (w *Writer) LogUserPasswordChanged(ctx context.Context, userID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		ActorUserID: &userID,
		Action:      EventUserPasswordChanged,
	})
}

func (w *Writer) LogLoginFailed(ctx context.Context, email, ip string) error {
	return w.Log(ctx, LogParams{
		Action: EventLoginFailed,
		Meta: map[string]interface{}{
			"email": email,
			"ip":    ip,
		},
	})
}

func (w *Writer) LogOrgCreated(ctx context.Context, orgID, userID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &userID,
		Action:      EventOrgCreated,
		Meta: map[string]interface{}{
			"name": name,
		},
	})
}

func (w *Writer) LogInvitationCreated(ctx context.Context, orgID, actorUserID, invitationID uuid.UUID, email string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventInvitationCreated,
		Meta: map[string]interface{}{
			"invitation_id": invitationID.String(),
			"email":         email,
		},
	})
}

// LogInvitationResponded records an accept or reject; action must be one of
// EventInvitationAccepted or EventInvitationRejected.
func (w *Writer) LogInvitationResponded(ctx context.Context, orgID, actorUserID, invitationID uuid.UUID, action string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      action,
		Meta: map[string]interface{}{
			"invitation_id": invitationID.String(),
		},
	})
}

func (w *Writer) LogTeamCreated(ctx context.Context, orgID, actorUserID, teamID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventTeamCreated,
		Meta: map[string]interface{}{
			"team_id": teamID.String(),
			"name":    name,
		},
	})
}

func (w *Writer) LogTeamSupervisorChanged(ctx context.Context, orgID, actorUserID, teamID, previousID, newID uuid.UUID) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventTeamSupervisorChanged,
		Meta: map[string]interface{}{
			"team_id":             teamID.String(),
			"previous_supervisor": previousID.String(),
			"new_supervisor":      newID.String(),
		},
	})
}

// LogTeamMembership records a member add or remove; action must be one of
// EventTeamMemberAdded or EventTeamMemberRemoved.
func (w *Writer) LogTeamMembership(ctx context.Context, orgID, actorUserID, teamID, targetUserID uuid.UUID, action string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      action,
		Meta: map[string]interface{}{
			"team_id":        teamID.String(),
			"target_user_id": targetUserID.String(),
		},
	})
}

func (w *Writer) LogTeamDeleted(ctx context.Context, orgID, actorUserID, teamID uuid.UUID, name string) error {
	return w.Log(ctx, LogParams{
		OrgID:       &orgID,
		ActorUserID: &actorUserID,
		Action:      EventTeamDeleted,
		Meta: map[string]interface{}{
			"team_id": teamID.String(),
			"name":    name,
		},
	})
}
