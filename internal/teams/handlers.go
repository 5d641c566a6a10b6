package teams

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/aliuyar1234/teamhub/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CreateRequest represents the request to create a team
type CreateRequest struct {
	OrganizationID string   `json:"organizationId"`
	Name           string   `json:"name"`
	SupervisorID   string   `json:"supervisorId"`
	MemberIDs      []string `json:"memberIds"`
}

type SupervisorRequest struct {
	SupervisorID string `json:"supervisorId"`
}

type MemberRequest struct {
	UserID string `json:"userId"`
}

// HandleCreate handles POST /api/teams
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		params, msg := parseCreate(req, userID)
		if msg != "" {
			apperrors.WriteBadRequest(w, r, msg)
			return
		}

		service := NewService(pool)
		team, err := service.Create(ctx, userID, params)
		if err != nil {
			if writeServiceError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to create team")
			apperrors.WriteInternalError(w, r, "Failed to create team")
			return
		}

		if err := auditor.LogTeamCreated(ctx, team.OrgID, userID, team.ID, team.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, team)
	}
}

// parseCreate validates a create request. The supervisor defaults to the
// caller. A non-empty message means the request is invalid.
func parseCreate(req CreateRequest, callerID uuid.UUID) (CreateParams, string) {
	var params CreateParams

	if req.OrganizationID == "" {
		return params, "organizationId is required"
	}
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return params, "Invalid organization ID"
	}
	params.OrgID = orgID

	name, err := validation.NormalizeName(req.Name)
	if err != nil {
		return params, "Team " + err.Error()
	}
	params.Name = name

	params.SupervisorID = callerID
	if req.SupervisorID != "" {
		supervisorID, err := uuid.Parse(req.SupervisorID)
		if err != nil {
			return params, "Invalid supervisor ID"
		}
		params.SupervisorID = supervisorID
	}

	for _, raw := range req.MemberIDs {
		memberID, err := uuid.Parse(raw)
		if err != nil {
			return params, "Invalid member ID"
		}
		params.MemberIDs = append(params.MemberIDs, memberID)
	}

	return params, ""
}

// HandleListByOrg handles GET /api/teams/organization/{organizationId}
func HandleListByOrg(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "organizationId"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		service := NewService(pool)
		teams, err := service.ListByOrg(ctx, userID, orgID)
		if err != nil {
			if errors.Is(err, orgs.ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to list teams")
			apperrors.WriteInternalError(w, r, "Failed to list teams")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"teams": teams,
		})
	}
}

// HandleListSupervised handles GET /api/teams/supervised
func HandleListSupervised(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		service := NewService(pool)
		teams, err := service.ListSupervised(ctx, auth.GetUserID(ctx))
		if err != nil {
			log.Error().Err(err).Msg("Failed to list supervised teams")
			apperrors.WriteInternalError(w, r, "Failed to list teams")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"teams": teams,
		})
	}
}

// HandleChangeSupervisor handles PUT /api/teams/{teamId}/supervisor
func HandleChangeSupervisor(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		teamID, ok := parseTeamID(w, r)
		if !ok {
			return
		}

		var req SupervisorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		supervisorID, ok := parseUserField(w, r, req.SupervisorID, "supervisorId")
		if !ok {
			return
		}

		service := NewService(pool)
		team, previous, err := service.ChangeSupervisor(ctx, userID, teamID, supervisorID)
		if err != nil {
			if writeServiceError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to change supervisor")
			apperrors.WriteInternalError(w, r, "Failed to change supervisor")
			return
		}

		if err := auditor.LogTeamSupervisorChanged(ctx, team.OrgID, userID, team.ID, previous, team.SupervisorID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, team)
	}
}

// HandleAddMember handles PUT /api/teams/{teamId}/members/add
func HandleAddMember(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return handleMembership(pool, auditor, audit.EventTeamMemberAdded)
}

// HandleRemoveMember handles PUT /api/teams/{teamId}/members/remove
func HandleRemoveMember(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return handleMembership(pool, auditor, audit.EventTeamMemberRemoved)
}

func handleMembership(pool *pgxpool.Pool, auditor *audit.Writer, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		teamID, ok := parseTeamID(w, r)
		if !ok {
			return
		}

		var req MemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		targetID, ok := parseUserField(w, r, req.UserID, "userId")
		if !ok {
			return
		}

		service := NewService(pool)
		var team *Team
		var err error
		if action == audit.EventTeamMemberAdded {
			team, err = service.AddMember(ctx, userID, teamID, targetID)
		} else {
			team, err = service.RemoveMember(ctx, userID, teamID, targetID)
		}
		if err != nil {
			if writeServiceError(w, r, err) {
				return
			}
			log.Error().Err(err).Str("action", action).Msg("Failed to update team members")
			apperrors.WriteInternalError(w, r, "Failed to update team members")
			return
		}

		if err := auditor.LogTeamMembership(ctx, team.OrgID, userID, team.ID, targetID, action); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, team)
	}
}

// HandleDelete handles DELETE /api/teams/{teamId}
func HandleDelete(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		teamID, ok := parseTeamID(w, r)
		if !ok {
			return
		}

		service := NewService(pool)
		team, err := service.Delete(ctx, userID, teamID)
		if err != nil {
			if writeServiceError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to delete team")
			apperrors.WriteInternalError(w, r, "Failed to delete team")
			return
		}

		if err := auditor.LogTeamDeleted(ctx, team.OrgID, userID, team.ID, team.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

func parseTeamID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	teamID, err := uuid.Parse(chi.URLParam(r, "teamId"))
	if err != nil {
		apperrors.WriteNotFound(w, r, "Team not found")
		return uuid.Nil, false
	}
	return teamID, true
}

func parseUserField(w http.ResponseWriter, r *http.Request, raw, field string) (uuid.UUID, bool) {
	if raw == "" {
		apperrors.WriteBadRequest(w, r, field+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		apperrors.WriteBadRequest(w, r, "Invalid "+field)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps team and organization sentinels to responses and
// reports whether err was handled.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, ErrTeamNotFound):
		apperrors.WriteNotFound(w, r, "Team not found")
	case errors.Is(err, orgs.ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, orgs.ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Only the organization owner or team supervisor can do this")
	case errors.Is(err, ErrNotOrgMember):
		apperrors.WriteBadRequest(w, r, "User is not a member of the team's organization")
	case errors.Is(err, ErrAlreadyTeamMember):
		apperrors.WriteConflict(w, r, "User is already a member of this team")
	case errors.Is(err, ErrNotTeamMember):
		apperrors.WriteNotFound(w, r, "User is not a member of this team")
	default:
		return false
	}
	return true
}
