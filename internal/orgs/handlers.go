package orgs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CreateRequest represents the request to create an organization
type CreateRequest struct {
	Name string `json:"name"`
}

// HandleCreate handles POST /api/organizations
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		name, err := validation.NormalizeName(req.Name)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Organization "+err.Error())
			return
		}

		service := NewService(pool)
		org, err := service.CreateWithOwner(ctx, name, userID)
		if err != nil {
			if errors.Is(err, ErrOwnerMissing) {
				apperrors.WriteUnauthorized(w, r, "Authentication required")
				return
			}
			log.Error().Err(err).Msg("Failed to create organization")
			apperrors.WriteInternalError(w, r, "Failed to create organization")
			return
		}

		if err := auditor.LogOrgCreated(ctx, org.ID, userID, org.Name); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, OrgWithRole{Org: *org, Role: RoleOwner})
	}
}

// HandleList handles GET /api/organizations
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		service := NewService(pool)
		orgs, err := service.ListUserOrgs(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			apperrors.WriteInternalError(w, r, "Failed to list organizations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"organizations": orgs,
		})
	}
}

// HandleGet handles GET /api/organizations/{id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orgID, role, ok := requireMember(w, r, pool)
		if !ok {
			return
		}

		service := NewService(pool)
		org, err := service.GetByID(ctx, orgID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization")
			apperrors.WriteInternalError(w, r, "Failed to get organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, OrgWithRole{Org: *org, Role: role})
	}
}

// HandleListMembers handles GET /api/organizations/{id}/members
func HandleListMembers(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgID, _, ok := requireMember(w, r, pool)
		if !ok {
			return
		}

		service := NewService(pool)
		members, err := service.ListMembers(r.Context(), orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"members": members,
		})
	}
}

// requireMember parses {id} and checks the caller belongs to that
// organization. Outsiders get the same 404 as an unknown id.
func requireMember(w http.ResponseWriter, r *http.Request, pool *pgxpool.Pool) (uuid.UUID, OrgRole, bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteNotFound(w, r, "Organization not found")
		return uuid.Nil, "", false
	}

	service := NewService(pool)
	role, err := service.RequireOrgMember(r.Context(), auth.GetUserID(r.Context()), orgID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return uuid.Nil, "", false
		}
		log.Error().Err(err).Msg("Failed to check org membership")
		apperrors.WriteInternalError(w, r, "Failed to check permissions")
		return uuid.Nil, "", false
	}

	return orgID, role, true
}

// writeOwnerError maps the RequireOwner sentinels to responses and reports
// whether err was handled.
func writeOwnerError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, ErrNotMember):
		apperrors.WriteNotFound(w, r, "Organization not found")
	case errors.Is(err, ErrInsufficientPermissions):
		apperrors.WriteForbidden(w, r, "Only the organization owner can do this")
	default:
		return false
	}
	return true
}
