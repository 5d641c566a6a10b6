package orgs

import (
	"net/http"
	"strconv"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// HandleListAudit handles GET /api/organizations/{id}/audit
func HandleListAudit(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		orgService := NewService(pool)
		if err := orgService.RequireOwner(ctx, userID, orgID); err != nil {
			if writeOwnerError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to check org permission")
			apperrors.WriteInternalError(w, r, "Failed to check permissions")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				limit = v
			}
		}

		reader := audit.NewReader(pool)
		events, err := reader.ListByOrg(ctx, orgID, limit)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list audit log")
			apperrors.WriteInternalError(w, r, "Failed to list audit log")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"events": events,
		})
	}
}
