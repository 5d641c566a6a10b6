package orgs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/notify"
	"github.com/aliuyar1234/teamhub/internal/users"
	"github.com/aliuyar1234/teamhub/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type InvitationCreateRequest struct {
	OrganizationID string `json:"organizationId"`
	InvitedEmail   string `json:"invitedEmail"`
}

type InvitationRespondRequest struct {
	Status InvitationStatus `json:"status"`
}

// HandleCreateInvitation handles POST /api/invitations
func HandleCreateInvitation(pool *pgxpool.Pool, auditor *audit.Writer, notifier *notify.Client, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req InvitationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if req.OrganizationID == "" {
			apperrors.WriteBadRequest(w, r, "organizationId is required")
			return
		}
		orgID, err := uuid.Parse(req.OrganizationID)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		email, err := validation.NormalizeEmail(req.InvitedEmail)
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		inv, err := service.CreateInvitation(ctx, orgID, userID, email)
		if err != nil {
			if writeOwnerError(w, r, err) {
				return
			}
			switch {
			case errors.Is(err, ErrAlreadyMember):
				apperrors.WriteConflict(w, r, "User is already a member of this organization")
			case errors.Is(err, ErrInvitationPending):
				apperrors.WriteConflict(w, r, "A pending invitation already exists for this email")
			default:
				log.Error().Err(err).Msg("Failed to create invitation")
				apperrors.WriteInternalError(w, r, "Failed to create invitation")
			}
			return
		}

		if err := auditor.LogInvitationCreated(ctx, orgID, userID, inv.ID, inv.InvitedEmail); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		if notifier.Enabled() {
			notifier.PostInvitationCreated(ctx, invitationMessage(r, pool, inv, baseURL))
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, inv)
	}
}

// invitationMessage gathers the display fields for the webhook; lookups that
// fail leave the field blank.
func invitationMessage(r *http.Request, pool *pgxpool.Pool, inv *Invitation, baseURL string) notify.InvitationMessage {
	msg := notify.InvitationMessage{
		InvitedEmail:     inv.InvitedEmail,
		OrganizationsURL: strings.TrimRight(baseURL, "/") + "/organizations",
	}

	if org, err := NewService(pool).GetByID(r.Context(), inv.OrgID); err == nil {
		msg.OrganizationName = org.Name
	} else {
		log.Warn().Err(err).Msg("Failed to load org for invitation webhook")
	}

	if inviter, err := users.NewService(pool).GetByID(r.Context(), inv.InvitedByUserID); err == nil {
		msg.InvitedByEmail = inviter.Email
	} else {
		log.Warn().Err(err).Msg("Failed to load inviter for invitation webhook")
	}

	return msg
}

// HandleListInvitations handles GET /api/invitations
func HandleListInvitations(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		service := NewService(pool)
		invitations, err := service.ListPendingForUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list invitations")
			apperrors.WriteInternalError(w, r, "Failed to list invitations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitations": invitations,
		})
	}
}

// HandleListOrgInvitations handles GET /api/organizations/{id}/invitations
func HandleListOrgInvitations(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return
		}

		service := NewService(pool)
		invitations, err := service.ListOrgInvitations(ctx, orgID, userID)
		if err != nil {
			if writeOwnerError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to list invitations")
			apperrors.WriteInternalError(w, r, "Failed to list invitations")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"invitations": invitations,
		})
	}
}

// HandleRespond handles PUT /api/invitations/{id}
func HandleRespond(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		invitationID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "Invitation not found")
			return
		}

		var req InvitationRespondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if !req.Status.IsResponse() {
			apperrors.WriteBadRequest(w, r, "Status must be accepted or rejected")
			return
		}

		service := NewService(pool)
		inv, err := service.RespondToInvitation(ctx, invitationID, userID, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvitationNotFound):
				apperrors.WriteNotFound(w, r, "Invitation not found")
			case errors.Is(err, ErrInvitationEmailMismatch):
				apperrors.WriteForbidden(w, r, "This invitation is addressed to another email")
			case errors.Is(err, ErrInvitationNotPending):
				apperrors.WriteConflict(w, r, "Invitation has already been answered")
			case errors.Is(err, ErrInvalidStatus):
				apperrors.WriteBadRequest(w, r, "Status must be accepted or rejected")
			default:
				log.Error().Err(err).Msg("Failed to respond to invitation")
				apperrors.WriteInternalError(w, r, "Failed to respond to invitation")
			}
			return
		}

		action := audit.EventInvitationRejected
		if inv.Status == StatusAccepted {
			action = audit.EventInvitationAccepted
		}
		if err := auditor.LogInvitationResponded(ctx, inv.OrgID, userID, inv.ID, action); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		log.Info().
			Str("invitation_id", inv.ID.String()).
			Str("org_id", inv.OrgID.String()).
			Str("status", string(inv.Status)).
			Msg("Invitation answered")

		apperrors.WriteSuccess(w, r, http.StatusOK, inv)
	}
}
