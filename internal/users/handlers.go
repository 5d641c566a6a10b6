package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// CreateRequest is the registration payload
type CreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// UpdateRequest is the profile update payload; absent fields are left alone
type UpdateRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

// ChangePasswordRequest is the payload of PUT /api/users/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleCreate handles POST /api/users
func HandleCreate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email, err := validation.NormalizeEmail(req.Email)
		if err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		// name is optional; whitespace counts as absent
		name := ""
		if strings.TrimSpace(req.Name) != "" {
			name, err = validation.NormalizeName(req.Name)
			if err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
		}

		if err := auth.ValidatePassword(req.Password); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		user, err := service.Create(ctx, email, name, req.Password)
		if err != nil {
			if errors.Is(err, ErrEmailTaken) {
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}
			log.Error().Err(err).Msg("Failed to create user")
			apperrors.WriteInternalError(w, r, "Failed to create user")
			return
		}

		if err := auditor.LogUserCreated(ctx, user.ID, user.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		log.Info().Str("user_id", user.ID.String()).Msg("User registered")

		apperrors.WriteSuccess(w, r, http.StatusCreated, user)
	}
}

// HandleList handles GET /api/users
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		service := NewService(pool)
		users, err := service.List(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("Failed to list users")
			apperrors.WriteInternalError(w, r, "Failed to list users")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"users": users,
		})
	}
}

// HandleGet handles GET /api/users/{id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			apperrors.WriteNotFound(w, r, "User not found")
			return
		}

		service := NewService(pool)
		user, err := service.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				apperrors.WriteNotFound(w, r, "User not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get user")
			apperrors.WriteInternalError(w, r, "Failed to get user")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, user)
	}
}

// HandleUpdate handles PUT /api/users/{id}
func HandleUpdate(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		targetID, ok := requireSelf(w, r)
		if !ok {
			return
		}

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		var params UpdateParams
		if req.Email != nil {
			email, err := validation.NormalizeEmail(*req.Email)
			if err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			params.Email = &email
		}
		if req.Name != nil {
			name, err := validation.NormalizeName(*req.Name)
			if err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			params.Name = &name
		}
		if params.Email == nil && params.Name == nil {
			apperrors.WriteBadRequest(w, r, "Nothing to update")
			return
		}

		service := NewService(pool)
		user, err := service.Update(ctx, targetID, params)
		if err != nil {
			switch {
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			case errors.Is(err, ErrEmailTaken):
				apperrors.WriteConflict(w, r, "Email address already registered")
			default:
				log.Error().Err(err).Msg("Failed to update user")
				apperrors.WriteInternalError(w, r, "Failed to update user")
			}
			return
		}

		if err := auditor.LogUserUpdated(ctx, user.ID, params.Fields()); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, user)
	}
}

// HandleDelete handles DELETE /api/users/{id}
func HandleDelete(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		targetID, ok := requireSelf(w, r)
		if !ok {
			return
		}

		service := NewService(pool)
		user, err := service.Delete(ctx, targetID)
		if err != nil {
			switch {
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			case errors.Is(err, ErrUserHasDependents):
				apperrors.WriteConflict(w, r, "Transfer organization ownership and team supervision before deleting the account")
			default:
				log.Error().Err(err).Msg("Failed to delete user")
				apperrors.WriteInternalError(w, r, "Failed to delete user")
			}
			return
		}

		// The actor row is gone; the audit row keeps a NULL actor and the email in meta.
		if err := auditor.LogUserDeleted(ctx, user.ID, user.Email); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		log.Info().Str("user_id", user.ID.String()).Msg("User deleted")

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted": true,
		})
	}
}

// HandleChangePassword handles PUT /api/users/change-password
func HandleChangePassword(pool *pgxpool.Pool, auditor *audit.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}
		if req.CurrentPassword == "" {
			apperrors.WriteBadRequest(w, r, "Current password is required")
			return
		}
		if err := auth.ValidatePassword(req.NewPassword); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		if err := service.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
			switch {
			case errors.Is(err, ErrWrongPassword):
				apperrors.WriteUnauthorized(w, r, "Current password is incorrect")
			case errors.Is(err, ErrUserNotFound):
				apperrors.WriteNotFound(w, r, "User not found")
			default:
				log.Error().Err(err).Msg("Failed to change password")
				apperrors.WriteInternalError(w, r, "Failed to change password")
			}
			return
		}

		if err := auditor.LogUserPasswordChanged(ctx, userID); err != nil {
			log.Error().Err(err).Msg("Failed to log audit event")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"passwordChanged": true,
		})
	}
}

// requireSelf parses {id} and checks it is the caller. It writes the error
// response itself and reports whether the handler may continue.
func requireSelf(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteNotFound(w, r, "User not found")
		return uuid.Nil, false
	}

	if targetID != auth.GetUserID(r.Context()) {
		apperrors.WriteForbidden(w, r, "You can only modify your own account")
		return uuid.Nil, false
	}

	return targetID, true
}
