package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUser is the user summary returned alongside a token
type SessionUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      SessionUser `json:"user"`
}

// HandleLogin handles POST /api/auth/login
func HandleLogin(pool *pgxpool.Pool, auditor *audit.Writer, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			apperrors.WriteBadRequest(w, r, "Email and password are required")
			return
		}

		var user SessionUser
		var passwordHash string
		query := `SELECT id, email, name, password_hash FROM users WHERE lower(email) = $1`

		err := pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name, &passwordHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				logLoginFailed(r, auditor, email)
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			logLoginFailed(r, auditor, email)
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		token, err := CreateToken(user.ID, jwtSecret, sessionDays)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create token")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		SetSessionCookie(w, token, sessionDays, isProduction)

		log.Info().
			Str("user_id", user.ID.String()).
			Msg("User logged in")

		expiresAt := time.Now().UTC().Add(time.Duration(sessionDays) * 24 * time.Hour)
		apperrors.WriteSuccess(w, r, http.StatusOK, LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt.Format(time.RFC3339),
			User:      user,
		})
	}
}

// HandleLogout handles POST /api/auth/logout
func HandleLogout(isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ClearSessionCookie(w, isProduction)

		if userID := GetUserID(r.Context()); userID != uuid.Nil {
			log.Info().Str("user_id", userID.String()).Msg("User logged out")
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"loggedOut": true,
		})
	}
}

func logLoginFailed(r *http.Request, auditor *audit.Writer, email string) {
	if auditor == nil {
		return
	}
	if err := auditor.LogLoginFailed(r.Context(), email, r.RemoteAddr); err != nil {
		log.Error().Err(err).Msg("Failed to log audit event")
	}
}
