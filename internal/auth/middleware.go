package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDContextKey is the context key for storing user ID
	UserIDContextKey contextKey = "user_id"

	// MethodContextKey records how the caller authenticated
	MethodContextKey contextKey = "auth_method"
)

// Method identifies where the caller's token came from.
type Method string

const (
	MethodNone    Method = ""
	MethodBearer  Method = "bearer"
	MethodSession Method = "session"
)

// AuthMiddleware resolves the caller from an Authorization bearer token or,
// failing that, the session cookie. Requests without valid credentials pass
// through unauthenticated; RequireAuth decides whether that is acceptable.
func AuthMiddleware(secret string, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); header != "" {
				token, ok := parseBearer(header)
				if !ok {
					apperrors.WriteUnauthorized(w, r, "Invalid authorization header format")
					return
				}

				claims, err := ValidateToken(token, secret)
				if err != nil {
					log.Debug().Err(err).Msg("Invalid bearer token")
					apperrors.WriteUnauthorized(w, r, "Invalid or expired token")
					return
				}

				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims.UserID, MethodBearer)))
				return
			}

			token := GetSessionCookie(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				log.Debug().Err(err).Msg("Invalid session token")
				ClearSessionCookie(w, isProduction)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims.UserID, MethodSession)))
		})
	}
}

func parseBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func withUser(ctx context.Context, userID uuid.UUID, method Method) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, MethodContextKey, method)
}

// RequireAuth rejects unauthenticated API requests with a 401 envelope
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == uuid.Nil {
			apperrors.WriteUnauthorized(w, r, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActiveUser rejects authenticated requests whose user row no longer
// exists. Tokens outlive account deletion until they expire, so the signature
// alone is not enough. Must run after RequireAuth. A nil pool disables the
// check.
func RequireActiveUser(pool *pgxpool.Pool, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pool == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			var exists bool
			err := pool.QueryRow(r.Context(), `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
			if err != nil {
				log.Error().Err(err).Msg("Failed to check user existence")
				apperrors.WriteInternalError(w, r, "Internal server error")
				return
			}
			if !exists {
				log.Warn().Str("user_id", userID.String()).Msg("Token for deleted user")
				if GetMethod(r.Context()) == MethodSession {
					ClearSessionCookie(w, isProduction)
				}
				apperrors.WriteUnauthorized(w, r, "Authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthPage redirects unauthenticated page requests to the login form
func RequireAuthPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == uuid.Nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID retrieves the user ID from the request context
// Returns uuid.Nil if no user is authenticated
func GetUserID(ctx context.Context) uuid.UUID {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// GetMethod reports how the current request authenticated.
func GetMethod(ctx context.Context) Method {
	method, _ := ctx.Value(MethodContextKey).(Method)
	return method
}

// WithUserID returns a context authenticated as userID. Used by page handlers
// and tests that bypass the middleware.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return withUser(ctx, userID, MethodBearer)
}
