package app

import (
	"net/http"

	"github.com/aliuyar1234/teamhub/internal/apperrors"
	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/config"
	"github.com/aliuyar1234/teamhub/internal/notify"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/aliuyar1234/teamhub/internal/teams"
	"github.com/aliuyar1234/teamhub/internal/users"
	"github.com/aliuyar1234/teamhub/internal/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	r.Use(middleware.RealIP)
	r.Use(apperrors.RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret, isProduction))

	auditor := audit.NewWriter(pool)
	notifier := notify.NewClient(cfg.InviteWebhookURL, cfg.WebhookTimeoutMS)

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// Public HTML pages
	r.Group(func(r chi.Router) {
		r.Use(NoCacheMiddleware)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/organizations", http.StatusSeeOther)
		})
		r.Get("/signup", web.HandleSignupPage(isProduction))
		r.Get("/login", web.HandleLoginPage(isProduction))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.With(LoginRateLimitMiddleware()).Post("/login", auth.HandleLogin(pool, auditor, cfg.JWTSecret, cfg.SessionDays, isProduction))
			r.Post("/logout", auth.HandleLogout(isProduction))
		})

		r.Route("/users", func(r chi.Router) {
			// Registration is public
			r.With(LoginRateLimitMiddleware()).Post("/", users.HandleCreate(pool, auditor))

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)
				r.Use(auth.RequireActiveUser(pool, isProduction))
				r.Use(RateLimitByUser(cfg.RateLimitRPM))

				r.Get("/", users.HandleList(pool))
				r.Put("/change-password", users.HandleChangePassword(pool, auditor))
				r.Get("/{id}", users.HandleGet(pool))
				r.Put("/{id}", users.HandleUpdate(pool, auditor))
				r.Delete("/{id}", users.HandleDelete(pool, auditor))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(auth.RequireActiveUser(pool, isProduction))
			r.Use(RateLimitByUser(cfg.RateLimitRPM))

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", orgs.HandleList(pool))
				r.Post("/", orgs.HandleCreate(pool, auditor))
				r.Get("/{id}", orgs.HandleGet(pool))
				r.Get("/{id}/members", orgs.HandleListMembers(pool))
				r.Get("/{id}/invitations", orgs.HandleListOrgInvitations(pool))
				r.Get("/{id}/audit", orgs.HandleListAudit(pool))
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", orgs.HandleListInvitations(pool))
				r.Post("/", orgs.HandleCreateInvitation(pool, auditor, notifier, cfg.BaseURL))
				r.Put("/{id}", orgs.HandleRespond(pool, auditor))
			})

			r.Route("/teams", func(r chi.Router) {
				r.Post("/", teams.HandleCreate(pool, auditor))
				r.Get("/supervised", teams.HandleListSupervised(pool))
				r.Get("/organization/{organizationId}", teams.HandleListByOrg(pool))
				r.Put("/{teamId}/supervisor", teams.HandleChangeSupervisor(pool, auditor))
				r.Put("/{teamId}/members/add", teams.HandleAddMember(pool, auditor))
				r.Put("/{teamId}/members/remove", teams.HandleRemoveMember(pool, auditor))
				r.Delete("/{teamId}", teams.HandleDelete(pool, auditor))
			})
		})
	})

	// Protected HTML pages
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuthPage)
		r.Use(NoCacheMiddleware)

		r.Get("/organizations", web.HandleOrganizationsPage(pool, isProduction))
		r.Get("/organizations/{id}", web.HandleOrganizationDetailPage(pool, isProduction))
	})

	return r
}

// handleHealthz returns a simple liveness check
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz reports 200 when the database answers a ping, 503 otherwise
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool == nil || pool.Ping(r.Context()) != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
