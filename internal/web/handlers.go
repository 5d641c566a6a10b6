package web

import (
	"net/http"

	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// OrganizationsPage is the data behind the two tabs of /organizations
type OrganizationsPage struct {
	Organizations []orgs.OrgWithRole
	Invitations   []orgs.InvitationView
}

// HandleSignupPage renders the signup page
func HandleSignupPage(isProduction bool) http.HandlerFunc {
	return authPage("Sign Up", "signup.html", isProduction)
}

// HandleLoginPage renders the login page
func HandleLoginPage(isProduction bool) http.HandlerFunc {
	return authPage("Log In", "login.html", isProduction)
}

func authPage(title, page string, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUserID(r.Context()) != uuid.Nil {
			http.Redirect(w, r, "/organizations", http.StatusSeeOther)
			return
		}

		csrfToken, ok := issueCSRF(w, isProduction)
		if !ok {
			return
		}

		RenderTemplate(w, r, page, &TemplateData{
			Title:     title,
			CSRFToken: csrfToken,
		})
	}
}

// HandleOrganizationsPage renders the organizations page. The lists are
// server-rendered on first load; the page script refetches them from the API
// after every confirmed action.
func HandleOrganizationsPage(pool *pgxpool.Pool, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		csrfToken, ok := issueCSRF(w, isProduction)
		if !ok {
			return
		}

		data := &TemplateData{
			Title:           "Organizations",
			UserID:          userID,
			IsAuthenticated: true,
			CSRFToken:       csrfToken,
		}

		service := orgs.NewService(pool)
		page := OrganizationsPage{}

		orgsList, err := service.ListUserOrgs(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			data.Error = "Failed to load organizations"
		} else {
			page.Organizations = orgsList
		}

		invitations, err := service.ListPendingForUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list invitations")
			data.Error = "Failed to load invitations"
		} else {
			page.Invitations = invitations
		}

		data.Data = page
		RenderTemplate(w, r, "organizations.html", data)
	}
}

func issueCSRF(w http.ResponseWriter, isProduction bool) (string, bool) {
	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate CSRF token")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return "", false
	}

	auth.SetCSRFCookie(w, csrfToken, isProduction)
	return csrfToken, true
}
