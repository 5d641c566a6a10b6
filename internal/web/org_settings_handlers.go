package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aliuyar1234/teamhub/internal/audit"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/aliuyar1234/teamhub/internal/teams"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type auditEventView struct {
	Action    string
	Actor     string
	CreatedAt string
	Meta      string
}

type teamView struct {
	ID             uuid.UUID
	Name           string
	SupervisorName string
	MemberNames    []string
	CanManage      bool
}

// OrganizationDetailPage is the data behind /organizations/{id}
type OrganizationDetailPage struct {
	Org         *orgs.Org
	Role        orgs.OrgRole
	IsOwner     bool
	Members     []orgs.MemberInfo
	Teams       []teamView
	Invitations []orgs.InvitationView
	AuditEvents []auditEventView
}

// HandleOrganizationDetailPage renders members and teams of one organization.
// Owners additionally see sent invitations and the audit trail.
func HandleOrganizationDetailPage(pool *pgxpool.Pool, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Organization not found", http.StatusNotFound)
			return
		}

		orgService := orgs.NewService(pool)
		role, err := orgService.RequireOrgMember(ctx, userID, orgID)
		if err != nil {
			if errors.Is(err, orgs.ErrNotMember) {
				http.Error(w, "Organization not found", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Msg("Failed to check org membership")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		org, err := orgService.GetByID(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to get organization")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		members, err := orgService.ListMembers(ctx, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list members")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		teamList, err := teams.NewService(pool).ListByOrg(ctx, userID, orgID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list teams")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		page := OrganizationDetailPage{
			Org:     org,
			Role:    role,
			IsOwner: role == orgs.RoleOwner,
			Members: members,
			Teams:   buildTeamViews(teamList, members, userID, role == orgs.RoleOwner),
		}

		if page.IsOwner {
			page.Invitations, err = orgService.ListOrgInvitations(ctx, orgID, userID)
			if err != nil {
				log.Error().Err(err).Msg("Failed to list invitations")
			}

			events, err := audit.NewReader(pool).ListByOrg(ctx, orgID, 25)
			if err != nil {
				log.Error().Err(err).Msg("Failed to list audit events")
			} else {
				page.AuditEvents = buildAuditViews(events)
			}
		}

		csrfToken, ok := issueCSRF(w, isProduction)
		if !ok {
			return
		}

		RenderTemplate(w, r, "organization_detail.html", &TemplateData{
			Title:           org.Name,
			UserID:          userID,
			IsAuthenticated: true,
			CSRFToken:       csrfToken,
			Error:           strings.TrimSpace(r.URL.Query().Get("error")),
			Data:            page,
		})
	}
}

func buildTeamViews(teamList []teams.Team, members []orgs.MemberInfo, userID uuid.UUID, isOwner bool) []teamView {
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.UserID] = displayName(m)
	}

	views := make([]teamView, 0, len(teamList))
	for _, t := range teamList {
		view := teamView{
			ID:             t.ID,
			Name:           t.Name,
			SupervisorName: names[t.SupervisorID],
			CanManage:      isOwner || t.SupervisorID == userID,
		}
		for _, id := range t.MemberIDs {
			view.MemberNames = append(view.MemberNames, names[id])
		}
		views = append(views, view)
	}
	return views
}

func displayName(m orgs.MemberInfo) string {
	if m.Name != "" {
		return m.Name
	}
	return m.Email
}

func buildAuditViews(events []audit.ListItem) []auditEventView {
	views := make([]auditEventView, 0, len(events))
	for _, event := range events {
		actor := strings.TrimSpace(event.ActorEmail)
		if actor == "" {
			actor = "System"
		}

		metaJSON := "{}"
		if b, err := json.MarshalIndent(event.Meta, "", "  "); err == nil && len(b) > 0 {
			metaJSON = string(b)
		}

		views = append(views, auditEventView{
			Action:    event.Action,
			Actor:     actor,
			CreatedAt: event.CreatedAt.Format("2006-01-02 15:04"),
			Meta:      metaJSON,
		})
	}
	return views
}
