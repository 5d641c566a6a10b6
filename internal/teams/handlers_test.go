package teams

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/orgs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(caller uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), caller)))
		})
	})
	r.Post("/api/teams", HandleCreate(nil, nil))
	r.Get("/api/teams/organization/{organizationId}", HandleListByOrg(nil))
	r.Put("/api/teams/{teamId}/supervisor", HandleChangeSupervisor(nil, nil))
	r.Put("/api/teams/{teamId}/members/add", HandleAddMember(nil, nil))
	r.Put("/api/teams/{teamId}/members/remove", HandleRemoveMember(nil, nil))
	r.Delete("/api/teams/{teamId}", HandleDelete(nil, nil))
	return r
}

func serve(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	newTestRouter(uuid.New()).ServeHTTP(rec, req)
	return rec
}

func TestParseCreate(t *testing.T) {
	caller := uuid.New()
	orgID := uuid.New()
	member := uuid.New()

	params, msg := parseCreate(CreateRequest{
		OrganizationID: orgID.String(),
		Name:           "  Platform ",
		MemberIDs:      []string{member.String()},
	}, caller)
	require.Empty(t, msg)
	require.Equal(t, orgID, params.OrgID)
	require.Equal(t, "Platform", params.Name)
	require.Equal(t, caller, params.SupervisorID, "supervisor defaults to the caller")
	require.Equal(t, []uuid.UUID{member}, params.MemberIDs)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{name: "missing org", req: CreateRequest{Name: "x"}},
		{name: "bad org", req: CreateRequest{OrganizationID: "nope", Name: "x"}},
		{name: "missing name", req: CreateRequest{OrganizationID: orgID.String()}},
		{name: "bad supervisor", req: CreateRequest{OrganizationID: orgID.String(), Name: "x", SupervisorID: "nope"}},
		{name: "bad member", req: CreateRequest{OrganizationID: orgID.String(), Name: "x", MemberIDs: []string{"nope"}}},
	}
	for _, tt := range tests {
		_, msg := parseCreate(tt.req, caller)
		require.NotEmpty(t, msg, tt.name)
	}
}

func TestHandleCreate_BadRequest(t *testing.T) {
	rec := serve(t, http.MethodPost, "/api/teams", `{"name":"Platform"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, http.MethodPost, "/api/teams", `[`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTeamRoutes_BadIDsAreNotFound(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/teams/organization/abc", ""},
		{http.MethodPut, "/api/teams/abc/supervisor", `{"supervisorId":"` + uuid.NewString() + `"}`},
		{http.MethodPut, "/api/teams/abc/members/add", `{"userId":"` + uuid.NewString() + `"}`},
		{http.MethodPut, "/api/teams/abc/members/remove", `{"userId":"` + uuid.NewString() + `"}`},
		{http.MethodDelete, "/api/teams/abc", ""},
	}

	for _, tt := range tests {
		rec := serve(t, tt.method, tt.path, tt.body)
		require.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestTeamRoutes_MissingUserFieldIsBadRequest(t *testing.T) {
	teamPath := "/api/teams/" + uuid.NewString()

	for _, path := range []string{teamPath + "/supervisor", teamPath + "/members/add", teamPath + "/members/remove"} {
		rec := serve(t, http.MethodPut, path, `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)

		rec = serve(t, http.MethodPut, path, `{"userId":"x","supervisorId":"x"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrTeamNotFound, http.StatusNotFound, "not_found"},
		{orgs.ErrNotMember, http.StatusNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", orgs.ErrInsufficientPermissions), http.StatusForbidden, "forbidden"},
		{ErrNotOrgMember, http.StatusBadRequest, "bad_request"},
		{ErrAlreadyTeamMember, http.StatusConflict, "conflict"},
		{ErrNotTeamMember, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.True(t, writeServiceError(rec, req, tt.err), tt.err.Error())
		require.Equal(t, tt.status, rec.Code, tt.err.Error())

		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.Equal(t, tt.code, env.Error.Code)
	}

	require.False(t, writeServiceError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom")))
}

func TestTeamHelpers(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	require.Equal(t, []uuid.UUID{a, b}, dedupe([]uuid.UUID{a, b, a, b}))

	team := &Team{MemberIDs: []uuid.UUID{a}}
	require.True(t, team.HasMember(a))
	require.False(t, team.HasMember(b))
}
