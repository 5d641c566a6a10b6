package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestRouter mounts the handlers without a database; every request below
// is rejected before a query would run.
func newTestRouter(caller uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if caller != uuid.Nil {
				req = req.WithContext(auth.WithUserID(req.Context(), caller))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/users", HandleCreate(nil, nil))
	r.Put("/api/users/change-password", HandleChangePassword(nil, nil))
	r.Get("/api/users/{id}", HandleGet(nil))
	r.Put("/api/users/{id}", HandleUpdate(nil, nil))
	r.Delete("/api/users/{id}", HandleDelete(nil, nil))
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error.Code
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreate_ValidatesInput(t *testing.T) {
	h := newTestRouter(uuid.Nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{`},
		{name: "missing email", body: `{"password":"longenough"}`},
		{name: "invalid email", body: `{"email":"nope","password":"longenough"}`},
		{name: "short password", body: `{"email":"a@example.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/users", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "bad_request", errorCode(t, rec))
		})
	}
}

func TestHandleCreate_BlankNameIsOptional(t *testing.T) {
	h := newTestRouter(uuid.Nil)

	// A whitespace name is skipped, so validation moves on to the password.
	rec := do(t, h, http.MethodPost, "/api/users", `{"email":"a@example.com","password":"short","name":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, auth.ErrPasswordTooShort.Error(), env.Error.Message)
}

func TestHandleGet_BadIDIsNotFound(t *testing.T) {
	rec := do(t, newTestRouter(uuid.New()), http.MethodGet, "/api/users/not-a-uuid", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdate_OnlySelf(t *testing.T) {
	h := newTestRouter(uuid.New())

	rec := do(t, h, http.MethodPut, "/api/users/"+uuid.NewString(), `{"name":"Mallory"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", errorCode(t, rec))
}

func TestHandleUpdate_RequiresAField(t *testing.T) {
	caller := uuid.New()
	h := newTestRouter(caller)

	rec := do(t, h, http.MethodPut, "/api/users/"+caller.String(), `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/users/"+caller.String(), `{"email":"broken"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDelete_OnlySelf(t *testing.T) {
	rec := do(t, newTestRouter(uuid.New()), http.MethodDelete, "/api/users/"+uuid.NewString(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleChangePassword_Validation(t *testing.T) {
	h := newTestRouter(uuid.New())

	rec := do(t, h, http.MethodPut, "/api/users/change-password", `{"newPassword":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/users/change-password", `{"currentPassword":"x","newPassword":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateParams_Fields(t *testing.T) {
	name := "Ada"
	require.Equal(t, []string{"name"}, UpdateParams{Name: &name}.Fields())
	require.Empty(t, UpdateParams{}.Fields())
}
