package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func echoUser(t *testing.T) (http.Handler, *uuid.UUID, *Method) {
	t.Helper()

	var seen uuid.UUID
	var method Method
	h := AuthMiddleware(testSecret, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		method = GetMethod(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen, &method
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	userID := uuid.New()
	token, err := CreateToken(userID, testSecret, 1)
	require.NoError(t, err)

	h, seen, method := echoUser(t)
	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, userID, *seen)
	require.Equal(t, MethodBearer, *method)
}

func TestAuthMiddleware_InvalidBearerIsRejected(t *testing.T) {
	h, _, _ := echoUser(t)

	for _, header := range []string{"Bearer garbage", "Token abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthMiddleware_SessionCookie(t *testing.T) {
	userID := uuid.New()
	token, err := CreateToken(userID, testSecret, 1)
	require.NoError(t, err)

	h, seen, method := echoUser(t)
	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, userID, *seen)
	require.Equal(t, MethodSession, *method)
}

func TestAuthMiddleware_BadCookieContinuesAnonymous(t *testing.T) {
	h, seen, _ := echoUser(t)
	req := httptest.NewRequest(http.MethodGet, "/organizations", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "nope"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, uuid.Nil, *seen)
	require.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookieName+"=;")
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/supervised", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"unauthorized"`)

	req := httptest.NewRequest(http.MethodGet, "/api/teams/supervised", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.New()))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuthPage_RedirectsToLogin(t *testing.T) {
	h := RequireAuthPage(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/organizations", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestValidateCSRF(t *testing.T) {
	token, err := GenerateCSRFToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/organizations", nil)
	require.Error(t, ValidateCSRF(req))

	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	require.Error(t, ValidateCSRF(req))

	req.Header.Set(CSRFHeaderName, "other")
	require.Error(t, ValidateCSRF(req))

	req.Header.Set(CSRFHeaderName, token)
	require.NoError(t, ValidateCSRF(req))
}

func TestPassword_HashAndVerify(t *testing.T) {
	require.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	require.NoError(t, ValidatePassword("long-enough"))

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.NoError(t, VerifyPassword(hash, "correct horse"))
	require.Error(t, VerifyPassword(hash, "battery staple"))
}

func TestRequireActiveUser_NilPoolPassesThrough(t *testing.T) {
	h := RequireActiveUser(nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/organizations", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.New()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
