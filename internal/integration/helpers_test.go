package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aliuyar1234/teamhub/internal/app"
	"github.com/aliuyar1234/teamhub/internal/auth"
	"github.com/aliuyar1234/teamhub/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

// apiClient is one browser-like session: a cookie jar holding the session
// and CSRF cookies plus the matching CSRF token for mutating requests.
type apiClient struct {
	t       *testing.T
	client  *http.Client
	baseURL string
	csrf    string
	userID  uuid.UUID
}

func newTestServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Env:                 "dev",
		HTTPAddr:            ":0",
		BaseURL:             "http://localhost",
		DBDSN:               "unused",
		JWTSecret:           "test-secret",
		LogLevel:            "error",
		RateLimitRPM:        600,
		SessionDays:         7,
		WebhookTimeoutMS:    2000,
		InviteRetentionDays: 30,
		AuditRetentionDays:  180,
	}

	srv := httptest.NewServer(app.NewRouter(pool, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func newCSRFClient(t *testing.T, serverURL string) *apiClient {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	baseURL, err := url.Parse(serverURL)
	require.NoError(t, err)

	csrfToken, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	jar.SetCookies(baseURL, []*http.Cookie{{
		Name:  auth.CSRFCookieName,
		Value: csrfToken,
		Path:  "/",
	}})

	return &apiClient{
		t:       t,
		client:  &http.Client{Jar: jar},
		baseURL: serverURL,
		csrf:    csrfToken,
	}
}

// signupAndLogin registers a user and logs in, leaving the session cookie in
// the client's jar.
func signupAndLogin(t *testing.T, serverURL, email, name string) *apiClient {
	t.Helper()

	c := newCSRFClient(t, serverURL)
	password := "password123"

	env := c.expectSuccess(http.MethodPost, "/api/users", http.StatusCreated, map[string]any{
		"email":    email,
		"name":     name,
		"password": password,
	})

	var user struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.NotEqual(t, uuid.Nil, user.ID)
	c.userID = user.ID

	c.expectSuccess(http.MethodPost, "/api/auth/login", http.StatusOK, map[string]any{
		"email":    email,
		"password": password,
	})

	return c
}

func (c *apiClient) expectSuccess(method, path string, wantStatus int, payload any) envelopeResponse {
	c.t.Helper()

	body := c.expectStatus(method, path, wantStatus, payload)

	var env envelopeResponse
	require.NoError(c.t, json.Unmarshal(body, &env))
	require.NotEmpty(c.t, env.RequestID)
	return env
}

func (c *apiClient) expectError(method, path string, wantStatus int, payload any) errorEnvelope {
	c.t.Helper()

	body := c.expectStatus(method, path, wantStatus, payload)

	var env errorEnvelope
	require.NoError(c.t, json.Unmarshal(body, &env))
	require.NotEmpty(c.t, env.Error.RequestID)
	return env
}

func (c *apiClient) expectStatus(method, path string, wantStatus int, payload any) []byte {
	c.t.Helper()

	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(c.t, err)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	require.NoError(c.t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete {
		req.Header.Set(auth.CSRFHeaderName, c.csrf)
	}

	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	require.Equal(c.t, wantStatus, resp.StatusCode, "%s %s body: %s", method, path, string(body))

	return body
}

func decodeData[T any](t *testing.T, env envelopeResponse) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
