package apperrors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_EnvelopeCarriesRequestID(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "Team not found")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/x", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "not_found", body.Error.Code)
	require.Equal(t, "Team not found", body.Error.Message)
	require.NotEmpty(t, body.Error.RequestID)
	require.Equal(t, rec.Header().Get(RequestIDHeader), body.Error.RequestID)
}

func TestWriteSuccess_WrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	WriteSuccess(rec, req, http.StatusCreated, map[string]string{"status": "ok"})

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		RequestID string            `json:"request_id"`
		Data      map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Data["status"])
	require.Empty(t, body.RequestID)
}

func TestRequestIDMiddleware_ReusesValidInboundID(t *testing.T) {
	const inbound = "8a4e5c7e-2f1b-4c3d-9e8f-0a1b2c3d4e5f"

	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, inbound, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotEqual(t, "not-a-uuid", seen)
	require.Len(t, seen, 36)
}

func TestWriteRateLimited_SetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteRateLimited(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), "slow down")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}
