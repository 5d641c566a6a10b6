package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostInvitationCreated_SendsTextPayload(t *testing.T) {
	received := make(chan webhookPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2000)
	c.PostInvitationCreated(context.Background(), InvitationMessage{
		OrganizationName: "Acme",
		InvitedEmail:     "bob@example.com",
		InvitedByEmail:   "alice@example.com",
		OrganizationsURL: "http://localhost:5001/organizations",
	})

	select {
	case p := <-received:
		require.Contains(t, p.Text, "Acme")
		require.Contains(t, p.Text, "bob@example.com")
		require.Contains(t, p.Text, "alice@example.com")
		require.Contains(t, p.Text, "/organizations")
	case <-time.After(time.Second):
		t.Fatal("webhook was not called")
	}
}

func TestPostInvitationCreated_FailuresDoNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	NewClient(srv.URL, 50).PostInvitationCreated(context.Background(), InvitationMessage{InvitedEmail: "x@example.com"})
	NewClient("http://127.0.0.1:1", 200).PostInvitationCreated(context.Background(), InvitationMessage{})
}

func TestDisabledClient(t *testing.T) {
	var nilClient *Client
	require.False(t, nilClient.Enabled())
	require.False(t, NewClient("", 1000).Enabled())

	nilClient.PostInvitationCreated(context.Background(), InvitationMessage{})
}
