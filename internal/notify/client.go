package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// InvitationMessage describes a freshly created invitation
type InvitationMessage struct {
	OrganizationName string
	InvitedEmail     string
	InvitedByEmail   string
	OrganizationsURL string
}

// Client posts Slack-compatible webhook notifications. A Client with an empty
// webhook URL is disabled and every Post is a no-op.
type Client struct {
	webhookURL string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a webhook client with the specified timeout
func NewClient(webhookURL string, timeoutMS int) *Client {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Enabled reports whether a webhook URL is configured
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

type webhookPayload struct {
	Text string `json:"text"`
}

// PostInvitationCreated announces a new invitation.
// It never returns errors: every failure is logged at WARN so the invitation
// request is unaffected.
func (c *Client) PostInvitationCreated(ctx context.Context, msg InvitationMessage) {
	if !c.Enabled() {
		return
	}

	jsonData, err := json.Marshal(webhookPayload{Text: buildInvitationText(msg)})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Warn().
			Err(err).
			Str("webhook_url", "<set>").
			Msg("Failed to create webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeoutError(err) {
			log.Warn().
				Err(err).
				Dur("timeout", c.timeout).
				Str("invited_email", msg.InvitedEmail).
				Msg("Invitation webhook timed out")
		} else {
			log.Warn().
				Err(err).
				Str("invited_email", msg.InvitedEmail).
				Msg("Failed to send invitation webhook")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Int("status_code", resp.StatusCode).
			Str("invited_email", msg.InvitedEmail).
			Msg("Invitation webhook returned non-2xx status")
		return
	}

	log.Info().
		Str("organization", msg.OrganizationName).
		Str("invited_email", msg.InvitedEmail).
		Msg("Invitation webhook sent")
}

func buildInvitationText(msg InvitationMessage) string {
	text := fmt.Sprintf(
		"*New invitation*\n\n"+
			"*Organization:* %s\n"+
			"*Invited:* %s\n"+
			"*Invited by:* %s",
		msg.OrganizationName,
		msg.InvitedEmail,
		msg.InvitedByEmail,
	)
	if msg.OrganizationsURL != "" {
		text += fmt.Sprintf("\n\n<%s|Open TeamHub>", msg.OrganizationsURL)
	}
	return text
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
