package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.sendgrid.com/v3/mail/send"

// Sender delivers transactional email. The auth core produces the tokens
// embedded in reset and invitation links but never sends mail itself; it
// hands the rendered message to this collaborator.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SendGridSender is the default HTTP implementation against the SendGrid
// v3 mail send API.
type SendGridSender struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
}

var _ Sender = (*SendGridSender)(nil)

// NewSendGridSender constructs the sender. endpoint may be empty to use the
// public API host.
func NewSendGridSender(client *http.Client, endpoint, apiKey, from string) *SendGridSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &SendGridSender{httpClient: client, endpoint: endpoint, apiKey: apiKey, from: from}
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send posts the message and treats any non-2xx response as a delivery
// failure.
func (s *SendGridSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: to}}}},
		From:             address{Email: s.from},
		Subject:          subject,
		Content:          []content{{Type: "text/html", Value: htmlBody}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send mail: status=%d", resp.StatusCode)
	}
	return nil
}
