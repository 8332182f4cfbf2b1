package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"careaudit-backend/internal/shared/telemetry"
)

// HTTPEmailSender posts messages to a transactional email API.
type HTTPEmailSender struct {
	client *resty.Client
	url    string
	from   string
}

// NewHTTPEmailSender constructs an HTTPEmailSender.
func NewHTTPEmailSender(apiURL, apiKey, from string) *HTTPEmailSender {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetRetryCount(1).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &HTTPEmailSender{client: client, url: apiURL, from: from}
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendEmail delivers one message.
func (s *HTTPEmailSender) SendEmail(ctx context.Context, e Email) error {
	if e.To == "" {
		return errors.New("email recipient is empty")
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(emailPayload{From: s.from, To: []string{e.To}, Subject: e.Subject, HTML: e.HTML}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("send email: unexpected status %d", resp.StatusCode())
	}
	return nil
}

// LogEmailSender only logs messages. Used when no email API is configured.
type LogEmailSender struct{}

// SendEmail logs the message envelope.
func (LogEmailSender) SendEmail(ctx context.Context, e Email) error {
	telemetry.Info("notify.email_logged", map[string]any{
		"to":      e.To,
		"subject": e.Subject,
	})
	return nil
}
