package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Mailer delivers one rendered message. Implementations must respect ctx
// cancellation; the dispatcher bounds every call with a timeout.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type httpMailer struct {
	url    string
	apiKey string
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPMailer sends via a JSON email API (Resend-style POST).
func NewHTTPMailer(url, apiKey string, logger zerolog.Logger) Mailer {
	return &httpMailer{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("service", "HTTPMailer").Logger(),
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Send posts the message to the provider, retrying transient failures with
// exponential backoff until ctx expires. 4xx responses are not retried: the
// request will not get better on its own.
func (m *httpMailer) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}
	body, err := json.Marshal(sendRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("marshaling send request: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if m.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+m.apiKey)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return fmt.Errorf("provider request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		m.logger.Warn().Int("status_code", resp.StatusCode).Str("to", msg.To).Msg("Provider send failed, retrying")
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 0 // bounded by ctx
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
