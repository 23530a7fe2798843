package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ConfirmedEvent is the normalized purchase event pushed downstream once a
// session is confirmed complete and paid. Field names are the downstream
// contract; adding fields is safe, renaming is not.
type ConfirmedEvent struct {
	SessionID   string `json:"sessionId"`
	Plan        string `json:"plan,omitempty"`
	BillingMode string `json:"billingMode,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Email       string `json:"email,omitempty"`
	CustomerID  string `json:"customerId,omitempty"`
	ConfirmedAt string `json:"confirmedAt"`
}

// Notifier pushes confirmed purchases to a downstream consumer.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, event ConfirmedEvent) error
}

// WebhookNotifier delivers confirmed events as JSON POSTs to a configured
// automation endpoint (n8n, Zapier or similar).
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier creates a notifier targeting the given URL.
func NewWebhookNotifier(url string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "relay"),
	}
}

// NotifyConfirmed POSTs the event downstream. Any non-2xx response is an
// error; the caller decides whether the overall confirmation fails with it.
func (n *WebhookNotifier) NotifyConfirmed(ctx context.Context, event ConfirmedEvent) error {
	if n.url == "" {
		return fmt.Errorf("relay: no downstream URL configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("relay: marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("relay: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay: delivering event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay: downstream returned %d: %s", resp.StatusCode, string(body))
	}

	n.logger.Info("confirmed purchase relayed",
		"session_id", event.SessionID,
		"plan", event.Plan,
		"status", resp.StatusCode)
	return nil
}

// NoopNotifier swallows events. Used in environments without a downstream
// consumer (local development).
type NoopNotifier struct{}

func (NoopNotifier) NotifyConfirmed(ctx context.Context, event ConfirmedEvent) error {
	return nil
}
