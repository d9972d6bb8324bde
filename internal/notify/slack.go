package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrWebhookStatus is returned when the webhook answers with anything but 200
var ErrWebhookStatus = errors.New("slack webhook returned non-200 status")

// Notifier delivers a rendered chat message
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Waiter paces outbound calls; satisfied by worker.Limiter
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

type slackPayload struct {
	Text        string `json:"text"`
	UnfurlLinks bool   `json:"unfurl_links"`
	UnfurlMedia bool   `json:"unfurl_media"`
}

// SlackNotifier posts messages to an incoming webhook
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	limiter    Waiter
	logger     *slog.Logger
}

// SlackOption configures a SlackNotifier
type SlackOption func(*SlackNotifier)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) SlackOption {
	return func(s *SlackNotifier) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithSlackLimiter paces posts under the "slack" key
func WithSlackLimiter(w Waiter) SlackOption {
	return func(s *SlackNotifier) { s.limiter = w }
}

// WithSlackLogger sets the notifier logger
func WithSlackLogger(logger *slog.Logger) SlackOption {
	return func(s *SlackNotifier) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSlackNotifier creates a notifier for webhookURL
func NewSlackNotifier(webhookURL string, opts ...SlackOption) (*SlackNotifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}

	s := &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send posts text with link and media unfurling disabled
func (s *SlackNotifier) Send(ctx context.Context, text string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, "slack"); err != nil {
			return fmt.Errorf("wait for slack slot: %w", err)
		}
	}

	body, err := json.Marshal(slackPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWebhookStatus, resp.StatusCode, string(respBody))
	}

	s.logger.Info("slack message sent", "chars", len(text))
	return nil
}
