// Package discord implements the Discord webhook integration. Expedition
// events are posted as embeds to the town channel; delivery is best-effort
// behind a retrier and a circuit breaker, and never blocks a command.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bourgade-rp/bourgade-hub/pkg/circuitbreaker"
	"github.com/bourgade-rp/bourgade-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the webhook client.
type ClientConfig struct {
	// WebhookURL is the full Discord webhook URL.
	WebhookURL string

	// Username overrides the webhook's display name (optional).
	Username string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(webhookURL string) ClientConfig {
	return ClientConfig{
		WebhookURL: webhookURL,
		Username:   "Bourgade",
		Timeout:    10 * time.Second,
	}
}

// ErrWebhookNotConfigured is returned when the client has no webhook URL.
var ErrWebhookNotConfigured = errors.New("discord: webhook URL not configured")

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Embed colors for expedition notifications.
const (
	ColorCreated  = 0x3498DB // blue
	ColorLocked   = 0xF39C12 // orange
	ColorDeparted = 0x9B59B6 // purple
	ColorReturned = 0x2ECC71 // green
	ColorDanger   = 0xE74C3C // red
	ColorNeutral  = 0x95A5A6 // grey
)

// WebhookPayload is the body posted to the webhook.
type WebhookPayload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Embed is a Discord rich embed.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the embed footer line.
type EmbedFooter struct {
	Text string `json:"text"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client posts payloads to a Discord webhook with retries and a circuit
// breaker. A tripped breaker drops notifications instead of queueing them.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a new webhook client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	logger := config.Logger
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retrier: retry.DiscordRetrier(),
		breaker: circuitbreaker.DiscordBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
		logger: logger,
	}
}

// Execute posts a payload to the webhook.
func (c *Client) Execute(ctx context.Context, payload WebhookPayload) error {
	if c.config.WebhookURL == "" {
		return ErrWebhookNotConfigured
	}
	if payload.Username == "" {
		payload.Username = c.config.Username
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.post(ctx, body)
		})
	})
}

// post performs one HTTP attempt and classifies the outcome for the retrier.
func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		// Respect Retry-After before the retrier's own backoff kicks in.
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			select {
			case <-time.After(time.Duration(seconds) * time.Second):
			case <-ctx.Done():
				return retry.Permanent(ctx.Err())
			}
		}
		return retry.Retryable(fmt.Errorf("discord: rate limited"))

	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("discord: server error %d", resp.StatusCode))

	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.Permanent(fmt.Errorf("discord: webhook rejected with %d: %s", resp.StatusCode, detail))
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}
