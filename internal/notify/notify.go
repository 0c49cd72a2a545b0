// Package notify posts campaign summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mayant15/railcar-bench/internal/cmn/backoff"
	"github.com/slack-go/slack"
)

// Environment variables holding webhook URLs.
const (
	DiscordWebhookEnv = "DISCORD_WEBHOOK"
	SlackWebhookEnv   = "SLACK_WEBHOOK"
)

const (
	requestTimeout       = 30 * time.Second
	retryInitialInterval = 1 * time.Second
	retryMaxInterval     = 5 * time.Second
	retryMaxRetries      = 3
)

// Notifier delivers a summary text.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// FromEnv returns the notifier configured by env. Discord wins when both
// webhooks are set; with neither, the notifier does nothing.
func FromEnv(env map[string]string) Notifier {
	if url := env[DiscordWebhookEnv]; url != "" {
		return NewDiscord(url)
	}
	if url := env[SlackWebhookEnv]; url != "" {
		return NewSlack(url)
	}
	return Nop{}
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// codeBlock wraps text so chat clients keep the table aligned.
func codeBlock(text string) string {
	return "```\n" + text + "\n```"
}

func retryPolicy() backoff.RetryPolicy {
	base := backoff.NewExponentialBackoffPolicy(retryInitialInterval)
	base.MaxInterval = retryMaxInterval
	base.MaxRetries = retryMaxRetries
	return backoff.WithJitter(base, backoff.FullJitter)
}

// statusError is a webhook response outside the 2xx range.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned HTTP %d: %s", e.code, e.body)
}

// isRetriable retries rate limiting, server errors and transport failures.
func isRetriable(err error) bool {
	code := 0
	var se *statusError
	var sce slack.StatusCodeError
	switch {
	case errors.As(err, &se):
		code = se.code
	case errors.As(err, &sce):
		code = sce.Code
	default:
		return !errors.Is(err, context.Canceled)
	}
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 504)
}

// Discord posts to a Discord webhook.
type Discord struct {
	url    string
	client *resty.Client
	policy backoff.RetryPolicy
}

// NewDiscord creates a Discord notifier for url.
func NewDiscord(url string) *Discord {
	return &Discord{
		url:    url,
		client: resty.New().SetTimeout(requestTimeout),
		policy: retryPolicy(),
	}
}

type discordMessage struct {
	Content string `json:"content"`
}

func (d *Discord) Notify(ctx context.Context, text string) error {
	return backoff.Retry(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(discordMessage{Content: codeBlock(text)}).
			Post(d.url)
		if err != nil {
			return fmt.Errorf("failed to post to discord: %w", err)
		}
		if resp.IsError() {
			return &statusError{code: resp.StatusCode(), body: resp.String()}
		}
		return nil
	}, d.policy, isRetriable)
}

// Slack posts to a Slack incoming webhook.
type Slack struct {
	url    string
	client *http.Client
	policy backoff.RetryPolicy
}

// NewSlack creates a Slack notifier for url.
func NewSlack(url string) *Slack {
	return &Slack{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		policy: retryPolicy(),
	}
}

func (s *Slack) Notify(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{Text: codeBlock(text)}
	return backoff.Retry(ctx, func(ctx context.Context) error {
		if err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, msg); err != nil {
			return fmt.Errorf("failed to post to slack: %w", err)
		}
		return nil
	}, s.policy, isRetriable)
}
