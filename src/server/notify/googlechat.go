// Package notify posts reminder messages to chat webhooks.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
)

// GoogleChat posts plain-text messages to an incoming webhook.
type GoogleChat struct {
	url      string
	client   *resty.Client
	attempts uint
	delay    time.Duration
}

func NewGoogleChat(webhookURL string) *GoogleChat {
	return &GoogleChat{
		url:      webhookURL,
		client:   resty.New().SetTimeout(10 * time.Second),
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
}

// Enabled reports whether a webhook URL is configured.
func (g *GoogleChat) Enabled() bool {
	return g != nil && g.url != ""
}

// Post sends text and reports whether the webhook accepted it. Server errors
// and rate limiting are retried; other failures are not.
func (g *GoogleChat) Post(ctx context.Context, text string) bool {
	if !g.Enabled() {
		return false
	}
	err := retry.Do(
		func() error {
			res, err := g.client.R().
				SetContext(ctx).
				SetHeader("Content-Type", "application/json; charset=UTF-8").
				SetBody(map[string]string{"text": text}).
				Post(g.url)
			if err != nil {
				return fmt.Errorf("client.R.Post > %w", err)
			}
			status := res.StatusCode()
			if status == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("status code: %d, body: %s", status, string(res.Body()))
			if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
				return err
			}
			return retry.Unrecoverable(err)
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		slog.Warn("Google Chat post failed", "error", err)
		return false
	}
	return true
}
