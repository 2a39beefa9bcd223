// Package gateway delivers match notices to the chat platform side.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/pkg/logger"
)

const defaultWebhookTimeout = 3 * time.Second

var (
	// ErrNoWebhookURL is returned by NewWebhook without a target.
	ErrNoWebhookURL = errors.New("webhook url is required")
	// ErrBadWebhookURL is returned for urls that are not absolute http(s).
	ErrBadWebhookURL = errors.New("webhook url must be an absolute http url")
	// ErrDeliveryRejected is returned when the webhook answers with a non-2xx status.
	ErrDeliveryRejected = errors.New("notice rejected by webhook")
)

// Log writes notices to the logger. It is the default gateway.
type Log struct {
	logger logger.Logger
}

// NewLog returns a gateway that logs every notice to l as given. A nil l
// uses the global logger named "gateway".
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Named("gateway")
	}
	return &Log{logger: l}
}

// Deliver logs n.
func (g *Log) Deliver(ctx context.Context, n model.Notice) error { //nolint:gocritic // hugeParam: notices travel by value
	fields := []logger.Field{
		logger.String("kind", string(n.Kind)),
		logger.String("match_id", n.MatchID),
	}
	if n.ChannelID != 0 {
		fields = append(fields, logger.Uint64("channel_id", n.ChannelID))
	}
	if n.Title != "" {
		fields = append(fields, logger.String("title", n.Title))
	}
	if n.Required > 0 {
		fields = append(fields,
			logger.Int("for", n.For),
			logger.Int("against", n.Against),
			logger.Int("required", n.Required),
		)
	}
	g.logger.Info(ctx, n.Text, fields...)
	return nil
}

// Webhook POSTs each notice as JSON.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithTimeout bounds each POST.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithHTTPClient replaces the default client. The webhook works on a copy,
// so c itself is never modified.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// NewWebhook returns a gateway posting to url.
func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	if url == "" {
		return nil, ErrNoWebhookURL
	}
	u, err := neturl.Parse(url)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrBadWebhookURL, url)
	}
	w := &Webhook{url: url, client: &http.Client{Timeout: defaultWebhookTimeout}}
	for _, opt := range opts {
		opt(w)
	}
	c := *w.client
	if w.timeout > 0 {
		c.Timeout = w.timeout
	}
	w.client = &c
	return w, nil
}

// Deliver posts n and treats any non-2xx answer as a failure.
func (w *Webhook) Deliver(ctx context.Context, n model.Notice) error { //nolint:gocritic // hugeParam: notices travel by value
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDeliveryRejected, resp.StatusCode)
	}
	return nil
}
