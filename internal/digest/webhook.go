package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/pkg/httpretry"
	"github.com/ignite/region-insights/internal/pkg/logger"
	"github.com/ignite/region-insights/internal/service/report"
)

// WebhookPayload is posted to chat webhooks. Text is Slack-compatible.
type WebhookPayload struct {
	Text       string `json:"text"`
	ReportID   string `json:"report_id"`
	AlertCount int    `json:"alert_count"`
	HighCount  int    `json:"high_count"`
}

// WebhookSender posts digests to an incoming-webhook URL with retries.
type WebhookSender struct {
	url           string
	client        httpretry.HTTPDoer
	renderer      *Renderer
	sendWhenQuiet bool
}

// NewWebhookSender creates a webhook sender. A nil client gets the default
// retrying client.
func NewWebhookSender(url string, client httpretry.HTTPDoer, renderer *Renderer, sendWhenQuiet bool) *WebhookSender {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &WebhookSender{url: url, client: client, renderer: renderer, sendWhenQuiet: sendWhenQuiet}
}

// Notify posts the digest for r.
func (w *WebhookSender) Notify(ctx context.Context, r *report.Report) error {
	if r.Quiet() && !w.sendWhenQuiet {
		return nil
	}

	d, err := w.renderer.Render(r)
	if err != nil {
		return err
	}

	body, err := json.Marshal(WebhookPayload{
		Text:       d.Subject + "\n\n" + d.Body,
		ReportID:   r.ID,
		AlertCount: len(r.Alerts),
		HighCount:  len(r.AlertsBySeverity(domain.SeverityHigh)),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting digest webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("digest webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	logger.Info("digest posted", "report", r.ID, "status", resp.StatusCode)
	return nil
}
