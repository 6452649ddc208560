package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"listing-radar/internal/domain"
)

// WebhookNotifier POSTs the alert as JSON to one endpoint.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier for one endpoint.
func NewWebhookNotifier(endpoint string) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Compile-time interface check.
var _ Notifier = (*WebhookNotifier)(nil)

// Name implements Notifier.
func (n *WebhookNotifier) Name() string { return "webhook" }

// Notify implements Notifier. No retries here: redelivery is the
// channel's concern, not the pipeline's.
func (n *WebhookNotifier) Notify(ctx context.Context, c *domain.TokenCandidate, v domain.Verdict) error {
	body, err := json.Marshal(alertRecord{Candidate: c, Verdict: v})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", n.endpoint, resp.StatusCode)
	}
	return nil
}
