package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"CourtWatch/internal/domain"
	"CourtWatch/internal/ports"
)

// WebhookNotifier posts ranked match results as JSON to the external
// delivery service. The pipeline never sends user-facing messages itself.
type WebhookNotifier struct {
	endpoint string
	token    string
	client   *http.Client
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier registers the delivery endpoint and optional bearer token.
func NewWebhookNotifier(endpoint, token string) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver posts the match batch. An empty batch is a no-op.
func (n *WebhookNotifier) Deliver(ctx context.Context, matches []domain.MatchResult) error {
	if n.endpoint == "" {
		return fmt.Errorf("webhook notifier misconfigured")
	}
	if len(matches) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(matches))
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver matches: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return nil
}

func buildPayload(matches []domain.MatchResult) any {
	type item struct {
		UserID  string   `json:"user_id"`
		AlertID string   `json:"alert_id"`
		Title   string   `json:"title"`
		Type    string   `json:"type"`
		Score   int      `json:"score"`
		Reasons []string `json:"reasons"`
	}

	payload := make([]item, 0, len(matches))
	for _, m := range matches {
		payload = append(payload, item{
			UserID:  m.UserID,
			AlertID: m.Alert.ID,
			Title:   m.Alert.Title,
			Type:    string(m.Alert.Type),
			Score:   m.Score,
			Reasons: m.Reasons,
		})
	}
	return map[string]any{"matches": payload}
}
