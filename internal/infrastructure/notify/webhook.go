package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/dispatcher"
	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/event"
	"go.uber.org/zap"
)

// HTTPClient interface for testability
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds webhook notifier configuration
type Config struct {
	WebhookURL string
	Timeout    time.Duration
}

// WebhookNotifier posts transition notifications as JSON to a webhook
// endpoint. It implements port.Notifier; delivery is best effort and a
// failed post never propagates back into the workflow.
type WebhookNotifier struct {
	webhookURL string
	httpClient HTTPClient
	logger     *zap.Logger
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg Config, logger *zap.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Notify posts the payload to the configured webhook. A missing webhook URL
// turns delivery into a no-op.
func (n *WebhookNotifier) Notify(ctx context.Context, payload map[string]interface{}) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// RegisterHandlers subscribes notification delivery to every workflow event
// type. Handler errors are logged and swallowed so a dead webhook endpoint
// cannot stall the dispatcher's error accounting for other subscribers.
func (n *WebhookNotifier) RegisterHandlers(d dispatcher.Dispatcher) {
	types := []event.Type{
		event.TypeDocumentSubmitted,
		event.TypeDocumentApproved,
		event.TypeDocumentRejected,
		event.TypeDocumentCanceled,
		event.TypeLineActivated,
		event.TypeLineDecided,
	}

	for _, t := range types {
		d.SubscribeNamed(t, "webhook-notify", n.handleEvent)
	}
}

func (n *WebhookNotifier) handleEvent(ctx context.Context, evt *event.Event) error {
	payload := map[string]interface{}{
		"event":       string(evt.Type),
		"event_id":    evt.ID,
		"document_id": evt.DocumentID,
		"actor_id":    evt.ActorID,
		"timestamp":   evt.Timestamp.UTC().Format(time.RFC3339),
	}
	for k, v := range evt.Payload {
		payload[k] = v
	}

	if err := n.Notify(ctx, payload); err != nil {
		n.logger.Warn("Notification delivery failed",
			zap.String("event", string(evt.Type)),
			zap.Int64("document_id", evt.DocumentID),
			zap.Error(err))
	}
	return nil
}

// Verify interface compliance
var _ port.Notifier = (*WebhookNotifier)(nil)
