package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RobertM05/car-sniper/internal/model"
)

// Notifier delivers alert hits to the subscriber.
type Notifier interface {
	Notify(ctx context.Context, a model.Alert, hits []model.CanonicalListing) error
}

// LogNotifier writes alert hits to the log. It is the default sink when
// no webhook is configured.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, a model.Alert, hits []model.CanonicalListing) error {
	zap.L().Info("alert: hits found",
		zap.String("alert_id", a.ID),
		zap.String("email", a.Email),
		zap.String("make", a.Make),
		zap.String("model", a.Model),
		zap.Int("max_price", a.MaxPrice),
		zap.Int("hits", len(hits)))
	return nil
}

// WebhookNotifier posts alert hits as JSON to a configured endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Alert model.Alert              `json:"alert"`
	Hits  []model.CanonicalListing `json:"hits"`
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, a model.Alert, hits []model.CanonicalListing) error {
	body, err := json.Marshal(webhookPayload{Alert: a, Hits: hits})
	if err != nil {
		return eris.Wrap(err, "alert: marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "alert: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alert: post webhook")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return eris.Errorf("alert: webhook returned %d", resp.StatusCode)
	}
	return nil
}
