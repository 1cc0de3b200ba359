package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/patterns"
)

// Webhook POSTs reconciliation run summaries to a configured receiver.
// Deliveries go through a circuit breaker so a dead receiver fails fast
// instead of delaying every run.
type Webhook struct {
	client  *resty.Client
	url     string
	circuit *patterns.CircuitBreakerWrapper
}

// NewWebhook creates a notifier for the given receiver URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		client: resty.New().
			SetTimeout(patterns.WebhookTimeout).
			SetRetryCount(0),
		url:     url,
		circuit: patterns.NewCircuitBreaker("Webhook", "reconciliation-service"),
	}
}

// RunCompleted delivers the run summary. The caller treats failures as
// log-only; the run itself is already committed.
func (w *Webhook) RunCompleted(ctx context.Context, result *models.MatchResult) error {
	_, err := w.circuit.Execute(func() (interface{}, error) {
		resp, httpErr := w.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(result).
			Post(w.url)

		if httpErr != nil {
			return nil, fmt.Errorf("HTTP error: %w", httpErr)
		}
		if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("webhook receiver returned status %d", resp.StatusCode())
		}
		return nil, nil
	})
	return patterns.FormatError("Webhook", err)
}
