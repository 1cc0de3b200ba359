package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/paylens/reconciliation-service/internal/events"
	"github.com/paylens/reconciliation-service/internal/metrics"
	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/notify"
	"github.com/paylens/reconciliation-service/internal/patterns"
	"github.com/paylens/reconciliation-service/internal/store"
)

// ErrRunInProgress is returned when Reconcile is invoked while another run
// holds the engine.
var ErrRunInProgress = errors.New("reconciliation already in progress")

// dateWindowDays is the inclusive matching window between order date and
// payment date.
const dateWindowDays = 3

// Engine pairs completed orders with completed payments and transitions
// matched pairs to reconciled in one atomic batch.
//
// Runs are serialized in-process through a size-1 bulkhead; a concurrent
// caller gets ErrRunInProgress. Deployments with multiple replicas against
// one store must still serialize runs externally.
type Engine struct {
	store     store.Store
	guard     *patterns.Bulkhead
	publisher *events.Publisher
	notifier  *notify.Webhook
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher attaches a run-event publisher.
func WithPublisher(p *events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithNotifier attaches a webhook notifier.
func WithNotifier(n *notify.Webhook) Option {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine creates a matching engine over the given store.
func NewEngine(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: st,
		guard: patterns.NewBulkhead(1, "reconcile", "reconciliation-service"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile runs the matching algorithm over the full completed working
// set. Matched records leave the pool, so re-invoking on an unchanged
// store yields an empty result.
func (e *Engine) Reconcile(ctx context.Context) (*models.MatchResult, error) {
	var result *models.MatchResult
	err := e.guard.Execute(func() error {
		var runErr error
		result, runErr = e.run(ctx)
		return runErr
	})

	switch {
	case errors.Is(err, patterns.ErrBulkheadFull):
		metrics.ReconciliationRuns.WithLabelValues(metrics.OutcomeBusy).Inc()
		return nil, ErrRunInProgress
	case err != nil:
		metrics.ReconciliationRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}

	metrics.ReconciliationRuns.WithLabelValues(metrics.OutcomeCompleted).Inc()
	return result, nil
}

func (e *Engine) run(ctx context.Context) (*models.MatchResult, error) {
	runID := uuid.NewString()
	runLog := log.WithField("run_id", runID)
	runLog.Info("Starting reconciliation run")

	orders, err := e.store.Orders(ctx, store.ListFilter{Status: models.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("read completed orders: %w", err)
	}
	payments, err := e.store.Payments(ctx, store.ListFilter{Status: models.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("read completed payments: %w", err)
	}

	runLog.WithFields(log.Fields{
		"orders":   len(orders),
		"payments": len(payments),
	}).Info("Loaded completed working set")

	matchedOrders := make(map[int64]bool)
	matchedPayments := make(map[int64]bool)
	pairs := []models.MatchedPair{}
	changes := []store.StatusChange{}

	// First-fit over payments in read order, one match per order.
	for _, order := range orders {
		for _, payment := range payments {
			if matchedPayments[payment.ID] {
				continue
			}
			if payment.MerchantOrderID != order.MerchantOrderID ||
				payment.MerchantID != order.MerchantID {
				continue
			}
			if !payment.Amount.Equal(order.Amount) {
				runLog.WithFields(log.Fields{
					"merchant_order_id": order.MerchantOrderID,
					"order_amount":      order.Amount,
					"payment_amount":    payment.Amount,
				}).Warn("Amount mismatch")
				continue
			}
			if !order.OrderDate.IsZero() && !payment.PaymentDate.IsZero() {
				if diff := payment.PaymentDate.DaysApart(order.OrderDate); diff > dateWindowDays {
					runLog.WithFields(log.Fields{
						"merchant_order_id": order.MerchantOrderID,
						"day_difference":    diff,
					}).Warn("Payment date outside matching window")
					continue
				}
			}

			matchedOrders[order.ID] = true
			matchedPayments[payment.ID] = true
			pairs = append(pairs, models.MatchedPair{
				OrderID:         order.ID,
				PaymentID:       payment.ID,
				MerchantOrderID: order.MerchantOrderID,
				Amount:          order.Amount,
			})
			changes = append(changes,
				store.StatusChange{Kind: store.KindOrder, ID: order.ID, Status: models.StatusReconciled},
				store.StatusChange{Kind: store.KindPayment, ID: payment.ID, Status: models.StatusReconciled},
			)

			runLog.WithFields(log.Fields{
				"order_id":          order.ID,
				"payment_id":        payment.ID,
				"merchant_order_id": order.MerchantOrderID,
				"amount":            order.Amount,
			}).Info("Match found")
			break
		}
	}

	if len(changes) > 0 {
		if err := e.store.ApplyStatusChanges(ctx, changes); err != nil {
			runLog.Error("Commit failed, no matches applied: ", err)
			return nil, fmt.Errorf("commit reconciliation run: %w", err)
		}
	}

	result := &models.MatchResult{
		RunID:             runID,
		MatchedCount:      len(pairs),
		MatchedPairs:      pairs,
		UnmatchedOrders:   []string{},
		UnmatchedPayments: []string{},
	}
	for _, o := range orders {
		if !matchedOrders[o.ID] {
			result.UnmatchedOrders = append(result.UnmatchedOrders, o.MerchantOrderID)
		}
	}
	for _, p := range payments {
		if !matchedPayments[p.ID] {
			result.UnmatchedPayments = append(result.UnmatchedPayments, p.MerchantOrderID)
		}
	}

	metrics.MatchedPairsTotal.Add(float64(len(pairs)))
	for _, pair := range pairs {
		metrics.MatchedAmount.Observe(pair.Amount.InexactFloat64())
	}

	runLog.WithFields(log.Fields{
		"matched":            result.MatchedCount,
		"unmatched_orders":   len(result.UnmatchedOrders),
		"unmatched_payments": len(result.UnmatchedPayments),
	}).Info("Reconciliation run complete")

	e.announce(ctx, result)
	return result, nil
}

// announce publishes the run summary to the configured sinks. Strictly
// best-effort: the matches are already committed, a delivery failure only
// gets logged.
func (e *Engine) announce(ctx context.Context, result *models.MatchResult) {
	if e.publisher != nil && e.publisher.Enabled() {
		pubCtx, cancel := context.WithTimeout(ctx, patterns.PublishTimeout)
		if err := e.publisher.PublishRunCompleted(pubCtx, result); err != nil {
			log.WithField("run_id", result.RunID).Warn("Run event publish failed: ", err)
		}
		cancel()
	}
	if e.notifier != nil {
		if err := e.notifier.RunCompleted(ctx, result); err != nil {
			log.WithField("run_id", result.RunID).Warn("Webhook delivery failed: ", err)
		}
	}
}
