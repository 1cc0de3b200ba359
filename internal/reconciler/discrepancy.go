package reconciler

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/store"
)

// ListDiscrepancies returns the full order and payment records still in
// status completed, for manual triage. This is a raw dump of the current
// working set, not the unmatched lists of any particular run.
func (s *Service) ListDiscrepancies(ctx context.Context) (*models.DiscrepanciesResponse, error) {
	orders, err := s.store.Orders(ctx, store.ListFilter{Status: models.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("read completed orders: %w", err)
	}
	payments, err := s.store.Payments(ctx, store.ListFilter{Status: models.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("read completed payments: %w", err)
	}

	log.WithFields(log.Fields{
		"unmatched_orders":   len(orders),
		"unmatched_payments": len(payments),
	}).Info("Discrepancies listed")

	return &models.DiscrepanciesResponse{
		UnmatchedOrders:   orders,
		UnmatchedPayments: payments,
	}, nil
}
