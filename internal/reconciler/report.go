package reconciler

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/store"
)

// BuildReport computes reconciliation totals from current stored statuses
// without re-running any matching. Reconciled totals are summed over
// reconciled payments; "unmatched" counts records still in status
// completed. An empty store produces an all-zero report.
func (s *Service) BuildReport(ctx context.Context) (*models.ReconciliationReport, error) {
	log.Info("Generating reconciliation report")

	var (
		reconciled        []models.Payment
		completedOrders   []models.Order
		completedPayments []models.Payment
	)

	// The three groupings are independent reads; fan them out.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reconciled, err = s.store.Payments(gctx, store.ListFilter{Status: models.StatusReconciled})
		return err
	})
	g.Go(func() error {
		var err error
		completedOrders, err = s.store.Orders(gctx, store.ListFilter{Status: models.StatusCompleted})
		return err
	})
	g.Go(func() error {
		var err error
		completedPayments, err = s.store.Payments(gctx, store.ListFilter{Status: models.StatusCompleted})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read report groupings: %w", err)
	}

	report := &models.ReconciliationReport{
		TotalReconciledAmount:   decimal.Zero,
		UnmatchedOrdersAmount:   decimal.Zero,
		UnmatchedPaymentsAmount: decimal.Zero,
		MerchantsSummary:        []models.MerchantSummary{},
	}

	byMerchant := make(map[int64]*models.MerchantSummary)
	row := func(merchantID int64) *models.MerchantSummary {
		if r, ok := byMerchant[merchantID]; ok {
			return r
		}
		r := &models.MerchantSummary{
			MerchantID:       merchantID,
			ReconciledAmount: decimal.Zero,
		}
		byMerchant[merchantID] = r
		return r
	}

	for _, p := range reconciled {
		report.TotalReconciledCount++
		report.TotalReconciledAmount = report.TotalReconciledAmount.Add(p.Amount)
		r := row(p.MerchantID)
		r.ReconciledCount++
		r.ReconciledAmount = r.ReconciledAmount.Add(p.Amount)
	}
	for _, o := range completedOrders {
		report.TotalUnmatchedOrders++
		report.UnmatchedOrdersAmount = report.UnmatchedOrdersAmount.Add(o.Amount)
		row(o.MerchantID).UnmatchedOrders++
	}
	for _, p := range completedPayments {
		report.TotalUnmatchedPayments++
		report.UnmatchedPaymentsAmount = report.UnmatchedPaymentsAmount.Add(p.Amount)
		row(p.MerchantID).UnmatchedPayments++
	}

	for _, r := range byMerchant {
		report.MerchantsSummary = append(report.MerchantsSummary, *r)
	}
	sort.Slice(report.MerchantsSummary, func(i, j int) bool {
		return report.MerchantsSummary[i].MerchantID < report.MerchantsSummary[j].MerchantID
	})

	log.WithFields(log.Fields{
		"reconciled_count":   report.TotalReconciledCount,
		"unmatched_orders":   report.TotalUnmatchedOrders,
		"unmatched_payments": report.TotalUnmatchedPayments,
		"merchants":          len(report.MerchantsSummary),
	}).Info("Report generated")

	return report, nil
}
