package models

import "github.com/shopspring/decimal"

// MatchedPair records one order and one payment jointly reconciled
// in a single run.
type MatchedPair struct {
	OrderID         int64           `json:"order_id"`
	PaymentID       int64           `json:"payment_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// MatchResult is the outcome of a single reconciliation run. The unmatched
// lists are scoped to the working set this run observed.
type MatchResult struct {
	RunID             string        `json:"run_id"`
	MatchedCount      int           `json:"matched_count"`
	MatchedPairs      []MatchedPair `json:"matched_pairs"`
	UnmatchedOrders   []string      `json:"unmatched_orders"`
	UnmatchedPayments []string      `json:"unmatched_payments"`
}

// MerchantSummary is one row of the per-merchant report breakdown.
// MerchantID is the internal merchant reference.
type MerchantSummary struct {
	MerchantID        int64           `json:"merchant_id"`
	ReconciledCount   int             `json:"reconciled_count"`
	ReconciledAmount  decimal.Decimal `json:"reconciled_amount"`
	UnmatchedOrders   int             `json:"unmatched_orders"`
	UnmatchedPayments int             `json:"unmatched_payments"`
}

// ReconciliationReport summarizes reconciliation state from stored
// statuses. "Unmatched" means still in status completed, i.e. eligible
// but not yet reconciled; it does not mean a match was attempted and
// failed.
type ReconciliationReport struct {
	TotalReconciledAmount   decimal.Decimal   `json:"total_reconciled_amount"`
	TotalReconciledCount    int               `json:"total_reconciled_count"`
	TotalUnmatchedOrders    int               `json:"total_unmatched_orders"`
	TotalUnmatchedPayments  int               `json:"total_unmatched_payments"`
	UnmatchedOrdersAmount   decimal.Decimal   `json:"unmatched_orders_amount"`
	UnmatchedPaymentsAmount decimal.Decimal   `json:"unmatched_payments_amount"`
	MerchantsSummary        []MerchantSummary `json:"merchants_summary"`
}

// DiscrepanciesResponse is the raw dump of completed records for manual
// triage. No pairing is attempted.
type DiscrepanciesResponse struct {
	UnmatchedOrders   []Order   `json:"unmatched_orders"`
	UnmatchedPayments []Payment `json:"unmatched_payments"`
}
