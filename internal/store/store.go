package store

import (
	"context"
	"errors"

	"github.com/paylens/reconciliation-service/internal/models"
)

// Storage error taxonomy. Implementations translate their native failures
// into these sentinels so callers can map them with errors.Is.
var (
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a unique key was violated on create.
	ErrConflict = errors.New("duplicate record")
	// ErrConstraint means some other integrity rule was violated.
	ErrConstraint = errors.New("constraint violation")
	// ErrTransient means the storage backend failed mid-operation;
	// the operation had no effect and may be retried by the caller.
	ErrTransient = errors.New("transient storage failure")
)

// EntityKind discriminates status changes in a batch.
type EntityKind string

const (
	KindOrder   EntityKind = "order"
	KindPayment EntityKind = "payment"
)

// StatusChange is one status mutation inside an atomic batch.
type StatusChange struct {
	Kind   EntityKind
	ID     int64
	Status models.Status
}

// ListFilter narrows list reads. A zero Status means no status filter;
// Limit <= 0 means no cap.
type ListFilter struct {
	Status models.Status
	Offset int
	Limit  int
}

// Store persists merchants, orders and payments. Create methods assign the
// internal id and audit timestamps on the passed record. List reads return
// records in insertion order, which is the read order the matching engine
// depends on. ApplyStatusChanges commits the whole batch atomically:
// either every change is visible to subsequent readers or none is.
type Store interface {
	CreateMerchant(ctx context.Context, m *models.Merchant) error
	MerchantByBusinessID(ctx context.Context, merchantID string) (*models.Merchant, error)
	Merchants(ctx context.Context, offset, limit int) ([]models.Merchant, error)

	CreateOrder(ctx context.Context, o *models.Order) error
	OrderByReference(ctx context.Context, merchantOrderID string) (*models.Order, error)
	Orders(ctx context.Context, f ListFilter) ([]models.Order, error)

	CreatePayment(ctx context.Context, p *models.Payment) error
	PaymentByReference(ctx context.Context, merchantOrderID string) (*models.Payment, error)
	Payments(ctx context.Context, f ListFilter) ([]models.Payment, error)

	ApplyStatusChanges(ctx context.Context, changes []StatusChange) error
}
