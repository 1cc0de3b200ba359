package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paylens/reconciliation-service/internal/models"
)

// Memory is an in-process Store keeping records in insertion order.
// It is the default backend when no DATABASE_URL is configured and the
// backend used by tests.
type Memory struct {
	mu sync.RWMutex

	nextID int64

	merchants     map[int64]*models.Merchant
	merchantByBiz map[string]int64
	merchantIDs   []int64

	orders     map[int64]*models.Order
	orderByRef map[string]int64
	orderIDs   []int64

	payments     map[int64]*models.Payment
	paymentByRef map[string]int64
	paymentIDs   []int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		merchants:     make(map[int64]*models.Merchant),
		merchantByBiz: make(map[string]int64),
		orders:        make(map[int64]*models.Order),
		orderByRef:    make(map[string]int64),
		payments:      make(map[int64]*models.Payment),
		paymentByRef:  make(map[string]int64),
	}
}

func (s *Memory) allocID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Memory) CreateMerchant(_ context.Context, m *models.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.merchantByBiz[m.MerchantID]; exists {
		return fmt.Errorf("merchant %q: %w", m.MerchantID, ErrConflict)
	}

	now := time.Now().UTC()
	m.ID = s.allocID()
	m.CreatedAt = now
	m.UpdatedAt = now

	stored := *m
	s.merchants[m.ID] = &stored
	s.merchantByBiz[m.MerchantID] = m.ID
	s.merchantIDs = append(s.merchantIDs, m.ID)
	return nil
}

func (s *Memory) MerchantByBusinessID(_ context.Context, merchantID string) (*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.merchantByBiz[merchantID]
	if !ok {
		return nil, fmt.Errorf("merchant %q: %w", merchantID, ErrNotFound)
	}
	m := *s.merchants[id]
	return &m, nil
}

func (s *Memory) Merchants(_ context.Context, offset, limit int) ([]models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Merchant, 0, len(s.merchantIDs))
	for _, id := range s.merchantIDs {
		out = append(out, *s.merchants[id])
	}
	return page(out, offset, limit), nil
}

func (s *Memory) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.merchants[o.MerchantID]; !ok {
		return fmt.Errorf("order merchant reference %d: %w", o.MerchantID, ErrConstraint)
	}
	if _, exists := s.orderByRef[o.MerchantOrderID]; exists {
		return fmt.Errorf("order %q: %w", o.MerchantOrderID, ErrConflict)
	}

	now := time.Now().UTC()
	o.ID = s.allocID()
	o.CreatedAt = now
	o.UpdatedAt = now

	stored := *o
	s.orders[o.ID] = &stored
	s.orderByRef[o.MerchantOrderID] = o.ID
	s.orderIDs = append(s.orderIDs, o.ID)
	return nil
}

func (s *Memory) OrderByReference(_ context.Context, merchantOrderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.orderByRef[merchantOrderID]
	if !ok {
		return nil, fmt.Errorf("order %q: %w", merchantOrderID, ErrNotFound)
	}
	o := *s.orders[id]
	return &o, nil
}

func (s *Memory) Orders(_ context.Context, f ListFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		o := s.orders[id]
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	return page(out, f.Offset, f.Limit), nil
}

func (s *Memory) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.merchants[p.MerchantID]; !ok {
		return fmt.Errorf("payment merchant reference %d: %w", p.MerchantID, ErrConstraint)
	}
	if _, exists := s.paymentByRef[p.MerchantOrderID]; exists {
		return fmt.Errorf("payment %q: %w", p.MerchantOrderID, ErrConflict)
	}

	now := time.Now().UTC()
	p.ID = s.allocID()
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	s.payments[p.ID] = &stored
	s.paymentByRef[p.MerchantOrderID] = p.ID
	s.paymentIDs = append(s.paymentIDs, p.ID)
	return nil
}

func (s *Memory) PaymentByReference(_ context.Context, merchantOrderID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.paymentByRef[merchantOrderID]
	if !ok {
		return nil, fmt.Errorf("payment %q: %w", merchantOrderID, ErrNotFound)
	}
	p := *s.payments[id]
	return &p, nil
}

func (s *Memory) Payments(_ context.Context, f ListFilter) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Payment, 0, len(s.paymentIDs))
	for _, id := range s.paymentIDs {
		p := s.payments[id]
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, *p)
	}
	return page(out, f.Offset, f.Limit), nil
}

// ApplyStatusChanges validates the whole batch before mutating anything,
// so a bad change leaves the store untouched.
func (s *Memory) ApplyStatusChanges(_ context.Context, changes []StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		switch c.Kind {
		case KindOrder:
			if _, ok := s.orders[c.ID]; !ok {
				return fmt.Errorf("status batch: order %d: %w", c.ID, ErrNotFound)
			}
		case KindPayment:
			if _, ok := s.payments[c.ID]; !ok {
				return fmt.Errorf("status batch: payment %d: %w", c.ID, ErrNotFound)
			}
		default:
			return fmt.Errorf("status batch: unknown entity kind %q: %w", c.Kind, ErrConstraint)
		}
	}

	now := time.Now().UTC()
	for _, c := range changes {
		switch c.Kind {
		case KindOrder:
			s.orders[c.ID].Status = c.Status
			s.orders[c.ID].UpdatedAt = now
		case KindPayment:
			s.payments[c.ID].Status = c.Status
			s.payments[c.ID].UpdatedAt = now
		}
	}
	return nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
