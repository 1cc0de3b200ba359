package reconciler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/paylens/reconciliation-service/internal/metrics"
	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/store"
)

// Service implements the record operations exposed to the transport layer:
// creating merchants, orders and payments, and the read views over them.
// Merchant references on orders and payments are resolved from the business
// identifier to the internal id at create time.
type Service struct {
	store store.Store
}

// NewService creates a Service on top of the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateMerchant registers a new merchant. Duplicate business identifiers
// surface store.ErrConflict.
func (s *Service) CreateMerchant(ctx context.Context, req models.CreateMerchantRequest) (*models.Merchant, error) {
	log.WithFields(log.Fields{
		"merchant_id": req.MerchantID,
		"name":        req.MerchantName,
	}).Info("Creating merchant")

	m := &models.Merchant{
		MerchantID:   req.MerchantID,
		MerchantName: req.MerchantName,
	}
	if err := s.store.CreateMerchant(ctx, m); err != nil {
		log.WithField("merchant_id", req.MerchantID).Warn("Merchant creation failed: ", err)
		return nil, err
	}

	metrics.RecordsCreated.WithLabelValues("merchant", "").Inc()
	log.WithFields(log.Fields{"id": m.ID, "merchant_id": m.MerchantID}).Info("Merchant created")
	return m, nil
}

// Merchant looks up a merchant by business identifier.
func (s *Service) Merchant(ctx context.Context, merchantID string) (*models.Merchant, error) {
	return s.store.MerchantByBusinessID(ctx, merchantID)
}

// Merchants lists merchants with pagination.
func (s *Service) Merchants(ctx context.Context, offset, limit int) ([]models.Merchant, error) {
	return s.store.Merchants(ctx, offset, limit)
}

// CreateOrder records a new order for an existing merchant. The merchant
// business identifier must resolve (store.ErrNotFound otherwise) and the
// order reference must be globally unique (store.ErrConflict otherwise).
func (s *Service) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	log.WithFields(log.Fields{
		"merchant_order_id": req.MerchantOrderID,
		"merchant_id":       req.MerchantID,
	}).Info("Creating order")

	merchant, err := s.store.MerchantByBusinessID(ctx, req.MerchantID)
	if err != nil {
		log.WithField("merchant_id", req.MerchantID).Warn("Merchant not found for order")
		return nil, err
	}

	orderDate, err := models.ParseDate(req.OrderDate)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, store.ErrConstraint)
	}
	status, err := startingStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, store.ErrConstraint)
	}

	o := &models.Order{
		MerchantID:      merchant.ID,
		MerchantOrderID: req.MerchantOrderID,
		Amount:          decimal.NewFromFloat(req.Amount).Round(2),
		Currency:        req.Currency,
		Description:     req.Description,
		OrderDate:       orderDate,
		Status:          status,
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		log.WithField("merchant_order_id", req.MerchantOrderID).Warn("Order creation failed: ", err)
		return nil, err
	}

	metrics.RecordsCreated.WithLabelValues("order", string(o.Status)).Inc()
	log.WithFields(log.Fields{"id": o.ID, "merchant_order_id": o.MerchantOrderID}).Info("Order created")
	return o, nil
}

// Order looks up an order by its merchant order reference.
func (s *Service) Order(ctx context.Context, merchantOrderID string) (*models.Order, error) {
	return s.store.OrderByReference(ctx, merchantOrderID)
}

// Orders lists orders, optionally filtered by status.
func (s *Service) Orders(ctx context.Context, f store.ListFilter) ([]models.Order, error) {
	return s.store.Orders(ctx, f)
}

// CreatePayment records a new payment for an existing merchant, with the
// same resolution and uniqueness rules as CreateOrder.
func (s *Service) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	log.WithFields(log.Fields{
		"merchant_order_id": req.MerchantOrderID,
		"merchant_id":       req.MerchantID,
	}).Info("Creating payment")

	merchant, err := s.store.MerchantByBusinessID(ctx, req.MerchantID)
	if err != nil {
		log.WithField("merchant_id", req.MerchantID).Warn("Merchant not found for payment")
		return nil, err
	}

	paymentDate, err := models.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, store.ErrConstraint)
	}
	status, err := startingStatus(req.Status)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, store.ErrConstraint)
	}

	p := &models.Payment{
		MerchantID:      merchant.ID,
		MerchantOrderID: req.MerchantOrderID,
		Amount:          decimal.NewFromFloat(req.Amount).Round(2),
		Currency:        req.Currency,
		Description:     req.Description,
		PaymentDate:     paymentDate,
		Status:          status,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		log.WithField("merchant_order_id", req.MerchantOrderID).Warn("Payment creation failed: ", err)
		return nil, err
	}

	metrics.RecordsCreated.WithLabelValues("payment", string(p.Status)).Inc()
	log.WithFields(log.Fields{"id": p.ID, "merchant_order_id": p.MerchantOrderID}).Info("Payment created")
	return p, nil
}

// Payment looks up a payment by its merchant order reference.
func (s *Service) Payment(ctx context.Context, merchantOrderID string) (*models.Payment, error) {
	return s.store.PaymentByReference(ctx, merchantOrderID)
}

// Payments lists payments, optionally filtered by status.
func (s *Service) Payments(ctx context.Context, f store.ListFilter) ([]models.Payment, error) {
	return s.store.Payments(ctx, f)
}

func startingStatus(s string) (models.Status, error) {
	if s == "" {
		return models.StatusPending, nil
	}
	return models.ParseStatus(s)
}
