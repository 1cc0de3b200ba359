package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paylens/reconciliation-service/internal/models"
	"github.com/paylens/reconciliation-service/internal/store"
)

// --- test fixtures ---

func mkMerchant(t *testing.T, st store.Store, bizID string) *models.Merchant {
	t.Helper()
	m := &models.Merchant{MerchantID: bizID, MerchantName: bizID + " Inc"}
	require.NoError(t, st.CreateMerchant(context.Background(), m))
	return m
}

func mkOrder(t *testing.T, st store.Store, merchantID int64, ref, amount string, date models.Date, status models.Status) *models.Order {
	t.Helper()
	o := &models.Order{
		MerchantID:      merchantID,
		MerchantOrderID: ref,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		OrderDate:       date,
		Status:          status,
	}
	require.NoError(t, st.CreateOrder(context.Background(), o))
	return o
}

func mkPayment(t *testing.T, st store.Store, merchantID int64, ref, amount string, date models.Date, status models.Status) *models.Payment {
	t.Helper()
	p := &models.Payment{
		MerchantID:      merchantID,
		MerchantOrderID: ref,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		PaymentDate:     date,
		Status:          status,
	}
	require.NoError(t, st.CreatePayment(context.Background(), p))
	return p
}

func date(y int, m time.Month, d int) models.Date {
	return models.NewDate(y, m, d)
}

// failingStore injects a commit failure into an otherwise working store.
type failingStore struct {
	store.Store
	applyErr error
}

func (f *failingStore) ApplyStatusChanges(ctx context.Context, changes []store.StatusChange) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	return f.Store.ApplyStatusChanges(ctx, changes)
}

// blockingStore parks the first Orders read until released, to hold a run
// open while a second one is attempted.
type blockingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Orders(ctx context.Context, f store.ListFilter) ([]models.Order, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.Orders(ctx, f)
}

// --- tests ---

func TestReconcile_MatchesWithinDateWindow(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	order := mkOrder(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	payment := mkPayment(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 30), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.MatchedCount)
	require.Len(t, result.MatchedPairs, 1)
	pair := result.MatchedPairs[0]
	assert.Equal(t, order.ID, pair.OrderID)
	assert.Equal(t, payment.ID, pair.PaymentID)
	assert.Equal(t, "ORDER_001", pair.MerchantOrderID)
	assert.True(t, pair.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Empty(t, result.UnmatchedOrders)
	assert.Empty(t, result.UnmatchedPayments)
	assert.NotEmpty(t, result.RunID)

	gotOrder, err := st.OrderByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, gotOrder.Status)
	gotPayment, err := st.PaymentByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, gotPayment.Status)
}

func TestReconcile_DateOutsideWindow(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.February, 5), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchedCount)
	assert.Equal(t, []string{"ORDER_001"}, result.UnmatchedOrders)
	assert.Equal(t, []string{"ORDER_001"}, result.UnmatchedPayments)

	gotOrder, err := st.OrderByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotOrder.Status)
	gotPayment, err := st.PaymentByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotPayment.Status)
}

func TestReconcile_ThreeDayBoundaryInclusive(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "50.00", date(2025, time.March, 10), models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_001", "50.00", date(2025, time.March, 13), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
}

func TestReconcile_AmountMismatch(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_001", "99.99", date(2025, time.January, 29), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchedCount)
	assert.Equal(t, []string{"ORDER_001"}, result.UnmatchedOrders)
	assert.Equal(t, []string{"ORDER_001"}, result.UnmatchedPayments)
}

func TestReconcile_MerchantLinkageIsByInternalReference(t *testing.T) {
	st := store.NewMemory()
	m1 := mkMerchant(t, st, "M1")
	m2 := mkMerchant(t, st, "M2")
	mkOrder(t, st, m1.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	// Same reference and amount but a different merchant: must not match.
	mkPayment(t, st, m2.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchedCount)
}

func TestReconcile_OnlyCompletedRecordsConsidered(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusPending)
	mkPayment(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	mkOrder(t, st, m.ID, "ORDER_002", "20.00", date(2025, time.January, 29), models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_002", "20.00", date(2025, time.January, 29), models.StatusFailed)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.MatchedCount)
	assert.Equal(t, []string{"ORDER_002"}, result.UnmatchedOrders)
	assert.Equal(t, []string{"ORDER_001"}, result.UnmatchedPayments)
}

func TestReconcile_MissingDatesArePermissive(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "100.00", models.Date{}, models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.June, 1), models.StatusCompleted)

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
}

func TestReconcile_OneToOneAcrossMultiplePairs(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	for _, ref := range []string{"ORDER_001", "ORDER_002", "ORDER_003"} {
		mkOrder(t, st, m.ID, ref, "10.00", date(2025, time.May, 1), models.StatusCompleted)
		mkPayment(t, st, m.ID, ref, "10.00", date(2025, time.May, 2), models.StatusCompleted)
	}

	result, err := NewEngine(st).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.MatchedCount)
	seenOrders := map[int64]bool{}
	seenPayments := map[int64]bool{}
	for _, pair := range result.MatchedPairs {
		assert.False(t, seenOrders[pair.OrderID], "order consumed twice")
		assert.False(t, seenPayments[pair.PaymentID], "payment consumed twice")
		seenOrders[pair.OrderID] = true
		seenPayments[pair.PaymentID] = true
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	st := store.NewMemory()
	m := mkMerchant(t, st, "M1")
	mkOrder(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	mkPayment(t, st, m.ID, "ORDER_001", "100.00", date(2025, time.January, 30), models.StatusCompleted)

	engine := NewEngine(st)
	first, err := engine.Reconcile(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.MatchedCount)

	second, err := engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.MatchedCount)
	assert.Empty(t, second.MatchedPairs)
	assert.Empty(t, second.UnmatchedOrders)
	assert.Empty(t, second.UnmatchedPayments)
}

func TestReconcile_CommitFailureLeavesStateUntouched(t *testing.T) {
	mem := store.NewMemory()
	m := mkMerchant(t, mem, "M1")
	mkOrder(t, mem, m.ID, "ORDER_001", "100.00", date(2025, time.January, 29), models.StatusCompleted)
	mkPayment(t, mem, m.ID, "ORDER_001", "100.00", date(2025, time.January, 30), models.StatusCompleted)

	st := &failingStore{Store: mem, applyErr: store.ErrTransient}
	result, err := NewEngine(st).Reconcile(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTransient))
	assert.Nil(t, result)

	gotOrder, err := mem.OrderByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotOrder.Status)
	gotPayment, err := mem.PaymentByReference(context.Background(), "ORDER_001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, gotPayment.Status)

	// The failed run applied nothing, so a retry against a healthy store
	// finds the full working set again.
	retried, err := NewEngine(mem).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retried.MatchedCount)
}

func TestReconcile_ConcurrentRunRejected(t *testing.T) {
	mem := store.NewMemory()
	blocked := &blockingStore{
		Store:   mem,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	engine := NewEngine(blocked)

	done := make(chan error, 1)
	go func() {
		_, err := engine.Reconcile(context.Background())
		done <- err
	}()

	<-blocked.entered
	_, err := engine.Reconcile(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(blocked.release)
	require.NoError(t, <-done)
}
