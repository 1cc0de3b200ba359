package patterns

import (
	"errors"
	"fmt"

	"github.com/paylens/reconciliation-service/internal/metrics"
)

// ErrBulkheadFull is returned when no slot is free.
var ErrBulkheadFull = errors.New("bulkhead: no capacity")

// Bulkhead bounds concurrent executions with a semaphore. With size 1 it
// serializes a critical section: the reconciliation engine uses that to
// enforce its single-writer assumption in-process. Unlike a blocking lock
// it rejects immediately, so a second caller gets a busy error instead of
// queueing behind a running reconciliation.
type Bulkhead struct {
	semaphore chan struct{}
	name      string
	service   string
}

// NewBulkhead creates a new bulkhead with the given capacity.
func NewBulkhead(size int, name, service string) *Bulkhead {
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		name:      name,
		service:   service,
	}
}

// Execute runs fn if a slot is free, otherwise rejects with ErrBulkheadFull.
func (b *Bulkhead) Execute(fn func() error) error {
	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()

		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()

		return fn()

	default:
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: %w", b.name, ErrBulkheadFull)
	}
}
