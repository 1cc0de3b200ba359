package models

import "fmt"

// Status is the shared lifecycle for orders and payments.
//
// pending -> completed -> reconciled, with failed reachable from pending
// or completed. reconciled and failed are terminal; only the matching
// engine ever sets reconciled.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusReconciled Status = "reconciled"
)

// ParseStatus validates a status value from an API payload or query string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusFailed, StatusReconciled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Eligible reports whether a record in this status belongs to the
// completed working set considered by the matching engine.
func (s Status) Eligible() bool {
	return s == StatusCompleted
}
