package entity

import "time"

const (
	SnapshotOutcomePending   = "pending"
	SnapshotOutcomeSucceeded = "succeeded"
	SnapshotOutcomeFailed    = "failed"
)

// IntentSnapshot is a debug/recovery record of one setup attempt. It holds
// identifiers only; client secrets are never stored.
type IntentSnapshot struct {
	ID uint64

	AttemptID     string
	SetupIntentID string
	CustomerID    string

	Step         string
	Outcome      string
	ErrorMessage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
