package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusPending    EscrowStatus = "pending"
	EscrowStatusConfirmed  EscrowStatus = "confirmed"
	EscrowStatusInProgress EscrowStatus = "in_progress"
	EscrowStatusDisputed   EscrowStatus = "disputed"
	EscrowStatusReleased   EscrowStatus = "released"
	EscrowStatusRefunded   EscrowStatus = "refunded"
	EscrowStatusExpired    EscrowStatus = "expired"
)

type DisputeResolution string

const (
	ResolutionReleaseToProvider DisputeResolution = "release_to_provider"
	ResolutionRefundToRequester DisputeResolution = "refund_to_requester"
	ResolutionPartialRelease    DisputeResolution = "partial_release"
)

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:    {EscrowStatusConfirmed},
	EscrowStatusConfirmed:  {EscrowStatusInProgress},
	EscrowStatusInProgress: {EscrowStatusDisputed, EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired},
	EscrowStatusDisputed:   {EscrowStatusReleased, EscrowStatusRefunded},
}

// EscrowTransaction is owned by the backend; the client only reads it and
// requests transitions.
type EscrowTransaction struct {
	ID              string          `json:"id"`
	FavorID         string          `json:"favor_id"`
	RequesterID     string          `json:"requester_id"`
	ProviderID      string          `json:"provider_id"`
	TransactionType string          `json:"transaction_type"`
	Status          EscrowStatus    `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
	ProviderAmount  decimal.Decimal `json:"provider_amount"`
	HoldUntil       *time.Time      `json:"hold_until,omitempty"`
	DisputeReason   *string         `json:"dispute_reason,omitempty"`
	ResolutionNotes *string         `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (s EscrowStatus) Valid() bool {
	switch s {
	case EscrowStatusPending, EscrowStatusConfirmed, EscrowStatusInProgress, EscrowStatusDisputed,
		EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired:
		return true
	default:
		return false
	}
}

func (s EscrowStatus) Terminal() bool {
	switch s {
	case EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired:
		return true
	default:
		return false
	}
}

func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	for _, candidate := range escrowTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanDispute reports whether a dispute may still be opened.
func (t *EscrowTransaction) CanDispute() bool {
	return t != nil && t.Status.CanTransitionTo(EscrowStatusDisputed)
}

// CanCancel reports whether the favor is still before acceptance.
func (t *EscrowTransaction) CanCancel() bool {
	return t != nil && (t.Status == EscrowStatusPending || t.Status == EscrowStatusConfirmed)
}

func (r DisputeResolution) Valid() bool {
	switch r {
	case ResolutionReleaseToProvider, ResolutionRefundToRequester, ResolutionPartialRelease:
		return true
	default:
		return false
	}
}
