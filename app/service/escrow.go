package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

const (
	escrowCodeAlreadyDisputed      = "already_disputed"
	escrowCodeTransactionCompleted = "transaction_completed"
	escrowCodeInvalidState         = "invalid_state"
)

type escrowAPI interface {
	GetEscrow(ctx context.Context, favorID string) (*entity.EscrowTransaction, error)
	ListEscrowTransactions(ctx context.Context, filter backend.EscrowFilter) (*backend.EscrowList, error)
	DisputeEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error)
	ResolveEscrowDispute(ctx context.Context, favorID string, req backend.ResolveDisputeRequest) (*entity.EscrowTransaction, error)
	ManualReleaseEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error)
	CancelEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error)
}

// EscrowService forwards escrow reads and transition requests to the
// backend, which owns the transaction state.
type EscrowService struct {
	api    escrowAPI
	logger logrus.FieldLogger
}

func NewEscrowService(api escrowAPI) *EscrowService {
	return &EscrowService{
		api:    api,
		logger: factory.NewModuleLogger("escrow-service"),
	}
}

func (s *EscrowService) GetByFavor(ctx context.Context, favorID string) (*entity.EscrowTransaction, error) {
	favorID = strings.TrimSpace(favorID)
	if favorID == "" {
		return nil, ErrInvalidRequest
	}
	return s.api.GetEscrow(ctx, favorID)
}

func (s *EscrowService) List(ctx context.Context, req *types.ListEscrowTransactionsRequest) (*backend.EscrowList, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.api.ListEscrowTransactions(ctx, backend.EscrowFilter{
		Status:          req.Status,
		TransactionType: req.TransactionType,
		Page:            backend.Page{Page: req.Page, PerPage: req.PerPage},
	})
}

func (s *EscrowService) Dispute(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	favorID = strings.TrimSpace(favorID)
	if favorID == "" || strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.api.DisputeEscrow(ctx, favorID, strings.TrimSpace(reason))
	if err != nil {
		return nil, s.translate(err, "dispute", favorID)
	}
	return tx, nil
}

// Resolve settles a dispute. Only privileged users may call it; the backend
// enforces that with a 403.
func (s *EscrowService) Resolve(ctx context.Context, req *types.ResolveDisputeRequest) (*entity.EscrowTransaction, error) {
	if !req.Resolution.Valid() {
		return nil, ErrInvalidResolution
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	tx, err := s.api.ResolveEscrowDispute(ctx, req.FavorID, backend.ResolveDisputeRequest{
		Resolution:      req.Resolution,
		ResolutionNotes: req.ResolutionNotes,
		ProviderAmount:  req.ProviderAmount,
	})
	if err != nil {
		return nil, s.translate(err, "resolve", req.FavorID)
	}
	return tx, nil
}

func (s *EscrowService) ManualRelease(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	favorID = strings.TrimSpace(favorID)
	if favorID == "" || strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.api.ManualReleaseEscrow(ctx, favorID, strings.TrimSpace(reason))
	if err != nil {
		return nil, s.translate(err, "manual_release", favorID)
	}
	return tx, nil
}

// Cancel is only valid before the favor is accepted.
func (s *EscrowService) Cancel(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	favorID = strings.TrimSpace(favorID)
	if favorID == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.api.CancelEscrow(ctx, favorID, strings.TrimSpace(reason))
	if err != nil {
		translated := s.translate(err, "cancel", favorID)
		if translated == err && (errors.Is(err, backend.ErrValidation) || errors.Is(err, backend.ErrBadRequest)) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		return nil, translated
	}
	return tx, nil
}

func (s *EscrowService) translate(err error, action, favorID string) error {
	apiErr := backend.As(err)
	if apiErr == nil {
		return err
	}

	var sentinel error
	switch apiErr.Code {
	case escrowCodeAlreadyDisputed:
		sentinel = ErrAlreadyDisputed
	case escrowCodeTransactionCompleted:
		sentinel = ErrTransactionCompleted
	case escrowCodeInvalidState:
		sentinel = ErrInvalidState
	default:
		if apiErr.Kind == backend.KindValidation || apiErr.Kind == backend.KindBadRequest {
			sentinel = sentinelFromMessage(apiErr.Message)
		}
	}
	if sentinel == nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"action":   action,
		"favor_id": favorID,
		"code":     apiErr.Code,
	}).Info("escrow_action_rejected")
	return fmt.Errorf("%w: %w", sentinel, err)
}

func sentinelFromMessage(message string) error {
	message = strings.ToLower(message)
	switch {
	case strings.Contains(message, "already disputed"):
		return ErrAlreadyDisputed
	case strings.Contains(message, "already completed"), strings.Contains(message, "already released"),
		strings.Contains(message, "already refunded"):
		return ErrTransactionCompleted
	default:
		return nil
	}
}
