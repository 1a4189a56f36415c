package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/backend/backendtest"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/session"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

func newSignedInClient(t *testing.T) (*backendtest.Server, *backend.Client, *session.Session) {
	t.Helper()
	srv := backendtest.New(t)
	sess := session.New(nil)
	require.NoError(t, sess.SignIn(context.Background(), session.Tokens{AccessToken: backendtest.DefaultToken}, &entity.User{ID: "user-1"}))
	return srv, backend.NewClient(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, sess), sess
}

func escrowFixture(favorID string, status entity.EscrowStatus) entity.EscrowTransaction {
	return entity.EscrowTransaction{
		ID:              "esc-" + favorID,
		FavorID:         favorID,
		TransactionType: "payment",
		Status:          status,
		Amount:          decimal.RequireFromString("50.00"),
		Currency:        "usd",
		PlatformFee:     decimal.RequireFromString("5.00"),
		ProviderAmount:  decimal.RequireFromString("45.00"),
	}
}

func TestEscrowDispute(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	ctx := context.Background()
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusInProgress))

	tx, err := svc.Dispute(ctx, "favor-1", "  provider never showed up ")
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusDisputed, tx.Status)
	require.NotNil(t, tx.DisputeReason)
	assert.Equal(t, "provider never showed up", *tx.DisputeReason)

	_, err = svc.Dispute(ctx, "favor-1", "again")
	assert.ErrorIs(t, err, ErrAlreadyDisputed)
	assert.ErrorIs(t, err, backend.ErrValidation)
	assert.Equal(t, "This transaction has already been disputed.", DisplayMessage(err))
}

func TestEscrowDisputeCompletedTransaction(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusReleased))

	_, err := svc.Dispute(context.Background(), "favor-1", "late")
	assert.ErrorIs(t, err, ErrTransactionCompleted)
}

func TestEscrowDisputeRequiresReason(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)

	_, err := svc.Dispute(context.Background(), "favor-1", "   ")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, srv.Calls("POST /favors/:id/escrow/dispute"))
}

func TestEscrowResolve(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	ctx := context.Background()
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusDisputed))
	srv.PutEscrow(escrowFixture("favor-2", entity.EscrowStatusInProgress))

	amount := decimal.RequireFromString("20.50")
	tx, err := svc.Resolve(ctx, &types.ResolveDisputeRequest{
		FavorID:         "favor-1",
		Resolution:      entity.ResolutionPartialRelease,
		ResolutionNotes: "split",
		ProviderAmount:  &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusReleased, tx.Status)
	assert.True(t, amount.Equal(tx.ProviderAmount))

	_, err = svc.Resolve(ctx, &types.ResolveDisputeRequest{FavorID: "favor-2", Resolution: entity.ResolutionRefundToRequester})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Resolve(ctx, &types.ResolveDisputeRequest{FavorID: "favor-2", Resolution: "split_evenly"})
	assert.ErrorIs(t, err, ErrInvalidResolution)

	_, err = svc.Resolve(ctx, &types.ResolveDisputeRequest{FavorID: "favor-2", Resolution: entity.ResolutionPartialRelease})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 2, srv.Calls("POST /favors/:id/escrow/resolve"))
}

func TestEscrowResolveForbidden(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	srv.Fail("POST /favors/:id/escrow/resolve", backendtest.Failure{
		Status: http.StatusForbidden,
		Body:   map[string]any{"success": false, "message": "Only admins can resolve disputes"},
	})

	_, err := svc.Resolve(context.Background(), &types.ResolveDisputeRequest{FavorID: "favor-1", Resolution: entity.ResolutionRefundToRequester})
	assert.ErrorIs(t, err, backend.ErrForbidden)
	assert.Equal(t, "Only admins can resolve disputes", DisplayMessage(err))
}

func TestEscrowCancel(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	ctx := context.Background()
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusPending))
	srv.PutEscrow(escrowFixture("favor-2", entity.EscrowStatusInProgress))

	tx, err := svc.Cancel(ctx, "favor-1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusRefunded, tx.Status)

	_, err = svc.Cancel(ctx, "favor-2", "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, ok := srv.Escrow("favor-2")
	require.True(t, ok)
	assert.Equal(t, entity.EscrowStatusInProgress, stored.Status)
}

func TestEscrowCancelUnmappedRejection(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	srv.Fail("POST /favors/:id/escrow/cancel", backendtest.Failure{
		Status: http.StatusUnprocessableEntity,
		Body:   map[string]any{"success": false, "message": "Favor was accepted"},
	})

	_, err := svc.Cancel(context.Background(), "favor-1", "")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, err, backend.ErrValidation)
}

func TestEscrowManualRelease(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	ctx := context.Background()
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusInProgress))

	tx, err := svc.ManualRelease(ctx, "favor-1", "work confirmed offline")
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusReleased, tx.Status)

	_, err = svc.ManualRelease(ctx, "favor-1", "again")
	assert.ErrorIs(t, err, ErrTransactionCompleted)

	_, err = svc.ManualRelease(ctx, "favor-1", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEscrowGetAndList(t *testing.T) {
	srv, client, _ := newSignedInClient(t)
	svc := NewEscrowService(client)
	ctx := context.Background()
	srv.PutEscrow(escrowFixture("favor-1", entity.EscrowStatusInProgress))
	srv.PutEscrow(escrowFixture("favor-2", entity.EscrowStatusDisputed))

	tx, err := svc.GetByFavor(ctx, "favor-1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(tx.Amount))

	_, err = svc.GetByFavor(ctx, "favor-9")
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.False(t, errors.Is(err, ErrInvalidState))

	list, err := svc.List(ctx, &types.ListEscrowTransactionsRequest{Status: entity.EscrowStatusDisputed})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, "favor-2", list.Transactions[0].FavorID)

	_, err = svc.List(ctx, &types.ListEscrowTransactionsRequest{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSentinelFromMessage(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"Transaction is already disputed", ErrAlreadyDisputed},
		{"Escrow already released", ErrTransactionCompleted},
		{"This escrow was ALREADY REFUNDED", ErrTransactionCompleted},
		{"Something else", nil},
	}

	for _, tt := range tests {
		if got := sentinelFromMessage(tt.message); got != tt.want {
			t.Fatalf("sentinelFromMessage(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}
