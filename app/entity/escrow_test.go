package entity

import "testing"

func TestEscrowTransitions(t *testing.T) {
	allowed := [][2]EscrowStatus{
		{EscrowStatusPending, EscrowStatusConfirmed},
		{EscrowStatusConfirmed, EscrowStatusInProgress},
		{EscrowStatusInProgress, EscrowStatusDisputed},
		{EscrowStatusInProgress, EscrowStatusReleased},
		{EscrowStatusInProgress, EscrowStatusRefunded},
		{EscrowStatusInProgress, EscrowStatusExpired},
		{EscrowStatusDisputed, EscrowStatusReleased},
		{EscrowStatusDisputed, EscrowStatusRefunded},
	}
	for _, pair := range allowed {
		if !pair[0].CanTransitionTo(pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	for _, terminal := range []EscrowStatus{EscrowStatusReleased, EscrowStatusRefunded, EscrowStatusExpired} {
		if !terminal.Terminal() {
			t.Fatalf("expected %s to be terminal", terminal)
		}
		for _, next := range []EscrowStatus{EscrowStatusPending, EscrowStatusInProgress, EscrowStatusDisputed, EscrowStatusReleased} {
			if terminal.CanTransitionTo(next) {
				t.Fatalf("terminal state %s must not move to %s", terminal, next)
			}
		}
	}

	if EscrowStatusDisputed.CanTransitionTo(EscrowStatusExpired) {
		t.Fatal("disputed escrow must resolve to released or refunded only")
	}
}

func TestEscrowTransactionActions(t *testing.T) {
	pending := &EscrowTransaction{Status: EscrowStatusPending}
	if !pending.CanCancel() || pending.CanDispute() {
		t.Fatalf("pending escrow: cancel=%v dispute=%v", pending.CanCancel(), pending.CanDispute())
	}

	active := &EscrowTransaction{Status: EscrowStatusInProgress}
	if active.CanCancel() || !active.CanDispute() {
		t.Fatalf("in-progress escrow: cancel=%v dispute=%v", active.CanCancel(), active.CanDispute())
	}

	var missing *EscrowTransaction
	if missing.CanCancel() || missing.CanDispute() {
		t.Fatal("nil escrow must not allow actions")
	}
}
