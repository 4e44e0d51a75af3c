package bankcore_test

import (
	"context"
	"errors"
	"testing"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
)

func TestEscrowLifecycle(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	mustDeposit(t, eng, "buyer", 10000)

	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID:          "buyer",
		CounterpartyHandle: "seller",
		Amount:             4000,
		Description:        "website build",
	})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	if es.Status != escrow.StatusActive {
		t.Errorf("status = %q, want active", es.Status)
	}

	// Funds leave the buyer immediately and are not spendable.
	w, err := eng.Wallet(ctx, "buyer")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if w.Balance.Amount != 6000 {
		t.Errorf("buyer balance = %d, want 6000", w.Balance.Amount)
	}
	if w.ActiveEscrows != 1 || w.EscrowHeld.Amount != 4000 {
		t.Errorf("wallet escrow view = %d held in %d escrows, want 4000 in 1",
			w.EscrowHeld.Amount, w.ActiveEscrows)
	}

	released, err := eng.ReleaseEscrow(ctx, es.ID, "buyer")
	if err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}
	if released.Status != escrow.StatusReleased {
		t.Errorf("status = %q, want released", released.Status)
	}

	// Seller received exactly the held amount.
	ws, err := eng.Wallet(ctx, "seller")
	if err != nil {
		t.Fatalf("Wallet(seller): %v", err)
	}
	if ws.Balance.Amount != 4000 {
		t.Errorf("seller balance = %d, want 4000", ws.Balance.Amount)
	}

	// Both lock and release are on the audit trail.
	st, err := eng.Statement(ctx, "buyer", entry.ListOpts{})
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	var sawLock, sawRelease bool
	for _, e := range st.Entries {
		switch e.Type {
		case entry.TypeEscrowLock:
			sawLock = true
		case entry.TypeEscrowRelease:
			sawRelease = true
		}
	}
	if !sawLock || !sawRelease {
		t.Errorf("audit trail missing escrow entries: lock=%v release=%v", sawLock, sawRelease)
	}
}

func TestEscrowCreateRejections(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	mustDeposit(t, eng, "buyer", 100)

	tests := []struct {
		name    string
		req     bankcore.EscrowRequest
		wantErr error
	}{
		{
			"insufficient funds",
			bankcore.EscrowRequest{CreatorID: "buyer", CounterpartyHandle: "seller", Amount: 101},
			bankcore.ErrInsufficientFunds,
		},
		{
			"self escrow",
			bankcore.EscrowRequest{CreatorID: "buyer", CounterpartyHandle: "buyer", Amount: 50},
			bankcore.ErrSelfEscrow,
		},
		{
			"zero amount",
			bankcore.EscrowRequest{CreatorID: "buyer", CounterpartyHandle: "seller", Amount: 0},
			bankcore.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eng.CreateEscrow(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateEscrow = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEscrowRelease(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	mustDeposit(t, eng, "buyer", 1000)

	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID: "buyer", CounterpartyHandle: "seller", Amount: 500,
	})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	// Only the creator can release; not the counterparty, not a stranger.
	if _, err := eng.ReleaseEscrow(ctx, es.ID, "seller"); !errors.Is(err, bankcore.ErrForbidden) {
		t.Errorf("counterparty release = %v, want ErrForbidden", err)
	}
	if _, err := eng.ReleaseEscrow(ctx, es.ID, "stranger"); !errors.Is(err, bankcore.ErrForbidden) {
		t.Errorf("stranger release = %v, want ErrForbidden", err)
	}

	if _, err := eng.ReleaseEscrow(ctx, es.ID, "buyer"); err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}

	// Release is not repeatable: the escrow is terminal and the seller is
	// paid exactly once.
	if _, err := eng.ReleaseEscrow(ctx, es.ID, "buyer"); !errors.Is(err, bankcore.ErrInvalidStatus) {
		t.Errorf("double release = %v, want ErrInvalidStatus", err)
	}
	w, err := eng.Wallet(ctx, "seller")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if w.Balance.Amount != 500 {
		t.Errorf("seller balance = %d, want 500 (paid once)", w.Balance.Amount)
	}
}

func TestEscrowDispute(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	mustDeposit(t, eng, "buyer", 1000)

	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID: "buyer", CounterpartyHandle: "seller", Amount: 300,
	})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	if _, err := eng.DisputeEscrow(ctx, es.ID, "stranger"); !errors.Is(err, bankcore.ErrForbidden) {
		t.Errorf("stranger dispute = %v, want ErrForbidden", err)
	}

	// Either party may dispute; here the counterparty does.
	disputed, err := eng.DisputeEscrow(ctx, es.ID, "seller")
	if err != nil {
		t.Fatalf("DisputeEscrow: %v", err)
	}
	if disputed.Status != escrow.StatusDisputed {
		t.Errorf("status = %q, want disputed", disputed.Status)
	}

	// Disputed is terminal: no release, no second dispute, funds stay held.
	if _, err := eng.ReleaseEscrow(ctx, es.ID, "buyer"); !errors.Is(err, bankcore.ErrInvalidStatus) {
		t.Errorf("release after dispute = %v, want ErrInvalidStatus", err)
	}
	if _, err := eng.DisputeEscrow(ctx, es.ID, "buyer"); !errors.Is(err, bankcore.ErrInvalidStatus) {
		t.Errorf("second dispute = %v, want ErrInvalidStatus", err)
	}
	w, err := eng.Wallet(ctx, "buyer")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if w.Balance.Amount != 700 {
		t.Errorf("buyer balance = %d, want 700 (funds still held)", w.Balance.Amount)
	}
}

func TestEscrowVisibility(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	mustDeposit(t, eng, "buyer", 1000)

	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID: "buyer", CounterpartyHandle: "seller", Amount: 100,
	})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}

	for _, party := range []string{"buyer", "seller"} {
		if _, err := eng.Escrow(ctx, es.ID, party); err != nil {
			t.Errorf("Escrow as %s: %v", party, err)
		}
	}
	if _, err := eng.Escrow(ctx, es.ID, "stranger"); !errors.Is(err, bankcore.ErrForbidden) {
		t.Errorf("Escrow as stranger = %v, want ErrForbidden", err)
	}

	list, err := eng.Escrows(ctx, "seller")
	if err != nil {
		t.Fatalf("Escrows: %v", err)
	}
	if len(list) != 1 || list[0].ID != es.ID {
		t.Errorf("seller escrow list = %d items", len(list))
	}
}
