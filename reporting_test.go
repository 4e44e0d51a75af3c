package bankcore_test

import (
	"context"
	"testing"

	bankcore "github.com/moltbot/bankcore"
)

func TestNetworkStats(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	mustDeposit(t, eng, "a", 10000)
	mustDeposit(t, eng, "b", 5000)
	if _, err := eng.Transfer(ctx, bankcore.TransferRequest{
		FromPrincipalID: "a", ToHandle: "b", Amount: 2000,
	}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	es, err := eng.CreateEscrow(ctx, bankcore.EscrowRequest{
		CreatorID: "a", CounterpartyHandle: "b", Amount: 1000,
	})
	if err != nil {
		t.Fatalf("CreateEscrow: %v", err)
	}
	l := extendLine(t, eng, "a", "b", 3000)
	if _, err := eng.DrawCredit(ctx, l.ID, "b", 1200, ""); err != nil {
		t.Fatalf("DrawCredit: %v", err)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalAccounts != 2 {
		t.Errorf("accounts = %d, want 2", stats.TotalAccounts)
	}
	// Two deposits, one transfer, one escrow lock; credit entries are
	// excluded from balance volume.
	if want := int64(10000 + 5000 + 2000 + 1000); stats.TotalVolume != want {
		t.Errorf("volume = %d, want %d", stats.TotalVolume, want)
	}
	if stats.ActiveEscrows != 1 || stats.ActiveEscrowValue != 1000 {
		t.Errorf("escrows = %d worth %d, want 1 worth 1000", stats.ActiveEscrows, stats.ActiveEscrowValue)
	}
	if stats.ActiveCreditLines != 1 || stats.TotalCreditUsed != 1200 {
		t.Errorf("credit = %d lines, used %d, want 1 and 1200", stats.ActiveCreditLines, stats.TotalCreditUsed)
	}
	if stats.CreditTransactions != 1 || stats.CreditVolume != 1200 {
		t.Errorf("credit txs = %d worth %d, want 1 worth 1200", stats.CreditTransactions, stats.CreditVolume)
	}

	// Released escrow drops out of the active figures.
	if _, err := eng.ReleaseEscrow(ctx, es.ID, "a"); err != nil {
		t.Fatalf("ReleaseEscrow: %v", err)
	}
	stats, err = eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ActiveEscrows != 0 || stats.TotalEscrows != 1 {
		t.Errorf("after release: active = %d total = %d, want 0 and 1", stats.ActiveEscrows, stats.TotalEscrows)
	}
}

func TestLeaderboard(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	mustDeposit(t, eng, "whale", 100000)
	mustDeposit(t, eng, "minnow", 100)
	if _, err := eng.Transfer(ctx, bankcore.TransferRequest{
		FromPrincipalID: "whale", ToHandle: "minnow", Amount: 5000,
	}); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	rows, err := eng.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].PrincipalID != "whale" || rows[0].Rank != 1 {
		t.Errorf("rank 1 = %s (%d), want whale", rows[0].PrincipalID, rows[0].Rank)
	}
	// Whale: 100000 deposit + 5000 transfer. Minnow: 100 deposit + 5000
	// transfer.
	if rows[0].TotalVolume != 105000 {
		t.Errorf("whale volume = %d, want 105000", rows[0].TotalVolume)
	}
	if rows[1].TotalVolume != 5100 {
		t.Errorf("minnow volume = %d, want 5100", rows[1].TotalVolume)
	}

	// Limit is honored.
	rows, err = eng.Leaderboard(ctx, 1)
	if err != nil {
		t.Fatalf("Leaderboard(1): %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("limited rows = %d, want 1", len(rows))
	}
}

func TestTrustScore(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	// Grantee with perfect repayment on one line, brand-new account.
	mustDeposit(t, eng, "borrower", 10)
	l := extendLine(t, eng, "lender", "borrower", 1000)
	for i := 0; i < 3; i++ {
		if _, err := eng.DrawCredit(ctx, l.ID, "borrower", 100, ""); err != nil {
			t.Fatalf("DrawCredit: %v", err)
		}
		if _, err := eng.RepayCredit(ctx, l.ID, "borrower", 100, ""); err != nil {
			t.Fatalf("RepayCredit: %v", err)
		}
	}

	rep, err := eng.TrustScore(ctx, "borrower")
	if err != nil {
		t.Fatalf("TrustScore: %v", err)
	}
	// 40 repayment (3/3 draws repaid) + 20 network (capped) + 5 age
	// (minimum one month).
	if rep.Breakdown.RepaymentRate != 40 {
		t.Errorf("repayment points = %d, want 40", rep.Breakdown.RepaymentRate)
	}
	if rep.Breakdown.CreditNetwork != 20 {
		t.Errorf("network points = %d, want 20", rep.Breakdown.CreditNetwork)
	}
	if rep.Breakdown.AccountAge != 5 {
		t.Errorf("age points = %d, want 5", rep.Breakdown.AccountAge)
	}
	if rep.Score != 65 {
		t.Errorf("score = %d, want 65", rep.Score)
	}
	if rep.Stats.TotalDraws != 3 || rep.Stats.TotalRepays != 3 {
		t.Errorf("stats = %d draws %d repays, want 3 and 3", rep.Stats.TotalDraws, rep.Stats.TotalRepays)
	}

	// A principal with no history scores only the age minimum.
	rep, err = eng.TrustScore(ctx, "nobody")
	if err != nil {
		t.Fatalf("TrustScore(nobody): %v", err)
	}
	if rep.Score != 5 {
		t.Errorf("empty score = %d, want 5", rep.Score)
	}
}

func TestTrustScoreIgnoresRevokedLines(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	l := extendLine(t, eng, "lender", "grantee", 1000)
	if _, err := eng.DrawCredit(ctx, l.ID, "grantee", 200, ""); err != nil {
		t.Fatalf("DrawCredit: %v", err)
	}
	if _, err := eng.RepayCredit(ctx, l.ID, "grantee", 200, ""); err != nil {
		t.Fatalf("RepayCredit: %v", err)
	}
	if _, err := eng.RevokeCredit(ctx, l.ID, "lender"); err != nil {
		t.Fatalf("RevokeCredit: %v", err)
	}

	rep, err := eng.TrustScore(ctx, "grantee")
	if err != nil {
		t.Fatalf("TrustScore: %v", err)
	}
	// Only active lines earn network points; repayment history on the
	// revoked line still counts.
	if rep.Stats.LinesReceived != 0 {
		t.Errorf("lines received = %d, want 0 after revocation", rep.Stats.LinesReceived)
	}
	if rep.Breakdown.CreditNetwork != 0 {
		t.Errorf("network points = %d, want 0", rep.Breakdown.CreditNetwork)
	}
	if rep.Breakdown.RepaymentRate != 40 {
		t.Errorf("repayment points = %d, want 40", rep.Breakdown.RepaymentRate)
	}
	// 40 repayment + 0 network + 5 age.
	if rep.Score != 45 {
		t.Errorf("score = %d, want 45", rep.Score)
	}
}
