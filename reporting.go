package bankcore

import (
	"context"
	"time"

	"github.com/moltbot/bankcore/report"
)

// MaxLeaderboardSize caps how many rows a leaderboard query returns.
const MaxLeaderboardSize = 50

// Stats returns network-wide aggregates across accounts, the audit log,
// escrows and credit lines.
func (e *Engine) Stats(ctx context.Context) (*report.NetworkStats, error) {
	return e.store.NetworkStats(ctx)
}

// Leaderboard ranks principals by total entry volume, highest first. limit
// is clamped to MaxLeaderboardSize; zero or negative means the maximum.
func (e *Engine) Leaderboard(ctx context.Context, limit int) ([]report.LeaderboardRow, error) {
	if limit <= 0 || limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	return e.store.Leaderboard(ctx, limit)
}

// TrustScore computes the principal's 0-100 creditworthiness composite from
// repayment behavior, breadth of credit received, and account age. A
// principal without an account yet scores as one month active.
func (e *Engine) TrustScore(ctx context.Context, principalID string) (*report.TrustReport, error) {
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	stats, err := e.store.TrustStats(ctx, principalID)
	if err != nil {
		return nil, err
	}

	months := 1
	acct, err := e.store.GetAccount(ctx, principalID)
	switch {
	case err == nil:
		months = monthsSince(acct.CreatedAt)
	case !IsNotFound(err):
		return nil, err
	}

	rep := report.Trust(principalID, *stats, months)
	return &rep, nil
}

// monthsSince counts whole 30-day months since t, minimum one.
func monthsSince(t time.Time) int {
	months := int(time.Since(t).Hours() / (24 * 30))
	if months < 1 {
		months = 1
	}
	return months
}
