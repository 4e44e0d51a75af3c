package report

import "context"

// Store is the read contract for reporting aggregates. Every figure is
// derived from committed ledger and credit rows.
type Store interface {
	NetworkStats(ctx context.Context) (*NetworkStats, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
	TrustStats(ctx context.Context, principalID string) (*TrustStats, error)
}
