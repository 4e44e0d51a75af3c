// Package report holds read models derived from the audit trail: network
// statistics, leaderboards and trust scoring. Nothing here mutates state;
// every figure is reconstructable from ledger entries and credit rows.
package report

// NetworkStats aggregates activity across the whole ledger.
type NetworkStats struct {
	TotalAccounts      int64 `json:"total_accounts"`
	TotalVolume        int64 `json:"total_transaction_volume"`
	TotalEscrows       int64 `json:"total_escrows"`
	ActiveEscrows      int64 `json:"active_escrows"`
	ActiveEscrowValue  int64 `json:"total_escrow_value"`
	ActiveCreditLines  int64 `json:"active_credit_lines"`
	TotalCreditLimit   int64 `json:"total_credit_limit"`
	TotalCreditUsed    int64 `json:"total_credit_used"`
	CreditTransactions int64 `json:"total_credit_transactions"`
	CreditVolume       int64 `json:"total_credit_volume"`
}

// LeaderboardRow ranks a principal by total entry volume on either side of
// the ledger.
type LeaderboardRow struct {
	Rank             int    `json:"rank"`
	PrincipalID      string `json:"principal_id"`
	TotalVolume      int64  `json:"total_volume"`
	TransactionCount int64  `json:"transaction_count"`
}

// TrustStats are the raw aggregates trust scoring is computed from.
// LinesReceived counts active lines only; the draw and repay totals span
// every line the principal has ever received.
type TrustStats struct {
	LinesReceived    int64 `json:"credit_lines_received"`
	TotalDraws       int64 `json:"total_draws"`
	TotalRepays      int64 `json:"total_repayments"`
	TotalDrawAmount  int64 `json:"total_draw_amount"`
	TotalRepayAmount int64 `json:"total_repay_amount"`
}

// TrustBreakdown itemizes the trust score components.
type TrustBreakdown struct {
	RepaymentRate int `json:"repayment_rate"`
	CreditNetwork int `json:"credit_network"`
	AccountAge    int `json:"account_age"`
}

// TrustReport is the 0-100 composite creditworthiness view of a principal.
type TrustReport struct {
	PrincipalID  string         `json:"principal_id"`
	Score        int            `json:"trust_score"`
	Breakdown    TrustBreakdown `json:"breakdown"`
	Stats        TrustStats     `json:"summary"`
	MonthsActive int            `json:"months_active"`
}

// Trust score weights. Repayment behavior dominates, then account age,
// then breadth of the credit network.
const (
	repaymentWeight   = 40
	networkPointsPer  = 20
	networkCap        = 20
	agePointsPerMonth = 5
	ageCap            = 40
	maxScore          = 100
)

// Trust computes the composite trust score from raw aggregates and the
// principal's account age in months (minimum one month).
func Trust(principalID string, stats TrustStats, monthsActive int) TrustReport {
	if monthsActive < 1 {
		monthsActive = 1
	}

	var repayment float64
	if stats.TotalDraws > 0 {
		repayment = float64(stats.TotalRepays) / float64(stats.TotalDraws) * repaymentWeight
	}

	network := int(stats.LinesReceived) * networkPointsPer
	if network > networkCap {
		network = networkCap
	}

	age := monthsActive * agePointsPerMonth
	if age > ageCap {
		age = ageCap
	}

	score := int(repayment+0.5) + network + age
	if score > maxScore {
		score = maxScore
	}

	return TrustReport{
		PrincipalID: principalID,
		Score:       score,
		Breakdown: TrustBreakdown{
			RepaymentRate: int(repayment + 0.5),
			CreditNetwork: network,
			AccountAge:    age,
		},
		Stats:        stats,
		MonthsActive: monthsActive,
	}
}
