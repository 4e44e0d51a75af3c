package credit

import (
	"context"

	"github.com/moltbot/bankcore/id"
)

// Store is the read contract for credit lines and their transactions.
// Mutations happen only through a unit of work (store.Tx).
type Store interface {
	GetCreditLine(ctx context.Context, lineID id.CreditLineID) (*Line, error)

	// CreditLinesByGrantor and CreditLinesByGrantee return lines ordered by
	// CreatedAt descending.
	CreditLinesByGrantor(ctx context.Context, principalID string) ([]*Line, error)
	CreditLinesByGrantee(ctx context.Context, principalID string) ([]*Line, error)

	// ActiveUsedBetween sums UsedAmount across active lines where grantor
	// extends credit to grantee.
	ActiveUsedBetween(ctx context.Context, grantorID, granteeID string) (int64, error)

	// CreditTransactions returns the line's transactions ordered by
	// CreatedAt descending, plus the total row count.
	CreditTransactions(ctx context.Context, lineID id.CreditLineID, opts ListOpts) ([]*Transaction, int64, error)
}
