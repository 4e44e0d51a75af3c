package escrow

import (
	"context"

	"github.com/moltbot/bankcore/id"
)

// Store is the read contract for escrows. State transitions happen only
// through a unit of work (store.Tx).
type Store interface {
	GetEscrow(ctx context.Context, escrowID id.EscrowID) (*Escrow, error)

	// EscrowsByPrincipal returns all escrows where the principal is creator
	// or counterparty, ordered by CreatedAt descending.
	EscrowsByPrincipal(ctx context.Context, principalID string) ([]*Escrow, error)
}
