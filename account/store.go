package account

import "context"

// Store is the read contract for accounts. Mutations happen only through a
// unit of work (store.Tx); see the unified store interface.
type Store interface {
	GetAccount(ctx context.Context, principalID string) (*Account, error)
}
