package entry

import (
	"context"

	"github.com/moltbot/bankcore/id"
)

// Store is the read contract for the audit log. Entries are appended only
// inside a unit of work (store.Tx); there is no update or delete operation.
// Queries return entries ordered by CreatedAt descending together with the
// total row count for pagination.
type Store interface {
	EntriesByPrincipal(ctx context.Context, principalID string, opts ListOpts) ([]*Entry, int64, error)
	EntriesByCreditLine(ctx context.Context, lineID id.CreditLineID, opts ListOpts) ([]*Entry, int64, error)
	Entries(ctx context.Context, opts ListOpts) ([]*Entry, int64, error)
}
