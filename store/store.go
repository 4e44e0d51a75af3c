// Package store defines the storage contract the engine runs against.
//
// Business logic lives in the engine; an adapter's only job is to provide
// durable rows and an atomic unit of work. One adapter exists per backing
// store (memory, sqlite, mongo) and all of them honor the same contract, so
// logic is never duplicated per backend.
package store

import (
	"context"

	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/report"
)

// Store is the unified storage interface for all bankcore entities,
// composed from the per-entity read contracts.
//
// Read methods run outside any unit of work and may observe only committed
// state. All mutations go through RunInTx.
type Store interface {
	// RunInTx executes fn as one atomic unit of work. Either every write
	// performed through the Tx becomes durable, or none do. The adapter
	// guarantees that no concurrent unit of work interleaves a
	// read-modify-write on the same account or credit line row.
	//
	// fn must use the supplied context for every Tx call: adapters bind
	// transaction state (sessions, row claims) to it.
	//
	// A bounded lock wait that expires surfaces as ErrLockTimeout, which is
	// retryable; fn will not have left partial effects.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	account.Store
	entry.Store
	escrow.Store
	credit.Store
	report.Store

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the mutation surface available inside a unit of work. Row-returning
// methods hand out private copies; mutations become visible to readers only
// when the unit of work commits.
type Tx interface {
	// AccountForUpdate loads the principal's account with an exclusive
	// claim for the rest of the unit of work, creating it with a zero
	// balance if absent. To avoid deadlock, callers acquire accounts in
	// ascending principal-identifier order, never caller-supplied order.
	AccountForUpdate(ctx context.Context, principalID string) (*account.Account, error)

	// SetBalance writes the account's new balance. The account must have
	// been claimed by AccountForUpdate in this unit of work.
	SetBalance(ctx context.Context, principalID string, balance int64) error

	// AppendEntry appends one immutable audit log row.
	AppendEntry(ctx context.Context, e *entry.Entry) error

	// EntryByIdempotencyKey returns the committed or staged entry carrying
	// the key, or (nil, nil) if none exists.
	EntryByIdempotencyKey(ctx context.Context, key string) (*entry.Entry, error)

	// Escrow rows
	CreateEscrow(ctx context.Context, e *escrow.Escrow) error
	EscrowForUpdate(ctx context.Context, escrowID id.EscrowID) (*escrow.Escrow, error)
	UpdateEscrow(ctx context.Context, e *escrow.Escrow) error

	// Credit rows
	CreateCreditLine(ctx context.Context, l *credit.Line) error
	CreditLineForUpdate(ctx context.Context, lineID id.CreditLineID) (*credit.Line, error)
	UpdateCreditLine(ctx context.Context, l *credit.Line) error
	HasActiveCreditLine(ctx context.Context, grantorID, granteeID string) (bool, error)
	AppendCreditTransaction(ctx context.Context, t *credit.Transaction) error
}
