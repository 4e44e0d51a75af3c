// Package hook defines the lifecycle extension points of the engine.
//
// A hook implements Hook plus any subset of the capability interfaces below.
// The engine emits events only after the owning unit of work has committed,
// so a hook always observes durable state. Hook failures are logged and
// never fail the operation that triggered them.
package hook

import (
	"context"

	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
)

// Hook is the base interface every extension implements.
type Hook interface {
	// Name returns a unique, stable identifier used in logs.
	Name() string
}

// Initializer runs once when the engine starts.
type Initializer interface {
	Hook
	OnInit(ctx context.Context) error
}

// Shutdowner runs once when the engine stops.
type Shutdowner interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// DepositListener observes committed deposits.
type DepositListener interface {
	Hook
	OnDeposit(ctx context.Context, e *entry.Entry) error
}

// TransferListener observes committed transfers.
type TransferListener interface {
	Hook
	OnTransfer(ctx context.Context, e *entry.Entry) error
}

// EscrowListener observes escrow lifecycle transitions.
type EscrowListener interface {
	Hook
	OnEscrowCreated(ctx context.Context, es *escrow.Escrow) error
	OnEscrowReleased(ctx context.Context, es *escrow.Escrow) error
	OnEscrowDisputed(ctx context.Context, es *escrow.Escrow) error
}

// CreditListener observes credit line lifecycle transitions. The transaction
// argument is nil for extend and revoke, which append no credit transaction.
type CreditListener interface {
	Hook
	OnCreditExtended(ctx context.Context, l *credit.Line) error
	OnCreditDrawn(ctx context.Context, l *credit.Line, t *credit.Transaction) error
	OnCreditRepaid(ctx context.Context, l *credit.Line, t *credit.Transaction) error
	OnCreditSettled(ctx context.Context, l *credit.Line, t *credit.Transaction) error
	OnCreditRevoked(ctx context.Context, l *credit.Line) error
}
