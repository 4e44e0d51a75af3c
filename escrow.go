package bankcore

import (
	"context"
	"log/slog"

	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/hook"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/store"
)

// EscrowRequest locks funds from the creator pending release to the
// counterparty. CounterpartyHandle is resolved through the principal
// resolver.
type EscrowRequest struct {
	CreatorID          string
	CounterpartyHandle string
	Amount             int64
	Description        string
}

// CreateEscrow debits Amount from the creator and holds it in a new active
// escrow. The debit and the escrow row commit in the same unit of work, so
// held funds are never spendable and never double-counted.
func (e *Engine) CreateEscrow(ctx context.Context, req EscrowRequest) (*escrow.Escrow, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.CreatorID == "" {
		return nil, ErrPrincipalNotFound
	}

	counterpartyID, err := e.resolve(ctx, req.CounterpartyHandle, ErrCounterpartyNotFound)
	if err != nil {
		return nil, err
	}
	if counterpartyID == req.CreatorID {
		return nil, ErrSelfEscrow
	}

	var created *escrow.Escrow
	err = e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.AccountForUpdate(ctx, req.CreatorID)
		if err != nil {
			return err
		}
		if acct.Balance < req.Amount {
			return ErrInsufficientFunds
		}
		if err := tx.SetBalance(ctx, req.CreatorID, acct.Balance-req.Amount); err != nil {
			return err
		}

		es := escrow.New(req.CreatorID, counterpartyID, req.Amount, req.Description)
		if err := tx.CreateEscrow(ctx, es); err != nil {
			return err
		}

		en := entry.New(entry.TypeEscrowLock, req.Amount)
		en.FromAccount = req.CreatorID
		en.Memo = req.Description
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		created = es
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitEscrow(ctx, hook.EscrowCreated, created)
	e.logger.InfoContext(ctx, "escrow created",
		slog.String("escrow", created.ID.String()),
		slog.String("creator", created.CreatorID),
		slog.String("counterparty", created.CounterpartyID),
		slog.Int64("amount", created.Amount),
	)
	return created, nil
}

// ReleaseEscrow moves the held funds to the counterparty and marks the
// escrow released. Only the creator may release, and only while the escrow
// is active.
func (e *Engine) ReleaseEscrow(ctx context.Context, escrowID id.EscrowID, callerID string) (*escrow.Escrow, error) {
	var released *escrow.Escrow
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		es, err := tx.EscrowForUpdate(ctx, escrowID)
		if err != nil {
			return err
		}
		if es.CreatorID != callerID {
			return ErrForbidden
		}
		if es.Status != escrow.StatusActive {
			return ErrInvalidStatus
		}

		acct, err := tx.AccountForUpdate(ctx, es.CounterpartyID)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, es.CounterpartyID, acct.Balance+es.Amount); err != nil {
			return err
		}

		es.Status = escrow.StatusReleased
		es.Touch()
		if err := tx.UpdateEscrow(ctx, es); err != nil {
			return err
		}

		en := entry.New(entry.TypeEscrowRelease, es.Amount)
		en.FromAccount = es.CreatorID
		en.ToAccount = es.CounterpartyID
		en.Memo = es.Description
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		released = es
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitEscrow(ctx, hook.EscrowReleased, released)
	e.logger.InfoContext(ctx, "escrow released",
		slog.String("escrow", released.ID.String()),
		slog.String("to", released.CounterpartyID),
		slog.Int64("amount", released.Amount),
	)
	return released, nil
}

// DisputeEscrow marks an active escrow disputed. Either party may dispute.
// The held funds stay locked; resolution happens out of band.
func (e *Engine) DisputeEscrow(ctx context.Context, escrowID id.EscrowID, callerID string) (*escrow.Escrow, error) {
	var disputed *escrow.Escrow
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		es, err := tx.EscrowForUpdate(ctx, escrowID)
		if err != nil {
			return err
		}
		if !es.IsParty(callerID) {
			return ErrForbidden
		}
		if es.Status != escrow.StatusActive {
			return ErrInvalidStatus
		}

		es.Status = escrow.StatusDisputed
		es.Touch()
		if err := tx.UpdateEscrow(ctx, es); err != nil {
			return err
		}

		disputed = es
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitEscrow(ctx, hook.EscrowDisputed, disputed)
	e.logger.WarnContext(ctx, "escrow disputed",
		slog.String("escrow", disputed.ID.String()),
		slog.String("by", callerID),
	)
	return disputed, nil
}

// Escrow returns a single escrow visible to the caller.
func (e *Engine) Escrow(ctx context.Context, escrowID id.EscrowID, callerID string) (*escrow.Escrow, error) {
	es, err := e.store.GetEscrow(ctx, escrowID)
	if err != nil {
		return nil, err
	}
	if !es.IsParty(callerID) {
		return nil, ErrForbidden
	}
	return es, nil
}

// Escrows returns every escrow the principal is party to, newest first.
func (e *Engine) Escrows(ctx context.Context, principalID string) ([]*escrow.Escrow, error) {
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}
	return e.store.EscrowsByPrincipal(ctx, principalID)
}
