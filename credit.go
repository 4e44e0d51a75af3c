package bankcore

import (
	"context"
	"log/slog"

	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/hook"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/store"
)

// CreditRequest extends a revolving credit line from the grantor to the
// grantee. GranteeHandle is resolved through the principal resolver.
type CreditRequest struct {
	GrantorID     string
	GranteeHandle string
	LimitAmount   int64
}

// ExtendCredit creates an active credit line. At most one active line may
// exist per (grantor, grantee) ordered pair; a second attempt fails with
// ErrCreditLineExists. Extending credit moves no account balance.
func (e *Engine) ExtendCredit(ctx context.Context, req CreditRequest) (*credit.Line, error) {
	if req.LimitAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.GrantorID == "" {
		return nil, ErrPrincipalNotFound
	}

	granteeID, err := e.resolve(ctx, req.GranteeHandle, ErrGranteeNotFound)
	if err != nil {
		return nil, err
	}
	if granteeID == req.GrantorID {
		return nil, ErrSelfCredit
	}

	var created *credit.Line
	err = e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		exists, err := tx.HasActiveCreditLine(ctx, req.GrantorID, granteeID)
		if err != nil {
			return err
		}
		if exists {
			return ErrCreditLineExists
		}

		l := credit.NewLine(req.GrantorID, granteeID, req.LimitAmount)
		if err := tx.CreateCreditLine(ctx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitCredit(ctx, hook.CreditExtended, created, nil)
	e.logger.InfoContext(ctx, "credit extended",
		slog.String("line", created.ID.String()),
		slog.String("grantor", created.GrantorID),
		slog.String("grantee", created.GranteeID),
		slog.Int64("limit", created.LimitAmount),
	)
	return created, nil
}

// DrawCredit draws Amount against the line's available credit. Only the
// grantee may draw, only while the line is active, and never past the
// limit. The draw is an obligation, not a balance movement.
func (e *Engine) DrawCredit(ctx context.Context, lineID id.CreditLineID, callerID string, amount int64, memo string) (*credit.Transaction, error) {
	return e.creditMutation(ctx, lineID, callerID, amount, memo, credit.TransactionDraw)
}

// RepayCredit reduces the line's used amount by Amount. Only the grantee may
// repay, and never more than is owed. Repayment is allowed on a revoked line
// so an outstanding balance can still be cleared.
func (e *Engine) RepayCredit(ctx context.Context, lineID id.CreditLineID, callerID string, amount int64, memo string) (*credit.Transaction, error) {
	return e.creditMutation(ctx, lineID, callerID, amount, memo, credit.TransactionRepay)
}

func (e *Engine) creditMutation(ctx context.Context, lineID id.CreditLineID, callerID string, amount int64, memo string, kind credit.TransactionType) (*credit.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		line *credit.Line
		ct   *credit.Transaction
	)
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		l, err := tx.CreditLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if l.GranteeID != callerID {
			return ErrForbidden
		}

		var entryType entry.Type
		switch kind {
		case credit.TransactionDraw:
			if l.Status != credit.StatusActive {
				return ErrInvalidStatus
			}
			if amount > l.Available() {
				return ErrInsufficientCredit
			}
			l.UsedAmount += amount
			entryType = entry.TypeCreditDraw
		case credit.TransactionRepay:
			if amount > l.UsedAmount {
				return ErrOverpayment
			}
			l.UsedAmount -= amount
			entryType = entry.TypeCreditRepay
		}
		l.Touch()
		if err := tx.UpdateCreditLine(ctx, l); err != nil {
			return err
		}

		ct = credit.NewTransaction(l.ID, kind, amount, memo)
		if err := tx.AppendCreditTransaction(ctx, ct); err != nil {
			return err
		}

		en := entry.New(entryType, amount)
		en.CreditLineID = l.ID
		en.Memo = memo
		if kind == credit.TransactionDraw {
			en.FromAccount = l.GrantorID
			en.ToAccount = l.GranteeID
		} else {
			en.FromAccount = l.GranteeID
			en.ToAccount = l.GrantorID
		}
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := hook.CreditDrawn
	if kind == credit.TransactionRepay {
		ev = hook.CreditRepaid
	}
	e.hooks.EmitCredit(ctx, ev, line, ct)
	e.logger.InfoContext(ctx, "credit "+string(kind),
		slog.String("line", line.ID.String()),
		slog.Int64("amount", amount),
		slog.Int64("used", line.UsedAmount),
	)
	return ct, nil
}

// SettleCredit writes off the line's outstanding balance. Only the grantor
// may settle. This is a bookkeeping write-off, not a transfer: no account
// balance moves, the line keeps its status with zero used credit. Settling
// a line that carries no balance is a no-op returning a nil transaction.
func (e *Engine) SettleCredit(ctx context.Context, lineID id.CreditLineID, callerID string, memo string) (*credit.Transaction, error) {
	var (
		line *credit.Line
		ct   *credit.Transaction
	)
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		l, err := tx.CreditLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if l.GrantorID != callerID {
			return ErrForbidden
		}
		if l.UsedAmount == 0 {
			return nil
		}

		settled := l.UsedAmount
		l.UsedAmount = 0
		l.Touch()
		if err := tx.UpdateCreditLine(ctx, l); err != nil {
			return err
		}

		ct = credit.NewTransaction(l.ID, credit.TransactionSettlement, settled, memo)
		if err := tx.AppendCreditTransaction(ctx, ct); err != nil {
			return err
		}

		en := entry.New(entry.TypeCreditSettlement, settled)
		en.CreditLineID = l.ID
		en.FromAccount = l.GrantorID
		en.ToAccount = l.GranteeID
		en.Memo = memo
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		line = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, nil
	}

	e.hooks.EmitCredit(ctx, hook.CreditSettled, line, ct)
	e.logger.InfoContext(ctx, "credit settled",
		slog.String("line", line.ID.String()),
		slog.Int64("amount", ct.Amount),
	)
	return ct, nil
}

// RevokeCredit closes an active credit line. Only the grantor may revoke,
// and only once the line carries no outstanding balance.
func (e *Engine) RevokeCredit(ctx context.Context, lineID id.CreditLineID, callerID string) (*credit.Line, error) {
	var revoked *credit.Line
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		l, err := tx.CreditLineForUpdate(ctx, lineID)
		if err != nil {
			return err
		}
		if l.GrantorID != callerID {
			return ErrForbidden
		}
		if l.Status != credit.StatusActive {
			return ErrInvalidStatus
		}
		if l.UsedAmount != 0 {
			return ErrOutstandingBalance
		}

		l.Status = credit.StatusRevoked
		l.Touch()
		if err := tx.UpdateCreditLine(ctx, l); err != nil {
			return err
		}
		revoked = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.hooks.EmitCredit(ctx, hook.CreditRevoked, revoked, nil)
	e.logger.InfoContext(ctx, "credit revoked", slog.String("line", revoked.ID.String()))
	return revoked, nil
}

// CreditLine returns a single credit line visible to the caller.
func (e *Engine) CreditLine(ctx context.Context, lineID id.CreditLineID, callerID string) (*credit.Line, error) {
	l, err := e.store.GetCreditLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !l.IsParty(callerID) {
		return nil, ErrForbidden
	}
	return l, nil
}

// CreditLines returns the principal's portfolio: the lines they have
// extended and the lines they have received, newest first.
func (e *Engine) CreditLines(ctx context.Context, principalID string) (*credit.Portfolio, error) {
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	given, err := e.store.CreditLinesByGrantor(ctx, principalID)
	if err != nil {
		return nil, err
	}
	received, err := e.store.CreditLinesByGrantee(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return &credit.Portfolio{Given: given, Received: received}, nil
}

// CreditTransactions returns one page of a line's transaction history,
// newest first. The caller must be a party to the line.
func (e *Engine) CreditTransactions(ctx context.Context, lineID id.CreditLineID, callerID string, opts credit.ListOpts) ([]*credit.Transaction, int64, error) {
	l, err := e.store.GetCreditLine(ctx, lineID)
	if err != nil {
		return nil, 0, err
	}
	if !l.IsParty(callerID) {
		return nil, 0, ErrForbidden
	}
	return e.store.CreditTransactions(ctx, lineID, opts)
}

// NetBalance reports the bilateral credit position between two principals
// across the active lines in each direction.
func (e *Engine) NetBalance(ctx context.Context, principalID, counterpartyID string) (*credit.NetBalance, error) {
	if principalID == "" || counterpartyID == "" {
		return nil, ErrPrincipalNotFound
	}

	given, err := e.store.ActiveUsedBetween(ctx, principalID, counterpartyID)
	if err != nil {
		return nil, err
	}
	received, err := e.store.ActiveUsedBetween(ctx, counterpartyID, principalID)
	if err != nil {
		return nil, err
	}
	return &credit.NetBalance{
		PrincipalID:    principalID,
		CounterpartyID: counterpartyID,
		GivenUsed:      given,
		ReceivedUsed:   received,
		Net:            received - given,
	}, nil
}
