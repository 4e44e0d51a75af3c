package mongo

import (
	"time"

	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/types"
)

// BSON documents mirror the domain entities with string IDs so documents
// stay readable in the shell. Conversion is explicit in both directions.

type accountDoc struct {
	PrincipalID string    `bson:"_id"`
	Balance     int64     `bson:"balance"`
	Currency    string    `bson:"currency"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func docFromAccount(a *account.Account) accountDoc {
	return accountDoc{
		PrincipalID: a.PrincipalID,
		Balance:     a.Balance,
		Currency:    a.Currency,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (d accountDoc) account() *account.Account {
	return &account.Account{
		Entity:      types.Entity{CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()},
		PrincipalID: d.PrincipalID,
		Balance:     d.Balance,
		Currency:    d.Currency,
	}
}

type entryDoc struct {
	ID             string    `bson:"_id"`
	Type           string    `bson:"type"`
	Amount         int64     `bson:"amount"`
	FromAccount    string    `bson:"from_account,omitempty"`
	ToAccount      string    `bson:"to_account,omitempty"`
	CreditLineID   string    `bson:"credit_line_id,omitempty"`
	Memo           string    `bson:"memo,omitempty"`
	IdempotencyKey string    `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

func docFromEntry(e *entry.Entry) entryDoc {
	return entryDoc{
		ID:             e.ID.String(),
		Type:           string(e.Type),
		Amount:         e.Amount,
		FromAccount:    e.FromAccount,
		ToAccount:      e.ToAccount,
		CreditLineID:   e.CreditLineID.String(),
		Memo:           e.Memo,
		IdempotencyKey: e.IdempotencyKey,
		CreatedAt:      e.CreatedAt,
	}
}

func (d entryDoc) entry() (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(d.ID)
	if err != nil {
		return nil, err
	}
	lineID := id.Nil
	if d.CreditLineID != "" {
		if lineID, err = id.ParseCreditLineID(d.CreditLineID); err != nil {
			return nil, err
		}
	}
	return &entry.Entry{
		ID:             entryID,
		Type:           entry.Type(d.Type),
		Amount:         d.Amount,
		FromAccount:    d.FromAccount,
		ToAccount:      d.ToAccount,
		CreditLineID:   lineID,
		Memo:           d.Memo,
		IdempotencyKey: d.IdempotencyKey,
		CreatedAt:      d.CreatedAt.UTC(),
	}, nil
}

type escrowDoc struct {
	ID             string    `bson:"_id"`
	CreatorID      string    `bson:"creator_id"`
	CounterpartyID string    `bson:"counterparty_id"`
	Amount         int64     `bson:"amount"`
	Currency       string    `bson:"currency"`
	Description    string    `bson:"description,omitempty"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func docFromEscrow(e *escrow.Escrow) escrowDoc {
	return escrowDoc{
		ID:             e.ID.String(),
		CreatorID:      e.CreatorID,
		CounterpartyID: e.CounterpartyID,
		Amount:         e.Amount,
		Currency:       e.Currency,
		Description:    e.Description,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func (d escrowDoc) escrow() (*escrow.Escrow, error) {
	escrowID, err := id.ParseEscrowID(d.ID)
	if err != nil {
		return nil, err
	}
	return &escrow.Escrow{
		Entity:         types.Entity{CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()},
		ID:             escrowID,
		CreatorID:      d.CreatorID,
		CounterpartyID: d.CounterpartyID,
		Amount:         d.Amount,
		Currency:       d.Currency,
		Description:    d.Description,
		Status:         escrow.Status(d.Status),
	}, nil
}

type lineDoc struct {
	ID          string    `bson:"_id"`
	GrantorID   string    `bson:"grantor_id"`
	GranteeID   string    `bson:"grantee_id"`
	LimitAmount int64     `bson:"limit_amount"`
	UsedAmount  int64     `bson:"used_amount"`
	Currency    string    `bson:"currency"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func docFromLine(l *credit.Line) lineDoc {
	return lineDoc{
		ID:          l.ID.String(),
		GrantorID:   l.GrantorID,
		GranteeID:   l.GranteeID,
		LimitAmount: l.LimitAmount,
		UsedAmount:  l.UsedAmount,
		Currency:    l.Currency,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (d lineDoc) line() (*credit.Line, error) {
	lineID, err := id.ParseCreditLineID(d.ID)
	if err != nil {
		return nil, err
	}
	return &credit.Line{
		Entity:      types.Entity{CreatedAt: d.CreatedAt.UTC(), UpdatedAt: d.UpdatedAt.UTC()},
		ID:          lineID,
		GrantorID:   d.GrantorID,
		GranteeID:   d.GranteeID,
		LimitAmount: d.LimitAmount,
		UsedAmount:  d.UsedAmount,
		Currency:    d.Currency,
		Status:      credit.Status(d.Status),
	}, nil
}

type creditTxDoc struct {
	ID           string    `bson:"_id"`
	CreditLineID string    `bson:"credit_line_id"`
	Amount       int64     `bson:"amount"`
	Type         string    `bson:"type"`
	Memo         string    `bson:"memo,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func docFromCreditTx(t *credit.Transaction) creditTxDoc {
	return creditTxDoc{
		ID:           t.ID.String(),
		CreditLineID: t.CreditLineID.String(),
		Amount:       t.Amount,
		Type:         string(t.Type),
		Memo:         t.Memo,
		CreatedAt:    t.CreatedAt,
	}
}

func (d creditTxDoc) transaction() (*credit.Transaction, error) {
	txID, err := id.ParseCreditTransID(d.ID)
	if err != nil {
		return nil, err
	}
	lineID, err := id.ParseCreditLineID(d.CreditLineID)
	if err != nil {
		return nil, err
	}
	return &credit.Transaction{
		ID:           txID,
		CreditLineID: lineID,
		Amount:       d.Amount,
		Type:         credit.TransactionType(d.Type),
		Memo:         d.Memo,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}
