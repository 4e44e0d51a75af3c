// Package entry holds the append-only audit log model.
//
// Exactly one entry is appended per balance-affecting state change, inside
// the same unit of work as the change itself. Entries are never updated or
// deleted; statements, leaderboards and trust scoring are derived from them
// without recomputing live balances.
package entry

import (
	"time"

	"github.com/moltbot/bankcore/id"
)

// Type is the business reason an entry was appended.
type Type string

const (
	TypeDeposit          Type = "deposit"
	TypeTransfer         Type = "transfer"
	TypeEscrowLock       Type = "escrow_lock"
	TypeEscrowRelease    Type = "escrow_release"
	TypeCreditDraw       Type = "credit_draw"
	TypeCreditRepay      Type = "credit_repay"
	TypeCreditSettlement Type = "credit_settlement"
)

// Entry is one immutable audit log row.
//
// FromAccount and ToAccount reference principal identifiers and are each
// optional: a deposit has only ToAccount, an escrow lock only FromAccount,
// a transfer both. Credit entries reference the line they belong to and
// move no account balance.
type Entry struct {
	ID             id.EntryID      `json:"id"`
	Type           Type            `json:"type"`
	Amount         int64           `json:"amount"`
	FromAccount    string          `json:"from_account,omitempty"`
	ToAccount      string          `json:"to_account,omitempty"`
	CreditLineID   id.CreditLineID `json:"credit_line_id,omitempty"`
	Memo           string          `json:"memo,omitempty"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// New creates an entry with a fresh ID and timestamp. Callers fill the
// account references that apply to the entry type.
func New(t Type, amount int64) *Entry {
	return &Entry{
		ID:        id.NewEntryID(),
		Type:      t,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}

// Touches reports whether the entry references the given principal on
// either side.
func (e *Entry) Touches(principalID string) bool {
	return e.FromAccount == principalID || e.ToAccount == principalID
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// ListOpts controls pagination and filtering of audit log queries.
type ListOpts struct {
	Type  Type // zero value matches all types
	Page  int  // 1-based
	Limit int
}

// Pagination bounds matching the public statement API.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize clamps Page and Limit to their allowed ranges.
func (o ListOpts) Normalize() ListOpts {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// Offset returns the row offset implied by Page and Limit. Call Normalize
// first.
func (o ListOpts) Offset() int {
	return (o.Page - 1) * o.Limit
}
