// Package credit holds the bilateral revolving credit line model.
//
// A credit line is a unilateral grant: the grantor extends a spending limit
// to the grantee, and UsedAmount tracks drawn-versus-undrawn credit. It is a
// separate obligation ledger — draws and repayments never move money through
// the account ledger.
package credit

import (
	"time"

	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/types"
)

// Status is the credit line lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Line is one credit grant from grantor to grantee. At most one active line
// may exist per (grantor, grantee) ordered pair. Invariant:
// 0 <= UsedAmount <= LimitAmount.
type Line struct {
	types.Entity
	ID          id.CreditLineID `json:"id"`
	GrantorID   string          `json:"grantor_id"`
	GranteeID   string          `json:"grantee_id"`
	LimitAmount int64           `json:"limit_amount"`
	UsedAmount  int64           `json:"used_amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
}

// NewLine creates an active, unused credit line.
func NewLine(grantorID, granteeID string, limitAmount int64) *Line {
	return &Line{
		Entity:      types.NewEntity(),
		ID:          id.NewCreditLineID(),
		GrantorID:   grantorID,
		GranteeID:   granteeID,
		LimitAmount: limitAmount,
		UsedAmount:  0,
		Currency:    types.DefaultCurrency,
		Status:      StatusActive,
	}
}

// Available returns the undrawn credit remaining on the line.
func (l *Line) Available() int64 {
	return l.LimitAmount - l.UsedAmount
}

// IsParty reports whether the principal is the grantor or the grantee.
func (l *Line) IsParty(principalID string) bool {
	return l.GrantorID == principalID || l.GranteeID == principalID
}

// Clone returns a deep copy.
func (l *Line) Clone() *Line {
	c := *l
	return &c
}

// TransactionType is the business reason for a credit transaction.
type TransactionType string

const (
	TransactionDraw       TransactionType = "draw"
	TransactionRepay      TransactionType = "repay"
	TransactionSettlement TransactionType = "settlement"
)

// Transaction is one immutable row scoped to a credit line.
type Transaction struct {
	ID           id.CreditTransID `json:"id"`
	CreditLineID id.CreditLineID  `json:"credit_line_id"`
	Amount       int64            `json:"amount"`
	Type         TransactionType  `json:"type"`
	Memo         string           `json:"memo,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NewTransaction creates a credit transaction with a fresh ID and timestamp.
func NewTransaction(lineID id.CreditLineID, t TransactionType, amount int64, memo string) *Transaction {
	return &Transaction{
		ID:           id.NewCreditTransID(),
		CreditLineID: lineID,
		Amount:       amount,
		Type:         t,
		Memo:         memo,
		CreatedAt:    time.Now().UTC(),
	}
}

// Clone returns a copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// NetBalance is the bilateral credit position between two principals,
// summed across the active lines in each direction. Net is positive when
// the principal has received more credit than it has given.
type NetBalance struct {
	PrincipalID    string `json:"principal_id"`
	CounterpartyID string `json:"counterparty_id"`
	GivenUsed      int64  `json:"credit_given_used"`
	ReceivedUsed   int64  `json:"credit_received_used"`
	Net            int64  `json:"net_balance"`
}

// Portfolio groups the lines a principal has extended and received.
type Portfolio struct {
	Given    []*Line `json:"given"`
	Received []*Line `json:"received"`
}

// ListOpts controls pagination of credit transaction queries.
type ListOpts struct {
	Page  int // 1-based
	Limit int
}

// Pagination bounds matching the public transaction history API.
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
