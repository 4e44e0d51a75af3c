// Package escrow holds the bilateral fund-locking state machine.
package escrow

import (
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/types"
)

// Status is the escrow lifecycle state.
//
//	(none) ── create ──► active ── release ──► released
//	                        │
//	                        └── dispute ──► disputed (terminal)
//
// Both released and disputed are terminal. A disputed escrow keeps its funds
// held; resolution happens out of band.
type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
	StatusDisputed Status = "disputed"
)

// Escrow represents funds pulled from the creator's account and held pending
// release to the counterparty or dispute. While active, exactly Amount has
// been debited from the creator and credited to no one.
type Escrow struct {
	types.Entity
	ID             id.EscrowID `json:"id"`
	CreatorID      string      `json:"creator_id"`
	CounterpartyID string      `json:"counterparty_id"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	Description    string      `json:"description,omitempty"`
	Status         Status      `json:"status"`
}

// New creates an active escrow holding amount from creator for counterparty.
func New(creatorID, counterpartyID string, amount int64, description string) *Escrow {
	return &Escrow{
		Entity:         types.NewEntity(),
		ID:             id.NewEscrowID(),
		CreatorID:      creatorID,
		CounterpartyID: counterpartyID,
		Amount:         amount,
		Currency:       types.DefaultCurrency,
		Description:    description,
		Status:         StatusActive,
	}
}

// IsParty reports whether the principal is the creator or the counterparty.
func (e *Escrow) IsParty(principalID string) bool {
	return e.CreatorID == principalID || e.CounterpartyID == principalID
}

// Terminal reports whether the escrow can no longer transition.
func (e *Escrow) Terminal() bool {
	return e.Status != StatusActive
}

// Money returns the held amount as a Money value.
func (e *Escrow) Money() types.Money {
	return types.In(e.Amount, e.Currency)
}

// Clone returns a deep copy.
func (e *Escrow) Clone() *Escrow {
	c := *e
	return &c
}
