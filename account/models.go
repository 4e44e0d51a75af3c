// Package account holds the per-principal balance model.
package account

import (
	"github.com/moltbot/bankcore/types"
)

// Account is one balance record per principal, denominated in integer minor
// units of a single currency. Balance never goes below zero: every debit is
// checked inside the same unit of work that applies it.
//
// Accounts are created lazily the first time a principal needs a balance and
// are never deleted while escrows or credit lines reference them.
type Account struct {
	types.Entity
	PrincipalID string `json:"principal_id"`
	Balance     int64  `json:"balance"`
	Currency    string `json:"currency"`
}

// New creates a zero-balance account for a principal in the default currency.
func New(principalID string) *Account {
	return &Account{
		Entity:      types.NewEntity(),
		PrincipalID: principalID,
		Balance:     0,
		Currency:    types.DefaultCurrency,
	}
}

// Money returns the balance as a Money value.
func (a *Account) Money() types.Money {
	return types.In(a.Balance, a.Currency)
}

// Clone returns a deep copy. Store adapters hand out clones so callers can
// never mutate persisted state outside a unit of work.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
