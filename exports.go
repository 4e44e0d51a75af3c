package bankcore

import (
	"github.com/moltbot/bankcore/types"
)

// Re-exported money helpers so embedding applications rarely need to import
// the types package directly.

// Money is an amount in integer minor units of a currency.
type Money = types.Money

// DefaultCurrency is the currency accounts open in.
const DefaultCurrency = types.DefaultCurrency

// USDC constructs a Money in the default currency.
func USDC(minorUnits int64) Money { return types.USDC(minorUnits) }

// MoneyIn constructs a Money in an arbitrary currency.
func MoneyIn(minorUnits int64, currency string) Money { return types.In(minorUnits, currency) }

// ZeroMoney constructs a zero Money in the given currency.
func ZeroMoney(currency string) Money { return types.Zero(currency) }
