package bankcore

import "errors"

// Sentinel errors for every failure the engine can surface. Business-rule
// violations are deterministic and non-retryable; infrastructure errors are
// retryable by the caller.
var (
	// Validation errors
	ErrInvalidAmount = errors.New("bankcore: amount must be a positive integer")
	ErrSelfTransfer  = errors.New("bankcore: cannot transfer to yourself")
	ErrSelfEscrow    = errors.New("bankcore: cannot create escrow with yourself")
	ErrSelfCredit    = errors.New("bankcore: cannot extend credit to yourself")

	// Principal resolution errors
	ErrPrincipalNotFound    = errors.New("bankcore: principal not found")
	ErrCounterpartyNotFound = errors.New("bankcore: counterparty not found")
	ErrGranteeNotFound      = errors.New("bankcore: grantee not found")

	// Account errors
	ErrAccountNotFound   = errors.New("bankcore: account not found")
	ErrInsufficientFunds = errors.New("bankcore: insufficient funds")

	// Escrow errors
	ErrEscrowNotFound = errors.New("bankcore: escrow not found")

	// Credit errors
	ErrCreditLineNotFound = errors.New("bankcore: credit line not found")
	ErrCreditLineExists   = errors.New("bankcore: active credit line already exists for this pair")
	ErrInsufficientCredit = errors.New("bankcore: draw exceeds available credit")
	ErrOverpayment        = errors.New("bankcore: cannot repay more than owed")
	ErrOutstandingBalance = errors.New("bankcore: cannot revoke credit line with outstanding balance")

	// Authorization and state errors
	ErrForbidden     = errors.New("bankcore: caller is not a party to this operation")
	ErrInvalidStatus = errors.New("bankcore: transition is not allowed from the current status")

	// Infrastructure errors, always retryable
	ErrLockTimeout      = errors.New("bankcore: timed out waiting for a row lock")
	ErrStoreUnavailable = errors.New("bankcore: store unavailable")
	ErrStoreClosed      = errors.New("bankcore: store is closed")
)

// IsNotFound returns true if the error reports a missing entity or principal.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPrincipalNotFound) ||
		errors.Is(err, ErrCounterpartyNotFound) ||
		errors.Is(err, ErrGranteeNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrEscrowNotFound) ||
		errors.Is(err, ErrCreditLineNotFound)
}

// IsConflict returns true if the error reports a state that rejects the
// requested mutation outright.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCreditLineExists) ||
		errors.Is(err, ErrOutstandingBalance) ||
		errors.Is(err, ErrInvalidStatus)
}

// IsBusinessRule returns true for deterministic rejections that must reach
// the caller unchanged and must never be retried.
func IsBusinessRule(err error) bool {
	return IsNotFound(err) ||
		IsConflict(err) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrSelfTransfer) ||
		errors.Is(err, ErrSelfEscrow) ||
		errors.Is(err, ErrSelfCredit) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInsufficientCredit) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrForbidden)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. The rejected unit of work left no partial effect.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) ||
		errors.Is(err, ErrStoreUnavailable)
}
