// Package bankcore is an embeddable multi-tenant ledger and credit engine.
//
// It keeps per-principal account balances in integer minor units, locks
// funds in bilateral escrows, manages revolving credit lines, and records
// every balance-affecting change in an append-only audit log. All state
// lives behind a pluggable store interface with in-memory, SQLite and
// MongoDB adapters.
//
// Basic usage:
//
//	st := memory.New()
//	eng, err := bankcore.New(st, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := eng.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Stop(ctx)
//
//	res, err := eng.Deposit(ctx, bankcore.DepositRequest{
//		PrincipalID: "agent-7",
//		Amount:      5000, // 50.00 USDC
//	})
//
// Every mutation runs as one atomic unit of work: either all of its balance
// updates, status changes and audit entries commit, or none do. Concurrent
// operations on the same account serialize; the engine claims accounts in
// ascending identifier order so they cannot deadlock.
//
// Errors are sentinel values. Classify them with IsNotFound, IsConflict,
// IsBusinessRule and IsRetryable rather than matching individual sentinels.
package bankcore
