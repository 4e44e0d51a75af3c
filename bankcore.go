package bankcore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/hook"
	"github.com/moltbot/bankcore/principal"
	"github.com/moltbot/bankcore/store"
	"github.com/moltbot/bankcore/types"
)

// Engine is the ledger and credit engine facade. All mutations run as one
// atomic unit of work against the injected store; hooks observe events only
// after the unit of work has committed.
type Engine struct {
	store    store.Store
	resolver principal.Resolver
	hooks    *hook.Registry
	logger   *slog.Logger

	// pendingHooks collects hooks passed through options until New builds
	// the registry with the final logger.
	pendingHooks []hook.Hook
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHook registers a lifecycle hook. Registration errors surface at Start.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		e.pendingHooks = append(e.pendingHooks, h)
	}
}

// New creates an engine on the given store. resolver translates
// human-readable handles to principal identifiers; a nil resolver treats
// every handle as an already-resolved principal identifier.
func New(s store.Store, resolver principal.Resolver, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("bankcore: store is required")
	}

	e := &Engine{
		store:    s,
		resolver: resolver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.hooks = hook.NewRegistry(e.logger)
	for _, h := range e.pendingHooks {
		if err := e.hooks.Register(h); err != nil {
			return nil, err
		}
	}
	e.pendingHooks = nil

	return e, nil
}

// Start migrates the store and runs hook initializers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return fmt.Errorf("bankcore: migrate: %w", err)
	}
	if err := e.hooks.EmitInit(ctx); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "engine started", slog.Int("hooks", e.hooks.Len()))
	return nil
}

// Stop runs hook shutdowners and closes the store.
func (e *Engine) Stop(ctx context.Context) error {
	e.hooks.EmitShutdown(ctx)
	return e.store.Close()
}

// Store exposes the underlying store for read-side composition.
func (e *Engine) Store() store.Store { return e.store }

// ──────────────────────────────────────────────────
// Deposits and transfers
// ──────────────────────────────────────────────────

// DepositRequest credits external funds to a principal's account.
type DepositRequest struct {
	PrincipalID    string
	Amount         int64
	Memo           string
	IdempotencyKey string // optional; replays return the original entry
}

// DepositResult reports the appended entry and the balance after it.
type DepositResult struct {
	Entry    *entry.Entry
	Balance  types.Money
	Replayed bool
}

// Deposit credits Amount to the principal's account, creating the account if
// this is the principal's first balance-affecting operation.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.PrincipalID == "" {
		return nil, ErrPrincipalNotFound
	}

	var res DepositResult
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if prior, err := e.replayed(ctx, tx, req.IdempotencyKey); err != nil {
			return err
		} else if prior != nil {
			acct, err := tx.AccountForUpdate(ctx, req.PrincipalID)
			if err != nil {
				return err
			}
			res = DepositResult{Entry: prior, Balance: acct.Money(), Replayed: true}
			return nil
		}

		acct, err := tx.AccountForUpdate(ctx, req.PrincipalID)
		if err != nil {
			return err
		}
		balance := acct.Balance + req.Amount
		if err := tx.SetBalance(ctx, req.PrincipalID, balance); err != nil {
			return err
		}

		en := entry.New(entry.TypeDeposit, req.Amount)
		en.ToAccount = req.PrincipalID
		en.Memo = req.Memo
		en.IdempotencyKey = req.IdempotencyKey
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		res = DepositResult{Entry: en, Balance: types.In(balance, acct.Currency)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Replayed {
		e.hooks.EmitDeposit(ctx, res.Entry)
		e.logger.InfoContext(ctx, "deposit",
			slog.String("principal", req.PrincipalID),
			slog.Int64("amount", req.Amount),
			slog.String("entry", res.Entry.ID.String()),
		)
	}
	return &res, nil
}

// TransferRequest moves funds between two principals. ToHandle is resolved
// through the principal resolver.
type TransferRequest struct {
	FromPrincipalID string
	ToHandle        string
	Amount          int64
	Memo            string
	IdempotencyKey  string // optional; replays return the original entry
}

// TransferResult reports the appended entry and both balances after it.
type TransferResult struct {
	Entry       *entry.Entry
	FromBalance types.Money
	ToBalance   types.Money
	Replayed    bool
}

// Transfer atomically debits the sender and credits the recipient. The
// recipient's account is created lazily if needed. Sender and recipient
// accounts are claimed in ascending identifier order, never request order.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.FromPrincipalID == "" {
		return nil, ErrPrincipalNotFound
	}

	toID, err := e.resolve(ctx, req.ToHandle, ErrCounterpartyNotFound)
	if err != nil {
		return nil, err
	}
	if toID == req.FromPrincipalID {
		return nil, ErrSelfTransfer
	}

	var res TransferResult
	err = e.store.RunInTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if prior, err := e.replayed(ctx, tx, req.IdempotencyKey); err != nil {
			return err
		} else if prior != nil {
			from, err := tx.AccountForUpdate(ctx, req.FromPrincipalID)
			if err != nil {
				return err
			}
			to, err := tx.AccountForUpdate(ctx, toID)
			if err != nil {
				return err
			}
			res = TransferResult{Entry: prior, FromBalance: from.Money(), ToBalance: to.Money(), Replayed: true}
			return nil
		}

		accts, err := claimInOrder(ctx, tx, req.FromPrincipalID, toID)
		if err != nil {
			return err
		}
		from, to := accts[req.FromPrincipalID], accts[toID]

		if from.Balance < req.Amount {
			return ErrInsufficientFunds
		}
		if err := tx.SetBalance(ctx, from.PrincipalID, from.Balance-req.Amount); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, to.PrincipalID, to.Balance+req.Amount); err != nil {
			return err
		}

		en := entry.New(entry.TypeTransfer, req.Amount)
		en.FromAccount = from.PrincipalID
		en.ToAccount = to.PrincipalID
		en.Memo = req.Memo
		en.IdempotencyKey = req.IdempotencyKey
		if err := tx.AppendEntry(ctx, en); err != nil {
			return err
		}

		res = TransferResult{
			Entry:       en,
			FromBalance: types.In(from.Balance-req.Amount, from.Currency),
			ToBalance:   types.In(to.Balance+req.Amount, to.Currency),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Replayed {
		e.hooks.EmitTransfer(ctx, res.Entry)
		e.logger.InfoContext(ctx, "transfer",
			slog.String("from", req.FromPrincipalID),
			slog.String("to", toID),
			slog.Int64("amount", req.Amount),
			slog.String("entry", res.Entry.ID.String()),
		)
	}
	return &res, nil
}

// ──────────────────────────────────────────────────
// Wallet and statement views
// ──────────────────────────────────────────────────

// WalletRecentEntries is how many of the newest audit entries a wallet
// view carries.
const WalletRecentEntries = 5

// Wallet is a principal's balance view plus their most recent audit entries
// and funds currently held in escrow on their behalf.
type Wallet struct {
	PrincipalID   string         `json:"principal_id"`
	Balance       types.Money    `json:"balance"`
	RecentEntries []*entry.Entry `json:"recent_transactions"`
	ActiveEscrows int            `json:"active_escrows"`
	EscrowHeld    types.Money    `json:"escrow_held"`
}

// Wallet returns the principal's wallet view. A principal with no account
// yet sees a zero balance rather than an error.
func (e *Engine) Wallet(ctx context.Context, principalID string) (*Wallet, error) {
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}

	w := &Wallet{
		PrincipalID: principalID,
		Balance:     types.Zero(types.DefaultCurrency),
		EscrowHeld:  types.Zero(types.DefaultCurrency),
	}

	acct, err := e.store.GetAccount(ctx, principalID)
	switch {
	case err == nil:
		w.Balance = acct.Money()
	case !IsNotFound(err):
		return nil, err
	}

	recent, _, err := e.store.EntriesByPrincipal(ctx, principalID, entry.ListOpts{Limit: WalletRecentEntries})
	if err != nil {
		return nil, err
	}
	w.RecentEntries = recent

	escrows, err := e.store.EscrowsByPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	for _, es := range escrows {
		if es.Status == escrow.StatusActive && es.CreatorID == principalID {
			w.ActiveEscrows++
			w.EscrowHeld = w.EscrowHeld.Add(types.In(es.Amount, es.Currency))
		}
	}
	return w, nil
}

// Statement is one page of a principal's audit trail, newest first.
type Statement struct {
	Entries []*entry.Entry `json:"entries"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
	Total   int64          `json:"total"`
}

// Statement returns the principal's ledger entries, filtered and paginated
// per opts.
func (e *Engine) Statement(ctx context.Context, principalID string, opts entry.ListOpts) (*Statement, error) {
	if principalID == "" {
		return nil, ErrPrincipalNotFound
	}
	opts = opts.Normalize()

	entries, total, err := e.store.EntriesByPrincipal(ctx, principalID, opts)
	if err != nil {
		return nil, err
	}
	return &Statement{Entries: entries, Page: opts.Page, Limit: opts.Limit, Total: total}, nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// resolve maps a handle to a principal identifier, translating resolver
// failures to the given sentinel.
func (e *Engine) resolve(ctx context.Context, handle string, notFound error) (string, error) {
	if handle == "" {
		return "", notFound
	}
	if e.resolver == nil {
		return handle, nil
	}
	pid, err := e.resolver.Resolve(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("%w: %q", notFound, handle)
	}
	return pid, nil
}

// replayed returns the prior entry for a non-empty idempotency key, or nil.
func (e *Engine) replayed(ctx context.Context, tx store.Tx, key string) (*entry.Entry, error) {
	if key == "" {
		return nil, nil
	}
	return tx.EntryByIdempotencyKey(ctx, key)
}

// claimInOrder claims the given accounts in ascending identifier order so
// concurrent units of work can never deadlock on each other.
func claimInOrder(ctx context.Context, tx store.Tx, principalIDs ...string) (map[string]*account.Account, error) {
	ids := append([]string(nil), principalIDs...)
	sort.Strings(ids)

	accts := make(map[string]*account.Account, len(ids))
	for _, pid := range ids {
		a, err := tx.AccountForUpdate(ctx, pid)
		if err != nil {
			return nil, err
		}
		accts[pid] = a
	}
	return accts, nil
}
