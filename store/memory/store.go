// Package memory provides an in-memory store adapter.
//
// Units of work are serialized through a single writer slot with a bounded
// wait, so the per-row locking contract holds trivially. Readers see only
// committed state. Data does not survive the process; use the sqlite or
// mongo adapters for durability.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/report"
	"github.com/moltbot/bankcore/store"
)

// DefaultLockTimeout bounds how long a unit of work waits for the writer
// slot before giving up with ErrLockTimeout.
const DefaultLockTimeout = 5 * time.Second

// Option configures the memory store.
type Option func(*Store)

// WithLockTimeout overrides the bounded wait for the writer slot.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// Store is an in-memory store.Store implementation.
type Store struct {
	mu     sync.RWMutex
	closed bool

	// writer admits one unit of work at a time.
	writer      chan struct{}
	lockTimeout time.Duration

	accounts     map[string]*account.Account
	entries      []*entry.Entry // append order, oldest first
	entriesByKey map[string]*entry.Entry
	escrows      map[string]*escrow.Escrow
	lines        map[string]*credit.Line
	creditTxs    []*credit.Transaction // append order, oldest first
}

var _ store.Store = (*Store)(nil)

// New creates an empty memory store.
func New(opts ...Option) *Store {
	s := &Store{
		writer:       make(chan struct{}, 1),
		lockTimeout:  DefaultLockTimeout,
		accounts:     make(map[string]*account.Account),
		entriesByKey: make(map[string]*entry.Entry),
		escrows:      make(map[string]*escrow.Escrow),
		lines:        make(map[string]*credit.Line),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate is a no-op for the memory adapter.
func (s *Store) Migrate(_ context.Context) error { return s.check() }

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error { return s.check() }

// Close marks the store closed. Further calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return bankcore.ErrStoreClosed
	}
	return nil
}

// RunInTx admits one unit of work, stages every mutation in a private
// overlay, and publishes the overlay under the write lock only if fn
// returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := s.check(); err != nil {
		return err
	}

	select {
	case s.writer <- struct{}{}:
	case <-time.After(s.lockTimeout):
		return bankcore.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.writer }()

	if err := s.check(); err != nil {
		return err
	}

	tx := &memTx{
		s:        s,
		accounts: make(map[string]*account.Account),
		escrows:  make(map[string]*escrow.Escrow),
		lines:    make(map[string]*credit.Line),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return bankcore.ErrStoreClosed
	}
	tx.commit(s)
	return nil
}

// memTx stages mutations against a snapshot of committed state. The writer
// slot guarantees committed state cannot change while the tx is open.
type memTx struct {
	s *Store

	accounts  map[string]*account.Account
	escrows   map[string]*escrow.Escrow
	lines     map[string]*credit.Line
	entries   []*entry.Entry
	creditTxs []*credit.Transaction
}

func (t *memTx) commit(s *Store) {
	for pid, a := range t.accounts {
		s.accounts[pid] = a
	}
	for k, e := range t.escrows {
		s.escrows[k] = e
	}
	for k, l := range t.lines {
		s.lines[k] = l
	}
	for _, e := range t.entries {
		s.entries = append(s.entries, e)
		if e.IdempotencyKey != "" {
			s.entriesByKey[e.IdempotencyKey] = e
		}
	}
	s.creditTxs = append(s.creditTxs, t.creditTxs...)
}

func (t *memTx) AccountForUpdate(_ context.Context, principalID string) (*account.Account, error) {
	if a, ok := t.accounts[principalID]; ok {
		return a.Clone(), nil
	}

	t.s.mu.RLock()
	committed, ok := t.s.accounts[principalID]
	t.s.mu.RUnlock()

	var a *account.Account
	if ok {
		a = committed.Clone()
	} else {
		a = account.New(principalID)
	}
	t.accounts[principalID] = a
	return a.Clone(), nil
}

func (t *memTx) SetBalance(_ context.Context, principalID string, balance int64) error {
	a, ok := t.accounts[principalID]
	if !ok {
		return bankcore.ErrAccountNotFound
	}
	a.Balance = balance
	a.Touch()
	return nil
}

func (t *memTx) AppendEntry(_ context.Context, e *entry.Entry) error {
	t.entries = append(t.entries, e.Clone())
	return nil
}

func (t *memTx) EntryByIdempotencyKey(_ context.Context, key string) (*entry.Entry, error) {
	if key == "" {
		return nil, nil
	}
	for _, e := range t.entries {
		if e.IdempotencyKey == key {
			return e.Clone(), nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if e, ok := t.s.entriesByKey[key]; ok {
		return e.Clone(), nil
	}
	return nil, nil
}

func (t *memTx) CreateEscrow(_ context.Context, e *escrow.Escrow) error {
	t.escrows[e.ID.String()] = e.Clone()
	return nil
}

func (t *memTx) EscrowForUpdate(_ context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	if e, ok := t.escrows[escrowID.String()]; ok {
		return e.Clone(), nil
	}
	t.s.mu.RLock()
	committed, ok := t.s.escrows[escrowID.String()]
	t.s.mu.RUnlock()
	if !ok {
		return nil, bankcore.ErrEscrowNotFound
	}
	e := committed.Clone()
	t.escrows[escrowID.String()] = e
	return e.Clone(), nil
}

func (t *memTx) UpdateEscrow(_ context.Context, e *escrow.Escrow) error {
	if _, ok := t.escrows[e.ID.String()]; !ok {
		t.s.mu.RLock()
		_, committed := t.s.escrows[e.ID.String()]
		t.s.mu.RUnlock()
		if !committed {
			return bankcore.ErrEscrowNotFound
		}
	}
	t.escrows[e.ID.String()] = e.Clone()
	return nil
}

func (t *memTx) CreateCreditLine(_ context.Context, l *credit.Line) error {
	t.lines[l.ID.String()] = l.Clone()
	return nil
}

func (t *memTx) CreditLineForUpdate(_ context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	if l, ok := t.lines[lineID.String()]; ok {
		return l.Clone(), nil
	}
	t.s.mu.RLock()
	committed, ok := t.s.lines[lineID.String()]
	t.s.mu.RUnlock()
	if !ok {
		return nil, bankcore.ErrCreditLineNotFound
	}
	l := committed.Clone()
	t.lines[lineID.String()] = l
	return l.Clone(), nil
}

func (t *memTx) UpdateCreditLine(_ context.Context, l *credit.Line) error {
	if _, ok := t.lines[l.ID.String()]; !ok {
		t.s.mu.RLock()
		_, committed := t.s.lines[l.ID.String()]
		t.s.mu.RUnlock()
		if !committed {
			return bankcore.ErrCreditLineNotFound
		}
	}
	t.lines[l.ID.String()] = l.Clone()
	return nil
}

func (t *memTx) HasActiveCreditLine(_ context.Context, grantorID, granteeID string) (bool, error) {
	match := func(l *credit.Line) bool {
		return l.Status == credit.StatusActive && l.GrantorID == grantorID && l.GranteeID == granteeID
	}
	for _, l := range t.lines {
		if match(l) {
			return true, nil
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	for key, l := range t.s.lines {
		if _, staged := t.lines[key]; staged {
			continue // staged copy already inspected
		}
		if match(l) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) AppendCreditTransaction(_ context.Context, ct *credit.Transaction) error {
	t.creditTxs = append(t.creditTxs, ct.Clone())
	return nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func (s *Store) GetAccount(_ context.Context, principalID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}
	a, ok := s.accounts[principalID]
	if !ok {
		return nil, bankcore.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (s *Store) EntriesByPrincipal(_ context.Context, principalID string, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(opts, func(e *entry.Entry) bool { return e.Touches(principalID) })
}

func (s *Store) EntriesByCreditLine(_ context.Context, lineID id.CreditLineID, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(opts, func(e *entry.Entry) bool { return e.CreditLineID == lineID })
}

func (s *Store) Entries(_ context.Context, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(opts, func(*entry.Entry) bool { return true })
}

func (s *Store) listEntries(opts entry.ListOpts, keep func(*entry.Entry) bool) ([]*entry.Entry, int64, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, 0, bankcore.ErrStoreClosed
	}

	// Newest first: walk the append-ordered log backwards.
	var matched []*entry.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if opts.Type != "" && e.Type != opts.Type {
			continue
		}
		if keep(e) {
			matched = append(matched, e)
		}
	}

	total := int64(len(matched))
	page := paginate(matched, opts.Offset(), opts.Limit)
	out := make([]*entry.Entry, len(page))
	for i, e := range page {
		out[i] = e.Clone()
	}
	return out, total, nil
}

func (s *Store) GetEscrow(_ context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}
	e, ok := s.escrows[escrowID.String()]
	if !ok {
		return nil, bankcore.ErrEscrowNotFound
	}
	return e.Clone(), nil
}

func (s *Store) EscrowsByPrincipal(_ context.Context, principalID string) ([]*escrow.Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}
	var out []*escrow.Escrow
	for _, e := range s.escrows {
		if e.IsParty(principalID) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *Store) GetCreditLine(_ context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}
	l, ok := s.lines[lineID.String()]
	if !ok {
		return nil, bankcore.ErrCreditLineNotFound
	}
	return l.Clone(), nil
}

func (s *Store) CreditLinesByGrantor(_ context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(func(l *credit.Line) bool { return l.GrantorID == principalID })
}

func (s *Store) CreditLinesByGrantee(_ context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(func(l *credit.Line) bool { return l.GranteeID == principalID })
}

func (s *Store) listLines(keep func(*credit.Line) bool) ([]*credit.Line, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}
	var out []*credit.Line
	for _, l := range s.lines {
		if keep(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (s *Store) ActiveUsedBetween(_ context.Context, grantorID, granteeID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, bankcore.ErrStoreClosed
	}
	var used int64
	for _, l := range s.lines {
		if l.Status == credit.StatusActive && l.GrantorID == grantorID && l.GranteeID == granteeID {
			used += l.UsedAmount
		}
	}
	return used, nil
}

func (s *Store) CreditTransactions(_ context.Context, lineID id.CreditLineID, opts credit.ListOpts) ([]*credit.Transaction, int64, error) {
	opts = opts.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, 0, bankcore.ErrStoreClosed
	}

	var matched []*credit.Transaction
	for i := len(s.creditTxs) - 1; i >= 0; i-- {
		if s.creditTxs[i].CreditLineID == lineID {
			matched = append(matched, s.creditTxs[i])
		}
	}

	total := int64(len(matched))
	page := paginate(matched, opts.Offset(), opts.Limit)
	out := make([]*credit.Transaction, len(page))
	for i, ct := range page {
		out[i] = ct.Clone()
	}
	return out, total, nil
}

func (s *Store) NetworkStats(_ context.Context) (*report.NetworkStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}

	stats := &report.NetworkStats{
		TotalAccounts: int64(len(s.accounts)),
	}
	for _, e := range s.entries {
		if e.CreditLineID.IsNil() {
			stats.TotalVolume += e.Amount
		}
	}
	for _, e := range s.escrows {
		stats.TotalEscrows++
		if e.Status == escrow.StatusActive {
			stats.ActiveEscrows++
			stats.ActiveEscrowValue += e.Amount
		}
	}
	for _, l := range s.lines {
		if l.Status == credit.StatusActive {
			stats.ActiveCreditLines++
			stats.TotalCreditLimit += l.LimitAmount
			stats.TotalCreditUsed += l.UsedAmount
		}
	}
	stats.CreditTransactions = int64(len(s.creditTxs))
	for _, ct := range s.creditTxs {
		stats.CreditVolume += ct.Amount
	}
	return stats, nil
}

func (s *Store) Leaderboard(_ context.Context, limit int) ([]report.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}

	type agg struct {
		volume int64
		count  int64
	}
	totals := make(map[string]*agg)
	bump := func(pid string, amount int64) {
		if pid == "" {
			return
		}
		a, ok := totals[pid]
		if !ok {
			a = &agg{}
			totals[pid] = a
		}
		a.volume += amount
		a.count++
	}
	for _, e := range s.entries {
		if !e.CreditLineID.IsNil() {
			continue
		}
		bump(e.FromAccount, e.Amount)
		bump(e.ToAccount, e.Amount)
	}

	rows := make([]report.LeaderboardRow, 0, len(totals))
	for pid, a := range totals {
		rows = append(rows, report.LeaderboardRow{
			PrincipalID:      pid,
			TotalVolume:      a.volume,
			TransactionCount: a.count,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalVolume != rows[j].TotalVolume {
			return rows[i].TotalVolume > rows[j].TotalVolume
		}
		return rows[i].PrincipalID < rows[j].PrincipalID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (s *Store) TrustStats(_ context.Context, principalID string) (*report.TrustStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, bankcore.ErrStoreClosed
	}

	stats := &report.TrustStats{}
	received := make(map[string]bool)
	for _, l := range s.lines {
		if l.GranteeID != principalID {
			continue
		}
		// LinesReceived counts active lines only; draw and repay history
		// spans every line ever received.
		received[l.ID.String()] = true
		if l.Status == credit.StatusActive {
			stats.LinesReceived++
		}
	}
	for _, ct := range s.creditTxs {
		if !received[ct.CreditLineID.String()] {
			continue
		}
		switch ct.Type {
		case credit.TransactionDraw:
			stats.TotalDraws++
			stats.TotalDrawAmount += ct.Amount
		case credit.TransactionRepay:
			stats.TotalRepays++
			stats.TotalRepayAmount += ct.Amount
		}
	}
	return stats, nil
}

// paginate slices rows[offset:offset+limit] without going out of range.
func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
