// Package sqlite provides a store adapter on SQLite via database/sql and
// the CGO-free modernc.org/sqlite driver.
//
// The database is opened with a single connection: SQLite allows one writer
// at a time anyway, and a single connection makes BEGIN..COMMIT the unit of
// work without busy-loop retries. Lock waits that exhaust busy_timeout
// surface as ErrLockTimeout.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	bankcore "github.com/moltbot/bankcore"
	"github.com/moltbot/bankcore/account"
	"github.com/moltbot/bankcore/credit"
	"github.com/moltbot/bankcore/entry"
	"github.com/moltbot/bankcore/escrow"
	"github.com/moltbot/bankcore/id"
	"github.com/moltbot/bankcore/report"
	"github.com/moltbot/bankcore/store"
)

// DefaultBusyTimeout is how long SQLite waits on a locked database before
// failing the statement.
const DefaultBusyTimeout = 5 * time.Second

// Store is a SQLite-backed store.Store implementation.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. Use ":memory:" for
// an ephemeral database.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, DefaultBusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One connection: the single-writer unit of work depends on it.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Migrate applies the schema. Safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", mapErr(err))
		}
	}
	return mapErr(tx.Commit())
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return mapErr(s.db.PingContext(ctx)) }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// RunInTx wraps fn in BEGIN..COMMIT. Row claims rely on SQLite's
// database-level write lock plus the single connection.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	if err := fn(ctx, &sqliteTx{tx: dbTx}); err != nil {
		return err
	}
	return mapErr(dbTx.Commit())
}

// mapErr translates driver-level failures into bankcore sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return bankcore.ErrLockTimeout
	}
	return err
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

// ──────────────────────────────────────────────────
// Unit of work
// ──────────────────────────────────────────────────

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) AccountForUpdate(ctx context.Context, principalID string) (*account.Account, error) {
	a, err := scanAccount(t.tx.QueryRowContext(ctx,
		`SELECT principal_id, balance, currency, created_at, updated_at
		 FROM accounts WHERE principal_id = ?`, principalID))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapErr(err)
	}

	a = account.New(principalID)
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO accounts (principal_id, balance, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.PrincipalID, a.Balance, a.Currency, toNanos(a.CreatedAt), toNanos(a.UpdatedAt))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (t *sqliteTx) SetBalance(ctx context.Context, principalID string, balance int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE principal_id = ?`,
		balance, toNanos(time.Now()), principalID)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bankcore.ErrAccountNotFound
	}
	return nil
}

func (t *sqliteTx) AppendEntry(ctx context.Context, e *entry.Entry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO ledger_entries
		 (id, type, amount, from_account, to_account, credit_line_id, memo, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), string(e.Type), e.Amount, e.FromAccount, e.ToAccount,
		e.CreditLineID.String(), e.Memo, e.IdempotencyKey, toNanos(e.CreatedAt))
	return mapErr(err)
}

func (t *sqliteTx) EntryByIdempotencyKey(ctx context.Context, key string) (*entry.Entry, error) {
	if key == "" {
		return nil, nil
	}
	e, err := scanEntry(t.tx.QueryRowContext(ctx,
		entrySelect+` WHERE idempotency_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (t *sqliteTx) CreateEscrow(ctx context.Context, e *escrow.Escrow) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO escrows
		 (id, creator_id, counterparty_id, amount, currency, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.CreatorID, e.CounterpartyID, e.Amount, e.Currency,
		e.Description, string(e.Status), toNanos(e.CreatedAt), toNanos(e.UpdatedAt))
	return mapErr(err)
}

func (t *sqliteTx) EscrowForUpdate(ctx context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	e, err := scanEscrow(t.tx.QueryRowContext(ctx,
		escrowSelect+` WHERE id = ?`, escrowID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankcore.ErrEscrowNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (t *sqliteTx) UpdateEscrow(ctx context.Context, e *escrow.Escrow) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE escrows SET status = ?, description = ?, updated_at = ? WHERE id = ?`,
		string(e.Status), e.Description, toNanos(e.UpdatedAt), e.ID.String())
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bankcore.ErrEscrowNotFound
	}
	return nil
}

func (t *sqliteTx) CreateCreditLine(ctx context.Context, l *credit.Line) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO credit_lines
		 (id, grantor_id, grantee_id, limit_amount, used_amount, currency, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.GrantorID, l.GranteeID, l.LimitAmount, l.UsedAmount,
		l.Currency, string(l.Status), toNanos(l.CreatedAt), toNanos(l.UpdatedAt))
	if err != nil && strings.Contains(err.Error(), "credit_lines.grantor_id, credit_lines.grantee_id") {
		return bankcore.ErrCreditLineExists
	}
	return mapErr(err)
}

func (t *sqliteTx) CreditLineForUpdate(ctx context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	l, err := scanLine(t.tx.QueryRowContext(ctx,
		lineSelect+` WHERE id = ?`, lineID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankcore.ErrCreditLineNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return l, nil
}

func (t *sqliteTx) UpdateCreditLine(ctx context.Context, l *credit.Line) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE credit_lines SET limit_amount = ?, used_amount = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		l.LimitAmount, l.UsedAmount, string(l.Status), toNanos(l.UpdatedAt), l.ID.String())
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return bankcore.ErrCreditLineNotFound
	}
	return nil
}

func (t *sqliteTx) HasActiveCreditLine(ctx context.Context, grantorID, granteeID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_lines
		 WHERE status = 'active' AND grantor_id = ? AND grantee_id = ?`,
		grantorID, granteeID).Scan(&n)
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

func (t *sqliteTx) AppendCreditTransaction(ctx context.Context, ct *credit.Transaction) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO credit_transactions (id, credit_line_id, amount, type, memo, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ct.ID.String(), ct.CreditLineID.String(), ct.Amount, string(ct.Type), ct.Memo, toNanos(ct.CreatedAt))
	return mapErr(err)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func (s *Store) GetAccount(ctx context.Context, principalID string) (*account.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		`SELECT principal_id, balance, currency, created_at, updated_at
		 FROM accounts WHERE principal_id = ?`, principalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (s *Store) EntriesByPrincipal(ctx context.Context, principalID string, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, `(from_account = ? OR to_account = ?)`, principalID, principalID)
}

func (s *Store) EntriesByCreditLine(ctx context.Context, lineID id.CreditLineID, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, `credit_line_id = ?`, lineID.String())
}

func (s *Store) Entries(ctx context.Context, opts entry.ListOpts) ([]*entry.Entry, int64, error) {
	return s.listEntries(ctx, opts, `1 = 1`)
}

func (s *Store) listEntries(ctx context.Context, opts entry.ListOpts, where string, args ...any) ([]*entry.Entry, int64, error) {
	opts = opts.Normalize()
	if opts.Type != "" {
		where += ` AND type = ?`
		args = append(args, string(opts.Type))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	rows, err := s.db.QueryContext(ctx,
		entrySelect+` WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []*entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, mapErr(err)
		}
		out = append(out, e)
	}
	return out, total, mapErr(rows.Err())
}

func (s *Store) GetEscrow(ctx context.Context, escrowID id.EscrowID) (*escrow.Escrow, error) {
	e, err := scanEscrow(s.db.QueryRowContext(ctx, escrowSelect+` WHERE id = ?`, escrowID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankcore.ErrEscrowNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (s *Store) EscrowsByPrincipal(ctx context.Context, principalID string) ([]*escrow.Escrow, error) {
	rows, err := s.db.QueryContext(ctx,
		escrowSelect+` WHERE creator_id = ? OR counterparty_id = ?
		 ORDER BY created_at DESC, id DESC`, principalID, principalID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*escrow.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) GetCreditLine(ctx context.Context, lineID id.CreditLineID) (*credit.Line, error) {
	l, err := scanLine(s.db.QueryRowContext(ctx, lineSelect+` WHERE id = ?`, lineID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bankcore.ErrCreditLineNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return l, nil
}

func (s *Store) CreditLinesByGrantor(ctx context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(ctx, `grantor_id = ?`, principalID)
}

func (s *Store) CreditLinesByGrantee(ctx context.Context, principalID string) ([]*credit.Line, error) {
	return s.listLines(ctx, `grantee_id = ?`, principalID)
}

func (s *Store) listLines(ctx context.Context, where string, args ...any) ([]*credit.Line, error) {
	rows, err := s.db.QueryContext(ctx,
		lineSelect+` WHERE `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*credit.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, l)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) ActiveUsedBetween(ctx context.Context, grantorID, granteeID string) (int64, error) {
	var used int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(used_amount), 0) FROM credit_lines
		 WHERE status = 'active' AND grantor_id = ? AND grantee_id = ?`,
		grantorID, granteeID).Scan(&used)
	return used, mapErr(err)
}

func (s *Store) CreditTransactions(ctx context.Context, lineID id.CreditLineID, opts credit.ListOpts) ([]*credit.Transaction, int64, error) {
	opts = opts.Normalize()

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_transactions WHERE credit_line_id = ?`,
		lineID.String()).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, credit_line_id, amount, type, memo, created_at
		 FROM credit_transactions WHERE credit_line_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		lineID.String(), opts.Limit, opts.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []*credit.Transaction
	for rows.Next() {
		ct, err := scanCreditTx(rows)
		if err != nil {
			return nil, 0, mapErr(err)
		}
		out = append(out, ct)
	}
	return out, total, mapErr(rows.Err())
}

func (s *Store) NetworkStats(ctx context.Context) (*report.NetworkStats, error) {
	stats := &report.NetworkStats{}

	queries := []struct {
		query string
		dests []any
	}{
		{`SELECT COUNT(*) FROM accounts`, []any{&stats.TotalAccounts}},
		{`SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE credit_line_id = ''`,
			[]any{&stats.TotalVolume}},
		{`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'active' THEN amount ELSE 0 END), 0)
		  FROM escrows`,
			[]any{&stats.TotalEscrows, &stats.ActiveEscrows, &stats.ActiveEscrowValue}},
		{`SELECT COUNT(*), COALESCE(SUM(limit_amount), 0), COALESCE(SUM(used_amount), 0)
		  FROM credit_lines WHERE status = 'active'`,
			[]any{&stats.ActiveCreditLines, &stats.TotalCreditLimit, &stats.TotalCreditUsed}},
		{`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM credit_transactions`,
			[]any{&stats.CreditTransactions, &stats.CreditVolume}},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dests...); err != nil {
			return nil, mapErr(err)
		}
	}
	return stats, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]report.LeaderboardRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT principal, SUM(amount) AS volume, COUNT(*) AS cnt FROM (
			SELECT from_account AS principal, amount FROM ledger_entries
			 WHERE credit_line_id = '' AND from_account != ''
			UNION ALL
			SELECT to_account AS principal, amount FROM ledger_entries
			 WHERE credit_line_id = '' AND to_account != ''
		 ) GROUP BY principal ORDER BY volume DESC, principal ASC LIMIT ?`, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []report.LeaderboardRow
	for rows.Next() {
		var row report.LeaderboardRow
		if err := rows.Scan(&row.PrincipalID, &row.TotalVolume, &row.TransactionCount); err != nil {
			return nil, mapErr(err)
		}
		row.Rank = len(out) + 1
		out = append(out, row)
	}
	return out, mapErr(rows.Err())
}

func (s *Store) TrustStats(ctx context.Context, principalID string) (*report.TrustStats, error) {
	stats := &report.TrustStats{}

	// LinesReceived counts active lines only; the history join below spans
	// every line ever received.
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM credit_lines WHERE grantee_id = ? AND status = 'active'`,
		principalID).Scan(&stats.LinesReceived); err != nil {
		return nil, mapErr(err)
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN ct.type = 'draw' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ct.type = 'repay' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ct.type = 'draw' THEN ct.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ct.type = 'repay' THEN ct.amount ELSE 0 END), 0)
		 FROM credit_transactions ct
		 JOIN credit_lines cl ON cl.id = ct.credit_line_id
		 WHERE cl.grantee_id = ?`, principalID).
		Scan(&stats.TotalDraws, &stats.TotalRepays, &stats.TotalDrawAmount, &stats.TotalRepayAmount)
	if err != nil {
		return nil, mapErr(err)
	}
	return stats, nil
}

// ──────────────────────────────────────────────────
// Row scanning
// ──────────────────────────────────────────────────

const entrySelect = `SELECT id, type, amount, from_account, to_account, credit_line_id,
	memo, idempotency_key, created_at FROM ledger_entries`

const escrowSelect = `SELECT id, creator_id, counterparty_id, amount, currency,
	description, status, created_at, updated_at FROM escrows`

const lineSelect = `SELECT id, grantor_id, grantee_id, limit_amount, used_amount,
	currency, status, created_at, updated_at FROM credit_lines`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a                    account.Account
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.PrincipalID, &a.Balance, &a.Currency, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = fromNanos(createdAt)
	a.UpdatedAt = fromNanos(updatedAt)
	return &a, nil
}

func scanEntry(row rowScanner) (*entry.Entry, error) {
	var (
		e         entry.Entry
		typ       string
		createdAt int64
	)
	if err := row.Scan(&e.ID, &typ, &e.Amount, &e.FromAccount, &e.ToAccount,
		&e.CreditLineID, &e.Memo, &e.IdempotencyKey, &createdAt); err != nil {
		return nil, err
	}
	e.Type = entry.Type(typ)
	e.CreatedAt = fromNanos(createdAt)
	return &e, nil
}

func scanEscrow(row rowScanner) (*escrow.Escrow, error) {
	var (
		e                    escrow.Escrow
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&e.ID, &e.CreatorID, &e.CounterpartyID, &e.Amount, &e.Currency,
		&e.Description, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Status = escrow.Status(status)
	e.CreatedAt = fromNanos(createdAt)
	e.UpdatedAt = fromNanos(updatedAt)
	return &e, nil
}

func scanLine(row rowScanner) (*credit.Line, error) {
	var (
		l                    credit.Line
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&l.ID, &l.GrantorID, &l.GranteeID, &l.LimitAmount, &l.UsedAmount,
		&l.Currency, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.Status = credit.Status(status)
	l.CreatedAt = fromNanos(createdAt)
	l.UpdatedAt = fromNanos(updatedAt)
	return &l, nil
}

func scanCreditTx(row rowScanner) (*credit.Transaction, error) {
	var (
		ct        credit.Transaction
		typ       string
		createdAt int64
	)
	if err := row.Scan(&ct.ID, &ct.CreditLineID, &ct.Amount, &typ, &ct.Memo, &createdAt); err != nil {
		return nil, err
	}
	ct.Type = credit.TransactionType(typ)
	ct.CreatedAt = fromNanos(createdAt)
	return &ct, nil
}
