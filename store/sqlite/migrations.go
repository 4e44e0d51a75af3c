package sqlite

// Schema statements, applied in order inside one transaction. Timestamps
// are stored as integer unix nanoseconds so text collation never affects
// ordering.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		principal_id TEXT PRIMARY KEY,
		balance      INTEGER NOT NULL DEFAULT 0,
		currency     TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id              TEXT PRIMARY KEY,
		type            TEXT NOT NULL,
		amount          INTEGER NOT NULL,
		from_account    TEXT NOT NULL DEFAULT '',
		to_account      TEXT NOT NULL DEFAULT '',
		credit_line_id  TEXT NOT NULL DEFAULT '',
		memo            TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_from ON ledger_entries (from_account, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_to ON ledger_entries (to_account, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_credit_line ON ledger_entries (credit_line_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_idempotency
		ON ledger_entries (idempotency_key) WHERE idempotency_key != ''`,

	`CREATE TABLE IF NOT EXISTS escrows (
		id              TEXT PRIMARY KEY,
		creator_id      TEXT NOT NULL,
		counterparty_id TEXT NOT NULL,
		amount          INTEGER NOT NULL,
		currency        TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_escrows_creator ON escrows (creator_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_escrows_counterparty ON escrows (counterparty_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS credit_lines (
		id           TEXT PRIMARY KEY,
		grantor_id   TEXT NOT NULL,
		grantee_id   TEXT NOT NULL,
		limit_amount INTEGER NOT NULL,
		used_amount  INTEGER NOT NULL DEFAULT 0,
		currency     TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lines_grantor ON credit_lines (grantor_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_lines_grantee ON credit_lines (grantee_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_lines_active_pair
		ON credit_lines (grantor_id, grantee_id) WHERE status = 'active'`,

	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id             TEXT PRIMARY KEY,
		credit_line_id TEXT NOT NULL,
		amount         INTEGER NOT NULL,
		type           TEXT NOT NULL,
		memo           TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_tx_line ON credit_transactions (credit_line_id, created_at DESC)`,
}
