package ledger

// The transaction table is shared by every account and keyed by
// (account_id, id); seq preserves posting order for entries on the same date.

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		bank_name TEXT NOT NULL DEFAULT '',
		account_num TEXT NOT NULL DEFAULT '',
		bal_uncleared TEXT NOT NULL DEFAULT '0',
		bal_cleared TEXT NOT NULL DEFAULT '0',
		bal_reconciled TEXT NOT NULL DEFAULT '0',
		budget_monitored INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		payee TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		reconciled TEXT NOT NULL DEFAULT '' CHECK (reconciled IN ('', 'C', 'R')),
		cat_or_acct_id TEXT NOT NULL DEFAULT '',
		UNIQUE (account_id, id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date DESC, seq DESC);`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		bank_name TEXT NOT NULL DEFAULT '',
		account_num TEXT NOT NULL DEFAULT '',
		bal_uncleared NUMERIC(14, 2) NOT NULL DEFAULT 0,
		bal_cleared NUMERIC(14, 2) NOT NULL DEFAULT 0,
		bal_reconciled NUMERIC(14, 2) NOT NULL DEFAULT 0,
		budget_monitored BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		seq BIGSERIAL PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		date DATE NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		payee TEXT NOT NULL DEFAULT '',
		memo TEXT NOT NULL DEFAULT '',
		amount NUMERIC(14, 2) NOT NULL,
		reconciled TEXT NOT NULL DEFAULT '' CHECK (reconciled IN ('', 'C', 'R')),
		cat_or_acct_id TEXT NOT NULL DEFAULT '',
		UNIQUE (account_id, id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date DESC, seq DESC);`,
}
