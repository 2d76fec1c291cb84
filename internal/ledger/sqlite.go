package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database at path with foreign keys on. Writers
// take the database lock when their transaction begins. ":memory:" opens a
// private in-memory database on a single connection.
func OpenSQLite(path string) (*sql.DB, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on&_txlock=immediate"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// SQLiteStore keeps accounts and logs in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, m := range sqliteMigrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Atomic runs fn inside one SQLite transaction. SQLite has no row locks; the
// database write lock taken at BEGIN serializes writers.
func (s *SQLiteStore) Atomic(ctx context.Context, lock []string, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateSQLiteError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(ctx, sqliteTx{tx: tx}); err != nil {
		return translateSQLiteError(err)
	}
	if err := tx.Commit(); err != nil {
		return translateSQLiteError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func translateSQLiteError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == code
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t sqliteTx) Accounts() AccountStore { return sqliteAccounts{t.tx} }

func (t sqliteTx) Log(accountID string) TransactionLog {
	return sqliteLog{tx: t.tx, accountID: accountID}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, name, type, bank_name, account_num, bal_uncleared, bal_cleared, bal_reconciled, budget_monitored`

func scanSQLiteAccount(row rowScanner) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.BankName, &a.AccountNum,
		&a.Uncleared, &a.Cleared, &a.Reconciled, &a.BudgetMonitored)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type sqliteAccounts struct {
	tx *sql.Tx
}

func (s sqliteAccounts) Get(ctx context.Context, id string) (*Account, error) {
	row := s.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanSQLiteAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (s sqliteAccounts) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

func (s sqliteAccounts) SetBalances(ctx context.Context, id string, b Balances) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE accounts SET bal_uncleared = ?, bal_cleared = ?, bal_reconciled = ?
		WHERE id = ?
	`, b.Uncleared, b.Cleared, b.Reconciled, id)
	if err != nil {
		return fmt.Errorf("failed to set balances: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrAccountNotFound, id))
}

func (s sqliteAccounts) Create(ctx context.Context, a *Account) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Type, a.BankName, a.AccountNum, a.Uncleared, a.Cleared, a.Reconciled, a.BudgetMonitored)
	if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) || isConstraint(err, sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s sqliteAccounts) Update(ctx context.Context, a *Account) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, bank_name = ?, account_num = ?, budget_monitored = ?
		WHERE id = ?
	`, a.Name, a.Type, a.BankName, a.AccountNum, a.BudgetMonitored, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID))
}

func (s sqliteAccounts) Delete(ctx context.Context, id string) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ?`, id); err != nil {
		return fmt.Errorf("failed to drop transaction log: %w", err)
	}
	res, err := s.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrAccountNotFound, id))
}

func (s sqliteAccounts) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const transactionColumns = `id, date, type, payee, memo, amount, reconciled, cat_or_acct_id`

func scanSQLiteTransaction(row rowScanner) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Type, &t.Payee, &t.Memo, &t.Amount, &t.Reconciled, &t.Target)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type sqliteLog struct {
	tx        *sql.Tx
	accountID string
}

func (l sqliteLog) Insert(ctx context.Context, t *Transaction) error {
	_, err := l.tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, `+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.accountID, t.ID, t.Date, t.Type, t.Payee, t.Memo, t.Amount, t.Reconciled, t.Target)
	if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, l.accountID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (l sqliteLog) Get(ctx context.Context, id string) (*Transaction, error) {
	row := l.tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE account_id = ? AND id = ?
	`, l.accountID, id)
	t, err := scanSQLiteTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (l sqliteLog) Update(ctx context.Context, t *Transaction) error {
	res, err := l.tx.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, type = ?, payee = ?, memo = ?, amount = ?, reconciled = ?, cat_or_acct_id = ?
		WHERE account_id = ? AND id = ?
	`, t.Date, t.Type, t.Payee, t.Memo, t.Amount, t.Reconciled, t.Target, l.accountID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res, fmt.Errorf("%w: %s", ErrTransactionNotFound, t.ID))
}

func (l sqliteLog) Remove(ctx context.Context, id string) (bool, error) {
	res, err := l.tx.ExecContext(ctx, `DELETE FROM transactions WHERE account_id = ? AND id = ?`, l.accountID, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l sqliteLog) Query(ctx context.Context, q Query) ([]*Transaction, error) {
	conds := []string{"account_id = ?"}
	args := []any{l.accountID}
	if q.From != nil {
		conds = append(conds, "date >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		conds = append(conds, "date <= ?")
		args = append(args, *q.To)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC, seq DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := l.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanSQLiteTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
