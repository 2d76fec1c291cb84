package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore keeps accounts and logs in PostgreSQL. Every unit of work runs
// in one database transaction and locks the named account rows with
// SELECT ... FOR UPDATE in ascending id order.
type PostgresStore struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool, QueryTimeout: 5 * time.Second}
}

// Migrate creates the ledger tables.
func (ps *PostgresStore) Migrate(ctx context.Context) error {
	for _, m := range postgresMigrations {
		if _, err := ps.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Atomic runs fn inside one READ COMMITTED transaction holding row locks on lock.
func (ps *PostgresStore) Atomic(ctx context.Context, lock []string, fn func(ctx context.Context, tx Tx) error) error {
	queryCtx := ctx
	if ps.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, ps.QueryTimeout)
		defer cancel()
	}

	conn, err := ps.Pool.Acquire(queryCtx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(queryCtx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(queryCtx)

	if ids := LockOrder(lock...); len(ids) > 0 {
		rows, err := tx.Query(queryCtx, `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
		if err != nil {
			return translatePgError(fmt.Errorf("failed to lock accounts: %w", err))
		}
		if _, err := pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
			return translatePgError(fmt.Errorf("failed to lock accounts: %w", err))
		}
	}

	if err := fn(queryCtx, pgTx{tx: tx}); err != nil {
		return translatePgError(err)
	}
	if err := tx.Commit(queryCtx); err != nil {
		return translatePgError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	ps.Pool.Close()
	return nil
}

// translatePgError maps serialization failures and deadlocks to ErrConcurrentModification.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Accounts() AccountStore { return pgAccounts{t.tx} }

func (t pgTx) Log(accountID string) TransactionLog {
	return pgLog{tx: t.tx, accountID: accountID}
}

const pgAccountColumns = `id, name, type, bank_name, account_num,
	bal_uncleared::text, bal_cleared::text, bal_reconciled::text, budget_monitored`

func scanPgAccount(row pgx.Row) (*Account, error) {
	var a Account
	var unclr, clr, rec string
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.BankName, &a.AccountNum, &unclr, &clr, &rec, &a.BudgetMonitored); err != nil {
		return nil, err
	}
	var err error
	if a.Uncleared, err = decimal.NewFromString(unclr); err != nil {
		return nil, err
	}
	if a.Cleared, err = decimal.NewFromString(clr); err != nil {
		return nil, err
	}
	if a.Reconciled, err = decimal.NewFromString(rec); err != nil {
		return nil, err
	}
	return &a, nil
}

type pgAccounts struct {
	tx pgx.Tx
}

func (p pgAccounts) Get(ctx context.Context, id string) (*Account, error) {
	a, err := scanPgAccount(p.tx.QueryRow(ctx, `SELECT `+pgAccountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (p pgAccounts) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := p.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

func (p pgAccounts) SetBalances(ctx context.Context, id string, b Balances) error {
	tag, err := p.tx.Exec(ctx, `
		UPDATE accounts
		SET bal_uncleared = $2::numeric, bal_cleared = $3::numeric, bal_reconciled = $4::numeric
		WHERE id = $1
	`, id, b.Uncleared.String(), b.Cleared.String(), b.Reconciled.String())
	if err != nil {
		return fmt.Errorf("failed to set balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return nil
}

func (p pgAccounts) Create(ctx context.Context, a *Account) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO accounts (id, name, type, bank_name, account_num, bal_uncleared, bal_cleared, bal_reconciled, budget_monitored)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9)
	`, a.ID, a.Name, a.Type, a.BankName, a.AccountNum,
		a.Uncleared.String(), a.Cleared.String(), a.Reconciled.String(), a.BudgetMonitored)
	if pgCode(err) == "23505" {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (p pgAccounts) Update(ctx context.Context, a *Account) error {
	tag, err := p.tx.Exec(ctx, `
		UPDATE accounts SET name = $2, type = $3, bank_name = $4, account_num = $5, budget_monitored = $6
		WHERE id = $1
	`, a.ID, a.Name, a.Type, a.BankName, a.AccountNum, a.BudgetMonitored)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID)
	}
	return nil
}

func (p pgAccounts) Delete(ctx context.Context, id string) error {
	if _, err := p.tx.Exec(ctx, `DELETE FROM transactions WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("failed to drop transaction log: %w", err)
	}
	tag, err := p.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return nil
}

func (p pgAccounts) List(ctx context.Context) ([]*Account, error) {
	rows, err := p.tx.Query(ctx, `SELECT `+pgAccountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanPgAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const pgTransactionColumns = `id, date, type, payee, memo, amount::text, reconciled, cat_or_acct_id`

func scanPgTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var date time.Time
	var amount, tier, target string
	if err := row.Scan(&t.ID, &date, &t.Type, &t.Payee, &t.Memo, &amount, &tier, &target); err != nil {
		return nil, err
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	if t.Reconciled, err = ParseTier(tier); err != nil {
		return nil, err
	}
	t.Date = DateOf(date)
	t.Target = ResolveTarget(target)
	return &t, nil
}

type pgLog struct {
	tx        pgx.Tx
	accountID string
}

func (l pgLog) Insert(ctx context.Context, t *Transaction) error {
	_, err := l.tx.Exec(ctx, `
		INSERT INTO transactions (account_id, id, date, type, payee, memo, amount, reconciled, cat_or_acct_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
	`, l.accountID, t.ID, t.Date.Time, t.Type, t.Payee, t.Memo, t.Amount.String(), t.Reconciled.Code(), t.Target.ID())
	if pgCode(err) == "23503" {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, l.accountID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (l pgLog) Get(ctx context.Context, id string) (*Transaction, error) {
	t, err := scanPgTransaction(l.tx.QueryRow(ctx, `
		SELECT `+pgTransactionColumns+` FROM transactions WHERE account_id = $1 AND id = $2
	`, l.accountID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (l pgLog) Update(ctx context.Context, t *Transaction) error {
	tag, err := l.tx.Exec(ctx, `
		UPDATE transactions
		SET date = $3, type = $4, payee = $5, memo = $6, amount = $7::numeric, reconciled = $8, cat_or_acct_id = $9
		WHERE account_id = $1 AND id = $2
	`, l.accountID, t.ID, t.Date.Time, t.Type, t.Payee, t.Memo, t.Amount.String(), t.Reconciled.Code(), t.Target.ID())
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, t.ID)
	}
	return nil
}

func (l pgLog) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := l.tx.Exec(ctx, `DELETE FROM transactions WHERE account_id = $1 AND id = $2`, l.accountID, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove transaction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (l pgLog) Query(ctx context.Context, q Query) ([]*Transaction, error) {
	conds := []string{"account_id = $1"}
	args := []any{l.accountID}
	if q.From != nil {
		args = append(args, q.From.Time)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if q.To != nil {
		args = append(args, q.To.Time)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + pgTransactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date DESC, seq DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
