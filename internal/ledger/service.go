package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/abacus/pkg/audit"
)

// maxLockAttempts bounds how often an update or delete re-reads a transaction
// whose counter-account changed between choosing the lock set and taking it.
const maxLockAttempts = 3

// errTargetMoved signals that the lock set taken no longer covers the transaction.
var errTargetMoved = errors.New("transaction target changed while acquiring locks")

// Auditor records successful ledger mutations.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// LedgerService keeps account balances consistent with their transaction logs
// and maintains both legs of every transfer.
type LedgerService struct {
	store   Store
	locks   *AccountLocks
	linker  TransferLinker
	logger  *slog.Logger
	auditor Auditor
	newID   func() string
}

type Option func(*LedgerService)

func WithLogger(l *slog.Logger) Option {
	return func(ls *LedgerService) {
		if l != nil {
			ls.logger = l
		}
	}
}

func WithAuditor(a Auditor) Option {
	return func(ls *LedgerService) { ls.auditor = a }
}

// WithIDGenerator replaces the transaction id source.
func WithIDGenerator(fn func() string) Option {
	return func(ls *LedgerService) {
		if fn != nil {
			ls.newID = fn
		}
	}
}

// NewLedgerService creates a ledger over store.
func NewLedgerService(store Store, opts ...Option) *LedgerService {
	ls := &LedgerService{
		store:  store,
		locks:  NewAccountLocks(),
		logger: slog.Default(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// Store returns the backing store.
func (ls *LedgerService) Store() Store {
	return ls.store
}

// PostTransaction writes a new transaction to accountID's log and, for a
// transfer, its mirror to the counter-account.
func (ls *LedgerService) PostTransaction(ctx context.Context, accountID string, f TransactionFields) (*Result, error) {
	counterID, isTransfer := f.Target.AccountID()
	if isTransfer && counterID == accountID {
		return nil, invalidField("cat_or_acct_id", counterID, "a transfer must target another account")
	}

	t := &Transaction{
		ID:         ls.newID(),
		Date:       f.Date,
		Type:       f.Type,
		Payee:      f.Payee,
		Memo:       f.Memo,
		Amount:     round2(f.Amount),
		Reconciled: f.Reconciled,
		Target:     f.Target,
	}

	lockIDs := LockOrder(accountID, counterID)
	unlock := ls.locks.Lock(lockIDs...)
	defer unlock()

	res := &Result{}
	err := ls.store.Atomic(ctx, lockIDs, func(ctx context.Context, tx Tx) error {
		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if isTransfer {
			if err := ls.linker.CheckCounter(ctx, tx, counterID); err != nil {
				return err
			}
		}

		if err := tx.Log(accountID).Insert(ctx, t); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		acct.Balances = ApplyCreate(acct.Balances, t.Amount, t.Reconciled)
		if err := tx.Accounts().SetBalances(ctx, accountID, acct.Balances); err != nil {
			return err
		}
		res.Accounts = append(res.Accounts, snapshotOf(acct))

		if isTransfer {
			snap, err := ls.linker.Create(ctx, tx, accountID, t)
			if err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Transaction = withURI(accountID, t)
	ls.record("post_transaction", accountID, t.ID, counterID)
	return res, nil
}

// UpdateTransaction merges patch into the stored transaction, adjusts the
// balances for amount and tier changes and brings the mirror in line.
func (ls *LedgerService) UpdateTransaction(ctx context.Context, accountID, transID string, patch TransactionPatch) (*Result, error) {
	if patch.Target != nil {
		if counterID, ok := patch.Target.AccountID(); ok && counterID == accountID {
			return nil, invalidField("cat_or_acct_id", counterID, "a transfer must target another account")
		}
	}

	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		seen, err := ls.peekTarget(ctx, accountID, transID)
		if err != nil {
			return nil, err
		}
		res, err := ls.updateLocked(ctx, accountID, transID, patch, seen)
		if errors.Is(err, errTargetMoved) {
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("%w: transaction %s", ErrConcurrentModification, transID)
}

func (ls *LedgerService) updateLocked(ctx context.Context, accountID, transID string, patch TransactionPatch, seen Target) (*Result, error) {
	oldCounter, _ := seen.AccountID()
	newCounter := oldCounter
	if patch.Target != nil {
		newCounter, _ = patch.Target.AccountID()
	}

	lockIDs := LockOrder(accountID, oldCounter, newCounter)
	unlock := ls.locks.Lock(lockIDs...)
	defer unlock()

	res := &Result{}
	var updated *Transaction
	var plan MirrorPlan
	err := ls.store.Atomic(ctx, lockIDs, func(ctx context.Context, tx Tx) error {
		log := tx.Log(accountID)
		before, err := log.Get(ctx, transID)
		if err != nil {
			return err
		}
		if before.Target != seen {
			return errTargetMoved
		}

		after := patch.apply(before)
		plan = PlanUpdate(before, after)
		if plan.Action == MirrorCreate || plan.Action == MirrorRelocate {
			if err := ls.linker.CheckCounter(ctx, tx, plan.To); err != nil {
				return err
			}
		}

		if touchesBalances(before, after) {
			acct, err := tx.Accounts().Get(ctx, accountID)
			if err != nil {
				return err
			}
			acct.Balances = ApplyEdit(acct.Balances, before, after)
			if err := tx.Accounts().SetBalances(ctx, accountID, acct.Balances); err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, snapshotOf(acct))
		}
		if err := log.Update(ctx, after); err != nil {
			return err
		}

		switch plan.Action {
		case MirrorCreate:
			snap, err := ls.linker.Create(ctx, tx, accountID, after)
			if err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, snap)
		case MirrorRemove:
			snap, err := ls.linker.Remove(ctx, tx, plan.From, transID)
			if err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, snap)
		case MirrorRelocate:
			removed, err := ls.linker.Remove(ctx, tx, plan.From, transID)
			if err != nil {
				return err
			}
			created, err := ls.linker.Create(ctx, tx, accountID, after)
			if err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, removed, created)
		case MirrorPatch:
			snap, changed, err := ls.linker.Patch(ctx, tx, plan.To, after)
			if err != nil {
				return err
			}
			if changed {
				res.Accounts = append(res.Accounts, snap)
			}
		}

		updated = after
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Transaction = withURI(accountID, updated)
	ls.logger.Debug("transaction updated", "account_id", accountID, "transaction_id", transID, "mirror", plan.Action.String())
	ls.record("update_transaction", accountID, transID, plan.From, plan.To)
	return res, nil
}

// DeleteTransaction removes a transaction and, for a transfer, its mirror.
// The returned result carries no transaction body.
func (ls *LedgerService) DeleteTransaction(ctx context.Context, accountID, transID string) (*Result, error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		seen, err := ls.peekTarget(ctx, accountID, transID)
		if err != nil {
			return nil, err
		}
		res, err := ls.deleteLocked(ctx, accountID, transID, seen)
		if errors.Is(err, errTargetMoved) {
			continue
		}
		return res, err
	}
	return nil, fmt.Errorf("%w: transaction %s", ErrConcurrentModification, transID)
}

func (ls *LedgerService) deleteLocked(ctx context.Context, accountID, transID string, seen Target) (*Result, error) {
	counterID, isTransfer := seen.AccountID()

	lockIDs := LockOrder(accountID, counterID)
	unlock := ls.locks.Lock(lockIDs...)
	defer unlock()

	res := &Result{}
	err := ls.store.Atomic(ctx, lockIDs, func(ctx context.Context, tx Tx) error {
		log := tx.Log(accountID)
		t, err := log.Get(ctx, transID)
		if err != nil {
			return err
		}
		if t.Target != seen {
			return errTargetMoved
		}

		acct, err := tx.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		removed, err := log.Remove(ctx, transID)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, transID)
		}
		acct.Balances = ApplyDelete(acct.Balances, t.Amount, t.Reconciled)
		if err := tx.Accounts().SetBalances(ctx, accountID, acct.Balances); err != nil {
			return err
		}
		res.Accounts = append(res.Accounts, snapshotOf(acct))

		if isTransfer {
			snap, err := ls.linker.Remove(ctx, tx, counterID, transID)
			if err != nil {
				return err
			}
			res.Accounts = append(res.Accounts, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ls.record("delete_transaction", accountID, transID, counterID)
	return res, nil
}

// ListOptions bound a transaction listing. With both dates the range is
// inclusive; with only From everything on or after it is returned; otherwise
// the most recent DefaultListLimit entries are.
type ListOptions struct {
	From *Date
	To   *Date
}

func (o ListOptions) query() Query {
	switch {
	case o.From != nil && o.To != nil:
		return Query{From: o.From, To: o.To}
	case o.From != nil:
		return Query{From: o.From}
	}
	return Query{Limit: DefaultListLimit}
}

// ListTransactions returns accountID's log, newest first. An empty result is
// reported as ErrEmptyResult.
func (ls *LedgerService) ListTransactions(ctx context.Context, accountID string, opts ListOptions) ([]*Transaction, error) {
	unlock := ls.locks.RLock(accountID)
	defer unlock()

	var out []*Transaction
	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Log(accountID).Query(ctx, opts.query())
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no transactions for %s", ErrEmptyResult, accountID)
	}
	for i, t := range out {
		out[i] = withURI(accountID, t)
	}
	return out, nil
}

// GetTransaction returns one transaction of accountID's log.
func (ls *LedgerService) GetTransaction(ctx context.Context, accountID, transID string) (*Transaction, error) {
	unlock := ls.locks.RLock(accountID)
	defer unlock()

	var t *Transaction
	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		t, err = tx.Log(accountID).Get(ctx, transID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return withURI(accountID, t), nil
}

// peekTarget reads the current target of a transaction to decide which
// accounts an update or delete has to lock.
func (ls *LedgerService) peekTarget(ctx context.Context, accountID, transID string) (Target, error) {
	unlock := ls.locks.RLock(accountID)
	defer unlock()

	var target Target
	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		t, err := tx.Log(accountID).Get(ctx, transID)
		if err != nil {
			return err
		}
		target = t.Target
		return nil
	})
	return target, err
}

func (ls *LedgerService) record(op, accountID, subjectID string, counterIDs ...string) {
	counterIDs = LockOrder(counterIDs...)
	ls.logger.Debug("ledger mutation", "op", op, "account_id", accountID, "subject_id", subjectID, "counter_account_ids", counterIDs)
	if ls.auditor == nil {
		return
	}
	ls.auditor.Append(fmt.Sprintf("op=%s account=%s subject=%s counter=%v", op, accountID, subjectID, counterIDs))
}

func withURI(accountID string, t *Transaction) *Transaction {
	out := t.clone()
	out.URI = TransactionURI(accountID, t.ID)
	return out
}
