package ledger

import (
	"context"
)

// DefaultListLimit bounds an unfiltered transaction listing.
const DefaultListLimit = 60

// Query selects entries from one account's log. Results are ordered by date,
// newest first; entries sharing a date are ordered newest posting first.
type Query struct {
	From  *Date // inclusive
	To    *Date // inclusive
	Limit int   // zero means no limit
}

// AccountStore holds one record per account.
type AccountStore interface {
	Get(ctx context.Context, id string) (*Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetBalances(ctx context.Context, id string, b Balances) error
	Create(ctx context.Context, a *Account) error
	// Update writes the descriptive fields of a; balances are left untouched.
	Update(ctx context.Context, a *Account) error
	// Delete removes the record together with the account's transaction log.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Account, error)
}

// TransactionLog is the ordered log of one account.
type TransactionLog interface {
	Insert(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	Update(ctx context.Context, t *Transaction) error
	Remove(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, q Query) ([]*Transaction, error)
}

// Tx is the view of the stores inside one unit of work.
type Tx interface {
	Accounts() AccountStore
	Log(accountID string) TransactionLog
}

// Store opens units of work over accounts and their logs.
type Store interface {
	// Atomic runs fn as one unit of work: either every write fn made is kept or
	// none is. Backends that lock rows take the records named in lock in
	// ascending id order before fn runs.
	Atomic(ctx context.Context, lock []string, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
