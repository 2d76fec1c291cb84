package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CreateAccount registers a new account with zero balances. The id is derived
// from the name and never changes afterwards.
func (ls *LedgerService) CreateAccount(ctx context.Context, f AccountFields) (*Account, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, invalidField("name", f.Name, "required")
	}
	if strings.TrimSpace(f.Type) == "" {
		return nil, invalidField("type", f.Type, "required")
	}
	id := AccountIDFromName(f.Name)
	if id == AccountIDPrefix {
		return nil, invalidField("name", f.Name, "must contain a letter or digit")
	}

	a := &Account{
		ID:              id,
		Name:            f.Name,
		Type:            f.Type,
		BankName:        f.BankName,
		AccountNum:      f.AccountNum,
		BudgetMonitored: f.BudgetMonitored,
	}

	unlock := ls.locks.Lock(id)
	defer unlock()

	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		exists, err := tx.Accounts().Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAccountExists, id)
		}
		return tx.Accounts().Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	ls.record("create_account", id, id)
	return withAccountURI(a), nil
}

// GetAccount returns one account record.
func (ls *LedgerService) GetAccount(ctx context.Context, id string) (*Account, error) {
	unlock := ls.locks.RLock(id)
	defer unlock()

	var a *Account
	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		a, err = tx.Accounts().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return withAccountURI(a), nil
}

// ListAccounts returns every account ordered by id.
func (ls *LedgerService) ListAccounts(ctx context.Context) ([]*Account, error) {
	var out []*Account
	err := ls.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Accounts().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no accounts", ErrEmptyResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	for i, a := range out {
		out[i] = withAccountURI(a)
	}
	return out, nil
}

// UpdateAccount changes the descriptive fields of an account.
func (ls *LedgerService) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*Account, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, invalidField("name", *patch.Name, "must not be empty")
	}
	if patch.Type != nil && strings.TrimSpace(*patch.Type) == "" {
		return nil, invalidField("type", *patch.Type, "must not be empty")
	}

	unlock := ls.locks.Lock(id)
	defer unlock()

	var updated *Account
	err := ls.store.Atomic(ctx, []string{id}, func(ctx context.Context, tx Tx) error {
		current, err := tx.Accounts().Get(ctx, id)
		if err != nil {
			return err
		}
		updated = patch.apply(current)
		return tx.Accounts().Update(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	ls.record("update_account", id, id)
	return withAccountURI(updated), nil
}

// DeleteAccount removes an account and its whole transaction log. Mirrors of
// its transfers held by other accounts are left in place.
func (ls *LedgerService) DeleteAccount(ctx context.Context, id string) error {
	unlock := ls.locks.Lock(id)
	defer unlock()

	err := ls.store.Atomic(ctx, []string{id}, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Accounts().Get(ctx, id); err != nil {
			return err
		}
		return tx.Accounts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	ls.record("delete_account", id, id)
	return nil
}

func withAccountURI(a *Account) *Account {
	out := a.clone()
	out.URI = AccountURI(a.ID)
	return out
}
