package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bal(unclr, clr, rec string) Balances {
	return Balances{Uncleared: dec(unclr), Cleared: dec(clr), Reconciled: dec(rec)}
}

// startingBalances are the figures of the checking account used across tests.
func startingBalances() Balances {
	return bal("2635.63", "-40.92", "1021.61")
}

func assertBalances(t *testing.T, want, got Balances) {
	t.Helper()
	assert.Equal(t, want.Uncleared.StringFixed(2), got.Uncleared.StringFixed(2), "bal_uncleared")
	assert.Equal(t, want.Cleared.StringFixed(2), got.Cleared.StringFixed(2), "bal_cleared")
	assert.Equal(t, want.Reconciled.StringFixed(2), got.Reconciled.StringFixed(2), "bal_reconciled")
}

// seedAccount writes an account with the given balances straight into the store.
func seedAccount(t *testing.T, s Store, name string, b Balances) string {
	t.Helper()
	id := AccountIDFromName(name)
	err := s.Atomic(context.Background(), nil, func(ctx context.Context, tx Tx) error {
		return tx.Accounts().Create(ctx, &Account{ID: id, Name: name, Type: "checking", Balances: b})
	})
	require.NoError(t, err)
	return id
}

// seedTransaction writes t into an account's log without touching balances,
// as if it had been accounted for already.
func seedTransaction(t *testing.T, s Store, accountID string, tr *Transaction) {
	t.Helper()
	err := s.Atomic(context.Background(), nil, func(ctx context.Context, tx Tx) error {
		return tx.Log(accountID).Insert(ctx, tr)
	})
	require.NoError(t, err)
}

func loadAccount(t *testing.T, s Store, id string) *Account {
	t.Helper()
	var a *Account
	err := s.Atomic(context.Background(), nil, func(ctx context.Context, tx Tx) error {
		var err error
		a, err = tx.Accounts().Get(ctx, id)
		return err
	})
	require.NoError(t, err)
	return a
}

func loadTransaction(s Store, accountID, transID string) (*Transaction, error) {
	var tr *Transaction
	err := s.Atomic(context.Background(), nil, func(ctx context.Context, tx Tx) error {
		var err error
		tr, err = tx.Log(accountID).Get(ctx, transID)
		return err
	})
	return tr, err
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func tierPtr(t Tier) *Tier { return &t }

func targetPtr(t Target) *Target { return &t }
