package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidatedLedger(t *testing.T, s Store) (*LedgerService, string, string) {
	t.Helper()
	ctx := context.Background()
	ls := NewLedgerService(s, WithIDGenerator(sequentialIDs("t")))
	a, err := ls.CreateAccount(ctx, AccountFields{Name: "Checking", Type: "checking"})
	require.NoError(t, err)
	b, err := ls.CreateAccount(ctx, AccountFields{Name: "Savings", Type: "savings"})
	require.NoError(t, err)

	for _, f := range []TransactionFields{
		{Date: july4, Payee: "Pay", Amount: dec("2500.00"), Reconciled: Reconciled, Target: CategoryRef("salary")},
		{Date: july4, Payee: "Grocer", Amount: dec("-52.08"), Reconciled: Cleared, Target: CategoryRef("food")},
		{Date: july4, Payee: "Save", Memo: "monthly", Amount: dec("-100.00"), Target: AccountRef(b.ID)},
	} {
		_, err := ls.PostTransaction(ctx, a.ID, f)
		require.NoError(t, err)
	}
	return ls, a.ID, b.ID
}

func TestValidator_ConsistentLedger(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ls, _, _ := newValidatedLedger(t, s)

		results, err := NewValidator(ls).ComprehensiveValidation(context.Background())
		require.NoError(t, err)
		require.Len(t, results, 4)
		for _, r := range results {
			assert.True(t, r.IsValid, "%s %s: %s", r.ValidationType, r.AccountID, r.Message)
		}
	})
}

func TestValidator_DetectsBalanceDrift(t *testing.T) {
	s := NewMemoryStore()
	ls, checking, _ := newValidatedLedger(t, s)

	require.NoError(t, s.Atomic(context.Background(), nil, func(ctx context.Context, tx Tx) error {
		return tx.Accounts().SetBalances(ctx, checking, bal("1.00", "2.00", "3.00"))
	}))

	res := NewValidator(ls).ValidateAccountBalanceConsistency(context.Background(), checking)
	assert.False(t, res.IsValid)
	assert.Equal(t, "balance_consistency", res.ValidationType)
	assert.Equal(t, "2347.92", res.Details["expected_uncleared"])
	assert.Equal(t, "2447.92", res.Details["expected_cleared"])
	assert.Equal(t, "2500.00", res.Details["expected_reconciled"])
	assert.Equal(t, 3, res.Details["transactions"])
}

func TestValidator_DetectsBrokenMirror(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ls, checking, savings := newValidatedLedger(t, s)
	v := NewValidator(ls)

	require.NoError(t, s.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		m, err := tx.Log(savings).Get(ctx, "t3")
		if err != nil {
			return err
		}
		m.Memo = "edited"
		return tx.Log(savings).Update(ctx, m)
	}))

	results := v.ValidateTransferSymmetry(ctx, checking)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Equal(t, "t3", results[0].TransactionID)
	assert.Contains(t, results[0].Message, "memo")

	require.NoError(t, s.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		_, err := tx.Log(savings).Remove(ctx, "t3")
		return err
	}))

	results = v.ValidateTransferSymmetry(ctx, checking)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsValid)
	assert.Contains(t, results[0].Message, "mirror missing")
}

func TestValidator_UnknownAccount(t *testing.T) {
	ls := NewLedgerService(NewMemoryStore())
	res := NewValidator(ls).ValidateAccountBalanceConsistency(context.Background(), "acct_missing")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Message, "account not found")
}
