package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/abacus/pkg/audit"
)

func TestAccountLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ls := NewLedgerService(s)

		_, err := ls.ListAccounts(ctx)
		assert.ErrorIs(t, err, ErrEmptyResult)

		a, err := ls.CreateAccount(ctx, AccountFields{Name: "Joint Checking", Type: "checking", BankName: "First Bank"})
		require.NoError(t, err)
		assert.Equal(t, "acct_jointchecking", a.ID)
		assert.Equal(t, "/api/accounts/acct_jointchecking", a.URI)
		assert.True(t, a.Balances.Equal(Balances{}))

		_, err = ls.CreateAccount(ctx, AccountFields{Name: "joint-checking", Type: "checking"})
		assert.ErrorIs(t, err, ErrAccountExists)

		_, err = ls.CreateAccount(ctx, AccountFields{Name: "Visa", Type: "credit"})
		require.NoError(t, err)

		all, err := ls.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "acct_jointchecking", all[0].ID)
		assert.Equal(t, "acct_visa", all[1].ID)

		updated, err := ls.UpdateAccount(ctx, a.ID, AccountPatch{Name: strPtr("Joint"), AccountNum: strPtr("1234")})
		require.NoError(t, err)
		assert.Equal(t, "Joint", updated.Name)
		assert.Equal(t, "1234", updated.AccountNum)
		assert.Equal(t, "acct_jointchecking", updated.ID)

		got, err := ls.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "First Bank", got.BankName)

		require.NoError(t, ls.DeleteAccount(ctx, a.ID))
		_, err = ls.GetAccount(ctx, a.ID)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.ErrorIs(t, ls.DeleteAccount(ctx, a.ID), ErrAccountNotFound)
	})
}

func TestCreateAccount_Validation(t *testing.T) {
	ls := NewLedgerService(NewMemoryStore())
	ctx := context.Background()

	_, err := ls.CreateAccount(ctx, AccountFields{Type: "checking"})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = ls.CreateAccount(ctx, AccountFields{Name: "Cash"})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = ls.CreateAccount(ctx, AccountFields{Name: "!!!", Type: "cash"})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = ls.UpdateAccount(ctx, "acct_cash", AccountPatch{Type: strPtr(" ")})
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = ls.UpdateAccount(ctx, "acct_cash", AccountPatch{Type: strPtr("cash")})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteAccount_LeavesCounterMirrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	posted, err := f.ledger.PostTransaction(ctx, f.checking, TransactionFields{
		Date: july4, Amount: dec("-100.00"), Target: AccountRef(f.savings),
	})
	require.NoError(t, err)

	require.NoError(t, f.ledger.DeleteAccount(ctx, f.checking))

	mirror, err := f.ledger.GetTransaction(ctx, f.savings, posted.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, AccountRef(f.checking), mirror.Target)
}

type recordingAuditor struct {
	payloads []string
}

func (r *recordingAuditor) Append(payload string) *audit.LogEntry {
	r.payloads = append(r.payloads, payload)
	return &audit.LogEntry{Payload: payload}
}

func TestMutationsAreAudited(t *testing.T) {
	ctx := context.Background()
	rec := &recordingAuditor{}
	s := NewMemoryStore()
	ls := NewLedgerService(s, WithAuditor(rec), WithIDGenerator(sequentialIDs("t")))

	a, err := ls.CreateAccount(ctx, AccountFields{Name: "Checking", Type: "checking"})
	require.NoError(t, err)
	b, err := ls.CreateAccount(ctx, AccountFields{Name: "Savings", Type: "savings"})
	require.NoError(t, err)
	_, err = ls.PostTransaction(ctx, a.ID, TransactionFields{Date: july4, Amount: dec("-5.00"), Target: AccountRef(b.ID)})
	require.NoError(t, err)
	_, err = ls.DeleteTransaction(ctx, a.ID, "t1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"op=create_account account=acct_checking subject=acct_checking counter=[]",
		"op=create_account account=acct_savings subject=acct_savings counter=[]",
		"op=post_transaction account=acct_checking subject=t1 counter=[acct_savings]",
		"op=delete_transaction account=acct_checking subject=t1 counter=[acct_savings]",
	}, rec.payloads)
}
