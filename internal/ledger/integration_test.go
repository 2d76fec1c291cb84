package ledger

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The PostgreSQL backend joins the shared suites when DATABASE_URL is set.
func init() {
	if os.Getenv("DATABASE_URL") == "" {
		return
	}
	storeFactories = append(storeFactories, storeFactory{name: "postgres", open: openPostgresForTest})
}

func openPostgresForTest(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Skipf("skipping postgres integration test (database not available): %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skipping postgres integration test (database not available): %v", err)
	}

	s := NewPostgresStore(pool)
	require.NoError(t, s.Migrate(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE transactions, accounts`)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Two services over one database share nothing in process, so only the row
// locks keep their balance updates from overwriting each other.
func TestPostgres_RowLocksAcrossServices(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	if testing.Short() {
		t.Skip("Skipping row lock test in short mode")
	}
	ctx := context.Background()
	s := openPostgresForTest(t)

	first := NewLedgerService(s)
	second := NewLedgerService(s)
	a, err := first.CreateAccount(ctx, AccountFields{Name: "A", Type: "checking"})
	require.NoError(t, err)
	b, err := first.CreateAccount(ctx, AccountFields{Name: "B", Type: "savings"})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := first.PostTransaction(ctx, a.ID, TransactionFields{Date: july4, Amount: dec("-1.00"), Target: AccountRef(b.ID)})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := second.PostTransaction(ctx, b.ID, TransactionFields{Date: july4, Amount: dec("-3.00"), Target: AccountRef(a.ID)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assertBalances(t, bal("40.00", "0.00", "0.00"), loadAccount(t, s, a.ID).Balances)
	assertBalances(t, bal("-40.00", "0.00", "0.00"), loadAccount(t, s, b.ID).Balances)

	results, err := NewValidator(first).ComprehensiveValidation(ctx)
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.IsValid, r.Message)
	}
}
