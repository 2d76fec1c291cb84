package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	ledgerapi "github.com/example/abacus/api/ledger"
	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/internal/security"
)

func str(s string) *string { return &s }

func startLedger(t *testing.T, allow security.Allowlist) (*Client, *ledger.LedgerService) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	svc := ledger.NewLedgerService(ledger.NewMemoryStore())
	gs := NewGRPCServer(NewServer(svc), ServerOptions{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		IPAllowlist: allow,
	})
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	c, err := Dial(context.Background(), "bufnet", nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	for _, name := range []string{"Checking", "Savings"} {
		_, err := svc.CreateAccount(context.Background(), ledger.AccountFields{Name: name, Type: "bank"})
		require.NoError(t, err)
	}
	return c, svc
}

func TestTransactionLifecycle(t *testing.T) {
	c, _ := startLedger(t, nil)
	ctx := context.Background()

	res, err := c.PostTransaction(ctx, "acct_checking", ledgerapi.TransactionFields{
		Date:        str("2024-03-01"),
		Amount:      str("-125.50"),
		Payee:       str("Transfer"),
		CatOrAcctID: str("acct_savings"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Transaction)
	assert.Equal(t, "-125.50", res.Transaction.Amount)
	assert.Equal(t, "/api/transactions/acct_checking/"+res.Transaction.ID, res.Transaction.URI)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "acct_checking", res.Accounts[0].AccountID)
	assert.Equal(t, "-125.50", res.Accounts[0].Uncleared)
	assert.Equal(t, "acct_savings", res.Accounts[1].AccountID)
	assert.Equal(t, "125.50", res.Accounts[1].Uncleared)

	id := res.Transaction.ID
	mirror, err := c.GetTransaction(ctx, "acct_savings", id)
	require.NoError(t, err)
	assert.Equal(t, "125.50", mirror.Amount)
	assert.Equal(t, "acct_checking", mirror.CatOrAcctID)

	res, err = c.UpdateTransaction(ctx, "acct_checking", id, ledgerapi.TransactionFields{Reconciled: str("C"), Memo: str("rent buffer")})
	require.NoError(t, err)
	assert.Equal(t, "C", res.Transaction.Reconciled)
	assert.Equal(t, "-125.50", res.Accounts[0].Cleared)
	assert.Equal(t, "0.00", res.Accounts[1].Cleared)

	listed, err := c.ListTransactions(ctx, "acct_savings", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "rent buffer", listed[0].Memo)

	verify, err := c.Verify(ctx, "")
	require.NoError(t, err)
	assert.True(t, verify.Valid)
	assert.Len(t, verify.Results, 4)

	res, err = c.DeleteTransaction(ctx, "acct_checking", id)
	require.NoError(t, err)
	assert.Nil(t, res.Transaction)
	require.Len(t, res.Accounts, 2)
	assert.Equal(t, "0.00", res.Accounts[0].Uncleared)
	assert.Equal(t, "0.00", res.Accounts[0].Cleared)
	assert.Equal(t, "0.00", res.Accounts[1].Uncleared)

	_, err = c.GetTransaction(ctx, "acct_savings", id)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestErrorCodes(t *testing.T) {
	c, _ := startLedger(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"unknown account", func() error {
			_, err := c.PostTransaction(ctx, "acct_nope", ledgerapi.TransactionFields{Date: str("2024-03-01"), Amount: str("1")})
			return err
		}, codes.NotFound},
		{"missing transfer account", func() error {
			_, err := c.PostTransaction(ctx, "acct_checking", ledgerapi.TransactionFields{Date: str("2024-03-01"), Amount: str("1"), CatOrAcctID: str("acct_nope")})
			return err
		}, codes.FailedPrecondition},
		{"missing amount", func() error {
			_, err := c.PostTransaction(ctx, "acct_checking", ledgerapi.TransactionFields{Date: str("2024-03-01")})
			return err
		}, codes.InvalidArgument},
		{"bad tier", func() error {
			_, err := c.PostTransaction(ctx, "acct_checking", ledgerapi.TransactionFields{Date: str("2024-03-01"), Amount: str("1"), Reconciled: str("Z")})
			return err
		}, codes.InvalidArgument},
		{"exponent amount", func() error {
			_, err := c.PostTransaction(ctx, "acct_checking", ledgerapi.TransactionFields{Date: str("2024-03-01"), Amount: str("1e99999999")})
			return err
		}, codes.InvalidArgument},
		{"missing account id", func() error {
			_, err := c.DeleteTransaction(ctx, "", "t1")
			return err
		}, codes.InvalidArgument},
		{"unknown transaction", func() error {
			_, err := c.UpdateTransaction(ctx, "acct_checking", "missing", ledgerapi.TransactionFields{Memo: str("x")})
			return err
		}, codes.NotFound},
		{"empty log", func() error {
			_, err := c.ListTransactions(ctx, "acct_checking", "", "")
			return err
		}, codes.NotFound},
		{"bad date bound", func() error {
			_, err := c.ListTransactions(ctx, "acct_checking", "03/01/2024", "")
			return err
		}, codes.InvalidArgument},
		{"verify unknown account", func() error {
			_, err := c.Verify(ctx, "acct_nope")
			return err
		}, codes.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, status.Code(tc.call()))
		})
	}
}

func TestAllowlistDeniesUnknownPeers(t *testing.T) {
	allow, err := security.ParseCIDRAllowlist([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	c, _ := startLedger(t, allow)

	_, err = c.Verify(context.Background(), "")
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestCorrelationInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: ledgerapi.Ledger_Verify_FullMethodName}

	var seen string
	handler := func(ctx context.Context, req any) (any, error) {
		seen = security.CorrelationIDFromContext(ctx)
		return nil, nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(correlationIDKey, "req-42"))
	_, err := correlationInterceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)

	_, err = correlationInterceptor(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: acct_x", ledger.ErrAccountNotFound), codes.NotFound},
		{ledger.ErrTransactionNotFound, codes.NotFound},
		{ledger.ErrEmptyResult, codes.NotFound},
		{ledger.ErrTransferAccountNotFound, codes.FailedPrecondition},
		{&ledger.FieldError{Field: "date", Reason: "bad"}, codes.InvalidArgument},
		{ledger.ErrAccountExists, codes.AlreadyExists},
		{ledger.ErrConcurrentModification, codes.Aborted},
		{status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, status.Code(toStatus(tc.err)), tc.err.Error())
	}

	st, _ := status.FromError(toStatus(errors.New("disk on fire")))
	assert.Equal(t, "internal error", st.Message())
	assert.NoError(t, toStatus(nil))
}
