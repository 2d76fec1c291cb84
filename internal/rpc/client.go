package rpc

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	ledgerapi "github.com/example/abacus/api/ledger"
)

// Client is a typed client for the Ledger RPC service.
type Client struct {
	conn   *grpc.ClientConn
	ledger ledgerapi.LedgerClient
}

// Dial connects to addr. A nil tlsCfg dials without transport security.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config, opts ...grpc.DialOption) (*Client, error) {
	creds := insecure.NewCredentials()
	if tlsCfg != nil {
		creds = credentials.NewTLS(tlsCfg)
	}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
		grpc.WithUnaryInterceptor(propagateCorrelationID),
	}, opts...)

	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger at %s: %w", addr, err)
	}
	return &Client{conn: conn, ledger: ledgerapi.NewLedgerClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) PostTransaction(ctx context.Context, accountID string, fields ledgerapi.TransactionFields) (*ledgerapi.MutationResponse, error) {
	return c.ledger.PostTransaction(ctx, &ledgerapi.PostTransactionRequest{AccountID: accountID, Fields: fields})
}

func (c *Client) UpdateTransaction(ctx context.Context, accountID, transID string, fields ledgerapi.TransactionFields) (*ledgerapi.MutationResponse, error) {
	return c.ledger.UpdateTransaction(ctx, &ledgerapi.UpdateTransactionRequest{AccountID: accountID, TransactionID: transID, Fields: fields})
}

func (c *Client) DeleteTransaction(ctx context.Context, accountID, transID string) (*ledgerapi.MutationResponse, error) {
	return c.ledger.DeleteTransaction(ctx, &ledgerapi.DeleteTransactionRequest{AccountID: accountID, TransactionID: transID})
}

func (c *Client) ListTransactions(ctx context.Context, accountID, fromDate, toDate string) ([]*ledgerapi.Transaction, error) {
	resp, err := c.ledger.ListTransactions(ctx, &ledgerapi.ListTransactionsRequest{AccountID: accountID, FromDate: fromDate, ToDate: toDate})
	if err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) GetTransaction(ctx context.Context, accountID, transID string) (*ledgerapi.Transaction, error) {
	resp, err := c.ledger.GetTransaction(ctx, &ledgerapi.GetTransactionRequest{AccountID: accountID, TransactionID: transID})
	if err != nil {
		return nil, err
	}
	return resp.Transaction, nil
}

// Verify runs the consistency checks for one account, or all when accountID is empty.
func (c *Client) Verify(ctx context.Context, accountID string) (*ledgerapi.VerifyResponse, error) {
	return c.ledger.Verify(ctx, &ledgerapi.VerifyRequest{AccountID: accountID})
}
