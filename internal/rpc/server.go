package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	ledgerapi "github.com/example/abacus/api/ledger"
	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/internal/security"
)

const maxMessageBytes = 1024 * 1024

// Server implements the Ledger RPC service on top of a LedgerService.
type Server struct {
	ledgerapi.UnimplementedLedgerServer

	ledger    *ledger.LedgerService
	validator *ledger.Validator
}

func NewServer(ls *ledger.LedgerService) *Server {
	return &Server{ledger: ls, validator: ledger.NewValidator(ls)}
}

// ServerOptions configures the grpc.Server built by NewGRPCServer.
type ServerOptions struct {
	Logger      *slog.Logger
	IPAllowlist security.Allowlist
	TLS         *tls.Config
}

// NewGRPCServer builds a grpc.Server with the interceptor chain and registers srv on it.
func NewGRPCServer(srv *Server, opts ServerOptions) *grpc.Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	serverOpts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
		grpc.ChainUnaryInterceptor(
			correlationInterceptor,
			loggingInterceptor(opts.Logger),
			allowlistInterceptor(opts.IPAllowlist),
		),
	}
	if opts.TLS != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(opts.TLS)))
	}

	gs := grpc.NewServer(serverOpts...)
	ledgerapi.RegisterLedgerServer(gs, srv)
	return gs
}

func (s *Server) PostTransaction(ctx context.Context, req *ledgerapi.PostTransactionRequest) (*ledgerapi.MutationResponse, error) {
	if req.AccountID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id is required")
	}
	f, err := toFields(req.Fields)
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := s.ledger.PostTransaction(ctx, req.AccountID, f)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromResult(res), nil
}

func (s *Server) UpdateTransaction(ctx context.Context, req *ledgerapi.UpdateTransactionRequest) (*ledgerapi.MutationResponse, error) {
	if req.AccountID == "" || req.TransactionID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id and transaction_id are required")
	}
	patch, err := toPatch(req.Fields)
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := s.ledger.UpdateTransaction(ctx, req.AccountID, req.TransactionID, patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromResult(res), nil
}

func (s *Server) DeleteTransaction(ctx context.Context, req *ledgerapi.DeleteTransactionRequest) (*ledgerapi.MutationResponse, error) {
	if req.AccountID == "" || req.TransactionID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id and transaction_id are required")
	}

	res, err := s.ledger.DeleteTransaction(ctx, req.AccountID, req.TransactionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return fromResult(res), nil
}

func (s *Server) ListTransactions(ctx context.Context, req *ledgerapi.ListTransactionsRequest) (*ledgerapi.ListTransactionsResponse, error) {
	var opts ledger.ListOptions
	var err error
	if opts.From, err = optionalDate(req.FromDate); err != nil {
		return nil, toStatus(err)
	}
	if opts.To, err = optionalDate(req.ToDate); err != nil {
		return nil, toStatus(err)
	}

	txs, err := s.ledger.ListTransactions(ctx, req.AccountID, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ledgerapi.ListTransactionsResponse{Transactions: make([]*ledgerapi.Transaction, len(txs))}
	for i, t := range txs {
		out.Transactions[i] = fromTransaction(t)
	}
	return out, nil
}

func (s *Server) GetTransaction(ctx context.Context, req *ledgerapi.GetTransactionRequest) (*ledgerapi.GetTransactionResponse, error) {
	t, err := s.ledger.GetTransaction(ctx, req.AccountID, req.TransactionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ledgerapi.GetTransactionResponse{Transaction: fromTransaction(t)}, nil
}

func (s *Server) Verify(ctx context.Context, req *ledgerapi.VerifyRequest) (*ledgerapi.VerifyResponse, error) {
	var results []*ledger.ValidationResult
	if req.AccountID == "" {
		var err error
		if results, err = s.validator.ComprehensiveValidation(ctx); err != nil {
			return nil, toStatus(err)
		}
	} else {
		if _, err := s.ledger.GetAccount(ctx, req.AccountID); err != nil {
			return nil, toStatus(err)
		}
		results = append(results, s.validator.ValidateAccountBalanceConsistency(ctx, req.AccountID))
		results = append(results, s.validator.ValidateTransferSymmetry(ctx, req.AccountID)...)
	}

	out := &ledgerapi.VerifyResponse{Valid: true}
	for _, r := range results {
		out.Valid = out.Valid && r.IsValid
		out.Results = append(out.Results, fromValidation(r))
	}
	return out, nil
}

func toFields(in ledgerapi.TransactionFields) (ledger.TransactionFields, error) {
	var f ledger.TransactionFields
	if in.Date == nil {
		return f, fmt.Errorf("%w: date is required", ledger.ErrInvalidFieldValue)
	}
	if in.Amount == nil {
		return f, fmt.Errorf("%w: amount is required", ledger.ErrInvalidFieldValue)
	}
	patch, err := toPatch(in)
	if err != nil {
		return f, err
	}

	f.Date = *patch.Date
	f.Amount = *patch.Amount
	if patch.Type != nil {
		f.Type = *patch.Type
	}
	if patch.Payee != nil {
		f.Payee = *patch.Payee
	}
	if patch.Memo != nil {
		f.Memo = *patch.Memo
	}
	if patch.Reconciled != nil {
		f.Reconciled = *patch.Reconciled
	}
	if patch.Target != nil {
		f.Target = *patch.Target
	}
	return f, nil
}

func toPatch(in ledgerapi.TransactionFields) (ledger.TransactionPatch, error) {
	p := ledger.TransactionPatch{
		Type:  in.Type,
		Payee: in.Payee,
		Memo:  in.Memo,
	}
	if in.Date != nil {
		d, err := ledger.ParseDate(*in.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if in.Amount != nil {
		amt, err := ledger.ParseAmount(*in.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amt
	}
	if in.Reconciled != nil {
		tier, err := ledger.ParseTier(*in.Reconciled)
		if err != nil {
			return p, err
		}
		p.Reconciled = &tier
	}
	if in.CatOrAcctID != nil {
		target := ledger.ResolveTarget(*in.CatOrAcctID)
		p.Target = &target
	}
	return p, nil
}

func optionalDate(s string) (*ledger.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func amountString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func fromTransaction(t *ledger.Transaction) *ledgerapi.Transaction {
	if t == nil {
		return nil
	}
	return &ledgerapi.Transaction{
		ID:          t.ID,
		Date:        t.Date.String(),
		Type:        t.Type,
		Payee:       t.Payee,
		Memo:        t.Memo,
		Amount:      amountString(t.Amount),
		Reconciled:  t.Reconciled.Code(),
		CatOrAcctID: t.Target.ID(),
		URI:         t.URI,
	}
}

func fromResult(res *ledger.Result) *ledgerapi.MutationResponse {
	out := &ledgerapi.MutationResponse{Transaction: fromTransaction(res.Transaction)}
	for _, s := range res.Accounts {
		out.Accounts = append(out.Accounts, &ledgerapi.AccountBalances{
			AccountID:  s.AccountID,
			URI:        s.URI,
			Uncleared:  amountString(s.Uncleared),
			Cleared:    amountString(s.Cleared),
			Reconciled: amountString(s.Reconciled),
		})
	}
	return out
}

func fromValidation(r *ledger.ValidationResult) *ledgerapi.ValidationResult {
	out := &ledgerapi.ValidationResult{
		IsValid:        r.IsValid,
		ValidationType: r.ValidationType,
		Message:        r.Message,
		AccountID:      r.AccountID,
		TransactionID:  r.TransactionID,
		Timestamp:      r.Timestamp.Format(time.RFC3339),
	}
	if len(r.Details) > 0 {
		out.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			out.Details[k] = fmt.Sprint(v)
		}
	}
	return out
}
