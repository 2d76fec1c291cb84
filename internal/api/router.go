package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/internal/security"
	"github.com/example/abacus/pkg/audit"
)

type Auditor interface {
	Append(payload string) *audit.LogEntry
}

type Dependencies struct {
	Logger *slog.Logger

	LedgerReader interface {
		ListTransactions(ctx context.Context, accountID string, opts ledger.ListOptions) ([]*ledger.Transaction, error)
		GetTransaction(ctx context.Context, accountID, transID string) (*ledger.Transaction, error)
		ListAccounts(ctx context.Context) ([]*ledger.Account, error)
		GetAccount(ctx context.Context, id string) (*ledger.Account, error)
	}
	LedgerWriter interface {
		PostTransaction(ctx context.Context, accountID string, f ledger.TransactionFields) (*ledger.Result, error)
		UpdateTransaction(ctx context.Context, accountID, transID string, patch ledger.TransactionPatch) (*ledger.Result, error)
		DeleteTransaction(ctx context.Context, accountID, transID string) (*ledger.Result, error)
		CreateAccount(ctx context.Context, f ledger.AccountFields) (*ledger.Account, error)
		UpdateAccount(ctx context.Context, id string, patch ledger.AccountPatch) (*ledger.Account, error)
		DeleteAccount(ctx context.Context, id string) error
	}

	Auditor      Auditor
	RateLimiter  *security.RedisTokenBucket
	IPAllowlist  security.Allowlist
	MaxBodyBytes int64
}

func NewRouter(deps Dependencies) (http.Handler, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	createAccountV, err := security.NewJSONSchemaValidator(createAccountSchema)
	if err != nil {
		return nil, err
	}
	updateAccountV, err := security.NewJSONSchemaValidator(updateAccountSchema)
	if err != nil {
		return nil, err
	}
	postTxV, err := security.NewJSONSchemaValidator(postTransactionSchema)
	if err != nil {
		return nil, err
	}
	updateTxV, err := security.NewJSONSchemaValidator(updateTransactionSchema)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))
	r.Use(security.IPAllowlist(deps.IPAllowlist))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter, security.LedgerKey))
	}
	if deps.Auditor != nil {
		r.Use(AuditMiddleware(deps.Auditor))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", handleListAccounts(deps))
			r.With(createAccountV.Middleware).Post("/", handleCreateAccount(deps))

			r.Get("/{id}", handleGetAccount(deps))
			r.With(updateAccountV.Middleware).Put("/{id}", handleUpdateAccount(deps))
			r.Delete("/{id}", handleDeleteAccount(deps))
		})

		r.Route("/transactions/{account_id}", func(r chi.Router) {
			r.Get("/", handleListTransactions(deps))
			r.With(postTxV.Middleware).Post("/", handlePostTransaction(deps))

			r.Get("/{trans_id}", handleGetTransaction(deps))
			r.With(updateTxV.Middleware).Put("/{trans_id}", handleUpdateTransaction(deps))
			r.Delete("/{trans_id}", handleDeleteTransaction(deps))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found", "")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	return r, nil
}
