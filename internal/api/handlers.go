package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/internal/security"
)

type transactionRequest struct {
	Date       *ledger.Date    `json:"date"`
	Type       *string         `json:"type"`
	Payee      *string         `json:"payee"`
	Memo       *string         `json:"memo"`
	Amount     json.RawMessage `json:"amount"`
	Reconciled *ledger.Tier    `json:"reconciled"`
	Target     *ledger.Target  `json:"cat_or_acct_id"`
}

// amount accepts a JSON number or a numeric string.
func (req transactionRequest) amount() (*decimal.Decimal, error) {
	if len(req.Amount) == 0 || string(req.Amount) == "null" {
		return nil, nil
	}
	raw := string(req.Amount)
	if req.Amount[0] == '"' {
		if err := json.Unmarshal(req.Amount, &raw); err != nil {
			return nil, err
		}
	}
	d, err := ledger.ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (req transactionRequest) fields() (ledger.TransactionFields, error) {
	var f ledger.TransactionFields
	amt, err := req.amount()
	if err != nil {
		return f, err
	}
	if req.Date == nil || amt == nil {
		return f, fmt.Errorf("%w: date and amount are required", ledger.ErrInvalidFieldValue)
	}
	f.Date = *req.Date
	f.Amount = *amt
	if req.Type != nil {
		f.Type = *req.Type
	}
	if req.Payee != nil {
		f.Payee = *req.Payee
	}
	if req.Memo != nil {
		f.Memo = *req.Memo
	}
	if req.Reconciled != nil {
		f.Reconciled = *req.Reconciled
	}
	if req.Target != nil {
		f.Target = *req.Target
	}
	return f, nil
}

func (req transactionRequest) patch() (ledger.TransactionPatch, error) {
	amt, err := req.amount()
	if err != nil {
		return ledger.TransactionPatch{}, err
	}
	return ledger.TransactionPatch{
		Date:       req.Date,
		Type:       req.Type,
		Payee:      req.Payee,
		Memo:       req.Memo,
		Amount:     amt,
		Reconciled: req.Reconciled,
		Target:     req.Target,
	}, nil
}

type accountRequest struct {
	Name            *string `json:"name"`
	Type            *string `json:"type"`
	BankName        *string `json:"bank_name"`
	AccountNum      *string `json:"account_num"`
	BudgetMonitored *bool   `json:"budget_monitored"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDecodeError(w, r, err)
		return false
	}
	return true
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *ledger.FieldError
	if errors.As(err, &fe) {
		security.WriteFieldError(w, r, fe.Field, err.Error())
		return
	}
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		status, code = http.StatusBadRequest, "invalid_json"
	}
	security.WriteJSONError(w, r, status, code, err.Error())
}

// dateParam reads an optional YYYY-MM-DD query parameter.
func dateParam(r *http.Request, name string) (*ledger.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func handleListTransactions(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts ledger.ListOptions
		var err error
		if opts.From, err = dateParam(r, "fromDate"); err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		if opts.To, err = dateParam(r, "toDate"); err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}

		txs, err := deps.LedgerReader.ListTransactions(r.Context(), chi.URLParam(r, "account_id"), opts)
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"transactions": txs})
	}
}

func handleGetTransaction(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := deps.LedgerReader.GetTransaction(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "trans_id"))
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"transaction": t})
	}
}

func handlePostTransaction(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		f, err := req.fields()
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}

		res, err := deps.LedgerWriter.PostTransaction(r.Context(), chi.URLParam(r, "account_id"), f)
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, res)
	}
}

func handleUpdateTransaction(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		patch, err := req.patch()
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}

		res, err := deps.LedgerWriter.UpdateTransaction(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "trans_id"), patch)
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, res)
	}
}

func handleDeleteTransaction(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := deps.LedgerWriter.DeleteTransaction(r.Context(), chi.URLParam(r, "account_id"), chi.URLParam(r, "trans_id"))
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"accounts": res.Accounts})
	}
}

func handleListAccounts(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accts, err := deps.LedgerReader.ListAccounts(r.Context())
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"accounts": accts})
	}
}

func handleGetAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := deps.LedgerReader.GetAccount(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"account": a})
	}
}

func handleCreateAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accountRequest
		if !decodeBody(w, r, &req) {
			return
		}
		f := ledger.AccountFields{}
		if req.Name != nil {
			f.Name = *req.Name
		}
		if req.Type != nil {
			f.Type = *req.Type
		}
		if req.BankName != nil {
			f.BankName = *req.BankName
		}
		if req.AccountNum != nil {
			f.AccountNum = *req.AccountNum
		}
		if req.BudgetMonitored != nil {
			f.BudgetMonitored = *req.BudgetMonitored
		}

		a, err := deps.LedgerWriter.CreateAccount(r.Context(), f)
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, map[string]any{"account": a})
	}
}

func handleUpdateAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accountRequest
		if !decodeBody(w, r, &req) {
			return
		}

		a, err := deps.LedgerWriter.UpdateAccount(r.Context(), chi.URLParam(r, "id"), ledger.AccountPatch{
			Name:            req.Name,
			Type:            req.Type,
			BankName:        req.BankName,
			AccountNum:      req.AccountNum,
			BudgetMonitored: req.BudgetMonitored,
		})
		if err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"account": a})
	}
}

func handleDeleteAccount(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.LedgerWriter.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeLedgerError(w, r, deps.Logger, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{"result": true})
	}
}
