package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/abacus/internal/ledger"
	"github.com/example/abacus/internal/security"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	cid := security.CorrelationIDFromContext(r.Context())
	if cid != "" {
		w.Header().Set(security.CorrelationIDHeader, cid)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a ledger error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound, "transaction_not_found"
	case errors.Is(err, ledger.ErrEmptyResult):
		return http.StatusNotFound, "no_results"
	case errors.Is(err, ledger.ErrTransferAccountNotFound):
		return http.StatusBadRequest, "transfer_account_not_found"
	case errors.Is(err, ledger.ErrInvalidFieldValue):
		return http.StatusBadRequest, "invalid_field_value"
	case errors.Is(err, ledger.ErrAccountExists):
		return http.StatusBadRequest, "account_exists"
	case errors.Is(err, ledger.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeLedgerError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("ledger request failed",
			"cid", security.CorrelationIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = "internal error"
	}
	var fe *ledger.FieldError
	if errors.As(err, &fe) {
		security.WriteFieldError(w, r, fe.Field, msg)
		return
	}
	security.WriteJSONError(w, r, status, code, msg)
}
