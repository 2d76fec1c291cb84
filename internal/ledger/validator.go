package ledger

import (
	"context"
	"fmt"
	"time"
)

// Validator checks ledger invariants against stored data.
type Validator struct {
	ledger *LedgerService
}

// NewValidator creates a new validator instance
func NewValidator(ledger *LedgerService) *Validator {
	return &Validator{ledger: ledger}
}

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	IsValid        bool           `json:"is_valid"`
	ValidationType string         `json:"validation_type"`
	Message        string         `json:"message"`
	AccountID      string         `json:"account_id,omitempty"`
	TransactionID  string         `json:"transaction_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Details        map[string]any `json:"details,omitempty"`
}

func failed(kind, accountID, format string, args ...any) *ValidationResult {
	return &ValidationResult{
		IsValid:        false,
		ValidationType: kind,
		Message:        fmt.Sprintf(format, args...),
		AccountID:      accountID,
		Timestamp:      time.Now(),
	}
}

// ValidateAccountBalanceConsistency replays the account's whole log from zero
// and compares the result with the stored balances.
func (v *Validator) ValidateAccountBalanceConsistency(ctx context.Context, accountID string) *ValidationResult {
	const kind = "balance_consistency"

	unlock := v.ledger.locks.RLock(accountID)
	defer unlock()

	var acct *Account
	var entries []*Transaction
	err := v.ledger.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		if acct, err = tx.Accounts().Get(ctx, accountID); err != nil {
			return err
		}
		entries, err = tx.Log(accountID).Query(ctx, Query{})
		return err
	})
	if err != nil {
		return failed(kind, accountID, "failed to read account: %v", err)
	}

	var expected Balances
	for _, t := range entries {
		expected = ApplyCreate(expected, t.Amount, t.Reconciled)
	}

	details := map[string]any{
		"transactions":        len(entries),
		"stored_uncleared":    acct.Uncleared.StringFixed(2),
		"stored_cleared":      acct.Cleared.StringFixed(2),
		"stored_reconciled":   acct.Reconciled.StringFixed(2),
		"expected_uncleared":  expected.Uncleared.StringFixed(2),
		"expected_cleared":    expected.Cleared.StringFixed(2),
		"expected_reconciled": expected.Reconciled.StringFixed(2),
	}
	if !expected.Equal(acct.Balances) {
		res := failed(kind, accountID, "balances do not match the transaction log")
		res.Details = details
		return res
	}
	return &ValidationResult{
		IsValid:        true,
		ValidationType: kind,
		Message:        fmt.Sprintf("balances are consistent over %d transactions", len(entries)),
		AccountID:      accountID,
		Timestamp:      time.Now(),
		Details:        details,
	}
}

// ValidateTransferSymmetry checks that every transfer in the account's log has
// a mirror with the same id, the negated amount, the same payee and memo and a
// target pointing back. One result is returned per broken pair, or a single
// passing result.
func (v *Validator) ValidateTransferSymmetry(ctx context.Context, accountID string) []*ValidationResult {
	const kind = "transfer_symmetry"

	counters, err := v.counterAccounts(ctx, accountID)
	if err != nil {
		return []*ValidationResult{failed(kind, accountID, "failed to read account log: %v", err)}
	}

	unlock := v.ledger.locks.RLockAll(append(counters, accountID)...)
	defer unlock()

	var results []*ValidationResult
	checked := 0
	err = v.ledger.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		entries, err := tx.Log(accountID).Query(ctx, Query{})
		if err != nil {
			return err
		}
		for _, t := range entries {
			counterID, ok := t.Target.AccountID()
			if !ok {
				continue
			}
			checked++
			mirror, err := tx.Log(counterID).Get(ctx, t.ID)
			if err != nil {
				res := failed(kind, accountID, "mirror missing in %s: %v", counterID, err)
				res.TransactionID = t.ID
				results = append(results, res)
				continue
			}
			if problem := mirrorMismatch(accountID, t, mirror); problem != "" {
				res := failed(kind, accountID, "mirror in %s %s", counterID, problem)
				res.TransactionID = t.ID
				results = append(results, res)
			}
		}
		return nil
	})
	if err != nil {
		return []*ValidationResult{failed(kind, accountID, "failed to read account log: %v", err)}
	}
	if len(results) > 0 {
		return results
	}
	return []*ValidationResult{{
		IsValid:        true,
		ValidationType: kind,
		Message:        fmt.Sprintf("%d transfers are mirrored", checked),
		AccountID:      accountID,
		Timestamp:      time.Now(),
	}}
}

func mirrorMismatch(accountID string, t, mirror *Transaction) string {
	switch {
	case !mirror.Amount.Equal(t.Amount.Neg()):
		return fmt.Sprintf("has amount %s, want %s", mirror.Amount.StringFixed(2), t.Amount.Neg().StringFixed(2))
	case mirror.Target != AccountRef(accountID):
		return fmt.Sprintf("points at %q", mirror.Target.ID())
	case mirror.Payee != t.Payee:
		return fmt.Sprintf("has payee %q, want %q", mirror.Payee, t.Payee)
	case mirror.Memo != t.Memo:
		return fmt.Sprintf("has memo %q, want %q", mirror.Memo, t.Memo)
	}
	return ""
}

func (v *Validator) counterAccounts(ctx context.Context, accountID string) ([]string, error) {
	unlock := v.ledger.locks.RLock(accountID)
	defer unlock()

	var ids []string
	err := v.ledger.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		entries, err := tx.Log(accountID).Query(ctx, Query{})
		if err != nil {
			return err
		}
		for _, t := range entries {
			if id, ok := t.Target.AccountID(); ok {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return LockOrder(ids...), err
}

// ComprehensiveValidation runs every check over every account.
func (v *Validator) ComprehensiveValidation(ctx context.Context) ([]*ValidationResult, error) {
	var accounts []*Account
	err := v.ledger.store.Atomic(ctx, nil, func(ctx context.Context, tx Tx) error {
		var err error
		accounts, err = tx.Accounts().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var results []*ValidationResult
	for _, a := range LockOrderAccounts(accounts) {
		results = append(results, v.ValidateAccountBalanceConsistency(ctx, a))
		results = append(results, v.ValidateTransferSymmetry(ctx, a)...)
	}
	return results, nil
}

// LockOrderAccounts returns the ids of accounts in LockOrder.
func LockOrderAccounts(accounts []*Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return LockOrder(ids...)
}
