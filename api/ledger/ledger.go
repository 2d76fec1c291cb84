// Package ledger holds the wire messages and service descriptor of the
// abacus.ledger.v1.Ledger RPC service. Messages travel as JSON.
package ledger

// Amounts are decimal strings with two places so no precision is lost on the wire.

type TransactionFields struct {
	Date        *string `json:"date,omitempty"`
	Type        *string `json:"type,omitempty"`
	Payee       *string `json:"payee,omitempty"`
	Memo        *string `json:"memo,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	Reconciled  *string `json:"reconciled,omitempty"`
	CatOrAcctID *string `json:"cat_or_acct_id,omitempty"`
}

type Transaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Payee       string `json:"payee"`
	Memo        string `json:"memo"`
	Amount      string `json:"amount"`
	Reconciled  string `json:"reconciled"`
	CatOrAcctID string `json:"cat_or_acct_id"`
	URI         string `json:"uri,omitempty"`
}

type AccountBalances struct {
	AccountID  string `json:"account_id"`
	URI        string `json:"uri"`
	Uncleared  string `json:"bal_uncleared"`
	Cleared    string `json:"bal_cleared"`
	Reconciled string `json:"bal_reconciled"`
}

type PostTransactionRequest struct {
	AccountID string            `json:"account_id"`
	Fields    TransactionFields `json:"fields"`
}

type UpdateTransactionRequest struct {
	AccountID     string            `json:"account_id"`
	TransactionID string            `json:"transaction_id"`
	Fields        TransactionFields `json:"fields"`
}

type DeleteTransactionRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
}

// MutationResponse carries the affected transaction (absent on delete) and
// the balances of every account the mutation touched.
type MutationResponse struct {
	Transaction *Transaction       `json:"transaction,omitempty"`
	Accounts    []*AccountBalances `json:"accounts"`
}

type ListTransactionsRequest struct {
	AccountID string `json:"account_id"`
	FromDate  string `json:"from_date,omitempty"`
	ToDate    string `json:"to_date,omitempty"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type GetTransactionRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
}

type GetTransactionResponse struct {
	Transaction *Transaction `json:"transaction"`
}

// VerifyRequest checks one account, or every account when AccountID is empty.
type VerifyRequest struct {
	AccountID string `json:"account_id,omitempty"`
}

type ValidationResult struct {
	IsValid        bool              `json:"is_valid"`
	ValidationType string            `json:"validation_type"`
	Message        string            `json:"message"`
	AccountID      string            `json:"account_id,omitempty"`
	TransactionID  string            `json:"transaction_id,omitempty"`
	Timestamp      string            `json:"timestamp"`
	Details        map[string]string `json:"details,omitempty"`
}

type VerifyResponse struct {
	Valid   bool                `json:"valid"`
	Results []*ValidationResult `json:"results"`
}
