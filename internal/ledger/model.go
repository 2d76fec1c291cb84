package ledger

import (
	"github.com/shopspring/decimal"
)

// Balances are the three running figures every account carries.
// Uncleared accumulates every transaction regardless of tier.
type Balances struct {
	Uncleared  decimal.Decimal `json:"bal_uncleared"`
	Cleared    decimal.Decimal `json:"bal_cleared"`
	Reconciled decimal.Decimal `json:"bal_reconciled"`
}

func (b Balances) Equal(o Balances) bool {
	return b.Uncleared.Equal(o.Uncleared) && b.Cleared.Equal(o.Cleared) && b.Reconciled.Equal(o.Reconciled)
}

// Account is one account record.
type Account struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	BankName   string `json:"bank_name"`
	AccountNum string `json:"account_num"`
	Balances
	BudgetMonitored bool   `json:"budget_monitored"`
	URI             string `json:"uri,omitempty"`
}

func (a *Account) clone() *Account {
	c := *a
	return &c
}

// Snapshot reports an account's balances after a mutation.
type Snapshot struct {
	AccountID string `json:"-"`
	URI       string `json:"uri"`
	Balances
}

func snapshotOf(a *Account) Snapshot {
	return Snapshot{AccountID: a.ID, URI: AccountURI(a.ID), Balances: a.Balances}
}

// Transaction is one entry in an account's log. The two legs of a transfer
// share the same ID.
type Transaction struct {
	ID         string          `json:"id"`
	Date       Date            `json:"date"`
	Type       string          `json:"type"`
	Payee      string          `json:"payee"`
	Memo       string          `json:"memo"`
	Amount     decimal.Decimal `json:"amount"`
	Reconciled Tier            `json:"reconciled"`
	Target     Target          `json:"cat_or_acct_id"`
	URI        string          `json:"uri,omitempty"`
}

func (t *Transaction) clone() *Transaction {
	c := *t
	return &c
}

// TransactionFields are the caller-supplied fields of a new transaction.
type TransactionFields struct {
	Date       Date
	Type       string
	Payee      string
	Memo       string
	Amount     decimal.Decimal
	Reconciled Tier
	Target     Target
}

// TransactionPatch carries the fields of an update; nil fields keep their stored value.
type TransactionPatch struct {
	Date       *Date
	Type       *string
	Payee      *string
	Memo       *string
	Amount     *decimal.Decimal
	Reconciled *Tier
	Target     *Target
}

func (p TransactionPatch) apply(t *Transaction) *Transaction {
	out := t.clone()
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Payee != nil {
		out.Payee = *p.Payee
	}
	if p.Memo != nil {
		out.Memo = *p.Memo
	}
	if p.Amount != nil {
		out.Amount = round2(*p.Amount)
	}
	if p.Reconciled != nil {
		out.Reconciled = *p.Reconciled
	}
	if p.Target != nil {
		out.Target = *p.Target
	}
	return out
}

// AccountFields are the caller-supplied fields of a new account.
type AccountFields struct {
	Name            string
	Type            string
	BankName        string
	AccountNum      string
	BudgetMonitored bool
}

// AccountPatch updates the descriptive fields of an account. Balances are not
// writable from outside the ledger.
type AccountPatch struct {
	Name            *string
	Type            *string
	BankName        *string
	AccountNum      *string
	BudgetMonitored *bool
}

func (p AccountPatch) apply(a *Account) *Account {
	out := a.clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.BankName != nil {
		out.BankName = *p.BankName
	}
	if p.AccountNum != nil {
		out.AccountNum = *p.AccountNum
	}
	if p.BudgetMonitored != nil {
		out.BudgetMonitored = *p.BudgetMonitored
	}
	return out
}

// Result is returned by every transaction mutation. Accounts lists the fresh
// balances of every account whose figures changed, the addressed account first.
type Result struct {
	Transaction *Transaction `json:"transaction,omitempty"`
	Accounts    []Snapshot   `json:"accounts"`
}

// AccountURI is the display uri of an account.
func AccountURI(accountID string) string {
	return "/api/accounts/" + accountID
}

// TransactionURI is the display uri of a transaction in an account's log.
func TransactionURI(accountID, transID string) string {
	return "/api/transactions/" + accountID + "/" + transID
}
