package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// AccountIDPrefix marks an identifier as naming an account rather than a category.
const AccountIDPrefix = "acct_"

// IsAccountID reports whether id carries the account prefix.
func IsAccountID(id string) bool {
	return strings.HasPrefix(id, AccountIDPrefix)
}

// AccountIDFromName derives the stable account id for a display name:
// punctuation and whitespace are dropped and the rest is lowercased.
func AccountIDFromName(name string) string {
	var b strings.Builder
	b.WriteString(AccountIDPrefix)
	for _, r := range name {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Target is the cat_or_acct_id of a transaction: either a category reference
// or a reference to another account, in which case the transaction is a transfer.
// The zero value is an empty category reference.
type Target struct {
	id      string
	account bool
}

func CategoryRef(id string) Target { return Target{id: id} }

func AccountRef(id string) Target { return Target{id: id, account: true} }

// ResolveTarget classifies a raw identifier once, at the boundary.
func ResolveTarget(raw string) Target {
	if IsAccountID(raw) {
		return AccountRef(raw)
	}
	return CategoryRef(raw)
}

func (t Target) ID() string { return t.id }

func (t Target) IsAccount() bool { return t.account }

// AccountID returns the counter-account id when t is an account reference.
func (t Target) AccountID() (string, bool) {
	if !t.account {
		return "", false
	}
	return t.id, true
}

func (t Target) String() string {
	return t.id
}

func (t Target) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.id)
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return invalidField("cat_or_acct_id", string(b), "not a string")
	}
	*t = ResolveTarget(raw)
	return nil
}

func (t Target) Value() (driver.Value, error) {
	return t.id, nil
}

func (t *Target) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*t = ResolveTarget(v)
	case []byte:
		*t = ResolveTarget(string(v))
	case nil:
		*t = Target{}
	default:
		return fmt.Errorf("cannot scan %T into Target", src)
	}
	return nil
}
