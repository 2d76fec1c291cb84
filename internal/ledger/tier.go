package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Tier is the reconciliation state of a transaction. Tiers are ordered:
// Uncleared < Cleared < Reconciled.
type Tier int

const (
	Uncleared Tier = iota
	Cleared
	Reconciled
)

// ParseTier maps the wire codes "", "C" and "R" to a Tier. A single space is
// accepted as uncleared.
func ParseTier(code string) (Tier, error) {
	switch code {
	case "", " ":
		return Uncleared, nil
	case "C":
		return Cleared, nil
	case "R":
		return Reconciled, nil
	}
	return Uncleared, invalidField("reconciled", code, `expected "", "C" or "R"`)
}

// Code returns the wire code of t.
func (t Tier) Code() string {
	switch t {
	case Cleared:
		return "C"
	case Reconciled:
		return "R"
	}
	return ""
}

func (t Tier) String() string {
	switch t {
	case Uncleared:
		return "uncleared"
	case Cleared:
		return "cleared"
	case Reconciled:
		return "reconciled"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// counted reports whether a transaction at tier t contributes to bal_cleared.
func (t Tier) counted() bool { return t >= Cleared }

// settled reports whether a transaction at tier t contributes to bal_reconciled.
func (t Tier) settled() bool { return t == Reconciled }

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Code())
}

func (t *Tier) UnmarshalJSON(b []byte) error {
	var code string
	if err := json.Unmarshal(b, &code); err != nil {
		return invalidField("reconciled", string(b), "not a string")
	}
	parsed, err := ParseTier(code)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Tier) Value() (driver.Value, error) {
	return t.Code(), nil
}

func (t *Tier) Scan(src any) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	case nil:
		code = ""
	default:
		return fmt.Errorf("cannot scan %T into Tier", src)
	}
	parsed, err := ParseTier(code)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
