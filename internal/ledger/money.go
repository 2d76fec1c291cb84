package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts and balances travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// maxAmountDigits bounds the textual form of an amount before it is parsed.
const maxAmountDigits = 32

// amountLimit is the first magnitude a NUMERIC(14, 2) column cannot hold.
var amountLimit = decimal.New(1, 12)

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a signed currency value and rounds it to two places.
// Exponent notation is refused, and so is any value of 10^12 or more.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if strings.ContainsAny(raw, "eE") {
		return decimal.Zero, invalidField("amount", s, "exponent notation is not accepted")
	}
	if len(strings.TrimLeft(raw, "+-")) > maxAmountDigits {
		return decimal.Zero, invalidField("amount", s, "too many digits")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidField("amount", s, "not a decimal number")
	}
	d = round2(d)
	if d.Abs().GreaterThanOrEqual(amountLimit) {
		return decimal.Zero, invalidField("amount", s, "out of range")
	}
	return d, nil
}
