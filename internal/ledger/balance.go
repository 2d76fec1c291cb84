package ledger

import (
	"github.com/shopspring/decimal"
)

// Balance recalculation. Every function here is pure and rounds to two places
// after each arithmetic step.

// ApplyCreate adds a new transaction at the given tier to b.
func ApplyCreate(b Balances, amount decimal.Decimal, tier Tier) Balances {
	b.Uncleared = round2(b.Uncleared.Add(amount))
	if tier.counted() {
		b.Cleared = round2(b.Cleared.Add(amount))
	}
	if tier.settled() {
		b.Reconciled = round2(b.Reconciled.Add(amount))
	}
	return b
}

// ApplyDelete removes a transaction that currently sits at tier from b.
func ApplyDelete(b Balances, amount decimal.Decimal, tier Tier) Balances {
	b.Uncleared = round2(b.Uncleared.Sub(amount))
	if tier.counted() {
		b.Cleared = round2(b.Cleared.Sub(amount))
	}
	if tier.settled() {
		b.Reconciled = round2(b.Reconciled.Sub(amount))
	}
	return b
}

// ApplyAmountChange moves a transaction at tier from oldAmount to newAmount.
func ApplyAmountChange(b Balances, oldAmount, newAmount decimal.Decimal, tier Tier) Balances {
	delta := round2(oldAmount.Sub(newAmount))
	b.Uncleared = round2(b.Uncleared.Sub(delta))
	if tier.counted() {
		b.Cleared = round2(b.Cleared.Sub(delta))
	}
	if tier.settled() {
		b.Reconciled = round2(b.Reconciled.Sub(delta))
	}
	return b
}

// ApplyTransition moves a transaction of amount from one tier to another.
// Uncleared is never touched.
func ApplyTransition(b Balances, amount decimal.Decimal, from, to Tier) Balances {
	if from.counted() != to.counted() {
		if to.counted() {
			b.Cleared = round2(b.Cleared.Add(amount))
		} else {
			b.Cleared = round2(b.Cleared.Sub(amount))
		}
	}
	if from.settled() != to.settled() {
		if to.settled() {
			b.Reconciled = round2(b.Reconciled.Add(amount))
		} else {
			b.Reconciled = round2(b.Reconciled.Sub(amount))
		}
	}
	return b
}

// ApplyEdit folds an update of one stored transaction into b: the amount
// change is applied against the old tier first, then the tier transition with
// the new amount.
func ApplyEdit(b Balances, before, after *Transaction) Balances {
	if !before.Amount.Equal(after.Amount) {
		b = ApplyAmountChange(b, before.Amount, after.Amount, before.Reconciled)
	}
	if before.Reconciled != after.Reconciled {
		b = ApplyTransition(b, after.Amount, before.Reconciled, after.Reconciled)
	}
	return b
}

// touchesBalances reports whether an update from before to after changes any figure.
func touchesBalances(before, after *Transaction) bool {
	return !before.Amount.Equal(after.Amount) || before.Reconciled != after.Reconciled
}
