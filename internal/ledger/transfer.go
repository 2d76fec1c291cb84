package ledger

import (
	"context"
	"errors"
	"fmt"
)

// MirrorAction is the secondary write an update needs on the counter side of a transfer.
type MirrorAction int

const (
	// MirrorNone: category to category.
	MirrorNone MirrorAction = iota
	// MirrorCreate: category to account.
	MirrorCreate
	// MirrorRemove: account to category.
	MirrorRemove
	// MirrorPatch: the counter-account is unchanged; amount, payee and memo follow the primary.
	MirrorPatch
	// MirrorRelocate: the counter-account changed from one account to another.
	MirrorRelocate
)

func (a MirrorAction) String() string {
	switch a {
	case MirrorNone:
		return "none"
	case MirrorCreate:
		return "create"
	case MirrorRemove:
		return "remove"
	case MirrorPatch:
		return "patch"
	case MirrorRelocate:
		return "relocate"
	}
	return fmt.Sprintf("MirrorAction(%d)", int(a))
}

// MirrorPlan says what happens to the mirror when a transaction goes from one
// state to another. From is the counter-account that loses or keeps the
// mirror, To the one that gains or keeps it.
type MirrorPlan struct {
	Action MirrorAction
	From   string
	To     string
}

// PlanUpdate classifies an update by the old and new targets.
func PlanUpdate(before, after *Transaction) MirrorPlan {
	from, wasTransfer := before.Target.AccountID()
	to, isTransfer := after.Target.AccountID()

	switch {
	case !wasTransfer && !isTransfer:
		return MirrorPlan{Action: MirrorNone}
	case !wasTransfer:
		return MirrorPlan{Action: MirrorCreate, To: to}
	case !isTransfer:
		return MirrorPlan{Action: MirrorRemove, From: from}
	case from == to:
		return MirrorPlan{Action: MirrorPatch, From: from, To: to}
	default:
		return MirrorPlan{Action: MirrorRelocate, From: from, To: to}
	}
}

// mirrorOf builds the counter leg of primary, which is owned by originID.
// The mirror starts uncleared whatever the primary's tier.
func mirrorOf(originID string, primary *Transaction) *Transaction {
	return &Transaction{
		ID:         primary.ID,
		Date:       primary.Date,
		Type:       primary.Type,
		Payee:      primary.Payee,
		Memo:       primary.Memo,
		Amount:     primary.Amount.Neg(),
		Reconciled: Uncleared,
		Target:     AccountRef(originID),
	}
}

// TransferLinker performs the writes on the counter side of a transfer. It
// runs inside the caller's unit of work and never touches the primary leg.
type TransferLinker struct{}

// CheckCounter verifies that a transfer's counter-account exists.
func (TransferLinker) CheckCounter(ctx context.Context, tx Tx, counterID string) error {
	ok, err := tx.Accounts().Exists(ctx, counterID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransferAccountNotFound, counterID)
	}
	return nil
}

// Create writes the mirror of primary into the counter-account's log.
func (TransferLinker) Create(ctx context.Context, tx Tx, originID string, primary *Transaction) (Snapshot, error) {
	counterID, _ := primary.Target.AccountID()

	acct, err := tx.Accounts().Get(ctx, counterID)
	if errors.Is(err, ErrAccountNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrTransferAccountNotFound, counterID)
	}
	if err != nil {
		return Snapshot{}, err
	}

	mirror := mirrorOf(originID, primary)
	if err := tx.Log(counterID).Insert(ctx, mirror); err != nil {
		return Snapshot{}, fmt.Errorf("failed to insert mirror in %s: %w", counterID, err)
	}

	acct.Balances = ApplyCreate(acct.Balances, mirror.Amount, mirror.Reconciled)
	if err := tx.Accounts().SetBalances(ctx, counterID, acct.Balances); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(acct), nil
}

// Remove deletes the mirror with transID from the counter-account's log and
// reverses its contribution using the mirror's own amount and tier.
func (TransferLinker) Remove(ctx context.Context, tx Tx, counterID, transID string) (Snapshot, error) {
	log := tx.Log(counterID)
	mirror, err := log.Get(ctx, transID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("mirror in %s: %w", counterID, err)
	}
	removed, err := log.Remove(ctx, transID)
	if err != nil {
		return Snapshot{}, err
	}
	if !removed {
		return Snapshot{}, fmt.Errorf("mirror in %s: %w", counterID, ErrTransactionNotFound)
	}

	acct, err := tx.Accounts().Get(ctx, counterID)
	if err != nil {
		return Snapshot{}, err
	}
	acct.Balances = ApplyDelete(acct.Balances, mirror.Amount, mirror.Reconciled)
	if err := tx.Accounts().SetBalances(ctx, counterID, acct.Balances); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(acct), nil
}

// Patch keeps the mirror in step with an updated primary that still points at
// the same counter-account. Payee and memo are copied; when the amount moved
// the mirror takes the negated amount and the counter-account's figures shift
// by the delta at the mirror's own tier. The mirror's tier is never changed.
// The snapshot is only meaningful when changed is true.
func (TransferLinker) Patch(ctx context.Context, tx Tx, counterID string, after *Transaction) (snap Snapshot, changed bool, err error) {
	log := tx.Log(counterID)
	mirror, err := log.Get(ctx, after.ID)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("mirror in %s: %w", counterID, err)
	}

	updated := mirror.clone()
	updated.Payee = after.Payee
	updated.Memo = after.Memo
	updated.Amount = after.Amount.Neg()
	amountMoved := !mirror.Amount.Equal(updated.Amount)

	if updated.Payee == mirror.Payee && updated.Memo == mirror.Memo && !amountMoved {
		return Snapshot{}, false, nil
	}
	if err := log.Update(ctx, updated); err != nil {
		return Snapshot{}, false, err
	}
	if !amountMoved {
		return Snapshot{}, false, nil
	}

	acct, err := tx.Accounts().Get(ctx, counterID)
	if err != nil {
		return Snapshot{}, false, err
	}
	acct.Balances = ApplyAmountChange(acct.Balances, mirror.Amount, updated.Amount, mirror.Reconciled)
	if err := tx.Accounts().SetBalances(ctx, counterID, acct.Balances); err != nil {
		return Snapshot{}, false, err
	}
	return snapshotOf(acct), true, nil
}
