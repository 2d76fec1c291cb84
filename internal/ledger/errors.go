package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned when the account addressed by the caller does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransferAccountNotFound is returned when a transfer names a counter-account that does not exist.
	ErrTransferAccountNotFound = errors.New("transfer account does not exist")
	// ErrTransactionNotFound is returned when a transaction, or the mirror of a transfer, is missing.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrEmptyResult is returned by list operations that match nothing.
	ErrEmptyResult = errors.New("no results")
	// ErrInvalidFieldValue is returned when an input field cannot be parsed or is not allowed.
	ErrInvalidFieldValue = errors.New("invalid field value")
	// ErrAccountExists is returned when a new account would collide with an existing id.
	ErrAccountExists = errors.New("account already exists")
	// ErrConcurrentModification is returned when the store aborted the unit of work because of
	// a conflicting writer.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// FieldError describes a rejected input field. It matches ErrInvalidFieldValue with errors.Is.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidFieldValue
}

func invalidField(field, value, reason string) error {
	return &FieldError{Field: field, Value: value, Reason: reason}
}
