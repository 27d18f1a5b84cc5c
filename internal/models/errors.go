package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ledger failure taxonomy. Each maps to exactly one
// caller-visible outcome; none is ever reported as another.
var (
	// ErrNotFound indicates the account or record does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrDenied indicates the caller is not authorized for the account.
	// It carries no information about whether the account exists.
	ErrDenied = errors.New("ledger: denied")
	// ErrInsufficientFunds indicates a debit would take the balance negative.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrConflict indicates a compare-and-set lost a race; the caller should
	// re-read and retry.
	ErrConflict = errors.New("ledger: balance conflict")
	// ErrContention indicates the bounded retry budget was exhausted.
	// Safe to retry at the caller's discretion.
	ErrContention = errors.New("ledger: contention retries exhausted")
	// ErrAlreadyExists indicates an account with the same ID exists.
	ErrAlreadyExists = errors.New("ledger: already exists")
	// ErrTerminalStatus indicates an update to a transaction record that
	// has already reached a terminal status.
	ErrTerminalStatus = errors.New("ledger: transaction status is terminal")
	// ErrCompensationFailed indicates a partially applied transfer whose
	// compensating credit also failed. Requires operator intervention.
	ErrCompensationFailed = errors.New("ledger: compensation failed")
)

// ValidationError reports malformed or out-of-range input. It fails fast
// and implies no side effect was performed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
