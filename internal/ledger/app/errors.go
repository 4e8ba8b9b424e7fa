package app

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid withdrawal request")

	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is an expected outcome, not a fault. It is returned together with an
	// Outcome whose Status is OutcomeInsufficientFunds.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrStorage = errors.New("ledger storage failure")

	ErrConflictExhausted = errors.New("balance kept changing concurrently")
)

// errConflict marks an attempt whose compare-and-swap lost to another writer.
var errConflict = errors.New("balance changed since read")
