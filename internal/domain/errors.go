package domain

import "errors"

// The three error kinds the ledger reports. Adapters map them to transport
// codes; everything else bubbles up as an internal error.
var (
	// ErrNotFound means the requested account or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds means a debit would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidState covers rejected inputs and transitions: non-positive
	// amounts, self-transfers, deleting an account with active stakes.
	ErrInvalidState = errors.New("invalid state")
)
