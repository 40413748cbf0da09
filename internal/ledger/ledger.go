// internal/ledger/ledger.go

// Package ledger owns the two guarded numeric resources of the store:
// per-book stock and per-user balance. Every mutation is a single atomic
// check-and-mutate statement, so the non-negativity invariants hold no
// matter how many requests race on the same row.
package ledger

import "errors"

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidAmount     = errors.New("invalid amount")
)
