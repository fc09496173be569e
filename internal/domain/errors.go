package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrAccountLocked     = errors.New("account is locked")
	ErrMissingAmount     = errors.New("transaction is missing its amount")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Input errors
	ErrMalformedRecord  = errors.New("malformed transaction record")
	ErrInvalidPrecision = errors.New("display precision must not be negative")
)

// InsufficientFundsError is returned when a withdrawal exceeds the
// available funds. It matches ErrInsufficientFunds under errors.Is.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// EntryError is a failure tied to the 1-based position of a record in the
// input batch.
type EntryError struct {
	Index uint64
	Err   error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d: %v", e.Index, e.Err)
}

func (e EntryError) Unwrap() error {
	return e.Err
}
