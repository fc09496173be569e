package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultDisplayPrecision is the number of decimal places used when
// snapshots are emitted.
const DefaultDisplayPrecision int32 = 4

// ValidatePrecision checks a display precision before it reaches any
// formatter; negative values would round to tens.
func ValidatePrecision(precision int32) error {
	if precision < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPrecision, precision)
	}
	return nil
}

// Account holds one client's funds and the transactions that can still be
// disputed.
type Account struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool

	// successful deposits and withdrawals, pruned on resolve and chargeback
	disputable map[uint32]Transaction
}

// AccountSnapshot is the read-only view of an account handed to sinks.
type AccountSnapshot struct {
	Client    uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// NewAccount creates an empty, unlocked account for a client.
func NewAccount(client uint16) *Account {
	return &Account{
		Client:     client,
		Available:  decimal.Zero,
		Held:       decimal.Zero,
		Total:      decimal.Zero,
		disputable: make(map[uint32]Transaction),
	}
}

// Apply applies tx to the account. The caller routes by tx.Client.
//
// A locked account rejects every transaction with ErrAccountLocked.
// Deposits and withdrawals fail with ErrMissingAmount or
// *InsufficientFundsError and leave the account untouched. Disputes,
// resolves and chargebacks that reference an unknown transaction are
// no-ops and never fail.
func (a *Account) Apply(tx Transaction) error {
	if a.Locked {
		return ErrAccountLocked
	}

	switch tx.Type {
	case TransactionTypeDeposit:
		return a.deposit(tx)
	case TransactionTypeWithdrawal:
		return a.withdraw(tx)
	case TransactionTypeDispute:
		a.dispute(tx.TX)
	case TransactionTypeResolve:
		a.resolve(tx.TX)
	case TransactionTypeChargeback:
		a.chargeback(tx.TX)
	}

	return nil
}

func (a *Account) deposit(tx Transaction) error {
	if !tx.Amount.Valid {
		return ErrMissingAmount
	}
	amount := tx.Amount.Decimal

	a.Available = a.Available.Add(amount)
	a.Total = a.Total.Add(amount)
	a.disputable[tx.TX] = tx

	return nil
}

func (a *Account) withdraw(tx Transaction) error {
	if !tx.Amount.Valid {
		return ErrMissingAmount
	}
	amount := tx.Amount.Decimal

	if amount.GreaterThan(a.Available) {
		return &InsufficientFundsError{Requested: amount, Available: a.Available}
	}

	a.Available = a.Available.Sub(amount)
	a.Total = a.Total.Sub(amount)
	a.disputable[tx.TX] = tx

	return nil
}

func (a *Account) dispute(id uint32) {
	ref, ok := a.disputable[id]
	if !ok {
		return
	}
	amount := ref.Amount.Decimal

	a.Held = a.Held.Add(amount)
	switch ref.Type {
	case TransactionTypeDeposit:
		a.Available = a.Available.Sub(amount)
	case TransactionTypeWithdrawal:
		// the funds already left available; the claim re-inflates total
		a.Total = a.Total.Add(amount)
	}
}

func (a *Account) resolve(id uint32) {
	ref, ok := a.disputable[id]
	if !ok {
		return
	}
	delete(a.disputable, id)
	amount := ref.Amount.Decimal

	a.Held = a.Held.Sub(amount)
	a.Available = a.Available.Add(amount)
}

func (a *Account) chargeback(id uint32) {
	ref, ok := a.disputable[id]
	if !ok {
		return
	}
	delete(a.disputable, id)

	if ref.Type == TransactionTypeWithdrawal {
		return
	}
	amount := ref.Amount.Decimal

	a.Held = a.Held.Sub(amount)
	a.Total = a.Total.Sub(amount)
	a.Locked = true
}

// IsDisputable reports whether tx can still be disputed, resolved or
// charged back on this account.
func (a *Account) IsDisputable(tx uint32) bool {
	_, ok := a.disputable[tx]
	return ok
}

// Balanced reports whether total equals available plus held.
func (a *Account) Balanced() bool {
	return a.Total.Equal(a.Available.Add(a.Held))
}

// Snapshot returns the account's balances rounded to precision places.
func (a *Account) Snapshot(precision int32) AccountSnapshot {
	return AccountSnapshot{
		Client:    a.Client,
		Available: a.Available.Round(precision),
		Held:      a.Held.Round(precision),
		Total:     a.Total.Round(precision),
		Locked:    a.Locked,
	}
}
