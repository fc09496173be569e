package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType identifies what a transaction does to an account.
type TransactionType uint8

const (
	TransactionTypeDeposit TransactionType = iota + 1
	TransactionTypeWithdrawal
	TransactionTypeDispute
	TransactionTypeResolve
	TransactionTypeChargeback
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeDeposit:    "deposit",
	TransactionTypeWithdrawal: "withdrawal",
	TransactionTypeDispute:    "dispute",
	TransactionTypeResolve:    "resolve",
	TransactionTypeChargeback: "chargeback",
}

// String returns the lowercase token used in input files.
func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// CarriesAmount reports whether records of this type must have an amount.
func (t TransactionType) CarriesAmount() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdrawal
}

// ParseTransactionType parses a type token case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for t, name := range transactionTypeNames {
		if name == token {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown transaction type %q", ErrMalformedRecord, s)
}

// Transaction is a single record of the input batch.
//
// Dispute, Resolve and Chargeback reuse the TX of the deposit or withdrawal
// they refer to and carry no amount.
type Transaction struct {
	Type   TransactionType
	Client uint16
	TX     uint32
	Amount decimal.NullDecimal
}

// Deposit builds a deposit record.
func Deposit(client uint16, tx uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: TransactionTypeDeposit, Client: client, TX: tx, Amount: decimal.NewNullDecimal(amount)}
}

// Withdrawal builds a withdrawal record.
func Withdrawal(client uint16, tx uint32, amount decimal.Decimal) Transaction {
	return Transaction{Type: TransactionTypeWithdrawal, Client: client, TX: tx, Amount: decimal.NewNullDecimal(amount)}
}

// Dispute builds a dispute record referencing tx.
func Dispute(client uint16, tx uint32) Transaction {
	return Transaction{Type: TransactionTypeDispute, Client: client, TX: tx}
}

// Resolve builds a resolve record referencing tx.
func Resolve(client uint16, tx uint32) Transaction {
	return Transaction{Type: TransactionTypeResolve, Client: client, TX: tx}
}

// Chargeback builds a chargeback record referencing tx.
func Chargeback(client uint16, tx uint32) Transaction {
	return Transaction{Type: TransactionTypeChargeback, Client: client, TX: tx}
}

// Validate checks the record shape. It does not require an amount on
// deposits and withdrawals; a missing amount is reported by the account
// as ErrMissingAmount.
func (t Transaction) Validate() error {
	if _, ok := transactionTypeNames[t.Type]; !ok {
		return fmt.Errorf("%w: unknown transaction type %d", ErrMalformedRecord, t.Type)
	}

	if !t.Amount.Valid {
		return nil
	}

	if !t.Type.CarriesAmount() {
		return fmt.Errorf("%w: %s must not carry an amount", ErrMalformedRecord, t.Type)
	}

	if t.Amount.Decimal.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrMalformedRecord, t.Amount.Decimal)
	}

	return nil
}
