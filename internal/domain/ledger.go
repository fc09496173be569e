package domain

import (
	"iter"
	"slices"
)

// Ledger owns every account touched by a batch. It is not safe for
// concurrent use; a batch is applied on a single goroutine.
type Ledger struct {
	accounts map[uint16]*Account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[uint16]*Account),
	}
}

// Account returns the account for client, creating it on first reference.
func (l *Ledger) Account(client uint16) *Account {
	acc, ok := l.accounts[client]
	if !ok {
		acc = NewAccount(client)
		l.accounts[client] = acc
	}
	return acc
}

// Apply routes tx to its owning account.
func (l *Ledger) Apply(tx Transaction) error {
	return l.Account(tx.Client).Apply(tx)
}

// ApplyBatch applies records in order and returns the failures keyed by
// their 1-based position. A non-nil error yielded by seq is a record that
// could not be read; it is reported at its position like any other
// failure. The batch never stops early.
func (l *Ledger) ApplyBatch(seq iter.Seq2[Transaction, error]) []EntryError {
	var failures []EntryError

	var index uint64
	for tx, err := range seq {
		index++
		if err == nil {
			err = l.Apply(tx)
		}
		if err != nil {
			failures = append(failures, EntryError{Index: index, Err: err})
		}
	}

	return failures
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Accounts returns every account ordered by client id.
func (l *Ledger) Accounts() []*Account {
	clients := make([]uint16, 0, len(l.accounts))
	for client := range l.accounts {
		clients = append(clients, client)
	}
	slices.Sort(clients)

	out := make([]*Account, len(clients))
	for i, client := range clients {
		out[i] = l.accounts[client]
	}
	return out
}

// Snapshots returns a snapshot of every account ordered by client id.
func (l *Ledger) Snapshots(precision int32) []AccountSnapshot {
	accounts := l.Accounts()
	out := make([]AccountSnapshot, len(accounts))
	for i, acc := range accounts {
		out[i] = acc.Snapshot(precision)
	}
	return out
}

// Slice adapts a slice of records to the sequence ApplyBatch consumes.
func Slice(txs []Transaction) iter.Seq2[Transaction, error] {
	return func(yield func(Transaction, error) bool) {
		for _, tx := range txs {
			if !yield(tx, nil) {
				return
			}
		}
	}
}
