package csvio

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txengine/internal/domain"
)

type entry struct {
	tx  domain.Transaction
	err error
}

func collect(t *testing.T, r *Reader) []entry {
	t.Helper()

	var out []entry
	for tx, err := range r.Transactions() {
		out = append(out, entry{tx: tx, err: err})
	}
	return out
}

func TestReader_ParsesRecords(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 1.0\n" +
		"Withdrawal,2,5,   3.1415\n" +
		"DISPUTE, 1, 1,\n" +
		"resolve,1,1\n" +
		"chargeback, 1, 1, 9.99\n"

	r := NewReader(strings.NewReader(input))
	entries := collect(t, r)
	require.NoError(t, r.Err())
	require.Len(t, entries, 5)

	for i, e := range entries {
		require.NoError(t, e.err, "entry %d", i+1)
	}

	dep := entries[0].tx
	assert.Equal(t, domain.TransactionTypeDeposit, dep.Type)
	assert.Equal(t, uint16(1), dep.Client)
	assert.Equal(t, uint32(1), dep.TX)
	require.True(t, dep.Amount.Valid)
	assert.Equal(t, "1", dep.Amount.Decimal.String())

	wd := entries[1].tx
	assert.Equal(t, domain.TransactionTypeWithdrawal, wd.Type)
	assert.Equal(t, uint16(2), wd.Client)
	assert.Equal(t, "3.1415", wd.Amount.Decimal.String())

	assert.Equal(t, domain.TransactionTypeDispute, entries[2].tx.Type)
	assert.False(t, entries[2].tx.Amount.Valid)
	assert.Equal(t, domain.TransactionTypeResolve, entries[3].tx.Type)
	assert.Equal(t, domain.TransactionTypeChargeback, entries[4].tx.Type)
	assert.False(t, entries[4].tx.Amount.Valid, "chargeback amounts are ignored")
}

func TestReader_HeaderWithoutAmountColumn(t *testing.T) {
	r := NewReader(strings.NewReader("type,client,tx\ndispute,3,7\n"))

	entries := collect(t, r)

	require.NoError(t, r.Err())
	require.Len(t, entries, 1)
	require.NoError(t, entries[0].err)
	assert.Equal(t, domain.Dispute(3, 7), entries[0].tx)
}

func TestReader_DepositWithoutAmountIsReadable(t *testing.T) {
	r := NewReader(strings.NewReader("type,client,tx,amount\ndeposit,1,1,\n"))

	entries := collect(t, r)

	require.Len(t, entries, 1)
	require.NoError(t, entries[0].err)
	assert.False(t, entries[0].tx.Amount.Valid)
}

func TestReader_MalformedRecordsAreYielded(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,1.0\n" +
		"transfer,1,2,1.0\n" +
		"deposit,70000,3,1.0\n" +
		"deposit,1,-4,1.0\n" +
		"deposit,1,5,abc\n" +
		"withdrawal,1,6,-2\n" +
		"deposit,1,7,2.5\n"

	r := NewReader(strings.NewReader(input))
	entries := collect(t, r)

	require.NoError(t, r.Err())
	require.Len(t, entries, 7)

	assert.NoError(t, entries[0].err)
	for i := 1; i <= 5; i++ {
		assert.ErrorIs(t, entries[i].err, domain.ErrMalformedRecord, "entry %d", i+1)
	}
	assert.NoError(t, entries[6].err)
	assert.Equal(t, "2.5", entries[6].tx.Amount.Decimal.String())
}

func TestReader_InvalidHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "missing tx column", input: "type,client,amount\ndeposit,1,1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input))

			entries := collect(t, r)

			assert.Empty(t, entries)
			assert.ErrorIs(t, r.Err(), ErrInvalidHeader)
		})
	}
}

type failingReader struct {
	data string
	err  error
	done bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.done {
		return 0, f.err
	}
	f.done = true
	return copy(p, f.data), nil
}

func TestReader_IOErrorStopsIteration(t *testing.T) {
	ioErr := errors.New("connection reset")
	r := NewReader(&failingReader{data: "type,client,tx,amount\ndeposit,1,1,1.0\n", err: ioErr})

	entries := collect(t, r)

	require.Len(t, entries, 1)
	assert.ErrorIs(t, r.Err(), ioErr)
}

func TestReader_FeedsLedger(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,1,1,20.924\n" +
		"dispute,1,1,\n" +
		"chargeback,1,1,\n" +
		"deposit,1,2,1\n" +
		"bogus,1,3,1\n"

	r := NewReader(strings.NewReader(input))
	ledger := domain.NewLedger()
	failures := ledger.ApplyBatch(r.Transactions())

	require.NoError(t, r.Err())
	require.Len(t, failures, 2)
	assert.Equal(t, uint64(4), failures[0].Index)
	assert.ErrorIs(t, failures[0], domain.ErrAccountLocked)
	assert.Equal(t, uint64(5), failures[1].Index)
	assert.ErrorIs(t, failures[1], domain.ErrMalformedRecord)
	assert.True(t, ledger.Account(1).Locked)
}
