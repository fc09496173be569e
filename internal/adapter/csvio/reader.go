package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

// ErrInvalidHeader is returned when the header row lacks a required column.
var ErrInvalidHeader = errors.New("invalid header")

const (
	columnType   = "type"
	columnClient = "client"
	columnTx     = "tx"
	columnAmount = "amount"
)

// Reader parses transaction records from CSV input with a header row.
// Fields are trimmed; the amount column may be empty or missing.
type Reader struct {
	csv *csv.Reader
	err error

	typeIdx   int
	clientIdx int
	txIdx     int
	amountIdx int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{
		csv:       cr,
		amountIdx: -1,
	}
}

// Err returns the error that stopped iteration, if any. Malformed records
// are yielded by Transactions and do not stop it.
func (r *Reader) Err() error {
	return r.err
}

// Transactions yields one entry per data row. The sequence can be ranged
// over once.
func (r *Reader) Transactions() iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		if err := r.readHeader(); err != nil {
			r.err = err
			return
		}

		for {
			record, err := r.csv.Read()
			if errors.Is(err, io.EOF) {
				return
			}

			var parseErr *csv.ParseError
			switch {
			case errors.As(err, &parseErr):
				if !yield(domain.Transaction{}, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, parseErr)) {
					return
				}
				continue
			case err != nil:
				r.err = fmt.Errorf("failed to read record: %w", err)
				return
			}

			if !yield(r.parse(record)) {
				return
			}
		}
	}
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: input is empty", ErrInvalidHeader)
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	r.typeIdx, r.clientIdx, r.txIdx, r.amountIdx = -1, -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case columnType:
			r.typeIdx = i
		case columnClient:
			r.clientIdx = i
		case columnTx:
			r.txIdx = i
		case columnAmount:
			r.amountIdx = i
		}
	}

	for column, idx := range map[string]int{columnType: r.typeIdx, columnClient: r.clientIdx, columnTx: r.txIdx} {
		if idx < 0 {
			return fmt.Errorf("%w: missing %q column", ErrInvalidHeader, column)
		}
	}

	return nil
}

func (r *Reader) parse(record []string) (domain.Transaction, error) {
	var tx domain.Transaction

	txType, err := domain.ParseTransactionType(field(record, r.typeIdx))
	if err != nil {
		return tx, err
	}
	tx.Type = txType

	client, err := strconv.ParseUint(field(record, r.clientIdx), 10, 16)
	if err != nil {
		return tx, fmt.Errorf("%w: invalid client: %v", domain.ErrMalformedRecord, err)
	}
	tx.Client = uint16(client)

	id, err := strconv.ParseUint(field(record, r.txIdx), 10, 32)
	if err != nil {
		return tx, fmt.Errorf("%w: invalid tx: %v", domain.ErrMalformedRecord, err)
	}
	tx.TX = uint32(id)

	// amounts on dispute, resolve and chargeback rows are ignored
	if raw := field(record, r.amountIdx); raw != "" && txType.CarriesAmount() {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return tx, fmt.Errorf("%w: invalid amount %q", domain.ErrMalformedRecord, raw)
		}
		tx.Amount = decimal.NewNullDecimal(amount)
	}

	if err := tx.Validate(); err != nil {
		return tx, err
	}

	return tx, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
