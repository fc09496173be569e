package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/iho/txengine/internal/domain"
)

// TransactionSource yields the records of one batch in input order.
type TransactionSource interface {
	// Transactions yields each record, or a non-nil error for a record
	// that could not be parsed.
	Transactions() iter.Seq2[domain.Transaction, error]
	// Err returns the error that stopped iteration early, if any.
	Err() error
}

// SnapshotWriter emits the final account snapshots.
type SnapshotWriter interface {
	Write(ctx context.Context, snapshots []domain.AccountSnapshot) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Recorder receives batch processing measurements.
type Recorder interface {
	TransactionSeen(txType string)
	EntryFailed(reason string)
	BatchCompleted(duration time.Duration, entries, failures, lockedAccounts int)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key so the request can be retried.
	Delete(ctx context.Context, key string) error
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) TransactionSeen(string) {}
func (NopRecorder) EntryFailed(string) {}
func (NopRecorder) BatchCompleted(time.Duration, int, int, int) {}
