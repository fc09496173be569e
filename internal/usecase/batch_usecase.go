package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/domain"
)

// ProcessBatchInput represents input for processing one batch.
type ProcessBatchInput struct {
	Source TransactionSource
	// Sink is optional; when set the final snapshots are written to it.
	Sink SnapshotWriter
}

// BatchResult is the outcome of one batch run.
type BatchResult struct {
	BatchID    string
	Accounts   []domain.AccountSnapshot
	Failures   []domain.EntryError
	Entries    int
	Consistent bool
}

// BatchUseCase runs an ordered batch of transactions through a fresh
// ledger.
type BatchUseCase struct {
	idGen     IDGenerator
	recorder  Recorder
	ledgerUC  *LedgerUseCase
	logger    zerolog.Logger
	precision int32
}

// NewBatchUseCase creates a new BatchUseCase.
func NewBatchUseCase(idGen IDGenerator, recorder Recorder, logger zerolog.Logger, precision int32) *BatchUseCase {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if precision < 0 {
		precision = domain.DefaultDisplayPrecision
	}

	return &BatchUseCase{
		idGen:     idGen,
		recorder:  recorder,
		ledgerUC:  NewLedgerUseCase(),
		logger:    logger,
		precision: precision,
	}
}

// ProcessBatch applies every record of the source in order. Per-entry
// failures are collected in the result; only a failure to read the source
// itself or to write the snapshots aborts the run.
func (uc *BatchUseCase) ProcessBatch(ctx context.Context, input ProcessBatchInput) (*BatchResult, error) {
	start := time.Now()
	batchID := uc.idGen.Generate()
	logger := uc.logger.With().Str("batch_id", batchID).Logger()

	entries := 0
	ledger := domain.NewLedger()
	failures := ledger.ApplyBatch(uc.observe(input.Source.Transactions(), &entries))

	if err := input.Source.Err(); err != nil {
		logger.Error().Err(err).Int("entries", entries).Msg("batch aborted")
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	for _, f := range failures {
		uc.recorder.EntryFailed(failureReason(f.Err))
		logger.Warn().Uint64("entry", f.Index).Err(f.Err).Msg("transaction rejected")
	}

	accounts := ledger.Accounts()
	locked := 0
	for _, acc := range accounts {
		if acc.Locked {
			locked++
		}
	}

	consistent := true
	if err := uc.ledgerUC.CheckConsistency(accounts); err != nil {
		consistent = false
		logger.Error().Err(err).Msg("ledger consistency check failed")
	}

	result := &BatchResult{
		BatchID:    batchID,
		Accounts:   ledger.Snapshots(uc.precision),
		Failures:   failures,
		Entries:    entries,
		Consistent: consistent,
	}

	if input.Sink != nil {
		if err := input.Sink.Write(ctx, result.Accounts); err != nil {
			return nil, fmt.Errorf("failed to write snapshots: %w", err)
		}
	}

	duration := time.Since(start)
	uc.recorder.BatchCompleted(duration, entries, len(failures), locked)

	logger.Info().
		Int("entries", entries).
		Int("failures", len(failures)).
		Int("accounts", len(accounts)).
		Int("locked", locked).
		Dur("duration", duration).
		Msg("batch processed")

	return result, nil
}

// observe counts entries and reports each readable record's type.
func (uc *BatchUseCase) observe(seq iter.Seq2[domain.Transaction, error], entries *int) iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		for tx, err := range seq {
			*entries++
			if err == nil {
				uc.recorder.TransactionSeen(tx.Type.String())
			}
			if !yield(tx, err) {
				return
			}
		}
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountLocked):
		return ReasonAccountLocked
	case errors.Is(err, domain.ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, domain.ErrMissingAmount):
		return ReasonMissingAmount
	case errors.Is(err, domain.ErrMalformedRecord):
		return ReasonMalformedRecord
	default:
		return ReasonUnknown
	}
}
