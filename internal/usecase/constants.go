package usecase

import "time"

const (
	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
	// IdempotencyPending is stored under a key while the request that
	// claimed it is still running.
	IdempotencyPending = "processing"

	// Failure reasons reported to the Recorder.
	ReasonAccountLocked     = "account_locked"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonMissingAmount     = "missing_amount"
	ReasonMalformedRecord   = "malformed_record"
	ReasonUnknown           = "unknown"
)
