package handler

import (
	"context"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/usecase"
)

const (
	// BatchIDHeader carries the id of the processed batch.
	BatchIDHeader = "X-Batch-ID"
	// BatchFailuresHeader carries the number of rejected entries on CSV
	// responses.
	BatchFailuresHeader = "X-Batch-Failures"
)

// BatchService defines the behavior needed by BatchHandler.
type BatchService interface {
	ProcessBatch(ctx context.Context, input usecase.ProcessBatchInput) (*usecase.BatchResult, error)
}

// BatchHandler runs uploaded CSV batches. Every request gets its own
// ledger; nothing is shared between requests.
type BatchHandler struct {
	batchUC   BatchService
	maxBytes  int64
	precision int32
	logger    zerolog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchUC BatchService, maxBytes int64, precision int32, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		batchUC:   batchUC,
		maxBytes:  maxBytes,
		precision: precision,
		logger:    logger,
	}
}

// Process applies the CSV request body and returns the final account
// snapshots, as JSON by default or as CSV when requested via Accept.
func (h *BatchHandler) Process(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	result, err := h.batchUC.ProcessBatch(r.Context(), usecase.ProcessBatchInput{
		Source: csvio.NewReader(body),
	})
	if err != nil {
		writeError(w, mapBatchError(err), "failed to process batch", err.Error())
		return
	}

	w.Header().Set(BatchIDHeader, result.BatchID)

	if wantsCSV(r) {
		w.Header().Set("Content-Type", contentTypeCSV)
		w.Header().Set(BatchFailuresHeader, strconv.Itoa(len(result.Failures)))
		w.WriteHeader(http.StatusOK)
		if err := csvio.NewWriter(w, h.precision).Write(r.Context(), result.Accounts); err != nil {
			// headers are already sent; the client sees a truncated body
			h.logger.Error().
				Err(err).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("batch_id", result.BatchID).
				Msg("failed to write csv response")
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(result, h.precision))
}
