package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks responses served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
)

const maxClaimAttempts = 3

var errClaimUnstable = errors.New("idempotency key kept expiring while being claimed")

// replayedHeaders are copied into the stored envelope and restored on replay.
var replayedHeaders = []string{"Content-Type", "X-Batch-ID", "X-Batch-Failures"}

// storedResponse is what gets persisted for a completed request.
type storedResponse struct {
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// IdempotencyMiddleware handles request idempotency using Redis.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A
// non-positive ttl falls back to usecase.IdempotencyKeyTTL.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: logger}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		// keys are per submitter when requests are authenticated
		if subject, ok := SubjectFromContext(r.Context()); ok {
			key = subject + ":" + key
		}

		exists, cached, err := m.claim(r.Context(), key)
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("idempotency check failed")
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			if string(cached) == usecase.IdempotencyPending {
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}
			if m.replay(w, cached) {
				return
			}
			m.logger.Warn().Str("key", key).Msg("discarding unreadable idempotent response")
		}

		// Capture response
		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// The claim is released unless a response gets stored, including
		// when next panics.
		stored := false
		defer func() {
			if !stored {
				m.release(r.Context(), key)
			}
		}()

		next.ServeHTTP(recorder, r)

		// Store response for future idempotent requests
		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			return
		}

		payload, err := json.Marshal(newStoredResponse(recorder))
		if err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("failed to encode idempotent response")
			return
		}
		if err := m.store.Update(context.WithoutCancel(r.Context()), key, payload, m.ttl); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("failed to store idempotent response")
			return
		}
		stored = true
	})
}

// claim reserves key. A key that expired between the store's check and
// read comes back as existing with no value; it is claimed again.
func (m *IdempotencyMiddleware) claim(ctx context.Context, key string) (bool, []byte, error) {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		exists, cached, err := m.store.CheckAndSet(ctx, key, nil, m.ttl)
		if err != nil {
			return false, nil, err
		}
		if !exists || cached != nil {
			return exists, cached, nil
		}
	}
	return false, nil, errClaimUnstable
}

func (m *IdempotencyMiddleware) release(ctx context.Context, key string) {
	if err := m.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		m.logger.Error().Err(err).Str("key", key).Msg("failed to release idempotency key")
	}
}

func newStoredResponse(recorder *responseRecorder) storedResponse {
	stored := storedResponse{Headers: map[string]string{}, Body: recorder.body.Bytes()}
	for _, h := range replayedHeaders {
		if v := recorder.Header().Get(h); v != "" {
			stored.Headers[h] = v
		}
	}
	return stored
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, cached []byte) bool {
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil {
		return false
	}

	for k, v := range stored.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(http.StatusOK)
	w.Write(stored.Body)
	return true
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
