package dto

import (
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// AccountResponse represents an account snapshot in API responses.
// Amounts are fixed-precision strings.
type AccountResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// AccountFromDomain converts a domain snapshot to a response.
func AccountFromDomain(s domain.AccountSnapshot, precision int32) AccountResponse {
	return AccountResponse{
		Client:    s.Client,
		Available: s.Available.StringFixed(precision),
		Held:      s.Held.StringFixed(precision),
		Total:     s.Total.StringFixed(precision),
		Locked:    s.Locked,
	}
}

// FailureResponse represents a rejected batch entry.
type FailureResponse struct {
	Entry uint64 `json:"entry"`
	Error string `json:"error"`
}

// BatchResponse represents a processed batch in API responses.
type BatchResponse struct {
	BatchID    string            `json:"batch_id"`
	Entries    int               `json:"entries"`
	Consistent bool              `json:"consistent"`
	Accounts   []AccountResponse `json:"accounts"`
	Failures   []FailureResponse `json:"failures"`
}

// BatchFromDomain converts a batch result to a response.
func BatchFromDomain(r *usecase.BatchResult, precision int32) *BatchResponse {
	resp := &BatchResponse{
		BatchID:    r.BatchID,
		Entries:    r.Entries,
		Consistent: r.Consistent,
		Accounts:   make([]AccountResponse, len(r.Accounts)),
		Failures:   make([]FailureResponse, len(r.Failures)),
	}
	for i, s := range r.Accounts {
		resp.Accounts[i] = AccountFromDomain(s, precision)
	}
	for i, f := range r.Failures {
		resp.Failures[i] = FailureResponse{Entry: f.Index, Error: f.Err.Error()}
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
