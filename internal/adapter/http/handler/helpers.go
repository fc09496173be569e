package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/adapter/http/dto"
)

const contentTypeCSV = "text/csv"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapBatchError maps batch-level errors to HTTP status codes. Per-entry
// failures never reach this point; they are part of a successful response.
func mapBatchError(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, csvio.ErrInvalidHeader):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// wantsCSV reports whether the client asked for a CSV response.
func wantsCSV(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeCSV)
}
