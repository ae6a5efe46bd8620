package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrWong99/phonexa/internal/analysis"
	"github.com/MrWong99/phonexa/internal/attempt"
	"github.com/MrWong99/phonexa/internal/observe"
	"github.com/MrWong99/phonexa/internal/resilience"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrEmptySentence), errors.Is(err, analysis.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, attempt.ErrNotFound), errors.Is(err, analysis.ErrNoStore):
		return http.StatusNotFound
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with the status from [statusFor]. Internal
// errors are logged and their detail is not sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		observe.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		msg = http.StatusText(status)
	case status == http.StatusServiceUnavailable:
		observe.Logger(r.Context()).Warn("request unavailable", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
