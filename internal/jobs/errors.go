package jobs

import (
	"errors"
	"net/http"
)

// Domain errors for analysis jobs.
var (
	ErrNotFound          = errors.New("analysis not found")
	ErrJobActive         = errors.New("analysis already in progress for tenant")
	ErrInvalidTenant     = errors.New("invalid tenant id")
	ErrNotReady          = errors.New("analysis result not ready")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrLedgerUnavailable = errors.New("job ledger unavailable")
)

// MapHTTPStatus maps job errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrJobActive), errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTenant):
		return http.StatusBadRequest
	case errors.Is(err, ErrLedgerUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
