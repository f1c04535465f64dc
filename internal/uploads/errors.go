package uploads

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidChunk    = errors.New("invalid chunk")
	ErrSessionNotFound = errors.New("upload session not found")
)

// MapHTTPStatus maps upload errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidChunk) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrSessionNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
