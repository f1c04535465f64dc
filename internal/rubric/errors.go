package rubric

import (
	"errors"
	"net/http"
)

// ErrInvalidRequest reports a malformed scoring request.
var ErrInvalidRequest = errors.New("invalid score request")

// MapHTTPStatus maps rubric errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
