package api

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

// ErrReportNotReady indicates that an asynchronous report has not finished
// generating yet.
var ErrReportNotReady = errors.New("report not ready")

// APIError is a non-2xx response from the data API.
type APIError struct {
	Status int
	Body   string
}

// NewAPIError creates an APIError from a response status and body.
func NewAPIError(status int, body string) *APIError {
	return &APIError{Status: status, Body: body}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api request failed: status %d: %s", e.Status, e.Body)
}

// IsAPIError reports whether err is or wraps an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsCircuitOpen reports whether err means the circuit breaker rejected the
// request without attempting it.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// isClientError reports whether err is a 4xx APIError, storing it in target.
func isClientError(err error, target **APIError) bool {
	if !errors.As(err, target) {
		return false
	}
	return (*target).Status >= 400 && (*target).Status < 500
}
