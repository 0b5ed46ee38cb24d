package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth pipeline.
var (
	// ErrInvalidKey indicates that the private key material is malformed.
	ErrInvalidKey = errors.New("private key is invalid")

	// ErrUnsupportedAlgorithm indicates that the configured signing
	// algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not supported")

	// ErrInvalidTokenResponse indicates that the token endpoint returned a
	// body that could not be interpreted as an access token.
	ErrInvalidTokenResponse = errors.New("invalid token response")
)

// SigningError represents a client secret signing failure. It is fatal: no
// valid secret can be produced, so the whole run aborts.
type SigningError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SigningError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("secret signing error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("secret signing error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *SigningError) Unwrap() error {
	return e.Cause
}

// NewSigningError creates a new SigningError.
func NewSigningError(message string, cause error) *SigningError {
	return &SigningError{
		Message: message,
		Cause:   cause,
	}
}

// ExchangeError represents a token exchange failure. It carries the HTTP
// status and response body for diagnostics, and is distinguishable from a
// SigningError so operators can tell a bad key from a rejected exchange.
type ExchangeError struct {
	Status int
	Body   string
	Cause  error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("token exchange failed: status %d: %s", e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("token exchange failed: status %d", e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("token exchange failed: %v", e.Cause)
	}
	return "token exchange failed"
}

// Unwrap returns the underlying error.
func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

// NewExchangeError creates an ExchangeError from an HTTP response.
func NewExchangeError(status int, body string) *ExchangeError {
	return &ExchangeError{
		Status: status,
		Body:   body,
	}
}

// IsSigningError checks if an error is a signing error.
func IsSigningError(err error) bool {
	var signingErr *SigningError
	return errors.As(err, &signingErr)
}

// IsExchangeError checks if an error is a token exchange error.
func IsExchangeError(err error) bool {
	var exchangeErr *ExchangeError
	return errors.As(err, &exchangeErr)
}
