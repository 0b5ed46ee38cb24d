// Package auth implements the token derivation pipeline: a private signing
// key becomes a signed client secret, the secret is exchanged for a bearer
// access token, and the token becomes the request headers used by every data
// API call. Each stage can be wrapped by a cache-backed variant that
// consults a durable store before invoking the stage it decorates.
package auth

import (
	"context"
	"net/http"
	"time"
)

// Identity holds the immutable signing identity supplied by configuration.
type Identity struct {
	ClientID  string
	TeamID    string
	Audience  string
	KeyID     string
	Algorithm string
}

// SignedSecret is a signed, time-bounded client assertion.
type SignedSecret struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AccessToken is a short-lived bearer credential. ExpiresAt comes from the
// token endpoint's declared lifetime, never from a local guess.
type AccessToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestHeaders is the final header set consumed by all data API calls.
// ExpiresAt is inherited from the access token the headers were built from.
type RequestHeaders struct {
	OrgID         string    `json:"orgID"`
	Authorization string    `json:"authorization"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Header names used on outgoing data API requests.
const (
	HeaderContext       = "X-AP-Context"
	HeaderAuthorization = "Authorization"
)

// Apply sets the auth headers on an outgoing request.
func (h RequestHeaders) Apply(req *http.Request) {
	req.Header.Set(HeaderContext, h.OrgID)
	req.Header.Set(HeaderAuthorization, h.Authorization)
}

// SecretSource produces a signed client secret valid at the given instant.
type SecretSource interface {
	ClientSecret(ctx context.Context, now time.Time) (SignedSecret, error)
}

// TokenSource produces an access token valid at the given instant.
type TokenSource interface {
	AccessToken(ctx context.Context, now time.Time) (AccessToken, error)
}

// HeaderSource produces request headers valid at the given instant.
type HeaderSource interface {
	RequestHeaders(ctx context.Context, now time.Time) (RequestHeaders, error)
}

// Clock supplies the evaluation instant. The pipeline samples it once per
// evaluation so all three stages share a consistent notion of "now".
type Clock interface {
	Now() time.Time
}

// systemClock reads the system clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by the system clock.
func SystemClock() Clock {
	return systemClock{}
}
