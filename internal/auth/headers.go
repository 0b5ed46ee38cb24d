package auth

import (
	"context"
	"time"
)

// headerBuilder assembles the final request headers from an access token.
// It is a pure function over its inputs and cannot fail on its own; any
// error it returns comes from the token source.
type headerBuilder struct {
	orgID  string
	tokens TokenSource
}

// newHeaderBuilder creates a header builder for the given organization.
func newHeaderBuilder(orgID string, tokens TokenSource) *headerBuilder {
	return &headerBuilder{
		orgID:  orgID,
		tokens: tokens,
	}
}

// RequestHeaders builds the header set. Expiry is inherited from the
// access token; the headers themselves carry no intrinsic lifetime.
func (b *headerBuilder) RequestHeaders(ctx context.Context, now time.Time) (RequestHeaders, error) {
	token, err := b.tokens.AccessToken(ctx, now)
	if err != nil {
		return RequestHeaders{}, err
	}

	return RequestHeaders{
		OrgID:         b.orgID,
		Authorization: "Bearer " + token.Token,
		ExpiresAt:     token.ExpiresAt,
	}, nil
}
