package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenSource returns a canned token and counts invocations.
type fakeTokenSource struct {
	token AccessToken
	err   error
	calls int
}

func (f *fakeTokenSource) AccessToken(_ context.Context, _ time.Time) (AccessToken, error) {
	f.calls++
	if f.err != nil {
		return AccessToken{}, f.err
	}
	return f.token, nil
}

func TestHeaderBuilder_RequestHeaders(t *testing.T) {
	expiresAt := time.Date(2026, 8, 23, 13, 0, 0, 0, time.UTC)
	tokens := &fakeTokenSource{token: AccessToken{Token: "abc", ExpiresAt: expiresAt}}

	builder := newHeaderBuilder("org1", tokens)

	headers, err := builder.RequestHeaders(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "org1", headers.OrgID)
	assert.Equal(t, "Bearer abc", headers.Authorization)
	assert.Equal(t, expiresAt, headers.ExpiresAt)
	assert.Equal(t, 1, tokens.calls)
}

func TestHeaderBuilder_TokenFailurePropagates(t *testing.T) {
	wantErr := errors.New("exchange down")
	tokens := &fakeTokenSource{err: wantErr}

	builder := newHeaderBuilder("org1", tokens)

	_, err := builder.RequestHeaders(context.Background(), time.Now().UTC())
	assert.ErrorIs(t, err, wantErr)
}

func TestRequestHeaders_Apply(t *testing.T) {
	headers := RequestHeaders{
		OrgID:         "org1",
		Authorization: "Bearer abc",
	}

	req, err := http.NewRequest(http.MethodGet, "https://api.searchads.apple.com/api/v4/campaigns", nil)
	require.NoError(t, err)

	headers.Apply(req)

	assert.Equal(t, "org1", req.Header.Get("X-AP-Context"))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}
