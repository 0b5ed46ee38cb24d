package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// tokenScope is the OAuth scope requested for data API access.
const tokenScope = "searchadsorg"

// maxResponseBytes bounds token endpoint response reads.
const maxResponseBytes = 1024 * 1024

// tokenResponse is the token endpoint's JSON response shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenExchanger exchanges a signed client secret for an access token with
// a single POST to the token endpoint. It performs no retries; retry
// policy, if any, belongs to the HTTP client it is given.
type tokenExchanger struct {
	secrets    SecretSource
	clientID   string
	tokenURL   string
	httpClient *http.Client
	logger     observability.Logger
}

// newTokenExchanger creates a token exchanger that pulls its client secret
// from the given source on demand.
func newTokenExchanger(
	secrets SecretSource, clientID, tokenURL string, httpClient *http.Client, logger observability.Logger,
) *tokenExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &tokenExchanger{
		secrets:    secrets,
		clientID:   clientID,
		tokenURL:   tokenURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AccessToken obtains the client secret lazily and exchanges it. The
// returned token's expiry is the endpoint's declared lifetime relative to
// the evaluation instant.
func (e *tokenExchanger) AccessToken(ctx context.Context, now time.Time) (AccessToken, error) {
	secret, err := e.secrets.ClientSecret(ctx, now)
	if err != nil {
		return AccessToken{}, err
	}

	start := time.Now()
	result := metricResultError
	defer func() {
		exchangesTotal.WithLabelValues(result).Inc()
		exchangeDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	body, err := e.exchange(ctx, secret)
	if err != nil {
		return AccessToken{}, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return AccessToken{}, &ExchangeError{
			Body:  string(body),
			Cause: fmt.Errorf("%w: %v", ErrInvalidTokenResponse, err),
		}
	}
	if resp.AccessToken == "" || resp.ExpiresIn <= 0 {
		return AccessToken{}, &ExchangeError{
			Body:  string(body),
			Cause: fmt.Errorf("%w: missing access_token or expires_in", ErrInvalidTokenResponse),
		}
	}

	result = metricResultSuccess

	token := AccessToken{
		Token:     resp.AccessToken,
		ExpiresAt: now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	e.logger.Debug("access token obtained",
		observability.Time("expiresAt", token.ExpiresAt))

	return token, nil
}

// exchange posts the client secret to the token endpoint and returns the
// raw response body of a successful exchange.
func (e *tokenExchanger) exchange(ctx context.Context, secret SignedSecret) ([]byte, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", e.clientID)
	form.Set("client_secret", secret.Token)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExchangeError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ExchangeError{Status: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		e.logger.Error("token exchange rejected",
			observability.Int("status", resp.StatusCode),
			observability.String("body", string(body)))
		return nil, NewExchangeError(resp.StatusCode, string(body))
	}

	return body, nil
}
