// Package api is the Search Ads data API client. Every request carries the
// auth pipeline's headers and passes through a client-side rate limiter and
// a circuit breaker before reaching the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/searchads-tap/internal/auth"
	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// maxBodyBytes bounds API response reads.
const maxBodyBytes = 64 * 1024 * 1024

// DefaultPageSize is the page size used when the caller does not set one.
const DefaultPageSize = 1000

// HeaderProvider supplies the auth headers for outgoing requests. The auth
// pipeline satisfies it.
type HeaderProvider interface {
	Headers(ctx context.Context) (auth.RequestHeaders, error)
}

// Client calls the data API.
type Client struct {
	baseURL    string
	headers    HeaderProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a data API client. Rate limiting and the circuit breaker are
// enabled only when the configuration asks for them.
func New(cfg *config.APIConfig, headers HeaderProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: config.DefaultAPIBaseURL,
		headers: headers,
		logger:  observability.NopLogger(),
	}

	timeout := 30 * time.Second
	if cfg != nil {
		if cfg.BaseURL != "" {
			c.baseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout.Duration()
		}
		if cfg.RateLimit > 0 {
			burst := cfg.RateBurst
			if burst <= 0 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
		}
		if cfg.Breaker.FailureThreshold > 0 {
			c.breaker = newBreaker(&cfg.Breaker, c)
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}

	return c
}

// newBreaker builds the circuit breaker from configuration.
func newBreaker(cfg *config.BreakerConfig, c *Client) *gobreaker.CircuitBreaker {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "searchads-api",
		MaxRequests: cfg.MaxRequests,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
			c.logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()))
		},
	})
}

// ListCampaigns fetches one page of campaigns.
func (c *Client) ListCampaigns(ctx context.Context, limit, offset int) (*CampaignPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	path := fmt.Sprintf("/campaigns?limit=%d&offset=%d", limit, offset)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding campaign list: %w", err)
	}

	page := &CampaignPage{Campaigns: make([]Record, 0, len(resp.Data))}
	if resp.Pagination != nil {
		page.Pagination = *resp.Pagination
	}
	for _, raw := range resp.Data {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding campaign: %w", err)
		}
		page.Campaigns = append(page.Campaigns, rec)
	}

	return page, nil
}

// ForEachCampaign walks every campaign page and calls fn per campaign.
// Iteration stops on the first error from the API or from fn.
func (c *Client) ForEachCampaign(ctx context.Context, pageSize int, fn func(Record) error) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	for offset := 0; ; {
		page, err := c.ListCampaigns(ctx, pageSize, offset)
		if err != nil {
			return err
		}

		for _, campaign := range page.Campaigns {
			if err := fn(campaign); err != nil {
				return err
			}
		}

		offset += len(page.Campaigns)
		if len(page.Campaigns) < pageSize || offset >= page.Pagination.TotalResults {
			return nil
		}
	}
}

// CampaignReport runs a synchronous campaign-level report.
func (c *Client) CampaignReport(ctx context.Context, query ReportQuery) ([]ReportRow, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encoding report query: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/reports/campaigns", payload)
	if err != nil {
		return nil, err
	}

	var resp reportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding report response: %w", err)
	}

	return resp.Data.ReportingDataResponse.Row, nil
}

// CreateImpressionShareReport submits an asynchronous impression share
// report job.
func (c *Client) CreateImpressionShareReport(ctx context.Context, req CustomReportRequest) (*CustomReport, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding custom report request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/custom-reports", payload)
	if err != nil {
		return nil, err
	}

	var resp customReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding custom report: %w", err)
	}

	return &resp.Data, nil
}

// GetImpressionShareReport fetches the current state of a report job.
func (c *Client) GetImpressionShareReport(ctx context.Context, id int64) (*CustomReport, error) {
	body, err := c.do(ctx, http.MethodGet, "/custom-reports/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}

	var resp customReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding custom report: %w", err)
	}

	return &resp.Data, nil
}

// WaitForImpressionShareReport polls a report job until it completes or the
// context expires.
func (c *Client) WaitForImpressionShareReport(
	ctx context.Context, id int64, interval time.Duration,
) (*CustomReport, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := c.GetImpressionShareReport(ctx, id)
		if err != nil {
			return nil, err
		}

		switch report.State {
		case ReportStateCompleted:
			return report, nil
		case ReportStateFailed:
			return nil, fmt.Errorf("impression share report %d failed", id)
		}

		c.logger.Debug("impression share report pending",
			observability.Int64("id", id),
			observability.String("state", report.State))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadImpressionShareReport fetches a completed report's row data from
// its download URI. The URI is absolute and pre-authorized, so the request
// bypasses the base URL but still carries the auth headers.
func (c *Client) DownloadImpressionShareReport(ctx context.Context, report *CustomReport) ([]Record, error) {
	if report.State != ReportStateCompleted || report.DownloadURI == "" {
		return nil, ErrReportNotReady
	}

	body, err := c.doURL(ctx, http.MethodGet, report.DownloadURI, nil)
	if err != nil {
		return nil, err
	}

	var rows []Record
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decoding impression share rows: %w", err)
	}

	return rows, nil
}

// do performs a request against a path under the base URL.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return c.doURL(ctx, method, c.baseURL+path, payload)
}

// doURL performs one guarded request: rate limiter, then circuit breaker,
// then the wire. Responses with 5xx status count as breaker failures; 4xx
// responses do not, they are the caller's problem.
func (c *Client) doURL(ctx context.Context, method, rawURL string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if c.breaker == nil {
		return c.roundTrip(ctx, method, rawURL, payload)
	}

	// 4xx responses are reported to the breaker as successes: they mean
	// the API is reachable and answering, the request itself was bad.
	result, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.roundTrip(ctx, method, rawURL, payload)
		if err != nil {
			var apiErr *APIError
			if isClientError(err, &apiErr) {
				return outcome{err: err}, nil
			}
			return nil, err
		}
		return outcome{body: body}, nil
	})
	if err != nil {
		return nil, err
	}

	out := result.(outcome)
	return out.body, out.err
}

// outcome carries a round trip result through the circuit breaker.
type outcome struct {
	body []byte
	err  error
}

// roundTrip performs the actual HTTP exchange.
func (c *Client) roundTrip(ctx context.Context, method, rawURL string, payload []byte) ([]byte, error) {
	headers, err := c.headers.Headers(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, err
	}
	headers.Apply(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("api request failed",
			observability.String("method", method),
			observability.String("url", rawURL),
			observability.Int("status", resp.StatusCode))
		return nil, NewAPIError(resp.StatusCode, string(body))
	}

	return body, nil
}
