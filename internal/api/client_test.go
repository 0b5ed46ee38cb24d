package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/searchads-tap/internal/auth"
	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// staticHeaders satisfies HeaderProvider with fixed headers.
type staticHeaders struct{}

func (staticHeaders) Headers(_ context.Context) (auth.RequestHeaders, error) {
	return auth.RequestHeaders{
		OrgID:         "org1",
		Authorization: "Bearer abc",
		ExpiresAt:     time.Now().Add(time.Hour),
	}, nil
}

func newTestClient(srv *httptest.Server, cfg *config.APIConfig) *Client {
	if cfg == nil {
		cfg = &config.APIConfig{}
	}
	cfg.BaseURL = srv.URL
	return New(cfg, staticHeaders{}, WithHTTPClient(srv.Client()), WithLogger(observability.NopLogger()))
}

func TestClient_ListCampaigns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "org1", r.Header.Get("X-AP-Context"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"data": [{"id": 1, "name": "camp-a"}, {"id": 2, "name": "camp-b"}],
			"pagination": {"totalResults": 2, "startIndex": 0, "itemsPerPage": 50}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)

	page, err := client.ListCampaigns(context.Background(), 50, 0)
	require.NoError(t, err)

	require.Len(t, page.Campaigns, 2)
	assert.Equal(t, "camp-a", page.Campaigns[0]["name"])
	assert.Equal(t, 2, page.Pagination.TotalResults)
}

func TestClient_ForEachCampaignPaginates(t *testing.T) {
	const total = 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var offset int
		_, _ = fmt.Sscanf(r.URL.Query().Get("offset"), "%d", &offset)

		var data []map[string]interface{}
		for i := offset; i < total && i < offset+2; i++ {
			data = append(data, map[string]interface{}{"id": i})
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":       data,
			"pagination": map[string]int{"totalResults": total, "startIndex": offset, "itemsPerPage": 2},
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)

	var seen []int
	err := client.ForEachCampaign(context.Background(), 2, func(rec Record) error {
		seen = append(seen, int(rec["id"].(float64)))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestClient_CampaignReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reports/campaigns", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var query ReportQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		assert.Equal(t, "2026-08-01", query.StartTime)
		assert.Equal(t, "2026-08-22", query.EndTime)
		assert.Equal(t, "DAILY", query.Granularity)

		_, _ = w.Write([]byte(`{
			"data": {"reportingDataResponse": {"row": [
				{"metadata": {"campaignId": 1}, "granularity": [{"date": "2026-08-01", "impressions": 10}]}
			]}}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)

	rows, err := client.CampaignReport(context.Background(), ReportQuery{
		StartTime:   "2026-08-01",
		EndTime:     "2026-08-22",
		Granularity: "DAILY",
	})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, float64(1), rows[0].Metadata["campaignId"])
	require.Len(t, rows[0].Granularity, 1)
	assert.Equal(t, "2026-08-01", rows[0].Granularity[0]["date"])
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"errors":[{"message":"expired token"}]}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)

	_, err := client.ListCampaigns(context.Background(), 10, 0)
	require.Error(t, err)
	require.True(t, IsAPIError(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "expired token")
}

func TestClient_BreakerTripsOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv, &config.APIConfig{
		Breaker: config.BreakerConfig{
			FailureThreshold: 2,
			Timeout:          config.Duration(time.Minute),
		},
	})

	for i := 0; i < 2; i++ {
		_, err := client.ListCampaigns(context.Background(), 10, 0)
		require.True(t, IsAPIError(err))
	}

	// Third call is rejected by the open breaker without hitting the wire.
	_, err := client.ListCampaigns(context.Background(), 10, 0)
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv, &config.APIConfig{
		Breaker: config.BreakerConfig{
			FailureThreshold: 2,
			Timeout:          config.Duration(time.Minute),
		},
	})

	for i := 0; i < 5; i++ {
		_, err := client.ListCampaigns(context.Background(), 10, 0)
		require.True(t, IsAPIError(err))
		assert.False(t, IsCircuitOpen(err))
	}
}

func TestClient_HeaderProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("request must not reach the wire without headers")
	}))
	defer srv.Close()

	client := New(&config.APIConfig{BaseURL: srv.URL}, failingHeaders{},
		WithHTTPClient(srv.Client()))

	_, err := client.ListCampaigns(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

// failingHeaders always fails header derivation.
type failingHeaders struct{}

func (failingHeaders) Headers(_ context.Context) (auth.RequestHeaders, error) {
	return auth.RequestHeaders{}, fmt.Errorf("no credentials")
}
