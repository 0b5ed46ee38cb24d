package streams

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/searchads-tap/internal/api"
	"github.com/vyrodovalexey/searchads-tap/internal/auth"
	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// testHeaders satisfies api.HeaderProvider with fixed headers.
type testHeaders struct{}

func (testHeaders) Headers(_ context.Context) (auth.RequestHeaders, error) {
	return auth.RequestHeaders{
		OrgID:         "org1",
		Authorization: "Bearer abc",
		ExpiresAt:     time.Now().Add(time.Hour),
	}, nil
}

// testClock is a fixed clock for default-window resolution.
type testClock struct {
	now time.Time
}

func (c testClock) Now() time.Time { return c.now }

// selectedCatalog builds a catalog with only the named streams selected.
func selectedCatalog(t *testing.T, names ...string) *Catalog {
	t.Helper()

	catalog, err := DiscoverCatalog()
	require.NoError(t, err)

	selected := make(map[string]bool, len(names))
	for _, name := range names {
		selected[name] = true
	}
	for i := range catalog.Streams {
		entry := &catalog.Streams[i]
		entry.Metadata[0].Metadata["selected"] = selected[entry.Stream]
		if selected[entry.Stream] {
			entry.Metadata[0].Metadata["key-properties"] = []interface{}{"id"}
		}
	}

	return catalog
}

func newSyncerAgainst(srv *httptest.Server, buf *bytes.Buffer, extract config.ExtractConfig, opts ...SyncerOption) *Syncer {
	client := api.New(&config.APIConfig{BaseURL: srv.URL}, testHeaders{},
		api.WithHTTPClient(srv.Client()), api.WithLogger(observability.NopLogger()))

	allOpts := append([]SyncerOption{
		WithSyncerLogger(observability.NopLogger()),
		WithPollInterval(10 * time.Millisecond),
	}, opts...)

	return NewSyncer(client, NewEmitter(buf), extract, allOpts...)
}

func messagesOfType(t *testing.T, buf *bytes.Buffer, msgType string) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}
	for _, msg := range decodeLines(t, buf) {
		if msg["type"] == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func TestSyncer_CampaignStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/campaigns", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": 1, "name": "camp-a", "budgetAmount": {"amount": "100", "currency": "USD"}}
			],
			"pagination": {"totalResults": 1, "startIndex": 0, "itemsPerPage": 1000}
		}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{})

	catalog := selectedCatalog(t, StreamCampaign, StreamCampaignFlat)
	require.NoError(t, syncer.Sync(context.Background(), catalog, NewState()))

	schemas := messagesOfType(t, &buf, "SCHEMA")
	require.Len(t, schemas, 2)
	assert.Equal(t, []interface{}{"id"}, schemas[0]["key_properties"])

	records := messagesOfType(t, &buf, "RECORD")
	require.Len(t, records, 2)

	nested := records[0]["record"].(map[string]interface{})
	budget := nested["budgetAmount"].(map[string]interface{})
	assert.Equal(t, "USD", budget["currency"])

	flat := records[1]["record"].(map[string]interface{})
	assert.Equal(t, "campaign_flat", records[1]["stream"])
	assert.Equal(t, "USD", flat["budgetAmount_currency"])
	assert.NotContains(t, flat, "budgetAmount")

	// One STATE message per synced stream.
	assert.Len(t, messagesOfType(t, &buf, "STATE"), 2)
}

func TestSyncer_SkipsUnselectedStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no stream selected, no request expected")
	}))
	defer srv.Close()

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{})

	catalog := selectedCatalog(t) // nothing selected
	require.NoError(t, syncer.Sync(context.Background(), catalog, NewState()))
	assert.Zero(t, buf.Len())
}

func TestSyncer_CampaignReports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reports/campaigns", r.URL.Path)

		var query api.ReportQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		assert.Equal(t, "2026-08-01", query.StartTime)
		assert.Equal(t, "DAILY", query.Granularity)

		_, _ = w.Write([]byte(`{
			"data": {"reportingDataResponse": {"row": [{
				"metadata": {"campaignId": 1, "campaignName": "camp-a"},
				"granularity": [
					{"date": "2026-08-01", "impressions": 10},
					{"date": "2026-08-02", "impressions": 20}
				]
			}]}}
		}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{
		StartTime: "2026-08-01",
		EndTime:   "2026-08-22",
	})

	catalog := selectedCatalog(t, StreamCampaignReports)
	require.NoError(t, syncer.Sync(context.Background(), catalog, NewState()))

	records := messagesOfType(t, &buf, "RECORD")
	require.Len(t, records, 2)

	first := records[0]["record"].(map[string]interface{})
	assert.Equal(t, float64(1), first["campaignId"])
	assert.Equal(t, "2026-08-01", first["date"])
	assert.Equal(t, float64(10), first["impressions"])
}

func TestSyncer_ExtendedSpendRowFlat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query api.ReportQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		assert.True(t, query.ReturnRowTotals)

		_, _ = w.Write([]byte(`{
			"data": {"reportingDataResponse": {"row": [{
				"metadata": {"campaignId": 1},
				"granularity": [{"date": "2026-08-01", "impressions": 10}],
				"total": {"impressions": 10, "localSpend": {"amount": "42.5", "currency": "USD"}}
			}]}}
		}`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{
		StartTime: "2026-08-01",
		EndTime:   "2026-08-22",
	})

	catalog := selectedCatalog(t, StreamCampaignReportsSpendFlat)
	require.NoError(t, syncer.Sync(context.Background(), catalog, NewState()))

	records := messagesOfType(t, &buf, "RECORD")
	require.Len(t, records, 1)

	record := records[0]["record"].(map[string]interface{})
	assert.Equal(t, "42.5", record["total_localSpend_amount"])
	assert.NotContains(t, record, "total")
}

func impressionShareServer(t *testing.T, capture *api.CustomReportRequest) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/custom-reports", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"id": 42, "state": api.ReportStateQueued},
		})
	})
	mux.HandleFunc("/custom-reports/42", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"id":          42,
				"state":       api.ReportStateCompleted,
				"downloadUri": srv.URL + "/downloads/42",
			},
		})
	})
	mux.HandleFunc("/downloads/42", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"date": "2026-08-20", "lowImpressionShare": 0.1, "highImpressionShare": 0.3},
			{"date": "2026-08-21", "lowImpressionShare": 0.2, "highImpressionShare": 0.4}
		]`))
	})

	return srv
}

func TestSyncer_ImpressionShareAdvancesBookmark(t *testing.T) {
	var captured api.CustomReportRequest
	srv := impressionShareServer(t, &captured)

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{
		StartTime: "2026-08-01",
		EndTime:   "2026-08-22",
	})

	state := NewState()
	state.SetBookmark(StreamImpressionShare, "date", "2026-08-19")

	catalog := selectedCatalog(t, StreamImpressionShare)
	require.NoError(t, syncer.Sync(context.Background(), catalog, state))

	// The bookmark supersedes the configured start: window opens the day
	// after the last synced date.
	assert.Equal(t, "2026-08-20", captured.StartTime)
	assert.Equal(t, "2026-08-22", captured.EndTime)

	date, ok := state.StringBookmark(StreamImpressionShare, "date")
	require.True(t, ok)
	assert.Equal(t, "2026-08-21", date)

	count, ok := state.Bookmark(StreamImpressionShare, "latestRecordCount")
	require.True(t, ok)
	assert.Equal(t, 2, count)

	assert.Len(t, messagesOfType(t, &buf, "RECORD"), 2)
}

func TestSyncer_ImpressionShareDefaultEndIsYesterday(t *testing.T) {
	var captured api.CustomReportRequest
	srv := impressionShareServer(t, &captured)

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{
		StartTime: "2026-08-01",
	}, WithClock(testClock{now: time.Date(2026, 8, 23, 15, 0, 0, 0, time.UTC)}))

	catalog := selectedCatalog(t, StreamImpressionShare)
	require.NoError(t, syncer.Sync(context.Background(), catalog, NewState()))

	assert.Equal(t, "2026-08-01", captured.StartTime)
	assert.Equal(t, "2026-08-22", captured.EndTime)
}

func TestSyncer_APIFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	syncer := newSyncerAgainst(srv, &buf, config.ExtractConfig{})

	catalog := selectedCatalog(t, StreamCampaign)
	err := syncer.Sync(context.Background(), catalog, NewState())
	require.Error(t, err)
	assert.True(t, api.IsAPIError(err))

	// The schema went out before the failure, but no state followed.
	assert.Len(t, messagesOfType(t, &buf, "STATE"), 0)
}
