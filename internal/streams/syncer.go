package streams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vyrodovalexey/searchads-tap/internal/api"
	"github.com/vyrodovalexey/searchads-tap/internal/auth"
	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// ErrUnknownStream indicates a catalog entry naming a stream the tap does
// not implement.
var ErrUnknownStream = errors.New("unknown stream")

// dateLayout is the report window date format.
const dateLayout = "2006-01-02"

// bookmarkDate is the impression share stream's replication key.
const bookmarkDate = "date"

// Syncer runs the selected catalog streams against the data API and emits
// Singer messages. Auth happens before a Syncer exists; by the time Sync
// runs, every request already has its headers.
type Syncer struct {
	client  *api.Client
	emitter *Emitter
	extract config.ExtractConfig
	logger  observability.Logger
	clock   auth.Clock

	pollInterval time.Duration
}

// SyncerOption is a functional option for configuring the syncer.
type SyncerOption func(*Syncer)

// WithSyncerLogger sets the syncer logger.
func WithSyncerLogger(logger observability.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithClock sets the clock used for default report windows.
func WithClock(clock auth.Clock) SyncerOption {
	return func(s *Syncer) {
		s.clock = clock
	}
}

// WithPollInterval sets the asynchronous report poll interval.
func WithPollInterval(interval time.Duration) SyncerOption {
	return func(s *Syncer) {
		s.pollInterval = interval
	}
}

// NewSyncer creates a syncer.
func NewSyncer(client *api.Client, emitter *Emitter, extract config.ExtractConfig, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		client:       client,
		emitter:      emitter,
		extract:      extract,
		logger:       observability.NopLogger(),
		clock:        auth.SystemClock(),
		pollInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sync runs every selected stream in catalog order. The state is emitted
// after each stream so an interrupted run keeps its completed bookmarks.
func (s *Syncer) Sync(ctx context.Context, catalog *Catalog, state *State) error {
	if state == nil {
		state = NewState()
	}

	for i := range catalog.Streams {
		entry := &catalog.Streams[i]
		name := entry.TapStreamID
		if name == "" {
			name = entry.Stream
		}

		if !entry.Selected() {
			s.logger.Info("stream skipped",
				observability.String("stream", name))
			continue
		}

		start := time.Now()
		s.logger.Info("stream sync started",
			observability.String("stream", name))

		if err := s.emitter.Schema(name, entry.Schema, entry.KeyProperties()); err != nil {
			return fmt.Errorf("emitting schema for %s: %w", name, err)
		}

		count, err := s.syncStream(ctx, name, state)
		if err != nil {
			syncErrors.WithLabelValues(name).Inc()
			return fmt.Errorf("syncing %s: %w", name, err)
		}

		if err := s.emitter.State(state); err != nil {
			return fmt.Errorf("emitting state after %s: %w", name, err)
		}

		syncDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		s.logger.Info("stream sync completed",
			observability.String("stream", name),
			observability.Int("records", count),
			observability.Duration("elapsed", time.Since(start)))
	}

	return nil
}

// syncStream dispatches one stream by name and returns the emitted record
// count.
func (s *Syncer) syncStream(ctx context.Context, name string, state *State) (int, error) {
	switch name {
	case StreamCampaign:
		return s.syncCampaigns(ctx, name, nil)
	case StreamCampaignFlat:
		return s.syncCampaigns(ctx, name, Flatten)
	case StreamCampaignReports:
		return s.syncCampaignReports(ctx, name, false, nil)
	case StreamCampaignReportsSpend:
		return s.syncCampaignReports(ctx, name, true, nil)
	case StreamCampaignReportsSpendFlat:
		return s.syncCampaignReports(ctx, name, true, Flatten)
	case StreamImpressionShare:
		return s.syncImpressionShare(ctx, name, state)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownStream, name)
	}
}

// emit writes one record, applying the optional transform.
func (s *Syncer) emit(name string, record map[string]interface{}, transform func(map[string]interface{}) map[string]interface{}) error {
	if transform != nil {
		record = transform(record)
	}
	if err := s.emitter.Record(name, record); err != nil {
		return err
	}
	recordsEmitted.WithLabelValues(name).Inc()
	return nil
}

// syncCampaigns streams every campaign page.
func (s *Syncer) syncCampaigns(
	ctx context.Context, name string, transform func(map[string]interface{}) map[string]interface{},
) (int, error) {
	count := 0
	err := s.client.ForEachCampaign(ctx, api.DefaultPageSize, func(rec api.Record) error {
		if err := s.emit(name, rec, transform); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// syncCampaignReports runs the campaign-level report over the configured
// window. One record is emitted per campaign per granularity bucket, the
// campaign metadata merged into each bucket. With totals enabled the row
// total rides along under "total".
func (s *Syncer) syncCampaignReports(
	ctx context.Context, name string, withTotals bool, transform func(map[string]interface{}) map[string]interface{},
) (int, error) {
	query := api.ReportQuery{
		StartTime:       s.extract.StartTime,
		EndTime:         s.extract.EndTime,
		Granularity:     "DAILY",
		ReturnRowTotals: withTotals,
		Selector:        s.extract.Selector,
	}

	rows, err := s.client.CampaignReport(ctx, query)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, row := range rows {
		for _, bucket := range row.Granularity {
			record := make(map[string]interface{}, len(row.Metadata)+len(bucket)+1)
			for k, v := range row.Metadata {
				record[k] = v
			}
			for k, v := range bucket {
				record[k] = v
			}
			if withTotals && row.Total != nil {
				record["total"] = row.Total
			}

			if err := s.emit(name, record, transform); err != nil {
				return count, err
			}
			count++
		}
	}

	return count, nil
}

// syncImpressionShare runs the asynchronous impression share report. The
// stream is incremental: the window starts the day after the last synced
// date and the bookmark advances to the newest date seen.
func (s *Syncer) syncImpressionShare(ctx context.Context, name string, state *State) (int, error) {
	window, err := s.impressionShareWindow(name, state)
	if err != nil {
		return 0, err
	}

	s.logger.Info("impression share window",
		observability.String("startTime", window.start),
		observability.String("endTime", window.end))

	created, err := s.client.CreateImpressionShareReport(ctx, api.CustomReportRequest{
		Name:        fmt.Sprintf("%s-%s", name, window.end),
		StartTime:   window.start,
		EndTime:     window.end,
		Granularity: "DAILY",
		Selector:    s.extract.Selector,
	})
	if err != nil {
		return 0, err
	}

	report, err := s.client.WaitForImpressionShareReport(ctx, created.ID, s.pollInterval)
	if err != nil {
		return 0, err
	}

	rows, err := s.client.DownloadImpressionShareReport(ctx, report)
	if err != nil {
		return 0, err
	}

	maxDate := ""
	for _, row := range rows {
		if err := s.emit(name, row, nil); err != nil {
			return 0, err
		}
		if date, ok := row[bookmarkDate].(string); ok && date > maxDate {
			maxDate = date
		}
	}

	if maxDate != "" {
		state.SetBookmark(name, bookmarkDate, maxDate)
	}
	state.SetBookmark(name, "latestRecordCount", len(rows))

	return len(rows), nil
}

// reportWindow is a resolved start/end date pair.
type reportWindow struct {
	start string
	end   string
}

// impressionShareWindow resolves the report window: the bookmark, when
// present, supersedes the configured start and advances one day past the
// last synced date; an absent end defaults to yesterday.
func (s *Syncer) impressionShareWindow(name string, state *State) (reportWindow, error) {
	window := reportWindow{
		start: s.extract.StartTime,
		end:   s.extract.EndTime,
	}

	if bookmark, ok := state.StringBookmark(name, bookmarkDate); ok {
		last, err := time.Parse(dateLayout, bookmark)
		if err != nil {
			return reportWindow{}, fmt.Errorf("malformed %s bookmark %q: %w", bookmarkDate, bookmark, err)
		}
		window.start = last.AddDate(0, 0, 1).Format(dateLayout)
	}

	if window.end == "" {
		window.end = s.clock.Now().UTC().AddDate(0, 0, -1).Format(dateLayout)
	}

	return window, nil
}
