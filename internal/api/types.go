package api

import "encoding/json"

// Pagination mirrors the data API's pagination envelope.
type Pagination struct {
	TotalResults int `json:"totalResults"`
	StartIndex   int `json:"startIndex"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// listResponse is the envelope of paginated list endpoints.
type listResponse struct {
	Data       []json.RawMessage `json:"data"`
	Pagination *Pagination       `json:"pagination"`
}

// Record is a single API object, kept as a decoded JSON document so stream
// schemas decide which fields matter.
type Record = map[string]interface{}

// CampaignPage is one page of the campaign list.
type CampaignPage struct {
	Campaigns  []Record
	Pagination Pagination
}

// ReportQuery is the body of a report request. Selector is forwarded
// opaquely from configuration.
type ReportQuery struct {
	StartTime                  string                 `json:"startTime"`
	EndTime                    string                 `json:"endTime"`
	Granularity                string                 `json:"granularity,omitempty"`
	TimeZone                   string                 `json:"timeZone,omitempty"`
	ReturnRecordsWithNoMetrics bool                   `json:"returnRecordsWithNoMetrics"`
	ReturnRowTotals            bool                   `json:"returnRowTotals"`
	ReturnGrandTotals          bool                   `json:"returnGrandTotals"`
	Selector                   map[string]interface{} `json:"selector,omitempty"`
}

// ReportRow is one row of a report response: per-entity metadata plus its
// metric buckets.
type ReportRow struct {
	Metadata    Record   `json:"metadata"`
	Granularity []Record `json:"granularity,omitempty"`
	Total       Record   `json:"total,omitempty"`
	Insights    Record   `json:"insights,omitempty"`
	Other       bool     `json:"other"`
}

// reportResponse is the envelope of report endpoints.
type reportResponse struct {
	Data struct {
		ReportingDataResponse struct {
			Row []ReportRow `json:"row"`
		} `json:"reportingDataResponse"`
	} `json:"data"`
	Pagination *Pagination `json:"pagination"`
}

// CustomReport is an asynchronous impression share report job.
type CustomReport struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Granularity string `json:"granularity"`
	DownloadURI string `json:"downloadUri"`
}

// Custom report states.
const (
	ReportStateQueued     = "QUEUED"
	ReportStateInProgress = "IN_PROGRESS"
	ReportStateCompleted  = "COMPLETED"
	ReportStateFailed     = "FAILED"
)

// CustomReportRequest creates an impression share report job.
type CustomReportRequest struct {
	Name        string                 `json:"name"`
	StartTime   string                 `json:"startTime"`
	EndTime     string                 `json:"endTime"`
	Granularity string                 `json:"granularity"`
	Selector    map[string]interface{} `json:"selector,omitempty"`
}

// customReportResponse is the envelope of custom report endpoints.
type customReportResponse struct {
	Data CustomReport `json:"data"`
}
