package streams

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Stream names, in discovery order.
const (
	StreamCampaign                 = "campaign"
	StreamCampaignFlat             = "campaign_flat"
	StreamCampaignReports          = "campaign_level_reports"
	StreamCampaignReportsSpend     = "campaign_level_reports_extended_spend_row"
	StreamCampaignReportsSpendFlat = "campaign_level_reports_extended_spend_row_flat"
	StreamImpressionShare          = "impression_share_reports"
)

// Streams lists every stream the tap can sync.
var Streams = []string{
	StreamCampaign,
	StreamCampaignFlat,
	StreamCampaignReports,
	StreamCampaignReportsSpend,
	StreamCampaignReportsSpendFlat,
	StreamImpressionShare,
}

//go:embed schemas/*.json
var schemaFS embed.FS

// LoadSchema returns the embedded JSON schema for a stream.
func LoadSchema(stream string) (json.RawMessage, error) {
	data, err := schemaFS.ReadFile("schemas/" + stream + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown stream %q: %w", stream, err)
	}
	return data, nil
}

// Catalog is the set of streams a run may sync.
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// CatalogEntry describes one stream: its schema plus selection metadata.
type CatalogEntry struct {
	Stream      string          `json:"stream"`
	TapStreamID string          `json:"tap_stream_id"`
	Schema      json.RawMessage `json:"schema"`
	Metadata    []Metadata      `json:"metadata"`
}

// Metadata is one metadata entry. An empty breadcrumb addresses the whole
// stream.
type Metadata struct {
	Metadata   map[string]interface{} `json:"metadata"`
	Breadcrumb []string               `json:"breadcrumb"`
}

// streamMetadata returns the whole-stream metadata map, if any.
func (e *CatalogEntry) streamMetadata() map[string]interface{} {
	for _, m := range e.Metadata {
		if len(m.Breadcrumb) == 0 {
			return m.Metadata
		}
	}
	return nil
}

// Selected reports whether the stream is selected for sync.
func (e *CatalogEntry) Selected() bool {
	meta := e.streamMetadata()
	if meta == nil {
		return false
	}
	selected, _ := meta["selected"].(bool)
	return selected
}

// KeyProperties returns the stream's key properties from metadata.
func (e *CatalogEntry) KeyProperties() []string {
	meta := e.streamMetadata()
	if meta == nil {
		return nil
	}

	raw, ok := meta["key-properties"].([]interface{})
	if !ok {
		return nil
	}

	props := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			props = append(props, s)
		}
	}
	return props
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	return &catalog, nil
}

// DiscoverCatalog builds the full catalog from the embedded schemas, with
// every stream deselected.
func DiscoverCatalog() (*Catalog, error) {
	catalog := &Catalog{Streams: make([]CatalogEntry, 0, len(Streams))}

	for _, stream := range Streams {
		schema, err := LoadSchema(stream)
		if err != nil {
			return nil, err
		}

		catalog.Streams = append(catalog.Streams, CatalogEntry{
			Stream:      stream,
			TapStreamID: stream,
			Schema:      schema,
			Metadata: []Metadata{
				{
					Metadata:   map[string]interface{}{"selected": false},
					Breadcrumb: []string{},
				},
			},
		})
	}

	return catalog, nil
}

// WriteCatalog renders a catalog as indented JSON, the discover-mode
// output format.
func WriteCatalog(catalog *Catalog, w io.Writer) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
