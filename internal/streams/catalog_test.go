package streams

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSchema_AllStreams(t *testing.T) {
	for _, stream := range Streams {
		schema, err := LoadSchema(stream)
		require.NoError(t, err, stream)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(schema, &decoded), stream)
		assert.Equal(t, "object", decoded["type"], stream)
	}
}

func TestLoadSchema_Unknown(t *testing.T) {
	_, err := LoadSchema("no_such_stream")
	assert.Error(t, err)
}

func TestDiscoverCatalog(t *testing.T) {
	catalog, err := DiscoverCatalog()
	require.NoError(t, err)
	require.Len(t, catalog.Streams, len(Streams))

	for i, entry := range catalog.Streams {
		assert.Equal(t, Streams[i], entry.Stream)
		assert.Equal(t, Streams[i], entry.TapStreamID)
		assert.False(t, entry.Selected())
		assert.NotEmpty(t, entry.Schema)
	}
}

func TestWriteCatalog_RoundTrips(t *testing.T) {
	catalog, err := DiscoverCatalog()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(catalog, &buf))

	var decoded Catalog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Streams, len(Streams))
}

func TestCatalogEntry_SelectionMetadata(t *testing.T) {
	entry := CatalogEntry{
		Stream: StreamCampaign,
		Metadata: []Metadata{
			{
				Metadata: map[string]interface{}{
					"selected":       true,
					"key-properties": []interface{}{"id"},
				},
				Breadcrumb: []string{},
			},
			{
				Metadata:   map[string]interface{}{"selected": false},
				Breadcrumb: []string{"properties", "name"},
			},
		},
	}

	assert.True(t, entry.Selected())
	assert.Equal(t, []string{"id"}, entry.KeyProperties())
}

func TestCatalogEntry_NoMetadata(t *testing.T) {
	entry := CatalogEntry{Stream: StreamCampaign}
	assert.False(t, entry.Selected())
	assert.Nil(t, entry.KeyProperties())
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"streams": [{
			"stream": "campaign",
			"tap_stream_id": "campaign",
			"schema": {"type": "object"},
			"metadata": [{"metadata": {"selected": true}, "breadcrumb": []}]
		}]
	}`), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Streams, 1)
	assert.True(t, catalog.Streams[0].Selected())
}

func TestLoadCatalog_Missing(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
