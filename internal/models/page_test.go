package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageRecord(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		url     string
		depth   int
		ts      time.Time
		wantErr bool
	}{
		{name: "valid", url: "https://example.test/", depth: 0, ts: now},
		{name: "empty url", url: "", depth: 0, ts: now, wantErr: true},
		{name: "negative depth", url: "https://example.test/", depth: -1, ts: now, wantErr: true},
		{name: "zero timestamp", url: "https://example.test/", depth: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := NewPageRecord(tt.url, "t", "c", Metadata{}, nil, nil, tt.depth, tt.ts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.url, rec.URL)
			assert.NotNil(t, rec.Entities)
			assert.NotNil(t, rec.Links)
			assert.NotNil(t, rec.Metadata.Keywords)
		})
	}
}

func TestPageRecordJSONShape(t *testing.T) {
	rec, err := NewPageRecord("https://example.test/", "Home", "hello", Metadata{URL: "https://example.test/", ContentType: "text/html"}, nil, nil, 0, time.Now())
	require.NoError(t, err)

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var shape map[string]any
	require.NoError(t, json.Unmarshal(data, &shape))
	for _, key := range []string{"url", "title", "content", "metadata", "entities", "links", "crawl_depth", "timestamp"} {
		assert.Contains(t, shape, key)
	}
	assert.Len(t, shape, 8)

	meta := shape["metadata"].(map[string]any)
	assert.Equal(t, []any{}, meta["keywords"])
	assert.Nil(t, meta["last_modified"])
}
