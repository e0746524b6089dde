package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

func record(url, title, content string, depth int, entities []string, links ...string) models.PageRecord {
	return models.PageRecord{
		URL:        url,
		Title:      title,
		Content:    content,
		Metadata:   models.Metadata{URL: url, Title: title, Keywords: []string{}},
		Entities:   entities,
		Links:      links,
		CrawlDepth: depth,
		Timestamp:  time.Now(),
	}
}

func corpus() []models.PageRecord {
	words := strings.Repeat("word ", 60)
	return []models.PageRecord{
		record("https://ex.test/", "Home", words, 0, []string{"ISRO", "INSAT-3D"}, "https://ex.test/a", "https://ex.test/b"),
		record("https://ex.test/a", "Page", "short text", 1, []string{"isro"}, "https://ex.test/", "https://other.test/"),
		record("https://ex.test/b", "Page", words, 1, []string{"MOSDAC", "ISRO"}, "https://ex.test/"),
		record("https://ex.test/c", "", words, 2, nil, "https://ex.test/"),
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	report := New().Analyze(nil)
	assert.Zero(t, report.TotalPages)
	assert.Empty(t, report.PagesByDepth)
	assert.Empty(t, report.TopEntities)
	assert.Empty(t, report.Findings)
	assert.Zero(t, report.AverageContentLength)
}

func TestAnalyzeSummary(t *testing.T) {
	records := corpus()
	report := New().Analyze(records)

	assert.Equal(t, 4, report.TotalPages)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 1}, report.PagesByDepth)
	assert.InDelta(t, float64(300+10+300+300)/4, report.AverageContentLength, 0.001)

	require.NotEmpty(t, report.TopEntities)
	assert.Equal(t, models.EntityCount{Entity: "ISRO", Pages: 3}, report.TopEntities[0])
	assert.Len(t, report.TopEntities, 3)
}

func TestPageRank(t *testing.T) {
	ranks := PageRank(corpus())
	require.Len(t, ranks, 4)

	sum := 0.0
	for _, r := range ranks {
		sum += r
	}
	assert.Greater(t, ranks["https://ex.test/"], ranks["https://ex.test/a"])
	assert.Greater(t, ranks["https://ex.test/a"], ranks["https://ex.test/c"])
	assert.InDelta(t, ranks["https://ex.test/a"], ranks["https://ex.test/b"], 1e-9)
	assert.LessOrEqual(t, sum, 1.0+1e-9)

	assert.Empty(t, PageRank(nil))
}

func TestTopPagesOrdered(t *testing.T) {
	report := New().Analyze(corpus())
	require.Len(t, report.TopPages, 4)
	assert.Equal(t, "https://ex.test/", report.TopPages[0].URL)
	for i := 1; i < len(report.TopPages); i++ {
		assert.GreaterOrEqual(t, report.TopPages[i-1].PageRank, report.TopPages[i].PageRank)
	}

	limited := NewWithConfig(&Config{AnalyzePageRank: true, TopN: 2}).Analyze(corpus())
	assert.Len(t, limited.TopPages, 2)
	assert.Empty(t, limited.Findings)
}

func TestFindings(t *testing.T) {
	report := New().Analyze(corpus())

	types := make(map[string]models.Finding)
	for _, f := range report.Findings {
		types[f.Type] = f
	}

	require.Contains(t, types, "Missing Title")
	assert.Equal(t, "https://ex.test/c", types["Missing Title"].Details)

	require.Contains(t, types, "Duplicate Title")
	assert.Contains(t, types["Duplicate Title"].Description, "'Page'")
	assert.Equal(t, "https://ex.test/a, https://ex.test/b", types["Duplicate Title"].Details)

	require.Contains(t, types, "Missing Meta Descriptions")
	assert.Equal(t, "4 pages lack meta descriptions", types["Missing Meta Descriptions"].Description)

	require.Contains(t, types, "Thin Content")
	assert.Equal(t, "1 pages have less than 50 words", types["Thin Content"].Description)

	for i := 1; i < len(report.Findings); i++ {
		assert.LessOrEqual(t,
			severityOrder[report.Findings[i-1].Severity],
			severityOrder[report.Findings[i].Severity])
	}
}
