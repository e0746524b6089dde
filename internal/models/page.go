package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord is returned when a PageRecord fails construction checks.
var ErrInvalidRecord = errors.New("invalid page record")

// PageRecord represents one successfully fetched and extracted page
type PageRecord struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Metadata   Metadata  `json:"metadata"`
	Entities   []string  `json:"entities"`
	Links      []string  `json:"links"`
	CrawlDepth int       `json:"crawl_depth"`
	Timestamp  time.Time `json:"timestamp"`
}

// Metadata is derived once from a page's markup and response headers
type Metadata struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Keywords     []string   `json:"keywords"`
	ContentType  string     `json:"content_type"`
	LastModified *time.Time `json:"last_modified"`
}

// NewPageRecord builds a PageRecord and checks its invariants. Nil slices are
// replaced with empty ones so the serialized shape is stable.
func NewPageRecord(url, title, content string, meta Metadata, entities, links []string, depth int, ts time.Time) (PageRecord, error) {
	if url == "" {
		return PageRecord{}, fmt.Errorf("%w: empty url", ErrInvalidRecord)
	}
	if depth < 0 {
		return PageRecord{}, fmt.Errorf("%w: negative depth %d for %s", ErrInvalidRecord, depth, url)
	}
	if ts.IsZero() {
		return PageRecord{}, fmt.Errorf("%w: zero timestamp for %s", ErrInvalidRecord, url)
	}
	if meta.Keywords == nil {
		meta.Keywords = []string{}
	}
	if entities == nil {
		entities = []string{}
	}
	if links == nil {
		links = []string{}
	}
	return PageRecord{
		URL:        url,
		Title:      title,
		Content:    content,
		Metadata:   meta,
		Entities:   entities,
		Links:      links,
		CrawlDepth: depth,
		Timestamp:  ts,
	}, nil
}

// Failure records a page that could not be crawled
type Failure struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Error string `json:"error"`
}

// CrawlResult contains the results of a crawl run
type CrawlResult struct {
	RunID      string       `json:"run_id"`
	Seeds      []string     `json:"seeds"`
	Pages      []PageRecord `json:"pages"`
	TotalPages int          `json:"total_pages"`
	ErrorCount int          `json:"error_count"`
	Failures   []Failure    `json:"failures"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}
