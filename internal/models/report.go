package models

import "time"

// CorpusReport summarises a persisted corpus
type CorpusReport struct {
	GeneratedAt          time.Time     `json:"generated_at"`
	TotalPages           int           `json:"total_pages"`
	PagesByDepth         map[int]int   `json:"pages_by_depth"`
	AverageContentLength float64       `json:"average_content_length"`
	TopEntities          []EntityCount `json:"top_entities"`
	TopPages             []PageScore   `json:"top_pages"`
	Findings             []Finding     `json:"findings"`
}

// EntityCount is the number of pages mentioning an entity
type EntityCount struct {
	Entity string `json:"entity"`
	Pages  int    `json:"pages"`
}

// PageScore pairs a page with its link-graph rank
type PageScore struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	PageRank float64 `json:"pagerank"`
}

// Finding represents a corpus quality issue
type Finding struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Details     string `json:"details,omitempty"`
}
