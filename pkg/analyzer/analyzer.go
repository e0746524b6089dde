package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

const (
	// ThinContentWords is the word count below which a page counts as thin
	ThinContentWords = 50

	dampingFactor = 0.85
	iterations    = 100
)

// Analyzer summarises a crawled corpus
type Analyzer struct {
	config *Config
}

// Config holds analyzer configuration
type Config struct {
	AnalyzePageRank bool
	AnalyzeContent  bool
	TopN            int // Length of the top entity and top page lists
}

// New creates a new Analyzer instance
func New() *Analyzer {
	return &Analyzer{
		config: &Config{
			AnalyzePageRank: true,
			AnalyzeContent:  true,
			TopN:            10,
		},
	}
}

// NewWithConfig creates an Analyzer with custom configuration
func NewWithConfig(config *Config) *Analyzer {
	if config.TopN <= 0 {
		config.TopN = 10
	}
	return &Analyzer{config: config}
}

// Analyze builds a report over records. An empty corpus yields an empty
// report rather than an error.
func (a *Analyzer) Analyze(records []models.PageRecord) *models.CorpusReport {
	report := &models.CorpusReport{
		GeneratedAt:  time.Now().UTC(),
		TotalPages:   len(records),
		PagesByDepth: make(map[int]int),
		TopEntities:  []models.EntityCount{},
		TopPages:     []models.PageScore{},
		Findings:     []models.Finding{},
	}
	if len(records) == 0 {
		return report
	}

	total := 0
	for _, rec := range records {
		report.PagesByDepth[rec.CrawlDepth]++
		total += utf8.RuneCountInString(rec.Content)
	}
	report.AverageContentLength = float64(total) / float64(len(records))
	report.TopEntities = a.topEntities(records)

	if a.config.AnalyzePageRank {
		report.TopPages = a.topPages(records, PageRank(records))
	}
	if a.config.AnalyzeContent {
		report.Findings = generateFindings(records)
	}
	return report
}

// topEntities counts how many pages mention each entity. Entities differing
// only in case are merged under the first spelling seen.
func (a *Analyzer) topEntities(records []models.PageRecord) []models.EntityCount {
	counts := make(map[string]int)
	spelling := make(map[string]string)
	for _, rec := range records {
		onPage := make(map[string]bool)
		for _, e := range rec.Entities {
			key := strings.ToLower(e)
			if onPage[key] {
				continue
			}
			onPage[key] = true
			if _, ok := spelling[key]; !ok {
				spelling[key] = e
			}
			counts[key]++
		}
	}

	out := make([]models.EntityCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, models.EntityCount{Entity: spelling[key], Pages: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pages != out[j].Pages {
			return out[i].Pages > out[j].Pages
		}
		return out[i].Entity < out[j].Entity
	})
	if len(out) > a.config.TopN {
		out = out[:a.config.TopN]
	}
	return out
}

func (a *Analyzer) topPages(records []models.PageRecord, ranks map[string]float64) []models.PageScore {
	out := make([]models.PageScore, 0, len(records))
	for _, rec := range records {
		out = append(out, models.PageScore{URL: rec.URL, Title: rec.Title, PageRank: ranks[rec.URL]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageRank != out[j].PageRank {
			return out[i].PageRank > out[j].PageRank
		}
		return out[i].URL < out[j].URL
	})
	if len(out) > a.config.TopN {
		out = out[:a.config.TopN]
	}
	return out
}

// PageRank scores records over the link graph formed by links between pages
// in the corpus. Links leaving the corpus are ignored.
func PageRank(records []models.PageRecord) map[string]float64 {
	pageRank := make(map[string]float64, len(records))
	if len(records) == 0 {
		return pageRank
	}

	known := make(map[string]bool, len(records))
	for _, rec := range records {
		known[rec.URL] = true
	}

	// Build link graph
	outbound := make(map[string]int)
	inbound := make(map[string][]string)
	for _, rec := range records {
		for _, link := range rec.Links {
			if !known[link] || link == rec.URL {
				continue
			}
			outbound[rec.URL]++
			inbound[link] = append(inbound[link], rec.URL)
		}
	}

	pageCount := float64(len(known))
	for url := range known {
		pageRank[url] = 1.0 / pageCount
	}

	for i := 0; i < iterations; i++ {
		next := make(map[string]float64, len(known))
		for url := range known {
			rank := (1.0 - dampingFactor) / pageCount
			for _, from := range inbound[url] {
				rank += dampingFactor * pageRank[from] / float64(outbound[from])
			}
			next[url] = rank
		}
		pageRank = next
	}
	return pageRank
}

var severityOrder = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

func generateFindings(records []models.PageRecord) []models.Finding {
	findings := []models.Finding{}

	var missingTitle, missingDesc, thin []string
	titles := make(map[string][]string)
	for _, rec := range records {
		if strings.TrimSpace(rec.Title) == "" {
			missingTitle = append(missingTitle, rec.URL)
		} else {
			titles[rec.Title] = append(titles[rec.Title], rec.URL)
		}
		if strings.TrimSpace(rec.Metadata.Description) == "" {
			missingDesc = append(missingDesc, rec.URL)
		}
		if len(strings.Fields(rec.Content)) < ThinContentWords {
			thin = append(thin, rec.URL)
		}
	}

	if len(missingTitle) > 0 {
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Type:        "Missing Title",
			Description: fmt.Sprintf("%d pages have no title", len(missingTitle)),
			Severity:    "high",
			Details:     strings.Join(missingTitle, ", "),
		})
	}
	if len(missingDesc) > 0 {
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Type:        "Missing Meta Descriptions",
			Description: fmt.Sprintf("%d pages lack meta descriptions", len(missingDesc)),
			Severity:    "medium",
		})
	}

	duplicated := make([]string, 0)
	for title, urls := range titles {
		if len(urls) > 1 {
			duplicated = append(duplicated, title)
		}
	}
	sort.Strings(duplicated)
	for _, title := range duplicated {
		urls := titles[title]
		findings = append(findings, models.Finding{
			Category:    "Metadata",
			Type:        "Duplicate Title",
			Description: fmt.Sprintf("Title '%s' used on %d pages", title, len(urls)),
			Severity:    "high",
			Details:     strings.Join(urls, ", "),
		})
	}

	if len(thin) > 0 {
		findings = append(findings, models.Finding{
			Category:    "Content",
			Type:        "Thin Content",
			Description: fmt.Sprintf("%d pages have less than %d words", len(thin), ThinContentWords),
			Severity:    "low",
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return severityOrder[findings[i].Severity] < severityOrder[findings[j].Severity]
	})
	return findings
}
