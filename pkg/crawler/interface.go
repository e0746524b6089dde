package crawler

import (
	"context"
	"time"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// DefaultUserAgent is the client signature sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (compatible; corpuscrawl/1.0)"

// Runner defines the interface for crawl runs
type Runner interface {
	// Crawl runs a crawl from the given seeds
	Crawl(seeds []string) (*models.CrawlResult, error)

	// CrawlWithContext runs a crawl with a context for cancellation
	CrawlWithContext(ctx context.Context, seeds []string) (*models.CrawlResult, error)
}

// Policy bounds the traversal frontier
type Policy struct {
	MaxDepth              int           // Deepest crawl_depth recorded; 0 crawls only the seeds
	MaxLinksPerPage       int           // Eligible links kept per page
	MaxConcurrentChildren int           // Kept links expanded into child tasks per page
	RequestDelay          time.Duration // Minimum spacing between any two fetches
}

// DefaultPolicy returns the frontier defaults
func DefaultPolicy() Policy {
	return Policy{
		MaxDepth:              2,
		MaxLinksPerPage:       10,
		MaxConcurrentChildren: 5,
		RequestDelay:          time.Second,
	}
}

// Options contains configuration for the crawler
type Options struct {
	Policy          Policy
	Workers         int           // Seeds traversed concurrently
	UserAgent       string        // User agent string
	Timeout         time.Duration // Per-request timeout
	RunTimeout      time.Duration // Whole-run timeout; 0 disables it
	ContentLimit    int           // Characters of text kept per record
	MaxBodyBytes    int64         // Response body cap
	AllowSubdomains bool          // Treat hosts sharing the seed's eTLD+1 as same-origin
	MainContent     bool          // Extract article text instead of all visible text
	Annotate        bool          // Tag entities in page text
}

// DefaultOptions returns options matching the documented defaults
func DefaultOptions() Options {
	return Options{
		Policy:       DefaultPolicy(),
		Workers:      1,
		UserAgent:    DefaultUserAgent,
		Timeout:      10 * time.Second,
		RunTimeout:   10 * time.Minute,
		ContentLimit: 2000,
		MaxBodyBytes: 5 * 1024 * 1024,
		Annotate:     true,
	}
}
