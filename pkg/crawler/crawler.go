package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/annotator"
	"github.com/amosWeiskopf/corpuscrawl/pkg/extractor"
	"github.com/amosWeiskopf/corpuscrawl/pkg/fetcher"
	"github.com/amosWeiskopf/corpuscrawl/pkg/validator"
)

var _ Runner = (*Crawler)(nil)

// Crawler walks a bounded site graph depth-first from a set of seeds
type Crawler struct {
	opts      Options
	fetcher   fetcher.Fetcher
	extractor *extractor.Extractor
	annotator annotator.Annotator
	validator validator.Validator
	logger    *zap.Logger
}

// Option overrides a collaborator of the Crawler
type Option func(*Crawler)

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Crawler) {
		c.fetcher = f
	}
}

// WithAnnotator replaces the entity annotator. It is only consulted when
// Options.Annotate is set.
func WithAnnotator(a annotator.Annotator) Option {
	return func(c *Crawler) {
		c.annotator = a
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) {
		c.logger = l
	}
}

// New creates a Crawler. Zero-valued transport options fall back to their
// defaults; an invalid frontier policy is rejected.
func New(opts Options, setters ...Option) (*Crawler, error) {
	p := opts.Policy
	switch {
	case p.MaxDepth < 0:
		return nil, fmt.Errorf("max depth must not be negative, got %d", p.MaxDepth)
	case p.MaxLinksPerPage <= 0:
		return nil, fmt.Errorf("max links per page must be positive, got %d", p.MaxLinksPerPage)
	case p.MaxConcurrentChildren <= 0:
		return nil, fmt.Errorf("max concurrent children must be positive, got %d", p.MaxConcurrentChildren)
	case p.RequestDelay < 0:
		return nil, fmt.Errorf("request delay must not be negative, got %s", p.RequestDelay)
	}

	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = extractor.DefaultContentLimit
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	c := &Crawler{
		opts:      opts,
		extractor: extractor.New(extractor.Options{MainContent: opts.MainContent}),
		validator: validator.Validator{AllowSubdomains: opts.AllowSubdomains},
		logger:    zap.NewNop(),
	}
	for _, set := range setters {
		set(c)
	}

	if c.fetcher == nil {
		c.fetcher = fetcher.NewHTTPFetcher(fetcher.Options{
			UserAgent:    opts.UserAgent,
			Timeout:      opts.Timeout,
			MaxBodyBytes: opts.MaxBodyBytes,
		})
	}
	if !opts.Annotate {
		c.annotator = nil
	} else if c.annotator == nil {
		c.annotator = annotator.NewPatternAnnotator()
	}
	return c, nil
}

// task is one frontier entry. origin is the host of the seed it descends from.
type task struct {
	url    string
	depth  int
	origin string
}

// run is the state of a single crawl. Nothing in it outlives the call that
// created it, so runs on the same Crawler are independent.
type run struct {
	id      string
	visited *VisitedSet
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	pages    []models.PageRecord
	failures []models.Failure
}

func (r *run) record(p models.PageRecord) {
	r.mu.Lock()
	r.pages = append(r.pages, p)
	r.mu.Unlock()
}

func (r *run) fail(url string, depth int, err error) {
	r.mu.Lock()
	r.failures = append(r.failures, models.Failure{URL: url, Depth: depth, Error: err.Error()})
	r.mu.Unlock()
}

func (c *Crawler) newRun() *run {
	limit := rate.Inf
	if d := c.opts.Policy.RequestDelay; d > 0 {
		limit = rate.Every(d)
	}
	id := uuid.NewString()
	return &run{
		id:      id,
		visited: NewVisitedSet(),
		limiter: rate.NewLimiter(limit, 1),
		logger:  c.logger.With(zap.String("run_id", id)),
	}
}

// Crawl runs a crawl without cancellation beyond Options.RunTimeout
func (c *Crawler) Crawl(seeds []string) (*models.CrawlResult, error) {
	return c.CrawlWithContext(context.Background(), seeds)
}

// CrawlWithContext crawls from seeds until the frontier is exhausted or ctx
// ends. The result is never nil: when the run is cut short it holds every
// page completed so far and the error reports why.
func (c *Crawler) CrawlWithContext(ctx context.Context, seeds []string) (*models.CrawlResult, error) {
	if c.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.RunTimeout)
		defer cancel()
	}

	r := c.newRun()
	started := time.Now()
	r.logger.Info("crawl started",
		zap.Strings("seeds", seeds),
		zap.Int("max_depth", c.opts.Policy.MaxDepth),
		zap.Int("workers", c.opts.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, seed := range seeds {
		t, err := seedTask(seed)
		if err != nil {
			r.logger.Error("invalid seed", zap.String("url", seed), zap.Error(err))
			r.fail(seed, 0, err)
			continue
		}
		g.Go(func() error {
			return c.walk(gctx, r, t)
		})
	}
	err := g.Wait()

	finished := time.Now()
	r.mu.Lock()
	result := &models.CrawlResult{
		RunID:      r.id,
		Seeds:      append([]string{}, seeds...),
		Pages:      append([]models.PageRecord{}, r.pages...),
		Failures:   append([]models.Failure{}, r.failures...),
		StartedAt:  started,
		FinishedAt: finished,
	}
	r.mu.Unlock()
	result.TotalPages = len(result.Pages)
	result.ErrorCount = len(result.Failures)

	fields := []zap.Field{
		zap.Int("pages", result.TotalPages),
		zap.Int("failures", result.ErrorCount),
		zap.Int("visited", r.visited.Len()),
		zap.Duration("elapsed", finished.Sub(started)),
	}
	if err != nil {
		r.logger.Warn("crawl interrupted", append(fields, zap.Error(err))...)
		return result, err
	}
	r.logger.Info("crawl finished", fields...)
	return result, nil
}

func seedTask(seed string) (task, error) {
	raw := strings.TrimSpace(seed)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	canonical, err := validator.Canonicalize(raw)
	if err != nil {
		return task{}, fmt.Errorf("parse seed %q: %w", seed, err)
	}
	origin := validator.Host(canonical)
	if origin == "" {
		return task{}, fmt.Errorf("seed %q has no host", seed)
	}
	return task{url: canonical, depth: 0, origin: origin}, nil
}

// walk drains an explicit stack seeded with t. Children are pushed in reverse
// so they pop in document order, which keeps the traversal depth-first.
func (c *Crawler) walk(ctx context.Context, r *run, t task) error {
	stack := []task{t}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.depth > c.opts.Policy.MaxDepth {
			continue
		}
		if !r.visited.TryMark(cur.url) {
			r.logger.Debug("skipped visited page", zap.String("url", cur.url))
			continue
		}

		children, err := c.visit(ctx, r, cur)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// visit fetches and records one page and returns the child tasks to expand.
// Page-level failures are recorded and swallowed; only cancellation of the
// run is returned as an error.
func (c *Crawler) visit(ctx context.Context, r *run, t task) ([]task, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The limiter refuses waits that would outlive the run's deadline.
		return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}

	log := r.logger.With(zap.String("url", t.url), zap.Int("depth", t.depth))
	log.Info("fetching page")

	page, err := c.fetcher.Fetch(ctx, t.url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Error("fetch failed", zap.Error(err))
		r.fail(t.url, t.depth, err)
		return nil, nil
	}

	ext := c.extractor.Extract(page)

	var entities []string
	if c.annotator != nil {
		entities = annotator.EntityTexts(c.annotator.Annotate(ext.Text))
	}

	eligible := c.eligibleLinks(ext.Links, t.origin)
	links := eligible[:min(len(eligible), c.opts.Policy.MaxLinksPerPage)]

	rec, err := models.NewPageRecord(
		t.url,
		ext.Metadata.Title,
		extractor.Truncate(ext.Text, c.opts.ContentLimit),
		ext.Metadata,
		entities,
		links,
		t.depth,
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("record rejected", zap.Error(err))
		r.fail(t.url, t.depth, err)
		return nil, nil
	}
	r.record(rec)
	log.Debug("page recorded", zap.Int("links", len(links)), zap.Int("entities", len(entities)))

	if t.depth >= c.opts.Policy.MaxDepth {
		return nil, nil
	}

	// Children are the first unvisited eligible links, visited ones skipped
	// before either cap applies.
	limit := min(c.opts.Policy.MaxLinksPerPage, c.opts.Policy.MaxConcurrentChildren)
	children := make([]task, 0, limit)
	for _, link := range eligible {
		if len(children) >= limit {
			break
		}
		if r.visited.Contains(link) {
			continue
		}
		children = append(children, task{url: link, depth: t.depth + 1, origin: t.origin})
	}
	return children, nil
}

// eligibleLinks returns the eligible links in document order, canonicalized
// and deduplicated within the page.
func (c *Crawler) eligibleLinks(links []string, origin string) []string {
	kept := make([]string, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		if !c.validator.IsEligible(link, origin) {
			continue
		}
		canonical, err := validator.Canonicalize(link)
		if err != nil || seen[canonical] {
			continue
		}
		seen[canonical] = true
		kept = append(kept, canonical)
	}
	return kept
}

// IsCancellation reports whether err means the run was cut short rather than
// failed.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
