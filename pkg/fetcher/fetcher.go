// Package fetcher performs single-attempt page retrievals for the crawler.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 5 * 1024 * 1024
)

// ErrUnsupportedContentType is wrapped by FetchError when a response is not a text page.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// textMIMEs are the media types the extractor can work with. An empty
// Content-Type is accepted and treated as HTML.
var textMIMEs = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"application/xhtml":     true,
	"text/plain":            true,
}

// Fetcher retrieves one page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*RawPage, error)
}

// RawPage is a successfully retrieved response
type RawPage struct {
	URL          string
	FinalURL     string
	StatusCode   int
	ContentType  string
	LastModified *time.Time
	Body         []byte
	FetchedAt    time.Time
}

// FetchError describes a failed retrieval. It is never fatal to a crawl.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Options controls HTTP fetching behaviour
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	Client       *http.Client
}

// HTTPFetcher implements Fetcher with a single GET per call and no retries
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
}

// NewHTTPFetcher constructs an HTTP fetcher using the provided options
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	client := opts.Client
	if client == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		}
		client = &http.Client{Transport: transport}
	}

	return &HTTPFetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Fetch downloads pageURL. Every failure is returned as a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*RawPage, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("build request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if !textMIMEs[contentType] {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)}
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	page := &RawPage{
		URL:         pageURL,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		FetchedAt:   time.Now(),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			t = t.UTC()
			page.LastModified = &t
		}
	}
	return page, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return "text/html"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mt
}
