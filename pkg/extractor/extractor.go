package extractor

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
	"github.com/amosWeiskopf/corpuscrawl/pkg/fetcher"
)

// skippedElements hold content that is never rendered as page text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// blockElements break the text flow. Their content is set off by line breaks
// so words in neighbouring blocks never run together.
var blockElements = map[string]bool{
	"title": true, "p": true, "div": true, "br": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "tr": true, "td": true, "th": true, "caption": true,
	"section": true, "article": true, "aside": true, "header": true, "footer": true,
	"nav": true, "main": true, "blockquote": true, "pre": true, "figure": true,
	"figcaption": true, "form": true, "address": true, "option": true,
}

// Extraction is the outcome of extracting one page
type Extraction struct {
	Text     string
	Metadata models.Metadata
	Links    []string
}

// Options tunes extraction
type Options struct {
	// MainContent uses boilerplate-free article text instead of every
	// visible text node when the page yields any.
	MainContent bool
}

// Extractor handles content extraction from HTML
type Extractor struct {
	opts Options
}

// New creates a new Extractor instance
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract returns the normalized text, metadata and document-ordered links of
// page. It is best effort: markup that cannot be parsed yields empty metadata
// and links rather than an error.
func (e *Extractor) Extract(page *fetcher.RawPage) Extraction {
	out := Extraction{
		Metadata: models.Metadata{
			URL:          page.URL,
			Keywords:     []string{},
			ContentType:  page.ContentType,
			LastModified: page.LastModified,
		},
		Links: []string{},
	}
	if out.Metadata.ContentType == "" {
		out.Metadata.ContentType = "text/html"
	}

	doc, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		out.Text = NormalizeText(string(page.Body))
		return out
	}

	out.Text = NormalizeText(VisibleText(doc))

	base := page.FinalURL
	if base == "" {
		base = page.URL
	}
	gq := goquery.NewDocumentFromNode(doc)
	out.Metadata.Title, out.Metadata.Description, out.Metadata.Keywords = ExtractMetadata(gq)
	out.Links = ExtractLinks(gq, base)

	if e.opts.MainContent {
		e.applyMainContent(&out, page, base)
	}
	return out
}

func (e *Extractor) applyMainContent(out *Extraction, page *fetcher.RawPage, base string) {
	var opts trafilatura.Options
	if u, err := url.Parse(base); err == nil {
		opts.OriginalURL = u
	}
	result, err := trafilatura.Extract(bytes.NewReader(page.Body), opts)
	if err != nil || result == nil {
		return
	}
	if text := NormalizeText(result.ContentText); text != "" {
		out.Text = text
	}
	if out.Metadata.LastModified == nil && !result.Metadata.Date.IsZero() {
		date := result.Metadata.Date.UTC()
		out.Metadata.LastModified = &date
	}
	if out.Metadata.Description == "" {
		out.Metadata.Description = strings.TrimSpace(result.Metadata.Description)
	}
}

// VisibleText concatenates every text node outside script, style and similar
// non-rendered elements, in document order. Block-level elements are
// surrounded by line breaks, which NormalizeText folds into single spaces.
func VisibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return b.String()
}

// ExtractMetadata pulls the first title, the first description meta and the
// comma-separated keywords meta.
func ExtractMetadata(doc *goquery.Document) (title, description string, keywords []string) {
	keywords = []string{}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	var descFound, keysFound bool
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "description":
			if !descFound {
				description = strings.TrimSpace(content)
				descFound = true
			}
		case "keywords":
			if !keysFound {
				keywords = splitKeywords(content)
				keysFound = true
			}
		}
		return !(descFound && keysFound)
	})
	return title, description, keywords
}

func splitKeywords(content string) []string {
	keywords := []string{}
	for _, k := range strings.Split(content, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// ExtractLinks resolves every anchor href against base, in document order and
// without deduplication. Hrefs that cannot be parsed are skipped.
func ExtractLinks(doc *goquery.Document, base string) []string {
	links := []string{}
	baseURL, err := url.Parse(base)
	if err != nil {
		return links
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, baseURL.ResolveReference(ref).String())
	})
	return links
}
