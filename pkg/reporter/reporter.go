package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/amosWeiskopf/corpuscrawl/internal/models"
)

// ErrUnknownFormat is returned for output formats other than json and markdown
var ErrUnknownFormat = errors.New("unsupported report format")

// Render writes report in the given format ("json" or "markdown")
func Render(report *models.CorpusReport, format string) (string, error) {
	switch format {
	case "json":
		return generateJSON(report)
	case "markdown", "md":
		return generateMarkdown(report), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func generateJSON(report *models.CorpusReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

func generateMarkdown(report *models.CorpusReport) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Corpus Report\n\n")
	fmt.Fprintf(&buf, "*Generated on %s*\n\n", report.GeneratedAt.Format("January 2, 2006"))

	fmt.Fprintf(&buf, "## Summary\n\n")
	fmt.Fprintf(&buf, "| Metric | Value |\n")
	fmt.Fprintf(&buf, "|--------|-------|\n")
	fmt.Fprintf(&buf, "| Pages | %d |\n", report.TotalPages)
	fmt.Fprintf(&buf, "| Average content length | %.0f |\n\n", report.AverageContentLength)

	if len(report.PagesByDepth) > 0 {
		depths := make([]int, 0, len(report.PagesByDepth))
		for d := range report.PagesByDepth {
			depths = append(depths, d)
		}
		sort.Ints(depths)

		fmt.Fprintf(&buf, "### Pages by depth\n\n")
		fmt.Fprintf(&buf, "| Depth | Pages |\n")
		fmt.Fprintf(&buf, "|-------|-------|\n")
		for _, d := range depths {
			fmt.Fprintf(&buf, "| %d | %d |\n", d, report.PagesByDepth[d])
		}
		fmt.Fprintf(&buf, "\n")
	}

	if len(report.TopEntities) > 0 {
		fmt.Fprintf(&buf, "## Top Entities\n\n")
		for _, e := range report.TopEntities {
			fmt.Fprintf(&buf, "- %s (%d pages)\n", e.Entity, e.Pages)
		}
		fmt.Fprintf(&buf, "\n")
	}

	if len(report.TopPages) > 0 {
		fmt.Fprintf(&buf, "## Top Pages\n\n")
		fmt.Fprintf(&buf, "| URL | Title | PageRank |\n")
		fmt.Fprintf(&buf, "|-----|-------|----------|\n")
		for _, p := range report.TopPages {
			fmt.Fprintf(&buf, "| %s | %s | %.4f |\n", p.URL, p.Title, p.PageRank)
		}
		fmt.Fprintf(&buf, "\n")
	}

	if len(report.Findings) > 0 {
		fmt.Fprintf(&buf, "## Findings\n\n")
		for _, finding := range report.Findings {
			fmt.Fprintf(&buf, "### %s\n", finding.Type)
			fmt.Fprintf(&buf, "- **Category:** %s\n", finding.Category)
			fmt.Fprintf(&buf, "- **Severity:** %s\n", finding.Severity)
			fmt.Fprintf(&buf, "- **Description:** %s\n", finding.Description)
			if finding.Details != "" {
				fmt.Fprintf(&buf, "- **Details:** %s\n", finding.Details)
			}
			fmt.Fprintf(&buf, "\n")
		}
	}

	return buf.String()
}
