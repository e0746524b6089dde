package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultContentLimit is the number of characters kept in a stored record.
const DefaultContentLimit = 2000

var (
	lineBreak = regexp.MustCompile("\r\n|[\n\r\v\f\x1c\x1d\x1e\u0085\u2028\u2029]")
	spaceRun  = regexp.MustCompile(` {2,}`)
)

// NormalizeText flattens text into a single line: it splits on line breaks,
// trims each line, splits again on runs of two or more spaces, drops empty
// fragments and joins the rest with single spaces. The result is a fixed
// point: normalizing it again returns it unchanged.
func NormalizeText(text string) string {
	var chunks []string
	for _, line := range lineBreak.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, phrase := range spaceRun.Split(line, -1) {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				chunks = append(chunks, phrase)
			}
		}
	}
	return strings.Join(chunks, " ")
}

// Truncate keeps at most limit characters (runes) of text. It cuts exactly at
// the limit without looking for word boundaries.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	i := 0
	for pos := range text {
		if i == limit {
			return text[:pos]
		}
		i++
	}
	return text
}
