// Package reader converts raw HTML payloads into plain text for the
// extraction heuristics.
package reader

import (
	"bytes"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// HTMLText renders the readable text of an HTML document or fragment.
// Readability is tried first so boilerplate (nav, footers, ads) is dropped
// from full documents; fragments that readability cannot handle fall back to
// a plain DOM text walk.
func HTMLText(html string, base *url.URL) string {
	trimmed := strings.TrimSpace(html)
	if trimmed == "" {
		return ""
	}

	if base != nil {
		if article, err := readability.FromReader(strings.NewReader(trimmed), base); err == nil {
			var rendered bytes.Buffer
			if err := article.RenderText(&rendered); err == nil {
				if text := CleanText(rendered.String()); text != "" {
					return text
				}
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return ""
	}
	return CleanText(doc.Text())
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
