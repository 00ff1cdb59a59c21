// Package parse turns raw source payloads into candidate bite reports.
// Each adapter has the same shape: (payload, source URL) in, reports and
// failures out. The crawler stamps the source name onto whatever an adapter
// returns.
package parse

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/araddon/dateparse"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/extract"
)

// Result is what every adapter returns. An adapter that extracts nothing from
// a non-empty payload reports exactly one failure carrying a payload snippet.
type Result struct {
	Reports  []bite.Report
	Failures []bite.ParseFailure
}

// Func is the adapter contract consumed by the pagination controller.
type Func func(payload, sourceURL string) Result

var (
	reFishingLanguage = regexp.MustCompile(`(?i)\b(report|trip|offshore|bite|release|landed|caught)\b`)
	reListingLanguage = regexp.MustCompile(`(?i)\b(report|trip|offshore|bite|release|landed|caught|charter)\b`)
	reFeedLanguage    = regexp.MustCompile(`(?i)\b(report|trip|offshore|bite|release|released|landed|caught|hooked|boated)\b`)
)

const noMatchError = "no reports matched parser rules"

func newFailure(link, errMsg, snippet string) bite.ParseFailure {
	return bite.ParseFailure{
		Link:    link,
		Error:   errMsg,
		Snippet: extract.CompactSnippet(snippet),
	}
}

// buildReport assembles a normalized report from candidate text. Source is
// left empty for the crawler to stamp.
func buildReport(text, link, date string) bite.Report {
	species := extract.Species(text)
	if species == nil {
		species = []string{}
	}

	report := bite.Report{
		Date:    date,
		Species: species,
		Notes:   extract.CompactSnippet(text),
		Link:    link,
	}
	if miles, ok := extract.DistanceMiles(text); ok {
		report.DistanceOffshoreMiles = &miles
	}
	if temp, ok := extract.WaterTempF(text); ok {
		report.WaterTempF = &temp
	}
	return report
}

// resolveLink resolves href against the source page URL, falling back to the
// page URL itself whenever the markup has no usable link.
func resolveLink(href, sourceURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return sourceURL
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return sourceURL
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return sourceURL
	}
	return resolved.String()
}

// resolveCleanLink additionally drops the fragment and a trailing slash, so
// listing views of the same item compare equal.
func resolveCleanLink(href, sourceURL string) string {
	resolved := resolveLink(href, sourceURL)
	parsed, err := url.Parse(resolved)
	if err != nil {
		return resolved
	}
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String()
}

// dateHint parses a structured datetime value (time[datetime] attributes,
// feed date_published fields) before the free-text heuristics get a shot.
func dateHint(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		return t.UTC().Format("2006-01-02"), true
	}
	return extract.ISODate(value)
}

// dedupeReports removes duplicates within one adapter's output.
func dedupeReports(reports []bite.Report) []bite.Report {
	seen := make(map[string]struct{}, len(reports))
	deduped := make([]bite.Report, 0, len(reports))
	for _, report := range reports {
		key := report.Date + "|" + report.Notes + "|" + report.Link
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, report)
	}
	return deduped
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
