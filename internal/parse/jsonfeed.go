package parse

import (
	"encoding/json"
	"net/url"
	"strings"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/extract"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/reader"
)

const feedMinTextLength = 30

type feedItem struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	ContentText   string `json:"content_text"`
	ContentHTML   string `json:"content_html"`
	DatePublished string `json:"date_published"`
}

type feedDocument struct {
	Items []feedItem `json:"items"`
}

// JSONFeed parses a JSON Feed style payload. HTML content fields are rendered
// to plain text before the heuristics run. An unparseable payload is a single
// recorded failure, never a crash.
func JSONFeed(payload, sourceURL string) Result {
	var feed feedDocument
	if err := json.Unmarshal([]byte(payload), &feed); err != nil {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, "invalid JSON feed payload", payload)}}
	}

	base, _ := url.Parse(sourceURL)

	var reports []bite.Report
	for _, item := range feed.Items {
		parts := nonEmpty(
			collapse(item.Title),
			collapse(item.Summary),
			collapse(item.ContentText),
			collapse(reader.HTMLText(item.ContentHTML, base)),
		)
		text := extract.CompactSnippet(strings.Join(parts, " "))
		if len(text) < feedMinTextLength {
			continue
		}

		link := resolveCleanLink(item.URL, sourceURL)

		date, hasDate := dateHint(item.DatePublished)
		if !hasDate {
			date, hasDate = extract.ISODate(text)
		}
		if !hasDate {
			date, hasDate = extract.ISODateFromURL(link)
		}
		species := extract.Species(text)
		_, hasDistance := extract.DistanceMiles(text)
		_, hasTemp := extract.WaterTempF(text)

		if !hasDate && len(species) == 0 && !reFeedLanguage.MatchString(text) && !hasDistance && !hasTemp {
			continue
		}
		if !hasDate {
			date = globaltime.Today()
		}

		reports = append(reports, buildReport(text, link, date))
	}

	if len(reports) == 0 {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, noMatchError, payload)}}
	}

	return Result{Reports: dedupeReports(reports)}
}
