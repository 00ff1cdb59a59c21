package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/extract"
	"cortez.fish/bite-pipeline/internal/globaltime"
)

const listingMinTextLength = 35

// listingSelectors are tried in priority order; most blog themes match one of
// the structured containers before the generic list-item fallback fires.
var listingSelectors = []string{
	"article",
	".post",
	".entry",
	".blog-post",
	".report",
	"li",
}

// Listing parses generic blog and archive listing markup: one candidate per
// post container, built from title, excerpt and meta text. Date resolution
// prefers a structured datetime attribute, then body text, then the item URL.
func Listing(payload, sourceURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, "parse HTML: "+err.Error(), payload)}}
	}

	var reports []bite.Report
	seen := make(map[string]struct{})

	for _, selector := range listingSelectors {
		doc.Find(selector).Each(func(_ int, root *goquery.Selection) {
			title := collapse(root.Find("h1, h2, h3, .entry-title, .post-title").First().Text())
			excerpt := collapse(root.Find("p, .excerpt, .summary").First().Text())
			meta := collapse(root.Find("time, .date, .meta, .post-date").First().Text())
			href, _ := root.Find("a[href]").First().Attr("href")
			datetime, _ := root.Find("time[datetime]").First().Attr("datetime")

			text := strings.TrimSpace(strings.Join(nonEmpty(title, excerpt, meta), " "))
			if len(text) < listingMinTextLength {
				return
			}

			link := resolveCleanLink(href, sourceURL)
			key := link + "|" + extract.CompactSnippet(text)
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}

			date, hasDate := dateHint(datetime)
			if !hasDate {
				date, hasDate = extract.ISODate(text)
			}
			if !hasDate {
				date, hasDate = extract.ISODateFromURL(link)
			}

			species := extract.Species(text)
			if !hasDate && len(species) == 0 && !reListingLanguage.MatchString(text) {
				return
			}
			if !hasDate {
				date = globaltime.Today()
			}

			reports = append(reports, buildReport(text, link, date))
		})
	}

	if len(reports) == 0 {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, noMatchError, doc.Find("body").Text())}}
	}

	return Result{Reports: dedupeReports(reports)}
}
