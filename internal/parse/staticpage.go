package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/extract"
	"cortez.fish/bite-pipeline/internal/globaltime"
)

const staticMinTextLength = 45

// StaticPage parses a single hand-maintained report page. Candidate blocks
// are paragraph or list items inside article-like containers, combined with
// the nearest preceding heading so "March 21 report" headlines attach to the
// prose below them.
func StaticPage(payload, sourceURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, "parse HTML: "+err.Error(), payload)}}
	}

	var reports []bite.Report
	doc.Find("article p, article li, .entry-content p, .post p, main p, .report p, .report li").Each(func(_ int, el *goquery.Selection) {
		container := el.Closest("article, section, div").First()
		heading := collapse(container.Find("h1, h2, h3").First().Text())
		text := collapse(el.Text())

		combined := strings.TrimSpace(strings.Join(nonEmpty(heading, text), " "))
		if len(combined) <= staticMinTextLength {
			return
		}

		href, ok := el.Find("a[href]").First().Attr("href")
		if !ok {
			href, _ = container.Find("a[href]").First().Attr("href")
		}
		link := resolveLink(href, sourceURL)

		date, hasDate := extract.ISODate(combined)
		if !hasDate {
			date, hasDate = extract.ISODateFromURL(link)
		}
		species := extract.Species(combined)

		if !hasDate && len(species) == 0 && !reFishingLanguage.MatchString(combined) {
			return
		}
		if !hasDate {
			date = globaltime.Today()
		}

		reports = append(reports, buildReport(combined, link, date))
	})

	if len(reports) == 0 {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, noMatchError, doc.Find("body").Text())}}
	}

	return Result{Reports: dedupeReports(reports)}
}

func nonEmpty(values ...string) []string {
	kept := values[:0]
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return kept
}
