package parse

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/extract"
	"cortez.fish/bite-pipeline/internal/globaltime"
)

const cardMinTextLength = 40

type cardCandidate struct {
	text     string
	href     string
	dateHint string
}

// Cards parses listing sites that expose both visual report cards and
// embedded JSON linked-data article metadata. Either source may be present
// on its own, so candidates from both are merged before dedup.
func Cards(payload, sourceURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, "parse HTML: "+err.Error(), payload)}}
	}

	candidates := cardCandidates(doc, sourceURL)
	candidates = append(candidates, linkedDataCandidates(doc)...)

	var reports []bite.Report
	for _, candidate := range candidates {
		if len(candidate.text) <= cardMinTextLength {
			continue
		}

		species := extract.Species(candidate.text)

		date, hasDate := dateHint(candidate.dateHint)
		if !hasDate {
			date, hasDate = extract.ISODate(candidate.text)
		}
		if !hasDate && len(species) == 0 {
			continue
		}
		if !hasDate {
			date = globaltime.Today()
		}

		reports = append(reports, buildReport(candidate.text, resolveLink(candidate.href, sourceURL), date))
	}

	if len(reports) == 0 {
		return Result{Failures: []bite.ParseFailure{newFailure(sourceURL, noMatchError, doc.Find("body").Text())}}
	}

	return Result{Reports: dedupeReports(reports)}
}

func cardCandidates(doc *goquery.Document, sourceURL string) []cardCandidate {
	var candidates []cardCandidate
	doc.Find("article, .report-card, .report-item, li").Each(func(_ int, el *goquery.Selection) {
		text := collapse(el.Text())
		datetime, _ := el.Find("time[datetime]").First().Attr("datetime")

		href, ok := el.Find("a[href*='/reports/'], a[href*='report']").First().Attr("href")
		if !ok {
			href, _ = el.Find("a[href]").First().Attr("href")
		}

		candidates = append(candidates, cardCandidate{
			text:     text,
			href:     href,
			dateHint: datetime,
		})
	})
	return candidates
}

// linkedDataCandidates pulls article nodes out of ld+json script blocks.
// The payload may be a single object, an array, or a @graph wrapper.
func linkedDataCandidates(doc *goquery.Document) []cardCandidate {
	var candidates []cardCandidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, el *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(el.Text()), &decoded); err != nil {
			return
		}
		candidates = append(candidates, walkLinkedData(decoded)...)
	})
	return candidates
}

func walkLinkedData(node any) []cardCandidate {
	var candidates []cardCandidate
	switch value := node.(type) {
	case []any:
		for _, item := range value {
			candidates = append(candidates, walkLinkedData(item)...)
		}
	case map[string]any:
		if graph, ok := value["@graph"]; ok {
			candidates = append(candidates, walkLinkedData(graph)...)
		}
		if candidate, ok := linkedDataArticle(value); ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

var linkedDataArticleTypes = map[string]bool{
	"Article":            true,
	"NewsArticle":        true,
	"BlogPosting":        true,
	"SocialMediaPosting": true,
	"Report":             true,
}

func linkedDataArticle(node map[string]any) (cardCandidate, bool) {
	if !linkedDataArticleTypes[stringField(node, "@type")] {
		return cardCandidate{}, false
	}

	text := collapse(strings.Join(nonEmpty(
		stringField(node, "headline"),
		stringField(node, "description"),
		stringField(node, "articleBody"),
	), " "))
	if text == "" {
		return cardCandidate{}, false
	}

	href := stringField(node, "url")
	if href == "" {
		href = stringField(node, "mainEntityOfPage")
	}

	return cardCandidate{
		text:     text,
		href:     href,
		dateHint: stringField(node, "datePublished"),
	}, true
}

func stringField(node map[string]any, key string) string {
	if value, ok := node[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
