// Package merge decides which bite reports are the same report. It provides
// the per-target identity key used while paginating and the cross-run merge
// against the previous snapshot.
package merge

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"cortez.fish/bite-pipeline/internal/bite"
)

// notesPrefixWords caps how much of the normalized notes participates in the
// identity key, so minor trailing-text differences between paginated views of
// the same item still compare equal.
const notesPrefixWords = 18

var reEmbeddedURL = regexp.MustCompile(`https?://\S+`)

// CanonicalLink strips query, fragment and a trailing slash and lower-cases
// the result, so the same item republished with tracking parameters keys the
// same.
func CanonicalLink(link string) string {
	parsed, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(link))
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return strings.ToLower(parsed.String())
}

// NormalizeNotes strips embedded URLs and punctuation, collapses whitespace,
// lower-cases, and keeps the leading words only.
func NormalizeNotes(notes string) string {
	cleaned := reEmbeddedURL.ReplaceAllString(notes, " ")
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, cleaned)

	words := strings.Fields(cleaned)
	if len(words) > notesPrefixWords {
		words = words[:notesPrefixWords]
	}
	return strings.Join(words, " ")
}

// TargetKey is the identity used to deduplicate candidates across pages of a
// single target within one run.
func TargetKey(report bite.Report) string {
	return report.Date + "|" + CanonicalLink(report.Link) + "|" + NormalizeNotes(report.Notes)
}

// Seen tracks identity keys already accepted for a target.
type Seen map[string]struct{}

func NewSeen() Seen { return make(Seen) }

// Add records the report's key and reports whether it was new.
func (s Seen) Add(report bite.Report) bool {
	key := TargetKey(report)
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Merge concatenates the new batch with the previous snapshot's reports and
// deduplicates with two keys: a strict one including the canonical link and a
// looser one ignoring it, so the same report republished under a different
// URL is still recognized. Reports older than cutoffDate (YYYY-MM-DD,
// optional) are dropped. The result is sorted by date descending.
func Merge(batch, previous []bite.Report, cutoffDate string) []bite.Report {
	combined := make([]bite.Report, 0, len(batch)+len(previous))
	combined = append(combined, batch...)
	combined = append(combined, previous...)

	seenStrict := make(map[string]struct{}, len(combined))
	seenLoose := make(map[string]struct{}, len(combined))

	var kept []bite.Report
	for _, report := range combined {
		notes := NormalizeNotes(report.Notes)
		strict := report.Date + "|" + CanonicalLink(report.Link) + "|" + notes
		loose := report.Date + "|" + notes

		_, dupStrict := seenStrict[strict]
		_, dupLoose := seenLoose[loose]
		if dupStrict || dupLoose {
			continue
		}
		seenStrict[strict] = struct{}{}
		seenLoose[loose] = struct{}{}

		if cutoffDate != "" && report.Date < cutoffDate {
			continue
		}
		kept = append(kept, report)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date > kept[j].Date
	})
	return kept
}

// Effective picks the record set to publish: the merged result, or the
// previous snapshot's reports unchanged when the merge produced nothing.
func Effective(merged, previous []bite.Report) []bite.Report {
	if len(merged) > 0 {
		return merged
	}
	return previous
}
