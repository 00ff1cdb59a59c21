package extract

import "strings"

const snippetMaxChars = 280

// CompactSnippet collapses whitespace and truncates to 280 characters for
// storage and display.
func CompactSnippet(text string) string {
	compact := strings.Join(strings.Fields(text), " ")
	runes := []rune(compact)
	if len(runes) <= snippetMaxChars {
		return compact
	}
	return string(runes[:snippetMaxChars])
}
