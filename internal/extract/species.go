// Package extract holds the pure text heuristics that turn free-form fishing
// report prose into structured fields. Every matcher is an ordered table of
// (pattern, result) pairs so individual entries stay testable and the
// priority between overlapping patterns is explicit.
package extract

import "regexp"

type speciesPattern struct {
	re        *regexp.Regexp
	canonical string
}

// Most specific entries first: "striped marlin" must be recognized before the
// bare "marlin" pattern, and "yellowfin tuna" before "tuna".
var speciesTable = []speciesPattern{
	{regexp.MustCompile(`(?i)\bstriped\s+marlin\b`), "striped marlin"},
	{regexp.MustCompile(`(?i)\bblue\s+marlin\b`), "blue marlin"},
	{regexp.MustCompile(`(?i)\bblack\s+marlin\b`), "black marlin"},
	{regexp.MustCompile(`(?i)\bmarlin\b`), "marlin"},
	{regexp.MustCompile(`(?i)\byellowfin(?:\s+tuna)?\b`), "yellowfin tuna"},
	{regexp.MustCompile(`(?i)\btuna\b`), "tuna"},
	{regexp.MustCompile(`(?i)\bmahi(?:[\s-]+mahi)?\b`), "mahi mahi"},
	{regexp.MustCompile(`(?i)\bdorado\b`), "mahi mahi"},
	{regexp.MustCompile(`(?i)\bwahoo\b`), "wahoo"},
	{regexp.MustCompile(`(?i)\bsailfish\b`), "sailfish"},
	{regexp.MustCompile(`(?i)\broosterfish\b`), "roosterfish"},
	{regexp.MustCompile(`(?i)\bsnapper\b`), "snapper"},
	{regexp.MustCompile(`(?i)\bamberjack\b`), "amberjack"},
}

// Species returns the canonical names mentioned in text, in table order with
// duplicates removed. A single report may mention several species.
func Species(text string) []string {
	var matched []string
	seen := make(map[string]struct{}, 4)
	for _, entry := range speciesTable {
		if !entry.re.MatchString(text) {
			continue
		}
		if _, ok := seen[entry.canonical]; ok {
			continue
		}
		seen[entry.canonical] = struct{}{}
		matched = append(matched, entry.canonical)
	}
	return matched
}
