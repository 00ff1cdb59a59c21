package merge

import (
	"reflect"
	"testing"

	"cortez.fish/bite-pipeline/internal/bite"
)

func report(date, link, notes string) bite.Report {
	return bite.Report{
		Source:  "Test Source",
		Date:    date,
		Species: []string{"marlin"},
		Notes:   notes,
		Link:    link,
	}
}

func TestCanonicalLink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://Example.com/Reports/One/?utm_source=x#frag", "https://example.com/reports/one"},
		{"https://example.com/reports/one", "https://example.com/reports/one"},
		{"https://example.com/", "https://example.com"},
	}
	for _, tc := range cases {
		if got := CanonicalLink(tc.in); got != tc.want {
			t.Fatalf("CanonicalLink(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeNotesTrailingTolerance(t *testing.T) {
	t.Parallel()

	a := NormalizeNotes("Two striped marlin released at the 95 spot this morning, with more tailers seen on the way in. Full report at https://example.com/x. Page 2 of 14.")
	b := NormalizeNotes("Two striped marlin released at the 95 spot this morning, with more tailers seen on the way in. Read more >>")
	if a != b {
		t.Fatalf("expected equal prefixes, got %q vs %q", a, b)
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	batch := []bite.Report{
		report("2026-02-21", "https://example.com/a", "Striped marlin double header off the arch"),
		report("2026-02-20", "https://example.com/b", "Slow day with one sailfish release"),
	}

	once := Merge(batch, nil, "")
	twice := Merge(batch, once, "")

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeDropsRepublishedURL(t *testing.T) {
	t.Parallel()

	previous := []bite.Report{
		report("2026-02-21", "https://example.com/original", "Striped marlin double header off the arch today"),
	}
	batch := []bite.Report{
		report("2026-02-21", "https://mirror.example.net/copy", "Striped marlin double header off the arch today"),
	}

	merged := Merge(batch, previous, "")
	if len(merged) != 1 {
		t.Fatalf("expected loose key to drop republished report, got %d: %+v", len(merged), merged)
	}
}

func TestMergeSortsDateDescendingAndAppliesCutoff(t *testing.T) {
	t.Parallel()

	batch := []bite.Report{
		report("2026-01-02", "https://example.com/old", "Archive entry from early January worth keeping"),
		report("2026-02-21", "https://example.com/new", "Fresh striped marlin report from this week"),
		report("2025-06-01", "https://example.com/ancient", "Last season's entry that should age out"),
	}

	merged := Merge(batch, nil, "2026-01-01")
	if len(merged) != 2 {
		t.Fatalf("expected cutoff to drop 1 report, got %d", len(merged))
	}
	if merged[0].Date != "2026-02-21" || merged[1].Date != "2026-01-02" {
		t.Fatalf("expected date-descending order, got %+v", merged)
	}
}

func TestEffectiveFallsBackToPrevious(t *testing.T) {
	t.Parallel()

	previous := []bite.Report{report("2026-02-01", "https://example.com/a", "Prior snapshot entry")}
	if got := Effective(nil, previous); len(got) != 1 {
		t.Fatalf("expected previous snapshot reuse, got %+v", got)
	}

	merged := []bite.Report{report("2026-02-21", "https://example.com/b", "New entry")}
	if got := Effective(merged, previous); len(got) != 1 || got[0].Date != "2026-02-21" {
		t.Fatalf("expected merged set, got %+v", got)
	}
}

func TestSeenAdd(t *testing.T) {
	t.Parallel()

	seen := NewSeen()
	first := report("2026-02-21", "https://example.com/a/?page=1", "Striped marlin released near the bank this morning with light winds and calm seas making for an easy ride home")
	second := report("2026-02-21", "https://example.com/a", "Striped marlin released near the bank this morning with light winds and calm seas making for an easy run in before lunch")

	if !seen.Add(first) {
		t.Fatalf("expected first add to be new")
	}
	if seen.Add(second) {
		t.Fatalf("expected paginated duplicate to be recognized")
	}
}
