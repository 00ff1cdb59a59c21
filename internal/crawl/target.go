// Package crawl drives the configured source targets: fetching pages through
// the polite client, feeding payloads to the matching parser adapter, and
// deciding when a paginated source is exhausted.
package crawl

import (
	"fmt"

	"cortez.fish/bite-pipeline/internal/config"
	"cortez.fish/bite-pipeline/internal/parse"
)

type TargetKind int

const (
	// SingleTarget is one fixed page fetched once per run.
	SingleTarget TargetKind = iota
	// PaginatedTarget is a page series walked until a stop condition fires.
	PaginatedTarget
)

// Target is one configured source. Single targets use URL; paginated targets
// build page URLs through PageURL and are capped at MaxPages.
type Target struct {
	Kind     TargetKind
	Name     string
	Label    string
	URL      string
	PageURL  func(page int) string
	Parse    parse.Func
	MaxPages int
}

type destination struct {
	label string
	slug  string
}

var fishingBookerDestinations = []destination{
	{"Cabo San Lucas", "cabo-san-lucas"},
	{"San Jose del Cabo", "san-jose-del-cabo"},
	{"La Paz", "la-paz"},
}

// Targets builds the static source set for a run. Page caps come from the
// per-family config tunables.
func Targets(cfg *config.Config) []Target {
	targets := []Target{
		{
			Kind:  SingleTarget,
			Name:  "El Budster",
			Label: "El Budster",
			URL:   "https://www.elbudster.com/report",
			Parse: parse.StaticPage,
		},
		{
			Kind:  SingleTarget,
			Name:  "Pisces",
			Label: "Pisces",
			URL:   "https://www.piscessportfishing.com/feed/json",
			Parse: parse.JSONFeed,
		},
		{
			Kind:  PaginatedTarget,
			Name:  "Cabo Sportfishing Reports",
			Label: "Cabo Sportfishing Reports",
			PageURL: func(page int) string {
				return fmt.Sprintf("https://www.cabosportfishingreports.com/reports/page/%d/", page)
			},
			Parse:    parse.Listing,
			MaxPages: cfg.ArchiveMaxPages,
		},
	}

	for _, dest := range fishingBookerDestinations {
		slug := dest.slug
		targets = append(targets, Target{
			Kind:  PaginatedTarget,
			Name:  "FishingBooker " + dest.label,
			Label: "FishingBooker",
			PageURL: func(page int) string {
				return fmt.Sprintf("https://fishingbooker.com/reports/destination/mx/BS/%s?page=%d", slug, page)
			},
			Parse:    parse.Cards,
			MaxPages: cfg.ListingMaxPages,
		})
	}

	return targets
}
