package crawl

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/fetch"
	"cortez.fish/bite-pipeline/internal/merge"
)

const (
	defaultEmptyStreakLimit = 2
	defaultStaleStreakLimit = 4

	// maxConcurrentTargets bounds target fan-out; per-domain serialization in
	// the fetch client is the real politeness control.
	maxConcurrentTargets = 4
)

// Getter is the fetch surface the crawler needs. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) fetch.Result
}

// Limits holds the pagination stop thresholds. A paginated target halts after
// EmptyStreak consecutive pages with zero candidates, after StaleStreak
// consecutive pages with zero newly accepted reports, or at the target's page
// cap, whichever comes first.
type Limits struct {
	EmptyStreak int
	StaleStreak int
}

func (l Limits) withDefaults() Limits {
	if l.EmptyStreak < 1 {
		l.EmptyStreak = defaultEmptyStreakLimit
	}
	if l.StaleStreak < 1 {
		l.StaleStreak = defaultStaleStreakLimit
	}
	return l
}

// Outcome aggregates everything a run collected. Sources holds one entry per
// page attempt, in target order; Succeeded counts page fetches that returned
// a 2xx response.
type Outcome struct {
	Reports   []bite.Report
	Failures  []bite.ParseFailure
	Sources   []bite.SourceStatus
	Succeeded int
}

type Crawler struct {
	client Getter
	limits Limits
	logger zerolog.Logger
}

func New(client Getter, limits Limits, logger zerolog.Logger) *Crawler {
	return &Crawler{
		client: client,
		limits: limits.withDefaults(),
		logger: logger,
	}
}

// Run crawls all targets. Targets proceed concurrently; the combined outcome
// keeps target order so envelope contents are stable across runs.
func (c *Crawler) Run(ctx context.Context, targets []Target) Outcome {
	outcomes := make([]Outcome, len(targets))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentTargets)
	for i, target := range targets {
		group.Go(func() error {
			outcomes[i] = c.runTarget(ctx, target)
			return nil
		})
	}
	_ = group.Wait()

	var combined Outcome
	for _, outcome := range outcomes {
		combined.Reports = append(combined.Reports, outcome.Reports...)
		combined.Failures = append(combined.Failures, outcome.Failures...)
		combined.Sources = append(combined.Sources, outcome.Sources...)
		combined.Succeeded += outcome.Succeeded
	}
	return combined
}

func (c *Crawler) runTarget(ctx context.Context, target Target) Outcome {
	if target.Kind == PaginatedTarget {
		return c.runPaginated(ctx, target)
	}
	return c.runSingle(ctx, target)
}

func (c *Crawler) runSingle(ctx context.Context, target Target) Outcome {
	var outcome Outcome

	result := c.client.Get(ctx, target.URL)
	outcome.Sources = append(outcome.Sources, sourceStatus(target.Name, target.URL, result))
	if !result.OK {
		c.logger.Warn().Str("source", target.Name).Str("error", result.Err).Msg("source fetch failed")
		outcome.Failures = append(outcome.Failures, bite.ParseFailure{
			Source: target.Name,
			Link:   target.URL,
			Error:  result.Err,
		})
		return outcome
	}
	outcome.Succeeded++

	parsed := target.Parse(result.Body, target.URL)
	seen := merge.NewSeen()
	for _, report := range parsed.Reports {
		report.Source = target.Label
		if seen.Add(report) {
			outcome.Reports = append(outcome.Reports, report)
		}
	}
	outcome.Failures = append(outcome.Failures, stampFailures(parsed.Failures, target.Label)...)

	c.logger.Info().
		Str("source", target.Name).
		Int("reports", len(outcome.Reports)).
		Int("failures", len(parsed.Failures)).
		Msg("source crawled")
	return outcome
}

func (c *Crawler) runPaginated(ctx context.Context, target Target) Outcome {
	var outcome Outcome
	seen := merge.NewSeen()
	emptyStreak := 0
	staleStreak := 0

	for page := 1; page <= target.MaxPages; page++ {
		pageName := fmt.Sprintf("%s page %d", target.Name, page)
		pageURL := target.PageURL(page)

		result := c.client.Get(ctx, pageURL)
		outcome.Sources = append(outcome.Sources, sourceStatus(pageName, pageURL, result))
		if !result.OK {
			c.logger.Warn().Str("source", pageName).Str("error", result.Err).Msg("page fetch failed, halting target")
			outcome.Failures = append(outcome.Failures, bite.ParseFailure{
				Source: pageName,
				Link:   pageURL,
				Error:  result.Err,
			})
			break
		}
		outcome.Succeeded++

		parsed := target.Parse(result.Body, pageURL)
		outcome.Failures = append(outcome.Failures, stampFailures(parsed.Failures, target.Label)...)

		accepted := 0
		for _, report := range parsed.Reports {
			report.Source = target.Label
			if seen.Add(report) {
				outcome.Reports = append(outcome.Reports, report)
				accepted++
			}
		}

		if len(parsed.Reports) == 0 {
			emptyStreak++
		} else {
			emptyStreak = 0
		}
		if accepted == 0 {
			staleStreak++
		} else {
			staleStreak = 0
		}

		c.logger.Debug().
			Str("source", pageName).
			Int("candidates", len(parsed.Reports)).
			Int("accepted", accepted).
			Msg("page crawled")

		if emptyStreak >= c.limits.EmptyStreak {
			c.logger.Info().Str("source", target.Name).Int("page", page).Msg("halting on empty page streak")
			break
		}
		if staleStreak >= c.limits.StaleStreak {
			c.logger.Info().Str("source", target.Name).Int("page", page).Msg("halting on stale page streak")
			break
		}
	}

	c.logger.Info().
		Str("source", target.Name).
		Int("reports", len(outcome.Reports)).
		Int("pages", len(outcome.Sources)).
		Msg("source crawled")
	return outcome
}

func sourceStatus(name, url string, result fetch.Result) bite.SourceStatus {
	return bite.SourceStatus{
		Name:      name,
		URL:       url,
		FetchedAt: result.FetchedAt,
		OK:        result.OK,
		Error:     result.Err,
	}
}

func stampFailures(failures []bite.ParseFailure, label string) []bite.ParseFailure {
	stamped := make([]bite.ParseFailure, len(failures))
	for i, failure := range failures {
		failure.Source = label
		stamped[i] = failure
	}
	return stamped
}
