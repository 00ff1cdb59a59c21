package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/cli"
	"cortez.fish/bite-pipeline/internal/conditions"
	"cortez.fish/bite-pipeline/internal/config"
	"cortez.fish/bite-pipeline/internal/crawl"
	"cortez.fish/bite-pipeline/internal/envelope"
	"cortez.fish/bite-pipeline/internal/fetch"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/logging"
	"cortez.fish/bite-pipeline/internal/merge"
	"cortez.fish/bite-pipeline/internal/metrics"
)

func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall run timeout")
	skipConditions := fs.Bool("skip-conditions", false, "Skip the marine conditions fetch")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	started := globaltime.UTC()
	client := fetch.NewClient(fetch.Options{
		UserAgent: cfg.UserAgent,
		MinDelay:  cfg.MinDelay(),
		MaxDelay:  cfg.MaxDelay(),
		Timeout:   cfg.FetchTimeout(),
	}, logger)

	if code := runBiteCrawl(ctx, client, cfg, logger); code != 0 {
		return code
	}

	if !*skipConditions {
		if code := runConditionsFetch(ctx, client, cfg, logger); code != 0 {
			return code
		}
	}

	logger.Info().Dur("duration", globaltime.UTC().Sub(started)).Msg("crawl run finished")
	return 0
}

func runBiteCrawl(ctx context.Context, client *fetch.Client, cfg *config.Config, logger zerolog.Logger) int {
	path := filepath.Join(cfg.DataDir, envelope.BiteFile)

	previous, err := envelope.LoadBite(path)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable previous snapshot")
	}
	var previousReports []bite.Report
	if previous != nil {
		previousReports = previous.Data.Reports
	}

	crawler := crawl.New(client, crawl.Limits{
		EmptyStreak: cfg.EmptyStreakLimit,
		StaleStreak: cfg.StaleStreakLimit,
	}, logger)
	outcome := crawler.Run(ctx, crawl.Targets(cfg))

	cutoff := globaltime.UTC().AddDate(0, 0, -cfg.HistoryWindowDays).Format("2006-01-02")
	merged := merge.Merge(outcome.Reports, previousReports, cutoff)

	// Publishing an empty snapshot when every source failed would erase the
	// only data consumers have; abort instead.
	if len(merged) == 0 && len(previousReports) == 0 && outcome.Succeeded == 0 {
		logger.Error().
			Int("sources", len(outcome.Sources)).
			Msg("no reports collected, no previous snapshot, and no source succeeded")
		fmt.Fprintln(os.Stderr, "Crawl failed: no data to publish")
		return 1
	}

	effective := merge.Effective(merged, previousReports)
	env := &envelope.Bite{
		GeneratedAt: globaltime.UTC(),
		Sources:     outcome.Sources,
		Data: envelope.BiteData{
			Reports:       effective,
			ParseFailures: outcome.Failures,
			Metrics:       metrics.Build(effective),
		},
	}

	if err := envelope.WriteBite(path, env); err != nil {
		logger.Error().Err(err).Msg("write bite snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
		return 1
	}

	logger.Info().
		Int("reports", len(effective)).
		Int("new_reports", len(outcome.Reports)).
		Int("parse_failures", len(outcome.Failures)).
		Int("fetches", len(outcome.Sources)).
		Int("fetches_ok", outcome.Succeeded).
		Str("path", path).
		Msg("bite snapshot published")
	return 0
}

func runConditionsFetch(ctx context.Context, client *fetch.Client, cfg *config.Config, logger zerolog.Logger) int {
	path := filepath.Join(cfg.DataDir, envelope.ConditionsFile)

	previous, err := envelope.LoadConditions(path)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable previous snapshot")
	}

	env, err := conditions.Run(ctx, client, cfg, previous, logger)
	if err != nil {
		logger.Error().Err(err).Msg("conditions fetch failed with no fallback data")
		fmt.Fprintf(os.Stderr, "Conditions fetch failed: %v\n", err)
		return 1
	}

	if err := envelope.WriteConditions(path, env); err != nil {
		logger.Error().Err(err).Msg("write conditions snapshot failed")
		fmt.Fprintf(os.Stderr, "Failed to write snapshot: %v\n", err)
		return 1
	}

	logger.Info().
		Int("hourly_points", len(env.Data.Hourly)).
		Int("day_summaries", len(env.Data.DaySummaries)).
		Str("path", path).
		Msg("conditions snapshot published")
	return 0
}
