// Package metrics aggregates the merged report set into the envelope's
// metrics block: marlin signal counts, short-term trend, a dense daily
// series, season context, and per-source quality rows.
package metrics

import (
	"sort"
	"strings"
	"time"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/stats"
)

const (
	trendWindow     = 72 * time.Hour
	trendBucketSize = 12 * time.Hour

	// defaultConfidence applies to source names missing from the table.
	defaultConfidence = 0.65
)

// sourceConfidence is a hand-tuned trust weight per source name. Direct
// operator reports score above aggregated listings.
var sourceConfidence = map[string]float64{
	"El Budster":                0.9,
	"Pisces":                    0.85,
	"Cabo Sportfishing Reports": 0.75,
	"FishingBooker":             0.7,
}

// Confidence returns the trust weight in [0,1] for a source name.
func Confidence(source string) float64 {
	if weight, ok := sourceConfidence[source]; ok {
		return weight
	}
	return defaultConfidence
}

type TrendBucket struct {
	BucketTS string `json:"bucket_ts"`
	Mentions int    `json:"mentions"`
}

type DailyCount struct {
	Date                 string  `json:"date"`
	TotalReports         int     `json:"total_reports"`
	MarlinMentions       int     `json:"marlin_mentions"`
	WeightedMarlinSignal float64 `json:"weighted_marlin_signal"`
}

type SeasonContext struct {
	SampleDays                 int     `json:"sample_days"`
	SampleStart                string  `json:"sample_start"`
	SampleEnd                  string  `json:"sample_end"`
	LatestReportDate           string  `json:"latest_report_date"`
	LatestDayTotalReports      int     `json:"latest_day_total_reports"`
	LatestDayMarlinMentions    int     `json:"latest_day_marlin_mentions"`
	LatestDayPercentile        float64 `json:"latest_day_percentile"`
	AverageDailyMarlinMentions float64 `json:"average_daily_marlin_mentions"`
	P90DailyMarlinMentions     float64 `json:"p90_daily_marlin_mentions"`
	LatestVsAverageRatio       float64 `json:"latest_vs_average_ratio"`
	LatestDayWeightedSignal    float64 `json:"latest_day_weighted_signal"`
	AverageDailyWeightedSignal float64 `json:"average_daily_weighted_signal"`
}

type SourceQuality struct {
	Source               string  `json:"source"`
	Confidence           float64 `json:"confidence"`
	TotalReports         int     `json:"total_reports"`
	MarlinReports        int     `json:"marlin_reports"`
	WeightedMarlinSignal float64 `json:"weighted_marlin_signal"`
}

type Metrics struct {
	MarlinMentionsLast72h       int             `json:"marlin_mentions_last_72h"`
	WeightedMarlinSignalLast72h float64         `json:"weighted_marlin_signal_last_72h"`
	TrendLast72h                []TrendBucket   `json:"trend_last_72h"`
	DailyMarlinCounts           []DailyCount    `json:"daily_marlin_counts"`
	SeasonContext               SeasonContext   `json:"season_context"`
	SourceQuality               []SourceQuality `json:"source_quality"`
}

// IsMarlinSignal reports whether the report's species or notes mention
// marlin, case-insensitively.
func IsMarlinSignal(report bite.Report) bool {
	for _, species := range report.Species {
		if strings.Contains(strings.ToLower(species), "marlin") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(report.Notes), "marlin")
}

// Build computes the full metrics block for the effective report set.
func Build(reports []bite.Report) Metrics {
	now := globaltime.UTC()
	daily := buildDailySeries(reports, now)
	mentions, weighted := signalLast72h(reports, now)

	return Metrics{
		MarlinMentionsLast72h:       mentions,
		WeightedMarlinSignalLast72h: weighted,
		TrendLast72h:                buildTrend(reports, now),
		DailyMarlinCounts:           daily,
		SeasonContext:               buildSeasonContext(daily, now),
		SourceQuality:               buildSourceQuality(reports),
	}
}

// noonAnchor pins a report's calendar date to 12:00 UTC so day-granular
// dates bucket stably regardless of run time.
func noonAnchor(date string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.Add(12 * time.Hour), true
}

func signalLast72h(reports []bite.Report, now time.Time) (int, float64) {
	windowStart := now.Add(-trendWindow)

	mentions := 0
	weighted := 0.0
	for _, report := range reports {
		if !IsMarlinSignal(report) {
			continue
		}
		anchored, ok := noonAnchor(report.Date)
		if !ok || anchored.Before(windowStart) {
			continue
		}
		mentions++
		weighted += Confidence(report.Source)
	}
	return mentions, stats.Round2(weighted)
}

// buildTrend counts marlin-signal reports into fixed 12h buckets covering
// the last 72 hours up to now, inclusive of the bucket containing now.
func buildTrend(reports []bite.Report, now time.Time) []TrendBucket {
	var anchors []time.Time
	for _, report := range reports {
		if !IsMarlinSignal(report) {
			continue
		}
		if anchored, ok := noonAnchor(report.Date); ok {
			anchors = append(anchors, anchored)
		}
	}

	var buckets []TrendBucket
	for start := now.Add(-trendWindow); !start.After(now); start = start.Add(trendBucketSize) {
		end := start.Add(trendBucketSize)
		mentions := 0
		for _, anchor := range anchors {
			if !anchor.Before(start) && anchor.Before(end) {
				mentions++
			}
		}
		buckets = append(buckets, TrendBucket{
			BucketTS: start.Truncate(time.Hour).Format(time.RFC3339),
			Mentions: mentions,
		})
	}
	return buckets
}

// buildDailySeries produces one entry per calendar day from the earliest
// report date through today, zero-filled where no reports landed.
func buildDailySeries(reports []bite.Report, now time.Time) []DailyCount {
	type dayTotals struct {
		total    int
		marlin   int
		weighted float64
	}
	grouped := make(map[string]dayTotals)
	earliest := ""
	for _, report := range reports {
		if _, ok := noonAnchor(report.Date); !ok {
			continue
		}
		totals := grouped[report.Date]
		totals.total++
		if IsMarlinSignal(report) {
			totals.marlin++
			totals.weighted += Confidence(report.Source)
		}
		grouped[report.Date] = totals
		if earliest == "" || report.Date < earliest {
			earliest = report.Date
		}
	}

	today := now.Format("2006-01-02")
	if earliest == "" || earliest > today {
		earliest = today
	}

	start, _ := time.Parse("2006-01-02", earliest)
	end, _ := time.Parse("2006-01-02", today)

	var series []DailyCount
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		date := cursor.Format("2006-01-02")
		totals := grouped[date]
		series = append(series, DailyCount{
			Date:                 date,
			TotalReports:         totals.total,
			MarlinMentions:       totals.marlin,
			WeightedMarlinSignal: stats.Round2(totals.weighted),
		})
	}
	return series
}

// percentileRank is the fraction of sample values <= target, scaled to
// 0..100 with one decimal.
func percentileRank(values []int, target int) float64 {
	if len(values) == 0 {
		return 0
	}
	lessOrEqual := 0
	for _, value := range values {
		if value <= target {
			lessOrEqual++
		}
	}
	return stats.Round1(float64(lessOrEqual) / float64(len(values)) * 100)
}

// buildSeasonContext compares the latest active day against all days that
// produced at least one report.
func buildSeasonContext(daily []DailyCount, now time.Time) SeasonContext {
	var active []DailyCount
	for _, day := range daily {
		if day.TotalReports > 0 {
			active = append(active, day)
		}
	}

	today := now.Format("2006-01-02")
	if len(active) == 0 {
		return SeasonContext{
			SampleStart:      today,
			SampleEnd:        today,
			LatestReportDate: today,
		}
	}

	marlinValues := make([]int, len(active))
	marlinFloats := make([]float64, len(active))
	sum := 0
	weightedSum := 0.0
	for i, day := range active {
		marlinValues[i] = day.MarlinMentions
		marlinFloats[i] = float64(day.MarlinMentions)
		sum += day.MarlinMentions
		weightedSum += day.WeightedMarlinSignal
	}

	latest := active[len(active)-1]
	avg := float64(sum) / float64(len(active))

	ratio := 0.0
	switch {
	case avg > 0:
		ratio = float64(latest.MarlinMentions) / avg
	case latest.MarlinMentions > 0:
		ratio = float64(latest.MarlinMentions)
	}

	return SeasonContext{
		SampleDays:                 len(active),
		SampleStart:                active[0].Date,
		SampleEnd:                  latest.Date,
		LatestReportDate:           latest.Date,
		LatestDayTotalReports:      latest.TotalReports,
		LatestDayMarlinMentions:    latest.MarlinMentions,
		LatestDayPercentile:        percentileRank(marlinValues, latest.MarlinMentions),
		AverageDailyMarlinMentions: stats.Round2(avg),
		P90DailyMarlinMentions:     stats.Round2(stats.Percentile(marlinFloats, 90)),
		LatestVsAverageRatio:       stats.Round2(ratio),
		LatestDayWeightedSignal:    latest.WeightedMarlinSignal,
		AverageDailyWeightedSignal: stats.Round2(weightedSum / float64(len(active))),
	}
}

// buildSourceQuality summarizes each source name actually observed in the
// report set, strongest weighted signal first.
func buildSourceQuality(reports []bite.Report) []SourceQuality {
	grouped := make(map[string]*SourceQuality)
	var order []string
	for _, report := range reports {
		row, ok := grouped[report.Source]
		if !ok {
			row = &SourceQuality{
				Source:     report.Source,
				Confidence: Confidence(report.Source),
			}
			grouped[report.Source] = row
			order = append(order, report.Source)
		}
		row.TotalReports++
		if IsMarlinSignal(report) {
			row.MarlinReports++
			row.WeightedMarlinSignal += row.Confidence
		}
	}

	rows := make([]SourceQuality, 0, len(order))
	for _, source := range order {
		row := *grouped[source]
		row.WeightedMarlinSignal = stats.Round2(row.WeightedMarlinSignal)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].WeightedMarlinSignal > rows[j].WeightedMarlinSignal
	})
	return rows
}
