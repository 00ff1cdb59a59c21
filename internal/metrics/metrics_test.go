package metrics

import (
	"fmt"
	"testing"
	"time"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/globaltime"
)

func marlinReport(date, source string, n int) bite.Report {
	return bite.Report{
		Source:  source,
		Date:    date,
		Species: []string{"striped marlin"},
		Notes:   fmt.Sprintf("Striped marlin release number %d reported off the bank", n),
		Link:    fmt.Sprintf("https://example.com/%s/%d", date, n),
	}
}

func quietReport(date, source string, n int) bite.Report {
	return bite.Report{
		Source:  source,
		Date:    date,
		Species: []string{"sailfish"},
		Notes:   fmt.Sprintf("Sailfish and dorado only today, entry %d", n),
		Link:    fmt.Sprintf("https://example.com/%s/quiet/%d", date, n),
	}
}

// sampleReports builds five consecutive active days ending today with daily
// marlin counts 0, 1, 3, 2, 5.
func sampleReports() []bite.Report {
	counts := map[string]int{
		"2026-02-18": 0,
		"2026-02-19": 1,
		"2026-02-20": 3,
		"2026-02-21": 2,
		"2026-02-22": 5,
	}
	var reports []bite.Report
	reports = append(reports, quietReport("2026-02-18", "El Budster", 0))
	for date, count := range counts {
		for i := 0; i < count; i++ {
			reports = append(reports, marlinReport(date, "El Budster", i))
		}
	}
	return reports
}

func TestIsMarlinSignal(t *testing.T) {
	t.Parallel()

	if !IsMarlinSignal(bite.Report{Species: []string{"blue marlin"}}) {
		t.Fatalf("expected species mention to count")
	}
	if !IsMarlinSignal(bite.Report{Species: []string{"tuna"}, Notes: "One Marlin seen tailing"}) {
		t.Fatalf("expected notes mention to count case-insensitively")
	}
	if IsMarlinSignal(bite.Report{Species: []string{"wahoo"}, Notes: "Wide open wahoo bite"}) {
		t.Fatalf("expected no signal without a marlin mention")
	}
}

func TestConfidenceDefault(t *testing.T) {
	t.Parallel()

	if got := Confidence("El Budster"); got != 0.9 {
		t.Fatalf("expected table weight 0.9, got %v", got)
	}
	if got := Confidence("Some Unknown Charter Blog"); got != 0.65 {
		t.Fatalf("expected default weight 0.65, got %v", got)
	}
}

func TestBuildSeasonContextSample(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	m := Build(sampleReports())
	ctx := m.SeasonContext

	if ctx.SampleDays != 5 {
		t.Fatalf("expected 5 active days, got %d", ctx.SampleDays)
	}
	if ctx.SampleStart != "2026-02-18" || ctx.SampleEnd != "2026-02-22" {
		t.Fatalf("unexpected sample range %s..%s", ctx.SampleStart, ctx.SampleEnd)
	}
	if ctx.LatestDayMarlinMentions != 5 {
		t.Fatalf("expected latest day to have 5 mentions, got %d", ctx.LatestDayMarlinMentions)
	}
	if ctx.LatestDayPercentile != 100 {
		t.Fatalf("expected 100th percentile for the strongest day, got %v", ctx.LatestDayPercentile)
	}
	if ctx.AverageDailyMarlinMentions != 2.2 {
		t.Fatalf("expected average 2.2, got %v", ctx.AverageDailyMarlinMentions)
	}
	if ctx.LatestVsAverageRatio != 2.27 {
		t.Fatalf("expected ratio 5/2.2 rounded to 2.27, got %v", ctx.LatestVsAverageRatio)
	}
	if ctx.P90DailyMarlinMentions != 4.2 {
		t.Fatalf("expected interpolated p90 of 4.2, got %v", ctx.P90DailyMarlinMentions)
	}
	if ctx.LatestDayWeightedSignal != 4.5 {
		t.Fatalf("expected latest day weighted 5*0.9, got %v", ctx.LatestDayWeightedSignal)
	}
	if ctx.AverageDailyWeightedSignal != 1.98 {
		t.Fatalf("expected average weighted 9.9/5, got %v", ctx.AverageDailyWeightedSignal)
	}
}

func TestBuildWindowedSignalAndTrend(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	m := Build(sampleReports())

	// Noon anchors for Feb 20, 21 and 22 fall inside the 72h window; the
	// Feb 19 anchor precedes it by six hours.
	if m.MarlinMentionsLast72h != 10 {
		t.Fatalf("expected 10 mentions inside the window, got %d", m.MarlinMentionsLast72h)
	}
	if m.WeightedMarlinSignalLast72h != 9.0 {
		t.Fatalf("expected weighted signal 10*0.9, got %v", m.WeightedMarlinSignalLast72h)
	}

	if len(m.TrendLast72h) != 7 {
		t.Fatalf("expected 7 trend buckets over 72h, got %d", len(m.TrendLast72h))
	}
	total := 0
	for _, bucket := range m.TrendLast72h {
		total += bucket.Mentions
	}
	if total != 10 {
		t.Fatalf("expected trend buckets to account for 10 mentions, got %d", total)
	}
	last := m.TrendLast72h[len(m.TrendLast72h)-1]
	if last.BucketTS != "2026-02-22T18:00:00Z" || last.Mentions != 0 {
		t.Fatalf("unexpected final bucket %+v", last)
	}
}

func TestBuildDailySeriesIsDense(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	reports := []bite.Report{
		marlinReport("2026-02-18", "Pisces", 1),
		marlinReport("2026-02-21", "Pisces", 2),
	}
	m := Build(reports)

	if len(m.DailyMarlinCounts) != 5 {
		t.Fatalf("expected Feb 18 through Feb 22 inclusive, got %d entries", len(m.DailyMarlinCounts))
	}
	gap := m.DailyMarlinCounts[1]
	if gap.Date != "2026-02-19" || gap.TotalReports != 0 || gap.MarlinMentions != 0 {
		t.Fatalf("expected zero-filled gap day, got %+v", gap)
	}
	first := m.DailyMarlinCounts[0]
	if first.MarlinMentions != 1 || first.WeightedMarlinSignal != 0.85 {
		t.Fatalf("expected weighted signal from the Pisces table entry, got %+v", first)
	}
}

func TestBuildSourceQualitySorted(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	reports := []bite.Report{
		marlinReport("2026-02-22", "FishingBooker", 1),
		marlinReport("2026-02-22", "FishingBooker", 2),
		marlinReport("2026-02-22", "El Budster", 1),
		quietReport("2026-02-22", "Pisces", 1),
	}
	m := Build(reports)

	if len(m.SourceQuality) != 3 {
		t.Fatalf("expected 3 observed sources, got %d", len(m.SourceQuality))
	}
	if m.SourceQuality[0].Source != "FishingBooker" || m.SourceQuality[0].WeightedMarlinSignal != 1.4 {
		t.Fatalf("expected FishingBooker first with 2*0.7 signal, got %+v", m.SourceQuality[0])
	}
	pisces := m.SourceQuality[2]
	if pisces.Source != "Pisces" || pisces.MarlinReports != 0 || pisces.TotalReports != 1 {
		t.Fatalf("expected quiet Pisces row last, got %+v", pisces)
	}
}

func TestBuildEmptyReports(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 18, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	m := Build(nil)

	if m.MarlinMentionsLast72h != 0 || len(m.SourceQuality) != 0 {
		t.Fatalf("expected empty metrics, got %+v", m)
	}
	if len(m.DailyMarlinCounts) != 1 || m.DailyMarlinCounts[0].Date != "2026-02-22" {
		t.Fatalf("expected a single zero entry for today, got %+v", m.DailyMarlinCounts)
	}
	if m.SeasonContext.SampleDays != 0 || m.SeasonContext.LatestReportDate != "2026-02-22" {
		t.Fatalf("unexpected empty-season context %+v", m.SeasonContext)
	}
}
