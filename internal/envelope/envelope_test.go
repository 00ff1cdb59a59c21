package envelope

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/metrics"
)

func sampleBite(t *testing.T) *Bite {
	t.Helper()

	reports := []bite.Report{{
		Source:  "El Budster",
		Date:    "2026-02-21",
		Species: []string{"striped marlin"},
		Notes:   "Two striped marlin released at the 95 spot",
		Link:    "https://www.elbudster.com/report",
	}}

	return &Bite{
		GeneratedAt: globaltime.UTC(),
		Sources: []bite.SourceStatus{{
			Name:      "El Budster",
			URL:       "https://www.elbudster.com/report",
			FetchedAt: globaltime.UTC(),
			OK:        true,
		}},
		Data: BiteData{
			Reports: reports,
			Metrics: metrics.Build(reports),
		},
	}
}

func TestWriteAndLoadBiteRoundTrip(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	path := filepath.Join(t.TempDir(), BiteFile)
	if err := WriteBite(path, sampleBite(t)); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	loaded, err := LoadBite(path)
	if err != nil {
		t.Fatalf("load envelope: %v", err)
	}
	if loaded == nil || len(loaded.Data.Reports) != 1 {
		t.Fatalf("unexpected loaded envelope %+v", loaded)
	}
	if loaded.Data.Reports[0].Date != "2026-02-21" {
		t.Fatalf("unexpected report %+v", loaded.Data.Reports[0])
	}
	if len(loaded.Data.ParseFailures) != 0 {
		t.Fatalf("expected normalized empty failure list, got %+v", loaded.Data.ParseFailures)
	}
}

func TestLoadBiteAbsentFile(t *testing.T) {
	t.Parallel()

	loaded, err := LoadBite(filepath.Join(t.TempDir(), BiteFile))
	if err != nil || loaded != nil {
		t.Fatalf("expected (nil, nil) for an absent snapshot, got %v, %v", loaded, err)
	}
}

func TestLoadBiteCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), BiteFile)
	if err := os.WriteFile(path, []byte(`{"generated_at": "yesterday"}`), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	loaded, err := LoadBite(path)
	if err == nil || loaded != nil {
		t.Fatalf("expected corrupt snapshot to surface an error, got %v, %v", loaded, err)
	}
}

func TestWriteBiteTruncatesFailures(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	env := sampleBite(t)
	for i := 0; i < 60; i++ {
		env.Data.ParseFailures = append(env.Data.ParseFailures, bite.ParseFailure{
			Source: "Archive",
			Link:   fmt.Sprintf("https://archive.example.com/page/%d/", i),
			Error:  "no reports matched parser rules",
		})
	}

	path := filepath.Join(t.TempDir(), BiteFile)
	if err := WriteBite(path, env); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	loaded, err := LoadBite(path)
	if err != nil {
		t.Fatalf("load envelope: %v", err)
	}
	if len(loaded.Data.ParseFailures) != 50 {
		t.Fatalf("expected failure list truncated to 50, got %d", len(loaded.Data.ParseFailures))
	}
}

func TestWriteAndLoadConditionsRoundTrip(t *testing.T) {
	globaltime.SetMockTime(time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	wave := 1.2
	env := &Conditions{
		GeneratedAt: globaltime.UTC(),
		Sources: []bite.SourceStatus{{
			Name:      "Open-Meteo Marine",
			URL:       "https://marine-api.open-meteo.com/v1/marine",
			FetchedAt: globaltime.UTC(),
			OK:        true,
		}},
		Data: ConditionsData{
			Location: ConditionsLocation{Name: "Cabo Marina", Latitude: 22.879, Longitude: -109.892, Timezone: "GMT"},
			Hourly:   []HourlyPoint{{TS: "2026-02-22T00:00:00Z", WaveHeightM: &wave}},
			DaySummaries: []DaySummary{{
				Date:                  "2026-02-22",
				WaveHeightMedian:      1.2,
				WaveHeightP90:         1.5,
				SSTFMedian:            76.1,
				CurrentVelocityMedian: 0.4,
				GoNoGoScore:           100,
				GoNoGoLabel:           "Go",
				RuleInputs: RuleInputs{
					WaveHeightP90M:          1.5,
					SwellPeriodMedianS:      11,
					CurrentVelocityMedianMS: 0.4,
					SSTMedianF:              76.1,
				},
			}},
		},
	}

	path := filepath.Join(t.TempDir(), ConditionsFile)
	if err := WriteConditions(path, env); err != nil {
		t.Fatalf("write envelope: %v", err)
	}

	loaded, err := LoadConditions(path)
	if err != nil {
		t.Fatalf("load envelope: %v", err)
	}
	if loaded == nil || len(loaded.Data.DaySummaries) != 1 {
		t.Fatalf("unexpected loaded envelope %+v", loaded)
	}
	if loaded.Data.Hourly[0].WaveHeightM == nil || *loaded.Data.Hourly[0].WaveHeightM != 1.2 {
		t.Fatalf("expected nullable wave height restored, got %+v", loaded.Data.Hourly[0])
	}
	if loaded.Data.Hourly[0].SeaSurfaceTempF != nil {
		t.Fatalf("expected missing measurement to stay null")
	}
}

func TestWriteConditionsRejectsBadLabel(t *testing.T) {
	t.Parallel()

	env := &Conditions{
		GeneratedAt: time.Date(2026, 2, 22, 6, 0, 0, 0, time.UTC),
		Data: ConditionsData{
			Location: ConditionsLocation{Name: "Cabo Marina", Latitude: 22.879, Longitude: -109.892, Timezone: "GMT"},
			DaySummaries: []DaySummary{{
				Date:        "2026-02-22",
				GoNoGoLabel: "Maybe",
			}},
		},
	}

	err := WriteConditions(filepath.Join(t.TempDir(), ConditionsFile), env)
	if err == nil {
		t.Fatalf("expected schema rejection for unknown label")
	}
}
