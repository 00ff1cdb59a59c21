// Package envelope defines the JSON documents the pipeline publishes and
// reads back as prior snapshots, and the validated file IO for them.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/metrics"
	envelopeschema "cortez.fish/bite-pipeline/schema"
)

const (
	// BiteFile and ConditionsFile are the snapshot file names under the
	// configured data directory.
	BiteFile       = "bite_reports.json"
	ConditionsFile = "conditions.json"

	// maxStoredFailures truncates the published parse failure list.
	maxStoredFailures = 50
)

type BiteData struct {
	Reports       []bite.Report       `json:"reports"`
	ParseFailures []bite.ParseFailure `json:"parse_failures"`
	Metrics       metrics.Metrics     `json:"metrics"`
}

type Bite struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Sources     []bite.SourceStatus `json:"sources"`
	Data        BiteData            `json:"data"`
}

type ConditionsLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// HourlyPoint carries one forecast hour. Nil values marshal as JSON null,
// matching hours the upstream feed leaves unmeasured.
type HourlyPoint struct {
	TS                       string   `json:"ts"`
	WaveHeightM              *float64 `json:"wave_height_m"`
	SwellWaveHeightM         *float64 `json:"swell_wave_height_m"`
	SwellWaveDirectionDeg    *float64 `json:"swell_wave_direction_deg"`
	SwellWavePeriodS         *float64 `json:"swell_wave_period_s"`
	OceanCurrentVelocityMS   *float64 `json:"ocean_current_velocity_m_s"`
	OceanCurrentDirectionDeg *float64 `json:"ocean_current_direction_deg"`
	SeaSurfaceTempC          *float64 `json:"sea_surface_temperature_c"`
	SeaSurfaceTempF          *float64 `json:"sea_surface_temperature_f"`
	SeaLevelHeightMSLM       *float64 `json:"sea_level_height_msl_m"`
}

type RuleInputs struct {
	WaveHeightP90M          float64 `json:"wave_height_p90_m"`
	SwellPeriodMedianS      float64 `json:"swell_period_median_s"`
	CurrentVelocityMedianMS float64 `json:"current_velocity_median_m_s"`
	SSTMedianF              float64 `json:"sst_median_f"`
}

type DaySummary struct {
	Date                  string     `json:"date"`
	WaveHeightMedian      float64    `json:"wave_height_median"`
	WaveHeightP90         float64    `json:"wave_height_p90"`
	SSTFMedian            float64    `json:"sst_f_median"`
	CurrentVelocityMedian float64    `json:"current_velocity_median"`
	GoNoGoScore           float64    `json:"go_no_go_score"`
	GoNoGoLabel           string     `json:"go_no_go_label"`
	RuleInputs            RuleInputs `json:"rule_inputs"`
}

type ConditionsData struct {
	Location     ConditionsLocation `json:"location"`
	Hourly       []HourlyPoint      `json:"hourly"`
	DaySummaries []DaySummary       `json:"day_summaries"`
}

type Conditions struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Sources     []bite.SourceStatus `json:"sources"`
	Data        ConditionsData      `json:"data"`
}

// LoadBite reads the prior bite snapshot. A missing file returns (nil, nil);
// an unreadable or schema-invalid file returns (nil, err) so the caller can
// log and continue without it.
func LoadBite(path string) (*Bite, error) {
	raw, err := readIfExists(path)
	if err != nil || raw == nil {
		return nil, err
	}

	if err := envelopeschema.ValidateBiteReports(raw); err != nil {
		return nil, fmt.Errorf("previous snapshot %s: %w", path, err)
	}

	var env Bite
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("previous snapshot %s: %w", path, err)
	}
	return &env, nil
}

// LoadConditions reads the prior conditions snapshot with the same absent
// and corrupt semantics as LoadBite.
func LoadConditions(path string) (*Conditions, error) {
	raw, err := readIfExists(path)
	if err != nil || raw == nil {
		return nil, err
	}

	if err := envelopeschema.ValidateConditions(raw); err != nil {
		return nil, fmt.Errorf("previous snapshot %s: %w", path, err)
	}

	var env Conditions
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("previous snapshot %s: %w", path, err)
	}
	return &env, nil
}

// WriteBite validates the envelope and writes it atomically.
func WriteBite(path string, env *Bite) error {
	env.normalize()
	return writeValidated(path, env, envelopeschema.ValidateBiteReports)
}

// WriteConditions validates the envelope and writes it atomically.
func WriteConditions(path string, env *Conditions) error {
	env.normalize()
	return writeValidated(path, env, envelopeschema.ValidateConditions)
}

// normalize replaces nil collections with empty ones and truncates the
// failure list, so the marshaled document always carries arrays.
func (e *Bite) normalize() {
	if e.Sources == nil {
		e.Sources = []bite.SourceStatus{}
	}
	if e.Data.Reports == nil {
		e.Data.Reports = []bite.Report{}
	}
	if e.Data.ParseFailures == nil {
		e.Data.ParseFailures = []bite.ParseFailure{}
	}
	if len(e.Data.ParseFailures) > maxStoredFailures {
		e.Data.ParseFailures = e.Data.ParseFailures[:maxStoredFailures]
	}
	if e.Data.Metrics.TrendLast72h == nil {
		e.Data.Metrics.TrendLast72h = []metrics.TrendBucket{}
	}
	if e.Data.Metrics.DailyMarlinCounts == nil {
		e.Data.Metrics.DailyMarlinCounts = []metrics.DailyCount{}
	}
	if e.Data.Metrics.SourceQuality == nil {
		e.Data.Metrics.SourceQuality = []metrics.SourceQuality{}
	}
}

func (e *Conditions) normalize() {
	if e.Sources == nil {
		e.Sources = []bite.SourceStatus{}
	}
	if e.Data.Hourly == nil {
		e.Data.Hourly = []HourlyPoint{}
	}
	if e.Data.DaySummaries == nil {
		e.Data.DaySummaries = []DaySummary{}
	}
}

func readIfExists(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return raw, nil
}

func writeValidated(path string, env any, validate func(json.RawMessage) error) error {
	payload, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	payload = append(payload, '\n')

	if err := validate(payload); err != nil {
		return fmt.Errorf("refusing to write %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
