// Package conditions ingests the Open-Meteo Marine forecast for the marina
// location and distills it into hourly points, per-day summaries, and a
// Go/No-Go score per day.
package conditions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"cortez.fish/bite-pipeline/internal/bite"
	"cortez.fish/bite-pipeline/internal/config"
	"cortez.fish/bite-pipeline/internal/envelope"
	"cortez.fish/bite-pipeline/internal/fetch"
	"cortez.fish/bite-pipeline/internal/globaltime"
	"cortez.fish/bite-pipeline/internal/stats"
)

const (
	sourceName   = "Open-Meteo Marine"
	forecastDays = 10

	hourlyVariables = "wave_height,swell_wave_height,swell_wave_direction,swell_wave_period," +
		"ocean_current_velocity,ocean_current_direction,sea_surface_temperature,sea_level_height_msl"
)

// Getter is the fetch surface this package needs. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) fetch.Result
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Hourly   struct {
		Time                  []string   `json:"time"`
		WaveHeight            []*float64 `json:"wave_height"`
		SwellWaveHeight       []*float64 `json:"swell_wave_height"`
		SwellWaveDirection    []*float64 `json:"swell_wave_direction"`
		SwellWavePeriod       []*float64 `json:"swell_wave_period"`
		OceanCurrentVelocity  []*float64 `json:"ocean_current_velocity"`
		OceanCurrentDirection []*float64 `json:"ocean_current_direction"`
		SeaSurfaceTemperature []*float64 `json:"sea_surface_temperature"`
		SeaLevelHeightMSL     []*float64 `json:"sea_level_height_msl"`
	} `json:"hourly"`
}

// RequestURL builds the marine forecast request for a location.
func RequestURL(latitude, longitude float64) string {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%g", latitude))
	params.Set("longitude", fmt.Sprintf("%g", longitude))
	params.Set("timezone", "auto")
	params.Set("forecast_days", fmt.Sprintf("%d", forecastDays))
	params.Set("cell_selection", "sea")
	params.Set("hourly", hourlyVariables)
	return "https://marine-api.open-meteo.com/v1/marine?" + params.Encode()
}

// Run fetches and summarizes the forecast. On any fetch or decode failure
// the previous snapshot's data is republished with the failed source status
// prepended; with no previous snapshot the failure is fatal for this
// envelope.
func Run(ctx context.Context, client Getter, cfg *config.Config, previous *envelope.Conditions, logger zerolog.Logger) (*envelope.Conditions, error) {
	requestURL := RequestURL(cfg.MarinaLatitude, cfg.MarinaLongitude)

	result := client.Get(ctx, requestURL)
	if !result.OK {
		return fallback(previous, requestURL, result.FetchedAt, result.Err, logger)
	}

	var decoded openMeteoResponse
	if err := json.Unmarshal([]byte(result.Body), &decoded); err != nil {
		return fallback(previous, requestURL, result.FetchedAt, "decode forecast payload: "+err.Error(), logger)
	}

	hourly := buildHourly(&decoded)
	if len(hourly) == 0 {
		return fallback(previous, requestURL, result.FetchedAt, "forecast payload carried no hourly data", logger)
	}

	return &envelope.Conditions{
		GeneratedAt: globaltime.UTC(),
		Sources: []bite.SourceStatus{{
			Name:      sourceName,
			URL:       requestURL,
			FetchedAt: result.FetchedAt,
			OK:        true,
		}},
		Data: envelope.ConditionsData{
			Location: envelope.ConditionsLocation{
				Name:      cfg.MarinaName,
				Latitude:  cfg.MarinaLatitude,
				Longitude: cfg.MarinaLongitude,
				Timezone:  decoded.Timezone,
			},
			Hourly:       hourly,
			DaySummaries: buildDaySummaries(hourly),
		},
	}, nil
}

func fallback(previous *envelope.Conditions, requestURL string, fetchedAt time.Time, errMsg string, logger zerolog.Logger) (*envelope.Conditions, error) {
	if fetchedAt.IsZero() {
		fetchedAt = globaltime.UTC()
	}
	failed := bite.SourceStatus{
		Name:      sourceName,
		URL:       requestURL,
		FetchedAt: fetchedAt,
		OK:        false,
		Error:     errMsg,
	}

	if previous == nil {
		return nil, fmt.Errorf("unable to build conditions data: %s", errMsg)
	}

	logger.Warn().Str("error", errMsg).Msg("conditions fetch failed, republishing previous snapshot")
	return &envelope.Conditions{
		GeneratedAt: globaltime.UTC(),
		Sources:     append([]bite.SourceStatus{failed}, previous.Sources...),
		Data:        previous.Data,
	}, nil
}

func buildHourly(decoded *openMeteoResponse) []envelope.HourlyPoint {
	h := &decoded.Hourly
	length := len(h.Time)
	for _, arr := range [][]*float64{
		h.WaveHeight, h.SwellWaveHeight, h.SwellWaveDirection, h.SwellWavePeriod,
		h.OceanCurrentVelocity, h.OceanCurrentDirection, h.SeaSurfaceTemperature, h.SeaLevelHeightMSL,
	} {
		if len(arr) < length {
			length = len(arr)
		}
	}

	points := make([]envelope.HourlyPoint, 0, length)
	for i := 0; i < length; i++ {
		ts, ok := normalizeTimestamp(h.Time[i])
		if !ok {
			continue
		}
		sstC := h.SeaSurfaceTemperature[i]
		points = append(points, envelope.HourlyPoint{
			TS:                       ts,
			WaveHeightM:              h.WaveHeight[i],
			SwellWaveHeightM:         h.SwellWaveHeight[i],
			SwellWaveDirectionDeg:    h.SwellWaveDirection[i],
			SwellWavePeriodS:         h.SwellWavePeriod[i],
			OceanCurrentVelocityMS:   h.OceanCurrentVelocity[i],
			OceanCurrentDirectionDeg: h.OceanCurrentDirection[i],
			SeaSurfaceTempC:          sstC,
			SeaSurfaceTempF:          toFahrenheit(sstC),
			SeaLevelHeightMSLM:       h.SeaLevelHeightMSL[i],
		})
	}
	return points
}

// normalizeTimestamp accepts Open-Meteo's minute-precision local timestamps
// as well as full RFC3339 and renders a uniform RFC3339 UTC string.
func normalizeTimestamp(raw string) (string, bool) {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC().Format(time.RFC3339), true
		}
	}
	return "", false
}

func toFahrenheit(celsius *float64) *float64 {
	if celsius == nil {
		return nil
	}
	f := *celsius*9/5 + 32
	return &f
}

func buildDaySummaries(hourly []envelope.HourlyPoint) []envelope.DaySummary {
	grouped := make(map[string][]envelope.HourlyPoint)
	for _, point := range hourly {
		date := point.TS[:10]
		grouped[date] = append(grouped[date], point)
	}

	summaries := make([]envelope.DaySummary, 0, len(grouped))
	for date, points := range grouped {
		var waves, periods, currents, ssts []float64
		for _, point := range points {
			if point.WaveHeightM != nil {
				waves = append(waves, *point.WaveHeightM)
			}
			if point.SwellWavePeriodS != nil {
				periods = append(periods, *point.SwellWavePeriodS)
			}
			if point.OceanCurrentVelocityMS != nil {
				currents = append(currents, *point.OceanCurrentVelocityMS)
			}
			if point.SeaSurfaceTempF != nil {
				ssts = append(ssts, *point.SeaSurfaceTempF)
			}
		}

		inputs := envelope.RuleInputs{
			WaveHeightP90M:          stats.Percentile(waves, 90),
			SwellPeriodMedianS:      stats.Median(periods),
			CurrentVelocityMedianMS: stats.Median(currents),
			SSTMedianF:              stats.Median(ssts),
		}
		goNoGo := ComputeGoNoGo(inputs)

		summaries = append(summaries, envelope.DaySummary{
			Date:                  date,
			WaveHeightMedian:      stats.Median(waves),
			WaveHeightP90:         inputs.WaveHeightP90M,
			SSTFMedian:            inputs.SSTMedianF,
			CurrentVelocityMedian: inputs.CurrentVelocityMedianMS,
			GoNoGoScore:           goNoGo.Score,
			GoNoGoLabel:           goNoGo.Label,
			RuleInputs:            inputs,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Date < summaries[j].Date
	})
	return summaries
}
