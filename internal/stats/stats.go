// Package stats provides the small numeric helpers shared by the metrics
// aggregator and the conditions day summaries.
package stats

import (
	"math"
	"sort"
)

func Clamp(value, min, max float64) float64 {
	return math.Min(max, math.Max(min, value))
}

func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Percentile computes the p-th percentile with linear interpolation between
// closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	idx := Clamp(p/100*float64(len(sorted)-1), 0, float64(len(sorted)-1))
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(idx-float64(lower))
}

// Round2 rounds to two decimal places for stored metric values.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(value float64) float64 {
	return math.Round(value*10) / 10
}
