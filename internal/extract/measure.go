package extract

import (
	"math"
	"regexp"
	"strconv"
)

var (
	reDistance = regexp.MustCompile(`(?i)\b(\d{1,3})(?:\s*(?:-|to)\s*(\d{1,3}))?\s*(?:miles?|mi|nmi|nm)\b`)

	reTempFahrenheit = regexp.MustCompile(`(?i)\b(\d{2,3}(?:\.\d+)?)\s*(?:degrees?\s*)?(?:°\s*)?f(?:ahrenheit)?\b`)
	reTempPhrase     = regexp.MustCompile(`(?i)water\s*temp(?:erature)?\s*(?:is|at)?\s*(\d{2,3}(?:\.\d+)?)`)
	reTempCelsius    = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d+)?)\s*(?:degrees?\s*)?(?:°\s*)?c(?:elsius)?\b`)
)

// DistanceMiles extracts a distance-offshore figure. Ranges like "20-30 miles"
// are averaged and rounded to the nearest mile.
func DistanceMiles(text string) (int, bool) {
	m := reDistance.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	low, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if m[2] == "" {
		return low, true
	}

	high, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return int(math.Round(float64(low+high) / 2)), true
}

// WaterTempF extracts a water temperature in Fahrenheit. An explicit
// Fahrenheit mention wins, then a "water temp is/at N" phrase, then a Celsius
// mention converted and rounded to one decimal.
func WaterTempF(text string) (float64, bool) {
	if m := reTempFahrenheit.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	if m := reTempPhrase.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	if m := reTempCelsius.FindStringSubmatch(text); m != nil {
		if c, err := strconv.ParseFloat(m[1], 64); err == nil {
			f := c*9/5 + 32
			return math.Round(f*10) / 10, true
		}
	}

	return 0, false
}
