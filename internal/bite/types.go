// Package bite holds the shared record types produced by the crawl pipeline.
package bite

import "time"

// Report is one normalized bite report extracted from a third-party source.
// Date is always a valid YYYY-MM-DD calendar date and Link an absolute URL
// (the source page URL when the raw markup carried none).
type Report struct {
	Source                string   `json:"source"`
	Date                  string   `json:"date"`
	Species               []string `json:"species"`
	Notes                 string   `json:"notes"`
	DistanceOffshoreMiles *int     `json:"distance_offshore_miles,omitempty"`
	WaterTempF            *float64 `json:"water_temp_f,omitempty"`
	Link                  string   `json:"link"`
}

// ParseFailure records a payload that yielded zero usable records, or a
// failed fetch, with a snippet for diagnosis.
type ParseFailure struct {
	Source  string `json:"source"`
	Link    string `json:"link"`
	Error   string `json:"error"`
	Snippet string `json:"snippet"`
}

// SourceStatus is one provenance row per network attempt, including one per
// page for paginated sources.
type SourceStatus struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}
