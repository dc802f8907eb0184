// Package types provides type definitions for structured data used throughout the land-scout system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// TimestampLayout is the serialization format for LastScraped in the
// persisted table. It sorts lexicographically, which keeps the CSV
// human-diffable across runs.
const TimestampLayout = "2006-01-02 15:04:05"

// Place is one persisted row of the place table, keyed by P4NID.
// AI-normalized numeric fields are pointers: nil means "unknown" and is
// preserved through serialization so consumers can distinguish a free
// service (0) from a missing value.
type Place struct {
	P4NID        string  `json:"p4n_id"`
	Title        string  `json:"title"`
	LocationType string  `json:"location_type"`
	URL          string  `json:"url"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TotalReviews int     `json:"total_reviews"`
	AvgRating    float64 `json:"avg_rating"`

	ParkingMinEUR  *float64 `json:"parking_min_eur"`
	ParkingMaxEUR  *float64 `json:"parking_max_eur"`
	ElectricityEUR *float64 `json:"electricity_eur"`
	WaterEUR       *float64 `json:"water_eur"`
	AIPros         string   `json:"ai_pros"`
	AICons         string   `json:"ai_cons"`

	LastScraped time.Time `json:"last_scraped"`
}

// QueueEntry is one unit of extraction work for the current run.
// Entries are transient and rebuilt on every invocation.
type QueueEntry struct {
	SourceURL string `json:"source_url"`
	P4NID     string `json:"p4n_id"`
}

// RawPlace is the payload produced by the extractor and handed to the
// enrichment client. It carries everything scraped directly from the
// detail page, before any AI normalization.
type RawPlace struct {
	P4NID        string            `json:"p4n_id"`
	Title        string            `json:"title"`
	LocationType string            `json:"location_type"`
	URL          string            `json:"url"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	TotalReviews int               `json:"total_reviews"`
	AvgRating    float64           `json:"avg_rating"`
	Services     map[string]string `json:"services,omitempty"`
	PriceText    string            `json:"price_text,omitempty"`
	Reviews      []string          `json:"reviews,omitempty"`
}

// Enrichment is the structured result returned by the AI step.
// The zero value is the degraded "enrichment failed" result: all price
// fields nil, both summaries empty.
type Enrichment struct {
	ParkingMinEUR  *float64 `json:"parking_min_eur"`
	ParkingMaxEUR  *float64 `json:"parking_max_eur"`
	ElectricityEUR *float64 `json:"electricity_eur"`
	WaterEUR       *float64 `json:"water_eur"`
	ProsSummary    string   `json:"pros_summary"`
	ConsSummary    string   `json:"cons_summary"`
}

// IsEmpty reports whether the enrichment carries no AI-derived data.
func (e *Enrichment) IsEmpty() bool {
	return e.ParkingMinEUR == nil && e.ParkingMaxEUR == nil &&
		e.ElectricityEUR == nil && e.WaterEUR == nil &&
		e.ProsSummary == "" && e.ConsSummary == ""
}

// Apply copies the enrichment onto a place row.
func (e *Enrichment) Apply(p *Place) {
	p.ParkingMinEUR = e.ParkingMinEUR
	p.ParkingMaxEUR = e.ParkingMaxEUR
	p.ElectricityEUR = e.ElectricityEUR
	p.WaterEUR = e.WaterEUR
	p.AIPros = e.ProsSummary
	p.AICons = e.ConsSummary
}
