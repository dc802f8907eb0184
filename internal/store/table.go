// Package store persists the place table: a CSV file as the system of
// record, with an optional PostgreSQL mirror.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/types"
)

// header is the fixed CSV column order.
var header = []string{
	"p4n_id", "title", "location_type", "url", "latitude", "longitude",
	"total_reviews", "avg_rating", "parking_min_eur", "parking_max_eur",
	"electricity_eur", "water_eur", "ai_pros", "ai_cons", "last_scraped",
}

// Upsert merges new rows into the existing table. New rows go first so
// they win ties, the combined set is sorted descending by last_scraped,
// and the first occurrence per p4n_id is kept. Running the same merge
// twice never duplicates rows.
func Upsert(existing, newRows []types.Place) []types.Place {
	combined := make([]types.Place, 0, len(existing)+len(newRows))
	combined = append(combined, newRows...)
	combined = append(combined, existing...)

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].LastScraped.After(combined[j].LastScraped)
	})

	seen := make(map[string]struct{}, len(combined))
	merged := make([]types.Place, 0, len(combined))
	for _, p := range combined {
		if _, dup := seen[p.P4NID]; dup {
			continue
		}
		seen[p.P4NID] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// LoadCSV reads the persisted table. A missing file is an empty table; a
// file that cannot be parsed degrades to an empty table with a warning
// rather than aborting the run.
func LoadCSV(path string, logger *logging.Logger) []types.Place {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("[store] Could not open %s, starting from empty table: %v", path, err)
		}
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		logger.Warn("[store] Could not parse %s, starting from empty table: %v", path, err)
		return nil
	}
	if len(records) <= 1 {
		return nil
	}

	places := make([]types.Place, 0, len(records)-1)
	for _, row := range records[1:] {
		place, err := placeFromRow(row)
		if err != nil {
			logger.Warn("[store] Skipping malformed row: %v", err)
			continue
		}
		places = append(places, place)
	}
	return places
}

// SaveCSV writes the full table atomically: temp file then rename, so an
// interrupted run never leaves a half-written table behind.
func SaveCSV(path string, places []types.Place) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".places-*.csv")
	if err != nil {
		return fmt.Errorf("create temp table file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range places {
		if err := writer.Write(rowFromPlace(p)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row %s: %w", p.P4NID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp table file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace table %s: %w", path, err)
	}
	return nil
}

// MergeAndSave upserts newRows into the table at path. If the merged save
// fails, fresh data is preserved by appending the new rows instead, and
// the fallback is surfaced as a warning.
func MergeAndSave(path string, existing, newRows []types.Place, logger *logging.Logger) error {
	merged := Upsert(existing, newRows)
	if err := SaveCSV(path, merged); err != nil {
		logger.Warn("[store] Merge save failed (%v), falling back to appending %d new rows", err, len(newRows))
		if appendErr := appendRows(path, newRows); appendErr != nil {
			return fmt.Errorf("merge failed and append fallback failed: %w", appendErr)
		}
		return nil
	}
	logger.Info("[store] Table saved: %d rows (%d new/updated)", len(merged), len(newRows))
	return nil
}

// appendRows is the availability-over-correctness fallback: new rows are
// appended as-is, duplicates tolerated, so a later merge can repair them.
func appendRows(path string, rows []types.Place) error {
	_, statErr := os.Stat(path)
	fileExisted := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s for append: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if !fileExisted {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("append header: %w", err)
		}
	}
	for _, p := range rows {
		if err := writer.Write(rowFromPlace(p)); err != nil {
			return fmt.Errorf("append row %s: %w", p.P4NID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func rowFromPlace(p types.Place) []string {
	return []string{
		p.P4NID,
		p.Title,
		p.LocationType,
		p.URL,
		formatFloat(p.Latitude),
		formatFloat(p.Longitude),
		strconv.Itoa(p.TotalReviews),
		formatFloat(p.AvgRating),
		formatFloatPtr(p.ParkingMinEUR),
		formatFloatPtr(p.ParkingMaxEUR),
		formatFloatPtr(p.ElectricityEUR),
		formatFloatPtr(p.WaterEUR),
		p.AIPros,
		p.AICons,
		p.LastScraped.Format(types.TimestampLayout),
	}
}

func placeFromRow(row []string) (types.Place, error) {
	if len(row) != len(header) {
		return types.Place{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	place := types.Place{
		P4NID:        row[0],
		Title:        row[1],
		LocationType: row[2],
		URL:          row[3],
		AIPros:       row[12],
		AICons:       row[13],
	}
	if place.P4NID == "" {
		return types.Place{}, fmt.Errorf("row has empty p4n_id")
	}

	place.Latitude = parseFloat(row[4])
	place.Longitude = parseFloat(row[5])
	if n, err := strconv.Atoi(row[6]); err == nil {
		place.TotalReviews = n
	}
	place.AvgRating = parseFloat(row[7])
	place.ParkingMinEUR = parseFloatPtr(row[8])
	place.ParkingMaxEUR = parseFloatPtr(row[9])
	place.ElectricityEUR = parseFloatPtr(row[10])
	place.WaterEUR = parseFloatPtr(row[11])

	// An unparseable timestamp degrades to zero time: the row loads, it
	// just loses every future staleness comparison.
	if ts, err := time.Parse(types.TimestampLayout, row[14]); err == nil {
		place.LastScraped = ts
	}

	return place, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatFloatPtr serializes nil as an empty cell, keeping "unknown"
// distinct from 0.
func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
