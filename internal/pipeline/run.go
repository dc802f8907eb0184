// Package pipeline orchestrates one scout run: partition selection,
// discovery, queue construction, per-place extraction and enrichment, and
// the final merge into the persisted table.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tiago/land-scout/internal/extract"
	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/observability"
	"github.com/tiago/land-scout/internal/queue"
	"github.com/tiago/land-scout/internal/store"
	"github.com/tiago/land-scout/internal/types"
)

// Scanner discovers candidate place links from seed listing pages.
type Scanner interface {
	Scan(seeds []string) []string
}

// PlaceExtractor produces the raw payload for one queued place.
type PlaceExtractor interface {
	Extract(entry types.QueueEntry) extract.Result
}

// Enricher normalizes a raw payload through the AI step.
type Enricher interface {
	Analyze(ctx context.Context, raw types.RawPlace) (types.Enrichment, error)
}

// Mirror is the optional secondary sink for the merged table.
type Mirror interface {
	UpsertPlaces(ctx context.Context, places []types.Place) error
}

// Options carries the run's policy and file locations.
type Options struct {
	SeedsFile          string
	CSVPath            string
	PartitionStatePath string

	Staleness time.Duration
	Force     bool
	DevLimit  int

	// Pace is the human-like delay between queue entries.
	Pace time.Duration
}

// Deps are the run's collaborators, injected so the pipeline logic is
// testable without a browser or the network.
type Deps struct {
	Scanner   Scanner
	Extractor PlaceExtractor
	Enricher  Enricher
	Mirror    Mirror
	Logger    *logging.Logger
	Printer   *observability.Printer

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

// Run executes one full scout run over a single partition of the seed
// universe. Per-place failures are absorbed into the stats; only the
// inability to read the seed universe or to persist any result at all
// fails the run. The partition cursor advances only on success.
func Run(ctx context.Context, opts Options, deps Deps) (types.RunStats, error) {
	var stats types.RunStats

	if deps.Logger == nil {
		deps.Logger = logging.New(false)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger

	seeds, err := queue.LoadSeeds(opts.SeedsFile)
	if err != nil {
		return stats, fmt.Errorf("load seed universe: %w", err)
	}
	if len(seeds) == 0 {
		return stats, fmt.Errorf("seed universe %s is empty", opts.SeedsFile)
	}

	state := queue.LoadPartitionState(opts.PartitionStatePath)
	seed, idx := queue.SelectPartition(seeds, state.CurrentIndex)
	logger.Info("[pipeline] Partition %d/%d: %s", idx, len(seeds), seed)

	existing := store.LoadCSV(opts.CSVPath, logger)
	byID := make(map[string]types.Place, len(existing))
	for _, p := range existing {
		byID[p.P4NID] = p
	}
	logger.Info("[pipeline] Loaded %d existing records", len(existing))

	discovered := deps.Scanner.Scan([]string{seed})

	build := queue.Build(discovered, byID, queue.Policy{
		Staleness: opts.Staleness,
		Force:     opts.Force,
		DevLimit:  opts.DevLimit,
	}, deps.Now(), logger)
	stats.Read = build.Read
	stats.DiscardedFresh = build.DiscardedFresh

	var processed []types.Place
	for i, entry := range build.Entries {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("run cancelled: %w", err)
		}
		if i > 0 && opts.Pace > 0 {
			time.Sleep(opts.Pace)
		}

		logger.Info("[pipeline] (%d/%d) Extracting %s", i+1, len(build.Entries), entry.P4NID)
		result := deps.Extractor.Extract(entry)

		switch result.Outcome {
		case extract.OutcomeFailed:
			stats.Failed++
			logger.Warn("[pipeline] Extraction failed for %s, skipping: %v", entry.P4NID, result.Err)
			continue
		case extract.OutcomeDiscarded:
			stats.DiscardedLowFeedback++
			continue
		}

		stats.EnrichmentCalls++
		enrichment, err := deps.Enricher.Analyze(ctx, *result.Raw)
		if err != nil {
			// Degraded record: scraped fields survive, AI fields stay null.
			logger.Warn("[pipeline] Enrichment failed for %s, keeping scraped fields only: %v",
				entry.P4NID, err)
			enrichment = types.Enrichment{}
		}

		processed = append(processed, placeFromRaw(result.Raw, enrichment, deps.Now()))
	}

	if len(processed) > 0 {
		if err := store.MergeAndSave(opts.CSVPath, existing, processed, logger); err != nil {
			return stats, fmt.Errorf("persist results: %w", err)
		}
	} else {
		logger.Info("[pipeline] Nothing new to persist")
	}

	if deps.Mirror != nil && len(processed) > 0 {
		if err := deps.Mirror.UpsertPlaces(ctx, processed); err != nil {
			logger.Warn("[pipeline] Postgres mirror failed (CSV remains authoritative): %v", err)
		}
	}

	// The cursor moves as the final step so an interrupted run re-scans
	// its partition instead of silently skipping it.
	if err := queue.Advance(opts.PartitionStatePath, len(seeds)); err != nil {
		return stats, fmt.Errorf("advance partition cursor: %w", err)
	}

	if deps.Printer != nil {
		merged := store.LoadCSV(opts.CSVPath, logger)
		deps.Printer.PrintRunSummary(seed, stats, len(merged))
		deps.Printer.PrintInsights(merged)
	}

	return stats, nil
}

// placeFromRaw assembles the persisted row from scraped fields plus the
// enrichment (possibly empty).
func placeFromRaw(raw *types.RawPlace, enrichment types.Enrichment, now time.Time) types.Place {
	place := types.Place{
		P4NID:        raw.P4NID,
		Title:        raw.Title,
		LocationType: raw.LocationType,
		URL:          raw.URL,
		Latitude:     raw.Latitude,
		Longitude:    raw.Longitude,
		TotalReviews: raw.TotalReviews,
		AvgRating:    raw.AvgRating,
		LastScraped:  now,
	}
	enrichment.Apply(&place)
	return place
}
