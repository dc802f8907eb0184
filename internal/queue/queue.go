// Package queue converts discovered place links into the run's work queue,
// applying the staleness policy and the day-partition rotation over the
// seed universe.
package queue

import (
	"time"

	"github.com/tiago/land-scout/internal/discovery"
	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/types"
)

// Policy carries the queue construction parameters. Thresholds are
// configuration inputs, not constants: they vary by deployment.
type Policy struct {
	// Staleness is how long a record stays fresh after extraction.
	Staleness time.Duration
	// Force re-enqueues every discovered place regardless of freshness.
	Force bool
	// DevLimit, when positive, caps the queue for low-cost trial runs.
	DevLimit int
}

// BuildResult is the queue plus its observability counters.
type BuildResult struct {
	Entries        []types.QueueEntry
	Read           int
	DiscardedFresh int
}

// Build filters discovered links into an ordered work queue. A place is
// enqueued when it has no prior record, its record is stale, or Force is
// set. Links without a parseable place ID are logged and dropped: silent
// drops would mask discovery regressions.
func Build(discovered []string, existing map[string]types.Place, policy Policy, now time.Time, logger *logging.Logger) BuildResult {
	var result BuildResult

	for _, link := range discovered {
		id, ok := discovery.PlaceIDFromURL(link)
		if !ok {
			logger.Warn("[queue] Dropping link without parseable place ID: %s", link)
			continue
		}
		result.Read++

		if !policy.Force {
			if prior, found := existing[id]; found && now.Sub(prior.LastScraped) < policy.Staleness {
				result.DiscardedFresh++
				logger.Debug("[queue] Fresh, skipping %s (scraped %s)", id,
					prior.LastScraped.Format(types.TimestampLayout))
				continue
			}
		}

		result.Entries = append(result.Entries, types.QueueEntry{SourceURL: link, P4NID: id})
	}

	if policy.DevLimit > 0 && len(result.Entries) > policy.DevLimit {
		logger.Info("[queue] Dev limit: truncating queue %d -> %d", len(result.Entries), policy.DevLimit)
		result.Entries = result.Entries[:policy.DevLimit]
	}

	logger.Info("[queue] Built queue: %d read, %d fresh discarded, %d queued",
		result.Read, result.DiscardedFresh, len(result.Entries))
	return result
}
