//nolint:revive // types is a standard Go package name pattern
package types

// RunStats tracks per-run observability counters. Discards are policy
// decisions, not failures, and are counted separately.
type RunStats struct {
	Read                 int `json:"read"`
	DiscardedFresh       int `json:"discarded_fresh"`
	DiscardedLowFeedback int `json:"discarded_low_feedback"`
	Failed               int `json:"failed"`
	EnrichmentCalls      int `json:"enrichment_calls"`
}
