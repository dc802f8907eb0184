// Package extract pulls the structured fields and review snippets for one
// queued place out of its rendered detail page.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/types"
)

// Detail-page selectors. The feedback summary doubles as the readiness
// signal: until it renders, the page is not worth parsing.
const (
	selFeedbackSummary = ".place-feedback-summary"
	selFeedbackArticle = ".place-feedback-article-content"
	selLoadMore        = ".place-feedback-load-more"
	selTitle           = ".place-header h1"
	selCategory        = ".place-category"
	selCoords          = ".place-coords"
	selPrices          = ".place-prices"
	selServices        = ".place-services li"
)

var (
	reviewCountPattern = regexp.MustCompile(`(\d+)\s*(?:reviews?|feedbacks?|avis)`)
	ratingPattern      = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*/\s*5`)
)

// Page is the subset of the browser session the extractor drives.
type Page interface {
	Navigate(url string) error
	WaitVisible(selector string) error
	Text(selector string) (string, error)
	Texts(selector string) ([]string, error)
	Click(selector string) error
}

// Outcome classifies one extraction attempt. Discards are policy
// decisions; only Failed counts as an error, and even that never aborts
// the run.
type Outcome int

// Extraction outcomes.
const (
	OutcomeSuccess Outcome = iota
	OutcomeDiscarded
	OutcomeFailed
)

// Result is the typed outcome of one extraction.
type Result struct {
	Outcome Outcome
	Raw     *types.RawPlace
	Err     error
}

// Options bounds the extractor's work per place.
type Options struct {
	// MinReviews is the minimum feedback count for a place to qualify for
	// enrichment. Low-signal places are discarded, not failed.
	MinReviews int
	// MaxReviews caps how many review snippets are collected.
	MaxReviews int
	// MaxLoadMoreClicks bounds the "load more" expansion loop.
	MaxLoadMoreClicks int
	// Pace is an optional human-like delay between page interactions.
	Pace   time.Duration
	Logger *logging.Logger
}

// Extractor produces raw payloads for queued places.
type Extractor struct {
	page   Page
	opts   Options
	logger *logging.Logger
}

// New creates an Extractor driving the given page.
func New(page Page, opts Options) *Extractor {
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 20
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(false)
	}
	return &Extractor{page: page, opts: opts, logger: opts.Logger}
}

// Extract navigates to the entry's detail page and builds its raw payload.
// Navigation or readiness failures yield OutcomeFailed; a feedback count
// below the threshold yields OutcomeDiscarded. Neither aborts the run.
func (e *Extractor) Extract(entry types.QueueEntry) Result {
	if err := e.page.Navigate(entry.SourceURL); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("navigate: %w", err)}
	}

	if err := e.page.WaitVisible(selFeedbackSummary); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("readiness signal never appeared: %w", err)}
	}

	summary, err := e.page.Text(selFeedbackSummary)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("read feedback summary: %w", err)}
	}

	count := ParseReviewCount(summary)
	if count < e.opts.MinReviews {
		e.logger.Debug("[extract] %s has %d reviews (< %d), discarding",
			entry.P4NID, count, e.opts.MinReviews)
		return Result{Outcome: OutcomeDiscarded}
	}

	raw := &types.RawPlace{
		P4NID:        entry.P4NID,
		URL:          entry.SourceURL,
		TotalReviews: count,
		AvgRating:    ParseAvgRating(summary),
	}

	// Descriptive fields are best-effort: a missing selector leaves the
	// field empty rather than failing the place.
	raw.Title = e.optionalText(selTitle)
	raw.LocationType = e.optionalText(selCategory)
	if lat, lng, ok := ParseCoords(e.optionalText(selCoords)); ok {
		raw.Latitude, raw.Longitude = lat, lng
	}
	raw.PriceText = e.optionalText(selPrices)
	raw.Services = parseServices(e.optionalTexts(selServices))
	raw.Reviews = e.collectReviews()

	return Result{Outcome: OutcomeSuccess, Raw: raw}
}

// collectReviews reads review snippets, expanding the list with a bounded
// number of "load more" clicks when the page offers one.
func (e *Extractor) collectReviews() []string {
	reviews := e.optionalTexts(selFeedbackArticle)

	for clicks := 0; len(reviews) < e.opts.MaxReviews && clicks < e.opts.MaxLoadMoreClicks; clicks++ {
		if err := e.page.Click(selLoadMore); err != nil {
			break
		}
		e.pause()

		expanded := e.optionalTexts(selFeedbackArticle)
		if len(expanded) <= len(reviews) {
			break
		}
		reviews = expanded
	}

	if len(reviews) > e.opts.MaxReviews {
		reviews = reviews[:e.opts.MaxReviews]
	}

	cleaned := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return cleaned
}

func (e *Extractor) optionalText(selector string) string {
	text, err := e.page.Text(selector)
	if err != nil {
		e.logger.Debug("[extract] Optional field %s unavailable: %v", selector, err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *Extractor) optionalTexts(selector string) []string {
	texts, err := e.page.Texts(selector)
	if err != nil {
		e.logger.Debug("[extract] Optional list %s unavailable: %v", selector, err)
		return nil
	}
	return texts
}

func (e *Extractor) pause() {
	if e.opts.Pace > 0 {
		time.Sleep(e.opts.Pace)
	}
}

// ParseReviewCount pulls the feedback count out of a summary string like
// "4.2/5 (37 reviews)". Absent counts parse as zero.
func ParseReviewCount(summary string) int {
	m := reviewCountPattern.FindStringSubmatch(strings.ToLower(summary))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// ParseAvgRating pulls the x/5 rating out of a summary string.
func ParseAvgRating(summary string) float64 {
	m := ratingPattern.FindStringSubmatch(summary)
	if m == nil {
		return 0
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || val < 0 || val > 5 {
		return 0
	}
	return val
}

// ParseCoords parses a "38.7,-9.1" coordinate pair.
func ParseCoords(raw string) (lat, lng float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// parseServices turns "key: value" list items into a map. Items without a
// colon become flag-style entries with an empty value.
func parseServices(items []string) map[string]string {
	if len(items) == 0 {
		return nil
	}
	services := make(map[string]string, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if key, value, found := strings.Cut(item, ":"); found {
			services[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else {
			services[item] = ""
		}
	}
	return services
}
