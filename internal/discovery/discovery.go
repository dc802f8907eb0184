// Package discovery scans seed listing pages and collects candidate place
// links for the queue builder.
package discovery

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/tiago/land-scout/internal/logging"
)

// placeIDPattern matches detail-page paths like /en/place/442109.
var placeIDPattern = regexp.MustCompile(`/place/(\d+)`)

// Fetcher renders a page and returns its HTML. *session.Session satisfies
// this; tests substitute fakes.
type Fetcher interface {
	RenderedHTML(url string, settle time.Duration) (string, error)
}

// Scanner extracts place links from seed listing pages. Per-seed failures
// are absorbed: the scan result is the union of whatever seeds succeeded.
type Scanner struct {
	fetcher Fetcher
	logger  *logging.Logger

	// NewFetcher, when set, lets Scan fan seeds out across independent
	// browser contexts. Each fetcher is owned by exactly one seed; the
	// shared fetcher is never used concurrently.
	NewFetcher func() (Fetcher, func(), error)

	// Settle is how long a listing page gets to finish client-side
	// rendering before capture.
	Settle time.Duration

	// MaxParallel bounds fan-out when NewFetcher is set.
	MaxParallel int
}

// NewScanner creates a sequential Scanner on a shared fetcher.
func NewScanner(fetcher Fetcher, logger *logging.Logger) *Scanner {
	return &Scanner{
		fetcher:     fetcher,
		logger:      logger,
		Settle:      3 * time.Second,
		MaxParallel: 3,
	}
}

// Scan visits every seed and returns the deduplicated, sorted union of
// discovered place links. It never fails the whole scan for one seed.
func (s *Scanner) Scan(seeds []string) []string {
	if s.NewFetcher != nil && len(seeds) > 1 {
		return s.scanParallel(seeds)
	}

	set := make(map[string]struct{})
	for _, seed := range seeds {
		for _, link := range s.scanSeed(s.fetcher, seed) {
			set[link] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// scanParallel runs one independent fetcher per seed, bounded by MaxParallel.
func (s *Scanner) scanParallel(seeds []string) []string {
	var mu sync.Mutex
	set := make(map[string]struct{})

	var g errgroup.Group
	g.SetLimit(s.MaxParallel)
	for _, seed := range seeds {
		g.Go(func() error {
			fetcher, release, err := s.NewFetcher()
			if err != nil {
				s.logger.Warn("[discovery] Could not open context for %s: %v", seed, err)
				return nil
			}
			defer release()

			links := s.scanSeed(fetcher, seed)
			mu.Lock()
			for _, link := range links {
				set[link] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers only log, never return errors

	return sortedKeys(set)
}

func (s *Scanner) scanSeed(fetcher Fetcher, seed string) []string {
	html, err := fetcher.RenderedHTML(seed, s.Settle)
	if err != nil {
		s.logger.Warn("[discovery] Seed failed, continuing without it: %s: %v", seed, err)
		return nil
	}

	links, err := ExtractPlaceLinks(html, seed)
	if err != nil {
		s.logger.Warn("[discovery] Seed parse failed, continuing without it: %s: %v", seed, err)
		return nil
	}

	if len(links) == 0 {
		// Zero links from a listing page usually means a block page or a
		// layout change, not an empty region.
		s.logger.Warn("[discovery] Seed yielded 0 links (possible block page): %s", seed)
		return nil
	}

	s.logger.Info("[discovery] Seed %s yielded %d place links", seed, len(links))
	return links
}

// ExtractPlaceLinks parses a rendered listing page and returns every
// distinct place detail link, resolved against the seed's origin.
func ExtractPlaceLinks(html, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %s: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %s: must have scheme and host", baseURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing HTML: %w", err)
	}

	set := make(map[string]struct{})
	doc.Find(`a[href*="/place/"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if !placeIDPattern.MatchString(resolved.Path) {
			return
		}
		// Canonical form: origin + path, no query or fragment.
		resolved.RawQuery = ""
		resolved.Fragment = ""
		set[resolved.String()] = struct{}{}
	})

	return sortedKeys(set), nil
}

// PlaceIDFromURL derives the stable place identifier from a detail-page
// URL. The second return is false when the path carries no parseable ID.
func PlaceIDFromURL(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	m := placeIDPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
