package discovery

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiago/land-scout/internal/logging"
)

const listingHTML = `
	<html>
		<body>
			<div class="search-results">
				<a href="/en/place/442109">Riverside Aire</a>
				<a href="/en/place/100234?utm_source=map#photos">Hilltop Farm</a>
				<a href="https://park4night.com/en/place/442109">Riverside Aire (dup)</a>
				<a href="/en/search?lat=38.7">Next page</a>
				<a href="/en/place/">Broken card</a>
			</div>
		</body>
	</html>
`

func TestExtractPlaceLinks_CanonicalizesAndDeduplicates(t *testing.T) {
	links, err := ExtractPlaceLinks(listingHTML, "https://park4night.com/en/search?lat=38.7")
	require.NoError(t, err)

	require.Len(t, links, 2)
	assert.Equal(t, "https://park4night.com/en/place/100234", links[0])
	assert.Equal(t, "https://park4night.com/en/place/442109", links[1])
}

func TestExtractPlaceLinks_InvalidBaseURL(t *testing.T) {
	_, err := ExtractPlaceLinks(listingHTML, "not-a-url")
	assert.Error(t, err)
}

func TestExtractPlaceLinks_EmptyPage(t *testing.T) {
	links, err := ExtractPlaceLinks("<html><body></body></html>", "https://park4night.com/en/search")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestPlaceIDFromURL(t *testing.T) {
	id, ok := PlaceIDFromURL("https://park4night.com/en/place/442109")
	assert.True(t, ok)
	assert.Equal(t, "442109", id)

	_, ok = PlaceIDFromURL("https://park4night.com/en/search?lat=38.7")
	assert.False(t, ok)

	_, ok = PlaceIDFromURL("https://park4night.com/en/place/not-numeric")
	assert.False(t, ok)

	// Query strings never contribute an ID.
	_, ok = PlaceIDFromURL("https://park4night.com/en/search?next=/place/99")
	assert.False(t, ok)
}

// fakeFetcher serves canned HTML per URL.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) RenderedHTML(url string, _ time.Duration) (string, error) {
	f.calls = append(f.calls, url)
	if err, found := f.errs[url]; found {
		return "", err
	}
	return f.pages[url], nil
}

func TestScan_UnionsAcrossSeeds(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://park4night.com/en/search?a": `<a href="/en/place/1">x</a><a href="/en/place/2">y</a>`,
		"https://park4night.com/en/search?b": `<a href="/en/place/2">y</a><a href="/en/place/3">z</a>`,
	}}
	scanner := NewScanner(fetcher, logging.New(false))
	scanner.Settle = 0

	links := scanner.Scan([]string{
		"https://park4night.com/en/search?a",
		"https://park4night.com/en/search?b",
	})

	assert.Equal(t, []string{
		"https://park4night.com/en/place/1",
		"https://park4night.com/en/place/2",
		"https://park4night.com/en/place/3",
	}, links)
}

func TestScan_FailedSeedDoesNotFailScan(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://park4night.com/en/search?good": `<a href="/en/place/1">x</a>`,
		},
		errs: map[string]error{
			"https://park4night.com/en/search?bad": fmt.Errorf("navigation timeout"),
		},
	}
	scanner := NewScanner(fetcher, logging.New(false))
	scanner.Settle = 0

	links := scanner.Scan([]string{
		"https://park4night.com/en/search?bad",
		"https://park4night.com/en/search?good",
	})

	assert.Equal(t, []string{"https://park4night.com/en/place/1"}, links)
}

func TestScan_ZeroLinkSeedYieldsNothing(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://park4night.com/en/search?blocked": `<html><body>Access denied</body></html>`,
	}}
	scanner := NewScanner(fetcher, logging.New(false))
	scanner.Settle = 0

	links := scanner.Scan([]string{"https://park4night.com/en/search?blocked"})
	assert.Empty(t, links)
}

func TestScan_ParallelFanOutUsesFreshFetchers(t *testing.T) {
	pages := map[string]string{
		"https://park4night.com/en/search?a": `<a href="/en/place/1">x</a>`,
		"https://park4night.com/en/search?b": `<a href="/en/place/2">y</a>`,
	}
	var released atomic.Int32

	scanner := NewScanner(nil, logging.New(false))
	scanner.Settle = 0
	scanner.NewFetcher = func() (Fetcher, func(), error) {
		return &fakeFetcher{pages: pages}, func() { released.Add(1) }, nil
	}

	links := scanner.Scan([]string{
		"https://park4night.com/en/search?a",
		"https://park4night.com/en/search?b",
	})

	assert.Equal(t, []string{
		"https://park4night.com/en/place/1",
		"https://park4night.com/en/place/2",
	}, links)
	assert.Equal(t, int32(2), released.Load())
}
