// Package observability provides formatted end-of-run reporting.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tiago/land-scout/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// topRatedCount is how many places the insight section lists
	topRatedCount = 3
)

// Printer renders the run summary and table insights.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to the given writer.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRunSummary renders the per-run counters.
func (p *Printer) PrintRunSummary(seed string, stats types.RunStats, tableSize int) {
	content := fmt.Sprintf(
		"Seed: %s\nRead: %d\nDiscarded (fresh): %d\nDiscarded (low feedback): %d\nFailed: %d\nEnrichment calls: %d\nTable rows: %d",
		seed, stats.Read, stats.DiscardedFresh, stats.DiscardedLowFeedback,
		stats.Failed, stats.EnrichmentCalls, tableSize)
	p.printBox("Run Summary", content)
}

// PrintInsights renders price and rating insights over the merged table.
func (p *Printer) PrintInsights(places []types.Place) {
	if len(places) == 0 {
		return
	}

	var priced []types.Place
	for _, pl := range places {
		if pl.ParkingMinEUR != nil {
			priced = append(priced, pl)
		}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Places: %d (%d with known pricing)", len(places), len(priced)))

	if len(priced) > 0 {
		minPrice, maxPrice, total := *priced[0].ParkingMinEUR, *priced[0].ParkingMinEUR, 0.0
		for _, pl := range priced {
			v := *pl.ParkingMinEUR
			total += v
			if v < minPrice {
				minPrice = v
			}
			if v > maxPrice {
				maxPrice = v
			}
		}
		lines = append(lines, fmt.Sprintf("Parking EUR/night: min %.2f / avg %.2f / max %.2f",
			minPrice, total/float64(len(priced)), maxPrice))
	}

	rated := make([]types.Place, 0, len(places))
	for _, pl := range places {
		if pl.AvgRating > 0 {
			rated = append(rated, pl)
		}
	}
	sort.Slice(rated, func(i, j int) bool { return rated[i].AvgRating > rated[j].AvgRating })
	if len(rated) > topRatedCount {
		rated = rated[:topRatedCount]
	}
	for _, pl := range rated {
		lines = append(lines, fmt.Sprintf("★ %.1f %s (%d reviews)", pl.AvgRating, pl.Title, pl.TotalReviews))
	}

	p.printBox("Table Insights", strings.Join(lines, "\n"))
}
