package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiago/land-scout/internal/config"
	"github.com/tiago/land-scout/internal/enrich"
	"github.com/tiago/land-scout/internal/extract"
	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/queue"
	"github.com/tiago/land-scout/internal/session"
	"github.com/tiago/land-scout/internal/taxonomy"
)

var discoverCommand = &cobra.Command{
	Use:   "discover",
	Short: "Scan a sample of place pages for taxonomy outliers",
	Long: `Scrapes review snippets from a sample of place detail pages and asks the
model for recurring themes that do not fit the current pros/cons taxonomy.
The suggestions are written to a JSON report for manual review.`,
	RunE: runDiscoverCmd,
}

var (
	discoverURLsFile   string
	discoverOutputPath string
	discoverSampleSize int
	discoverMaxReviews int
	discoverVerbose    bool
)

func init() {
	discoverCommand.Flags().StringVar(&discoverURLsFile, "urls", "url_list.txt", "Path to the place URL list (one URL per line)")
	discoverCommand.Flags().StringVar(&discoverOutputPath, "output", "taxonomy_discovery_report.json", "Path for the discovery report")
	discoverCommand.Flags().IntVar(&discoverSampleSize, "sample", 15, "How many place URLs to sample")
	discoverCommand.Flags().IntVar(&discoverMaxReviews, "max-reviews", 20, "Review snippets per place")
	discoverCommand.Flags().BoolVarP(&discoverVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(discoverCommand)
}

func runDiscoverCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg := config.FromEnv()
	logger := logging.New(discoverVerbose)

	if cfg.APIKey == "" {
		return fmt.Errorf("discovery requires a Gemini API key (GEMINI_API_KEY)")
	}

	urls, err := queue.LoadSeeds(discoverURLsFile)
	if err != nil {
		return fmt.Errorf("load place URL list: %w", err)
	}
	if len(urls) > discoverSampleSize {
		urls = urls[:discoverSampleSize]
	}

	tax := loadTaxonomy(cfg, logger)
	gen, err := enrich.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, taxonomy.DiscoverySystemInstruction(tax))
	if err != nil {
		return fmt.Errorf("create Gemini client: %w", err)
	}
	defer gen.Close()

	sess, err := session.New(ctx, session.Options{
		LoginURL:        loginURL,
		NavTimeout:      cfg.NavTimeout(),
		SelectorTimeout: cfg.SelectorTimeout(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not establish browser session: %w", err)
	}
	defer sess.Close()
	sess.DismissCookieBanner()

	var suggestions []taxonomy.Suggestion
	for i, url := range urls {
		if i > 0 {
			time.Sleep(cfg.EnrichMinInterval())
		}
		logger.Info("[discover] Scraping %s", url)
		reviews, err := extract.Reviews(sess, url, discoverMaxReviews)
		if err != nil {
			logger.Warn("[discover] Skipping %s: %v", url, err)
			continue
		}
		if len(reviews) == 0 {
			continue
		}

		payload, err := json.Marshal(extract.ReviewBatch{URL: url, Reviews: reviews})
		if err != nil {
			logger.Warn("[discover] Could not serialize batch for %s: %v", url, err)
			continue
		}

		text, err := gen.Generate(ctx, string(payload))
		if err != nil {
			logger.Warn("[discover] Analysis failed for %s: %v", url, err)
			continue
		}
		batch, err := taxonomy.ParseSuggestions(enrich.CleanJSONBlock(text))
		if err != nil {
			logger.Warn("[discover] Unparseable analysis for %s: %v", url, err)
			continue
		}
		suggestions = append(suggestions, batch...)
	}

	report := taxonomy.NewDiscoveryReport(suggestions)
	if err := report.Save(discoverOutputPath); err != nil {
		return err
	}
	logger.Info("[discover] %d suggestions written to %s", report.TotalSuggestions, discoverOutputPath)
	return nil
}
