package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tiago/land-scout/internal/config"
	"github.com/tiago/land-scout/internal/discovery"
	"github.com/tiago/land-scout/internal/enrich"
	"github.com/tiago/land-scout/internal/extract"
	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/observability"
	"github.com/tiago/land-scout/internal/pipeline"
	"github.com/tiago/land-scout/internal/session"
	"github.com/tiago/land-scout/internal/store"
	"github.com/tiago/land-scout/internal/taxonomy"
)

const loginURL = "https://park4night.com/en/sign-in"

var scoutCommand = &cobra.Command{
	Use:   "scout",
	Short: "Run one crawl-enrich-persist pass over the current seed partition",
	Long: `Runs the full pipeline once: select this run's partition of the seed universe,
discover candidate places, queue the stale ones, extract and enrich each, and
merge the results into the place table. The partition cursor advances only
when the run completes successfully.`,
	RunE: runScoutCmd,
}

var (
	scoutConfigPath    string
	scoutSeedsFile     string
	scoutCSVPath       string
	scoutAPIKey        string
	scoutDatabaseURL   string
	scoutStalenessDays int
	scoutMinReviews    int
	scoutDev           bool
	scoutForce         bool
	scoutRequireLogin  bool
	scoutVerbose       bool
)

func init() {
	scoutCommand.Flags().StringVar(&scoutConfigPath, "config", "", "Path to JSON config file (flags override file values)")
	scoutCommand.Flags().StringVar(&scoutSeedsFile, "seeds", "", "Path to the seed universe file (one URL per line)")
	scoutCommand.Flags().StringVar(&scoutCSVPath, "csv", "", "Path to the persisted place table")
	scoutCommand.Flags().StringVar(&scoutAPIKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY env var)")
	scoutCommand.Flags().StringVar(&scoutDatabaseURL, "db-url", "", "PostgreSQL URL for the optional table mirror (defaults to DATABASE_URL)")
	scoutCommand.Flags().IntVar(&scoutStalenessDays, "staleness-days", 0, "Days before a record is considered stale")
	scoutCommand.Flags().IntVar(&scoutMinReviews, "min-reviews", 0, "Minimum review count for a place to qualify for enrichment")
	scoutCommand.Flags().BoolVar(&scoutDev, "dev", false, "Dev mode: cap the queue for a low-cost trial run")
	scoutCommand.Flags().BoolVar(&scoutForce, "force", false, "Re-enqueue every discovered place regardless of freshness")
	scoutCommand.Flags().BoolVar(&scoutRequireLogin, "require-login", false, "Abort the run if login does not succeed")
	scoutCommand.Flags().BoolVarP(&scoutVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(scoutCommand)
}

func runScoutCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadScoutConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Verbose)

	logger.Info("=== land-scout starting ===")
	logger.Info("Config: seeds: %s | table: %s | staleness: %dd | min reviews: %d | dev: %t | force: %t",
		cfg.SeedsFile, cfg.CSVPath, cfg.StalenessDays, cfg.MinReviews, cfg.Dev, cfg.Force)

	// The session is the one hard prerequisite: no browser, no run, and
	// nothing has been written yet.
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

	if cfg.Username != "" && cfg.Password != "" {
		if err := sess.Login(cfg.Username, cfg.Password); err != nil {
			if cfg.RequireLogin {
				return fmt.Errorf("could not authenticate and --require-login is set: %w", err)
			}
			logger.Warn("Login failed, continuing anonymously: %v", err)
		}
	} else if cfg.RequireLogin {
		return fmt.Errorf("could not authenticate: --require-login set without credentials")
	}
	sess.DismissCookieBanner()

	tax := loadTaxonomy(cfg, logger)
	enricher := newEnricher(ctx, cfg, tax, logger)
	defer enricher.Close()

	deps := pipeline.Deps{
		Scanner: discovery.NewScanner(sess, logger),
		Extractor: extract.New(sess, extract.Options{
			MinReviews:        cfg.MinReviews,
			MaxReviews:        cfg.MaxReviewsPerPlace,
			MaxLoadMoreClicks: cfg.MaxLoadMoreClicks,
			Pace:              time.Second,
			Logger:            logger,
		}),
		Enricher: enricher,
		Logger:   logger,
		Printer:  observability.NewPrinter(os.Stdout),
	}

	// Optional Postgres mirror; the CSV stays authoritative either way.
	var runID uuid.UUID
	var pg *store.Postgres
	if cfg.DatabaseURL != "" {
		pg, err = store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("Postgres mirror unavailable, continuing without it: %v", err)
		} else {
			defer pg.Close()
			deps.Mirror = pg
			if runID, err = pg.CreateRun(ctx, cfg.SeedsFile); err != nil {
				logger.Warn("Could not record run start: %v", err)
			}
		}
	}

	opts := pipeline.Options{
		SeedsFile:          cfg.SeedsFile,
		CSVPath:            cfg.CSVPath,
		PartitionStatePath: cfg.PartitionStatePath,
		Staleness:          cfg.Staleness(),
		Force:              cfg.Force,
		Pace:               3 * time.Second,
	}
	if cfg.Dev {
		opts.DevLimit = cfg.DevLimit
		opts.Pace = 0
	}

	stats, runErr := pipeline.Run(ctx, opts, deps)

	if pg != nil && runID != uuid.Nil {
		status := "completed"
		if runErr != nil {
			status = "failed"
		}
		if err := pg.CompleteRun(ctx, runID, status, stats); err != nil {
			logger.Warn("Could not record run completion: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("Run complete: %d read, %d enrichment calls", stats.Read, stats.EnrichmentCalls)
	return nil
}

// loadScoutConfig layers env defaults, the optional config file and CLI
// flag overrides, then validates the result.
func loadScoutConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromEnv()

	if scoutConfigPath != "" {
		if err := cfg.LoadFile(scoutConfigPath); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cmd.Flags().Changed("seeds") {
		cfg.SeedsFile = scoutSeedsFile
	}
	if cmd.Flags().Changed("csv") {
		cfg.CSVPath = scoutCSVPath
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = scoutAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = scoutDatabaseURL
	}
	if cmd.Flags().Changed("staleness-days") {
		cfg.StalenessDays = scoutStalenessDays
	}
	if cmd.Flags().Changed("min-reviews") {
		cfg.MinReviews = scoutMinReviews
	}
	cfg.Dev = cfg.Dev || scoutDev
	cfg.Force = cfg.Force || scoutForce
	cfg.RequireLogin = cfg.RequireLogin || scoutRequireLogin
	cfg.Verbose = cfg.Verbose || scoutVerbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTaxonomy(cfg *config.Config, logger *logging.Logger) taxonomy.Taxonomy {
	if cfg.TaxonomyPath == "" {
		return taxonomy.Default()
	}
	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		logger.Warn("Taxonomy file unusable, using built-in taxonomy: %v", err)
		return taxonomy.Default()
	}
	return tax
}

// newEnricher wires the Gemini client, or a disabled stand-in when no API
// key is configured: the run proceeds and records degrade to null AI
// fields.
func newEnricher(ctx context.Context, cfg *config.Config, tax taxonomy.Taxonomy, logger *logging.Logger) *enrich.Client {
	if cfg.APIKey == "" {
		logger.Warn("No Gemini API key configured; records will be persisted without enrichment")
		return enrich.NewClient(disabledGenerator{}, enrich.Options{Logger: logger})
	}

	gen, err := enrich.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, enrich.NewSystemInstruction(tax))
	if err != nil {
		logger.Warn("Gemini client unavailable (%v); records will be persisted without enrichment", err)
		return enrich.NewClient(disabledGenerator{}, enrich.Options{Logger: logger})
	}

	return enrich.NewClient(gen, enrich.Options{
		MinInterval: cfg.EnrichMinInterval(),
		MaxRetries:  cfg.EnrichMaxRetries,
		Logger:      logger,
	})
}

// disabledGenerator fails every call; Analyze degrades each record to the
// empty enrichment.
type disabledGenerator struct{}

func (disabledGenerator) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("enrichment disabled: no API key")
}

func (disabledGenerator) Close() error { return nil }
